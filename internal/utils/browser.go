package utils

import (
	"io"

	"github.com/pkg/browser"
)

func init() {
	// TUI 占用终端，浏览器启动器的输出不能写到 stdout
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// URLOpener 在外部浏览器中打开链接
type URLOpener interface {
	OpenURL(url string) error
}

// BrowserOpener 使用系统默认浏览器
type BrowserOpener struct{}

// OpenURL 打开链接，不等待浏览器结果
func (BrowserOpener) OpenURL(url string) error {
	return browser.OpenURL(url)
}

// URLOpenerFunc 允许普通函数充当 URLOpener
type URLOpenerFunc func(url string) error

func (f URLOpenerFunc) OpenURL(url string) error {
	return f(url)
}
