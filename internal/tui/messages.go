package tui

import (
	"github.com/Zacy-Sokach/cadgen/internal/api"
	"github.com/Zacy-Sokach/cadgen/internal/viewer"
)

// Message types for tea.Model

// GenerateDoneMsg 生成请求结束，Err 非空表示传输失败
type GenerateDoneMsg struct {
	Result api.Result
	Err    error
}

// AssetLoadedMsg 模型文件下载并解码完成
type AssetLoadedMsg struct {
	URL  string
	Mesh *viewer.Mesh
	Err  error
}

// ToastExpiredMsg 通知到期
type ToastExpiredMsg struct {
	ID uint64
}

// StatusMsg 启动时的后端状态检查结果
type StatusMsg struct {
	Status *api.StatusResponse
	Err    error
}

// ClipboardMsg 复制代码的结果
type ClipboardMsg struct {
	Err error
}
