// Package viewer 在终端里显示生成的 GLB 模型，并能把当前视角截成 JPEG。
//
// 渲染是纯软件光栅化：模型先被摆放到单位半径（Stage），再由轨道相机观察。
// 终端画面和截图使用两块独立的帧缓冲，截图缓冲在两次截图之间保留内容。
package viewer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/jpeg"

	"github.com/charmbracelet/lipgloss"
)

const (
	DefaultSnapshotWidth   = 640
	DefaultSnapshotHeight  = 480
	DefaultSnapshotQuality = 80

	// Placeholder 没有模型时的提示
	Placeholder = "No model generated yet."

	snapshotPrefix = "data:image/jpeg;base64,"
)

// Status 模型加载状态
type Status int

const (
	StatusEmpty Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "empty"
	}
}

// Options 截图参数
type Options struct {
	SnapshotWidth  int
	SnapshotHeight int
	Quality        int
}

// DefaultOptions 默认 640x480，质量 80
func DefaultOptions() Options {
	return Options{
		SnapshotWidth:  DefaultSnapshotWidth,
		SnapshotHeight: DefaultSnapshotHeight,
		Quality:        DefaultSnapshotQuality,
	}
}

var (
	placeholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	failedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Viewer 当前模型及其显示状态
// 只在 UI 线程上使用
type Viewer struct {
	opts   Options
	url    string
	status Status
	err    error
	mesh   *Mesh
	camera Camera

	screen   *Framebuffer
	snapshot *Framebuffer

	cache      string
	cacheW     int
	cacheH     int
	cacheValid bool
}

func New(opts Options) *Viewer {
	def := DefaultOptions()
	if opts.SnapshotWidth <= 0 {
		opts.SnapshotWidth = def.SnapshotWidth
	}
	if opts.SnapshotHeight <= 0 {
		opts.SnapshotHeight = def.SnapshotHeight
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = def.Quality
	}
	return &Viewer{
		opts:     opts,
		camera:   DefaultCamera(),
		snapshot: NewFramebuffer(opts.SnapshotWidth, opts.SnapshotHeight),
	}
}

// BeginLoad 切换到新的模型地址，旧模型立即卸下
func (v *Viewer) BeginLoad(url string) {
	v.url = url
	v.status = StatusLoading
	v.err = nil
	v.mesh = nil
	v.camera.Reset()
	v.invalidate()
}

// SetMesh 装入解码好的网格；url 已不是当前地址时丢弃并返回 false
func (v *Viewer) SetMesh(url string, mesh *Mesh) bool {
	if url != v.url || v.status != StatusLoading {
		return false
	}
	v.mesh = mesh.Staged()
	v.status = StatusReady
	v.invalidate()
	return true
}

// Fail 记录加载失败；过期地址的失败被忽略
func (v *Viewer) Fail(url string, err error) bool {
	if url != v.url || v.status != StatusLoading {
		return false
	}
	v.status = StatusFailed
	v.err = err
	v.invalidate()
	return true
}

// Clear 回到没有模型的状态
func (v *Viewer) Clear() {
	v.url = ""
	v.status = StatusEmpty
	v.err = nil
	v.mesh = nil
	v.camera.Reset()
	v.invalidate()
}

func (v *Viewer) URL() string    { return v.url }
func (v *Viewer) Status() Status { return v.status }
func (v *Viewer) Camera() Camera { return v.camera }

func (v *Viewer) Orbit(dYaw, dPitch float64) {
	v.camera.Orbit(dYaw, dPitch)
	v.invalidate()
}

func (v *Viewer) Zoom(factor float64) {
	v.camera.Zoom(factor)
	v.invalidate()
}

func (v *Viewer) ResetCamera() {
	v.camera.Reset()
	v.invalidate()
}

func (v *Viewer) invalidate() {
	v.cacheValid = false
}

// View 绘制 width x height 个字符格，结果缓存到场景、相机或尺寸变化为止
func (v *Viewer) View(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	if v.cacheValid && v.cacheW == width && v.cacheH == height {
		return v.cache
	}

	var out string
	switch v.status {
	case StatusEmpty:
		out = lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, placeholderStyle.Render(Placeholder))
	case StatusFailed:
		msg := "Failed to load model"
		if v.err != nil {
			msg = fmt.Sprintf("%s: %v", msg, v.err)
		}
		out = lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
			failedStyle.Width(width).Align(lipgloss.Center).Render(msg))
	default:
		if v.screen == nil || v.screen.Width != width || v.screen.Height != height*2 {
			v.screen = NewFramebuffer(width, height*2)
		}
		Render(v.screen, v.mesh, v.camera)
		out = renderCells(v.screen)
	}

	v.cache, v.cacheW, v.cacheH, v.cacheValid = out, width, height, true
	return out
}

// CaptureSnapshot 以当前相机同步渲染一帧并编码成 JPEG data URI
// 加载中的模型只截到背景
func (v *Viewer) CaptureSnapshot() (string, bool) {
	Render(v.snapshot, v.mesh, v.camera)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, v.snapshot.Image(), &jpeg.Options{Quality: v.opts.Quality}); err != nil {
		return "", false
	}
	return snapshotPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), true
}
