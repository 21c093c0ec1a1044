package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

const (
	sidebarWidth   = 36
	promptHeight   = 3
	minViewerRows  = 6
	minChatRows    = 3
	viewerPercent  = 60
	paneBorderSize = 2
	// sendColumnWidth 输入框右侧发送按钮占用的列数
	sendColumnWidth = 7
)

// Layout 各区域的尺寸，单位为字符格，均为内容尺寸（不含边框）
type Layout struct {
	Width, Height int

	SidebarWidth  int
	SidebarHeight int

	MainWidth    int
	ViewerHeight int
	ChatHeight   int
}

// computeLayout 按窗口大小分配区域，headerRows 包括工具栏和通知
func computeLayout(width, height, headerRows int, sidebarOpen bool) Layout {
	l := Layout{Width: width, Height: height}

	// 输入框和底部提示各占固定行数
	footerRows := promptHeight + paneBorderSize + 2
	body := height - headerRows - footerRows
	if body < 0 {
		body = 0
	}

	main := width
	if sidebarOpen && width >= sidebarWidth*2 {
		l.SidebarWidth = sidebarWidth - paneBorderSize
		l.SidebarHeight = max(body+promptHeight, 1)
		main -= sidebarWidth
	}
	l.MainWidth = max(main-paneBorderSize, 1)

	// 查看器和对话框各带一层边框
	inner := body - paneBorderSize*2
	viewer := inner * viewerPercent / 100
	if viewer < minViewerRows {
		viewer = min(minViewerRows, inner)
	}
	chat := inner - viewer
	if chat < minChatRows && inner-minChatRows >= minViewerRows {
		chat = minChatRows
		viewer = inner - chat
	}
	l.ViewerHeight = max(viewer, 1)
	l.ChatHeight = max(chat, 1)
	return l
}

// UIStateManager 管理UI组件的状态
type UIStateManager struct {
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	layout   Layout
	ready    bool
}

// NewUIStateManager 创建新的UI状态管理器
func NewUIStateManager() *UIStateManager {
	ta := textarea.New()
	ta.Placeholder = "Describe a 3D model to generate..."
	ta.Focus()
	ta.CharLimit = 0
	ta.SetWidth(80)
	ta.SetHeight(promptHeight)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	vp := viewport.New(80, 10)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorAccent)

	return &UIStateManager{
		viewport: vp,
		textarea: ta,
		spinner:  sp,
		ready:    false,
	}
}

// IsReady 是否已收到窗口尺寸
func (m *UIStateManager) IsReady() bool {
	return m.ready
}

// Layout 当前布局
func (m *UIStateManager) Layout() Layout {
	return m.layout
}

// Resize 按窗口尺寸重新布局
func (m *UIStateManager) Resize(width, height, headerRows int, sidebarOpen bool) {
	m.layout = computeLayout(width, height, headerRows, sidebarOpen)
	if !m.ready {
		m.viewport = viewport.New(m.layout.MainWidth, m.layout.ChatHeight)
		m.viewport.YPosition = 0
		m.ready = true
	} else {
		m.viewport.Width = m.layout.MainWidth
		m.viewport.Height = m.layout.ChatHeight
	}
	m.textarea.SetWidth(max(m.layout.MainWidth-sendColumnWidth, 10))
}
