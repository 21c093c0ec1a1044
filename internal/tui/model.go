package tui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zacy-Sokach/cadgen/internal/api"
	"github.com/Zacy-Sokach/cadgen/internal/state"
	"github.com/Zacy-Sokach/cadgen/internal/utils"
	"github.com/Zacy-Sokach/cadgen/internal/viewer"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// Version 是当前的 cadgen 版本，由 main 包设置
var Version string

const (
	toastDuration = 10 * time.Second
	statusTimeout = 5 * time.Second
	assetTimeout  = 2 * time.Minute

	yawStep   = 15.0
	pitchStep = 10.0
	zoomStep  = 0.9

	helpText = "Commands: /new  /stl  /gltf  /glb  /copy  /sidebar  /help. Anything else is sent as a prompt."
)

type screen int

const (
	screenLanding screen = iota
	screenApp
)

type focusArea int

const (
	focusPrompt focusArea = iota
	focusViewer
)

// Backend CAD 生成服务，由 api.Client 实现
type Backend interface {
	Generate(ctx context.Context, req api.GenerateRequest) (api.Result, error)
	FetchAsset(ctx context.Context, ref string) ([]byte, error)
	DownloadURL(id api.SessionID, format api.Format) string
	Status(ctx context.Context) (*api.StatusResponse, error)
}

// Options 创建 Model 的依赖，除 Backend 外都有默认值
type Options struct {
	Backend     Backend
	Viewer      *viewer.Viewer
	Opener      utils.URLOpener
	Clipboard   func(string) error
	Logger      *zap.Logger
	DocsURL     string
	SkipLanding bool
}

type Model struct {
	backend   Backend
	opener    utils.URLOpener
	clipboard func(string) error
	logger    *zap.Logger
	docsURL   string

	state         *state.State
	viewer        *viewer.Viewer
	ui            *UIStateManager
	commandParser *CommandParser

	screen      screen
	focus       focusArea
	sidebarOpen bool
	width       int
	height      int
}

func NewModel(opts Options) *Model {
	if opts.Viewer == nil {
		opts.Viewer = viewer.New(viewer.DefaultOptions())
	}
	if opts.Opener == nil {
		opts.Opener = utils.BrowserOpener{}
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	m := &Model{
		backend:       opts.Backend,
		opener:        opts.Opener,
		clipboard:     opts.Clipboard,
		logger:        opts.Logger,
		docsURL:       opts.DocsURL,
		state:         state.New(),
		viewer:        opts.Viewer,
		ui:            NewUIStateManager(),
		commandParser: NewCommandParser(),
		sidebarOpen:   true,
	}
	if opts.SkipLanding {
		m.screen = screenApp
	}
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.statusCmd())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.relayout()
		return m, nil

	case tea.KeyMsg:
		if m.screen == screenLanding {
			return m, m.updateLanding(msg)
		}
		return m, m.updateApp(msg)

	case GenerateDoneMsg:
		return m, m.handleGenerateDone(msg)

	case AssetLoadedMsg:
		m.handleAssetLoaded(msg)
		return m, nil

	case ToastExpiredMsg:
		if m.state.DismissToast(msg.ID) {
			m.relayout()
		}
		return m, nil

	case StatusMsg:
		if msg.Err != nil {
			m.logger.Warn("后端不可用", zap.Error(msg.Err))
			return m, m.showToast("Backend unavailable: "+api.ErrorMessage(msg.Err), state.ToastError)
		}
		if msg.Status != nil {
			m.logger.Info("后端状态", zap.String("status", msg.Status.Status), zap.String("message", msg.Status.Message))
		}
		return m, nil

	case ClipboardMsg:
		if msg.Err != nil {
			m.logger.Warn("复制代码失败", zap.Error(msg.Err))
			return m, m.showToast("Copy failed: "+msg.Err.Error(), state.ToastError)
		}
		return m, m.showToast("Code copied to clipboard", state.ToastInfo)

	case spinner.TickMsg:
		// 请求结束后不再续订，转圈自然停止
		if !m.state.InFlight() {
			return m, nil
		}
		m.ui.spinner, cmd = m.ui.spinner.Update(msg)
		m.refreshChat()
		return m, cmd
	}

	m.ui.textarea, cmd = m.ui.textarea.Update(msg)
	cmds = append(cmds, cmd)

	m.ui.viewport, cmd = m.ui.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) updateLanding(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "q":
		return tea.Quit
	case "enter", " ":
		m.screen = screenApp
		m.relayout()
		return m.ui.textarea.Focus()
	case "d":
		return m.openURL(m.docsURL)
	}
	return nil
}

func (m *Model) updateApp(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd

	switch msg.Type {
	case tea.KeyCtrlC:
		return tea.Quit
	case tea.KeyEsc:
		if toast, ok := m.state.Toast(); ok {
			m.state.DismissToast(toast.ID)
			m.relayout()
			return nil
		}
		return m.setFocus(focusPrompt)
	case tea.KeyTab:
		if m.focus == focusViewer {
			return m.setFocus(focusPrompt)
		}
		return m.setFocus(focusViewer)
	case tea.KeyCtrlB:
		m.toggleSidebar()
		return nil
	case tea.KeyCtrlN:
		m.newProject()
		return nil
	case tea.KeyCtrlS:
		return m.download(api.FormatSTL)
	case tea.KeyCtrlG:
		return m.download(api.FormatGLTF)
	case tea.KeyCtrlY:
		return m.copyCode()
	case tea.KeyPgUp, tea.KeyPgDown:
		m.ui.viewport, cmd = m.ui.viewport.Update(msg)
		return cmd
	}

	if m.focus == focusViewer {
		m.updateViewerKeys(msg)
		return nil
	}

	if msg.Type == tea.KeyEnter {
		return m.submit()
	}

	// 请求进行中输入框禁用
	if m.state.InFlight() {
		return nil
	}
	m.ui.textarea, cmd = m.ui.textarea.Update(msg)
	return cmd
}

// updateViewerKeys 查看器获得焦点时的轨道控制
func (m *Model) updateViewerKeys(msg tea.KeyMsg) {
	switch msg.String() {
	case "left", "h":
		m.viewer.Orbit(-yawStep, 0)
	case "right", "l":
		m.viewer.Orbit(yawStep, 0)
	case "up", "k":
		m.viewer.Orbit(0, pitchStep)
	case "down", "j":
		m.viewer.Orbit(0, -pitchStep)
	case "+", "=":
		m.viewer.Zoom(zoomStep)
	case "-", "_":
		m.viewer.Zoom(1 / zoomStep)
	case "r":
		m.viewer.ResetCamera()
	}
}

func (m *Model) setFocus(f focusArea) tea.Cmd {
	m.focus = f
	if f == focusViewer || m.state.InFlight() {
		m.ui.textarea.Blur()
		return nil
	}
	return m.ui.textarea.Focus()
}

func (m *Model) toggleSidebar() {
	m.sidebarOpen = !m.sidebarOpen
	m.relayout()
}

// surface 应用界面显示时查看器视为已挂载
func (m *Model) surface() state.Surface {
	if m.screen != screenApp || m.viewer == nil {
		return nil
	}
	return m.viewer
}

// submit 发送输入框内容；斜杠命令在本地处理
func (m *Model) submit() tea.Cmd {
	input := m.ui.textarea.Value()
	if cmd := m.commandParser.Parse(input); cmd != nil {
		m.ui.textarea.Reset()
		return m.handleCommand(cmd)
	}

	if !m.canSend() {
		return nil
	}
	req, ok := m.state.Submit(input, m.surface())
	if !ok {
		return nil
	}

	m.ui.textarea.Reset()
	m.ui.textarea.Blur()
	m.refreshChat()
	return tea.Batch(m.generateCmd(req), m.ui.spinner.Tick)
}

// canSend 输入为空或请求进行中时不能发送
func (m *Model) canSend() bool {
	return m.state.CanSend(m.ui.textarea.Value())
}

// generateCmd 在后台执行请求，无论如何都会回送 GenerateDoneMsg
func (m *Model) generateCmd(req api.GenerateRequest) tea.Cmd {
	backend, logger := m.backend, m.logger
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("生成请求发生panic", zap.Any("panic", r))
				msg = GenerateDoneMsg{Err: fmt.Errorf("internal error: %v", r)}
			}
		}()
		res, err := backend.Generate(context.Background(), req)
		return GenerateDoneMsg{Result: res, Err: err}
	}
}

func (m *Model) handleGenerateDone(msg GenerateDoneMsg) tea.Cmd {
	out := m.state.Complete(msg.Result, msg.Err)

	var cmds []tea.Cmd
	if out.AssetChanged {
		url := m.state.AssetURL()
		m.viewer.BeginLoad(url)
		cmds = append(cmds, m.loadAssetCmd(url))
	}
	if out.Toast != nil {
		m.logger.Warn("生成失败", zap.String("message", out.Toast.Message))
		cmds = append(cmds, toastExpiry(out.Toast.ID))
	}
	if m.focus == focusPrompt {
		cmds = append(cmds, m.ui.textarea.Focus())
	}
	m.relayout()
	return tea.Batch(cmds...)
}

// loadAssetCmd 下载并解码模型文件
func (m *Model) loadAssetCmd(url string) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), assetTimeout)
		defer cancel()

		data, err := backend.FetchAsset(ctx, url)
		if err != nil {
			return AssetLoadedMsg{URL: url, Err: errors.New(api.ErrorMessage(err))}
		}
		mesh, err := viewer.LoadGLB(bytes.NewReader(data))
		return AssetLoadedMsg{URL: url, Mesh: mesh, Err: err}
	}
}

func (m *Model) handleAssetLoaded(msg AssetLoadedMsg) {
	if msg.Err != nil {
		if m.viewer.Fail(msg.URL, msg.Err) {
			m.logger.Warn("加载模型失败", zap.String("url", msg.URL), zap.Error(msg.Err))
		}
		return
	}
	if !m.viewer.SetMesh(msg.URL, msg.Mesh) {
		m.logger.Debug("丢弃过期的模型", zap.String("url", msg.URL))
		return
	}
	m.logger.Info("模型已加载", zap.String("url", msg.URL), zap.Int("triangles", len(msg.Mesh.Triangles)))
}

func (m *Model) newProject() {
	m.state.NewProject()
	m.viewer.Clear()
	m.refreshChat()
	m.logger.Info("新建项目")
}

// download 有会话时在浏览器中打开下载地址，结果不回传
func (m *Model) download(format api.Format) tea.Cmd {
	id, ok := m.state.Session()
	if !ok {
		return nil
	}
	return m.openURL(m.backend.DownloadURL(id, format))
}

func (m *Model) openURL(url string) tea.Cmd {
	if url == "" {
		return nil
	}
	opener, logger := m.opener, m.logger
	return func() tea.Msg {
		if err := opener.OpenURL(url); err != nil {
			logger.Warn("打开链接失败", zap.String("url", url), zap.Error(err))
		}
		return nil
	}
}

func (m *Model) copyCode() tea.Cmd {
	code, ok := m.state.LastCode()
	if !ok {
		return m.showToast("No generated code to copy yet", state.ToastInfo)
	}
	write := m.clipboard
	return func() tea.Msg {
		return ClipboardMsg{Err: write(code)}
	}
}

// handleCommand 处理命令
func (m *Model) handleCommand(cmd *Command) tea.Cmd {
	switch cmd.Type {
	case CommandTypeNew:
		m.newProject()
		return nil
	case CommandTypeDownload:
		format, err := api.ParseFormat(cmd.Format)
		if err != nil {
			return m.showToast(err.Error(), state.ToastError)
		}
		return m.download(format)
	case CommandTypeCopy:
		return m.copyCode()
	case CommandTypeSidebar:
		m.toggleSidebar()
		return nil
	case CommandTypeHelp:
		return m.showToast(helpText, state.ToastInfo)
	default:
		return m.showToast(fmt.Sprintf("Command '%s' is not supported", FormatCommandType(cmd.Type)), state.ToastError)
	}
}

func (m *Model) showToast(message string, typ state.ToastType) tea.Cmd {
	t := m.state.ShowToast(message, typ)
	m.relayout()
	return toastExpiry(t.ID)
}

func toastExpiry(id uint64) tea.Cmd {
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return ToastExpiredMsg{ID: id}
	})
}

func (m *Model) statusCmd() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
		defer cancel()
		status, err := backend.Status(ctx)
		return StatusMsg{Status: status, Err: err}
	}
}

// relayout 窗口、侧边栏或通知变化后重新分配区域
func (m *Model) relayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	header := 1
	if tv := m.toastView(); tv != "" {
		header += lipgloss.Height(tv)
	}
	m.ui.Resize(m.width, m.height, header, m.sidebarOpen)
	m.refreshChat()
}

func (m *Model) refreshChat() {
	m.ui.viewport.SetContent(m.formatMessages(m.ui.viewport.Width))
	m.ui.viewport.GotoBottom()
}

func (m *Model) View() string {
	if m.screen == screenLanding {
		return m.landingView()
	}
	if !m.ui.IsReady() {
		return "Initializing..."
	}

	l := m.ui.Layout()
	main := lipgloss.JoinVertical(lipgloss.Left, m.viewerView(l), m.chatView(l), m.promptView(l))
	body := main
	if l.SidebarWidth > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(l), main)
	}

	parts := []string{m.toolbarView()}
	if tv := m.toastView(); tv != "" {
		parts = append(parts, tv)
	}
	parts = append(parts, body, m.helpView())
	return strings.Join(parts, "\n")
}
