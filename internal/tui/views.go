package tui

import (
	"fmt"
	"strings"

	"github.com/Zacy-Sokach/cadgen/internal/state"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const (
	codePreviewLimit = 100
	toastMaxWidth    = 80

	emptyHistoryText = "No history yet. Start modeling!"
	sendLabel        = "Send"
	footnoteText     = "AI can make mistakes. Review the generated code and model."
)

// codePreview 代码前 100 个字符加省略号
func codePreview(code string) string {
	runes := []rune(code)
	if len(runes) > codePreviewLimit {
		runes = runes[:codePreviewLimit]
	}
	return string(runes) + "..."
}

// sidebarLabel 侧边栏中一条消息的标题
func sidebarLabel(msg state.Message) string {
	if msg.Role == state.RoleModel && msg.Content == "" {
		return "Generated Model"
	}
	return msg.Content
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// sidebarView 会话历史，超出高度时保留最近的条目
func (m *Model) sidebarView(l Layout) string {
	w := l.SidebarWidth
	header := []string{
		titleStyle.Render("▣ GenAI"),
		"",
		primaryStyle.Render(runewidth.Truncate("+ New Project  ^N", w, "…")),
		"",
		mutedStyle.Render("SESSION HISTORY"),
	}

	var entries []string
	messages := m.state.Messages()
	if len(messages) == 0 {
		entries = append(entries, mutedStyle.Width(w).Align(lipgloss.Center).Render(emptyHistoryText))
	}
	for _, msg := range messages {
		label := runewidth.Truncate("▸ "+oneLine(sidebarLabel(msg)), w, "…")
		if msg.Role == state.RoleUser {
			entries = append(entries, lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Render(label))
		} else {
			entries = append(entries, lipgloss.NewStyle().Foreground(colorAccent).Render(label))
		}
	}

	room := l.SidebarHeight - len(header)
	if room < 0 {
		room = 0
	}
	if len(entries) > room {
		entries = entries[len(entries)-room:]
	}

	content := strings.Join(append(header, entries...), "\n")
	return paneStyle.Width(w).Height(l.SidebarHeight).Render(content)
}

// toolbarView 标题栏，有会话时显示下载按钮
func (m *Model) toolbarView() string {
	left := titleStyle.Render("CadQuery GenAI")
	if Version != "" {
		left += mutedStyle.Render(" " + Version)
	}
	var right string
	if id, ok := m.state.Session(); ok {
		right = lipgloss.JoinHorizontal(lipgloss.Top,
			mutedStyle.Render(fmt.Sprintf("session %s  ", id)),
			buttonStyle.Render("⤓ STL ^S"),
			" ",
			buttonStyle.Render("⤓ GLTF ^G"),
		)
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// toastView 当前通知，没有时为空
func (m *Model) toastView() string {
	toast, ok := m.state.Toast()
	if !ok {
		return ""
	}

	width := min(m.width-4, toastMaxWidth)
	if width < 20 {
		width = 20
	}

	title, border := "Info", colorInfo
	if toast.Type == state.ToastError {
		title, border = "Error", colorError
	}
	heading := lipgloss.NewStyle().Bold(true).Foreground(border).Render("● "+title) +
		mutedStyle.Render("  (Esc to dismiss)")
	body := lipgloss.NewStyle().Width(width).Foreground(lipgloss.Color("252")).Render(toast.Message)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Render(heading + "\n" + body)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, box)
}

// viewerView 三维查看区，请求进行中时覆盖提示
func (m *Model) viewerView(l Layout) string {
	var content string
	if m.state.InFlight() {
		overlay := overlayStyle.Render(m.ui.spinner.View() + " Generating Model...")
		content = lipgloss.Place(l.MainWidth, l.ViewerHeight, lipgloss.Center, lipgloss.Center, overlay)
	} else {
		content = m.viewer.View(l.MainWidth, l.ViewerHeight)
	}

	style := paneStyle
	if m.focus == focusViewer {
		style = focusedPaneStyle
	}
	return style.Width(l.MainWidth).Height(l.ViewerHeight).Render(content)
}

// formatMessages 对话记录
func (m *Model) formatMessages(width int) string {
	messages := m.state.Messages()
	wrap := lipgloss.NewStyle().Width(width)

	if len(messages) == 0 && !m.state.InFlight() {
		hint := mutedStyle.Render("Start by describing a shape...") + "\n" +
			mutedStyle.Italic(true).Render(`"Create a 10mm cube."`)
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, hint)
	}

	var sb strings.Builder
	sb.Grow(len(messages) * 200)
	for _, msg := range messages {
		switch msg.Role {
		case state.RoleUser:
			sb.WriteString(wrap.Render(userStyle.Render("You: ") + msg.Content))
		default:
			content := modelStyle.Render("AI: ") + msg.Content
			if strings.HasPrefix(msg.Content, state.ErrorPrefix) {
				content = modelStyle.Render("AI: ") + errorStyle.Render(msg.Content)
			}
			sb.WriteString(wrap.Render(content))
			if msg.Code != "" {
				sb.WriteString("\n")
				sb.WriteString(codeStyle.Width(width).Render(codePreview(msg.Code)))
			}
		}
		sb.WriteString("\n\n")
	}
	if m.state.InFlight() {
		sb.WriteString(m.ui.spinner.View() + " Generating...")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m *Model) chatView(l Layout) string {
	return paneStyle.Width(l.MainWidth).Height(l.ChatHeight).Render(m.ui.viewport.View())
}

// promptView 输入框和发送按钮，按钮只在可以发送时高亮
func (m *Model) promptView(l Layout) string {
	button := disabledStyle.Render(sendLabel)
	if m.canSend() {
		button = primaryStyle.Render(sendLabel)
	}

	style := paneStyle
	if m.focus == focusPrompt && !m.state.InFlight() {
		style = focusedPaneStyle
	}
	return style.Width(l.MainWidth).Render(lipgloss.JoinHorizontal(lipgloss.Top, m.ui.textarea.View(), " ", button))
}

func (m *Model) helpView() string {
	help := "Enter: send • Tab: orbit view • ^B: sidebar • ^N: new • ^S/^G: STL/GLTF • ^Y: copy code • ^C: quit"
	if m.focus == focusViewer {
		help = "←→↑↓/hjkl: orbit • +/-: zoom • r: reset • Tab/Esc: back to prompt"
	}
	if m.state.InFlight() {
		help = "Generating model... " + help
	}
	footnote := lipgloss.PlaceHorizontal(m.width, lipgloss.Center, mutedStyle.Render(footnoteText))
	return footnote + "\n" + mutedStyle.Render(runewidth.Truncate(help, m.width, "…"))
}
