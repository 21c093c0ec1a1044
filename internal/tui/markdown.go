package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/russross/blackfriday/v2"
)

// 全局Markdown渲染器单例
var (
	globalMarkdownRenderer *MarkdownRenderer
	rendererOnce           sync.Once
)

// GetMarkdownRenderer 获取Markdown渲染器单例
func GetMarkdownRenderer() *MarkdownRenderer {
	rendererOnce.Do(func() {
		globalMarkdownRenderer = NewMarkdownRenderer()
	})
	return globalMarkdownRenderer
}

// MarkdownRenderer 把 Markdown 渲染成终端样式文本
// 只覆盖落地页用到的元素：标题、段落、列表、强调、行内代码、链接
type MarkdownRenderer struct {
	styles map[blackfriday.NodeType]lipgloss.Style
	h1     lipgloss.Style
}

// NewMarkdownRenderer 创建新的 Markdown 渲染器
func NewMarkdownRenderer() *MarkdownRenderer {
	r := &MarkdownRenderer{}
	r.initStyles()
	return r
}

// initStyles 初始化样式配置
func (r *MarkdownRenderer) initStyles() {
	r.h1 = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	r.styles = map[blackfriday.NodeType]lipgloss.Style{
		blackfriday.Heading: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		blackfriday.Strong:  lipgloss.NewStyle().Bold(true),
		blackfriday.Emph:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("141")),
		blackfriday.Code:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")),
		blackfriday.Link:    lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("39")),
		blackfriday.Text:    lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	}
}

// Render 渲染 Markdown 文本，width > 0 时按宽度折行
func (r *MarkdownRenderer) Render(markdown string, width int) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	root := blackfriday.New(blackfriday.WithExtensions(blackfriday.CommonExtensions)).Parse([]byte(markdown))

	var blocks []string
	for n := root.FirstChild; n != nil; n = n.Next {
		if block := r.renderBlock(n, width); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func (r *MarkdownRenderer) renderBlock(n *blackfriday.Node, width int) string {
	wrap := func(s string) string {
		if width <= 0 {
			return s
		}
		return lipgloss.NewStyle().Width(width).Render(s)
	}

	switch n.Type {
	case blackfriday.Heading:
		style := r.styles[blackfriday.Heading]
		if n.HeadingData.Level == 1 {
			style = r.h1
		}
		return wrap(style.Render(r.renderInline(n)))
	case blackfriday.Paragraph:
		return wrap(r.renderInline(n))
	case blackfriday.List:
		var items []string
		i := 1
		for item := n.FirstChild; item != nil; item = item.Next {
			bullet := "• "
			if n.ListFlags&blackfriday.ListTypeOrdered != 0 {
				bullet = fmt.Sprintf("%d. ", i)
			}
			i++
			var parts []string
			for child := item.FirstChild; child != nil; child = child.Next {
				parts = append(parts, r.renderInline(child))
			}
			items = append(items, wrap(bullet+strings.Join(parts, " ")))
		}
		return strings.Join(items, "\n")
	case blackfriday.CodeBlock:
		return r.styles[blackfriday.Code].Render(strings.TrimRight(string(n.Literal), "\n"))
	case blackfriday.HorizontalRule:
		w := width
		if w <= 0 {
			w = 40
		}
		return lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(strings.Repeat("─", w))
	default:
		return wrap(r.renderInline(n))
	}
}

// renderInline 渲染一个块内的行内节点
func (r *MarkdownRenderer) renderInline(block *blackfriday.Node) string {
	var sb strings.Builder
	var stack []blackfriday.NodeType

	block.Walk(func(n *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if n == block {
			return blackfriday.GoToNext
		}
		switch n.Type {
		case blackfriday.Strong, blackfriday.Emph, blackfriday.Link:
			if entering {
				stack = append(stack, n.Type)
			} else if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case blackfriday.Text:
			sb.WriteString(r.styled(string(n.Literal), stack))
		case blackfriday.Code:
			sb.WriteString(r.styles[blackfriday.Code].Render(string(n.Literal)))
		case blackfriday.Softbreak:
			sb.WriteString(" ")
		case blackfriday.Hardbreak:
			sb.WriteString("\n")
		}
		return blackfriday.GoToNext
	})
	return sb.String()
}

// styled 最内层的强调样式生效
func (r *MarkdownRenderer) styled(text string, stack []blackfriday.NodeType) string {
	if text == "" {
		return ""
	}
	if len(stack) == 0 {
		return r.styles[blackfriday.Text].Render(text)
	}
	return r.styles[stack[len(stack)-1]].Render(text)
}
