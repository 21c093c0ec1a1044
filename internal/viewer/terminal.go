package viewer

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// halfBlock 上半格用前景色，下半格用背景色，一个字符格显示两行像素
const halfBlock = "▀"

// renderCells 把帧缓冲转成终端字符，缓冲高度应为行数的两倍
// 同色的相邻字符格合并成一次样式输出
func renderCells(fb *Framebuffer) string {
	rows := fb.Height / 2
	var sb strings.Builder
	sb.Grow(fb.Width * rows * 4)

	for row := 0; row < rows; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		x := 0
		for x < fb.Width {
			top, bottom := fb.At(x, row*2), fb.At(x, row*2+1)
			run := 1
			for x+run < fb.Width && fb.At(x+run, row*2) == top && fb.At(x+run, row*2+1) == bottom {
				run++
			}
			style := lipgloss.NewStyle().Foreground(hex(top)).Background(hex(bottom))
			sb.WriteString(style.Render(strings.Repeat(halfBlock, run)))
			x += run
		}
	}
	return sb.String()
}

func hex(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}
