package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// landingCopy 落地页文案
const landingCopy = `# CadQuery GenAI

*AI-Powered 3D Modeling*

## Turn Ideas into Parametric 3D Models

Describe your shape in plain English and let our AI generate precise CadQuery code.
Visualize, iterate, and export for manufacturing in seconds.

- **Code-Based Precision**: generates valid Python/CadQuery code that you can inspect, modify, and reuse in your own pipelines.
- **Instant Visualization**: see your model render right in the terminal. Rotate, zoom, and inspect every detail.
- **Export Ready**: download your designs as STL or GLTF files ready for 3D printing or CNC machining.
`

const landingMaxWidth = 72

// landingView 落地页
func (m *Model) landingView() string {
	width := min(m.width-4, landingMaxWidth)
	if width < 20 {
		width = 20
	}

	body := GetMarkdownRenderer().Render(landingCopy, width)
	actions := lipgloss.JoinHorizontal(lipgloss.Top,
		primaryStyle.Render("Enter  Start Modeling"),
		"  ",
		buttonStyle.Render("d  Documentation"),
		"  ",
		buttonStyle.Render("q  Quit"),
	)
	footer := mutedStyle.Render("Open Source Software.")

	content := strings.Join([]string{body, "", actions, "", footer}, "\n")
	if m.width <= 0 || m.height <= 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}
