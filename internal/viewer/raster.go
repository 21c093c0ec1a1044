package viewer

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	backgroundTop    = color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	backgroundBottom = color.RGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}
)

// 光照固定在相机坐标系中，模型旋转时灯光跟随视角
var (
	keyLight  = mgl64.Vec3{0.45, 0.75, 0.5}.Normalize()
	fillLight = mgl64.Vec3{-0.7, 0.1, 0.4}.Normalize()
)

const (
	ambient   = 0.32
	keyGain   = 0.6
	fillGain  = 0.25
	nearPlane = 0.05
)

// Framebuffer 颜色与深度缓冲
// 深度存的是 1/z，数值越大越近，0 表示空
type Framebuffer struct {
	Width, Height int
	img           *image.RGBA
	depth         []float64
}

func NewFramebuffer(width, height int) *Framebuffer {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &Framebuffer{
		Width:  width,
		Height: height,
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		depth:  make([]float64, width*height),
	}
}

// Image 缓冲区图像，下一次 Render 会覆盖其内容
func (fb *Framebuffer) Image() *image.RGBA {
	return fb.img
}

func (fb *Framebuffer) At(x, y int) color.RGBA {
	return fb.img.RGBAAt(x, y)
}

// Clear 填充竖直渐变背景并清空深度
func (fb *Framebuffer) Clear() {
	for y := 0; y < fb.Height; y++ {
		t := 0.0
		if fb.Height > 1 {
			t = float64(y) / float64(fb.Height-1)
		}
		c := lerpColor(backgroundTop, backgroundBottom, t)
		for x := 0; x < fb.Width; x++ {
			fb.img.SetRGBA(x, y, c)
		}
	}
	for i := range fb.depth {
		fb.depth[i] = 0
	}
}

type projected struct {
	x, y, invZ float64
}

// Render 清屏后用平面着色绘制网格，mesh 为 nil 时只有背景
func Render(fb *Framebuffer, mesh *Mesh, cam Camera) {
	fb.Clear()
	if mesh == nil {
		return
	}

	view := cam.View()
	f := 1 / math.Tan(mgl64.DegToRad(FieldOfView)/2)
	aspect := float64(fb.Width) / float64(fb.Height)

	project := func(p mgl64.Vec3) projected {
		invZ := 1 / -p[2]
		return projected{
			x:    (f/aspect*p[0]*invZ + 1) * 0.5 * float64(fb.Width),
			y:    (1 - f*p[1]*invZ) * 0.5 * float64(fb.Height),
			invZ: invZ,
		}
	}

	for _, t := range mesh.Triangles {
		a := mgl64.TransformCoordinate(t.A, view)
		b := mgl64.TransformCoordinate(t.B, view)
		c := mgl64.TransformCoordinate(t.C, view)
		if -a[2] < nearPlane || -b[2] < nearPlane || -c[2] < nearPlane {
			continue
		}

		// 双面着色：法线总是朝向相机
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Len() == 0 {
			continue
		}
		n = n.Normalize()
		if n.Dot(a) > 0 {
			n = n.Mul(-1)
		}
		light := ambient + keyGain*math.Max(0, n.Dot(keyLight)) + fillGain*math.Max(0, n.Dot(fillLight))
		shaded := shade(t.Color, light)

		fb.fill(project(a), project(b), project(c), shaded)
	}
}

// fill 以像素中心采样填充三角形，深度测试通过才写入
func (fb *Framebuffer) fill(a, b, c projected, col color.RGBA) {
	area := edge(a, b, c.x, c.y)
	if area == 0 {
		return
	}

	minX := int(math.Max(0, math.Floor(math.Min(a.x, math.Min(b.x, c.x)))))
	maxX := int(math.Min(float64(fb.Width-1), math.Ceil(math.Max(a.x, math.Max(b.x, c.x)))))
	minY := int(math.Max(0, math.Floor(math.Min(a.y, math.Min(b.y, c.y)))))
	maxY := int(math.Min(float64(fb.Height-1), math.Ceil(math.Max(a.y, math.Max(b.y, c.y)))))

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			w0 := edge(b, c, px, py) / area
			w1 := edge(c, a, px, py) / area
			w2 := edge(a, b, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			depth := w0*a.invZ + w1*b.invZ + w2*c.invZ
			i := y*fb.Width + x
			if depth <= fb.depth[i] {
				continue
			}
			fb.depth[i] = depth
			fb.img.SetRGBA(x, y, col)
		}
	}
}

func edge(a, b projected, x, y float64) float64 {
	return (b.x-a.x)*(y-a.y) - (b.y-a.y)*(x-a.x)
}

func shade(c color.RGBA, light float64) color.RGBA {
	scale := func(v uint8) uint8 {
		return uint8(mgl64.Clamp(float64(v)*light, 0, 255))
	}
	return color.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: 0xff}
}

func lerpColor(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}
