package viewer

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultColor 没有材质时的模型颜色
var DefaultColor = color.RGBA{R: 0x9c, G: 0xa3, B: 0xaf, A: 0xff}

// Triangle 世界坐标下的三角形
type Triangle struct {
	A, B, C mgl64.Vec3
	Color   color.RGBA
}

// Mesh 扁平化后的三角形集合
type Mesh struct {
	Triangles []Triangle
}

// Bounds 轴对齐包围盒，空网格返回 false
func (m *Mesh) Bounds() (min, max mgl64.Vec3, ok bool) {
	if m == nil || len(m.Triangles) == 0 {
		return mgl64.Vec3{}, mgl64.Vec3{}, false
	}
	min = mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	max = mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, t := range m.Triangles {
		for _, p := range [3]mgl64.Vec3{t.A, t.B, t.C} {
			for i := 0; i < 3; i++ {
				min[i] = math.Min(min[i], p[i])
				max[i] = math.Max(max[i], p[i])
			}
		}
	}
	return min, max, true
}

// Staged 以包围盒中心为原点、包围球半径为 1 重新摆放模型
// 原网格不变
func (m *Mesh) Staged() *Mesh {
	min, max, ok := m.Bounds()
	if !ok {
		return &Mesh{}
	}
	center := min.Add(max).Mul(0.5)
	radius := max.Sub(min).Len() / 2
	scale := 1.0
	if radius > 0 {
		scale = 1 / radius
	}

	out := &Mesh{Triangles: make([]Triangle, len(m.Triangles))}
	for i, t := range m.Triangles {
		out.Triangles[i] = Triangle{
			A:     t.A.Sub(center).Mul(scale),
			B:     t.B.Sub(center).Mul(scale),
			C:     t.C.Sub(center).Mul(scale),
			Color: t.Color,
		}
	}
	return out
}
