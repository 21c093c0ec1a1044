package viewer

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// ErrEmptyModel 模型里没有可显示的三角形
var ErrEmptyModel = errors.New("模型不包含三角形")

// LoadGLB 解码二进制 glTF 并展开默认场景中的所有三角形
func LoadGLB(r io.Reader) (*Mesh, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("解析 GLB 失败: %w", err)
	}

	l := &loader{doc: doc, mesh: &Mesh{}}
	for _, root := range sceneRoots(doc) {
		if err := l.walk(root, mgl64.Ident4(), 0); err != nil {
			return nil, err
		}
	}
	if len(l.mesh.Triangles) == 0 {
		return nil, ErrEmptyModel
	}
	return l.mesh, nil
}

// maxDepth 防止循环引用的节点树
const maxDepth = 64

type loader struct {
	doc  *gltf.Document
	mesh *Mesh
}

// sceneRoots 默认场景的根节点；没有场景时把所有节点都当作根
func sceneRoots(doc *gltf.Document) []int {
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			idx = *doc.Scene
		}
		return doc.Scenes[idx].Nodes
	}
	roots := make([]int, len(doc.Nodes))
	for i := range doc.Nodes {
		roots[i] = i
	}
	return roots
}

func (l *loader) walk(idx int, parent mgl64.Mat4, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("节点层级过深: %d", idx)
	}
	if idx < 0 || idx >= len(l.doc.Nodes) {
		return fmt.Errorf("节点索引越界: %d", idx)
	}
	node := l.doc.Nodes[idx]
	world := parent.Mul4(nodeMatrix(node))

	if node.Mesh != nil {
		if err := l.addMesh(*node.Mesh, world); err != nil {
			return err
		}
	}
	for _, child := range node.Children {
		if err := l.walk(child, world, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) addMesh(idx int, world mgl64.Mat4) error {
	if idx < 0 || idx >= len(l.doc.Meshes) {
		return fmt.Errorf("网格索引越界: %d", idx)
	}
	for _, prim := range l.doc.Meshes[idx].Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok || posIdx >= len(l.doc.Accessors) {
			continue
		}

		positions, err := modeler.ReadPosition(l.doc, l.doc.Accessors[posIdx], nil)
		if err != nil {
			return fmt.Errorf("读取顶点失败: %w", err)
		}

		var indices []uint32
		if prim.Indices != nil && *prim.Indices < len(l.doc.Accessors) {
			indices, err = modeler.ReadIndices(l.doc, l.doc.Accessors[*prim.Indices], nil)
			if err != nil {
				return fmt.Errorf("读取索引失败: %w", err)
			}
		} else {
			indices = make([]uint32, len(positions))
			for i := range indices {
				indices[i] = uint32(i)
			}
		}

		c := l.materialColor(prim.Material)
		vertex := func(i uint32) mgl64.Vec3 {
			p := positions[i]
			return mgl64.TransformCoordinate(mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}, world)
		}
		for i := 0; i+2 < len(indices); i += 3 {
			a, b, cc := indices[i], indices[i+1], indices[i+2]
			if int(a) >= len(positions) || int(b) >= len(positions) || int(cc) >= len(positions) {
				return fmt.Errorf("顶点索引越界: %d", i)
			}
			l.mesh.Triangles = append(l.mesh.Triangles, Triangle{
				A: vertex(a), B: vertex(b), C: vertex(cc), Color: c,
			})
		}
	}
	return nil
}

func (l *loader) materialColor(idx *int) color.RGBA {
	if idx == nil || *idx < 0 || *idx >= len(l.doc.Materials) {
		return DefaultColor
	}
	pbr := l.doc.Materials[*idx].PBRMetallicRoughness
	if pbr == nil || pbr.BaseColorFactor == nil {
		return DefaultColor
	}
	f := *pbr.BaseColorFactor
	return color.RGBA{
		R: uint8(mgl64.Clamp(f[0], 0, 1) * 255),
		G: uint8(mgl64.Clamp(f[1], 0, 1) * 255),
		B: uint8(mgl64.Clamp(f[2], 0, 1) * 255),
		A: 0xff,
	}
}

// nodeMatrix 节点的局部变换；有效的 matrix 优先，否则由 T*R*S 组合
func nodeMatrix(n *gltf.Node) mgl64.Mat4 {
	if m := mgl64.Mat4(n.MatrixOrDefault()); m != mgl64.Ident4() {
		return m
	}
	t, r, s := n.Translation, n.RotationOrDefault(), n.ScaleOrDefault()
	rotation := mgl64.Quat{W: r[3], V: mgl64.Vec3{r[0], r[1], r[2]}}.Normalize().Mat4()
	return mgl64.Translate3D(t[0], t[1], t[2]).
		Mul4(rotation).
		Mul4(mgl64.Scale3D(s[0], s[1], s[2]))
}
