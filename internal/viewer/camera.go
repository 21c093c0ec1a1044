package viewer

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// FieldOfView 垂直视场角（度）
	FieldOfView = 50.0

	defaultYaw      = 35.0
	defaultPitch    = 25.0
	defaultDistance = 3.2

	minDistance = 1.5
	maxDistance = 12.0
	maxPitch    = 85.0
)

// Camera 绕原点旋转的轨道相机，模型已被摆放到单位半径
type Camera struct {
	Yaw      float64 // 绕 Y 轴，度
	Pitch    float64 // 俯仰，度
	Distance float64
}

// DefaultCamera 初始视角
func DefaultCamera() Camera {
	return Camera{Yaw: defaultYaw, Pitch: defaultPitch, Distance: defaultDistance}
}

// Orbit 按角度增量旋转，俯仰限制在 ±85°
func (c *Camera) Orbit(dYaw, dPitch float64) {
	c.Yaw = math.Mod(c.Yaw+dYaw, 360)
	c.Pitch = mgl64.Clamp(c.Pitch+dPitch, -maxPitch, maxPitch)
}

// Zoom factor < 1 拉近，> 1 拉远
func (c *Camera) Zoom(factor float64) {
	if factor <= 0 {
		return
	}
	c.Distance = mgl64.Clamp(c.Distance*factor, minDistance, maxDistance)
}

func (c *Camera) Reset() {
	*c = DefaultCamera()
}

// Eye 相机在世界坐标中的位置
func (c Camera) Eye() mgl64.Vec3 {
	yaw, pitch := mgl64.DegToRad(c.Yaw), mgl64.DegToRad(c.Pitch)
	return mgl64.Vec3{
		c.Distance * math.Cos(pitch) * math.Sin(yaw),
		c.Distance * math.Sin(pitch),
		c.Distance * math.Cos(pitch) * math.Cos(yaw),
	}
}

// View 右手坐标系的观察矩阵，相机看向 -Z
func (c Camera) View() mgl64.Mat4 {
	return mgl64.LookAtV(c.Eye(), mgl64.Vec3{}, mgl64.Vec3{0, 1, 0})
}
