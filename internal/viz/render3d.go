package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera orients world space for an orthographic view. Yaw turns about the
// vertical y axis, Pitch tilts about x, Roll spins about the view axis.
type Camera struct {
	Yaw, Pitch, Roll float64
	Zoom             float64
}

// IsometricCamera looks down the (1,1,1) diagonal.
func IsometricCamera() *Camera {
	return &Camera{Yaw: -math.Pi / 4, Pitch: math.Asin(math.Tan(math.Pi / 6)), Zoom: 1}
}

func (c *Camera) RotateX(a float64) { c.Pitch += a }
func (c *Camera) RotateY(a float64) { c.Yaw += a }
func (c *Camera) RotateZ(a float64) { c.Roll += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

func (c *Camera) Rotation() mgl64.Mat3 {
	return mgl64.Rotate3DZ(c.Roll).Mul3(mgl64.Rotate3DX(c.Pitch)).Mul3(mgl64.Rotate3DY(c.Yaw))
}

func (c *Camera) RotatePoint(p mgl64.Vec3) mgl64.Vec3 {
	return c.Rotation().Mul3x1(p)
}

// ProjectOrtho drops the depth of the rotated point. The result is in
// world units scaled by Zoom.
func (c *Camera) ProjectOrtho(p mgl64.Vec3) (u, v float64) {
	zoom := c.Zoom
	if zoom == 0 {
		zoom = 1
	}
	r := c.RotatePoint(p).Mul(zoom)
	return r.X(), r.Y()
}

// Project maps p to canvas sub-pixels around center, scale pixels per world
// unit. It reports whether the point lands on a sw x sh canvas.
func (c *Camera) Project(p, center mgl64.Vec3, scale float64, sw, sh int) (int, int, bool) {
	u, v := c.ProjectOrtho(p.Sub(center))
	sx := int(math.Round(u*scale)) + sw/2
	sy := int(math.Round(-v*scale)) + sh/2
	return sx, sy, sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

// BoxAxes returns the three edges of the bounding box that meet at its
// minimum corner, in x, y, z order.
func BoxAxes(xr, yr, zr Range) [3][2]mgl64.Vec3 {
	o := mgl64.Vec3{xr.Min, yr.Min, zr.Min}
	return [3][2]mgl64.Vec3{
		{o, {xr.Max, yr.Min, zr.Min}},
		{o, {xr.Min, yr.Max, zr.Min}},
		{o, {xr.Min, yr.Min, zr.Max}},
	}
}
