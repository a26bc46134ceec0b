package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// sweep clamps every moving body at its earliest time of impact along the
// segment travelled this step, so fast bodies cannot tunnel through the
// ground or each other. Velocities are left to the contact solver.
func (w *World) sweep() {
	if w.ground != nil {
		for i := range w.bodies {
			b := &w.bodies[i]
			p0 := w.prevPos[i]
			d := b.pos.Sub(p0)
			if d.Len() == 0 {
				continue
			}
			lo, hi := w.groundBounds(b.spec.Radius)
			if t, ok := sweepBox(p0, d, lo, hi, w.dim); ok {
				b.pos = p0.Add(d.Mul(t))
			}
		}
	}

	for i := 0; i < len(w.bodies); i++ {
		for j := i + 1; j < len(w.bodies); j++ {
			a, b := &w.bodies[i], &w.bodies[j]
			da := a.pos.Sub(w.prevPos[i])
			db := b.pos.Sub(w.prevPos[j])
			t, ok := sweepSpheres(w.prevPos[i], da, w.prevPos[j], db, a.spec.Radius+b.spec.Radius)
			if !ok {
				continue
			}
			a.pos = w.prevPos[i].Add(da.Mul(t))
			b.pos = w.prevPos[j].Add(db.Mul(t))
		}
	}
}

// sweepBox intersects the segment p0 + t*d, t in [0,1], with the box
// [lo, hi]. Segments starting inside the box report no hit.
func sweepBox(p0, d, lo, hi mgl64.Vec3, dims int) (float64, bool) {
	inside := true
	for a := 0; a < dims; a++ {
		if p0[a] < lo[a] || p0[a] > hi[a] {
			inside = false
			break
		}
	}
	if inside {
		return 0, false
	}

	tmin, tmax := 0.0, 1.0
	for a := 0; a < dims; a++ {
		if math.Abs(d[a]) < 1e-12 {
			if p0[a] < lo[a] || p0[a] > hi[a] {
				return 0, false
			}
			continue
		}
		inv := 1 / d[a]
		t1 := (lo[a] - p0[a]) * inv
		t2 := (hi[a] - p0[a]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}

// sweepSpheres returns the first t in [0,1] where two spheres moving by da
// and db come within distance r. Pairs already overlapping are skipped.
func sweepSpheres(pa, da, pb, db mgl64.Vec3, r float64) (float64, bool) {
	s := pa.Sub(pb)
	v := da.Sub(db)

	c := s.Dot(s) - r*r
	if c <= 0 {
		return 0, false
	}
	a := v.Dot(v)
	if a < 1e-12 {
		return 0, false
	}
	half := s.Dot(v)
	if half >= 0 {
		return 0, false
	}
	disc := half*half - a*c
	if disc < 0 {
		return 0, false
	}
	t := (-half - math.Sqrt(disc)) / a
	if t < 0 || t > 1 {
		return 0, false
	}
	return t, true
}
