package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const groundIndex = -1

// contact pushes body a along normal, away from b (or the ground).
type contact struct {
	a, b    int
	normal  mgl64.Vec3
	depth   float64
	target  float64
	impulse float64
}

func (w *World) findContacts() {
	w.contacts = w.contacts[:0]

	if w.ground != nil {
		for i := range w.bodies {
			if c, ok := w.groundContact(i); ok {
				w.contacts = append(w.contacts, c)
			}
		}
	}

	for i := 0; i < len(w.bodies); i++ {
		for j := i + 1; j < len(w.bodies); j++ {
			if c, ok := w.pairContact(i, j); ok {
				w.contacts = append(w.contacts, c)
			}
		}
	}
}

func (w *World) groundContact(i int) (contact, bool) {
	b := &w.bodies[i]
	center := w.ground.center()
	h := w.ground.HalfExtents
	lo, hi := center.Sub(h), center.Add(h)

	var q mgl64.Vec3
	for a := 0; a < 3; a++ {
		q[a] = math.Max(lo[a], math.Min(b.pos[a], hi[a]))
	}

	d := b.pos.Sub(q)
	dist := d.Len()
	c := contact{a: i, b: groundIndex}
	if dist > 1e-12 {
		c.normal = d.Mul(1 / dist)
		c.depth = b.spec.Radius - dist
	} else {
		// centre inside the slab: push out through the top face
		c.normal = mgl64.Vec3{0, 1, 0}
		c.depth = b.spec.Radius + w.ground.Top - b.pos.Y()
	}
	if c.depth <= -w.opts.Slop {
		return contact{}, false
	}

	vn := b.vel.Dot(c.normal)
	c.target = w.bounce(vn, b.spec.Restitution, w.ground.Restitution)
	return c, true
}

func (w *World) pairContact(i, j int) (contact, bool) {
	a, b := &w.bodies[i], &w.bodies[j]
	d := a.pos.Sub(b.pos)
	dist := d.Len()
	c := contact{a: i, b: j, depth: a.spec.Radius + b.spec.Radius - dist}
	if c.depth <= -w.opts.Slop {
		return contact{}, false
	}
	if dist > 1e-12 {
		c.normal = d.Mul(1 / dist)
	} else {
		c.normal = mgl64.Vec3{1, 0, 0}
	}

	vn := a.vel.Sub(b.vel).Dot(c.normal)
	c.target = w.bounce(vn, a.spec.Restitution, b.spec.Restitution)
	return c, true
}

// bounce is the separating speed a contact should end with.
func (w *World) bounce(vn, ea, eb float64) float64 {
	if -vn <= w.opts.RestitutionThreshold {
		return 0
	}
	return -w.opts.Combine.Combine(ea, eb) * vn
}

func (w *World) solveVelocities() {
	for k := range w.contacts {
		c := &w.contacts[k]
		a := &w.bodies[c.a]

		rel := a.vel
		invSum := a.invMass
		var b *body
		if c.b != groundIndex {
			b = &w.bodies[c.b]
			rel = rel.Sub(b.vel)
			invSum += b.invMass
		}

		vn := rel.Dot(c.normal)
		lambda := (c.target - vn) / invSum
		acc := math.Max(c.impulse+lambda, 0)
		lambda = acc - c.impulse
		c.impulse = acc

		a.vel = a.vel.Add(c.normal.Mul(lambda * a.invMass))
		if b != nil {
			b.vel = b.vel.Sub(c.normal.Mul(lambda * b.invMass))
		}
		w.planar(a)
		if b != nil {
			w.planar(b)
		}
	}
}

func (w *World) correctPositions() {
	for _, c := range w.contacts {
		excess := c.depth - w.opts.Slop
		if excess <= 0 {
			continue
		}
		a := &w.bodies[c.a]
		invSum := a.invMass
		var b *body
		if c.b != groundIndex {
			b = &w.bodies[c.b]
			invSum += b.invMass
		}

		corr := w.opts.Baumgarte * excess / invSum
		a.pos = a.pos.Add(c.normal.Mul(corr * a.invMass))
		if b != nil {
			b.pos = b.pos.Sub(c.normal.Mul(corr * b.invMass))
		}
	}
}
