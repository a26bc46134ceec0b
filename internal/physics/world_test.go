package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tickstream/internal/dynamo"
)

const dt = 1.0 / 60.0

func newWorld(t *testing.T, dim int, opts Options) *World {
	t.Helper()
	w, err := NewWorld(dim, opts)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	return w
}

func TestNewWorldRejectsDim(t *testing.T) {
	if _, err := NewWorld(4, DefaultOptions()); !errors.Is(err, dynamo.ErrUnsupportedDim) {
		t.Errorf("expected ErrUnsupportedDim, got %v", err)
	}
}

func TestBallBouncesOffGround(t *testing.T) {
	w := newWorld(t, 2, DefaultOptions())
	w.SetGravity(mgl64.Vec3{0, -9.81, 0})
	g := DefaultGround(2)
	g.Restitution = 0.8
	if err := w.AddGround(g); err != nil {
		t.Fatal(err)
	}
	h, err := w.AddBody(BodySpec{Radius: 0.5, Density: 1, Restitution: 0.8, Position: mgl64.Vec3{0, 3, 0}})
	if err != nil {
		t.Fatal(err)
	}

	prevY := w.Position(h).Y()
	prevV := w.Velocity(h).Y()
	for i := 0; i < 600; i++ {
		w.Step(dt)
		v := w.Velocity(h).Y()
		y := w.Position(h).Y()
		if v > 0 && prevV < 0 {
			ratio := v / -prevV
			if ratio < 0.7 || ratio > 0.9 {
				t.Errorf("bounce ratio %.3f outside [0.7, 0.9]", ratio)
			}
			if y < 0.4 {
				t.Errorf("ball sank into ground: y=%.3f", y)
			}
			return
		}
		if y > prevY {
			t.Fatalf("height increased before first contact at step %d", i)
		}
		prevY, prevV = y, v
	}
	t.Fatal("ball never bounced")
}

func TestBallComesToRest(t *testing.T) {
	w := newWorld(t, 2, DefaultOptions())
	w.SetGravity(mgl64.Vec3{0, -9.81, 0})
	if err := w.AddGround(DefaultGround(2)); err != nil {
		t.Fatal(err)
	}
	h, _ := w.AddBody(BodySpec{Radius: 0.5, Density: 1, Position: mgl64.Vec3{0, 0.5, 0}})

	for i := 0; i < 300; i++ {
		w.Step(dt)
	}
	y := w.Position(h).Y()
	if y < 0.45 || y > 0.51 {
		t.Errorf("resting height = %.4f, expected near 0.5", y)
	}
	if v := math.Abs(w.Velocity(h).Y()); v > 0.5 {
		t.Errorf("resting body still moving: vy=%.3f", v)
	}
}

func TestHeadOnElasticSwap(t *testing.T) {
	w := newWorld(t, 2, DefaultOptions())
	a, _ := w.AddBody(BodySpec{Radius: 0.5, Density: 1, Restitution: 1, Position: mgl64.Vec3{-2, 0, 0}, Velocity: mgl64.Vec3{3, 0, 0}})
	b, _ := w.AddBody(BodySpec{Radius: 0.5, Density: 1, Restitution: 1, Position: mgl64.Vec3{2, 0, 0}, Velocity: mgl64.Vec3{-3, 0, 0}})

	for i := 0; i < 120; i++ {
		w.Step(dt)
	}

	va, vb := w.Velocity(a), w.Velocity(b)
	if math.Abs(va.X()+3) > 1e-6 || math.Abs(vb.X()-3) > 1e-6 {
		t.Errorf("velocities not swapped: a=%v b=%v", va, vb)
	}
	p := va.Mul(w.Mass(a)).Add(vb.Mul(w.Mass(b)))
	if p.Len() > 1e-9 {
		t.Errorf("momentum not conserved: %v", p)
	}
	if d := w.Position(b).Sub(w.Position(a)).Len(); d < 1-0.01 {
		t.Errorf("bodies overlap after collision: distance %.3f", d)
	}
}

func TestContinuousCollisionStopsTunnelling(t *testing.T) {
	tests := []struct {
		name   string
		ccd    bool
		tunnel bool
	}{
		{"ccd on", true, false},
		{"ccd off", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.CCD = tt.ccd
			w := newWorld(t, 2, opts)
			if err := w.AddGround(DefaultGround(2)); err != nil {
				t.Fatal(err)
			}
			h, _ := w.AddBody(BodySpec{Radius: 0.1, Density: 1, Position: mgl64.Vec3{0, 1, 0}, Velocity: mgl64.Vec3{0, -500, 0}})
			w.Step(dt)

			y := w.Position(h).Y()
			if tunnelled := y < -0.2; tunnelled != tt.tunnel {
				t.Errorf("y = %.3f, tunnelled = %v, want %v", y, tunnelled, tt.tunnel)
			}
		})
	}
}

func TestSweepSpheres(t *testing.T) {
	tests := []struct {
		name   string
		pa, da mgl64.Vec3
		pb, db mgl64.Vec3
		hit    bool
		toi    float64
	}{
		{"approaching", mgl64.Vec3{-2, 0, 0}, mgl64.Vec3{4, 0, 0}, mgl64.Vec3{2, 0, 0}, mgl64.Vec3{-4, 0, 0}, true, 0.375},
		{"separating", mgl64.Vec3{-2, 0, 0}, mgl64.Vec3{-4, 0, 0}, mgl64.Vec3{2, 0, 0}, mgl64.Vec3{4, 0, 0}, false, 0},
		{"overlapping", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0.5, 0, 0}, mgl64.Vec3{}, false, 0},
		{"miss", mgl64.Vec3{-2, 5, 0}, mgl64.Vec3{4, 0, 0}, mgl64.Vec3{2, 0, 0}, mgl64.Vec3{}, false, 0},
		{"too slow", mgl64.Vec3{-2, 0, 0}, mgl64.Vec3{0.5, 0, 0}, mgl64.Vec3{2, 0, 0}, mgl64.Vec3{}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toi, hit := sweepSpheres(tt.pa, tt.da, tt.pb, tt.db, 1)
			if hit != tt.hit {
				t.Fatalf("hit = %v, want %v", hit, tt.hit)
			}
			if hit && math.Abs(toi-tt.toi) > 1e-9 {
				t.Errorf("toi = %v, want %v", toi, tt.toi)
			}
		})
	}
}

func TestSweepBoxStartingInside(t *testing.T) {
	lo, hi := mgl64.Vec3{-1, -1, 0}, mgl64.Vec3{1, 1, 0}
	if _, hit := sweepBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, -5, 0}, lo, hi, 2); hit {
		t.Error("segment starting inside box should not report a hit")
	}
	toi, hit := sweepBox(mgl64.Vec3{0, 3, 0}, mgl64.Vec3{0, -4, 0}, lo, hi, 2)
	if !hit || math.Abs(toi-0.5) > 1e-9 {
		t.Errorf("toi = %v hit = %v, want 0.5 true", toi, hit)
	}
}

func TestNonFiniteStepRestoresBody(t *testing.T) {
	w := newWorld(t, 2, DefaultOptions())
	h, _ := w.AddBody(BodySpec{Radius: 0.5, Density: 1, Position: mgl64.Vec3{1, 2, 0}, Velocity: mgl64.Vec3{1, 0, 0}})
	w.SetGravity(mgl64.Vec3{math.NaN(), 0, 0})
	w.Step(dt)

	if got := w.Position(h); got != (mgl64.Vec3{1, 2, 0}) {
		t.Errorf("position not restored: %v", got)
	}
	if got := w.Velocity(h); got != (mgl64.Vec3{}) {
		t.Errorf("velocity not zeroed: %v", got)
	}
	if w.Degenerate() != 1 {
		t.Errorf("Degenerate() = %d, want 1", w.Degenerate())
	}
}

func TestPlanarWorldKeepsZeroDepth(t *testing.T) {
	w := newWorld(t, 2, DefaultOptions())
	w.SetGravity(mgl64.Vec3{0, -9.81, 5})
	h, _ := w.AddBody(BodySpec{Radius: 0.5, Density: 1, Position: mgl64.Vec3{0, 5, 0}})
	for i := 0; i < 10; i++ {
		w.Step(dt)
	}
	if z := w.Position(h).Z(); z != 0 {
		t.Errorf("z = %v in a 2D world", z)
	}
}

func TestSpatialWorldMovesInDepth(t *testing.T) {
	w := newWorld(t, 3, DefaultOptions())
	w.SetGravity(mgl64.Vec3{0, -9.81, 0})
	if err := w.AddGround(DefaultGround(3)); err != nil {
		t.Fatal(err)
	}
	h, _ := w.AddBody(BodySpec{Radius: 0.5, Density: 1, Position: mgl64.Vec3{0, 2, 0}, Velocity: mgl64.Vec3{0, 0, 1}})
	for i := 0; i < 60; i++ {
		w.Step(dt)
	}
	p := w.Position(h)
	if math.Abs(p.Z()-1) > 0.05 {
		t.Errorf("z = %.3f, expected about 1", p.Z())
	}
	if p.Y() < 0.4 {
		t.Errorf("ball fell through 3D ground: y=%.3f", p.Y())
	}
}

func TestBodySpecValidate(t *testing.T) {
	tests := []struct {
		name string
		spec BodySpec
		dim  int
		want error
	}{
		{"ok", BodySpec{Radius: 1, Density: 1}, 2, nil},
		{"zero radius", BodySpec{Density: 1}, 2, dynamo.ErrInvalidGeometry},
		{"restitution", BodySpec{Radius: 1, Density: 1, Restitution: 1.5}, 2, dynamo.ErrInvalidGeometry},
		{"nan position", BodySpec{Radius: 1, Density: 1, Position: mgl64.Vec3{math.NaN(), 0, 0}}, 2, dynamo.ErrInvalidState},
		{"z in 2D", BodySpec{Radius: 1, Density: 1, Position: mgl64.Vec3{0, 0, 1}}, 2, dynamo.ErrDimensionMismatch},
		{"z in 3D", BodySpec{Radius: 1, Density: 1, Position: mgl64.Vec3{0, 0, 1}}, 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate(tt.dim)
			if tt.want == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCombineRule(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"average", 0.5},
		{"min", 0.2},
		{"max", 0.8},
		{"multiply", 0.16},
	}
	for _, tt := range tests {
		r, err := ParseCombineRule(tt.in)
		if err != nil {
			t.Fatalf("ParseCombineRule(%q): %v", tt.in, err)
		}
		if got := r.Combine(0.2, 0.8); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s: got %v, want %v", tt.in, got, tt.want)
		}
		if r.String() != tt.in {
			t.Errorf("String() = %q, want %q", r.String(), tt.in)
		}
	}
	if _, err := ParseCombineRule("bogus"); err == nil {
		t.Error("expected error for unknown rule")
	}
}

func TestSecondGroundRejected(t *testing.T) {
	w := newWorld(t, 2, DefaultOptions())
	if err := w.AddGround(DefaultGround(2)); err != nil {
		t.Fatal(err)
	}
	if err := w.AddGround(DefaultGround(2)); !errors.Is(err, ErrGroundExists) {
		t.Errorf("expected ErrGroundExists, got %v", err)
	}
}
