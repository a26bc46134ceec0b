// Package physics provides the rigid-body engines behind the simulator.
//
// Every engine implements [Engine], a deliberately narrow surface: set
// gravity, add one static ground and a handful of dynamic spheres, step by a
// fixed dt and read positions back by handle.
//
//   - [World]: native engine for 2D and 3D worlds with restitution,
//     sequential-impulse contacts and continuous collision detection
//   - [Chipmunk]: 2D engine backed by Chipmunk2D
//
// # Degenerate States
//
// Stepping never fails. When the contact solver does not converge within its
// iteration budget the partially resolved state is kept. A body whose
// position or velocity turns NaN/Inf is restored to its pre-step state with
// zero velocity:
//
//	w, _ := physics.NewWorld(2, physics.DefaultOptions())
//	w.SetGravity(mgl64.Vec3{0, -9.81, 0})
//	w.AddGround(physics.DefaultGround(2))
//	h, _ := w.AddBody(physics.BodySpec{Radius: 0.5, Density: 1, Restitution: 0.8, Position: mgl64.Vec3{0, 5, 0}})
//	w.Step(1.0 / 60.0)
//	pos := w.Position(h)
package physics
