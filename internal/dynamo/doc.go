// Package dynamo provides the primitives shared by the simulation pipeline.
//
// The package defines the values that cross component boundaries:
//
//   - [State]: flattened vector of reals as written to the telemetry log
//   - [Tick]: one simulator step (per-body positions and wall-clock cost)
//   - [Sample]: a tick after the durable log has numbered it
//
// # Dimensionality
//
// Bodies are stored as [mgl64.Vec3]. In 2D worlds the z component is always
// zero and [Tick.Flatten] emits two reals per body instead of three:
//
//	tick := sim.Tick()
//	flat := tick.Flatten(nil) // len(flat) == tick.Dim*len(tick.Positions)
//
// # Thread Safety
//
// A Tick is immutable once produced; the producer never reuses its slices,
// so it can be handed to another goroutine without copying.
package dynamo
