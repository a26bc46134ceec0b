package config

import "sort"

func body(name string, r, density, e float64, pos, vel []float64) BodyConfig {
	return BodyConfig{Name: name, Radius: r, Density: density, Restitution: e, Position: pos, Velocity: vel}
}

func scene(name string, modify func(c *Config)) *Config {
	c := DefaultConfig()
	c.Scene = name
	modify(c)
	return c
}

var Presets = map[string]*Config{
	"pair": DefaultConfig(),
	"collide": scene("collide", func(c *Config) {
		c.Bodies = []BodyConfig{
			body("left", 0.5, 1, 1, []float64{-3, 0.5}, []float64{4, 0}),
			body("right", 0.5, 1, 1, []float64{3, 0.5}, []float64{-4, 0}),
		}
	}),
	"fast": scene("fast", func(c *Config) {
		c.Bodies = []BodyConfig{
			body("bullet", 0.1, 5, 0.5, []float64{0, 8}, []float64{0, -300}),
			body("target", 0.5, 1, 0.5, []float64{4, 1}, []float64{0, 0}),
		}
	}),
	"stack": scene("stack", func(c *Config) {
		c.World.Iterations = 10
		c.Bodies = []BodyConfig{
			body("bottom", 0.5, 2, 0.1, []float64{0, 0.5}, nil),
			body("middle", 0.4, 1.5, 0.1, []float64{0, 1.4}, nil),
			body("top", 0.3, 1, 0.1, []float64{0, 2.1}, nil),
		}
	}),
	"pair3d": scene("pair3d", func(c *Config) {
		c.World.Dims = 3
		c.World.Gravity = []float64{0, -9.81, 0}
		c.World.Ground.HalfExtents = []float64{10, 0.1, 10}
		c.Bodies = []BodyConfig{
			body("left", 0.5, 1, 0.7, []float64{-2, 5, -1}, []float64{2, 0, 1}),
			body("right", 0.5, 1, 0.7, []float64{2, 8, 1}, []float64{-2, 0, -1}),
		}
	}),
	// chipmunk integrates bodies itself; Integrator is ignored and CCD
	// becomes substepping.
	"chipmunk": scene("chipmunk", func(c *Config) {
		c.Engine = "chipmunk"
		c.World.Iterations = 10
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	c, ok := Presets[name]
	if !ok {
		return nil
	}
	return c.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
