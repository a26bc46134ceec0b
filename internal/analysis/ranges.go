package analysis

import "github.com/san-kum/tickstream/internal/viz"

// SafeRange spans every finite value. Empty input gives [0,1] and constant
// input gives value ± 0.5, so axes never collapse.
func SafeRange(values []float64) viz.Range {
	return viz.RangeOf(values)
}
