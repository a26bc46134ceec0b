package analysis

import (
	"errors"
	"strings"
	"testing"

	"github.com/san-kum/tickstream/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogTiming(t *testing.T) {
	log := "1\t3\t[0.1,0.2,0.3]\t1\n2\t3\t[0.1,0.2,0.3]\t2\n3\t3\t[0.1,0.2,0.3]\t3\n"
	ds, err := ParseLog(strings.NewReader(log), Options{})
	require.NoError(t, err)

	assert.Equal(t, []TimingPoint{{1, 1}, {2, 2}, {3, 3}}, ds.Timing)
	assert.Equal(t, 3, ds.Untracked, "length-3 positions do not fan out to two bodies")
	assert.Equal(t, 0, ds.Dim)
	assert.Empty(t, ds.Trajectories[0].Points)
	assert.Equal(t, 0, ds.Skipped())
}

func TestParseLogPlanarFanOut(t *testing.T) {
	log := "1\t4\t[0,1,2,3]\t5\n2\t4\t[4,5,6,7]\t6\n"
	ds, err := ParseLog(strings.NewReader(log), Options{})
	require.NoError(t, err)

	require.Len(t, ds.Trajectories, 2)
	assert.Equal(t, 2, ds.Dim)
	assert.Equal(t, [][]float64{{0, 1}, {4, 5}}, ds.Trajectories[0].Points)
	assert.Equal(t, [][]float64{{2, 3}, {6, 7}}, ds.Trajectories[1].Points)
	assert.Equal(t, []float64{0, 4}, ds.Trajectories[0].Coord(0))
}

func TestParseLogSpatialFanOut(t *testing.T) {
	log := "1\t6\t[0,1,2,3,4,5]\t5\n"
	ds, err := ParseLog(strings.NewReader(log), Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Dim)
	assert.Equal(t, [][]float64{{0, 1, 2}}, ds.Trajectories[0].Points)
	assert.Equal(t, [][]float64{{3, 4, 5}}, ds.Trajectories[1].Points)
}

func TestParseLogFirstDimensionWins(t *testing.T) {
	log := "1\t4\t[0,1,2,3]\t5\n2\t6\t[0,1,2,3,4,5]\t5\n3\t4\t[4,5,6,7]\t5\n"
	ds, err := ParseLog(strings.NewReader(log), Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Dim)
	assert.Equal(t, 1, ds.Mismatched)
	assert.Len(t, ds.Trajectories[0].Points, 2)
	assert.Len(t, ds.Timing, 3)
}

func TestParseLogSkipsMalformed(t *testing.T) {
	log := strings.Join([]string{
		"1\t4\t[0,1,2,3]\t5",
		"garbage",
		"2\t4\t[0,1,2,3]",
		"x\t4\t[0,1,2,3]\t5",
		"3\t4\t[0,1,2\t5",
		"4\t4\t[0,1,2,3]\tslow",
		"5\t5\t[0,1,2,3]\t5",
		"",
		"6\t4\t[0,1,2,3]\t7",
		"7\t4\t[0,1,",
	}, "\n")
	ds, err := ParseLog(strings.NewReader(log), Options{})
	require.NoError(t, err)

	assert.Equal(t, 10, ds.Lines)
	assert.Equal(t, 2, ds.Records)
	assert.Equal(t, 8, ds.Skipped())
	assert.Equal(t, map[string]int{
		ReasonFieldCount: 4,
		"sequence":       1,
		"positions":      1,
		"tick_cost_us":   1,
		"dimension":      1,
	}, ds.Skips)
	assert.Equal(t, []string{"dimension", ReasonFieldCount, "positions", "sequence", "tick_cost_us"}, ds.SkipReasons())
	assert.Equal(t, []TimingPoint{{1, 5}, {6, 7}}, ds.Timing)
}

func TestParseLogStrict(t *testing.T) {
	log := "1\t4\t[0,1,2,3]\t5\n2\t4\t[0,1,2,3]\tNaN\n"
	_, err := ParseLog(strings.NewReader(log), Options{Strict: true})
	require.Error(t, err)

	var le *LineError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 2, le.Line)

	var pe *storage.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "tick_cost_us", pe.Field)
}

func TestParseLogBodyCount(t *testing.T) {
	log := "1\t6\t[0,1,2,3,4,5]\t5\n"
	ds, err := ParseLog(strings.NewReader(log), Options{BodyCount: 3})
	require.NoError(t, err)

	require.Len(t, ds.Trajectories, 3)
	assert.Equal(t, 2, ds.Dim, "six reals over three bodies are planar")
	assert.Equal(t, [][]float64{{4, 5}}, ds.Trajectories[2].Points)
}

func TestParseLogEmpty(t *testing.T) {
	ds, err := ParseLog(strings.NewReader(""), Options{})
	require.NoError(t, err)
	assert.Empty(t, ds.Timing)
	assert.Equal(t, 0, ds.Lines)
}

func TestSafeRange(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		min, max float64
	}{
		{"empty", nil, 0, 1},
		{"constant", []float64{3, 3, 3}, 2.5, 3.5},
		{"spread", []float64{-1, 4, 2}, -1, 4},
		{"single", []float64{0}, -0.5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := SafeRange(tt.values)
			assert.Equal(t, tt.min, r.Min)
			assert.Equal(t, tt.max, r.Max)
		})
	}
}
