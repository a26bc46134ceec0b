package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/tickstream/internal/dynamo"
)

var (
	ErrFieldCount = errors.New("storage: record must have exactly 4 tab-separated fields")
	ErrClosed     = errors.New("storage: log is closed")
)

// Record is one line of the durable log:
//
//	sequence \t dimension \t positions-json \t tick_cost_us \n
type Record struct {
	Sequence   uint64
	Dimension  int
	Positions  []float64
	TickCostUS uint64
}

// ParseError names the field of a record that failed to parse.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("storage: bad %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// AppendTo appends the encoded line, newline included, to dst. Positions
// must be finite; the log checks this before encoding.
func (r Record) AppendTo(dst []byte) []byte {
	dst = strconv.AppendUint(dst, r.Sequence, 10)
	dst = append(dst, '\t')
	dst = strconv.AppendInt(dst, int64(r.Dimension), 10)
	dst = append(dst, '\t', '[')
	for i, v := range r.Positions {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = strconv.AppendFloat(dst, v, 'g', -1, 64)
	}
	dst = append(dst, ']', '\t')
	dst = strconv.AppendUint(dst, r.TickCostUS, 10)
	return append(dst, '\n')
}

func (r Record) Encode() string {
	return string(r.AppendTo(nil))
}

func (r Record) Sample() dynamo.Sample {
	return dynamo.Sample{
		Sequence:   r.Sequence,
		Dimension:  r.Dimension,
		Positions:  r.Positions,
		TickCostUS: r.TickCostUS,
	}
}

// ParseRecord decodes one log line. A trailing newline is optional.
func ParseRecord(line string) (Record, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, "\t")
	if len(fields) != 4 {
		return Record{}, fmt.Errorf("%w: got %d", ErrFieldCount, len(fields))
	}

	var (
		r   Record
		err error
	)
	if r.Sequence, err = strconv.ParseUint(fields[0], 10, 64); err != nil {
		return Record{}, &ParseError{Field: "sequence", Value: fields[0], Err: err}
	}
	if r.Dimension, err = strconv.Atoi(fields[1]); err != nil {
		return Record{}, &ParseError{Field: "dimension", Value: fields[1], Err: err}
	}
	if err = json.Unmarshal([]byte(fields[2]), &r.Positions); err != nil {
		return Record{}, &ParseError{Field: "positions", Value: fields[2], Err: err}
	}
	if r.Positions == nil {
		return Record{}, &ParseError{Field: "positions", Value: fields[2], Err: dynamo.ErrInvalidState}
	}
	if r.Dimension != len(r.Positions) {
		return Record{}, &ParseError{
			Field: "dimension",
			Value: fields[1],
			Err:   fmt.Errorf("%w: %d positions", dynamo.ErrDimensionMismatch, len(r.Positions)),
		}
	}
	if r.TickCostUS, err = strconv.ParseUint(fields[3], 10, 64); err != nil {
		return Record{}, &ParseError{Field: "tick_cost_us", Value: fields[3], Err: err}
	}
	return r, nil
}
