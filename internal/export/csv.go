package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/tickstream/internal/storage"
)

// CSVStats counts what LogToCSV copied and skipped.
type CSVStats struct {
	Rows    int
	Skipped int
}

// LogToCSV copies every well-formed record of a log to w, one row per record:
// sequence, dimension, tick_cost_us, then the positions as p0, p1, ...
// The header is sized for the first record; malformed lines are skipped.
func LogToCSV(w io.Writer, log io.Reader) (CSVStats, error) {
	var st CSVStats
	cw := csv.NewWriter(w)
	br := bufio.NewReader(log)
	header := false

	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			rec, perr := storage.ParseRecord(line)
			if perr != nil {
				st.Skipped++
			} else {
				if !header {
					if werr := cw.Write(csvHeader(len(rec.Positions))); werr != nil {
						return st, werr
					}
					header = true
				}
				if werr := cw.Write(csvRow(rec)); werr != nil {
					return st, werr
				}
				st.Rows++
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return st, fmt.Errorf("read log: %w", err)
		}
	}

	cw.Flush()
	return st, cw.Error()
}

func csvHeader(n int) []string {
	h := []string{"sequence", "dimension", "tick_cost_us"}
	for i := 0; i < n; i++ {
		h = append(h, "p"+strconv.Itoa(i))
	}
	return h
}

func csvRow(r storage.Record) []string {
	row := []string{
		strconv.FormatUint(r.Sequence, 10),
		strconv.Itoa(r.Dimension),
		strconv.FormatUint(r.TickCostUS, 10),
	}
	for _, p := range r.Positions {
		row = append(row, strconv.FormatFloat(p, 'g', -1, 64))
	}
	return row
}
