package storage

import (
	"bufio"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/san-kum/tickstream/internal/dynamo"
)

func readRecords(t *testing.T, path string) []Record {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		r, err := ParseRecord(sc.Text())
		if err != nil {
			t.Fatalf("bad record %q: %v", sc.Text(), err)
		}
		out = append(out, r)
	}
	return out
}

func TestLogAppendSequences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, err := Open(path, DefaultOptions())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	for i := 1; i <= 3; i++ {
		seq, err := l.Append(3, []float64{0.1, 0.2, 0.3}, uint64(i))
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if seq != uint64(i) {
			t.Errorf("seq = %d, want %d", seq, i)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	recs := readRecords(t, path)
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	for i, r := range recs {
		if r.Sequence != uint64(i+1) || r.TickCostUS != uint64(i+1) || r.Dimension != 3 {
			t.Errorf("record %d = %+v", i, r)
		}
	}
}

func TestLogRejectsInvalidSamples(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "run.log"), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if _, err := l.Append(2, []float64{math.NaN(), 1}, 1); !errors.Is(err, dynamo.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
	if _, err := l.Append(2, []float64{math.Inf(1), 1}, 1); !errors.Is(err, dynamo.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
	if _, err := l.Append(3, []float64{1, 1}, 1); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	seq, err := l.Append(2, []float64{1, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if seq != 1 {
		t.Errorf("rejected samples consumed sequence numbers: got %d", seq)
	}
}

func TestLogSequencePolicies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, err := Open(path, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if _, err := l.Append(2, []float64{0, 0}, 1); err != nil {
			t.Fatal(err)
		}
	}
	l.Close()

	resumed, err := Open(path, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	seq, _ := resumed.Append(2, []float64{0, 0}, 1)
	resumed.Close()
	if seq != 6 {
		t.Errorf("resume: seq = %d, want 6", seq)
	}

	opts := DefaultOptions()
	opts.Sequence = SequencePerProcess
	fresh, err := Open(path, opts)
	if err != nil {
		t.Fatal(err)
	}
	seq, _ = fresh.Append(2, []float64{0, 0}, 1)
	fresh.Close()
	if seq != 1 {
		t.Errorf("per-process: seq = %d, want 1", seq)
	}
}

func TestLogRepairsTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	content := "1\t2\t[0,0]\t5\n2\t2\t[0,0]\t5\n3\t2\t[0,"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := Open(path, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	seq, err := l.Append(2, []float64{1, 1}, 7)
	if err != nil {
		t.Fatal(err)
	}
	l.Close()
	if seq != 3 {
		t.Errorf("seq = %d, want 3", seq)
	}

	data, _ := os.ReadFile(path)
	want := content + "\n3\t2\t[1,1]\t7\n"
	if string(data) != want {
		t.Errorf("log content = %q, want %q", data, want)
	}
}

func TestLogRepairsTornTailPerProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	content := "1\t2\t[1,1]\t5\n2\t2\t[1,"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	opts := DefaultOptions()
	opts.Sequence = SequencePerProcess
	l, err := Open(path, opts)
	if err != nil {
		t.Fatal(err)
	}
	seq, err := l.Append(2, []float64{3, 4}, 9)
	if err != nil {
		t.Fatal(err)
	}
	l.Close()
	if seq != 1 {
		t.Errorf("seq = %d, want 1", seq)
	}

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), data)
	}
	rec, err := ParseRecord(lines[2])
	if err != nil {
		t.Fatalf("appended record unreadable: %v", err)
	}
	if rec.Sequence != 1 || rec.TickCostUS != 9 {
		t.Errorf("record = %+v", rec)
	}
}

func TestLogConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	opts := DefaultOptions()
	opts.NoSync = true
	l, err := Open(path, opts)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if _, err := l.Append(2, []float64{1, 2}, 1); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	l.Close()

	recs := readRecords(t, path)
	if len(recs) != 200 {
		t.Fatalf("expected 200 records, got %d", len(recs))
	}
	for i, r := range recs {
		if r.Sequence != uint64(i+1) {
			t.Fatalf("record %d has sequence %d", i, r.Sequence)
		}
	}
}

func TestLogClosed(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "run.log"), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if _, err := l.Append(2, []float64{0, 0}, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

type flakyFile struct {
	writes   []int
	errs     []error
	syncErrs []error
	data     []byte
}

func (f *flakyFile) Write(b []byte) (int, error) {
	if len(f.errs) > 0 {
		n, err := f.writes[0], f.errs[0]
		f.writes, f.errs = f.writes[1:], f.errs[1:]
		if err != nil || n != len(b) {
			f.data = append(f.data, b[:n]...)
			return n, err
		}
	}
	f.data = append(f.data, b...)
	return len(b), nil
}

func (f *flakyFile) Sync() error {
	if len(f.syncErrs) > 0 {
		err := f.syncErrs[0]
		f.syncErrs = f.syncErrs[1:]
		return err
	}
	return nil
}

func (f *flakyFile) Close() error { return nil }

func TestLogRetriesTransientErrors(t *testing.T) {
	f := &flakyFile{
		writes:   []int{0, 0},
		errs:     []error{syscall.EINTR, syscall.EAGAIN},
		syncErrs: []error{syscall.EBUSY},
	}
	l := newLog(f, "mem", 0, DefaultOptions())

	seq, err := l.Append(2, []float64{1, 2}, 3)
	if err != nil {
		t.Fatalf("expected retries to succeed, got %v", err)
	}
	if seq != 1 || string(f.data) != "1\t2\t[1,2]\t3\n" {
		t.Errorf("seq %d data %q", seq, f.data)
	}
}

func TestLogFatalWriteErrors(t *testing.T) {
	tests := []struct {
		name    string
		f       *flakyFile
		op      string
		partial bool
	}{
		{"partial write", &flakyFile{writes: []int{4}, errs: []error{syscall.EINTR}}, "write", true},
		{"persistent", &flakyFile{writes: []int{0}, errs: []error{syscall.ENOSPC}}, "write", false},
		{"sync", &flakyFile{syncErrs: []error{syscall.EIO}}, "sync", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLog(tt.f, "mem", 0, DefaultOptions())
			_, err := l.Append(2, []float64{1, 2}, 3)

			var we *WriteError
			if !errors.As(err, &we) {
				t.Fatalf("expected *WriteError, got %v", err)
			}
			if we.Op != tt.op {
				t.Errorf("op = %q, want %q", we.Op, tt.op)
			}
			if partial := we.Written > 0; partial != tt.partial {
				t.Errorf("partial = %v, want %v", partial, tt.partial)
			}
		})
	}
}

func TestLogGivesUpAfterRetries(t *testing.T) {
	errs := make([]error, 10)
	writes := make([]int, 10)
	for i := range errs {
		errs[i] = syscall.EAGAIN
	}
	opts := DefaultOptions()
	opts.Retries = 2
	l := newLog(&flakyFile{writes: writes, errs: errs}, "mem", 0, opts)

	_, err := l.Append(2, []float64{1, 2}, 3)
	var we *WriteError
	if !errors.As(err, &we) || we.Attempts != 3 {
		t.Fatalf("expected WriteError after 3 attempts, got %v", err)
	}
	if l.Sequence() != 0 {
		t.Errorf("failed write advanced sequence to %d", l.Sequence())
	}
}
