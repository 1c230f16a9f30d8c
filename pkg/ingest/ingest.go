// Package ingest parses the pipe-delimited study file format and feeds the
// records to a registry.
//
// Each non-empty line that does not start with '#' must have exactly six
// fields:
//
//	ID|Name|YYYYMMDD|Modality|SexCode|SizeBytes
//
// The size field is read up to its first non-digit, ignoring surrounding
// whitespace. A size with no leading digits, or a negative one, is
// synthesized from the modality.
package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/registry"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/study"
)

// LineFields is the number of fields in an ingestion line.
const LineFields = 6

// ErrMalformedInput marks a line that cannot be turned into a record.
var ErrMalformedInput = errors.New("ingest: malformed input")

// LineError reports a rejected line.
type LineError struct {
	Line int    // 1-based line number
	Text string // the raw line
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// ParseLine converts one ingestion line into a record. rng is used only
// when the size field must be synthesized.
func ParseLine(line string, rng *rand.Rand) (study.Record, error) {
	fields := strings.Split(line, study.Delimiter)
	if len(fields) != LineFields {
		return study.Record{}, fmt.Errorf("%w: expected %d fields, found %d", ErrMalformedInput, LineFields, len(fields))
	}
	r := study.Record{
		ID:           fields[0],
		Name:         fields[1],
		StudyDateRaw: fields[2],
		Modality:     fields[3],
		Sex:          study.NormalizeSex(fields[4]),
	}
	size, ok := parseSize(fields[5])
	if !ok {
		size = study.SynthesizeSize(r.Modality, rng)
	}
	r.SizeBytes = size
	if err := r.Validate(); err != nil {
		return study.Record{}, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	return r, nil
}

// parseSize reads the leading integer of s after surrounding whitespace,
// so "52000000 " and "52000000MB" both yield 52000000. It fails when there
// are no leading digits or the value is negative.
func parseSize(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Sink receives parsed records. *registry.Registry satisfies it.
type Sink interface {
	Add(ctx context.Context, r study.Record) (registry.AddResult, error)
}

// Options configures Load.
type Options struct {
	// Rand seeds size synthesis. If nil, a randomly seeded source is used.
	Rand *rand.Rand

	// Logger is optional. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Summary describes a finished load.
type Summary struct {
	Lines      int          `json:"lines" yaml:"lines"`
	Added      int          `json:"added" yaml:"added"`
	Persisted  int          `json:"persisted" yaml:"persisted"`
	Duplicates []string     `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Errors     []*LineError `json:"-" yaml:"-"`
}

// Malformed returns the number of rejected lines.
func (s Summary) Malformed() int { return len(s.Errors) }

// Load reads lines from rd and adds every well-formed record to sink.
// Malformed lines and duplicates are recorded in the summary and do not stop
// the load. The returned error is non-nil only for read failures, context
// cancellation, or a sink error other than a duplicate key.
func Load(ctx context.Context, rd io.Reader, sink Sink, opts Options) (Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	var sum Summary
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Lines++
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, err := ParseLine(line, rng)
		if err != nil {
			le := &LineError{Line: sum.Lines, Text: line, Err: err}
			logger.Warn("ingest: rejected line", "line", sum.Lines, "error", err)
			sum.Errors = append(sum.Errors, le)
			continue
		}
		res, err := sink.Add(ctx, rec)
		switch {
		case errors.Is(err, registry.ErrDuplicateKey):
			logger.Info("ingest: duplicate id skipped", "id", rec.ID, "line", sum.Lines)
			sum.Duplicates = append(sum.Duplicates, rec.ID)
			continue
		case err != nil:
			return sum, fmt.Errorf("ingest: line %d: %w", sum.Lines, err)
		}
		sum.Added++
		if res.Persisted {
			sum.Persisted++
		}
	}
	if err := sc.Err(); err != nil {
		return sum, fmt.Errorf("ingest: read: %w", err)
	}
	logger.Info("ingest finished", "lines", sum.Lines, "added", sum.Added,
		"duplicates", len(sum.Duplicates), "malformed", sum.Malformed())
	return sum, nil
}

// LoadFile opens path and calls Load.
func LoadFile(ctx context.Context, path string, sink Sink, opts Options) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("ingest: %w", err)
	}
	defer f.Close()
	return Load(ctx, f, sink, opts)
}
