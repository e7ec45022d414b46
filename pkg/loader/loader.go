// Package loader reads the edge list of a points-to analysis.
//
// The input is line oriented. Lines that are empty, consist of whitespace only or start with '#'
// are ignored. Every other line holds three whitespace-separated fields:
//
//	<src> <dst> <type>
//
// where src and dst are non-negative node ids fitting in 32 bits and type is "a" for an
// assignment edge or "d" for a dereference edge. Lines of any other type are dropped.
//
// Lines are partitioned among the workers by the source node: a worker parses the destination and
// the type only on the lines it owns.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	"github.com/l7mp/pointsto/pkg/exchange"
)

const maxLineLength = 1 << 20

// ErrMissingField is wrapped by a ParseError when a line has too few fields.
var ErrMissingField = errors.New("missing field")

// Kind is the type of an edge.
type Kind int

const (
	KindAssignment Kind = iota
	KindDereference
)

func (k Kind) String() string {
	switch k {
	case KindAssignment:
		return "assignment"
	case KindDereference:
		return "dereference"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Token returns the type field of the kind in the input format.
func (k Kind) Token() string {
	if k == KindDereference {
		return "d"
	}
	return "a"
}

// Edge is an input fact.
type Edge struct {
	Src, Dst uint32
	Kind     Kind
}

func (e Edge) String() string {
	return fmt.Sprintf("%d %d %s", e.Src, e.Dst, e.Kind.Token())
}

// ParseError reports a malformed line.
type ParseError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if errors.Is(e.Err, ErrMissingField) {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Err)
	}
	return fmt.Sprintf("line %d: malformed %s %q: %s", e.Line, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IOError reports a failure to open or read the input.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("reading %s: %s", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Stats counts the lines seen by a worker.
type Stats struct {
	Lines        int `json:"lines"`
	Comments     int `json:"comments"`
	Owned        int `json:"owned"`
	Assignments  int `json:"assignments"`
	Dereferences int `json:"dereferences"`
	Dropped      int `json:"dropped"`
}

// Loader reads the part of the input owned by one worker.
type Loader struct {
	index, peers int
	log          logr.Logger
}

// New creates a loader for worker index out of peers.
func New(index, peers int, log logr.Logger) (*Loader, error) {
	if peers < 1 || index < 0 || index >= peers {
		return nil, fmt.Errorf("invalid worker %d of %d", index, peers)
	}
	return &Loader{index: index, peers: peers, log: log.WithName("loader")}, nil
}

// ScanFile reads the input file and calls fn for every edge owned by the worker.
func (l *Loader) ScanFile(path string, fn func(Edge) error) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, &IOError{Path: path, Err: err}
	}
	defer f.Close()

	stats, err := l.Scan(f, fn)
	var ioErr *IOError
	if errors.As(err, &ioErr) && ioErr.Path == "" {
		ioErr.Path = path
	}
	return stats, err
}

// Scan reads the input and calls fn for every edge owned by the worker. Scanning stops at the
// first error, including the errors returned by fn.
func (l *Loader) Scan(r io.Reader, fn func(Edge) error) (Stats, error) {
	stats := Stats{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	for scanner.Scan() {
		stats.Lines++
		line := scanner.Text()

		if strings.HasPrefix(line, "#") {
			stats.Comments++
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		src, err := parseNode(stats.Lines, "src", fields[0])
		if err != nil {
			return stats, err
		}
		if exchange.Owner(uint64(src), l.peers) != l.index {
			continue
		}
		stats.Owned++

		if len(fields) < 2 {
			return stats, &ParseError{Line: stats.Lines, Field: "dst", Err: ErrMissingField}
		}
		dst, err := parseNode(stats.Lines, "dst", fields[1])
		if err != nil {
			return stats, err
		}

		if len(fields) < 3 {
			return stats, &ParseError{Line: stats.Lines, Field: "type", Err: ErrMissingField}
		}

		var kind Kind
		switch fields[2] {
		case "a":
			kind = KindAssignment
			stats.Assignments++
		case "d":
			kind = KindDereference
			stats.Dereferences++
		default:
			stats.Dropped++
			l.log.V(4).Info("dropping line of unknown type", "line", stats.Lines, "type", fields[2])
			continue
		}

		if err := fn(Edge{Src: src, Dst: dst, Kind: kind}); err != nil {
			return stats, err
		}
	}

	if err := scanner.Err(); err != nil {
		return stats, &IOError{Err: err}
	}

	return stats, nil
}

// Filter calls fn for every edge of an in-memory edge list owned by the worker.
func (l *Loader) Filter(edges []Edge, fn func(Edge) error) (Stats, error) {
	stats := Stats{Lines: len(edges)}
	for _, e := range edges {
		if exchange.Owner(uint64(e.Src), l.peers) != l.index {
			continue
		}
		stats.Owned++
		switch e.Kind {
		case KindAssignment:
			stats.Assignments++
		case KindDereference:
			stats.Dereferences++
		default:
			stats.Dropped++
			continue
		}
		if err := fn(e); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func parseNode(line int, field, value string) (uint32, error) {
	// one explicit plus sign is accepted, as in "+7"
	n, err := strconv.ParseUint(strings.TrimPrefix(value, "+"), 10, 32)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		return 0, &ParseError{Line: line, Field: field, Value: value, Err: err}
	}
	return uint32(n), nil
}
