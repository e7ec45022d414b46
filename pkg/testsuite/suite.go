// Package testsuite provides the shared harness of the package tests: a logger writing to the
// Ginkgo output, a scratch directory for input files and a seeded random graph generator.
package testsuite

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"

	"github.com/go-logr/logr"
	"go.uber.org/zap/zapcore"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/l7mp/pointsto/pkg/loader"
)

type Suite struct {
	Timeout  time.Duration
	LogLevel int
	Dir      string
	Ctx      context.Context
	Cancel   context.CancelFunc
	Log      logr.Logger
}

func New(loglevel int) (*Suite, error) {
	s := &Suite{
		Timeout:  2 * time.Minute,
		LogLevel: loglevel,
	}

	opts := zap.Options{
		Development:     true,
		DestWriter:      GinkgoWriter,
		StacktraceLevel: zapcore.Level(4),
		TimeEncoder:     zapcore.RFC3339NanoTimeEncoder,
		Level:           zapcore.Level(loglevel), //nolint:gosec
	}
	s.Log = zap.New(zap.UseFlagOptions(&opts))

	s.Ctx, s.Cancel = context.WithTimeout(context.Background(), s.Timeout)

	dir, err := os.MkdirTemp("", "pointsto-test-*")
	if err != nil {
		return nil, err
	}
	s.Dir = dir

	return s, nil
}

func (s *Suite) Close() {
	s.Cancel()
	if err := os.RemoveAll(s.Dir); err != nil {
		s.Log.Error(err, "removing test directory")
	}
}

// WriteInput writes an input file into the scratch directory and returns its path.
func (s *Suite) WriteInput(name, content string) (string, error) {
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// WriteEdges writes an edge list in the input format.
func (s *Suite) WriteEdges(name string, edges []loader.Edge) (string, error) {
	return s.WriteInput(name, Format(edges))
}

// Format renders edges in the input format.
func Format(edges []loader.Edge) string {
	var b strings.Builder
	for _, e := range edges {
		fmt.Fprintln(&b, e.String())
	}
	return b.String()
}

// RandomGraph returns a random edge list over nodes [0,nodes), with roughly one dereference
// edge out of every derefRatio edges. The same seed always gives the same graph.
func RandomGraph(seed int64, nodes, edges, derefRatio int) []loader.Edge {
	rnd := rand.New(rand.NewSource(seed)) //nolint:gosec
	out := make([]loader.Edge, 0, edges)
	for i := 0; i < edges; i++ {
		kind := loader.KindAssignment
		if derefRatio > 0 && rnd.Intn(derefRatio) == 0 {
			kind = loader.KindDereference
		}
		out = append(out, loader.Edge{
			Src:  uint32(rnd.Intn(nodes)), //nolint:gosec
			Dst:  uint32(rnd.Intn(nodes)), //nolint:gosec
			Kind: kind,
		})
	}
	return out
}
