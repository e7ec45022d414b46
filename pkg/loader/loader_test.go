package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/go-logr/logr"

	"github.com/l7mp/pointsto/internal/testutils"
)

func TestLoader(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Loader Suite")
}

func scan(input string, index, peers int) ([]Edge, Stats, error) {
	ld, err := New(index, peers, logr.Discard())
	Expect(err).NotTo(HaveOccurred())

	var edges []Edge
	stats, err := ld.Scan(strings.NewReader(input), func(e Edge) error {
		edges = append(edges, e)
		return nil
	})
	return edges, stats, err
}

var _ = Describe("Loader", func() {
	DescribeTable("input grammar",
		func(input string, expected []Edge) {
			edges, _, err := scan(input, 0, 1)
			Expect(err).NotTo(HaveOccurred())
			if len(expected) == 0 {
				Expect(edges).To(BeEmpty())
				return
			}
			Expect(edges).To(Equal(expected))
		},
		Entry("assignment", "0 1 a\n", []Edge{{Src: 0, Dst: 1, Kind: KindAssignment}}),
		Entry("dereference", "1 2 d\n", []Edge{{Src: 1, Dst: 2, Kind: KindDereference}}),
		Entry("no trailing newline", "3 4 a", []Edge{{Src: 3, Dst: 4, Kind: KindAssignment}}),
		Entry("tabs and repeated spaces", "5\t6   d\n", []Edge{{Src: 5, Dst: 6, Kind: KindDereference}}),
		Entry("extra fields", "1 2 a extra\n", []Edge{{Src: 1, Dst: 2, Kind: KindAssignment}}),
		Entry("comment", "# 1 2 a\n", []Edge{}),
		Entry("empty line", "\n\n", []Edge{}),
		Entry("whitespace-only line", "   \t\n", []Edge{}),
		Entry("unknown type", "1 2 x\n", []Edge{}),
		Entry("type is case sensitive", "1 2 A\n", []Edge{}),
		Entry("explicit plus sign", "+7 +0 d\n", []Edge{{Src: 7, Dst: 0, Kind: KindDereference}}),
		Entry("largest node id", "4294967295 0 a\n", []Edge{{Src: 4294967295, Dst: 0, Kind: KindAssignment}}),
		Entry("mixed", "# header\n0 1 a\n\n1 2 d\n2 3 q\n",
			[]Edge{{Src: 0, Dst: 1, Kind: KindAssignment}, {Src: 1, Dst: 2, Kind: KindDereference}}),
	)

	DescribeTable("parse errors",
		func(input, field string, line int, cause error) {
			_, _, err := scan(input, 0, 1)
			Expect(err).To(HaveOccurred())

			var parseErr *ParseError
			Expect(errors.As(err, &parseErr)).To(BeTrue())
			Expect(parseErr.Field).To(Equal(field))
			Expect(parseErr.Line).To(Equal(line))
			Expect(err).To(MatchError(cause))
		},
		Entry("non-numeric src", "x y a\n", "src", 1, strconv.ErrSyntax),
		Entry("non-numeric dst", "0 1 a\n1 y a\n", "dst", 2, strconv.ErrSyntax),
		Entry("negative src", "-1 2 a\n", "src", 1, strconv.ErrSyntax),
		Entry("lone plus sign", "+ 2 a\n", "src", 1, strconv.ErrSyntax),
		Entry("double plus sign", "1 ++2 a\n", "dst", 1, strconv.ErrSyntax),
		Entry("plus then minus", "+-1 2 a\n", "src", 1, strconv.ErrSyntax),
		Entry("plus sign out of range", "+4294967296 1 a\n", "src", 1, strconv.ErrRange),
		Entry("node id out of range", "4294967296 1 a\n", "src", 1, strconv.ErrRange),
		Entry("missing dst", "0\n", "dst", 1, ErrMissingField),
		Entry("missing type", "# c\n"+testutils.MissingType, "type", 2, ErrMissingField),
	)

	It("should name the failing field", func() {
		_, _, err := scan("x y a\n", 0, 1)
		Expect(err).To(MatchError(`line 1: malformed src "x": invalid syntax`))

		_, _, err = scan("0 1\n", 0, 1)
		Expect(err).To(MatchError("line 1: type: missing field"))
	})

	Context("with several workers", func() {
		input := "0 1 a\n1 2 d\n2 3 a\n3 y a\n4 5 z\n"

		It("should keep only the owned lines", func() {
			edges, stats, err := scan(input, 0, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(edges).To(Equal([]Edge{
				{Src: 0, Dst: 1, Kind: KindAssignment},
				{Src: 2, Dst: 3, Kind: KindAssignment},
			}))
			Expect(stats).To(Equal(Stats{Lines: 5, Owned: 3, Assignments: 2, Dropped: 1}))
		})

		It("should fail only on the owner of a malformed line", func() {
			_, _, err := scan(input, 1, 2)
			Expect(err).To(MatchError(ContainSubstring("line 4: malformed dst")))
		})

		It("should fail on every worker for a malformed src", func() {
			for w := 0; w < 3; w++ {
				_, _, err := scan("0 1 a\nx 1 a\n", w, 3)
				Expect(err).To(HaveOccurred())
			}
		})

		It("should filter in-memory edges the same way", func() {
			ld, err := New(1, 2, logr.Discard())
			Expect(err).NotTo(HaveOccurred())

			var edges []Edge
			stats, err := ld.Filter([]Edge{
				{Src: 0, Dst: 1, Kind: KindAssignment},
				{Src: 1, Dst: 2, Kind: KindDereference},
				{Src: 3, Dst: 3, Kind: KindAssignment},
			}, func(e Edge) error {
				edges = append(edges, e)
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(edges).To(HaveLen(2))
			Expect(stats.Assignments).To(Equal(1))
			Expect(stats.Dereferences).To(Equal(1))
		})
	})

	It("should reject an invalid worker", func() {
		_, err := New(2, 2, logr.Discard())
		Expect(err).To(HaveOccurred())
		_, err = New(0, 0, logr.Discard())
		Expect(err).To(HaveOccurred())
	})

	It("should stop on a callback error", func() {
		ld, err := New(0, 1, logr.Discard())
		Expect(err).NotTo(HaveOccurred())

		boom := errors.New("boom")
		calls := 0
		_, err = ld.Scan(strings.NewReader("0 1 a\n1 2 a\n"), func(Edge) error {
			calls++
			return boom
		})
		Expect(err).To(MatchError(boom))
		Expect(calls).To(Equal(1))
	})

	Context("files", func() {
		var dir string

		BeforeEach(func() {
			var err error
			dir, err = os.MkdirTemp("", "loader-test-*")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(os.RemoveAll, dir)
		})

		It("should read a file", func() {
			path := filepath.Join(dir, "input.txt")
			Expect(os.WriteFile(path, []byte("0 1 a\n1 2 d\n"), 0o600)).To(Succeed())

			ld, err := New(0, 1, logr.Discard())
			Expect(err).NotTo(HaveOccurred())
			n := 0
			stats, err := ld.ScanFile(path, func(Edge) error { n++; return nil })
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
			Expect(stats.Lines).To(Equal(2))
		})

		It("should report a missing file as an I/O error", func() {
			ld, err := New(0, 1, logr.Discard())
			Expect(err).NotTo(HaveOccurred())

			path := filepath.Join(dir, "missing.txt")
			_, err = ld.ScanFile(path, func(Edge) error { return nil })
			var ioErr *IOError
			Expect(errors.As(err, &ioErr)).To(BeTrue())
			Expect(ioErr.Path).To(Equal(path))
			Expect(err).To(MatchError(os.ErrNotExist))
		})
	})

	It("should render edges in the input format", func() {
		Expect(Edge{Src: 1, Dst: 2, Kind: KindDereference}.String()).To(Equal("1 2 d"))
		Expect(KindAssignment.String()).To(Equal("assignment"))
	})
})
