package kernel

import (
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/kernelsim/sched"
)

var _ = Describe("ParseBatch", func() {
	It("should read the algorithm and the jobs", func() {
		b, err := ParseBatch(strings.NewReader(
			"7\n../test/matmult 20\n../test/sort\n\n../test/testloop 5\n"))

		Expect(err).ToNot(HaveOccurred())
		Expect(b.Algorithm).To(Equal(sched.UNIX33))
		Expect(b.Jobs).To(Equal([]Job{
			{Executable: "../test/matmult", Priority: 20},
			{Executable: "../test/sort", Priority: DefaultPriority},
			{Executable: "../test/testloop", Priority: 5},
		}))
	})

	It("should accept a batch without jobs", func() {
		b, err := ParseBatch(strings.NewReader("2"))

		Expect(err).ToNot(HaveOccurred())
		Expect(b.Algorithm).To(Equal(sched.SJF))
		Expect(b.Jobs).To(BeEmpty())
	})

	DescribeTable("rejecting malformed batches",
		func(content string) {
			_, err := ParseBatch(strings.NewReader(content))

			Expect(errors.Is(err, ErrBadBatch)).To(BeTrue())
		},
		Entry("empty file", ""),
		Entry("unknown algorithm", "11\nprog\n"),
		Entry("algorithm not a number", "fifo\nprog\n"),
		Entry("bad priority", "1\nprog high\n"),
		Entry("too many fields", "1\nprog 1 2\n"),
	)

	It("should tell which algorithm was unknown", func() {
		_, err := ParseBatch(strings.NewReader("0\n"))

		Expect(errors.Is(err, sched.ErrUnknownAlgorithm)).To(BeTrue())
	})
})

var _ = Describe("LoadBatch", func() {
	var k *Kernel

	BeforeEach(func() {
		k = MakeBuilder().WithLogger(quietLogger()).Build("Kernel")
	})

	It("should launch every job in order", func() {
		b := Batch{
			Algorithm: sched.FIFO,
			Jobs: []Job{
				{Executable: "a", Priority: 10},
				{Executable: "b", Priority: DefaultPriority},
			},
		}

		err := k.LoadBatch(b, opener(map[string]io.ReaderAt{
			"a": program(256, 0),
			"b": program(128, 0),
		}))

		Expect(err).ToNot(HaveOccurred())

		threads := k.Threads().All()
		Expect(threads).To(HaveLen(2))
		Expect(threads[0].Name).To(Equal("a"))
		Expect(threads[0].BasePriority).To(Equal(60))
		Expect(threads[1].Name).To(Equal("b"))
		Expect(threads[1].BasePriority).To(Equal(150))
		Expect(k.Scheduler().NumReady()).To(Equal(2))
	})

	It("should stop at a job that cannot be opened", func() {
		b := Batch{
			Algorithm: sched.FIFO,
			Jobs:      []Job{{Executable: "missing", Priority: 1}},
		}

		err := k.LoadBatch(b, opener(nil))

		Expect(err).To(MatchError(ContainSubstring("missing")))
		Expect(k.Threads().Len()).To(BeZero())
	})
})
