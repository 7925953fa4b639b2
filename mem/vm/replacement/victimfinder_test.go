package replacement

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/kernelsim/sim"
)

var _ = Describe("Algorithm", func() {
	It("should parse names and numbers", func() {
		for s, want := range map[string]Algorithm{
			"none": None, "Random": Random, "fifo": FIFO,
			"3": LRU, " clock ": Clock, "0": None,
		} {
			alg, err := ParseAlgorithm(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(alg).To(Equal(want))
		}
	})

	It("should reject unknown algorithms", func() {
		_, err := ParseAlgorithm("optimal")
		Expect(err).To(MatchError(ErrUnknownAlgorithm))

		_, err = ParseAlgorithm("5")
		Expect(err).To(MatchError(ErrUnknownAlgorithm))
	})

	It("should build no policy for none", func() {
		Expect(NewVictimFinder(None, 4, 1)).To(BeNil())
		Expect(NewVictimFinder(Clock, 4, 1)).To(BeAssignableToTypeOf(&ClockVictimFinder{}))
	})
})

var _ = Describe("RandomVictimFinder", func() {
	It("should only pick eligible frames", func() {
		frames := newFrameState(8)
		for i := 0; i < 8; i++ {
			frames.evictable[i] = i%3 == 0
		}

		f := NewRandomVictimFinder(42)
		for i := 0; i < 100; i++ {
			v := f.FindVictim(frames, 3)
			Expect(v).To(BeElementOf(0, 6))
		}
	})

	It("should be reproducible for a seed", func() {
		frames := newFrameState(16)
		a := NewRandomVictimFinder(7)
		b := NewRandomVictimFinder(7)

		for i := 0; i < 20; i++ {
			Expect(a.FindVictim(frames, NoProtection)).
				To(Equal(b.FindVictim(frames, NoProtection)))
		}
	})

	It("should panic instead of spinning when nothing qualifies", func() {
		frames := newFrameState(2)
		frames.evictable[1] = false

		f := NewRandomVictimFinder(1)
		Expect(func() { f.FindVictim(frames, 0) }).To(Panic())
	})
})

var _ = Describe("FIFOVictimFinder", func() {
	var (
		frames *frameState
		f      *FIFOVictimFinder
	)

	BeforeEach(func() {
		frames = newFrameState(4)
		f = NewFIFOVictimFinder(4)
		for i, t := range []sim.VTimeInTick{30, 10, 20, 10} {
			f.Loaded(i, t)
		}
	})

	It("should pick the oldest load, lowest frame on a tie", func() {
		Expect(f.FindVictim(frames, NoProtection)).To(Equal(1))
	})

	It("should skip the protected frame", func() {
		Expect(f.FindVictim(frames, 1)).To(Equal(3))
	})

	It("should ignore references", func() {
		f.Referenced(1, 100)
		Expect(f.LoadTime(1)).To(Equal(sim.VTimeInTick(10)))
		Expect(f.FindVictim(frames, NoProtection)).To(Equal(1))
	})

	It("should skip frames that cannot be evicted", func() {
		frames.evictable[1] = false
		frames.evictable[3] = false
		Expect(f.FindVictim(frames, NoProtection)).To(Equal(2))
	})
})

var _ = Describe("LRUVictimFinder", func() {
	var (
		frames *frameState
		f      *LRUVictimFinder
	)

	BeforeEach(func() {
		frames = newFrameState(4)
		f = NewLRUVictimFinder(4)
		for i, t := range []sim.VTimeInTick{30, 10, 20, 10} {
			f.Referenced(i, t)
		}
	})

	It("should pick the oldest reference, highest frame on a tie", func() {
		Expect(f.FindVictim(frames, NoProtection)).To(Equal(3))
	})

	It("should follow new references", func() {
		f.Referenced(3, 40)
		f.Referenced(1, 41)
		Expect(f.FindVictim(frames, NoProtection)).To(Equal(2))
	})

	It("should panic when every frame is protected or shared", func() {
		frames.evictable = []bool{false, false, true, false}
		Expect(func() { f.FindVictim(frames, 2) }).To(Panic())
	})
})

var _ = Describe("ClockVictimFinder", func() {
	var (
		frames *frameState
		f      *ClockVictimFinder
	)

	BeforeEach(func() {
		frames = newFrameState(4)
		f = NewClockVictimFinder(4)
	})

	setBits := func(bits ...bool) {
		for i, b := range bits {
			f.SetRefBit(i, b)
		}
	}

	It("should give referenced frames a second chance", func() {
		setBits(true, true, false, true)

		Expect(f.FindVictim(frames, NoProtection)).To(Equal(2))
		Expect(f.Hand()).To(Equal(2))
		Expect([]bool{f.RefBit(0), f.RefBit(1), f.RefBit(2), f.RefBit(3)}).
			To(Equal([]bool{false, false, true, true}))
	})

	It("should continue from just past the hand", func() {
		setBits(true, true, false, true)
		f.FindVictim(frames, NoProtection)

		// 3 is cleared, 0 is already clear
		Expect(f.FindVictim(frames, NoProtection)).To(Equal(0))
		Expect(f.RefBit(3)).To(BeFalse())
	})

	It("should start the first sweep at frame 0", func() {
		Expect(f.Hand()).To(Equal(0))
		Expect(f.FindVictim(frames, NoProtection)).To(Equal(0))
		Expect(f.FindVictim(frames, NoProtection)).To(Equal(1))
	})

	It("should select after clearing every bit", func() {
		setBits(true, true, true, true)

		Expect(f.FindVictim(frames, NoProtection)).To(Equal(0))
	})

	It("should still select when the starting frame is not eligible", func() {
		setBits(true, true, true, true)
		frames.evictable[0] = false

		Expect(f.FindVictim(frames, NoProtection)).To(Equal(1))
	})

	It("should skip the protected frame", func() {
		setBits(false, true, true, true)

		Expect(f.FindVictim(frames, 0)).To(Equal(1))
	})

	It("should set the bit on reference", func() {
		f.Referenced(2, 0)
		Expect(f.RefBit(2)).To(BeTrue())
	})

	It("should panic when nothing is eligible", func() {
		frames.evictable = []bool{false, false, false, false}
		Expect(func() { f.FindVictim(frames, NoProtection) }).To(Panic())
	})
})
