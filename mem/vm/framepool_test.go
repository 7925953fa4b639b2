package vm

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FramePool", func() {
	var pool *FramePool

	take := func() int {
		frame, ok := pool.Take()
		Expect(ok).To(BeTrue())

		return frame
	}

	BeforeEach(func() {
		pool = NewFramePool(4)
	})

	It("should hand out never used frames first, then released ones in order", func() {
		Expect(take()).To(Equal(0))
		Expect(take()).To(Equal(1))
		Expect(take()).To(Equal(2))

		pool.Release(1)
		pool.Release(0)

		Expect(take()).To(Equal(3))
		Expect(take()).To(Equal(1))
		Expect(take()).To(Equal(0))

		_, ok := pool.Take()
		Expect(ok).To(BeFalse())
		Expect(pool.NumAllocated()).To(Equal(4))
		Expect(pool.NumFree()).To(Equal(0))
	})

	It("should clear the owner on release", func() {
		frame := take()
		pool.SetOwner(frame, 3, 9)
		Expect(pool.Owner(frame)).To(Equal(Owner{PID: 3, VPN: 9, Assigned: true}))

		pool.Release(frame)

		Expect(pool.Owner(frame).Assigned).To(BeFalse())
		Expect(pool.InUse(frame)).To(BeFalse())
	})

	It("should panic on double release", func() {
		frame := take()
		pool.Release(frame)

		Expect(func() { pool.Release(frame) }).To(Panic())
	})
})
