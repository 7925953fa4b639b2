package machine

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Memory", func() {
	var mem *Memory

	BeforeEach(func() {
		mem = NewMemory(4, 16)
	})

	It("should expose frames as views into physical memory", func() {
		frame := mem.Frame(2)
		frame[3] = 0xaa

		Expect(mem.Bytes()[2*16+3]).To(Equal(byte(0xaa)))
	})

	It("should copy and zero frames", func() {
		copy(mem.Frame(1), []byte{1, 2, 3, 4})

		mem.CopyFrame(3, 1)
		mem.ZeroFrame(1)

		Expect(mem.Frame(3)[:4]).To(Equal([]byte{1, 2, 3, 4}))
		Expect(mem.Frame(1)).To(Equal(make([]byte, 16)))
	})

	It("should reject accesses beyond the end", func() {
		_, err := mem.Read(60, 8)
		Expect(err).To(MatchError(ErrAddress))

		Expect(mem.Write(64, []byte{1})).To(MatchError(ErrAddress))
	})

	It("should panic on a frame that does not exist", func() {
		Expect(func() { mem.Frame(4) }).To(Panic())
	})
})

var _ = Describe("Machine", func() {
	var (
		mockCtrl *gomock.Controller
		observer *MockAccessObserver
		m        *Machine
		table    []TranslationEntry
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		observer = NewMockAccessObserver(mockCtrl)

		m = NewMachine(4, 16)
		m.SetAccessObserver(observer)

		table = []TranslationEntry{
			{VirtualPage: 0, PhysicalPage: 3, Valid: true},
			NewInvalidEntry(1),
			{VirtualPage: 2, PhysicalPage: 1, Valid: true, ReadOnly: true},
		}
		m.LoadPageTable(7, table)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should remember the owner of the page table", func() {
		Expect(m.PageTableOwner()).To(Equal(7))
		Expect(m.PageTableSize()).To(Equal(3))
	})

	It("should translate and set the use bit", func() {
		observer.EXPECT().Referenced(3)

		paddr, err := m.Translate(5, false)

		Expect(err).NotTo(HaveOccurred())
		Expect(paddr).To(Equal(3*16 + 5))
		Expect(table[0].Use).To(BeTrue())
		Expect(table[0].Dirty).To(BeFalse())
	})

	It("should set the dirty bit on writes", func() {
		observer.EXPECT().Referenced(3).Times(2)

		Expect(m.WriteMem(4, 4, 0x01020304)).To(Succeed())
		Expect(table[0].Dirty).To(BeTrue())

		v, err := m.ReadMem(4, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(int32(0x01020304)))
		Expect(m.Memory.Frame(3)[4:8]).To(Equal([]byte{4, 3, 2, 1}))
	})

	It("should raise a page fault on an invalid entry", func() {
		_, err := m.Translate(16+2, false)

		Expect(err).To(MatchError(ErrPageFault))
		Expect(m.ReadRegister(BadVAddrReg)).To(Equal(int32(18)))
	})

	It("should refuse writes to read-only pages", func() {
		_, err := m.Translate(32, true)

		Expect(err).To(MatchError(ErrReadOnly))
		Expect(table[2].Dirty).To(BeFalse())
	})

	It("should raise an address error beyond the page table", func() {
		_, err := m.Translate(48, false)

		Expect(err).To(MatchError(ErrAddress))
	})
})
