package sched

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/kernelsim/machine"
	"github.com/sarchlab/kernelsim/sim"
	"github.com/sarchlab/kernelsim/thread"
)

var _ = Describe("Scheduler", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		switcher   *MockSwitcher
		now        sim.VTimeInTick
		m          *machine.Machine
		table      *thread.Table
		s          *Scheduler
	)

	newScheduler := func(alg Algorithm) {
		s = NewScheduler(alg, table, m, timeTeller, switcher)
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		timeTeller.EXPECT().CurrentTime().
			DoAndReturn(func() sim.VTimeInTick { return now }).
			AnyTimes()
		switcher = NewMockSwitcher(mockCtrl)
		now = 0

		m = machine.NewMachine(1, 16)
		table = thread.NewTable()
		newScheduler(FIFO)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should panic on an unsupported algorithm", func() {
		Expect(func() { newScheduler(Algorithm(0)) }).To(Panic())
	})

	It("should stamp threads made ready", func() {
		t := table.NewThread("a")
		now = 12

		s.MoveToReady(t)

		Expect(t.Status).To(Equal(thread.Ready))
		Expect(t.WaitStart).To(Equal(sim.VTimeInTick(12)))
		Expect(s.NumReady()).To(Equal(1))
		Expect(func() { s.MoveToReady(t) }).To(Panic())
	})

	It("should save, switch and restore in order", func() {
		oldSpace := NewMockUserSpace(mockCtrl)
		nextSpace := NewMockUserSpace(mockCtrl)

		old := table.NewThread("old")
		old.Space = oldSpace
		next := table.NewThread("next")
		next.Space = nextSpace
		next.SetUserRegister(machine.StackReg, 4000)

		switcher.EXPECT().Switch(nil, old)
		oldSpace.EXPECT().RestoreContext()
		s.MoveToReady(old)
		s.Schedule(s.SelectNext())

		m.WriteRegister(machine.StackReg, 1234)
		s.MoveToReady(next)

		gomock.InOrder(
			oldSpace.EXPECT().SaveContext(),
			switcher.EXPECT().Switch(old, next),
			nextSpace.EXPECT().RestoreContext(),
		)

		s.MoveToReady(old)
		s.Schedule(s.SelectNext())

		Expect(s.Current()).To(BeIdenticalTo(next))
		Expect(old.UserRegisters()[machine.StackReg]).To(Equal(int32(1234)))
		Expect(m.ReadRegister(machine.StackReg)).To(Equal(int32(4000)))
	})

	It("should account the time a ready thread waited", func() {
		switcher.EXPECT().Switch(gomock.Any(), gomock.Any()).AnyTimes()
		a := table.NewThread("a")
		b := table.NewThread("b")

		now = 10
		s.MoveToReady(a)
		s.MoveToReady(b)

		now = 25
		s.Schedule(s.SelectNext())
		Expect(a.TotalWait).To(Equal(sim.VTimeInTick(15)))
		Expect(a.BurstStart).To(Equal(sim.VTimeInTick(25)))
		Expect(a.Status).To(Equal(thread.Running))

		now = 40
		a.Status = thread.Blocked
		s.Schedule(s.SelectNext())

		Expect(b.TotalWait).To(Equal(sim.VTimeInTick(30)))
		Expect(s.Stats().TotalWait).To(Equal(sim.VTimeInTick(45)))
		Expect(s.Stats().Dispatches).To(Equal(uint64(2)))
	})

	It("should not count waiting for a thread that was not ready", func() {
		switcher.EXPECT().Switch(gomock.Any(), gomock.Any()).AnyTimes()
		a := table.NewThread("a")
		a.Status = thread.Blocked
		a.WaitStart = 3
		now = 50

		s.Schedule(a)

		Expect(a.TotalWait).To(BeZero())
	})

	It("should reap a finished thread after the switch", func() {
		switcher.EXPECT().Switch(gomock.Any(), gomock.Any()).AnyTimes()
		a := table.NewThread("a")
		b := table.NewThread("b")
		s.MoveToReady(a)
		s.Schedule(s.SelectNext())
		s.MoveToReady(b)

		table.MarkExited(a.PID, 0)
		s.Finish(a)
		Expect(a.Status).To(Equal(thread.Finished))
		_, found := table.Get(a.PID)
		Expect(found).To(BeTrue())

		s.Schedule(s.SelectNext())

		_, found = table.Get(a.PID)
		Expect(found).To(BeFalse())
	})

	DescribeTable("finishing a ready thread",
		func(alg Algorithm) {
			newScheduler(alg)
			switcher.EXPECT().Switch(gomock.Any(), gomock.Any()).AnyTimes()
			a := table.NewThread("a")
			b := table.NewThread("b")
			c := table.NewThread("c")
			s.MoveToReady(a)
			s.Schedule(s.SelectNext())
			s.MoveToReady(b)
			s.MoveToReady(c)

			table.MarkExited(b.PID, 1)
			s.Finish(b)
			table.MarkExited(a.PID, 0)
			s.Finish(a)

			Expect(s.NumReady()).To(Equal(1))
			Expect(s.SelectNext()).To(BeIdenticalTo(c))

			s.Schedule(c)

			_, found := table.Get(a.PID)
			Expect(found).To(BeFalse())
			_, found = table.Get(b.PID)
			Expect(found).To(BeFalse())
			Expect(table.Live()).To(ConsistOf(c))
		},
		Entry("FIFO", FIFO),
		Entry("SJF", SJF),
		Entry("round robin", RoundRobin20),
		Entry("UNIX", UNIX33),
	)

	Context("burst accounting", func() {
		It("should refine the SJF estimate", func() {
			newScheduler(SJF)
			t := table.NewThread("a")
			t.BurstStart = 100

			now = 120
			s.EndBurst(t)
			Expect(t.EstimatedBurst).To(Equal(sim.VTimeInTick(10)))
			Expect(s.Stats().EstimationError).To(Equal(sim.VTimeInTick(20)))

			now = 130
			s.EndBurst(t)
			Expect(t.EstimatedBurst).To(Equal(sim.VTimeInTick(10)))
			Expect(s.Stats().EstimationError).To(Equal(sim.VTimeInTick(20)))
			Expect(s.Stats().Bursts).To(Equal(uint64(2)))
			Expect(s.Stats().MinBurst).To(Equal(sim.VTimeInTick(10)))
			Expect(s.Stats().MaxBurst).To(Equal(sim.VTimeInTick(20)))
			Expect(t.CPUTime).To(Equal(sim.VTimeInTick(30)))
		})

		It("should age every live thread under UNIX scheduling", func() {
			newScheduler(UNIX33)
			a := table.NewThread("a")
			a.SetBasePriority(150)
			b := table.NewThread("b")
			b.SetBasePriority(100)
			b.CPUCount = 8
			c := table.NewThread("c")
			c.SetBasePriority(100)
			c.CPUCount = 8
			table.MarkExited(c.PID, 0)

			now = 40
			s.EndBurst(a)

			Expect(a.CPUCount).To(Equal(20))
			Expect(a.Priority).To(Equal(160))
			Expect(b.CPUCount).To(Equal(4))
			Expect(b.Priority).To(Equal(102))
			Expect(c.CPUCount).To(Equal(8))
		})

		It("should ignore empty bursts", func() {
			t := table.NewThread("a")
			s.EndBurst(t)

			Expect(s.Stats().Bursts).To(BeZero())
		})
	})
})
