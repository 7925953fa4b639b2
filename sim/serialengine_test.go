package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("SerialEngine", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *SerialEngine
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewSerialEngine()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	mockEvent := func(t VTimeInTick, h Handler, secondary bool) *MockEvent {
		evt := NewMockEvent(mockCtrl)
		evt.EXPECT().Time().Return(t).AnyTimes()
		evt.EXPECT().Handler().Return(h).AnyTimes()
		evt.EXPECT().IsSecondary().Return(secondary).AnyTimes()

		return evt
	}

	It("should schedule events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		evt1 := mockEvent(4, handler1, false)
		evt2 := mockEvent(2, handler2, false)
		evt3 := mockEvent(3, handler1, false)
		evt4 := mockEvent(5, handler1, false)

		handleEvt2 := handler2.EXPECT().Handle(evt2).Do(func(e Event) {
			engine.Schedule(evt3)
			engine.Schedule(evt4)
		})
		handleEvt3 := handler1.EXPECT().Handle(evt3).After(handleEvt2)
		handleEvt1 := handler1.EXPECT().Handle(evt1).After(handleEvt3)
		handler1.EXPECT().Handle(evt4).After(handleEvt1)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(VTimeInTick(5)))
	})

	It("should consider secondary events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		handler3 := NewMockHandler(mockCtrl)
		evt1 := mockEvent(2, handler1, true)
		evt2 := mockEvent(2, handler2, false)
		evt3 := mockEvent(2, handler3, false)

		handleEvt2 := handler2.EXPECT().Handle(evt2)
		handleEvt3 := handler3.EXPECT().Handle(evt3)
		handler1.EXPECT().
			Handle(evt1).
			After(handleEvt2).
			After(handleEvt3)

		engine.Schedule(evt1)
		engine.Schedule(evt2)
		engine.Schedule(evt3)

		Expect(engine.Run()).To(Succeed())
	})

	It("should run same-tick events in scheduling order", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEvent(7, handler, false)
		evt2 := mockEvent(7, handler, false)
		evt3 := mockEvent(7, handler, false)

		gomock.InOrder(
			handler.EXPECT().Handle(evt1),
			handler.EXPECT().Handle(evt2),
			handler.EXPECT().Handle(evt3),
		)

		engine.Schedule(evt1)
		engine.Schedule(evt2)
		engine.Schedule(evt3)

		Expect(engine.Run()).To(Succeed())
	})

	It("should panic when scheduling into the past", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEvent(10, handler, false)
		evt2 := mockEvent(3, handler, false)

		handler.EXPECT().Handle(evt1).Do(func(e Event) {
			Expect(func() { engine.Schedule(evt2) }).To(Panic())
		})

		engine.Schedule(evt1)

		Expect(engine.Run()).To(Succeed())
	})

	It("should stop at the first handler error", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := mockEvent(1, handler, false)
		evt2 := mockEvent(2, handler, false)

		handler.EXPECT().Handle(evt1).Return(errTest)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		Expect(engine.Run()).To(MatchError(errTest))
	})

	It("should invoke hooks around each event", func() {
		handler := NewMockHandler(mockCtrl)
		hook := NewMockHook(mockCtrl)
		evt := mockEvent(1, handler, false)

		engine.AcceptHook(hook)

		gomock.InOrder(
			hook.EXPECT().Func(gomock.Any()).Do(func(ctx HookCtx) {
				Expect(ctx.Pos).To(BeIdenticalTo(HookPosBeforeEvent))
				Expect(ctx.Item).To(BeIdenticalTo(evt))
			}),
			handler.EXPECT().Handle(evt),
			hook.EXPECT().Func(gomock.Any()).Do(func(ctx HookCtx) {
				Expect(ctx.Pos).To(BeIdenticalTo(HookPosAfterEvent))
			}),
		)

		engine.Schedule(evt)

		Expect(engine.Run()).To(Succeed())
	})

	It("should call simulation end handlers", func() {
		var endedAt VTimeInTick
		engine.RegisterSimulationEndHandler(endHandlerFunc(func(now VTimeInTick) {
			endedAt = now
		}))

		handler := NewMockHandler(mockCtrl)
		evt := mockEvent(42, handler, false)
		handler.EXPECT().Handle(evt)
		engine.Schedule(evt)

		Expect(engine.Run()).To(Succeed())
		engine.Finished()

		Expect(endedAt).To(Equal(VTimeInTick(42)))
	})
})

type endHandlerFunc func(now VTimeInTick)

func (f endHandlerFunc) Handle(now VTimeInTick) {
	f(now)
}
