package state_test

import (
	"docflow/domain/state"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("StateMachine", func() {
	var (
		stateMachine *state.StateMachine
		pending      = state.State{Name: "PENDING", Category: state.InBacklog}
		doing        = state.State{Name: "DOING", Category: state.InProcess}
		done         = state.State{Name: "DONE", Category: state.Done}
	)

	BeforeEach(func() {
		//         PENDING      DOING         DONE
		// PENDING   -            V (begin)   V (close)
		// DOING     V (cancel)   V (touch)   V (finish)
		// DONE      X            X           -
		stateMachine = state.NewStateMachine(
			[]state.State{pending, doing, done},
			[]state.Transition{
				{Name: "begin", From: pending, To: doing},
				{Name: "close", From: pending, To: done},
				{Name: "cancel", From: doing, To: pending},
				{Name: "touch", From: doing, To: doing},
				{Name: "finish", From: doing, To: done},
			})
	})

	Describe("FindState", func() {
		It("should find declared states only", func() {
			s, found := stateMachine.FindState("DOING")
			Expect(found).To(BeTrue())
			Expect(s).To(Equal(doing))

			_, found = stateMachine.FindState("UNKNOWN")
			Expect(found).To(BeFalse())
		})
	})

	Describe("AvailableTransitions", func() {
		It("should filter by source state", func() {
			Ω(stateMachine.AvailableTransitions("PENDING", "")).Should(Equal([]state.Transition{
				{Name: "begin", From: pending, To: doing},
				{Name: "close", From: pending, To: done},
			}))
			Ω(stateMachine.AvailableTransitions("DONE", "")).Should(BeEmpty())
			Ω(stateMachine.AvailableTransitions("UNKNOWN", "")).Should(BeEmpty())
		})

		It("should filter by source and target state", func() {
			Ω(stateMachine.AvailableTransitions("DOING", "DONE")).Should(Equal([]state.Transition{
				{Name: "finish", From: doing, To: done},
			}))
			Ω(stateMachine.AvailableTransitions("", "DONE")).Should(HaveLen(2))
		})
	})

	Describe("Permits and Accepts", func() {
		It("should match transition names", func() {
			Expect(stateMachine.Permits("touch", "DOING", "DOING")).To(BeTrue())
			Expect(stateMachine.Permits("touch", "DOING", "DONE")).To(BeFalse())
			Expect(stateMachine.Accepts("begin", "PENDING")).To(BeTrue())
			Expect(stateMachine.Accepts("begin", "DOING")).To(BeFalse())
			Expect(stateMachine.Accepts("finish", "DONE")).To(BeFalse())
		})
	})
})
