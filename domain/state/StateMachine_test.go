package state_test

import (
	"openpka/domain/state"

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
		// DOING     V (cancel)   -           V (finish)
		// DONE      X            X           -
		stateMachine = state.NewStateMachine(
			[]state.State{pending, doing, done},
			[]state.Transition{
				{Name: "begin", From: pending, To: doing},
				{Name: "close", From: pending, To: done},
				{Name: "cancel", From: doing, To: pending},
				{Name: "finish", From: doing, To: done},
			})
	})

	Describe("AvailableTransitions", func() {
		It("should filter transitions by source and target", func() {
			Ω(stateMachine.AvailableTransitions("PENDING", "")).Should(Equal([]state.Transition{
				{Name: "begin", From: pending, To: doing},
				{Name: "close", From: pending, To: done},
			}))
			Ω(stateMachine.AvailableTransitions("", "DONE")).Should(Equal([]state.Transition{
				{Name: "close", From: pending, To: done},
				{Name: "finish", From: doing, To: done},
			}))
			Ω(stateMachine.AvailableTransitions("DONE", "")).Should(BeEmpty())
			Ω(stateMachine.AvailableTransitions("UNKNOWN", "")).Should(BeEmpty())
		})
	})

	Describe("Fire", func() {
		It("should find the transition carrying the action", func() {
			tr, ok := stateMachine.Fire("DOING", "finish", "DONE")
			Ω(ok).Should(BeTrue())
			Ω(tr).Should(Equal(state.Transition{Name: "finish", From: doing, To: done}))
		})
		It("should reject actions not leading to the target", func() {
			_, ok := stateMachine.Fire("DOING", "begin", "DOING")
			Ω(ok).Should(BeFalse())
			_, ok = stateMachine.Fire("DONE", "cancel", "PENDING")
			Ω(ok).Should(BeFalse())
		})
	})

	Describe("IsFinal", func() {
		It("should treat done states as final", func() {
			Ω(stateMachine.IsFinal("DONE")).Should(BeTrue())
			Ω(stateMachine.IsFinal("DOING")).Should(BeFalse())
			Ω(stateMachine.IsFinal("UNKNOWN")).Should(BeFalse())
		})
	})
})
