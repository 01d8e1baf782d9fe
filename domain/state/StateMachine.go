package state

// stateless object, just used for state computing
type StateMachine struct {
	States      []State      `json:"states"`
	Transitions []Transition `json:"transitions"`
}

type Category uint

const (
	InBacklog Category = iota
	InProcess
	Done
)

type State struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

// Transition is triggered by the action carried in Name
type Transition struct {
	Name string `json:"name"`
	From State  `json:"from"`
	To   State  `json:"to"`
}

func NewStateMachine(states []State, transitions []Transition) *StateMachine {
	return &StateMachine{States: states, Transitions: transitions}
}

func (sm *StateMachine) AvailableTransitions(fromState string, toState string) []Transition {
	r := []Transition{}
	for _, transition := range sm.Transitions {
		if (fromState == "" || fromState == transition.From.Name) && (toState == "" || toState == transition.To.Name) {
			r = append(r, transition)
		}
	}
	return r
}

func (sm *StateMachine) FindState(name string) (State, bool) {
	for _, s := range sm.States {
		if s.Name == name {
			return s, true
		}
	}
	return State{}, false
}

// Fire looks up the transition named action leading from fromState to toState.
func (sm *StateMachine) Fire(fromState, action, toState string) (Transition, bool) {
	for _, transition := range sm.AvailableTransitions(fromState, toState) {
		if transition.Name == action {
			return transition, true
		}
	}
	return Transition{}, false
}

// IsFinal reports whether no transition leaves the state.
func (sm *StateMachine) IsFinal(name string) bool {
	s, found := sm.FindState(name)
	if !found {
		return false
	}
	return s.Category == Done || len(sm.AvailableTransitions(name, "")) == 0
}
