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
	Rejected
)

type State struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

type Transition struct {
	Name string `json:"name"`
	From State  `json:"from"`
	To   State  `json:"to"`
}

func NewStateMachine(states []State, transitions []Transition) *StateMachine {
	return &StateMachine{States: states, Transitions: transitions}
}

func (sm *StateMachine) FindState(name string) (State, bool) {
	for _, s := range sm.States {
		if s.Name == name {
			return s, true
		}
	}
	return State{}, false
}

// AvailableTransitions filters transitions by source and target, an empty name matches any state.
func (sm *StateMachine) AvailableTransitions(fromState string, toState string) []Transition {
	r := []Transition{}
	for _, transition := range sm.Transitions {
		if (fromState == "" || fromState == transition.From.Name) && (toState == "" || toState == transition.To.Name) {
			r = append(r, transition)
		}
	}
	return r
}

// Permits reports whether the named transition may move fromState to toState.
func (sm *StateMachine) Permits(name, fromState, toState string) bool {
	for _, transition := range sm.AvailableTransitions(fromState, toState) {
		if transition.Name == name {
			return true
		}
	}
	return false
}

// Accepts reports whether any transition with the given name leaves fromState.
func (sm *StateMachine) Accepts(name, fromState string) bool {
	return sm.Permits(name, fromState, "")
}
