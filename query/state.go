package query

import "fmt"

// State is the pattern assembly state of a Builder.
type State uint8

// Builder states.
const (
	// StateEmpty is the initial state: nothing is bound yet.
	StateEmpty State = iota
	// StateMatching has at least one bound node and no pending edge.
	StateMatching
	// StateHasEdge has an edge bound and awaits its terminal node.
	StateHasEdge
	// StateExpectEdge has a terminal node bound, ready for the next edge
	// or another pattern component.
	StateExpectEdge
	// StateExecuted is terminal, entered by Result.
	StateExecuted
)

var stateNames = [...]string{
	StateEmpty:      "EMPTY",
	StateMatching:   "MATCHING",
	StateHasEdge:    "HAS_EDGE",
	StateExpectEdge: "EXPECT_EDGE",
	StateExecuted:   "EXECUTED",
}

// String returns the state name.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// action groups builder methods by their effect on the state.
type action uint8

const (
	actMatch    action = iota // Match, MatchOrCreate
	actEdge                   // ConnectedThrough
	actEnd                    // To, By
	actWhere                  // Where
	actSchedule               // Create, Update, Delete and the result modifiers
)

// transitions holds the next state of every legal (state, action) pair.
var transitions = map[State]map[action]State{
	StateEmpty: {
		actMatch:    StateMatching,
		actSchedule: StateEmpty,
	},
	StateMatching: {
		actMatch:    StateMatching,
		actEdge:     StateHasEdge,
		actWhere:    StateMatching,
		actSchedule: StateMatching,
	},
	StateHasEdge: {
		actEnd:      StateExpectEdge,
		actWhere:    StateHasEdge,
		actSchedule: StateHasEdge,
	},
	StateExpectEdge: {
		actMatch:    StateMatching,
		actEdge:     StateHasEdge,
		actWhere:    StateExpectEdge,
		actSchedule: StateExpectEdge,
	},
}

// next returns the state following a, and false if a is illegal in s.
func (s State) next(a action) (State, bool) {
	n, ok := transitions[s][a]
	return n, ok
}
