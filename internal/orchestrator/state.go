package orchestrator

// State is the phase of a single analysis invocation.
type State int

const (
	StateIdle State = iota
	StateExtracting
	StateInjecting
	StateExtracted
	StateAnalyzing
	StateSucceeded
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracting:
		return "extracting"
	case StateInjecting:
		return "injecting"
	case StateExtracted:
		return "extracted"
	case StateAnalyzing:
		return "analyzing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the workflow is finished in this state.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Progress receives user-visible phase changes. Message is non-empty only
// for failures.
type Progress func(state State, message string)
