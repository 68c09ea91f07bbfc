package pipeline

// State is the orchestrator's position in the run lifecycle. States
// advance monotonically within a run; Failed is terminal.
type State string

const (
	StateIdle      State = "idle"
	StateChecking  State = "checking for updates"
	StateNoChange  State = "no change"
	StateExtract   State = "extracting"
	StateCleaning  State = "cleaning"
	StateMerging   State = "merging"
	StateLoading   State = "loading"
	StateNotifying State = "notifying"
	StateFailed    State = "failed"
)
