package frame

// State is the Driver's position within one frame.
type State int

const (
	StateIdle State = iota
	StateWaitingOnFence
	StateAcquiring
	StateRecording
	StateSubmitting
	StatePresenting
	StateRebuilding
)

var stateNames = [...]string{
	StateIdle:           "idle",
	StateWaitingOnFence: "waiting-on-fence",
	StateAcquiring:      "acquiring",
	StateRecording:      "recording",
	StateSubmitting:     "submitting",
	StatePresenting:     "presenting",
	StateRebuilding:     "rebuilding",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
