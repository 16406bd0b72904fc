package boot

// State is a step of the bootloader lifecycle.
type State int32

const (
	StateInit State = iota
	StateEnumerating
	StateRunning
	StateExitRequested
	StateCleanup
	StateAppJump
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateEnumerating:
		return "enumerating"
	case StateRunning:
		return "running"
	case StateExitRequested:
		return "exit-requested"
	case StateCleanup:
		return "cleanup"
	case StateAppJump:
		return "app-jump"
	default:
		return "unknown"
	}
}

// ExitReason tells why the bootloader left the running state.
type ExitReason int32

const (
	ExitNone ExitReason = iota
	ExitTimeout
	ExitRequested
	ExitCancelled
)

func (r ExitReason) String() string {
	switch r {
	case ExitTimeout:
		return "timeout"
	case ExitRequested:
		return "requested"
	case ExitCancelled:
		return "cancelled"
	default:
		return "none"
	}
}
