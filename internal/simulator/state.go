package simulator

import "fmt"

type State int32

const (
	StateInit State = iota
	StateHealthChecked
	StateProvisioned
	StateConnected
	StateRunning
	StateStopping
	StateDone
)

var stateNames = [...]string{
	StateInit:          "init",
	StateHealthChecked: "health_checked",
	StateProvisioned:   "provisioned",
	StateConnected:     "connected",
	StateRunning:       "running",
	StateStopping:      "stopping",
	StateDone:          "done",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}
