package swapengine

import (
	"github.com/aman-zulfiqar/goblin-executor/internal/metrics"
	"github.com/sirupsen/logrus"
)

// State is a step of the swap lifecycle. CONFIRMED and FAILED are terminal.
type State string

const (
	StateQuoted     State = "QUOTED"
	StateValidating State = "VALIDATING"
	StateBuilding   State = "BUILDING"
	StateSigned     State = "SIGNED"
	StateSubmitted  State = "SUBMITTED"
	StateConfirmed  State = "CONFIRMED"
	StateFailed     State = "FAILED"
)

func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}

// tracker records the transitions of a single swap.
type tracker struct {
	log     *logrus.Entry
	current State
}

func newTracker(log *logrus.Entry) *tracker {
	return &tracker{log: log, current: StateQuoted}
}

func (t *tracker) to(s State) {
	if t.current.Terminal() {
		return
	}
	t.log.WithFields(logrus.Fields{"from": t.current, "state": s}).Info("swap state")
	metrics.SwapStates.WithLabelValues(string(s)).Inc()
	t.current = s
}
