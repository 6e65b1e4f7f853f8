package adapter

// eventAction is a kind of deferred work for the event handler.
type eventAction uint32

const (
	actionRescan eventAction = 1 << iota
)

// notifier coalesces asynchronous work requests. Requests posted while the
// handler is already scheduled only set bits; they never schedule it twice.
// All methods require the gate to be held.
type notifier struct {
	mask     eventAction
	running  bool
	schedule func() // starts the handler outside the gate
}

// add posts actions and schedules the handler if it is idle.
func (n *notifier) add(a eventAction) {
	n.mask |= a
	if !n.running {
		n.running = true
		n.schedule()
	}
}

// done reports whether no work remains, marking the handler idle if so.
func (n *notifier) done() bool {
	if n.mask == 0 {
		n.running = false
		return true
	}
	return false
}

// take tests and clears an action bit.
func (n *notifier) take(a eventAction) bool {
	if n.mask&a == 0 {
		return false
	}
	n.mask &^= a
	return true
}
