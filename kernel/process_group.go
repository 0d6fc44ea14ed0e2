package kernel

import (
	"context"
	"sync"

	"github.com/sysgate/sysgate/log"
	"github.com/sysgate/sysgate/pkg/waiter"
)

// ProcessGroup holds the children of a process until they are reaped.
type ProcessGroup struct {
	mu sync.RWMutex

	processes []*Process
	closed    bool

	events waiter.Waiter
}

func NewProcessGroup() *ProcessGroup {
	pg := &ProcessGroup{}

	return pg
}

// Add returns false once the group has been closed.
func (pg *ProcessGroup) Add(p *Process) bool {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if pg.closed {
		return false
	}

	pg.processes = append(pg.processes, p)

	return true
}

func (pg *ProcessGroup) Remove(p *Process) {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	pg.remove(p)
}

func (pg *ProcessGroup) remove(p *Process) {
	for i, o := range pg.processes {
		if o == p {
			pg.processes = append(pg.processes[:i], pg.processes[i+1:]...)
			return
		}
	}
}

func (pg *ProcessGroup) Len() int {
	pg.mu.RLock()
	defer pg.mu.RUnlock()

	return len(pg.processes)
}

// Close empties the group when its owner exits and returns the orphans.
func (pg *ProcessGroup) Close() []*Process {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	pg.closed = true

	orphans := pg.processes
	pg.processes = nil

	pg.events.Notify(ProcessExitted)

	return orphans
}

const (
	_ waiter.EventType = iota
	ProcessExitted
)

// Reap removes and returns a dead child. With pid 0 any child matches.
// ErrNoChild is returned when no child matches at all. Without block a
// live match yields a nil process.
func (pg *ProcessGroup) Reap(ctx context.Context, pid int, block bool) (*Process, error) {
	if !block {
		return pg.reapOnce(pid)
	}

	c := make(chan struct{}, 1)
	ev := pg.events.RegisterChannel(ProcessExitted, c)
	defer pg.events.Unregister(ev)

	for {
		process, err := pg.reapOnce(pid)
		if err != nil {
			return nil, err
		}

		if process != nil {
			return process, nil
		}

		log.L.Trace("process-waiting-reap", "pid", pid)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c:
			// ok, try the loop again
		}
	}
}

func (pg *ProcessGroup) reapOnce(pid int) (*Process, error) {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	log.L.Trace("process-reap-once", "count", len(pg.processes))

	var matched bool

	for _, p := range pg.processes {
		if pid != 0 && p.Pid != pid {
			continue
		}

		matched = true

		if p.Dead() {
			pg.remove(p)
			return p, nil
		}
	}

	if !matched {
		return nil, ErrNoChild
	}

	return nil, nil
}

// ProcessExitted wakes waiters on the group. It returns false when the
// group is closed and nobody will reap p.
func (pg *ProcessGroup) ProcessExitted(p *Process) bool {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if pg.closed {
		return false
	}

	log.L.Trace("process-exitted", "pid", p.Pid)
	pg.events.Notify(ProcessExitted)

	return true
}
