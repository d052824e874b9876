package scheduler

import (
	"sync"

	"github.com/hashicorp/go-multierror"
)

// ProcessFunc implements work-item semantics. It is the external
// collaborator the scheduler treats as a black box: it may push
// same-group items onto group.Local(), request cross-group delivery via
// shared.SendWork, and report errors via shared.ReportError. It must never
// park goroutines, touch slots directly, or block.
type ProcessFunc func(item WorkItem, group *GroupState, shared *SharedResources) error

// Pool is the fixed goroutine pool that drives every GroupState to
// quiescence. Construct one with NewPool, then call Run.
type Pool struct {
	numWorkers int
	groups     []*GroupState
	process    ProcessFunc
	shared     *SharedResources
}

// NewPool builds a Pool over groups, to be driven by numWorkers goroutines
// calling process for every WorkItem. shared must come from
// NewSharedResources sized with len(groups) and numWorkers.
func NewPool(numWorkers int, groups []*GroupState, process ProcessFunc, shared *SharedResources) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool{
		numWorkers: numWorkers,
		groups:     groups,
		process:    process,
		shared:     shared,
	}
}

// Run activates every group, drives the pool to quiescence, and returns
// the aggregated item errors (nil if none). It panics after every
// goroutine has joined if any seed procedure or Process invocation
// panicked, re-raising the first panic value observed.
func (p *Pool) Run() *multierror.Error {
	p.activate()

	var wg sync.WaitGroup
	wg.Add(p.numWorkers)
	for i := 0; i < p.numWorkers; i++ {
		go p.driver(&wg)
	}
	wg.Wait()

	if p.shared.panicValue != nil {
		panic(p.shared.panicValue)
	}
	return p.shared.errors()
}

// activate seeds every group's local queue in parallel (no two groups
// share a local queue, so this is embarrassingly parallel) and publishes
// every GroupState to the ready-worker queue once seeded.
func (p *Pool) activate() {
	var wg sync.WaitGroup
	wg.Add(len(p.groups))
	for _, g := range p.groups {
		g := g
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					p.shared.recordPanic(r)
					p.shared.shutDown()
				}
			}()
			g.activate(p.shared)
			p.shared.pushReady(g)
		}()
	}
	wg.Wait()
}

// driver is the per-goroutine scheduler loop, run until done is
// set. It carries a panic barrier so no goroutine is left parked if
// process (or an internal bug) panics.
func (p *Pool) driver(wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.shared.recordPanic(r)
			p.shared.shutDown()
		}
	}()

	handle := newParkHandle()
	idle := false

	for {
		if p.shared.Done() {
			return
		}

		group, ok := p.shared.popReady()
		if ok {
			idle = false
			p.runWorker(group)
			continue
		}

		if !idle {
			if p.shared.idle.tryPush(handle) {
				idle = true
				continue // mandatory re-poll while registered idle
			}
			// idleGoroutines is full: this goroutine is the last
			// non-idle one and readyWorkers was just observed
			// empty, so the pool has reached global quiescence.
			p.shared.shutDown()
			return
		}

		<-handle.wake
		// Whatever woke us (SendWork's unpark, ShutDown's drainAll, or
		// a spurious wake) already popped our handle out of the idle
		// queue: tryPop removes before it ever calls unpark. So our
		// registration is gone regardless of why we woke, and if we
		// loop around to find readyWorkers still empty we must
		// tryPush a fresh registration before parking again, not fall
		// straight back to this receive with a handle nothing can
		// unpark anymore. Reset idle so the loop head takes the
		// tryPush branch.
		idle = false
	}
}

// runWorker alternates Phase A (drain local queue) and Phase B (check
// inbound) until the group is quiescent and its slot has no pending
// inbound work.
func (p *Pool) runWorker(group *GroupState) {
	for {
		for {
			if p.shared.Done() {
				// A panic elsewhere, or ReportError with FailFast
				// set, called shutDown mid-drain: stop making
				// progress on this group too rather than draining
				// it to completion first. The natural quiescence
				// path never observes Done() here because it only
				// calls shutDown once every group is parked.
				p.shared.Slots[group.ID].forcePark(group)
				return
			}
			item, ok := group.Local().pop()
			if !ok {
				break
			}
			if err := p.process(item, group, p.shared); err != nil {
				p.shared.ReportError(err)
				// This group stops making progress on its
				// remaining local items; others continue. But a
				// cross-group delivery may have landed in this
				// slot's inbound buffer while we were running
				// (deliver() found no parked worker to steal, so
				// it just appended). forceParkOrRepublish checks
				// for that under the slot lock and, if so, hands
				// the group back to ready instead of parking it,
				// the same as SendWork does when it steals a
				// parked worker.
				if p.shared.Slots[group.ID].forceParkOrRepublish(group) {
					p.shared.pushReady(group)
					if h, ok := p.shared.idle.tryPop(); ok {
						h.unpark()
					}
				}
				return
			}
		}

		if quiescent := p.shared.Slots[group.ID].tryParkOrDrain(group); quiescent {
			return
		}
		// slot had inbound work, now transferred into the local
		// queue; loop back to Phase A.
	}
}
