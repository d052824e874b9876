package scheduler

import "sync"

// WorkerSlot is the per-group mailbox coordinating ownership of a
// GroupState and inbound cross-group work. Exactly one slot exists per
// group, indexed by group id. At all times a GroupState is in exactly one
// of: parked in its own slot's worker field, sitting in the ready-worker
// queue, or owned by the pool goroutine currently running it.
type WorkerSlot struct {
	mu     sync.Mutex
	work   []WorkItem
	worker *GroupState
}

// park stores a quiescent GroupState back into its slot. Called only from
// Phase B when the slot's inbound buffer was found empty under the same
// lock acquisition.
func (s *WorkerSlot) park(group *GroupState) {
	s.worker = group
}

// forcePark returns group to its slot unconditionally, under the slot
// lock, discarding no state but also not draining any inbound work that
// may be waiting. Used only on the pool-wide shutdown path (Done()
// observed mid-drain): every driver goroutine is already on its way out
// once that is true, so there is no one left to hand a republished group
// to, and parking it un-drained is the correct terminal state.
func (s *WorkerSlot) forcePark(group *GroupState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.worker = group
}

// forceParkOrRepublish is the Process-error exit path's counterpart to
// forcePark: the pool as a whole keeps running, so a group can't simply
// be abandoned into its slot if a cross-group delivery landed in its
// inbound buffer while it was executing. That item would never be
// picked up again: nothing re-checks a parked slot's work buffer except
// a future deliver(), and deliver() only steals a *parked* worker for
// the *next* item, not this one already sitting in work. So this checks
// work under the same lock acquisition park does:
// if empty, park as normal; if not, leave the slot's worker field nil
// (the group is not parked here) and report true so the caller
// republishes group to ready and unparks an idle goroutine, exactly as
// deliver's caller does when it steals a parked worker.
func (s *WorkerSlot) forceParkOrRepublish(group *GroupState) (republish bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.work) == 0 {
		s.worker = group
		return false
	}
	return true
}

// drainInbound swaps the slot's inbound buffer into dst's local queue
// under one lock acquisition (the batch swap that keeps slot-mutex
// acquisitions O(1) per drain cycle). Returns true if anything was
// transferred.
func (s *WorkerSlot) drainInbound(dst *LocalWorkQueue) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.work) == 0 {
		return false
	}
	dst.extend(s.work)
	s.work = nil
	return true
}

// tryParkOrDrain implements Phase B atomically: under one lock acquisition,
// either the slot's inbound buffer is empty (the group is parked and
// quiescent=true is returned) or it is non-empty (batch-transferred into
// group's local queue, quiescent=false, caller loops back to Phase A).
func (s *WorkerSlot) tryParkOrDrain(group *GroupState) (quiescent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.work) == 0 {
		s.park(group)
		return true
	}
	group.Local().extend(s.work)
	s.work = nil
	return false
}

// deliver is the target-slot half of send_work: steal the parked
// GroupState out, if present, and append item to the inbound buffer, all
// under one lock acquisition. The returned GroupState, if non-nil, must be
// pushed onto the ready-worker queue and followed by an idle-goroutine
// unpark attempt by the caller.
func (s *WorkerSlot) deliver(item WorkItem) (stolen *GroupState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stolen = s.worker
	s.worker = nil
	s.work = append(s.work, item)
	return stolen
}
