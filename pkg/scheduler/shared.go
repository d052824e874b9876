package scheduler

import (
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/hayabusa-cloud/lfq"
	"go.uber.org/zap"
)

// Collaborators groups the immutable, process-wide handles to external
// collaborators SharedResources carries on behalf of the domain layer;
// it holds a single handle, the symbol database. The
// scheduler never inspects Collaborators itself; it only carries the
// pointer so Process can reach it through SharedResources.
type Collaborators struct {
	// SymbolDB is the caller's process-wide symbol table handle (in the
	// domain layer, a *linker.Context). Opaque to the scheduler.
	SymbolDB any
}

// SharedResources is the single process-wide coordination object borrowed
// by every pool goroutine for the duration of one pool run: the
// ready-worker queue, the idle-goroutine queue, the shutdown flag, the
// error sink, and the caller's collaborator handles.
type SharedResources struct {
	Slots []WorkerSlot

	// ready is built with lfq's Compact() (sequence-based) mode rather
	// than the FAA/SCQ default: the default's threshold mechanism can
	// leave Dequeue returning ErrWouldBlock with a GroupState still
	// queued until a producer's next Enqueue bumps it, which would let
	// every thread observe "empty" and shut down while a runnable group
	// still sat in ready (see idlequeue.go's idleQueue doc for the same
	// reasoning applied to the idle-goroutine queue).
	ready lfq.Queue[*GroupState]
	idle  *idleQueue

	done atomic.Bool

	errMu sync.Mutex
	errs  *multierror.Error

	shutdownOnce sync.Once

	panicMu    sync.Mutex
	panicValue any

	Logger        *zap.SugaredLogger
	Collaborators Collaborators

	// FailFast is an extension point: the default (false) is "accumulate
	// and continue until natural quiescence". Setting it makes
	// ReportError also call shutDown, trading completeness for
	// turnaround on the first error.
	FailFast bool
}

// NewSharedResources builds the coordination object for a pool of
// numWorkers goroutines operating over numGroups groups.
func NewSharedResources(numGroups, numWorkers int, logger *zap.SugaredLogger, collaborators Collaborators) *SharedResources {
	readyCap := numGroups
	if readyCap < 2 {
		readyCap = 2
	}
	idleCap := numWorkers - 1

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &SharedResources{
		Slots:         make([]WorkerSlot, numGroups),
		ready:         lfq.BuildMPMC[*GroupState](lfq.New(readyCap).Compact()),
		idle:          newIdleQueue(idleCap),
		Logger:        logger,
		Collaborators: collaborators,
	}
}

// Done reports whether ShutDown has run.
func (s *SharedResources) Done() bool {
	return s.done.Load()
}

// pushReady publishes a quiescent-or-newly-seeded GroupState to the
// ready-worker queue. Callers: Activation (initial publish), deliver's
// caller (re-publish after stealing a parked worker), and runWorker's
// Process-error exit (re-publish when inbound work is waiting).
func (s *SharedResources) pushReady(group *GroupState) {
	if err := s.ready.Enqueue(&group); err != nil {
		// The ready queue is sized to the group count and a GroupState
		// occupies at most one slot at a time, so this would mean an
		// invariant was violated elsewhere.
		s.Logger.Errorf("scheduler: group %d could not be published to ready queue: %v", group.ID, err)
		s.fatal("ready-worker queue overflow: a GroupState was published twice")
	}
}

// popReady pops a runnable GroupState, if any.
func (s *SharedResources) popReady() (*GroupState, bool) {
	group, err := s.ready.Dequeue()
	if err != nil {
		return nil, false
	}
	return group, true
}

// SendWork delivers item to targetGroupID, the cross-group half of a
// process function's observable effects. If the target was parked, it is
// re-published to the ready-worker queue and an idle goroutine is
// unparked; otherwise the target is already ready or running and will
// observe item at its next Phase B.
func (s *SharedResources) SendWork(targetGroupID int, item WorkItem) {
	if targetGroupID < 0 || targetGroupID >= len(s.Slots) {
		s.fatal("send_work: group id out of range")
		return
	}
	slot := &s.Slots[targetGroupID]
	stolen := slot.deliver(item)
	if stolen == nil {
		return
	}
	s.pushReady(stolen)
	if h, ok := s.idle.tryPop(); ok {
		h.unpark()
	}
}

// ReportError appends a non-fatal item error to the shared sink. Collected
// into the caller-visible *multierror.Error, never short-circuited unless
// FailFast is set.
func (s *SharedResources) ReportError(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	s.errs = multierror.Append(s.errs, err)
	s.errMu.Unlock()
	s.Logger.Warnw("item error reported", "error", err)
	if s.FailFast {
		s.shutDown()
	}
}

// errors returns the aggregated error collection, nil if none were
// reported.
func (s *SharedResources) errors() *multierror.Error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.errs
}

// shutDown sets done and drains every currently-parked goroutine. Safe to
// call concurrently from multiple goroutines (the natural-termination
// path and a panic barrier can race) and from any goroutine at any time.
func (s *SharedResources) shutDown() {
	s.shutdownOnce.Do(func() {
		s.done.Store(true)
		s.idle.drainAll()
	})
}

// recordPanic stashes the first panic value seen across the pool so Run
// can re-raise it after every goroutine has joined.
func (s *SharedResources) recordPanic(v any) {
	s.panicMu.Lock()
	defer s.panicMu.Unlock()
	if s.panicValue == nil {
		s.panicValue = v
	}
}

// fatal reports a programmer-invariant violation. These are not part of
// the item-error taxonomy; they abort the process once logged, matching
// the teacher's utils.Fatal pattern but routed through the structured
// logger instead of a raw stderr print.
func (s *SharedResources) fatal(msg string) {
	s.Logger.Fatal(msg)
}
