package scheduler

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counters is a toy Accumulator: it just records which item IDs were
// processed, so tests can assert exactly-once delivery.
type counters struct {
	mu   sync.Mutex
	seen []WorkItem
}

func (c *counters) record(item WorkItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, item)
}

func (c *counters) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func newTestGroup(id int, seedIDs ...uint32) *GroupState {
	acc := &counters{}
	return NewGroupState(id, nil, acc, func(g *GroupState, shared *SharedResources) {
		for _, id := range seedIDs {
			g.Local().Push(New(LoadSection, id))
		}
	})
}

func accOf(g *GroupState) *counters {
	return g.Accumulator.(*counters)
}

// Scenario 1: single group, five seed items producing none.
func TestScheduler_SingleGroupFiveSeeds(t *testing.T) {
	g0 := newTestGroup(0, 1, 2, 3, 4, 5)
	shared := NewSharedResources(1, 2, nil, Collaborators{})

	process := func(item WorkItem, group *GroupState, shared *SharedResources) error {
		accOf(group).record(item)
		return nil
	}

	pool := NewPool(2, []*GroupState{g0}, process, shared)
	errs := pool.Run()

	assert.Nil(t, errs)
	assert.Equal(t, 5, accOf(g0).count())
}

// Scenario 2: two groups, cross-delivery. process(X) sends Y to G1;
// process(Y) is a no-op.
func TestScheduler_CrossGroupDelivery(t *testing.T) {
	g0 := newTestGroup(0, 100) // X
	g1 := newTestGroup(1)      // seeded empty, receives Y via send_work
	shared := NewSharedResources(2, 2, nil, Collaborators{})

	process := func(item WorkItem, group *GroupState, shared *SharedResources) error {
		accOf(group).record(item)
		if group.ID == 0 && item.ID == 100 {
			shared.SendWork(1, New(LoadGlobalSymbol, 200)) // Y
		}
		return nil
	}

	pool := NewPool(2, []*GroupState{g0, g1}, process, shared)
	errs := pool.Run()

	assert.Nil(t, errs)
	assert.Equal(t, 1, accOf(g0).count())
	require.Equal(t, 1, accOf(g1).count())
	assert.Equal(t, uint32(200), accOf(g1).seen[0].ID)
}

// Scenario 3: fan-out. root emits c1, c2, c3 same-group, each a no-op.
func TestScheduler_FanOut(t *testing.T) {
	g0 := newTestGroup(0, 1) // root
	shared := NewSharedResources(1, 4, nil, Collaborators{})

	process := func(item WorkItem, group *GroupState, shared *SharedResources) error {
		accOf(group).record(item)
		if item.ID == 1 {
			group.Local().Push(New(LoadSection, 2))
			group.Local().Push(New(LoadSection, 3))
			group.Local().Push(New(LoadSection, 4))
		}
		return nil
	}

	pool := NewPool(4, []*GroupState{g0}, process, shared)
	errs := pool.Run()

	assert.Nil(t, errs)
	assert.Equal(t, 4, accOf(g0).count())
}

// Scenario 4: error in one group does not block another.
func TestScheduler_ErrorIsolatedToGroup(t *testing.T) {
	g0 := newTestGroup(0, 1) // "err"
	g1 := newTestGroup(1, 2) // "ok"
	shared := NewSharedResources(2, 2, nil, Collaborators{})

	sentinel := fmt.Errorf("boom")
	process := func(item WorkItem, group *GroupState, shared *SharedResources) error {
		if group.ID == 0 {
			return sentinel
		}
		accOf(group).record(item)
		return nil
	}

	pool := NewPool(2, []*GroupState{g0, g1}, process, shared)
	errs := pool.Run()

	require.NotNil(t, errs)
	assert.Len(t, errs.Errors, 1)
	assert.ErrorIs(t, errs.Errors[0], sentinel)
	assert.Equal(t, 1, accOf(g1).count())
}

// Scenario 5: panic triggers global shutdown; no goroutine is left
// parked, and the panic is surfaced to the caller.
func TestScheduler_PanicShutsDownPool(t *testing.T) {
	g0 := newTestGroup(0, 1) // "boom", panics
	var g1Seeds, g2Seeds []uint32
	for i := uint32(2); i < 5000; i++ {
		g1Seeds = append(g1Seeds, i)
	}
	for i := uint32(5000); i < 10000; i++ {
		g2Seeds = append(g2Seeds, i)
	}
	g1 := newTestGroup(1, g1Seeds...)
	g2 := newTestGroup(2, g2Seeds...)
	shared := NewSharedResources(3, 3, nil, Collaborators{})

	var processed atomic.Int64
	process := func(item WorkItem, group *GroupState, shared *SharedResources) error {
		if group.ID == 0 {
			panic("boom")
		}
		processed.Add(1)
		accOf(group).record(item)
		return nil
	}

	pool := NewPool(3, []*GroupState{g0, g1, g2}, process, shared)

	done := make(chan struct{})
	var recovered any
	go func() {
		defer close(done)
		defer func() { recovered = recover() }()
		pool.Run()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool did not join after panic; a goroutine is likely stranded")
	}

	assert.Equal(t, "boom", recovered)
	assert.True(t, shared.Done())
	// Bounded completion: the panic must have cut the run well short of
	// the ~10000 total seeded items across g1/g2.
	assert.Less(t, processed.Load(), int64(9998))
}

// Scenario 6: quiescence race. G0 sleeps briefly then sends late work to
// G1; the pool must not shut down between G0's finish and late's
// processing.
func TestScheduler_QuiescenceRace(t *testing.T) {
	g0 := newTestGroup(0, 1) // "slow"
	g1 := newTestGroup(1)    // initially empty
	shared := NewSharedResources(2, 2, nil, Collaborators{})

	var lateProcessed atomic.Bool
	process := func(item WorkItem, group *GroupState, shared *SharedResources) error {
		if group.ID == 0 && item.ID == 1 {
			time.Sleep(20 * time.Millisecond)
			shared.SendWork(1, New(LoadGlobalSymbol, 999)) // "late"
			return nil
		}
		if group.ID == 1 && item.ID == 999 {
			lateProcessed.Store(true)
		}
		accOf(group).record(item)
		return nil
	}

	pool := NewPool(2, []*GroupState{g0, g1}, process, shared)
	errs := pool.Run()

	assert.Nil(t, errs)
	assert.True(t, lateProcessed.Load())
}

// Boundary: zero groups joins promptly: the workers that register idle
// are unparked by the last worker's shutdown, and process never runs.
func TestScheduler_ZeroGroups(t *testing.T) {
	shared := NewSharedResources(0, 3, nil, Collaborators{})
	process := func(item WorkItem, group *GroupState, shared *SharedResources) error {
		t.Fatal("process should never be invoked with zero groups")
		return nil
	}

	pool := NewPool(3, nil, process, shared)

	done := make(chan struct{})
	go func() {
		defer close(done)
		pool.Run()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool with zero groups did not join")
	}
}

// Boundary: N = 1 degenerates to a single-goroutine drainer.
func TestScheduler_SingleWorker(t *testing.T) {
	g0 := newTestGroup(0, 1, 2, 3)
	shared := NewSharedResources(1, 1, nil, Collaborators{})

	process := func(item WorkItem, group *GroupState, shared *SharedResources) error {
		accOf(group).record(item)
		return nil
	}

	pool := NewPool(1, []*GroupState{g0}, process, shared)
	errs := pool.Run()

	assert.Nil(t, errs)
	assert.Equal(t, 3, accOf(g0).count())
}

// Identity process on a pre-seeded input: no new work, no errors,
// GroupStates come back unmodified beyond their seeded accumulator state.
func TestScheduler_IdentityProcessTerminates(t *testing.T) {
	g0 := newTestGroup(0, 1, 2)
	g1 := newTestGroup(1, 3)
	shared := NewSharedResources(2, 2, nil, Collaborators{})

	process := func(item WorkItem, group *GroupState, shared *SharedResources) error {
		return nil
	}

	pool := NewPool(2, []*GroupState{g0, g1}, process, shared)
	errs := pool.Run()

	assert.Nil(t, errs)
	assert.Equal(t, 0, accOf(g0).count())
	assert.Equal(t, 0, accOf(g1).count())
}

// Independent runs do not leak state through any hidden global.
func TestScheduler_IndependentRunsDoNotLeak(t *testing.T) {
	run := func(seed uint32) *counters {
		g0 := newTestGroup(0, seed)
		shared := NewSharedResources(1, 2, nil, Collaborators{})
		process := func(item WorkItem, group *GroupState, shared *SharedResources) error {
			accOf(group).record(item)
			return nil
		}
		pool := NewPool(2, []*GroupState{g0}, process, shared)
		pool.Run()
		return accOf(g0)
	}

	a := run(1)
	b := run(2)

	require.Len(t, a.seen, 1)
	require.Len(t, b.seen, 1)
	assert.Equal(t, uint32(1), a.seen[0].ID)
	assert.Equal(t, uint32(2), b.seen[0].ID)
}
