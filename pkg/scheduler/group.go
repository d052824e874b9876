package scheduler

// SeedFunc emits a GroupState's initial WorkItems before the pool starts.
// It may call shared.SendWork for cross-group seeds discovered while
// walking the group's own files (e.g. an undefined symbol another group's
// activation already knows is satisfied elsewhere); slots and queues exist
// by the time any SeedFunc runs, so cross-group delivery during activation
// is routed exactly like delivery during steady-state execution.
type SeedFunc func(group *GroupState, shared *SharedResources)

// GroupState is a group's worker: the files it owns, its local queue, and
// an opaque per-group accumulator that Process mutates. Exactly one
// goroutine may touch a GroupState at a time; that exclusivity is enforced
// by the slot protocol in slot.go, not by a lock here.
type GroupState struct {
	// ID indexes this group's WorkerSlot in SharedResources.Slots.
	ID int

	// Files is the ordered collection of file layouts this group owns.
	// The scheduler never looks inside it; it exists so a SeedFunc and
	// Process implementation have somewhere caller-supplied state lives.
	Files []any

	// Accumulator collects this group's outputs (e.g. the set of live
	// input sections). Opaque to the scheduler; Process type-asserts it
	// to whatever concrete type the caller chose.
	Accumulator any

	seed  SeedFunc
	local LocalWorkQueue
}

// NewGroupState constructs a GroupState ready for activation.
func NewGroupState(id int, files []any, accumulator any, seed SeedFunc) *GroupState {
	return &GroupState{
		ID:          id,
		Files:       files,
		Accumulator: accumulator,
		seed:        seed,
	}
}

// Local returns the group's LocalWorkQueue, the only handle Process is
// given for pushing same-group follow-up work.
func (g *GroupState) Local() *LocalWorkQueue {
	return &g.local
}

// activate runs the group's seed procedure. Called once per group, before
// the group is first published to the ready-worker queue.
func (g *GroupState) activate(shared *SharedResources) {
	if g.seed != nil {
		g.seed(g, shared)
	}
}
