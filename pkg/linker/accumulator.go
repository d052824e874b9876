package linker

// Accumulator is the per-group output collected while Process runs:
// every InputSection the group's items marked live, every symbol routed
// to copy relocation, and every symbol this group's items exported.
//
// It is touched by exactly one goroutine at a time, the one currently
// holding the owning GroupState under the scheduler's slot protocol, so
// unlike Symbol and InputSection's liveness flags it needs no
// synchronization of its own.
type Accumulator struct {
	GroupIndex    int
	LiveSections  []*InputSection
	CopyRelocated []*Symbol
	Exported      []*Symbol
}

func NewAccumulator(groupIndex int) *Accumulator {
	return &Accumulator{GroupIndex: groupIndex}
}
