package linker

import (
	"math"
	"sync/atomic"
)

type SectionFragment struct {
	OutputSection *MergedSection
	Offset        uint32
	P2Align       uint32

	isAlive atomic.Bool
}

func NewSecitonFragment(m *MergedSection) *SectionFragment {
	return &SectionFragment{
		OutputSection: m,
		Offset:        math.MaxUint32,
	}
}

func (s *SectionFragment) GetAddr() uint64 {
	return s.OutputSection.Shdr.Addr + uint64(s.Offset)
}

// MarkLive flips the fragment live; idempotent across however many
// symbols in however many objects reference the same deduplicated
// content.
func (s *SectionFragment) MarkLive() bool {
	return s.isAlive.CompareAndSwap(false, true)
}

func (s *SectionFragment) IsAlive() bool {
	return s.isAlive.Load()
}
