package linker

import "sort"

// MergeableSection is the split view of one SHF_MERGE|SHF_STRINGS input
// section: its original bytes were NUL-split at parse time into entries,
// each deduplicated into a SectionFragment of the bucket's MergedSection.
// A symbol defined inside one of these sections no longer names a live
// InputSection (there is no section body left to schedule a LoadSection
// for); it names an offset into this split view, resolved against
// FragOffsets to the one fragment that offset falls in.
type MergeableSection struct {
	Parent      *MergedSection
	P2Align     uint8
	Strs        []string
	FragOffsets []uint32
	Fragments   []*SectionFragment
}

// GetFragment resolves offset (a symbol's Value within the original,
// pre-split section) to the fragment it falls in and that fragment's own
// local offset. FragOffsets is built in ascending order at parse time, so
// a binary search finds the last entry at or before offset.
func (m *MergeableSection) GetFragment(offset uint32) (*SectionFragment, uint32) {
	pos := sort.Search(len(m.FragOffsets), func(i int) bool {
		return offset < m.FragOffsets[i]
	})

	if pos == 0 {
		return nil, 0
	}

	return m.Fragments[pos-1], offset - m.FragOffsets[pos-1]
}

// MarkLiveAt resolves offset to its fragment and marks that fragment
// live, the one-step operation LoadGlobalSymbol resolution needs: a
// symbol whose defining section is mergeable never gets its own
// LoadSection item, so this is the only path that keeps its content in
// the output. Reports false if offset falls before every known fragment
// (should not happen for a symbol that actually belongs to this section).
func (m *MergeableSection) MarkLiveAt(offset uint32) bool {
	frag, _ := m.GetFragment(offset)
	if frag == nil {
		return false
	}
	return frag.MarkLive()
}
