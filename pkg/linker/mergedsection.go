package linker

import "sort"

// MergedSection gathers every MergeableSection across all input objects
// that share a name into one output section built from deduplicated
// SectionFragments (see mergeablesection.go / sectionfragment.go).
type MergedSection struct {
	Chunk

	// Map dedups fragment content by its string key (the raw bytes for
	// non-string merges, the NUL-terminated string for SHF_STRINGS
	// merges), mirroring the two cases the ELF spec allows for
	// SHF_MERGE sections.
	Map map[string]*SectionFragment
}

func NewMergedSection(name string, flags uint64, typ uint32) *MergedSection {
	m := &MergedSection{
		Chunk: NewChunk(),
		Map:   make(map[string]*SectionFragment),
	}
	m.Name = name
	m.Shdr.Flags = flags
	m.Shdr.Type = typ
	return m
}

// GetMergedSection finds or creates the MergedSection collapsing name's
// usual .rodata.str1.1-style suffix down to its canonical bucket, the
// same collapsing policy GetOutputSection applies to non-mergeable
// sections.
func GetMergedSection(ctx *Context, name string, flags uint64, typ uint32) *MergedSection {
	bucket, _, bucketFlags := outputSectionKey(name, flags, typ)

	for _, m := range ctx.MergedSections {
		if m.Name == bucket && m.Shdr.Type == typ && m.Shdr.Flags == uint64(bucketFlags) {
			return m
		}
	}

	m := NewMergedSection(bucket, uint64(bucketFlags), typ)
	ctx.MergedSections = append(ctx.MergedSections, m)
	return m
}

// Insert returns the fragment for key, creating one (with the given
// p2align) if this is the first input section to contribute it.
func (m *MergedSection) Insert(key string, p2align uint32) *SectionFragment {
	if frag, ok := m.Map[key]; ok {
		if p2align > frag.P2Align {
			frag.P2Align = p2align
		}
		return frag
	}
	frag := NewSecitonFragment(m)
	frag.P2Align = p2align
	m.Map[key] = frag
	return frag
}

// liveKeysSorted returns the content keys of every currently-live
// fragment, in a fixed order, so layout and the final byte copy always
// agree on fragment placement regardless of map iteration order.
func (m *MergedSection) liveKeysSorted() []string {
	keys := make([]string, 0, len(m.Map))
	for key, frag := range m.Map {
		if frag.IsAlive() {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (m *MergedSection) UpdateShdr(ctx *Context) {
	offset := uint64(0)
	for _, key := range m.liveKeysSorted() {
		frag := m.Map[key]
		align := uint64(1) << frag.P2Align
		offset = (offset + align - 1) &^ (align - 1)
		frag.Offset = uint32(offset)
		offset += uint64(len(key))
	}
	m.Shdr.Size = offset
}

func (m *MergedSection) CopyBuf(ctx *Context) {
	base := ctx.Buf[m.Shdr.Offset:]
	for _, key := range m.liveKeysSorted() {
		frag := m.Map[key]
		copy(base[frag.Offset:], key)
	}
}
