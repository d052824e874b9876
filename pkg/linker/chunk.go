package linker

// Chunker is anything that occupies a contiguous range of the output
// file: a named section or a synthetic header. UpdateShdr fixes up the
// section header once addresses are known; CopyBuf copies the chunk's
// bytes into the output buffer at its assigned offset.
type Chunker interface {
	GetShdr() *SectionHeader
	GetShndx() int64
	UpdateShdr(ctx *Context)
	CopyBuf(ctx *Context)
}

type Chunk struct {
	Name  string
	Shdr  SectionHeader
	Shndx int64
}

func NewChunk() Chunk {
	return Chunk{
		Shdr: SectionHeader{
			Addralign: 1,
		},
	}
}

func (c *Chunk) GetShdr() *SectionHeader {
	return &c.Shdr
}

func (c *Chunk) GetShndx() int64 {
	return c.Shndx
}

// UpdateShdr is a no-op default; chunks whose size depends on context
// state (OutputShdr, OutputPhdr, MergedSection) override it.
func (c *Chunk) UpdateShdr(ctx *Context) {}
