package ingest

const (
	// DefaultChunkSize is the sliding window size in runes.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is how many runes consecutive chunks share.
	DefaultChunkOverlap = 200
)

// Chunker splits text blocks into overlapping windows for embedding.
// Sizes are counted in runes so accented text does not split mid-character.
type Chunker struct {
	Size    int
	Overlap int
}

// NewChunker returns a chunker with defaults applied. An overlap that is
// not smaller than the size would never advance; it is clamped.
func NewChunker(size, overlap int) Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size / 2
	}
	return Chunker{Size: size, Overlap: overlap}
}

// Split windows a single block of text. Blocks at most Size runes long come
// back as one chunk.
func (c Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.Size {
		return []string{text}
	}

	step := c.Size - c.Overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.Size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// SplitAll chunks every block, preserving block order.
func (c Chunker) SplitAll(blocks []string) []string {
	var chunks []string
	for _, block := range blocks {
		chunks = append(chunks, c.Split(block)...)
	}
	return chunks
}
