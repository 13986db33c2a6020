package mode

// Mode is the match ranking strategy.
type Mode string

// Match mode constants.
const (
	// Semantic ranks by cosine similarity of embedding vectors; the default.
	Semantic Mode = "semantic"
	// Keyword ranks by BM25 over raw text.
	Keyword Mode = "keyword"
	// Hybrid fuses semantic and keyword rankings with RRF.
	Hybrid Mode = "hybrid"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Semantic || m == Keyword || m == Hybrid
}
