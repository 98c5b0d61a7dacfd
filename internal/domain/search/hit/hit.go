package hit

import "github.com/kailas-cloud/lorekeeper/internal/domain/passage"

// Hit is a retrieved passage annotated with its similarity distance (lower is better).
type Hit struct {
	passage  passage.Passage
	distance float64
}

// New creates a hit.
func New(id, text string, metadata passage.Metadata, distance float64) Hit {
	return Hit{passage: passage.New(id, text, metadata), distance: distance}
}

// FromPassage wraps a passage fetched by id with a synthetic distance.
func FromPassage(p passage.Passage, distance float64) Hit {
	return Hit{passage: p, distance: distance}
}

// ID returns the passage identifier.
func (h Hit) ID() string { return h.passage.ID() }

// Text returns the passage text.
func (h Hit) Text() string { return h.passage.Text() }

// Metadata returns the passage metadata.
func (h Hit) Metadata() passage.Metadata { return h.passage.Metadata() }

// Name returns the human-readable passage name.
func (h Hit) Name() string { return h.passage.Metadata().Name() }

// Distance returns the similarity distance.
func (h Hit) Distance() float64 { return h.distance }

// Passage returns the underlying passage.
func (h Hit) Passage() passage.Passage { return h.passage }

// IDs returns the identifiers of hits in order.
func IDs(hits []Hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID()
	}
	return ids
}

// Distances returns the distances of hits in order.
func Distances(hits []Hit) []float64 {
	d := make([]float64, len(hits))
	for i, h := range hits {
		d[i] = h.distance
	}
	return d
}
