package sqlitestore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math"

	"github.com/kailas-cloud/lorekeeper/internal/domain/passage"
)

// put writes a passage row the way the indexer does.
func (s *Store) put(ctx context.Context, p passage.Passage, vector []float32) error {
	md := p.Metadata()
	if md == nil {
		md = passage.Metadata{}
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO passages (id, text, metadata, vector) VALUES (?, ?, ?, ?)`,
		p.ID(), p.Text(), string(raw), encodeVector(vector),
	)
	return err
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
