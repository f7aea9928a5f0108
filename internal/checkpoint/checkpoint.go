package checkpoint

import (
	"fmt"

	"feed-agent/internal/state"
)

type fileState struct {
	LastProcessedID int64 `json:"last_processed_id"`
}

// Store owns the mention watermark: every mention with id <= Last has been
// processed or permanently skipped. Not safe for concurrent use; the
// Interaction Poller is the single owner.
type Store struct {
	path string
	last int64
}

// Open loads the watermark from path. A missing file means no lower bound.
func Open(path string) (*Store, error) {
	st, err := state.LoadJSONFile[fileState](path)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return &Store{path: path, last: st.LastProcessedID}, nil
}

// Last returns the current watermark.
func (s *Store) Last() int64 {
	return s.last
}

// Advance persists id as the new watermark. Lower or equal ids are no-ops.
// On persistence failure the in-memory value stays unchanged so the durable
// file remains authoritative.
func (s *Store) Advance(id int64) error {
	if id <= s.last {
		return nil
	}
	if err := state.SaveJSONFile(s.path, fileState{LastProcessedID: id}); err != nil {
		return fmt.Errorf("persist checkpoint: %w", err)
	}
	s.last = id
	return nil
}
