package memory

import (
	"context"
	"fmt"
	"sync"

	"weeklykeeper/internal/core"
)

// Store is an in-memory SettlementWriter for tests and local runs.
type Store struct {
	mu   sync.Mutex
	rows []Row
}

// Row is one mirrored settlement.
type Row struct {
	Week       core.WeekData
	Settlement core.Settlement
}

func New() *Store {
	return &Store{}
}

// AppendWeek stores the settlement and returns a synthetic row reference.
func (s *Store) AppendWeek(_ context.Context, week core.WeekData, settlement core.Settlement) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, Row{Week: week, Settlement: settlement})
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Row(nil), s.rows...)
}
