// Package records persists captured leads and per-call records.
package records

import (
	"context"
	"sync"
	"time"
)

// Lead is a caller's captured contact details plus what they wanted.
type Lead struct {
	CapturedAt time.Time
	CallSID    string
	Name       string
	Phone      string
	Email      string
	Topic      string
}

// CallRecord is the post-call log row: who called, for how long, the
// summary, and the full transcript.
type CallRecord struct {
	EndedAt      time.Time
	CallSID      string
	Duration     time.Duration
	ContactName  string
	ContactPhone string
	ContactEmail string
	Summary      string
	ActionItems  string
	Transcript   string
}

// Store appends leads and call records. Appends are independent; a failed
// lead write never blocks a call record write.
type Store interface {
	AppendLead(ctx context.Context, lead Lead) error
	AppendCallRecord(ctx context.Context, rec CallRecord) error
}

// MemoryStore keeps rows in memory. Used in tests and when no database is
// configured.
type MemoryStore struct {
	mu      sync.Mutex
	leads   []Lead
	records []CallRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) AppendLead(ctx context.Context, lead Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = append(s.leads, lead)
	return nil
}

func (s *MemoryStore) AppendCallRecord(ctx context.Context, rec CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Leads returns a copy of the stored leads.
func (s *MemoryStore) Leads() []Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Lead, len(s.leads))
	copy(out, s.leads)
	return out
}

// CallRecords returns a copy of the stored call records.
func (s *MemoryStore) CallRecords() []CallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CallRecord, len(s.records))
	copy(out, s.records)
	return out
}

var _ Store = (*MemoryStore)(nil)
