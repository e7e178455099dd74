// Package callstatus tracks the lifecycle status of active calls in Redis so
// the call-routing webhooks can decide between transfer and hangup.
package callstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StatusActive              = "active"
	StatusEscalationRequested = "escalation_requested"
	StatusFinished            = "finished"
)

const (
	statusKeyPrefix = "call:status:"
	statusTTL       = 4 * time.Hour
)

// CallStatus is one call's routing state.
type CallStatus struct {
	CallSID   string    `json:"call_sid"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store keeps call statuses in Redis, keyed by call SID.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a status store backed by Redis.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func statusKey(callSID string) string {
	return statusKeyPrefix + callSID
}

// Set records the status for a call. Entries expire on their own so
// abandoned calls never leak keys.
func (s *Store) Set(ctx context.Context, callSID, status string) error {
	if callSID == "" {
		return fmt.Errorf("callstatus: call_sid required")
	}
	data, err := json.Marshal(CallStatus{
		CallSID:   callSID,
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("callstatus: marshal: %w", err)
	}
	return s.rdb.Set(ctx, statusKey(callSID), data, statusTTL).Err()
}

// Get returns the status for a call, or nil when none was reported.
func (s *Store) Get(ctx context.Context, callSID string) (*CallStatus, error) {
	data, err := s.rdb.Get(ctx, statusKey(callSID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("callstatus: get: %w", err)
	}
	var st CallStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("callstatus: unmarshal: %w", err)
	}
	return &st, nil
}

// Clear removes a call's status entry once routing is settled.
func (s *Store) Clear(ctx context.Context, callSID string) error {
	return s.rdb.Del(ctx, statusKey(callSID)).Err()
}
