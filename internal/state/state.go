package state

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jordanhubbard/volition/internal/drive"
)

const (
	// SchemaVersion is written into every persisted state document.
	SchemaVersion = 1

	// TriggerLedgerLimit bounds the append-only trigger ledger.
	TriggerLedgerLimit = 100
)

// TriggerEvent is one entry in the bounded trigger ledger, appended when a
// session is spawned and read back only for cooldown lookups and auditing.
type TriggerEvent struct {
	ID             string    `json:"id"`
	Drive          string    `json:"drive"`
	Pressure       float64   `json:"pressure"`
	Threshold      float64   `json:"threshold"`
	Timestamp      time.Time `json:"timestamp"`
	SessionSpawned bool      `json:"session_spawned"`
	SessionID      string    `json:"session_id,omitempty"`
}

// RetryEntry tracks an outstanding launch failure for one drive.
type RetryEntry struct {
	AttemptCount int       `json:"attempt_count"`
	NextAttempt  time.Time `json:"next_attempt"`
	LastError    string    `json:"last_error"`
}

// DriveState is the persisted aggregate: all drives plus the engine's
// bookkeeping, loaded and saved as a single atomic unit.
type DriveState struct {
	Version    int                     `json:"version"`
	Drives     map[string]*drive.Drive `json:"drives"`
	Triggered  []string                `json:"triggered"`
	Ledger     []TriggerEvent          `json:"trigger_ledger"`
	RetryQueue map[string]*RetryEntry  `json:"retry_queue"`
}

// New returns an empty state document at the current schema version.
func New() *DriveState {
	return &DriveState{
		Version:    SchemaVersion,
		Drives:     make(map[string]*drive.Drive),
		Triggered:  make([]string, 0),
		Ledger:     make([]TriggerEvent, 0),
		RetryQueue: make(map[string]*RetryEntry),
	}
}

// UnknownDriveError names the drive that could not be resolved and the
// drives that exist, so callers can surface something actionable.
type UnknownDriveError struct {
	Name  string
	Known []string
}

func (e *UnknownDriveError) Error() string {
	return fmt.Sprintf("unknown drive %q (known drives: %s)", e.Name, strings.Join(e.Known, ", "))
}

// Resolve looks a drive up by case-normalized name.
func (s *DriveState) Resolve(name string) (*drive.Drive, error) {
	key := NormalizeName(name)
	if d, ok := s.Drives[key]; ok {
		return d, nil
	}
	return nil, &UnknownDriveError{Name: name, Known: s.KnownNames()}
}

// KnownNames returns all drive names in sorted order.
func (s *DriveState) KnownNames() []string {
	names := make([]string, 0, len(s.Drives))
	for name := range s.Drives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NormalizeName is the canonical form drive names are stored under.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsTriggered reports whether the drive is awaiting satisfaction.
func (s *DriveState) IsTriggered(name string) bool {
	for _, t := range s.Triggered {
		if t == name {
			return true
		}
	}
	return false
}

// SetTriggered adds the drive to the triggered set; idempotent.
func (s *DriveState) SetTriggered(name string) {
	if !s.IsTriggered(name) {
		s.Triggered = append(s.Triggered, name)
	}
}

// ClearTriggered removes the drive from the triggered set.
func (s *DriveState) ClearTriggered(name string) {
	out := s.Triggered[:0]
	for _, t := range s.Triggered {
		if t != name {
			out = append(out, t)
		}
	}
	s.Triggered = out
}

// AppendTrigger records a ledger entry, dropping the oldest entries past the
// ledger bound.
func (s *DriveState) AppendTrigger(ev TriggerEvent) {
	s.Ledger = append(s.Ledger, ev)
	if len(s.Ledger) > TriggerLedgerLimit {
		s.Ledger = s.Ledger[len(s.Ledger)-TriggerLedgerLimit:]
	}
}

// LastSpawnedTrigger returns the most recent ledger entry for the drive
// where a session was actually spawned, or nil. Cooldowns are measured from
// this entry.
func (s *DriveState) LastSpawnedTrigger(name string) *TriggerEvent {
	for i := len(s.Ledger) - 1; i >= 0; i-- {
		if s.Ledger[i].Drive == name && s.Ledger[i].SessionSpawned {
			ev := s.Ledger[i]
			return &ev
		}
	}
	return nil
}
