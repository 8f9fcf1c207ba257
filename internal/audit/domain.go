package audit

import "time"

// Outcome classifies an audit entry.
type Outcome string

const (
	// OutcomeSuccess marks a completed privileged mutation.
	OutcomeSuccess Outcome = "success"
	// OutcomeFailure marks a denied or failed operation.
	OutcomeFailure Outcome = "failure"
)

// Valid reports whether o is a defined outcome.
func (o Outcome) Valid() bool {
	return o == OutcomeSuccess || o == OutcomeFailure
}

// ActionDenied is the action recorded for guard denials.
const ActionDenied = "authz.denied"

// Entry is one append-only audit record. Entries are never mutated; they are
// removed only by bulk retention pruning.
type Entry struct {
	ID           int64          `json:"id"`
	OccurredAt   time.Time      `json:"occurred_at"`
	ActorID      *int64         `json:"actor_id"`
	Action       string         `json:"action"`
	Resource     string         `json:"resource"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Outcome      Outcome        `json:"outcome"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	IP           string         `json:"ip,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
}

// Event carries the caller-supplied part of an entry; the service fills in
// timestamp, IP and user agent.
type Event struct {
	ActorID    *int64
	Action     string
	Resource   string
	ResourceID string
	Details    map[string]any
}

// Filters narrows an audit query. Zero values mean "any".
type Filters struct {
	ActorID  *int64
	Action   string
	Resource string
	Outcome  Outcome
	Limit    int
	Offset   int
}
