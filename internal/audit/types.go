package audit

import (
	"time"

	"github.com/google/uuid"
)

// Kind はイベントの種別を表します。
type Kind string

const (
	KindLogin  Kind = "login"
	KindLogout Kind = "logout"
)

// Outcome は認証処理の結果を表します。
type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomeRejected           Outcome = "rejected"
	OutcomeBackendUnavailable Outcome = "backend_unavailable"
	OutcomeSessionError       Outcome = "session_error"
	OutcomeNotLoggedIn        Outcome = "not_logged_in"
)

// Event は1件の監査イベントです。パスワードは決して含めません。
type Event struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Outcome    Outcome   `json:"outcome"`
	Identifier string    `json:"identifier,omitempty"`
	UserID     int64     `json:"userId,omitempty"`
	Address    string    `json:"address,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewEvent はIDと発生時刻を埋めたイベントを返します。
func NewEvent(kind Kind, outcome Outcome) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Outcome:    outcome,
		OccurredAt: time.Now().UTC(),
	}
}
