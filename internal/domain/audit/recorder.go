// Package audit provides the audit trail port for form transitions.
package audit

import (
	"context"

	"backoffice/internal/core/id"
)

// Action names a recorded transition.
type Action string

const (
	ActionCreate        Action = "create"
	ActionApprove       Action = "approve"
	ActionReject        Action = "reject"
	ActionUpdate        Action = "update"
	ActionCancelRequest Action = "cancel-request"
	ActionCancelApprove Action = "cancel-approve"
	ActionCancelReject  Action = "cancel-reject"
)

// Entry is one audit record. Snapshot is marshalled to JSON by the recorder.
type Entry struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	ActorID    id.ID
	Snapshot   any
}

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }
