package repository

import (
	"context"
)

// ConversationState holds short-lived per-user selections between two messages,
// e.g. the genre picked before the next search.
type ConversationState struct {
	Step string            `json:"step"`
	Data map[string]string `json:"data"`
}

// StateRepository stores conversation state by Telegram ID. GetState returns
// (nil, nil) when nothing is stored.
type StateRepository interface {
	SetState(ctx context.Context, tgID int64, state *ConversationState) error
	GetState(ctx context.Context, tgID int64) (*ConversationState, error)
	ClearState(ctx context.Context, tgID int64) error
}
