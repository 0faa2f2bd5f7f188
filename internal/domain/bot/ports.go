// Package bot runs the dialogue engine against real storage and delivery:
// inbound turns, scheduled pushes and the archive sweep.
package bot

import (
	"context"

	"github.com/janhq/dialogue-bot/internal/domain/content"
	"github.com/janhq/dialogue-bot/internal/domain/dialogue"
	"github.com/janhq/dialogue-bot/internal/domain/user"
)

// UserRepository persists user records.
type UserRepository interface {
	GetOrCreate(ctx context.Context, id string) (user.User, error)
	Save(ctx context.Context, u user.User) error
	SaveAll(ctx context.Context, users []user.User) error
	List(ctx context.Context) ([]user.User, error)
	Archive(ctx context.Context, id string) error
	IssuedStudyIDs(ctx context.Context) ([]int64, error)
	AddIssuedStudyIDs(ctx context.Context, ids ...int64) error
	// Lock serialises work on one user across processes.
	Lock(ctx context.Context, id string, fn func() error) error
}

// ContentRepository serves the authored graph and term lists.
type ContentRepository interface {
	Graph(ctx context.Context) (*content.Graph, error)
	Params(ctx context.Context) (dialogue.Terms, error)
}

// Messenger delivers to and looks up users on the messaging platform.
type Messenger interface {
	Send(ctx context.Context, recipientID string, item dialogue.Outbound, mt dialogue.MessagingType) (string, error)
	UserDetails(ctx context.Context, userID string) (*user.Profile, error)
}

// EventLogger records analytics events.
type EventLogger interface {
	LogEvent(ctx context.Context, userID, eventName string) error
}

// recipientError is implemented by delivery errors that can tell whether
// the recipient is permanently unreachable.
type recipientError interface {
	error
	InvalidRecipient() bool
}
