package ws

import (
	"context"
	"time"

	"AMProject/module/user"
	"AMProject/service/auth"
)

// ChatMessage is created by the chat channel on send and owned by the
// archival collaborator afterwards. IsRead is decided exactly once, at
// delivery time; the session layer never flips it later.
type ChatMessage struct {
	SenderID   int64     `json:"senderId" bson:"senderId"`
	ReceiverID int64     `json:"receiverId" bson:"receiverId"`
	Content    string    `json:"content" bson:"content"`
	SentAt     time.Time `json:"sentAt" bson:"sentAt"`
	IsRead     bool      `json:"messageIsRead" bson:"messageIsRead"`
}

// Notification mirrors the durable unread-notification record kept by
// the notification collaborator.
type Notification struct {
	RecipientID   int64     `json:"recipientId" bson:"recipientId"`
	SenderID      int64     `json:"senderId" bson:"senderId"`
	Type          string    `json:"type" bson:"type"`
	Content       string    `json:"content" bson:"content"`
	UnreadCounter int64     `json:"unreadCounter" bson:"unreadCounter"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

// Collaborator seams. The session layer owns none of this state; it
// talks to persistence, the user directory, the token issuer and the
// presence tracker through these contracts.

type TokenValidator interface {
	Validate(raw string) (*auth.Claims, error)
}

type UserDirectory interface {
	// GetUser returns (nil, nil) when no such user exists.
	GetUser(ctx context.Context, id int64) (*user.Record, error)
}

type MessageStore interface {
	Archive(ctx context.Context, m *ChatMessage) (*ChatMessage, error)
}

type NotificationService interface {
	CreateOrIncrement(ctx context.Context, m *ChatMessage) error
	UnreadCount(ctx context.Context, userID int64) (int64, error)
}

type Presence interface {
	Online(ctx context.Context, userID int64) error
	Offline(ctx context.Context, userID int64) error
}
