package storage

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"

	"AMProject/service/ws"
)

// MessageStore archives chat messages (the archiveMessage collaborator).
type MessageStore struct {
	col *mongo.Collection
}

func NewMessageStore(db *mongo.Database) *MessageStore {
	return &MessageStore{col: db.Collection("messages")}
}

func (s *MessageStore) Archive(ctx context.Context, m *ws.ChatMessage) (*ws.ChatMessage, error) {
	if _, err := s.col.InsertOne(ctx, m); err != nil {
		return nil, errors.Wrap(err, "archive message")
	}
	return m, nil
}
