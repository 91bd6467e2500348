package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"AMProject/logger"
	"AMProject/service/ws"
)

// NotificationTypeChat tags unread-chat-message notifications.
const NotificationTypeChat = "CHAT_MESSAGE"

// EventPublisher is satisfied by the natsx client. Publication is
// best-effort: by the time it runs the durable write already happened.
type EventPublisher interface {
	Publish(subject string, data []byte) error
}

// UserSubject is the per-recipient notification subject.
func UserSubject(userID int64) string {
	return fmt.Sprintf("notify.user.%d", userID)
}

// NotificationStore is the notification collaborator: one document per
// (recipient, sender, type), with an unread counter bumped every time
// chat delivery falls back to durable storage.
type NotificationStore struct {
	col *mongo.Collection
	pub EventPublisher
}

func NewNotificationStore(db *mongo.Database, pub EventPublisher) *NotificationStore {
	return &NotificationStore{col: db.Collection("notifications"), pub: pub}
}

// CreateOrIncrement upserts the unread notification for an undelivered
// chat message and, when a publisher is wired, emits the updated record
// so a live notification connection can still pick it up.
func (s *NotificationStore) CreateOrIncrement(ctx context.Context, m *ws.ChatMessage) error {
	filter := bson.M{
		"recipientId": m.ReceiverID,
		"senderId":    m.SenderID,
		"type":        NotificationTypeChat,
	}
	update := bson.M{
		"$inc": bson.M{"unreadCounter": 1},
		"$set": bson.M{
			"content":   m.Content,
			"createdAt": time.Now(),
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var n ws.Notification
	if err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&n); err != nil {
		return errors.Wrap(err, "upsert notification")
	}

	if s.pub != nil {
		data, err := json.Marshal(&n)
		if err == nil {
			err = s.pub.Publish(UserSubject(n.RecipientID), data)
		}
		if err != nil {
			logger.Errorf("[notifications] publish user=%d: %v", n.RecipientID, err)
		}
	}
	return nil
}

// UnreadCount sums the unread counters of every notification addressed
// to the user.
func (s *NotificationStore) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"recipientId": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$unreadCounter"},
		}}},
	}
	cur, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, errors.Wrap(err, "unread count")
	}
	defer cur.Close(ctx)

	var row struct {
		Total int64 `bson:"total"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return 0, errors.Wrap(err, "decode unread count")
		}
	}
	return row.Total, nil
}
