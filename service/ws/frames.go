package ws

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Frame type tags on the wire. Frames are UTF-8 JSON text in both
// directions.
const (
	FrameMessage           = "MESSAGE"
	FrameConversationRead  = "CONVERSATION_READ"
	FrameAuthenticated     = "AUTHENTICATED"
	FrameAuthFailed        = "AUTH_FAILED"
	FrameError             = "ERROR"
	FrameSuccess           = "SUCCESS"
	FrameNotificationCount = "NOTIFICATION_COUNT"
)

// InboundFrame is the envelope of everything a client may send on the
// chat channel. RecipientID is a pointer so "absent" and "zero" stay
// distinguishable during validation.
type InboundFrame struct {
	Type        string `json:"type"`
	RecipientID *int64 `json:"recipientId"`
	Message     string `json:"message"`
}

func marshalFrame(v any) ([]byte, error) {
	return json.Marshal(v)
}

func ParseFrame(raw []byte) (*InboundFrame, error) {
	f := &InboundFrame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errors.Wrap(err, "unmarshal frame")
	}
	if f.Type == "" {
		return nil, errors.New("frame missing type")
	}
	return f, nil
}

// ---- outbound frame builders ----

type authenticatedFrame struct {
	Type   string `json:"type"`
	UserID int64  `json:"userId"`
}

type authFailedFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ackFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type messageFrame struct {
	Type    string       `json:"type"`
	Message *ChatMessage `json:"message"`
}

type conversationReadFrame struct {
	Type     string `json:"type"`
	SenderID int64  `json:"senderId"`
}

type notificationCountFrame struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

type notificationFrame struct {
	Type         string        `json:"type"`
	Notification *Notification `json:"notification"`
}

func BuildAuthenticated(userID int64) any {
	return authenticatedFrame{Type: FrameAuthenticated, UserID: userID}
}

func BuildAuthFailed(msg string) any {
	return authFailedFrame{Type: FrameAuthFailed, Message: msg}
}

func BuildError(msg string) any {
	return ackFrame{Type: FrameError, Message: msg}
}

func BuildSuccess(msg string) any {
	return ackFrame{Type: FrameSuccess, Message: msg}
}

func BuildMessage(m *ChatMessage) any {
	return messageFrame{Type: FrameMessage, Message: m}
}

func BuildConversationRead(senderID int64) any {
	return conversationReadFrame{Type: FrameConversationRead, SenderID: senderID}
}

func BuildNotificationCount(count int64) any {
	return notificationCountFrame{Type: FrameNotificationCount, Count: count}
}

// BuildNotification frames carry the notification's own type as the
// frame type so clients can route on it directly.
func BuildNotification(n *Notification) any {
	return notificationFrame{Type: n.Type, Notification: n}
}
