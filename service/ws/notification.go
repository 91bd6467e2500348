package ws

import (
	"net"

	"github.com/gin-gonic/gin"

	"AMProject/logger"
)

// NotificationChannel is the /notifications endpoint. It keeps its own
// registry instance; a user may hold chat and notification connections
// independently. On connect the client learns its current unread count,
// afterwards it only receives pushes.
type NotificationChannel struct {
	gate          *Gate
	registry      *Registry
	notifications NotificationService
}

func NewNotificationChannel(gate *Gate, notifications NotificationService) *NotificationChannel {
	return &NotificationChannel{
		gate:          gate,
		registry:      gate.Registry(),
		notifications: notifications,
	}
}

// Handle is the gin route for /notifications.
func (nc *NotificationChannel) Handle(c *gin.Context) {
	client, conn, err := nc.gate.Open(c)
	if err != nil {
		return
	}
	defer nc.gate.Release(client)

	nc.PushUnreadCount(client)

	// The notification channel is push-only; inbound data frames are
	// drained so control frames keep flowing, nothing else.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[notify] read timeout conn=%s", client.ConnID())
			} else {
				logger.Infof("[notify] closed conn=%s err=%v", client.ConnID(), err)
			}
			return
		}
	}
}

// PushUnreadCount sends the one-shot NOTIFICATION_COUNT frame.
func (nc *NotificationChannel) PushUnreadCount(client *Client) {
	ctx, cancel := collabCtx()
	defer cancel()

	count, err := nc.notifications.UnreadCount(ctx, client.UserID())
	if err != nil {
		logger.Errorf("[notify] unread count user=%d: %v", client.UserID(), err)
		return
	}
	if err := client.SendJSON(BuildNotificationCount(count)); err != nil {
		logger.Errorf("[notify] count push conn=%s: %v", client.ConnID(), err)
	}
}

// NotifyUser pushes a typed notification to every open connection of
// the recipient. Returns true iff at least one send went out.
func (nc *NotificationChannel) NotifyUser(n *Notification) bool {
	return nc.broadcastToUser(n.RecipientID, BuildNotification(n))
}

// broadcastToUser re-validates ownership right before each send; a
// connection that closed or was reassigned between Snapshot and here is
// skipped.
func (nc *NotificationChannel) broadcastToUser(userID int64, frame any) bool {
	sent := false
	for _, c := range nc.registry.Snapshot(userID) {
		if !nc.registry.IsOpenForUser(c, userID) {
			continue
		}
		if err := c.SendJSON(frame); err != nil {
			logger.Errorf("[notify] push conn=%s user=%d: %v", c.ConnID(), userID, err)
			continue
		}
		sent = true
	}
	return sent
}
