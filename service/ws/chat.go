package ws

import (
	"net"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"AMProject/logger"
	"AMProject/tools/errs"
)

// ChatChannel is the /chat endpoint: the message-send protocol, read
// receipts, and the delivery pipeline with its durable fallback.
type ChatChannel struct {
	gate     *Gate
	registry *Registry
	users    UserDirectory
	store    MessageStore
	notifier NotificationService
}

func NewChatChannel(gate *Gate, users UserDirectory, store MessageStore, notifier NotificationService) *ChatChannel {
	return &ChatChannel{
		gate:     gate,
		registry: gate.Registry(),
		users:    users,
		store:    store,
		notifier: notifier,
	}
}

// Handle is the gin route for /chat. It owns the connection's whole
// lifecycle: handshake, read loop, teardown.
func (ch *ChatChannel) Handle(c *gin.Context) {
	client, conn, err := ch.gate.Open(c)
	if err != nil {
		return
	}
	defer ch.gate.Release(client)

	ch.readLoop(client, conn)
}

func (ch *ChatChannel) readLoop(client *Client, conn *websocket.Conn) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[chat] peer closed conn=%s err=%v", client.ConnID(), err)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[chat] read timeout conn=%s err=%v", client.ConnID(), err)
			} else {
				logger.Infof("[chat] read err conn=%s err=%v", client.ConnID(), err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		// No error escapes HandleFrame: a bad message answers with an
		// ERROR ack, never by tearing down the connection.
		ch.HandleFrame(client, data)
	}
}

// HandleFrame processes one inbound frame from an authenticated client.
func (ch *ChatChannel) HandleFrame(client *Client, raw []byte) {
	frame, err := ParseFrame(raw)
	if err != nil {
		sample := raw
		if len(sample) > 256 {
			sample = sample[:256]
		}
		logger.Infof("[chat] parse err conn=%s err=%v sample=%q", client.ConnID(), err, sample)
		ch.reply(client, BuildError(errs.ErrInvalidFrame.Msg))
		return
	}

	switch frame.Type {
	case FrameMessage:
		ch.handleMessage(client, frame)
	case FrameConversationRead:
		ch.handleConversationRead(client, frame)
	default:
		logger.Infof("[chat] unsupported frame type=%q conn=%s", frame.Type, client.ConnID())
		ch.reply(client, BuildError(errs.ErrUnknownFrameType.WithDetail(frame.Type).Msg))
	}
}

func (ch *ChatChannel) handleMessage(sender *Client, frame *InboundFrame) {
	if frame.RecipientID == nil || strings.TrimSpace(frame.Message) == "" {
		ch.reply(sender, BuildError(errs.ErrMissingFields.Msg))
		return
	}
	recipientID := *frame.RecipientID

	// Each collaborator call gets its own deadline. Delivery sits between
	// the lookup and the archive and may block up to writeWait per slow
	// connection; a shared context would already be expired by then.
	ctx, cancel := collabCtx()
	rec, err := ch.users.GetUser(ctx, recipientID)
	cancel()
	if err != nil {
		logger.Errorf("[chat] recipient lookup user=%d: %v", recipientID, err)
		ch.reply(sender, BuildError(errs.ErrRecipientLookup.Msg))
		return
	}
	if rec == nil {
		ch.reply(sender, BuildError(errs.ErrRecipientMissing.Msg))
		return
	}
	if rec.IsDeleted {
		ch.reply(sender, BuildError(errs.ErrRecipientDeleted.Msg))
		return
	}

	msg := &ChatMessage{
		SenderID:   sender.UserID(),
		ReceiverID: recipientID,
		Content:    frame.Message,
		SentAt:     time.Now(),
	}

	delivered := ch.deliver(msg)

	archiveCtx, cancel := collabCtx()
	_, err = ch.store.Archive(archiveCtx, msg)
	cancel()
	if err != nil {
		// Fatal for this one message only: no ack, and the fallback is
		// skipped so the unread counter cannot drift from what is stored.
		logger.Errorf("[chat] archive failed from=%d to=%d: %v", msg.SenderID, msg.ReceiverID, err)
		return
	}

	if delivered > 0 {
		ch.reply(sender, BuildSuccess("message delivered"))
		return
	}

	logger.Infof("[chat] no live session user=%d, falling back to notification", recipientID)
	fallbackCtx, cancel := collabCtx()
	defer cancel()
	if err := ch.notifier.CreateOrIncrement(fallbackCtx, msg); err != nil {
		logger.Errorf("[chat] notification fallback to=%d: %v", recipientID, err)
	}
}

// deliver pushes msg to every open connection of the recipient and
// returns how many sends succeeded. The read flag is set from the
// outcome: true once at least one live connection took the frame,
// false otherwise. Per-connection failures are isolated; one slow or
// dead socket never aborts the rest.
func (ch *ChatChannel) deliver(msg *ChatMessage) int {
	conns := ch.registry.Snapshot(msg.ReceiverID)
	if len(conns) == 0 {
		msg.IsRead = false
		return 0
	}

	msg.IsRead = true
	frame := BuildMessage(msg)
	delivered := 0
	for _, c := range conns {
		if err := c.SendJSON(frame); err != nil {
			logger.Errorf("[chat] deliver conn=%s user=%d: %v", c.ConnID(), msg.ReceiverID, err)
			continue
		}
		delivered++
	}
	if delivered == 0 {
		msg.IsRead = false
	}
	return delivered
}

// handleConversationRead is fire-and-forget: everyone the recipient has
// online learns that sender marked the conversation read. No ack to the
// originator and no persistence here.
func (ch *ChatChannel) handleConversationRead(sender *Client, frame *InboundFrame) {
	if frame.RecipientID == nil {
		ch.reply(sender, BuildError(errs.ErrMissingFields.Msg))
		return
	}
	notice := BuildConversationRead(sender.UserID())
	for _, c := range ch.registry.Snapshot(*frame.RecipientID) {
		if err := c.SendJSON(notice); err != nil {
			logger.Errorf("[chat] read receipt conn=%s: %v", c.ConnID(), err)
		}
	}
}

func (ch *ChatChannel) reply(client *Client, frame any) {
	if err := client.SendJSON(frame); err != nil {
		logger.Errorf("[chat] reply conn=%s: %v", client.ConnID(), err)
	}
}
