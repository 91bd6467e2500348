package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"AMProject/logger"
	"AMProject/tools/errs"
	"AMProject/tools/ids"
)

const (
	credentialCookie = "jwt"
	readLimit        = 1 << 20 // 1MB
	pongWait         = 75 * time.Second
	collabTimeout    = 2 * time.Second
)

// collabCtx bounds one external collaborator call.
func collabCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), collabTimeout)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Gate runs the connect handshake for one endpoint namespace:
// upgrade, credential extraction, token validation, registration, and
// the matching teardown. A connection either makes it through the whole
// chain and becomes OPEN, or it is rejected and never registered.
type Gate struct {
	validator TokenValidator
	registry  *Registry
	presence  Presence
}

func NewGate(validator TokenValidator, registry *Registry, presence Presence) *Gate {
	return &Gate{validator: validator, registry: registry, presence: presence}
}

func (g *Gate) Registry() *Registry { return g.registry }

// Open upgrades the request and authenticates it. On success the
// connection is registered and an AUTHENTICATED frame has been written;
// on failure the peer got an AUTH_FAILED frame and a policy-violation
// close, and (nil, nil, err) is returned.
func (g *Gate) Open(c *gin.Context) (*Client, *websocket.Conn, error) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[gate:%s] upgrade failed: %v", g.registry.Name(), err)
		return nil, nil, err
	}

	cookie, err := c.Request.Cookie(credentialCookie)
	if err != nil || cookie.Value == "" {
		g.reject(conn, errs.ErrMissingToken.Msg)
		return nil, nil, errs.ErrMissingToken
	}

	claims, err := g.validator.Validate(cookie.Value)
	if err != nil {
		logger.Infof("[gate:%s] token rejected: %v", g.registry.Name(), err)
		g.reject(conn, errs.ErrInvalidToken.Msg)
		return nil, nil, errs.ErrInvalidToken
	}

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))

	client := NewClient(ids.GenerateString(), claims.UserID, conn)
	conn.SetPongHandler(func(string) error {
		client.MarkPong()
		logger.Debugf("[gate:%s] pong conn=%s user=%d", g.registry.Name(), client.ConnID(), client.UserID())
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	g.registry.Register(claims.UserID, client)

	if err := client.SendJSON(BuildAuthenticated(claims.UserID)); err != nil {
		logger.Errorf("[gate:%s] auth ack write failed user=%d: %v", g.registry.Name(), claims.UserID, err)
		client.Close(websocket.CloseInternalServerErr, "handshake failed")
		g.Release(client)
		return nil, nil, err
	}

	if g.presence != nil {
		ctx, cancel := collabCtx()
		if perr := g.presence.Online(ctx, claims.UserID); perr != nil {
			logger.Errorf("[gate:%s] presence online user=%d: %v", g.registry.Name(), claims.UserID, perr)
		}
		cancel()
	}

	logger.Infof("[gate:%s] open conn=%s user=%d admin=%v manager=%v",
		g.registry.Name(), client.ConnID(), claims.UserID, claims.IsAdmin, claims.IsManager)
	return client, conn, nil
}

// Release is the single authoritative cleanup point for the
// OPEN -> CLOSED transition. Idempotent: both the unregister and the
// transport close tolerate a second call.
func (g *Gate) Release(client *Client) {
	offline := g.registry.Unregister(client)
	client.Close(websocket.CloseNormalClosure, "")

	if offline {
		logger.Infof("[gate:%s] user=%d offline", g.registry.Name(), client.UserID())
		if g.presence != nil {
			ctx, cancel := collabCtx()
			if err := g.presence.Offline(ctx, client.UserID()); err != nil {
				logger.Errorf("[gate:%s] presence offline user=%d: %v", g.registry.Name(), client.UserID(), err)
			}
			cancel()
		}
	}
}

// reject answers a failed handshake. The frame goes out best-effort;
// the close code is what clients should act on.
func (g *Gate) reject(conn *websocket.Conn, msg string) {
	data := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, msg)
	if b, err := marshalFrame(BuildAuthFailed(msg)); err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.TextMessage, b)
	}
	_ = conn.WriteControl(websocket.CloseMessage, data, time.Now().Add(writeWait))
	_ = conn.Close()
}
