package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AMProject/module/user"
	"AMProject/service/auth"
)

var gateSecret = []byte("gate-test-secret")

func gateToken(t *testing.T, userID string) string {
	t.Helper()
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString(gateSecret)
	require.NoError(t, err)
	return signed
}

type gateHarness struct {
	srv      *httptest.Server
	chatReg  *Registry
	notifReg *Registry
	presence *fakePresence
	store    *fakeStore
	notifier *fakeNotifier
}

func newGateHarness(t *testing.T) *gateHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &gateHarness{
		chatReg:  NewRegistry("chat"),
		notifReg: NewRegistry("notifications"),
		presence: &fakePresence{},
		store:    &fakeStore{},
		notifier: &fakeNotifier{count: 5},
	}
	validator := auth.NewValidator(gateSecret)
	dir := &fakeDirectory{users: map[int64]*user.Record{
		1: {ID: 1, Username: "alice"},
		2: {ID: 2, Username: "bob"},
	}}

	chatCh := NewChatChannel(NewGate(validator, h.chatReg, h.presence), dir, h.store, h.notifier)
	notifCh := NewNotificationChannel(NewGate(validator, h.notifReg, h.presence), h.notifier)

	r := gin.New()
	r.GET("/chat", chatCh.Handle)
	r.GET("/notifications", notifCh.Handle)

	h.srv = httptest.NewServer(r)
	t.Cleanup(h.srv.Close)
	return h
}

func (h *gateHarness) dial(t *testing.T, path, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + path
	hdr := http.Header{}
	if token != "" {
		hdr.Set("Cookie", (&http.Cookie{Name: "jwt", Value: token}).String())
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, hdr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	m := map[string]any{}
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestHandshakeSuccess(t *testing.T) {
	h := newGateHarness(t)

	conn := h.dial(t, "/chat", gateToken(t, "1"))

	frame := readFrame(t, conn)
	assert.Equal(t, FrameAuthenticated, frame["type"])
	assert.Equal(t, float64(1), frame["userId"])

	require.Eventually(t, func() bool {
		return len(h.chatReg.Snapshot(1)) == 1
	}, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		h.presence.mu.Lock()
		defer h.presence.mu.Unlock()
		return len(h.presence.online) == 1 && h.presence.online[0] == 1
	}, time.Second, 10*time.Millisecond)
}

func TestHandshakeMissingCredential(t *testing.T) {
	h := newGateHarness(t)

	conn := h.dial(t, "/chat", "")

	frame := readFrame(t, conn)
	assert.Equal(t, FrameAuthFailed, frame["type"])

	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
	assert.Equal(t, 0, h.chatReg.UserCount(), "rejected connections are never registered")
}

func TestHandshakeInvalidToken(t *testing.T) {
	h := newGateHarness(t)

	conn := h.dial(t, "/chat", "bogus.token.value")

	frame := readFrame(t, conn)
	assert.Equal(t, FrameAuthFailed, frame["type"])

	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
}

func TestDisconnectUnregistersAndSignalsOffline(t *testing.T) {
	h := newGateHarness(t)

	conn := h.dial(t, "/chat", gateToken(t, "1"))
	readFrame(t, conn) // AUTHENTICATED
	require.Eventually(t, func() bool { return h.chatReg.UserCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return h.chatReg.UserCount() == 0 }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		h.presence.mu.Lock()
		defer h.presence.mu.Unlock()
		return len(h.presence.offline) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestMessageRoundTrip(t *testing.T) {
	h := newGateHarness(t)

	recipient := h.dial(t, "/chat", gateToken(t, "1"))
	readFrame(t, recipient)
	sender := h.dial(t, "/chat", gateToken(t, "2"))
	readFrame(t, sender)
	require.Eventually(t, func() bool { return h.chatReg.UserCount() == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, sender.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"MESSAGE","recipientId":1,"message":"hi"}`)))

	got := readFrame(t, recipient)
	require.Equal(t, FrameMessage, got["type"])
	payload := got["message"].(map[string]any)
	assert.Equal(t, float64(2), payload["senderId"])
	assert.Equal(t, "hi", payload["content"])
	assert.Equal(t, true, payload["messageIsRead"])

	ack := readFrame(t, sender)
	assert.Equal(t, FrameSuccess, ack["type"])
}

func TestNotificationConnectPushesUnreadCount(t *testing.T) {
	h := newGateHarness(t)

	conn := h.dial(t, "/notifications", gateToken(t, "1"))

	frame := readFrame(t, conn)
	assert.Equal(t, FrameAuthenticated, frame["type"])

	frame = readFrame(t, conn)
	assert.Equal(t, FrameNotificationCount, frame["type"])
	assert.Equal(t, float64(5), frame["count"])
}
