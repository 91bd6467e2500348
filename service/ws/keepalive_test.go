package ws

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

func TestSweepPingsEveryOpenConnection(t *testing.T) {
	chatReg := NewRegistry("chat")
	notifReg := NewRegistry("notifications")

	c1, l1 := newTestClient(1)
	c2, l2 := newTestClient(1)
	c3, l3 := newTestClient(2)
	chatReg.Register(1, c1)
	chatReg.Register(1, c2)
	notifReg.Register(2, c3)

	ka := NewKeepAlive(0, chatReg, notifReg)
	ka.Sweep()

	assert.Equal(t, 1, l1.controlCount(websocket.PingMessage))
	assert.Equal(t, 1, l2.controlCount(websocket.PingMessage))
	assert.Equal(t, 1, l3.controlCount(websocket.PingMessage))
}

func TestSweepSkipsClosedConnections(t *testing.T) {
	reg := NewRegistry("chat")
	open, openLink := newTestClient(1)
	closed, closedLink := newTestClient(1)
	reg.Register(1, open)
	reg.Register(1, closed)
	closed.Close(websocket.CloseNormalClosure, "")
	before := closedLink.controlCount(websocket.PingMessage)

	ka := NewKeepAlive(0, reg)
	ka.Sweep()

	assert.Equal(t, 1, openLink.controlCount(websocket.PingMessage))
	assert.Equal(t, before, closedLink.controlCount(websocket.PingMessage), "closed connections are never pinged")
}

func TestSweepSurvivesPingFailure(t *testing.T) {
	reg := NewRegistry("chat")
	bad, badLink := newTestClient(1)
	badLink.failWrites = true
	good, goodLink := newTestClient(2)
	reg.Register(1, bad)
	reg.Register(2, good)

	ka := NewKeepAlive(0, reg)
	ka.Sweep()

	// a failed ping is logged and does not unregister anyone
	assert.True(t, reg.IsOpenForUser(bad, 1))
	assert.Equal(t, 1, goodLink.controlCount(websocket.PingMessage))
}

func TestKeepAliveStopIdempotent(t *testing.T) {
	ka := NewKeepAlive(0, NewRegistry("chat"))
	ka.Start()
	ka.Stop()
	ka.Stop()
}
