package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"AMProject/module/user"
)

// fakeLink records everything written to it so tests can assert on
// delivered frames without a socket.
type fakeLink struct {
	mu         sync.Mutex
	frames     [][]byte
	control    []int
	failWrites bool
	writeDelay time.Duration
	closed     bool
}

func (l *fakeLink) WriteMessage(_ int, data []byte) error {
	if l.writeDelay > 0 {
		time.Sleep(l.writeDelay)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWrites {
		return errors.New("write refused")
	}
	cp := append([]byte(nil), data...)
	l.frames = append(l.frames, cp)
	return nil
}

func (l *fakeLink) WriteControl(messageType int, _ []byte, _ time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWrites {
		return errors.New("write refused")
	}
	l.control = append(l.control, messageType)
	return nil
}

func (l *fakeLink) SetWriteDeadline(time.Time) error { return nil }

func (l *fakeLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// decoded returns every text frame as a generic map keyed by index.
func (l *fakeLink) decoded() []map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]map[string]any, 0, len(l.frames))
	for _, raw := range l.frames {
		m := map[string]any{}
		_ = json.Unmarshal(raw, &m)
		out = append(out, m)
	}
	return out
}

// framesOfType filters decoded frames by their type tag.
func (l *fakeLink) framesOfType(typ string) []map[string]any {
	var out []map[string]any
	for _, f := range l.decoded() {
		if f["type"] == typ {
			out = append(out, f)
		}
	}
	return out
}

func (l *fakeLink) controlCount(messageType int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, mt := range l.control {
		if mt == messageType {
			n++
		}
	}
	return n
}

var testConnSeq int

func newTestClient(userID int64) (*Client, *fakeLink) {
	testConnSeq++
	link := &fakeLink{}
	return NewClient(fmt.Sprintf("test-conn-%d", testConnSeq), userID, link), link
}

// ---- collaborator fakes ----

type fakeDirectory struct {
	users map[int64]*user.Record
	err   error
	calls int
}

func (d *fakeDirectory) GetUser(_ context.Context, id int64) (*user.Record, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.users[id], nil
}

type fakeStore struct {
	archived []*ChatMessage
	err      error
}

func (s *fakeStore) Archive(ctx context.Context, m *ChatMessage) (*ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	cp := *m
	s.archived = append(s.archived, &cp)
	return m, nil
}

type fakeNotifier struct {
	increments []*ChatMessage
	incErr     error
	count      int64
	countErr   error
}

func (n *fakeNotifier) CreateOrIncrement(ctx context.Context, m *ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.incErr != nil {
		return n.incErr
	}
	cp := *m
	n.increments = append(n.increments, &cp)
	return nil
}

func (n *fakeNotifier) UnreadCount(context.Context, int64) (int64, error) {
	if n.countErr != nil {
		return 0, n.countErr
	}
	return n.count, nil
}

type fakePresence struct {
	mu      sync.Mutex
	online  []int64
	offline []int64
}

func (p *fakePresence) Online(_ context.Context, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = append(p.online, userID)
	return nil
}

func (p *fakePresence) Offline(_ context.Context, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offline = append(p.offline, userID)
	return nil
}

func newTestChatChannel(reg *Registry, dir *fakeDirectory, store *fakeStore, notifier *fakeNotifier) *ChatChannel {
	return NewChatChannel(NewGate(nil, reg, nil), dir, store, notifier)
}
