package natsx

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"AMProject/logger"
	"AMProject/service/ws"
)

// Subject pattern for per-user notification events. The publisher side
// lives in the notification store; the subscriber side feeds live
// pushes on the notification channel.
const userNotifySubject = "notify.user.*"

type Config struct {
	Servers       []string
	Name          string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

type Client struct {
	nc *nats.Conn
}

// Connect dials NATS with reconnect defaults.
func Connect(cfg Config) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("nats servers missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}

	nc, err := nats.Connect(strings.Join(cfg.Servers, ","),
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connect nats")
	}
	return &Client{nc: nc}, nil
}

func (c *Client) Publish(subject string, data []byte) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	if err := c.nc.PublishMsg(msg); err != nil {
		return errors.Wrap(err, "publish")
	}
	return nil
}

// SubscribeUserNotifications feeds decoded notification events to
// handler. Undecodable payloads are logged and dropped; the durable
// record already exists, a missed live push costs nothing.
func (c *Client) SubscribeUserNotifications(handler func(n *ws.Notification)) (*nats.Subscription, error) {
	sub, err := c.nc.Subscribe(userNotifySubject, func(m *nats.Msg) {
		n := &ws.Notification{}
		if err := json.Unmarshal(m.Data, n); err != nil {
			logger.Errorf("[natsx] bad notification on %s: %v", m.Subject, err)
			return
		}
		handler(n)
	})
	if err != nil {
		return nil, errors.Wrap(err, "subscribe notifications")
	}
	return sub, nil
}

func (c *Client) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
}
