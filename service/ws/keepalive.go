package ws

import (
	"sync"
	"time"

	"AMProject/logger"
	"AMProject/tools/safe"
)

// KeepAlive pings every open connection in every registry on a fixed
// period. A failed ping is logged and nothing more; the transport's own
// close detection decides when a connection is actually dead. The tick
// snapshots connections first and pings outside any registry lock, so
// it never serializes behind per-connection message handling.
type KeepAlive struct {
	period     time.Duration
	registries []*Registry

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewKeepAlive(period time.Duration, registries ...*Registry) *KeepAlive {
	if period <= 0 {
		period = 60 * time.Second
	}
	return &KeepAlive{
		period:     period,
		registries: registries,
		stopCh:     make(chan struct{}),
	}
}

func (k *KeepAlive) Start() {
	safe.Go(k.loop)
}

func (k *KeepAlive) Stop() {
	k.stopOnce.Do(func() { close(k.stopCh) })
}

func (k *KeepAlive) loop() {
	t := time.NewTicker(k.period)
	defer t.Stop()
	for {
		select {
		case <-k.stopCh:
			return
		case <-t.C:
			k.Sweep()
		}
	}
}

// Sweep runs one keepalive pass over all registries.
func (k *KeepAlive) Sweep() {
	for _, r := range k.registries {
		conns := r.All()
		pinged := 0
		for _, c := range conns {
			if !c.IsOpen() {
				continue
			}
			if err := c.Ping(); err != nil {
				logger.Infof("[keepalive:%s] ping conn=%s user=%d: %v", r.Name(), c.ConnID(), c.UserID(), err)
				continue
			}
			pinged++
		}
		logger.Debugf("[keepalive:%s] pinged %d/%d connections", r.Name(), pinged, len(conns))
	}
}
