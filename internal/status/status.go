package status

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/example/sacnstrip/internal/led"
	"github.com/example/sacnstrip/internal/strip"
)

// Phase is the connectivity state shown on the auxiliary LED.
type Phase int

const (
	Starting Phase = iota
	NetworkConnected
	ServerReady
	Disconnected
)

func (p Phase) String() string {
	switch p {
	case Starting:
		return "starting"
	case NetworkConnected:
		return "network-connected"
	case ServerReady:
		return "server-ready"
	case Disconnected:
		return "disconnected"
	}
	return "unknown"
}

// Each phase maps to one fixed, deliberately dim color.
var phaseColors = map[Phase]strip.RGB{
	Starting:         {8, 0, 0},
	NetworkConnected: {8, 0, 4},
	ServerReady:      {0, 0, 8},
	Disconnected:     {8, 2, 0},
}

// Indicator drives a single status LED through the same driver path as the
// strip, with its own 1-element buffer. Transitions are edge-triggered;
// there is no timeout-based auto-transition.
type Indicator struct {
	mu    sync.Mutex
	drv   led.Driver
	buf   *strip.Buffer
	phase Phase
}

// NewIndicator shows the Starting color immediately.
func NewIndicator(drv led.Driver) *Indicator {
	i := &Indicator{
		drv:   drv,
		buf:   strip.New(1, phaseColors[Starting]),
		phase: Starting,
	}
	i.push()
	return i
}

// Transition moves to phase p. Re-entering the current phase is a no-op.
func (i *Indicator) Transition(p Phase) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if p == i.phase {
		return
	}
	log.Info().Stringer("from", i.phase).Stringer("to", p).Msg("status transition")
	i.phase = p
	i.buf.Set(0, phaseColors[p])
	i.push()
}

// Phase returns the current phase.
func (i *Indicator) Phase() Phase {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.phase
}

// push is called with mu held (or from the constructor).
func (i *Indicator) push() {
	if i.drv == nil {
		return
	}
	if err := i.drv.Write(i.buf.Pixels()); err != nil {
		log.Warn().Err(err).Msg("status LED write failed")
	}
}

// Watch is the low-frequency connectivity supervisor: it polls for a
// usable address and drives the NetworkConnected/Disconnected edges. Link
// loss from NetworkConnected or ServerReady goes to Disconnected; a
// reconnect attempt passes back through Starting.
func (i *Indicator) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		i.observe(linkUp())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// observe applies one link sample to the state machine.
func (i *Indicator) observe(up bool) {
	cur := i.Phase()
	if up {
		switch cur {
		case Disconnected:
			i.Transition(Starting)
		case Starting:
			i.Transition(NetworkConnected)
		}
		return
	}
	if cur == NetworkConnected || cur == ServerReady {
		i.Transition(Disconnected)
	}
}

// linkUp reports whether any interface carries a global unicast IPv4
// address.
func linkUp() bool {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return false
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP.To4()
		if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
			continue
		}
		return true
	}
	return false
}
