package sacn

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/example/sacnstrip/internal/strip"
)

// Receiver owns the UDP socket and funnels every valid packet into the
// shared strip buffer. It runs independently of the render cadence: its
// only contention with the renderer is the buffer lock held for one copy.
type Receiver struct {
	addr    string
	buf     *strip.Buffer
	onReady func()

	received atomic.Uint64
	applied  atomic.Uint64
	dropped  atomic.Uint64
}

// NewReceiver binds lazily in Run. onReady fires once after a successful
// bind, so the status indicator can flip to its server-ready color.
func NewReceiver(addr string, buf *strip.Buffer, onReady func()) *Receiver {
	if addr == "" {
		addr = fmt.Sprintf(":%d", Port)
	}
	return &Receiver{addr: addr, buf: buf, onReady: onReady}
}

// Run blocks on the socket until ctx is canceled. Malformed traffic is
// counted and dropped, never escalated; a stalled renderer cannot stall
// this loop.
func (r *Receiver) Run(ctx context.Context) error {
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp", r.addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", r.addr, err)
	}
	defer pc.Close()

	log.Info().Str("addr", pc.LocalAddr().String()).Msg("sACN receiver listening")
	if r.onReady != nil {
		r.onReady()
	}

	// Unblock the read on shutdown.
	go func() {
		<-ctx.Done()
		pc.Close()
	}()

	// The biggest legal frame is 638 bytes; leave headroom for junk.
	pkt := make([]byte, 1024)
	for {
		n, src, err := pc.ReadFrom(pkt)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("udp read: %w", err)
		}
		r.Handle(pkt[:n], src)
	}
}

// Handle decodes one datagram and applies it to the buffer. Exported so
// the packet path can be exercised without a socket.
func (r *Receiver) Handle(pkt []byte, src net.Addr) {
	r.received.Add(1)

	frame, err := Decode(pkt)
	if err != nil {
		r.dropped.Add(1)
		ev := log.Debug().Err(err).Int("size", len(pkt))
		if src != nil {
			ev = ev.Str("src", src.String())
		}
		ev.Msg("dropped packet")
		return
	}

	r.buf.Apply(frame.Payload)
	r.applied.Add(1)

	ev := log.Debug().
		Uint16("universe", frame.Universe).
		Uint8("seq", frame.Sequence).
		Int("channels", len(frame.Payload))
	if src != nil {
		ev = ev.Str("src", src.String())
	}
	ev.Msg("applied frame")
}

// Counters reports received/applied/dropped packet totals.
func (r *Receiver) Counters() (received, applied, dropped uint64) {
	return r.received.Load(), r.applied.Load(), r.dropped.Load()
}
