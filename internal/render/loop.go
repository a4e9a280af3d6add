package render

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/example/sacnstrip/internal/led"
	"github.com/example/sacnstrip/internal/strip"
)

const DefaultFPS = 30

// Loop pushes the strip buffer to the driver on a fixed cadence. It is the
// only goroutine that talks to the driver, so transmissions are serialized:
// a new frame waits for the previous Write to return instead of queuing a
// concurrent one. A driver failure skips the frame and the next cycle
// retries; network jitter never reaches this path because the only shared
// state is the buffer behind its lock.
type Loop struct {
	buf      *strip.Buffer
	drv      led.Driver
	fps      int
	observer func([]byte)

	frame  []byte
	frames atomic.Uint64
	faults atomic.Uint64
}

// NewLoop wires the buffer to a driver. observer, if non-nil, sees every
// frame after it is written; it must not retain the slice.
func NewLoop(buf *strip.Buffer, drv led.Driver, fps int, observer func([]byte)) *Loop {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Loop{
		buf:      buf,
		drv:      drv,
		fps:      fps,
		observer: observer,
		frame:    make([]byte, buf.Len()*3),
	}
}

// RenderOnce snapshots the buffer and transmits it. The snapshot happens
// under the buffer's read lock, so the transmitted frame is the buffer's
// state at one instant, never a half-applied packet.
func (l *Loop) RenderOnce() error {
	l.buf.Snapshot(l.frame)
	err := l.drv.Write(l.frame)
	if err != nil {
		l.faults.Add(1)
	} else {
		l.frames.Add(1)
	}
	if l.observer != nil {
		l.observer(l.frame)
	}
	return err
}

// Run renders until ctx is canceled. Driver errors are logged and the
// frame dropped; the next frame self-corrects the strip.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(l.fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := l.RenderOnce(); err != nil {
				log.Warn().Err(err).Msg("frame transmit failed; retrying next cycle")
			}
		}
	}
}

// Counters reports transmitted frames and transmit faults.
func (l *Loop) Counters() (frames, faults uint64) {
	return l.frames.Load(), l.faults.Load()
}
