package led

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Sim is a headless driver: it keeps the last frame and a frame counter so
// the daemon runs without hardware and tests can inspect output.
type Sim struct {
	mu     sync.Mutex
	frames int
	last   []byte
}

func NewSim() *Sim {
	return &Sim{}
}

func (s *Sim) Write(rgb []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	s.last = append(s.last[:0], rgb...)

	var r, g, b int
	for i := 0; i+2 < len(rgb); i += 3 {
		r += int(rgb[i])
		g += int(rgb[i+1])
		b += int(rgb[i+2])
	}
	n := len(rgb) / 3
	if n == 0 {
		n = 1
	}
	log.Trace().
		Int("frame", s.frames).
		Int("avg_r", r/n).Int("avg_g", g/n).Int("avg_b", b/n).
		Msg("sim frame")
	return nil
}

func (s *Sim) Close() error {
	return nil
}

// Frames is the number of frames written so far.
func (s *Sim) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Last returns a copy of the most recent frame.
func (s *Sim) Last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.last...)
}
