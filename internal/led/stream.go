package led

import (
	"fmt"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiostream"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/example/sacnstrip/internal/waveform"
)

// DefaultStreamClock gives 50ns resolution, comfortably inside the WS2812
// family's timing tolerance.
const DefaultStreamClock = 20 * physic.MegaHertz

// StreamTx plays pulse trains out a GPIO pin via the host's DMA-backed bit
// streaming, so software jitter cannot stretch individual pulses.
type StreamTx struct {
	pin  gpiostream.PinOut
	freq physic.Frequency
	bits []byte
}

// NewStream opens the named pin ("GPIO18", "9", ...) for pulse output.
func NewStream(pinName string, freq physic.Frequency) (*StreamTx, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	if freq <= 0 {
		freq = DefaultStreamClock
	}
	p := gpioreg.ByName(pinName)
	if p == nil {
		return nil, fmt.Errorf("no such pin %q", pinName)
	}
	out, ok := p.(gpiostream.PinOut)
	if !ok {
		return nil, fmt.Errorf("pin %q does not support bit streaming", pinName)
	}
	return &StreamTx{pin: out, freq: freq}, nil
}

func (s *StreamTx) Transmit(train waveform.PulseTrain) error {
	s.bits = rasterize(s.bits[:0], train, s.freq)
	return s.pin.StreamOut(&gpiostream.BitStream{
		Bits: s.bits,
		Freq: s.freq,
		LSBF: false,
	})
}

func (s *StreamTx) Close() error {
	return s.pin.Halt()
}
