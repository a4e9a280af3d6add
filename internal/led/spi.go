package led

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/example/sacnstrip/internal/waveform"
)

// DefaultSPIClock is the classic 3-samples-per-bit rate for the 800kHz
// WS2812 family: one SPI bit is ~417ns on the wire.
const DefaultSPIClock = 2400 * physic.KiloHertz

// SPITx shifts rasterized pulse trains out MOSI. The SPI clock does the
// hard real-time work; the latch gap quantizes to a run of zero bytes, so
// the line rests low between frames for free.
type SPITx struct {
	port spi.PortCloser
	conn spi.Conn
	freq physic.Frequency
	bits []byte
}

// NewSPITx opens an SPI port (e.g. "/dev/spidev0.0", or "" for the first
// one) at the given bit clock.
func NewSPITx(dev string, freq physic.Frequency) (*SPITx, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	port, err := spireg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", dev, err)
	}
	tx, err := newSPITx(port, freq)
	if err != nil {
		port.Close()
		return nil, err
	}
	tx.port = port
	return tx, nil
}

func newSPITx(port spi.Port, freq physic.Frequency) (*SPITx, error) {
	if freq <= 0 {
		freq = DefaultSPIClock
	}
	conn, err := port.Connect(freq, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("spi connect: %w", err)
	}
	return &SPITx{conn: conn, freq: freq}, nil
}

func (s *SPITx) Transmit(train waveform.PulseTrain) error {
	s.bits = rasterize(s.bits[:0], train, s.freq)
	if err := s.conn.Tx(s.bits, nil); err != nil {
		return fmt.Errorf("spi tx: %w", err)
	}
	return nil
}

func (s *SPITx) Close() error {
	if s.port != nil {
		return s.port.Close()
	}
	return nil
}
