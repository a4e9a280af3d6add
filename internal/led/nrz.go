package led

import (
	"fmt"
	"image"
	"image/color"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"
)

// NRZ drives the strip through the nrzled device, which performs the NRZ
// bit encoding itself. It is a frame-level fast path: no software pulse
// generation, but also no configurable timing profile or channel order
// (the device assumes GRB at the chip's standard 800kHz cadence).
type NRZ struct {
	drawer display.Drawer
	port   spi.PortCloser
	count  int
	img    *image.NRGBA
}

var _ Driver = (*NRZ)(nil)

// NewNRZ opens an SPI-backed nrzled device for count pixels.
func NewNRZ(dev string, count int, freq physic.Frequency) (*NRZ, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	port, err := spireg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", dev, err)
	}
	n, err := newNRZ(port, count, freq)
	if err != nil {
		port.Close()
		return nil, err
	}
	n.port = port
	return n, nil
}

func newNRZ(port spi.Port, count int, freq physic.Frequency) (*NRZ, error) {
	if freq <= 0 {
		freq = 2500 * physic.KiloHertz
	}
	d, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: count,
		Channels:  3,
		Freq:      freq,
	})
	if err != nil {
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	return &NRZ{
		drawer: d,
		count:  count,
		img:    image.NewNRGBA(d.Bounds()),
	}, nil
}

func (n *NRZ) Write(rgb []byte) error {
	if len(rgb) != n.count*3 {
		return fmt.Errorf("frame is %d bytes, want %d", len(rgb), n.count*3)
	}
	for i := 0; i < n.count; i++ {
		n.img.SetNRGBA(i, 0, color.NRGBA{
			R: rgb[i*3+0],
			G: rgb[i*3+1],
			B: rgb[i*3+2],
			A: 255,
		})
	}
	if err := n.drawer.Draw(n.drawer.Bounds(), n.img, image.Point{}); err != nil {
		return fmt.Errorf("nrzled draw: %w", err)
	}
	return nil
}

func (n *NRZ) Close() error {
	if n.port != nil {
		return n.port.Close()
	}
	return nil
}
