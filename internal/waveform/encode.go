package waveform

import "time"

// Pulse is one level held for a duration. A pulse train alternates
// high/low pairs, one pair per encoded bit, and ends with the latch gap.
type Pulse struct {
	High     bool
	Duration time.Duration
}

// PulseTrain is a complete frame worth of pulses, latch gap included.
type PulseTrain []Pulse

// Duration is the total on-wire time of the train.
func (t PulseTrain) Duration() time.Duration {
	var d time.Duration
	for _, p := range t {
		d += p.Duration
	}
	return d
}

// Transmitter is the pulse-generation peripheral as this package sees it:
// it plays a train with sub-microsecond fidelity or reports failure. A
// failed transmit corrupts at most the current frame; the caller retries
// on its next cycle.
type Transmitter interface {
	Transmit(PulseTrain) error
	Close() error
}

// AppendFrame encodes rgb (3 bytes per LED, R,G,B) into dst as one pulse
// pair per bit, channel bytes in wire order, bits MSB first, and a final
// reset gap. It returns the extended slice so callers can reuse storage
// across frames.
func AppendFrame(dst PulseTrain, rgb []byte, order ChannelOrder, p TimingProfile) PulseTrain {
	for i := 0; i+2 < len(rgb); i += 3 {
		chans := order.permute(rgb[i], rgb[i+1], rgb[i+2])
		for _, c := range chans {
			for bit := 7; bit >= 0; bit-- {
				if c&(1<<uint(bit)) != 0 {
					dst = append(dst,
						Pulse{High: true, Duration: p.T1H},
						Pulse{High: false, Duration: p.T1L})
				} else {
					dst = append(dst,
						Pulse{High: true, Duration: p.T0H},
						Pulse{High: false, Duration: p.T0L})
				}
			}
		}
	}
	return append(dst, Pulse{High: false, Duration: p.Reset})
}

// Encode is AppendFrame from a fresh slice, preallocated for the frame.
func Encode(rgb []byte, order ChannelOrder, p TimingProfile) PulseTrain {
	n := len(rgb) / 3
	dst := make(PulseTrain, 0, n*24*2+1)
	return AppendFrame(dst, rgb, order, p)
}

// Pipeline couples the encoder to a Transmitter, exposing the frame-level
// Write the render loop speaks. The train slice is reused between frames;
// Write must not be called concurrently, which the single render goroutine
// guarantees.
type Pipeline struct {
	tx      Transmitter
	order   ChannelOrder
	profile TimingProfile
	train   PulseTrain
}

// NewPipeline validates the profile and returns a ready pipeline.
func NewPipeline(tx Transmitter, order ChannelOrder, profile TimingProfile) (*Pipeline, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{tx: tx, order: order, profile: profile}, nil
}

func (pl *Pipeline) Write(rgb []byte) error {
	pl.train = AppendFrame(pl.train[:0], rgb, pl.order, pl.profile)
	return pl.tx.Transmit(pl.train)
}

func (pl *Pipeline) Close() error {
	return pl.tx.Close()
}
