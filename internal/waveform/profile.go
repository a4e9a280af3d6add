package waveform

import (
	"fmt"
	"strings"
	"time"
)

// TimingProfile holds the four pulse widths an LED chip variant uses to
// distinguish a logical 0 bit from a logical 1 bit, plus the low-time the
// chip chain needs to latch a frame. Values are fixed per chip and never
// change at runtime.
type TimingProfile struct {
	T0H time.Duration
	T0L time.Duration
	T1H time.Duration
	T1L time.Duration
	// Reset is the end-of-frame latch gap. Datasheets ask for >= 50us.
	Reset time.Duration
}

// Chip timings from the respective datasheets.
var (
	WS2812 = TimingProfile{
		T0H:   350 * time.Nanosecond,
		T0L:   800 * time.Nanosecond,
		T1H:   700 * time.Nanosecond,
		T1L:   600 * time.Nanosecond,
		Reset: 50 * time.Microsecond,
	}
	WS2812B = TimingProfile{
		T0H:   400 * time.Nanosecond,
		T0L:   800 * time.Nanosecond,
		T1H:   850 * time.Nanosecond,
		T1L:   450 * time.Nanosecond,
		Reset: 50 * time.Microsecond,
	}
	SK6812 = TimingProfile{
		T0H:   300 * time.Nanosecond,
		T0L:   900 * time.Nanosecond,
		T1H:   600 * time.Nanosecond,
		T1L:   600 * time.Nanosecond,
		Reset: 80 * time.Microsecond,
	}
)

// ProfileByName resolves a chip name from configuration.
func ProfileByName(name string) (TimingProfile, error) {
	switch strings.ToLower(name) {
	case "ws2812":
		return WS2812, nil
	case "ws2812b", "":
		return WS2812B, nil
	case "sk6812":
		return SK6812, nil
	}
	return TimingProfile{}, fmt.Errorf("unknown chip %q", name)
}

// Validate rejects profiles that cannot produce a legal waveform.
func (p TimingProfile) Validate() error {
	if p.T0H <= 0 || p.T0L <= 0 || p.T1H <= 0 || p.T1L <= 0 {
		return fmt.Errorf("timing profile has non-positive pulse width: %+v", p)
	}
	if p.Reset <= 0 {
		return fmt.Errorf("timing profile has non-positive reset gap: %v", p.Reset)
	}
	return nil
}

// BitDuration returns the on-wire time of a single encoded bit.
func (p TimingProfile) BitDuration(bit bool) time.Duration {
	if bit {
		return p.T1H + p.T1L
	}
	return p.T0H + p.T0L
}

// ChannelOrder names the byte order the chip expects on the wire. Most of
// the WS2812 family wants green first, but it is board-specific.
type ChannelOrder string

const (
	OrderGRB ChannelOrder = "GRB"
	OrderRGB ChannelOrder = "RGB"
	OrderBRG ChannelOrder = "BRG"
)

// DefaultOrder matches the common GRB wire order of the WS2812 family.
const DefaultOrder = OrderGRB

// permute reorders one RGB triple into wire order. Unknown letters fall
// back to green, mirroring how an unconfigured board usually behaves.
func (o ChannelOrder) permute(r, g, b byte) [3]byte {
	if len(o) != 3 {
		o = DefaultOrder
	}
	var out [3]byte
	for i := 0; i < 3; i++ {
		switch o[i] {
		case 'R', 'r':
			out[i] = r
		case 'G', 'g':
			out[i] = g
		case 'B', 'b':
			out[i] = b
		default:
			out[i] = g
		}
	}
	return out
}
