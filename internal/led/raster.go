package led

import (
	"periph.io/x/conn/v3/physic"

	"github.com/example/sacnstrip/internal/waveform"
)

// rasterize quantizes a pulse train into an MSB-first bitstream sampled at
// freq: a high pulse becomes a run of 1 samples, a low pulse a run of 0
// samples, rounded to the nearest sample. The trailing partial byte is
// padded with zeros, which only stretches the latch gap. The sample clock
// bounds the timing error at half a period, so it must be chosen well
// inside the chip's +-150ns tolerance.
func rasterize(dst []byte, train waveform.PulseTrain, freq physic.Frequency) []byte {
	tick := freq.Duration()
	var cur byte
	nbits := 0
	for _, p := range train {
		n := int((p.Duration + tick/2) / tick)
		if n == 0 && p.Duration > 0 {
			n = 1
		}
		for ; n > 0; n-- {
			cur <<= 1
			if p.High {
				cur |= 1
			}
			nbits++
			if nbits == 8 {
				dst = append(dst, cur)
				cur, nbits = 0, 0
			}
		}
	}
	if nbits > 0 {
		dst = append(dst, cur<<uint(8-nbits))
	}
	return dst
}
