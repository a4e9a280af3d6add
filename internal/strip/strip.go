package strip

import "sync"

// RGB is one LED's color, 8 bits per channel.
type RGB [3]uint8

// Buffer is the shared color state of the strip: one entry per physical
// LED, fixed length for the process lifetime. The network receiver writes
// it packet by packet and the render loop snapshots it once per cycle; a
// single RWMutex scoped to each full pass keeps the two from tearing each
// other's view.
type Buffer struct {
	mu  sync.RWMutex
	rgb []byte // 3 bytes per LED
}

// New returns a buffer of n LEDs, every entry seeded with the idle color.
func New(n int, idle RGB) *Buffer {
	b := &Buffer{rgb: make([]byte, n*3)}
	for i := 0; i < n; i++ {
		copy(b.rgb[i*3:], idle[:])
	}
	return b
}

// Len is the LED count.
func (b *Buffer) Len() int {
	return len(b.rgb) / 3
}

// Apply maps payload bytes 3-to-1 onto LEDs in order. A payload shorter
// than the strip leaves the remaining LEDs at their previous value; a
// longer one is truncated. One call is one write pass: the whole update
// lands under a single lock hold, so a concurrent snapshot sees either all
// of it or none of it.
func (b *Buffer) Apply(payload []byte) {
	n := len(payload) / 3 * 3
	if n > len(b.rgb) {
		n = len(b.rgb)
	}
	b.mu.Lock()
	copy(b.rgb[:n], payload[:n])
	b.mu.Unlock()
}

// Set overwrites a single LED.
func (b *Buffer) Set(i int, c RGB) {
	b.mu.Lock()
	copy(b.rgb[i*3:], c[:])
	b.mu.Unlock()
}

// At reads a single LED.
func (b *Buffer) At(i int) RGB {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var c RGB
	copy(c[:], b.rgb[i*3:])
	return c
}

// Snapshot copies the current frame into dst, which must hold 3*Len()
// bytes. The copy happens under one read lock, so it never observes a
// half-applied packet.
func (b *Buffer) Snapshot(dst []byte) {
	b.mu.RLock()
	copy(dst, b.rgb)
	b.mu.RUnlock()
}

// Pixels returns a fresh copy of the frame.
func (b *Buffer) Pixels() []byte {
	dst := make([]byte, len(b.rgb))
	b.Snapshot(dst)
	return dst
}
