package sacn_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sacnstrip/internal/sacn"
	"github.com/example/sacnstrip/internal/strip"
)

// buildPacket assembles a minimal valid E1.31 data packet.
func buildPacket(universe uint16, seq uint8, payload []byte) []byte {
	pkt := make([]byte, sacn.HeaderSize+len(payload))
	binary.BigEndian.PutUint16(pkt[0:2], 0x0010)
	copy(pkt[4:16], "ASC-E1.17\x00\x00\x00")
	binary.BigEndian.PutUint32(pkt[18:22], 0x00000004)
	binary.BigEndian.PutUint32(pkt[40:44], 0x00000002)
	pkt[111] = seq
	binary.BigEndian.PutUint16(pkt[113:115], universe)
	pkt[117] = 0x02
	binary.BigEndian.PutUint16(pkt[123:125], uint16(1+len(payload)))
	pkt[125] = 0x00 // DMX start code
	copy(pkt[126:], payload)
	return pkt
}

func TestDecodeValid(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 150)
	frame, err := sacn.Decode(buildPacket(7, 42, payload))
	require.NoError(t, err)
	assert.Equal(t, uint16(7), frame.Universe)
	assert.Equal(t, uint8(42), frame.Sequence)
	assert.Equal(t, payload, frame.Payload)
}

func TestDecodeAnyUniverseAccepted(t *testing.T) {
	for _, u := range []uint16{0, 1, 255, 63999} {
		frame, err := sacn.Decode(buildPacket(u, 0, []byte{1, 2, 3}))
		require.NoError(t, err)
		assert.Equal(t, u, frame.Universe)
	}
}

func TestDecodeTooShort(t *testing.T) {
	for _, n := range []int{0, 1, 125} {
		_, err := sacn.Decode(make([]byte, n))
		assert.ErrorIs(t, err, sacn.ErrMalformedHeader, "size %d", n)
	}
}

func TestDecodeUnknownProtocol(t *testing.T) {
	corrupt := func(f func([]byte)) []byte {
		pkt := buildPacket(1, 0, []byte{1, 2, 3})
		f(pkt)
		return pkt
	}

	cases := map[string][]byte{
		"preamble":       corrupt(func(p []byte) { p[1] = 0x11 }),
		"identifier":     corrupt(func(p []byte) { p[4] = 'X' }),
		"root vector":    corrupt(func(p []byte) { p[21] = 0x09 }),
		"framing vector": corrupt(func(p []byte) { p[43] = 0x09 }),
		"dmp vector":     corrupt(func(p []byte) { p[117] = 0x01 }),
	}
	for name, pkt := range cases {
		_, err := sacn.Decode(pkt)
		assert.ErrorIs(t, err, sacn.ErrUnknownProtocol, name)
	}
}

func TestDecodeBadStartCode(t *testing.T) {
	pkt := buildPacket(1, 0, []byte{1, 2, 3})
	pkt[125] = 0xDD
	_, err := sacn.Decode(pkt)
	assert.ErrorIs(t, err, sacn.ErrBadStartCode)
}

func TestDecodeCountBeyondPacket(t *testing.T) {
	pkt := buildPacket(1, 0, []byte{1, 2, 3})
	// Claim more property values than the datagram carries.
	binary.BigEndian.PutUint16(pkt[123:125], 200)
	_, err := sacn.Decode(pkt)
	assert.ErrorIs(t, err, sacn.ErrMalformedHeader)
}

func TestDecodeZeroValueCount(t *testing.T) {
	pkt := buildPacket(1, 0, nil)
	binary.BigEndian.PutUint16(pkt[123:125], 0)
	_, err := sacn.Decode(pkt)
	assert.ErrorIs(t, err, sacn.ErrMalformedHeader)
}

func TestDecodeCapsPayloadAt512(t *testing.T) {
	frame, err := sacn.Decode(buildPacket(1, 0, make([]byte, 600)))
	require.NoError(t, err)
	assert.Len(t, frame.Payload, sacn.MaxChannels)
}

func TestHandleAppliesFullFrame(t *testing.T) {
	buf := strip.New(50, strip.RGB{})
	r := sacn.NewReceiver("", buf, nil)

	r.Handle(buildPacket(1, 0, bytes.Repeat([]byte{0xFF}, 150)), nil)

	for i := 0; i < 50; i++ {
		assert.Equal(t, strip.RGB{255, 255, 255}, buf.At(i))
	}
	received, applied, dropped := r.Counters()
	assert.Equal(t, uint64(1), received)
	assert.Equal(t, uint64(1), applied)
	assert.Equal(t, uint64(0), dropped)
}

func TestHandleDropsBadPacketUntouched(t *testing.T) {
	idle := strip.RGB{5, 6, 7}
	buf := strip.New(10, idle)
	r := sacn.NewReceiver("", buf, nil)

	pkt := buildPacket(1, 0, bytes.Repeat([]byte{0xFF}, 30))
	pkt[125] = 0x33 // wrong start code
	r.Handle(pkt, nil)

	for i := 0; i < 10; i++ {
		assert.Equal(t, idle, buf.At(i), "led %d must be untouched", i)
	}
	_, applied, dropped := r.Counters()
	assert.Equal(t, uint64(0), applied)
	assert.Equal(t, uint64(1), dropped)
}

func TestHandleDisjointPackets(t *testing.T) {
	// Two packets before a render cycle: both visible, last write wins
	// per LED.
	buf := strip.New(4, strip.RGB{})
	r := sacn.NewReceiver("", buf, nil)

	r.Handle(buildPacket(1, 0, []byte{1, 1, 1, 2, 2, 2, 3, 3, 3, 4, 4, 4}), nil)
	r.Handle(buildPacket(1, 1, []byte{9, 9, 9}), nil)

	assert.Equal(t, []byte{9, 9, 9, 2, 2, 2, 3, 3, 3, 4, 4, 4}, buf.Pixels())
}

func TestRunReceivesOverUDP(t *testing.T) {
	buf := strip.New(3, strip.RGB{})
	ready := make(chan struct{})
	r := sacn.NewReceiver("127.0.0.1:15568", buf, func() { close(ready) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("receiver never bound")
	}

	conn, err := net.Dial("udp", "127.0.0.1:15568")
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write(buildPacket(1, 0, []byte{10, 20, 30, 40, 50, 60, 70, 80, 90}))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, applied, _ := r.Counters()
		return applied == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []byte{10, 20, 30, 40, 50, 60, 70, 80, 90}, buf.Pixels())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("receiver did not stop")
	}
}
