package dgus_test

import (
	"math/rand"
	"testing"

	"github.com/OpenPSG/dgus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// garbage contains near misses of the header but never a full one.
var garbage = []byte{0x00, 0xFF, 0x5A, 0x11, 0xA5, 0x5A}

type event struct {
	resp string
	err  error
}

func collect(acc *dgus.Accumulator, chunks ...[]byte) []event {
	var events []event
	for _, chunk := range chunks {
		acc.FeedAll(chunk, func(resp dgus.Response, err error) {
			if err != nil {
				events = append(events, event{err: err})
				return
			}
			events = append(events, event{resp: resp.String()})
		})
	}
	return events
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func mustAccumulator(t *testing.T, size int, crc bool) *dgus.Accumulator {
	t.Helper()
	acc, err := dgus.NewAccumulator(size, crc)
	require.NoError(t, err)
	return acc
}

func TestAccumulatorSizeBounds(t *testing.T) {
	_, err := dgus.NewAccumulator(7, true)
	assert.ErrorIs(t, err, dgus.ErrBufferTooSmall)
	_, err = dgus.NewAccumulator(dgus.MaxFrameSize+1, false)
	assert.ErrorIs(t, err, dgus.ErrBufferTooSmall)

	acc, err := dgus.NewAccumulator(dgus.MinAccumulatorSize, false)
	require.NoError(t, err)
	assert.Equal(t, dgus.MinAccumulatorSize, acc.Cap())
	assert.Equal(t, dgus.StateSearching, acc.State())
}

func TestAccumulatorSingleFrame(t *testing.T) {
	acc := mustAccumulator(t, dgus.MaxFrameSize, true)

	res, rest := acc.Feed(shortReply)
	require.Equal(t, dgus.FeedFrame, res.Status)
	assert.Empty(t, rest)
	assert.Equal(t, dgus.StateReady, acc.State())
	assert.Equal(t, shortReply, acc.Frame())

	wd, ok := res.Response.(*dgus.WordData)
	require.True(t, ok)
	assert.Equal(t, uint16(0xAABB), wd.Address)
	assert.Equal(t, []byte{0xCC, 0xDD}, wd.Data.Bytes())

	res, rest = acc.Feed(nil)
	assert.Equal(t, dgus.FeedConsumed, res.Status)
	assert.Nil(t, rest)
	assert.Equal(t, dgus.StateSearching, acc.State())
	assert.Nil(t, acc.Frame())
}

func TestAccumulatorGarbageThenFrameByteAtATime(t *testing.T) {
	acc := mustAccumulator(t, dgus.MaxFrameSize, true)
	stream := concat(garbage, tenWordReply)

	var events []event
	for i := range stream {
		events = append(events, collect(acc, stream[i:i+1])...)
	}

	require.Len(t, events, 1)
	require.NoError(t, events[0].err)
	assert.Contains(t, events[0].resp, "Address:0x1000 WordLen:10")
	assert.Equal(t, uint64(len(garbage)), acc.Dropped())
}

func TestAccumulatorRandomChunks(t *testing.T) {
	stream := concat(garbage, tenWordReply, garbage, ackFrame, shortReply, garbage)
	rng := rand.New(rand.NewSource(7))

	for round := range 50 {
		acc := mustAccumulator(t, dgus.MaxFrameSize, true)
		var chunks [][]byte
		for rest := stream; len(rest) > 0; {
			n := min(1+rng.Intn(16), len(rest))
			chunks = append(chunks, rest[:n])
			rest = rest[n:]
		}

		events := collect(acc, chunks...)
		require.Len(t, events, 3, "round %d", round)
		for _, ev := range events {
			require.NoError(t, ev.err, "round %d", round)
		}
		assert.Contains(t, events[0].resp, "Address:0x1000")
		assert.Equal(t, "Ack{Command:WriteVP}", events[1].resp)
		assert.Contains(t, events[2].resp, "Address:0xAABB")
		// The final 0x5A is still held as a possible header.
		assert.Equal(t, uint64(3*len(garbage)-1), acc.Dropped())
	}
}

func TestAccumulatorTwoFramesInOneChunk(t *testing.T) {
	acc := mustAccumulator(t, dgus.MaxFrameSize, true)

	res, rest := acc.Feed(concat(ackFrame, shortReply))
	require.Equal(t, dgus.FeedFrame, res.Status)
	assert.IsType(t, &dgus.Ack{}, res.Response)
	assert.Equal(t, ackFrame, acc.Frame())
	assert.Equal(t, shortReply, rest)

	res, rest = acc.Feed(rest)
	require.Equal(t, dgus.FeedFrame, res.Status)
	assert.Equal(t, shortReply, acc.Frame())
	assert.Empty(t, rest)
}

func TestAccumulatorChecksumMismatchResyncs(t *testing.T) {
	acc := mustAccumulator(t, dgus.MaxFrameSize, true)
	bad := append([]byte{}, shortReply...)
	bad[7] ^= 0x01

	events := collect(acc, concat(bad, ackFrame))
	require.Len(t, events, 2)
	assert.ErrorIs(t, events[0].err, dgus.ErrChecksumMismatch)
	assert.Equal(t, "Ack{Command:WriteVP}", events[1].resp)
}

func TestAccumulatorOverflowResyncs(t *testing.T) {
	acc := mustAccumulator(t, 16, true)

	res, rest := acc.Feed(concat(tenWordReply, ackFrame))
	require.Equal(t, dgus.FeedError, res.Status)
	assert.ErrorIs(t, res.Err, dgus.ErrBufferOverflow)
	assert.Equal(t, dgus.StateSearching, acc.State())
	assert.Len(t, rest, len(tenWordReply)-dgus.PrefixSize+len(ackFrame))

	events := collect(acc, rest)
	require.Len(t, events, 1)
	assert.Equal(t, "Ack{Command:WriteVP}", events[0].resp)
}

func TestAccumulatorLengthBelowMinimum(t *testing.T) {
	acc := mustAccumulator(t, dgus.MaxFrameSize, true)

	events := collect(acc, concat([]byte{0x5A, 0xA5, 0x04}, ackFrame))
	require.Len(t, events, 2)
	assert.ErrorIs(t, events[0].err, dgus.ErrLengthMismatch)
	assert.Equal(t, "Ack{Command:WriteVP}", events[1].resp)
}

func TestAccumulatorUnknownCommand(t *testing.T) {
	acc := mustAccumulator(t, dgus.MaxFrameSize, false)

	events := collect(acc, []byte{0x5A, 0xA5, 0x03, 0x90, 0x00, 0x00, 0x5A, 0xA5, 0x03, 0x82, 'O', 'K'})
	require.Len(t, events, 2)
	assert.ErrorIs(t, events[0].err, dgus.ErrUnknownCommand)
	assert.Equal(t, "Ack{Command:WriteVP}", events[1].resp)
}

func TestAccumulatorDwordReply(t *testing.T) {
	acc := mustAccumulator(t, dgus.MaxFrameSize, true)

	events := collect(acc, concat(garbage, dwordReply[:5]), dwordReply[5:], ackFrame)
	require.Len(t, events, 2)
	assert.NoError(t, events[0].err)
	assert.Equal(t, "WordData{Command:ReadDword Address:0x00010000 WordLen:2 Data:AB CD 00 2A}", events[0].resp)
	assert.Equal(t, "Ack{Command:WriteVP}", events[1].resp)
}

func TestAccumulatorSplitHeader(t *testing.T) {
	acc := mustAccumulator(t, dgus.MaxFrameSize, true)

	res, rest := acc.Feed([]byte{0x01, 0x02, 0x5A})
	assert.Equal(t, dgus.FeedConsumed, res.Status)
	assert.Nil(t, rest)
	assert.Equal(t, dgus.StateSearching, acc.State())
	assert.Equal(t, 1, acc.Len())

	res, _ = acc.Feed(ackFrame[1:2])
	assert.Equal(t, dgus.FeedConsumed, res.Status)
	assert.Equal(t, dgus.StateHaveLength, acc.State())

	res, _ = acc.Feed(ackFrame[2:4])
	assert.Equal(t, dgus.FeedConsumed, res.Status)
	assert.Equal(t, dgus.StateAccumulating, acc.State())
	assert.Equal(t, 4, acc.Len())

	res, _ = acc.Feed(ackFrame[4:])
	require.Equal(t, dgus.FeedFrame, res.Status)
	assert.Equal(t, uint64(2), acc.Dropped())
}

func TestAccumulatorReset(t *testing.T) {
	acc := mustAccumulator(t, dgus.MaxFrameSize, true)
	res, _ := acc.Feed(ackFrame[:5])
	require.Equal(t, dgus.FeedConsumed, res.Status)
	require.Equal(t, dgus.StateAccumulating, acc.State())

	acc.Reset()
	assert.Equal(t, dgus.StateSearching, acc.State())
	assert.Equal(t, 0, acc.Len())

	events := collect(acc, ackFrame)
	require.Len(t, events, 1)
	assert.NoError(t, events[0].err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Searching", dgus.StateSearching.String())
	assert.Equal(t, "HaveLength", dgus.StateHaveLength.String())
	assert.Equal(t, "Accumulating", dgus.StateAccumulating.String())
	assert.Equal(t, "Ready", dgus.StateReady.String())
	assert.Equal(t, "State(9)", dgus.State(9).String())
}
