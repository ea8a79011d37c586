package capture_test

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/dgus/capture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	rec := capture.NewRecorder(&buf)

	at := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	in := []capture.Record{
		{Time: at, Session: "s1", Direction: capture.DirectionOut, Data: []byte{0x5A, 0xA5, 0x04, 0x83, 0x10, 0x00, 0x0A}},
		{Time: at.Add(time.Millisecond), Session: "s1", Direction: capture.DirectionIn, Data: []byte{0x5A, 0xA5}, Err: "checksum mismatch"},
	}
	for _, r := range in {
		require.NoError(t, rec.Record(r))
	}
	require.NoError(t, rec.Close())

	rd := capture.NewReader(&buf)
	for _, want := range in {
		got, err := rd.Next()
		require.NoError(t, err)
		assert.True(t, want.Time.Equal(got.Time), "time %s != %s", want.Time, got.Time)
		assert.Equal(t, want.Session, got.Session)
		assert.Equal(t, want.Direction, got.Direction)
		assert.Equal(t, want.Data, got.Data)
		assert.Equal(t, want.Err, got.Err)
	}
	_, err := rd.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRecorderIgnoresRecordsAfterClose(t *testing.T) {
	var buf bytes.Buffer
	rec := capture.NewRecorder(&buf)
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Record(capture.Record{Data: []byte{1}}))
	assert.Zero(t, buf.Len())
}

func TestCaptureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traffic.cbor")

	rec, err := capture.Create(path)
	require.NoError(t, err)
	require.NoError(t, rec.Record(capture.Record{Time: time.Now(), Session: "a", Data: []byte{0x5A}}))
	require.NoError(t, rec.Close())

	rec, err = capture.Create(path)
	require.NoError(t, err)
	require.NoError(t, rec.Record(capture.Record{Time: time.Now(), Session: "b", Data: []byte{0xA5}}))
	require.NoError(t, rec.Close())

	rd, err := capture.Open(path)
	require.NoError(t, err)
	defer rd.Close()

	var sessions []string
	for {
		r, err := rd.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sessions = append(sessions, r.Session)
	}
	assert.Equal(t, []string{"a", "b"}, sessions)
}

func TestReaderCorruptInput(t *testing.T) {
	rd := capture.NewReader(bytes.NewReader([]byte{0xA1, 0x01}))
	_, err := rd.Next()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "IN", capture.DirectionIn.String())
	assert.Equal(t, "OUT", capture.DirectionOut.String())
	assert.Equal(t, "UNKNOWN", capture.Direction(7).String())
}
