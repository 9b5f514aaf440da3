package audio

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration(t *testing.T) {
	assert.Equal(t, time.Second, Duration(48000, 24000))
	assert.Equal(t, 500*time.Millisecond, Duration(16000, 16000))
	assert.Equal(t, time.Duration(0), Duration(100, 0))
}

func TestRateFromMIME(t *testing.T) {
	assert.Equal(t, 24000, RateFromMIME("audio/L16;codec=pcm;rate=24000", 16000))
	assert.Equal(t, 16000, RateFromMIME("audio/pcm", 16000))
	assert.Equal(t, 16000, RateFromMIME("audio/pcm;rate=abc", 16000))
	assert.Equal(t, "audio/pcm;rate=16000", PCMMime(16000))
}

func TestWAVHeader(t *testing.T) {
	pcm := make([]byte, 480)
	wav := WAV(pcm, 24000)
	require.Len(t, wav, 44+480)
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, uint32(36+480), binary.LittleEndian.Uint32(wav[4:8]))
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(wav[28:32]))
	assert.Equal(t, "data", string(wav[36:40]))
	assert.Equal(t, uint32(480), binary.LittleEndian.Uint32(wav[40:44]))
}

func TestFramerEmitsFixedFrames(t *testing.T) {
	f := NewFramer(4)
	assert.Equal(t, 8, f.FrameSize())

	assert.Empty(t, f.Push([]byte{1, 2, 3}))
	assert.Equal(t, 3, f.Pending())

	input := []byte{4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17}
	frames := f.Push(input)
	require.Len(t, frames, 2)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, frames[0])
	assert.Equal(t, []byte{9, 10, 11, 12, 13, 14, 15, 16}, frames[1])
	assert.Equal(t, 1, f.Pending())

	input[4] = 99
	assert.Equal(t, byte(8), frames[0][7])

	f.Reset()
	assert.Equal(t, 0, f.Pending())
}
