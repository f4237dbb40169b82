package tapewolf

/*
 * Helpers that synthesize cassette waveforms with exactly known cycle
 * lengths, so the pipeline can be tested under controlled and
 * reproducible conditions.
 */

import (
	"bytes"
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// Cycle lengths comfortably inside the default ranges.
const (
	testOneCycle  = 20
	testZeroCycle = 40
)

const testAmplitude = 16000

// appendCycle appends one wave cycle: negative half first, then
// positive, so each cycle opens with a falling zero crossing and the
// measured distance between crossings is exactly the cycle length.
func appendCycle(samples []int16, length int) []int16 {
	var half = length / 2

	for i := 0; i < half; i++ {
		samples = append(samples, -testAmplitude)
	}

	for i := half; i < length; i++ {
		samples = append(samples, testAmplitude)
	}

	return samples
}

func appendBit(samples []int16, one bool) []int16 {
	if one {
		return appendCycle(samples, testOneCycle)
	}

	return appendCycle(samples, testZeroCycle)
}

// appendByteWave appends the 8 cycles for one byte, least significant
// bit first, matching the serial order on tape.
func appendByteWave(samples []int16, by byte) []int16 {
	for i := 0; i < 8; i++ {
		samples = appendBit(samples, (by>>i)&1 == 1)
	}

	return samples
}

// tapeSamples renders a byte sequence as a complete waveform: a short
// positive run-in (the first falling crossing only starts the counter),
// the byte cycles, and one final falling edge to flush the last bit.
func tapeSamples(data []byte) []int16 {
	var samples = []int16{testAmplitude, testAmplitude}

	for _, by := range data {
		samples = appendByteWave(samples, by)
	}

	return append(samples, -testAmplitude)
}

// frameBytes wraps a payload in the standard block framing: leader,
// sync, type, length, payload, checksum, leader.
func frameBytes(btype byte, payload []byte) []byte {
	var out = []byte{leaderByte, syncByte, btype, byte(len(payload))}

	var cksum = btype + byte(len(payload))
	for _, by := range payload {
		cksum += by
	}

	out = append(out, payload...)

	return append(out, cksum, leaderByte)
}

// namePayload builds the 15 byte name block payload.
func namePayload(name string, ftype byte, start uint16, load uint16) []byte {
	var padded = make([]byte, progNameLen)
	for i := range padded {
		padded[i] = ' '
	}
	copy(padded, name)

	var payload = append(padded, ftype, asciiBinary, 0x00)
	payload = binary.LittleEndian.AppendUint16(payload, start)

	return binary.LittleEndian.AppendUint16(payload, load)
}

// writeWAVFile writes samples as a 16-bit mono 44100 Hz PCM .WAV file.
func writeWAVFile(t *testing.T, path string, samples []int16) {
	t.Helper()

	var buf bytes.Buffer

	buf.WriteString("RIFF")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, int32(36+len(samples)*2)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, int32(16)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, wavFormat{
		FormatType:    1,
		Channels:      1,
		SampleRate:    WavSampleRate,
		BytesPerSec:   WavSampleRate * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
	}))

	buf.WriteString("data")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, int32(len(samples)*2)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, samples))

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}
