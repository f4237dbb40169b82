/* Read a cassette recording from a .WAV file */
package tapewolf

/*------------------------------------------------------------------
 *
 * Purpose:	Load the audio samples that the decoder will chew on.
 *
 * Description:	Only 16-bit 1-channel linear PCM at 44100 Hz is
 *		supported.  The stock cycle thresholds are calibrated
 *		against that rate, so anything else is rejected here,
 *		before the decoder ever sees a sample.
 *
 *		Chunks other than "fmt " and "data" (LIST, cue, and
 *		whatever else an editor left behind) are skipped.
 *
 *------------------------------------------------------------------*/

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// The only sample rate the decoder understands.
const WavSampleRate = 44100

// Sound holds one channel of PCM audio, immutable once loaded.
type Sound struct {
	SampleRate int
	Samples    []int16
}

type wavFormat struct {
	FormatType    int16 /* 1 for PCM. */
	Channels      int16 /* 1 for mono. */
	SampleRate    int32 /* sampling freq, Hz. */
	BytesPerSec   int32 /* = BlockAlign * SampleRate. */
	BlockAlign    int16 /* = BitsPerSample/8 * Channels. */
	BitsPerSample int16 /* 16 or 8. */
}

// LoadWAV reads an entire .WAV file into memory and returns its samples.
// Malformed or unsupported containers are rejected outright.
func LoadWAV(path string) (*Sound, error) {
	var data, readErr = os.ReadFile(path)
	if readErr != nil {
		return nil, fmt.Errorf("reading %s: %w", path, readErr)
	}

	var r = bytes.NewReader(data)

	var riff [4]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("%s: reading RIFF header: %w", path, err)
	}

	if string(riff[:]) != "RIFF" {
		return nil, fmt.Errorf("%s: first 4 bytes should be \"RIFF\", are %q", path, riff)
	}

	var fileSize int32
	if err := binary.Read(r, binary.LittleEndian, &fileSize); err != nil {
		return nil, fmt.Errorf("%s: reading file size: %w", path, err)
	}

	var wave [4]byte
	if _, err := io.ReadFull(r, wave[:]); err != nil {
		return nil, fmt.Errorf("%s: reading WAVE header: %w", path, err)
	}

	if string(wave[:]) != "WAVE" {
		return nil, fmt.Errorf("%s: bytes 8-11 should be \"WAVE\", are %q", path, wave)
	}

	var format wavFormat
	var haveFormat = false

	for {
		var chunkID [4]byte
		if _, err := io.ReadFull(r, chunkID[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%s: no data chunk", path)
			}

			return nil, fmt.Errorf("%s: reading chunk header: %w", path, err)
		}

		var chunkSize int32
		if err := binary.Read(r, binary.LittleEndian, &chunkSize); err != nil {
			return nil, fmt.Errorf("%s: reading chunk size: %w", path, err)
		}

		if chunkSize < 0 {
			return nil, fmt.Errorf("%s: bad chunk size %d", path, chunkSize)
		}

		switch string(chunkID[:]) {
		case "fmt ":
			if err := binary.Read(r, binary.LittleEndian, &format); err != nil {
				return nil, fmt.Errorf("%s: reading format chunk: %w", path, err)
			}

			if extra := int64(chunkSize) - 16; extra > 0 {
				if _, err := r.Seek(extra, io.SeekCurrent); err != nil {
					return nil, fmt.Errorf("%s: skipping format extras: %w", path, err)
				}
			}

			if format.FormatType != 1 {
				return nil, fmt.Errorf("%s: format type should be 1 (PCM), is %d", path, format.FormatType)
			}

			if format.Channels != 1 {
				return nil, fmt.Errorf("%s: number of channels should be 1, is %d", path, format.Channels)
			}

			if format.BitsPerSample != 16 {
				return nil, fmt.Errorf("%s: bits per sample should be 16, is %d", path, format.BitsPerSample)
			}

			if format.SampleRate != WavSampleRate {
				return nil, fmt.Errorf("%s: sample rate should be %d, is %d", path, WavSampleRate, format.SampleRate)
			}

			haveFormat = true

		case "data":
			if !haveFormat {
				return nil, fmt.Errorf("%s: data chunk before fmt chunk", path)
			}

			var samples = make([]int16, chunkSize/2)
			if err := binary.Read(r, binary.LittleEndian, &samples); err != nil {
				return nil, fmt.Errorf("%s: reading %d samples: %w", path, len(samples), err)
			}

			return &Sound{SampleRate: int(format.SampleRate), Samples: samples}, nil

		default:
			// Skip anything we don't care about.  Chunks are word aligned.
			if _, err := r.Seek(int64(chunkSize)+int64(chunkSize&1), io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("%s: skipping %q chunk: %w", path, chunkID, err)
			}
		}
	}
}
