package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

var (
	// ErrNotWAV indicates data without a RIFF/WAVE header.
	ErrNotWAV = errors.New("not a WAV file")

	// ErrUnsupportedFormat indicates WAV data this package cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported WAV format")
)

// Format describes signed 16-bit little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat is the player format: 44.1 kHz mono, which is also what the
// ElevenLabs pcm_44100 output delivers.
var DefaultFormat = Format{SampleRate: 44100, Channels: 1}

// BytesPerFrame returns the size of one sample across all channels.
func (f Format) BytesPerFrame() int { return 2 * f.Channels }

// Duration returns the playing time of n bytes of PCM.
func (f Format) Duration(n int) time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	frames := n / f.BytesPerFrame()
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Clip is decoded PCM with its format.
type Clip struct {
	Format Format
	PCM    []byte
}

// Duration returns the clip's playing time.
func (c Clip) Duration() time.Duration { return c.Format.Duration(len(c.PCM)) }

// DecodeWAV reads a 16-bit PCM WAV file.
func DecodeWAV(data []byte) (Clip, error) {
	r := bytes.NewReader(data)

	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Clip{}, ErrNotWAV
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Clip{}, ErrNotWAV
	}

	var (
		format  Format
		haveFmt bool
	)
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return Clip{}, fmt.Errorf("%w: missing data chunk", ErrUnsupportedFormat)
		}
		id := string(hdr[0:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:8]))

		switch id {
		case "fmt ":
			var fmtChunk struct {
				AudioFormat   uint16
				Channels      uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if size < 16 {
				return Clip{}, fmt.Errorf("%w: short fmt chunk", ErrUnsupportedFormat)
			}
			if err := binary.Read(r, binary.LittleEndian, &fmtChunk); err != nil {
				return Clip{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
			}
			if fmtChunk.AudioFormat != 1 || fmtChunk.BitsPerSample != 16 {
				return Clip{}, fmt.Errorf("%w: encoding %d, %d bits",
					ErrUnsupportedFormat, fmtChunk.AudioFormat, fmtChunk.BitsPerSample)
			}
			format = Format{SampleRate: int(fmtChunk.SampleRate), Channels: int(fmtChunk.Channels)}
			haveFmt = true
			if _, err := r.Seek(size-16+size%2, io.SeekCurrent); err != nil {
				return Clip{}, err
			}
		case "data":
			if !haveFmt {
				return Clip{}, fmt.Errorf("%w: data before fmt", ErrUnsupportedFormat)
			}
			if remaining := int64(r.Len()); size > remaining {
				size = remaining
			}
			pcm := make([]byte, size-size%int64(format.BytesPerFrame()))
			if _, err := io.ReadFull(r, pcm); err != nil {
				return Clip{}, err
			}
			return Clip{Format: format, PCM: pcm}, nil
		default:
			if _, err := r.Seek(size+size%2, io.SeekCurrent); err != nil {
				return Clip{}, err
			}
		}
	}
}

// EncodeWAV wraps PCM in a WAV header.
func EncodeWAV(c Clip) []byte {
	var buf bytes.Buffer
	dataLen := uint32(len(c.PCM))
	byteRate := uint32(c.Format.SampleRate * c.Format.BytesPerFrame())

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVEfmt ")
	for _, v := range []any{
		uint32(16), uint16(1), uint16(c.Format.Channels), uint32(c.Format.SampleRate),
		byteRate, uint16(c.Format.BytesPerFrame()), uint16(16),
	} {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataLen)
	buf.Write(c.PCM)
	return buf.Bytes()
}

// Convert downmixes c to mono and resamples it to the target rate. A speed
// above 1 shortens the clip the way a media element's playbackRate does.
func Convert(c Clip, target Format, speed float64) ([]byte, error) {
	if target.Channels != 1 {
		return nil, fmt.Errorf("%w: %d output channels", ErrUnsupportedFormat, target.Channels)
	}
	if c.Format.SampleRate <= 0 || c.Format.Channels <= 0 {
		return nil, fmt.Errorf("%w: %+v", ErrUnsupportedFormat, c.Format)
	}
	if speed <= 0 {
		speed = 1
	}

	mono := toMono(c)
	if c.Format.SampleRate == target.SampleRate && speed == 1 {
		return fromSamples(mono), nil
	}

	step := float64(c.Format.SampleRate) * speed / float64(target.SampleRate)
	n := int(math.Floor(float64(len(mono)) / step))
	out := make([]int16, n)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		frac := pos - float64(j)
		a := float64(mono[j])
		b := a
		if j+1 < len(mono) {
			b = float64(mono[j+1])
		}
		out[i] = int16(math.Round(a + (b-a)*frac))
	}
	return fromSamples(out), nil
}

func toMono(c Clip) []int16 {
	ch := c.Format.Channels
	frames := len(c.PCM) / (2 * ch)
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int
		for k := 0; k < ch; k++ {
			off := (i*ch + k) * 2
			sum += int(int16(binary.LittleEndian.Uint16(c.PCM[off:])))
		}
		out[i] = int16(sum / ch)
	}
	return out
}

func fromSamples(s []int16) []byte {
	out := make([]byte, 2*len(s))
	for i, v := range s {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}
