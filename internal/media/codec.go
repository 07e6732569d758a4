// Package media provides the telephony audio format specification and
// transcoding between the provider's G.711 µ-law encoding and 16-bit
// linear PCM.
package media

import (
	"time"

	"github.com/zaf/g711"
)

// Codec represents an immutable telephony audio format.
type Codec struct {
	Name       string
	SampleRate int           // Sample rate in Hz
	FrameDur   time.Duration // Duration of one frame
	Channels   int
}

// CodecPCMU is G.711 µ-law at 8kHz with 20ms framing, the format carried on
// the telephony media stream.
var CodecPCMU = Codec{"PCMU", 8000, 20 * time.Millisecond, 1}

// SamplesPerFrame returns the number of samples in one frame.
// For 8kHz with 20ms frames this is 160.
func (c Codec) SamplesPerFrame() int {
	return c.SampleRate * int(c.FrameDur) / int(time.Second)
}

// BytesPerFrame returns the compressed payload bytes per frame.
// µ-law carries one byte per sample.
func (c Codec) BytesPerFrame() int {
	return c.SamplesPerFrame() * c.Channels
}

// LinearBytesPerFrame returns the 16-bit linear PCM bytes covering one frame.
func (c Codec) LinearBytesPerFrame() int {
	return c.BytesPerFrame() * 2
}

// ToLinear decodes a single µ-law sample to a signed 16-bit linear sample.
func ToLinear(sample byte) int16 {
	return g711.DecodeUlawFrame(sample)
}

// ToCompressed encodes a signed 16-bit linear sample to µ-law.
func ToCompressed(sample int16) byte {
	return g711.EncodeUlawFrame(sample)
}

// DecodeUlaw transcodes a whole µ-law buffer to LPCM16 little-endian.
func DecodeUlaw(ulaw []byte) []byte {
	return g711.DecodeUlaw(ulaw)
}

// EncodeUlaw transcodes a whole LPCM16 little-endian buffer to µ-law.
// The input length must be even; a trailing odd byte is ignored.
func EncodeUlaw(lpcm []byte) []byte {
	return g711.EncodeUlaw(lpcm)
}
