package media

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
)

// WAV container layout for mono 8kHz 16-bit PCM. The two size fields are
// written as zero placeholders on open and patched on Finalize.
const (
	wavHeaderSize     = 44
	wavRiffSizeOffset = 4  // RIFF chunk size = dataBytes + 36
	wavDataSizeOffset = 40 // data chunk size = dataBytes
)

// Recorder appends linear PCM samples to a WAV file. Once opened it must be
// either Finalized (header patched with true sizes) or Abandoned.
type Recorder struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	dataBytes uint32
	closed    bool
}

// NewRecorder creates the recording file and writes a provisional header.
func NewRecorder(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}
	if err := writeWAVHeader(f); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write recording header: %w", err)
	}
	return &Recorder{path: path, file: f}, nil
}

// Path returns the recording file path.
func (r *Recorder) Path() string {
	return r.path
}

// Write appends LPCM16 bytes and tracks the running data size.
func (r *Recorder) Write(pcm []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, fmt.Errorf("recording %s already finalized", r.path)
	}
	n, err := r.file.Write(pcm)
	r.dataBytes += uint32(n)
	if err != nil {
		return n, fmt.Errorf("failed to append to recording: %w", err)
	}
	return n, nil
}

// DataBytes returns the number of PCM bytes written so far.
func (r *Recorder) DataBytes() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dataBytes
}

// Finalize closes the sink, then reopens the file to patch the RIFF and data
// size fields with the true byte counts. A recording with zero samples
// finalizes to a valid empty container. Idempotent.
func (r *Recorder) Finalize() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	// The patch must not race the streaming writes: close (and flush) the
	// append handle fully before reopening for random access.
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("failed to close recording: %w", err)
	}

	f, err := os.OpenFile(r.path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to reopen recording for header patch: %w", err)
	}
	defer f.Close()

	var sizes [4]byte
	binary.LittleEndian.PutUint32(sizes[:], r.dataBytes+wavHeaderSize-8)
	if _, err := f.WriteAt(sizes[:], wavRiffSizeOffset); err != nil {
		return fmt.Errorf("failed to patch RIFF size: %w", err)
	}
	binary.LittleEndian.PutUint32(sizes[:], r.dataBytes)
	if _, err := f.WriteAt(sizes[:], wavDataSizeOffset); err != nil {
		return fmt.Errorf("failed to patch data size: %w", err)
	}
	return nil
}

// Abandon closes and removes the recording file without patching the header.
// Used when the session decides the recording is unusable, including after a
// failed Finalize, so it removes the file even when the sink is already
// closed.
func (r *Recorder) Abandon() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		r.file.Close()
	}
	return os.Remove(r.path)
}

func writeWAVHeader(f *os.File) error {
	c := CodecPCMU
	byteRate := uint32(c.SampleRate * c.Channels * 2)
	blockAlign := uint16(c.Channels * 2)

	h := struct {
		ChunkID       [4]byte
		ChunkSize     uint32 // patched on Finalize
		Format        [4]byte
		Subchunk1ID   [4]byte
		Subchunk1Size uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Subchunk2ID   [4]byte
		Subchunk2Size uint32 // patched on Finalize
	}{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   uint16(c.Channels),
		SampleRate:    uint32(c.SampleRate),
		ByteRate:      byteRate,
		BlockAlign:    blockAlign,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
	}
	return binary.Write(f, binary.LittleEndian, &h)
}
