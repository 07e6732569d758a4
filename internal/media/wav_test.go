package media

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func readHeader(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read recording: %v", err)
	}
	if len(data) < wavHeaderSize {
		t.Fatalf("recording shorter than header: %d bytes", len(data))
	}
	return data
}

func TestRecorder_HeaderIntegrity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "call.wav")
	rec, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}

	const n = 1234
	payload := make([]byte, n)
	for i := range payload {
		payload[i] = byte(i)
	}
	if _, err := rec.Write(payload[:1000]); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := rec.Write(payload[1000:]); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := rec.DataBytes(); got != n {
		t.Errorf("DataBytes() = %d, want %d", got, n)
	}

	if err := rec.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	data := readHeader(t, path)
	if len(data) != wavHeaderSize+n {
		t.Errorf("file size = %d, want %d", len(data), wavHeaderSize+n)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE magic")
	}
	if got := binary.LittleEndian.Uint32(data[wavRiffSizeOffset:]); got != n+36 {
		t.Errorf("RIFF size = %d, want %d", got, n+36)
	}
	if got := binary.LittleEndian.Uint32(data[wavDataSizeOffset:]); got != n {
		t.Errorf("data size = %d, want %d", got, n)
	}
}

func TestRecorder_HeaderFormatFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "call.wav")
	rec, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}
	if err := rec.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	data := readHeader(t, path)
	if got := binary.LittleEndian.Uint16(data[20:22]); got != 1 {
		t.Errorf("audio format = %d, want 1 (PCM)", got)
	}
	if got := binary.LittleEndian.Uint16(data[22:24]); got != 1 {
		t.Errorf("channels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(data[24:28]); got != 8000 {
		t.Errorf("sample rate = %d, want 8000", got)
	}
	if got := binary.LittleEndian.Uint16(data[34:36]); got != 16 {
		t.Errorf("bits per sample = %d, want 16", got)
	}
}

func TestRecorder_FinalizeEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	rec, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}
	if err := rec.Finalize(); err != nil {
		t.Fatalf("Finalize of empty recording failed: %v", err)
	}

	data := readHeader(t, path)
	if len(data) != wavHeaderSize {
		t.Errorf("empty recording size = %d, want %d", len(data), wavHeaderSize)
	}
	if got := binary.LittleEndian.Uint32(data[wavDataSizeOffset:]); got != 0 {
		t.Errorf("data size = %d, want 0", got)
	}
	if got := binary.LittleEndian.Uint32(data[wavRiffSizeOffset:]); got != 36 {
		t.Errorf("RIFF size = %d, want 36", got)
	}
}

func TestRecorder_FinalizeIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "call.wav")
	rec, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}
	rec.Write(make([]byte, 320))

	if err := rec.Finalize(); err != nil {
		t.Fatalf("first Finalize failed: %v", err)
	}
	if err := rec.Finalize(); err != nil {
		t.Fatalf("second Finalize failed: %v", err)
	}
	if _, err := rec.Write([]byte{1, 2}); err == nil {
		t.Error("expected Write after Finalize to fail")
	}
}

func TestRecorder_AbandonAfterFailedFinalize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "call.wav")
	rec, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}
	rec.Write(make([]byte, 320))

	// Remove the file underneath the recorder so the header patch fails.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := rec.Finalize(); err == nil {
		t.Fatal("expected Finalize to fail without its file")
	}

	rec.Abandon()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected no recording file after abandon")
	}
}

func TestRecorder_Abandon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "call.wav")
	rec, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}
	rec.Write(make([]byte, 100))

	if err := rec.Abandon(); err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected recording file to be removed")
	}
}
