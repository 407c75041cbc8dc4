package resources

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func writeSPIRV(t *testing.T, words []uint32) string {
	t.Helper()

	raw := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(raw[i*4:], w)
	}
	path := filepath.Join(t.TempDir(), "test.spv")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLoadSPIRV(t *testing.T) {
	want := []uint32{spirvMagic, 0x00010000, 0, 1, 0}
	path := writeSPIRV(t, want)

	got, err := LoadSPIRV(path)
	if err != nil {
		t.Fatalf("LoadSPIRV failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("LoadSPIRV returned %d words, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("word %d = 0x%08x, want 0x%08x", i, got[i], want[i])
		}
	}
}

func TestLoadSPIRVBadMagic(t *testing.T) {
	path := writeSPIRV(t, []uint32{0xdeadbeef, 0x00010000})

	if _, err := LoadSPIRV(path); err == nil {
		t.Error("LoadSPIRV accepted a blob with bad magic")
	}
}

func TestLoadSPIRVMisaligned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.spv")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := LoadSPIRV(path); err == nil {
		t.Error("LoadSPIRV accepted a misaligned blob")
	}
}

func TestLoadSPIRVMissingFile(t *testing.T) {
	if _, err := LoadSPIRV(filepath.Join(t.TempDir(), "missing.spv")); err == nil {
		t.Error("LoadSPIRV of a missing file succeeded, want error")
	}
}
