package arhext

import (
	"bytes"
	"testing"

	"github.com/jchantrell/goarh/internal/arh"
)

func TestSectionEncodeDecodeRoundTrip(t *testing.T) {
	sec := New(arh.NewFileTable(), DefaultBlockSizePow)
	sec.Blocks.Allocate(1000)
	sec.Blocks.Allocate(2048)
	if err := sec.Blocks.Free(0, 512); err != nil {
		t.Fatalf("Free: %v", err)
	}
	sec.Recycle.Push(7)
	sec.Recycle.Push(3)

	buf := sec.Encode()
	if !bytes.Equal(buf[:4], Magic[:]) {
		t.Fatalf("Encode did not lead with the arhx magic: got %v", buf[:4])
	}

	back, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if back.Blocks.BlockSizePow() != sec.Blocks.BlockSizePow() {
		t.Errorf("round-tripped block size pow = %d, want %d", back.Blocks.BlockSizePow(), sec.Blocks.BlockSizePow())
	}
	if !equalWords(back.Blocks.Words(), sec.Blocks.Words()) {
		t.Errorf("round-tripped bitmap words = %v, want %v", back.Blocks.Words(), sec.Blocks.Words())
	}
	if !equalIDs(back.Recycle.IDs(), sec.Recycle.IDs()) {
		t.Errorf("round-tripped recycle ids = %v, want %v", back.Recycle.IDs(), sec.Recycle.IDs())
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	buf := []byte{'x', 'x', 'x', 'x', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	if _, err := Decode(buf); err == nil {
		t.Fatal("Decode with bad magic: expected error, got nil")
	}
}

func TestDecodeRejectsTruncation(t *testing.T) {
	sec := New(arh.NewFileTable(), DefaultBlockSizePow)
	sec.Blocks.Allocate(4096)
	buf := sec.Encode()

	if _, err := Decode(buf[:len(buf)-2]); err == nil {
		t.Fatal("Decode with truncated trailer: expected error, got nil")
	}
}

func TestNewSeedsFromLiveFiles(t *testing.T) {
	files := arh.NewFileTable()
	files.Append(arh.FileMeta{DataOffset: 0, CompressedSize: 512, UncompressedSize: 512})
	files.Append(arh.FileMeta{DataOffset: 512, CompressedSize: 512, UncompressedSize: 512})
	files.Set(1, arh.FileMeta{ID: 1}) // simulate a freed, zeroed record

	sec := New(files, 9)
	// Only the live (non-zero CompressedSize) record should be marked.
	off := sec.Blocks.Allocate(512)
	if off != 512 {
		t.Fatalf("Allocate after New() from one live + one freed file = %d, want 512 (block 0 should be occupied, block 1 free)", off)
	}
}

func equalWords(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalIDs(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
