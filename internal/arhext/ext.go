package arhext

import (
	"encoding/binary"
	"fmt"

	"github.com/jchantrell/goarh/internal/arh"
)

// Magic is the 4-byte identifier at the start of the extended section.
var Magic = [4]byte{'a', 'r', 'h', 'x'}

// Section is the decoded extended trailer: everything an archive needs
// to avoid rebuilding its allocator and recycle bin from scratch.
type Section struct {
	Blocks  *BlockAllocator
	Recycle *RecycleBin
}

// New builds a fresh section by scanning files for their occupied
// blocks; used both for brand-new archives and as the fallback when an
// existing trailer fails to decode.
func New(files *arh.FileTable, blockSizePow uint16) *Section {
	alloc := NewBlockAllocator(blockSizePow)
	for id := uint32(0); id < uint32(files.Len()); id++ {
		m, ok := files.Get(id)
		if !ok || m.CompressedSize == 0 {
			continue
		}
		alloc.MarkOccupied(m.DataOffset, uint64(m.CompressedSize), true)
	}
	return &Section{Blocks: alloc, Recycle: NewRecycleBin()}
}

// Decode parses the extended section starting at buf[0]. A magic
// mismatch is reported as an error but is never fatal to the archive: per
// §C8, callers should fall back to New on failure and keep going.
func Decode(buf []byte) (*Section, error) {
	if len(buf) < 4 || buf[0] != Magic[0] || buf[1] != Magic[1] || buf[2] != Magic[2] || buf[3] != Magic[3] {
		return nil, fmt.Errorf("arhext: bad magic, extended section unreadable")
	}
	off := 4
	if off+2+8 > len(buf) {
		return nil, fmt.Errorf("arhext: truncated block table header")
	}
	blockSizePow := binary.LittleEndian.Uint16(buf[off : off+2])
	off += 2
	blockArrCount := binary.LittleEndian.Uint64(buf[off : off+8])
	off += 8
	words := make([]uint64, blockArrCount)
	for i := range words {
		if off+8 > len(buf) {
			return nil, fmt.Errorf("arhext: truncated block table body")
		}
		words[i] = binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
	}

	if off+4 > len(buf) {
		return nil, fmt.Errorf("arhext: truncated recycle bin header")
	}
	recycleLen := binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4
	ids := make([]uint32, recycleLen)
	for i := range ids {
		if off+4 > len(buf) {
			return nil, fmt.Errorf("arhext: truncated recycle bin body")
		}
		ids[i] = binary.LittleEndian.Uint32(buf[off : off+4])
		off += 4
	}

	return &Section{
		Blocks:  newBlockAllocatorFromWords(blockSizePow, words),
		Recycle: newRecycleBinFrom(ids),
	}, nil
}

// Encode serializes the section, magic included.
func (s *Section) Encode() []byte {
	words := s.Blocks.Words()
	ids := s.Recycle.IDs()

	out := make([]byte, 0, 4+2+8+len(words)*8+4+len(ids)*4)
	out = append(out, Magic[:]...)

	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], s.Blocks.BlockSizePow())
	out = append(out, u16[:]...)

	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], uint64(len(words)))
	out = append(out, u64[:]...)
	for _, w := range words {
		binary.LittleEndian.PutUint64(u64[:], w)
		out = append(out, u64[:]...)
	}

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(ids)))
	out = append(out, u32[:]...)
	for _, id := range ids {
		binary.LittleEndian.PutUint32(u32[:], id)
		out = append(out, u32[:]...)
	}
	return out
}
