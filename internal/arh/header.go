package arh

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed size of the ARH header in bytes.
const HeaderSize = 48

// Magic is the fixed 4-byte identifier at the start of every ARH file.
var Magic = [4]byte{'a', 'r', 'h', '1'}

// ExtMagic marks the presence of the non-standard trailing section (C8)
// that persists the block allocator and recycle bin.
var ExtMagic = [4]byte{'a', 'r', 'h', 'x'}

// header mirrors the 48-byte on-disk layout described in the external
// interfaces section: everything here is stored in the clear, little-endian.
type header struct {
	strTableLenDup  uint32
	dictEntryCount  uint32
	strTableOffset  uint32
	strTableSize    uint32
	dictOffset      uint32
	dictSize        uint32
	fileTableOffset uint32
	fileCount       uint32
	key             uint32
	extMagic        uint32
	extOffset       uint32
}

func decodeHeader(buf []byte) (header, error) {
	var h header
	if len(buf) < HeaderSize {
		return h, fmt.Errorf("arh: header truncated: got %d bytes, want %d", len(buf), HeaderSize)
	}
	if buf[0] != Magic[0] || buf[1] != Magic[1] || buf[2] != Magic[2] || buf[3] != Magic[3] {
		return h, fmt.Errorf("arh: bad magic %q", buf[0:4])
	}
	le := binary.LittleEndian
	h.strTableLenDup = le.Uint32(buf[4:8])
	h.dictEntryCount = le.Uint32(buf[8:12])
	h.strTableOffset = le.Uint32(buf[12:16])
	h.strTableSize = le.Uint32(buf[16:20])
	h.dictOffset = le.Uint32(buf[20:24])
	h.dictSize = le.Uint32(buf[24:28])
	h.fileTableOffset = le.Uint32(buf[28:32])
	h.fileCount = le.Uint32(buf[32:36])
	h.key = le.Uint32(buf[36:40])
	h.extMagic = le.Uint32(buf[40:44])
	h.extOffset = le.Uint32(buf[44:48])
	return h, nil
}

func (h header) encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], Magic[:])
	le := binary.LittleEndian
	le.PutUint32(buf[4:8], h.strTableLenDup)
	le.PutUint32(buf[8:12], h.dictEntryCount)
	le.PutUint32(buf[12:16], h.strTableOffset)
	le.PutUint32(buf[16:20], h.strTableSize)
	le.PutUint32(buf[20:24], h.dictOffset)
	le.PutUint32(buf[24:28], h.dictSize)
	le.PutUint32(buf[28:32], h.fileTableOffset)
	le.PutUint32(buf[32:36], h.fileCount)
	le.PutUint32(buf[36:40], h.key)
	le.PutUint32(buf[40:44], h.extMagic)
	le.PutUint32(buf[44:48], h.extOffset)
	return buf
}

var extMagicWord = binary.LittleEndian.Uint32(ExtMagic[:])

func (h header) hasExt() bool {
	return h.extMagic == extMagicWord
}
