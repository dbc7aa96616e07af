package arh

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// StringTable is the append-only byte region backing the path trie's
// terminals: each logical entry is a NUL-terminated fragment immediately
// followed by a little-endian uint32 file id.
type StringTable struct {
	data []byte
}

// NewStringTable returns an empty string table.
func NewStringTable() *StringTable {
	return &StringTable{}
}

func newStringTableFrom(data []byte) *StringTable {
	return &StringTable{data: data}
}

// ReadFragment scans from offset to the next NUL byte and returns the
// fragment together with the file id stored immediately after it. offset
// need not point at the start of an entry.
func (s *StringTable) ReadFragment(offset uint32) (fragment []byte, id uint32, err error) {
	if int(offset) > len(s.data) {
		return nil, 0, fmt.Errorf("arh: string table offset %d out of range (size %d)", offset, len(s.data))
	}
	nul := bytes.IndexByte(s.data[offset:], 0)
	if nul < 0 {
		return nil, 0, fmt.Errorf("arh: string table fragment at %d is not NUL-terminated", offset)
	}
	idOff := int(offset) + nul + 1
	if idOff+4 > len(s.data) {
		return nil, 0, fmt.Errorf("arh: string table fragment at %d has no trailing file id", offset)
	}
	return s.data[offset : int(offset)+nul], binary.LittleEndian.Uint32(s.data[idOff : idOff+4]), nil
}

// Append writes fragment, a NUL, and the little-endian file id to the end
// of the table and returns the offset of fragment's first byte. fragment
// may be empty, in which case the entry is just the NUL and the id.
func (s *StringTable) Append(fragment []byte, id uint32) uint32 {
	offset := uint32(len(s.data))
	s.data = append(s.data, fragment...)
	s.data = append(s.data, 0)
	var idBuf [4]byte
	binary.LittleEndian.PutUint32(idBuf[:], id)
	s.data = append(s.data, idBuf[:]...)
	return offset
}

// Size returns the current length of the string table in bytes.
func (s *StringTable) Size() uint32 {
	return uint32(len(s.data))
}

// Bytes returns the raw (cleartext) contents of the table.
func (s *StringTable) Bytes() []byte {
	return s.data
}
