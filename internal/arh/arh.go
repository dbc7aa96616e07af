// Package arh reads and writes the ARH metadata file: a cleartext header,
// an XOR-obfuscated path trie and string table, and a cleartext file
// metadata table, optionally followed by a non-standard extended section.
package arh

import (
	"encoding/binary"
	"fmt"
)

// dictEntrySize is the on-disk size of one (next, prev) pair.
const dictEntrySize = 8

// Arh is the decoded contents of an .arh file: everything needed to
// resolve a path to a file id and back.
type Arh struct {
	key     uint32
	Strings *StringTable
	Dict    *Trie
	Files   *FileTable

	// ExtOffset is where the non-standard extended section (C8) begins,
	// or 0 if the header carried no ext magic when this was loaded.
	ExtOffset uint32
}

// New returns a fresh, empty archive metadata set with key 0.
// Callers that care about matching a specific on-disk key should set it
// via SetKey before the first Encode.
func New() *Arh {
	return &Arh{
		key:     0,
		Strings: NewStringTable(),
		Dict:    NewTrie(),
		Files:   NewFileTable(),
	}
}

// Key returns the header's encryption key.
func (a *Arh) Key() uint32 { return a.key }

// SetKey overrides the header's encryption key. Existing in-memory state
// is unaffected; the new key only changes how Encode obfuscates the output.
func (a *Arh) SetKey(key uint32) { a.key = key }

// Decode parses a complete .arh file image.
func Decode(buf []byte) (*Arh, error) {
	h, err := decodeHeader(buf)
	if err != nil {
		return nil, err
	}

	strEnd := int(h.strTableOffset) + int(h.strTableSize)
	if strEnd > len(buf) {
		return nil, fmt.Errorf("arh: string table [%d:%d] out of range", h.strTableOffset, strEnd)
	}
	strBuf := make([]byte, h.strTableSize)
	copy(strBuf, buf[h.strTableOffset:strEnd])

	dictBytes := int(h.dictEntryCount) * dictEntrySize
	dictEnd := int(h.dictOffset) + dictBytes
	if dictEnd > len(buf) {
		return nil, fmt.Errorf("arh: path dictionary [%d:%d] out of range", h.dictOffset, dictEnd)
	}
	dictBuf := make([]byte, dictBytes)
	copy(dictBuf, buf[h.dictOffset:dictEnd])

	mask := obfuscationMask(h.key)
	xorRegion(strBuf, mask)
	xorRegion(dictBuf, mask)

	raw := make([][2]int32, h.dictEntryCount)
	for i := range raw {
		off := i * dictEntrySize
		raw[i] = [2]int32{
			int32(binary.LittleEndian.Uint32(dictBuf[off : off+4])),
			int32(binary.LittleEndian.Uint32(dictBuf[off+4 : off+8])),
		}
	}

	fileEnd := int(h.fileTableOffset) + int(h.fileCount)*FileMetaSize
	if fileEnd > len(buf) {
		return nil, fmt.Errorf("arh: file table [%d:%d] out of range", h.fileTableOffset, fileEnd)
	}

	a := &Arh{
		key:     h.key,
		Strings: newStringTableFrom(strBuf),
		Dict:    newTrieFromNodes(raw),
		Files:   newFileTableFrom(buf[h.fileTableOffset:fileEnd]),
	}
	if h.hasExt() {
		a.ExtOffset = h.extOffset
	}
	return a, nil
}

// Encode serializes the archive metadata back into a full .arh image,
// re-deriving every header field from the current in-memory state.
func (a *Arh) Encode() []byte {
	dictBuf := make([]byte, a.Dict.NodeCount()*dictEntrySize)
	for i, pair := range a.Dict.Raw() {
		off := i * dictEntrySize
		binary.LittleEndian.PutUint32(dictBuf[off:off+4], uint32(pair[0]))
		binary.LittleEndian.PutUint32(dictBuf[off+4:off+8], uint32(pair[1]))
	}
	strBuf := append([]byte(nil), a.Strings.Bytes()...)

	mask := obfuscationMask(a.key)
	xorRegion(dictBuf, mask)
	xorRegion(strBuf, mask)

	fileBuf := a.Files.Bytes()

	h := header{
		strTableLenDup:  a.Strings.Size(),
		dictEntryCount:  uint32(a.Dict.NodeCount()),
		strTableOffset:  HeaderSize,
		strTableSize:    a.Strings.Size(),
		dictOffset:      HeaderSize + a.Strings.Size(),
		dictSize:        uint32(len(dictBuf)),
		fileTableOffset: HeaderSize + a.Strings.Size() + uint32(len(dictBuf)),
		fileCount:       uint32(a.Files.Len()),
		key:             a.key,
	}
	if a.ExtOffset != 0 {
		h.extMagic = extMagicWord
		h.extOffset = a.ExtOffset
	}

	out := make([]byte, 0, HeaderSize+len(strBuf)+len(dictBuf)+len(fileBuf))
	out = append(out, h.encode()...)
	out = append(out, strBuf...)
	out = append(out, dictBuf...)
	out = append(out, fileBuf...)
	return out
}

// Lookup resolves a normalized path to a file id.
func (a *Arh) Lookup(key []byte) (uint32, error) {
	return a.Dict.Lookup(a.Strings, key)
}

// Insert adds path -> id to the dictionary.
func (a *Arh) Insert(key []byte, id uint32) error {
	return a.Dict.Insert(a.Strings, key, id)
}

// Remove deletes path from the dictionary, returning its former file id.
func (a *Arh) Remove(key []byte) (uint32, error) {
	return a.Dict.Remove(a.Strings, key)
}
