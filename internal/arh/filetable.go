package arh

import "encoding/binary"

// FileMetaSize is the fixed size of one file metadata record.
const FileMetaSize = 24

// FileMeta is one fixed-width record in the file metadata table (C4):
// where a file's body lives in the ARD region and how big it is, both
// compressed and not.
type FileMeta struct {
	DataOffset       uint64
	CompressedSize   uint32
	UncompressedSize uint32
	Reserved         uint32
	ID               uint32
}

// decodeFileMeta parses one 24-byte record.
func decodeFileMeta(buf []byte) FileMeta {
	le := binary.LittleEndian
	return FileMeta{
		DataOffset:       le.Uint64(buf[0:8]),
		CompressedSize:   le.Uint32(buf[8:12]),
		UncompressedSize: le.Uint32(buf[12:16]),
		Reserved:         le.Uint32(buf[16:20]),
		ID:               le.Uint32(buf[20:24]),
	}
}

func (m FileMeta) encode(buf []byte) {
	le := binary.LittleEndian
	le.PutUint64(buf[0:8], m.DataOffset)
	le.PutUint32(buf[8:12], m.CompressedSize)
	le.PutUint32(buf[12:16], m.UncompressedSize)
	le.PutUint32(buf[16:20], m.Reserved)
	le.PutUint32(buf[20:24], m.ID)
}

// Compressed reports whether the stored body is smaller than its
// decompressed form.
func (m FileMeta) Compressed() bool {
	return m.CompressedSize != m.UncompressedSize
}

// FileTable is the file id -> FileMeta table (C4). IDs are dense: a live
// entry's index in the slice is its file id, and a free id (held by the
// recycle bin) has an entry whose fields other than ID are zero.
type FileTable struct {
	entries []FileMeta
}

// NewFileTable returns an empty table.
func NewFileTable() *FileTable {
	return &FileTable{}
}

func newFileTableFrom(buf []byte) *FileTable {
	count := len(buf) / FileMetaSize
	entries := make([]FileMeta, count)
	for i := 0; i < count; i++ {
		entries[i] = decodeFileMeta(buf[i*FileMetaSize : (i+1)*FileMetaSize])
	}
	return &FileTable{entries: entries}
}

// Len returns the number of records, including freed (recycled) ids.
func (t *FileTable) Len() int { return len(t.entries) }

// Get returns the record for id, and whether id is in range.
func (t *FileTable) Get(id uint32) (FileMeta, bool) {
	if int(id) >= len(t.entries) {
		return FileMeta{}, false
	}
	return t.entries[id], true
}

// Set overwrites the record for id, which must already be in range.
func (t *FileTable) Set(id uint32, m FileMeta) {
	t.entries[id] = m
}

// Append adds a new record at the end and returns its freshly minted id.
func (t *FileTable) Append(m FileMeta) uint32 {
	id := uint32(len(t.entries))
	m.ID = id
	t.entries = append(t.entries, m)
	return id
}

// Bytes serializes the table in file-id order.
func (t *FileTable) Bytes() []byte {
	buf := make([]byte, len(t.entries)*FileMetaSize)
	for i, m := range t.entries {
		m.encode(buf[i*FileMetaSize : (i+1)*FileMetaSize])
	}
	return buf
}
