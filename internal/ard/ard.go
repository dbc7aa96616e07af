// Package ard reads and writes the ARD data file: a flat region of file
// bodies addressed by the offsets recorded in the paired ARH's file
// metadata table.
package ard

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/jchantrell/goarh/internal/arh"
)

// Codec compresses and decompresses file bodies. The container format
// doesn't standardize a single algorithm; it only requires that a
// metadata record's compressed and uncompressed sizes agree with
// whatever codec produced the stored bytes.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte, uncompressedSize int) ([]byte, error)
}

// ZlibCodec is the default Codec: the zlib-family stream format, the
// closest widely available equivalent to what game archive tooling in
// this space typically ships.
type ZlibCodec struct{}

// Compress implements Codec.
func (ZlibCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("ard: zlib compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("ard: zlib compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress implements Codec.
func (ZlibCodec) Decompress(data []byte, uncompressedSize int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ard: zlib decompress: %w", err)
	}
	defer r.Close()
	buf := make([]byte, uncompressedSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("ard: zlib decompress: %w", err)
	}
	return buf, nil
}

// Reader reads file bodies out of an ARD region, transparently
// decompressing them per the FileMeta passed to ReadEntry.
type Reader struct {
	r     io.ReaderAt
	codec Codec
}

// NewReader wraps r (already positioned at the start of the ARD region)
// with codec, which may be nil to use ZlibCodec.
func NewReader(r io.ReaderAt, codec Codec) *Reader {
	if codec == nil {
		codec = ZlibCodec{}
	}
	return &Reader{r: r, codec: codec}
}

// ReadEntry returns the decompressed bytes of the file described by m.
func (rd *Reader) ReadEntry(m arh.FileMeta) ([]byte, error) {
	raw := make([]byte, m.CompressedSize)
	if _, err := rd.r.ReadAt(raw, int64(m.DataOffset)); err != nil {
		return nil, fmt.Errorf("ard: read entry at %d: %w", m.DataOffset, err)
	}
	if !m.Compressed() {
		return raw, nil
	}
	return rd.codec.Decompress(raw, int(m.UncompressedSize))
}

// ReadRange returns length decompressed bytes starting at offsetInEntry.
func (rd *Reader) ReadRange(m arh.FileMeta, offsetInEntry, length int64) ([]byte, error) {
	full, err := rd.ReadEntry(m)
	if err != nil {
		return nil, err
	}
	end := offsetInEntry + length
	if end > int64(len(full)) {
		end = int64(len(full))
	}
	if offsetInEntry > int64(len(full)) {
		offsetInEntry = int64(len(full))
	}
	return full[offsetInEntry:end], nil
}

// Writer writes file bodies into an ARD region at caller-chosen offsets.
type Writer struct {
	w     io.WriterAt
	codec Codec
}

// NewWriter wraps w with codec, which may be nil to use ZlibCodec.
func NewWriter(w io.WriterAt, codec Codec) *Writer {
	if codec == nil {
		codec = ZlibCodec{}
	}
	return &Writer{w: w, codec: codec}
}

// WriteEntry compresses data (unless compress is false) and writes it at
// offset, returning the metadata fields an ARH record should carry.
func (wr *Writer) WriteEntry(offset uint64, data []byte, compress bool) (compressedSize, uncompressedSize uint32, err error) {
	body := data
	uncompressedSize = uint32(len(data))
	if compress {
		c, err := wr.codec.Compress(data)
		if err != nil {
			return 0, 0, err
		}
		if len(c) < len(data) {
			body = c
		} else {
			uncompressedSize = 0 // stored bodies use CompressedSize == UncompressedSize to mean "not compressed"
		}
	} else {
		uncompressedSize = 0
	}
	if _, err := wr.w.WriteAt(body, int64(offset)); err != nil {
		return 0, 0, fmt.Errorf("ard: write entry at %d: %w", offset, err)
	}
	if uncompressedSize == 0 {
		return uint32(len(body)), uint32(len(body)), nil
	}
	return uint32(len(body)), uncompressedSize, nil
}
