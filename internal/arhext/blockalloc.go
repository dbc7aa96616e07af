// Package arhext implements the non-standard "arhx" trailer (C8): a block
// allocation bitmap (C5) and a file-id recycle bin (C6) that save an ARD
// writer from rescanning the whole file table on every open.
package arhext

import "errors"

// DefaultBlockSizePow is the block size used when an archive is created
// fresh: 512-byte blocks (1 << 9).
const DefaultBlockSizePow = 9

// ErrDoubleFree is returned by Free when a block in the given range is
// already clear. Clearing an already-free bit is a logic error in the
// caller's bookkeeping, not a recoverable condition.
var ErrDoubleFree = errors.New("arhext: block already free")

// BlockAllocator tracks which fixed-size blocks of the ARD region are in
// use, as a bitmap packed into little-endian uint64 words: bit b lives in
// bit (b mod 64) of word b/64.
type BlockAllocator struct {
	blockSizePow uint16
	words        []uint64
}

// NewBlockAllocator returns an allocator with no blocks marked occupied.
func NewBlockAllocator(blockSizePow uint16) *BlockAllocator {
	return &BlockAllocator{blockSizePow: blockSizePow}
}

// BlockSizePow returns the block size as a power of two.
func (b *BlockAllocator) BlockSizePow() uint16 { return b.blockSizePow }

// BlockSize returns the block size in bytes.
func (b *BlockAllocator) BlockSize() uint64 { return 1 << b.blockSizePow }

func (b *BlockAllocator) bit(i uint64) bool {
	w := i / 64
	if int(w) >= len(b.words) {
		return false
	}
	return b.words[w]&(uint64(1)<<(i%64)) != 0
}

func (b *BlockAllocator) setBit(i uint64, v bool) {
	w := i / 64
	for uint64(len(b.words)) <= w {
		b.words = append(b.words, 0)
	}
	if v {
		b.words[w] |= uint64(1) << (i % 64)
	} else {
		b.words[w] &^= uint64(1) << (i % 64)
	}
}

func (b *BlockAllocator) blocksFor(size uint64) uint64 {
	bs := b.BlockSize()
	return (size + bs - 1) / bs
}

// MarkOccupied sets or clears the blocks spanned by [offset, offset+size)
// as occupied. Used both to seed the bitmap from an existing file table
// and by Allocate to mark a newly allocated run.
func (b *BlockAllocator) MarkOccupied(offset, size uint64, occupied bool) {
	if size == 0 {
		return
	}
	bs := b.BlockSize()
	start := offset / bs
	end := (offset + size + bs - 1) / bs
	for block := start; block < end; block++ {
		b.setBit(block, occupied)
	}
}

// Allocate returns the byte offset of a run of free blocks large enough
// to hold desiredSize, marking them occupied. It scans first-fit from
// block 0 and, if the existing bitmap has no run long enough, returns the
// start of the bitmap's trailing free run (past the current end when the
// last block is occupied), extending the bitmap as needed (the caller is
// responsible for growing the ARD file to match).
func (b *BlockAllocator) Allocate(desiredSize uint64) uint64 {
	desiredBlocks := b.blocksFor(desiredSize)
	if desiredBlocks == 0 {
		desiredBlocks = 1
	}

	totalBlocks := uint64(len(b.words)) * 64
	var runStart uint64
	runLen := uint64(0)
	for block := uint64(0); block < totalBlocks; block++ {
		if b.bit(block) {
			runLen = 0
			continue
		}
		if runLen == 0 {
			runStart = block
		}
		runLen++
		if runLen >= desiredBlocks {
			offset := runStart * b.BlockSize()
			b.MarkOccupied(offset, desiredSize, true)
			return offset
		}
	}
	// Nothing big enough in the existing bitmap: allocate past the end,
	// starting from the first free block of the trailing run (if any).
	offset := (totalBlocks - runLen) * b.BlockSize()
	b.MarkOccupied(offset, desiredSize, true)
	return offset
}

// Free marks the blocks spanned by [offset, offset+size) as unoccupied.
// Clearing a block that is already free returns ErrDoubleFree; the range
// is left untouched in that case, matching the all-or-nothing behavior a
// caller poisoning the archive on error expects.
func (b *BlockAllocator) Free(offset, size uint64) error {
	if size == 0 {
		return nil
	}
	bs := b.BlockSize()
	start := offset / bs
	end := (offset + size + bs - 1) / bs
	for block := start; block < end; block++ {
		if !b.bit(block) {
			return ErrDoubleFree
		}
	}
	for block := start; block < end; block++ {
		b.setBit(block, false)
	}
	return nil
}

// AllocateReplace returns space for desiredSize, preferring to reuse
// [oldOffset, oldOffset+oldSize) in place when it is already big enough.
// Otherwise the old space is freed and a fresh run is allocated.
func (b *BlockAllocator) AllocateReplace(oldOffset, oldSize, desiredSize uint64) (uint64, error) {
	if oldSize != 0 && desiredSize <= oldSize {
		return oldOffset, nil
	}
	if oldSize != 0 {
		if err := b.Free(oldOffset, oldSize); err != nil {
			return 0, err
		}
	}
	return b.Allocate(desiredSize), nil
}

// Words returns the raw bitmap words, in index order, for encoding.
func (b *BlockAllocator) Words() []uint64 { return b.words }

func newBlockAllocatorFromWords(blockSizePow uint16, words []uint64) *BlockAllocator {
	return &BlockAllocator{blockSizePow: blockSizePow, words: words}
}
