// Package archive ties the ARH metadata, the non-standard extended
// trailer, and the ARD data region together into a single read/write
// facade (C7): normalized paths in, file ids and bytes out.
package archive

import (
	"fmt"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/arc/v2"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/jchantrell/goarh/internal/ard"
	"github.com/jchantrell/goarh/internal/arh"
	"github.com/jchantrell/goarh/internal/arhext"
	"github.com/jchantrell/goarh/internal/pathkey"
	"github.com/jchantrell/goarh/internal/workspace"
)

// cacheSize bounds the decompressed-read cache; archives with larger
// working sets just see more misses, never incorrect reads.
const cacheSize = 256

// bloomFalsePositiveRate governs the negative-lookup pre-filter's size.
const bloomFalsePositiveRate = 0.01

// Archive is an open ARH/ARD pair. Every exported method takes an
// internal mutex, so concurrent calls from multiple goroutines are
// serialized one at a time.
type Archive struct {
	mu sync.Mutex

	arhPath string
	ardPath string
	ardFile *os.File

	meta  *arh.Arh
	ext   *arhext.Section
	codec ard.Codec

	cache *lru.ARCCache[uint32, []byte]
	neg   *bloom.BloomFilter
	negN  uint

	dirty    bool
	poisoned error
}

// Option configures Open. It only takes effect for a freshly created
// archive; opening an existing ARH always honors what's already on disk.
type Option func(*openOptions)

type openOptions struct {
	blockSizePow uint16
}

// WithBlockSizePow sets the block allocator's block size (as a power of
// two) for a newly created archive. Ignored when the archive already
// exists on disk.
func WithBlockSizePow(pow uint16) Option {
	return func(o *openOptions) { o.blockSizePow = pow }
}

// Open loads the metadata and extended section from arhPath and keeps
// ardPath open for reads and writes (read-only if the file cannot be
// opened for writing). Either file may not yet exist: a missing ARH
// starts a fresh, empty archive that is written at Commit time, and a
// missing ARD is created by the first Write.
func Open(arhPath, ardPath string, opts ...Option) (*Archive, error) {
	oo := openOptions{blockSizePow: arhext.DefaultBlockSizePow}
	for _, opt := range opts {
		opt(&oo)
	}

	a := &Archive{arhPath: arhPath, ardPath: ardPath, codec: ard.ZlibCodec{}}

	var freshlyCreated bool
	buf, err := os.ReadFile(arhPath)
	switch {
	case err == nil:
		meta, decErr := arh.Decode(buf)
		if decErr != nil {
			return nil, newErr(KindInvalidFormat, "open", arhPath, decErr)
		}
		a.meta = meta
	case os.IsNotExist(err):
		a.meta = arh.New()
		a.dirty = true
		freshlyCreated = true
	default:
		return nil, newErr(KindIO, "open", arhPath, err)
	}

	a.ext = a.loadExt(buf)
	if freshlyCreated {
		a.ext.Blocks = arhext.NewBlockAllocator(oo.blockSizePow)
	}

	cache, err := lru.NewARC[uint32, []byte](cacheSize)
	if err != nil {
		return nil, newErr(KindInvariant, "open", arhPath, err)
	}
	a.cache = cache
	a.rebuildBloom()

	f, err := os.OpenFile(ardPath, os.O_RDWR, 0)
	if os.IsPermission(err) {
		f, err = os.Open(ardPath)
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, newErr(KindIO, "open", ardPath, err)
	}
	a.ardFile = f // nil if the ARD doesn't exist yet; the first Write creates it

	return a, nil
}

// loadExt decodes the extended section if the header points at one,
// softly falling back to rebuilding it from the file table on any
// failure (bad magic, truncation) per §C8.
func (a *Archive) loadExt(arhBuf []byte) *arhext.Section {
	if a.meta.ExtOffset != 0 && int(a.meta.ExtOffset) < len(arhBuf) {
		if sec, err := arhext.Decode(arhBuf[a.meta.ExtOffset:]); err == nil {
			return sec
		}
	}
	return arhext.New(a.meta.Files, arhext.DefaultBlockSizePow)
}

func (a *Archive) rebuildBloom() {
	n := uint(a.meta.Files.Len())
	if n < 16 {
		n = 16
	}
	a.neg = bloom.NewWithEstimates(n*2, bloomFalsePositiveRate)
	a.negN = n
	a.meta.Dict.Terminals(func(idx int32) {
		if p, err := a.meta.Dict.FullPath(idx, a.meta.Strings); err == nil {
			a.neg.Add(p)
		}
	})
}

func (a *Archive) checkPoison(op string) error {
	if a.poisoned != nil {
		return newErr(KindInvariant, op, "", a.poisoned)
	}
	return nil
}

func (a *Archive) poison(err error) error {
	a.poisoned = err
	return err
}

// Stat returns the metadata record for path.
func (a *Archive) Stat(path string) (arh.FileMeta, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkPoison("stat"); err != nil {
		return arh.FileMeta{}, err
	}
	id, err := a.lookupLocked(path)
	if err != nil {
		return arh.FileMeta{}, err
	}
	m, ok := a.meta.Files.Get(id)
	if !ok {
		return arh.FileMeta{}, a.poison(fmt.Errorf("archive: file id %d for %q missing from file table", id, path))
	}
	return m, nil
}

func (a *Archive) lookupLocked(path string) (uint32, error) {
	key, err := pathkey.Normalize(path)
	if err != nil {
		return 0, newErr(KindInvalidFormat, "lookup", path, err)
	}
	if a.neg != nil && !a.neg.Test([]byte(key)) {
		return 0, newErr(KindNotFound, "lookup", path, arh.ErrNotFound)
	}
	id, err := a.meta.Lookup([]byte(key))
	if err != nil {
		if err == arh.ErrNotFound {
			return 0, newErr(KindNotFound, "lookup", path, err)
		}
		return 0, a.poison(newErr(KindInvariant, "lookup", path, err))
	}
	return id, nil
}

// Read returns the fully decompressed contents of path.
func (a *Archive) Read(path string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkPoison("read"); err != nil {
		return nil, err
	}
	id, err := a.lookupLocked(path)
	if err != nil {
		return nil, err
	}
	if body, ok := a.cache.Get(id); ok {
		return body, nil
	}
	m, ok := a.meta.Files.Get(id)
	if !ok {
		return nil, a.poison(fmt.Errorf("archive: file id %d for %q missing from file table", id, path))
	}
	if a.ardFile == nil {
		return nil, newErr(KindIO, "read", path, fmt.Errorf("ARD file %s does not exist", a.ardPath))
	}
	body, err := ard.NewReader(a.ardFile, a.codec).ReadEntry(m)
	if err != nil {
		return nil, newErr(KindIO, "read", path, err)
	}
	a.cache.Add(id, body)
	return body, nil
}

// Write inserts or replaces the file at path with data, compressing it
// when compress is true and doing so actually shrinks it.
func (a *Archive) Write(path string, data []byte, compress bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkPoison("write"); err != nil {
		return err
	}
	if a.ardPath == "" {
		return newErr(KindUnsupported, "write", path, fmt.Errorf("archive was opened without an ARD path"))
	}
	key, err := pathkey.Normalize(path)
	if err != nil {
		return newErr(KindInvalidFormat, "write", path, err)
	}

	existingID, existErr := a.meta.Lookup([]byte(key))
	replacing := existErr == nil

	var oldMeta arh.FileMeta
	if replacing {
		oldMeta, _ = a.meta.Files.Get(existingID)
	}

	desired := uint64(len(data))
	var offset uint64
	if replacing {
		offset, err = a.ext.Blocks.AllocateReplace(oldMeta.DataOffset, uint64(oldMeta.CompressedSize), desired)
		if err != nil {
			return a.poison(newErr(KindInvariant, "write", path, err))
		}
	} else {
		offset = a.ext.Blocks.Allocate(desired)
	}

	if err := a.growArd(offset + desired); err != nil {
		return newErr(KindNoSpace, "write", path, err)
	}

	compSize, uncompSize, err := ard.NewWriter(a.ardFile, a.codec).WriteEntry(offset, data, compress)
	if err != nil {
		return newErr(KindIO, "write", path, err)
	}

	meta := arh.FileMeta{DataOffset: offset, CompressedSize: compSize, UncompressedSize: uncompSize}
	var id uint32
	if replacing {
		id = existingID
		meta.ID = id
		a.meta.Files.Set(id, meta)
		a.cache.Remove(id)
	} else {
		if recycled, ok := a.ext.Recycle.Pop(); ok {
			id = recycled
			meta.ID = id
			a.meta.Files.Set(id, meta)
		} else {
			id = a.meta.Files.Append(meta)
		}
		if err := a.meta.Insert([]byte(key), id); err != nil {
			return a.poison(newErr(KindInvariant, "write", path, err))
		}
		a.neg.Add([]byte(key))
	}

	a.dirty = true
	return nil
}

// growArd ensures the ARD file (creating it if necessary) is at least
// size bytes long.
func (a *Archive) growArd(size uint64) error {
	if a.ardFile == nil {
		f, err := os.OpenFile(a.ardPath, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return err
		}
		a.ardFile = f
	}
	info, err := a.ardFile.Stat()
	if err != nil {
		return err
	}
	if uint64(info.Size()) < size {
		return a.ardFile.Truncate(int64(size))
	}
	return nil
}

// Unlink removes path, freeing its block allocation and recycling its id.
func (a *Archive) Unlink(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkPoison("unlink"); err != nil {
		return err
	}
	key, err := pathkey.Normalize(path)
	if err != nil {
		return newErr(KindInvalidFormat, "unlink", path, err)
	}
	id, err := a.meta.Remove([]byte(key))
	if err != nil {
		if err == arh.ErrNotFound {
			return newErr(KindNotFound, "unlink", path, err)
		}
		return a.poison(newErr(KindInvariant, "unlink", path, err))
	}
	m, _ := a.meta.Files.Get(id)
	if m.CompressedSize > 0 {
		if err := a.ext.Blocks.Free(m.DataOffset, uint64(m.CompressedSize)); err != nil {
			return a.poison(newErr(KindInvariant, "unlink", path, err))
		}
	}
	a.meta.Files.Set(id, arh.FileMeta{ID: id})
	a.ext.Recycle.Push(id)
	a.cache.Remove(id)
	a.dirty = true
	return nil
}

// Rename moves oldPath to newPath without touching the file body. If
// newPath already refers to a different file, that file is replaced --
// its blocks freed and its id recycled -- matching Write's in-place
// update convention for an existing destination.
func (a *Archive) Rename(oldPath, newPath string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkPoison("rename"); err != nil {
		return err
	}
	oldKey, err := pathkey.Normalize(oldPath)
	if err != nil {
		return newErr(KindInvalidFormat, "rename", oldPath, err)
	}
	newKey, err := pathkey.Normalize(newPath)
	if err != nil {
		return newErr(KindInvalidFormat, "rename", newPath, err)
	}

	if _, err := a.meta.Lookup([]byte(oldKey)); err != nil {
		if err == arh.ErrNotFound {
			return newErr(KindNotFound, "rename", oldPath, err)
		}
		return a.poison(newErr(KindInvariant, "rename", oldPath, err))
	}

	if newKey != oldKey {
		if displacedID, lookErr := a.meta.Lookup([]byte(newKey)); lookErr == nil {
			if err := a.displaceForRename(displacedID, newKey); err != nil {
				return a.poison(newErr(KindInvariant, "rename", newPath, err))
			}
		} else if lookErr != arh.ErrNotFound {
			return a.poison(newErr(KindInvariant, "rename", newPath, lookErr))
		}
	}

	id, err := a.meta.Remove([]byte(oldKey))
	if err != nil {
		return a.poison(newErr(KindInvariant, "rename", oldPath, err))
	}
	if err := a.meta.Insert([]byte(newKey), id); err != nil {
		// best-effort: put the old entry back so the archive doesn't lose the file
		_ = a.meta.Insert([]byte(oldKey), id)
		return a.poison(newErr(KindInvariant, "rename", newPath, err))
	}
	a.neg.Add([]byte(newKey))
	a.dirty = true
	return nil
}

// displaceForRename removes newKey's terminal and frees the file it
// pointed at, the way Unlink does, so Rename can reuse newKey for
// oldPath's id.
func (a *Archive) displaceForRename(displacedID uint32, newKey pathkey.Key) error {
	if _, err := a.meta.Remove([]byte(newKey)); err != nil {
		return err
	}
	m, _ := a.meta.Files.Get(displacedID)
	if m.CompressedSize > 0 {
		if err := a.ext.Blocks.Free(m.DataOffset, uint64(m.CompressedSize)); err != nil {
			return err
		}
	}
	a.meta.Files.Set(displacedID, arh.FileMeta{ID: displacedID})
	a.ext.Recycle.Push(displacedID)
	a.cache.Remove(displacedID)
	return nil
}

// Commit writes the current in-memory state to arhPath/ardPath. Write
// already put file bodies into the ARD in place, so Commit fsyncs the
// ARD first and then atomically replaces the ARH with the index that
// points into it.
func (a *Archive) Commit() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkPoison("commit"); err != nil {
		return err
	}
	if !a.dirty {
		return nil
	}

	extBuf := a.ext.Encode()
	// ExtOffset is resolved after a first Encode, since it depends on the
	// size of everything before the trailer; the header's own size never
	// changes, so the body length is already final.
	body := a.meta.Encode()
	a.meta.ExtOffset = uint32(len(body))
	out := a.meta.Encode()
	out = append(out, extBuf...)

	if a.ardFile != nil {
		if err := a.ardFile.Sync(); err != nil {
			return newErr(KindIO, "commit", a.ardPath, err)
		}
	}
	if err := workspace.AtomicWrite(a.arhPath, out, 0o644); err != nil {
		return newErr(KindIO, "commit", a.arhPath, err)
	}
	a.dirty = false
	return nil
}

// Close releases the open ARD handle. It does not implicitly Commit.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ardFile == nil {
		return nil
	}
	err := a.ardFile.Close()
	a.ardFile = nil
	return err
}
