package archive

import (
	"sort"
	"strings"

	"github.com/jchantrell/goarh/internal/pathkey"
)

// EntryKind distinguishes a synthesized directory from a real file in a
// List result.
type EntryKind int

const (
	// EntryFile marks a leaf with an actual file id.
	EntryFile EntryKind = iota
	// EntryDir marks a directory synthesized from other files' paths.
	EntryDir
)

// DirEntry is one child returned by List.
type DirEntry struct {
	Name string
	Kind EntryKind
}

// List enumerates the direct children of dir. The container has no
// native directory concept (C9): entries are synthesized from the
// `/`-delimited components of every known file's path, so an empty
// directory never appears and a name can't be listed as both a file and
// a directory.
func (a *Archive) List(dir string) ([]DirEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkPoison("list"); err != nil {
		return nil, err
	}
	key, err := pathkey.Normalize(dir)
	if err != nil {
		return nil, newErr(KindInvalidFormat, "list", dir, err)
	}
	prefix := string(key)
	if prefix != "/" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	seen := make(map[string]EntryKind)
	var walkErr error
	a.meta.Dict.Terminals(func(idx int32) {
		if walkErr != nil {
			return
		}
		p, err := a.meta.Dict.FullPath(idx, a.meta.Strings)
		if err != nil {
			walkErr = err
			return
		}
		path := string(p)
		if !strings.HasPrefix(path, prefix) {
			return
		}
		rest := path[len(prefix):]
		if rest == "" {
			return
		}
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			name := rest[:slash]
			if _, ok := seen[name]; !ok {
				seen[name] = EntryDir
			}
		} else {
			seen[rest] = EntryFile
		}
	})
	if walkErr != nil {
		return nil, a.poison(walkErr)
	}

	entries := make([]DirEntry, 0, len(seen))
	for name, kind := range seen {
		entries = append(entries, DirEntry{Name: name, Kind: kind})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
