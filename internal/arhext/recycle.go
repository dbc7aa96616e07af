package arhext

import "sort"

// RecycleBin is a sorted set of file ids freed by Unlink and available to
// be reused (ascending) before a new id is minted.
type RecycleBin struct {
	ids []uint32
}

// NewRecycleBin returns an empty bin.
func NewRecycleBin() *RecycleBin {
	return &RecycleBin{}
}

func newRecycleBinFrom(ids []uint32) *RecycleBin {
	cp := append([]uint32(nil), ids...)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	return &RecycleBin{ids: cp}
}

// Push adds id to the bin, if it isn't already present.
func (r *RecycleBin) Push(id uint32) {
	i := sort.Search(len(r.ids), func(i int) bool { return r.ids[i] >= id })
	if i < len(r.ids) && r.ids[i] == id {
		return
	}
	r.ids = append(r.ids, 0)
	copy(r.ids[i+1:], r.ids[i:])
	r.ids[i] = id
}

// Pop removes and returns the smallest recycled id, and whether one was
// available.
func (r *RecycleBin) Pop() (uint32, bool) {
	if len(r.ids) == 0 {
		return 0, false
	}
	id := r.ids[0]
	r.ids = r.ids[1:]
	return id, true
}

// Len returns the number of recycled ids currently held.
func (r *RecycleBin) Len() int { return len(r.ids) }

// IDs returns the recycled ids in ascending order, for encoding.
func (r *RecycleBin) IDs() []uint32 { return r.ids }
