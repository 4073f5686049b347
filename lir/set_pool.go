package lir

import (
	"encoding/binary"
	"sort"

	"github.com/minio/highwayhash"
)

// SetID addresses an interned value set in a SetPool.
type SetID int

// setPoolKey is the fixed HighwayHash key; content addressing inside a
// single pool needs no secrecy, only a stable 32-byte key.
var setPoolKey = [32]byte{
	'e', 'i', 'r', 'g', 'o', '.', 'l', 'i', 'r', '.', 's', 'e', 't', 'p', 'o', 'o', 'l',
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14,
}

// SetPool interns value sets so that identical live sets share one
// identity and one backing slice. Sets are stored as sorted,
// deduplicated slices; iteration order is therefore stable within a
// set identity. Lookup is content-addressed
// by a HighwayHash digest of the sorted members, with a direct slice
// comparison on digest collision, so hashing is an accelerant and
// never a correctness dependency.
type SetPool struct {
	sets     [][]ValueID
	byDigest map[uint64][]SetID
}

// NewSetPool returns an empty pool.
func NewSetPool() *SetPool {
	return &SetPool{byDigest: make(map[uint64][]SetID)}
}

// Intern returns the identity of the set containing exactly the values
// in vals (order and duplicates ignored), minting it on first sight.
func (p *SetPool) Intern(vals []ValueID) SetID {
	sorted := sortedUnique(vals)
	digest := p.digest(sorted)
	for _, id := range p.byDigest[digest] {
		if equalValues(p.sets[id], sorted) {
			return id
		}
	}
	id := SetID(len(p.sets))
	p.sets = append(p.sets, sorted)
	p.byDigest[digest] = append(p.byDigest[digest], id)
	return id
}

// Values returns the members of id in the pool's stable (ascending
// handle) iteration order. The returned slice is shared; callers must
// not modify it.
func (p *SetPool) Values(id SetID) []ValueID { return p.sets[id] }

// Len returns the cardinality of id.
func (p *SetPool) Len(id SetID) int { return len(p.sets[id]) }

// Contains reports whether v is a member of id.
func (p *SetPool) Contains(id SetID, v ValueID) bool {
	s := p.sets[id]
	lo, hi := 0, len(s)
	for lo < hi {
		mid := (lo + hi) / 2
		if s[mid] < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo < len(s) && s[lo] == v
}

func (p *SetPool) digest(sorted []ValueID) uint64 {
	buf := make([]byte, 8*len(sorted))
	for i, v := range sorted {
		binary.LittleEndian.PutUint64(buf[8*i:], uint64(v))
	}
	return highwayhash.Sum64(buf, setPoolKey[:])
}

func sortedUnique(vals []ValueID) []ValueID {
	out := append([]ValueID(nil), vals...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	w := 0
	for i, v := range out {
		if i == 0 || v != out[w-1] {
			out[w] = v
			w++
		}
	}
	return out[:w]
}

func equalValues(a, b []ValueID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
