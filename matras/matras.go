// Package matras implements the block directory that sits between the
// BPS-tree and a host-supplied extent allocator.
//
// A matras hands out 32-bit block IDs (BID) that stay valid for the life
// of the block and resolves a BID to the underlying byte slice in O(1)
// via two directory hops, the same shape as the older bplustree
// package's InMemoryPager.AllocatePage/ReadPage, generalized from whole pages keyed
// by a monotonic counter to fixed-size blocks carved out of larger
// extents.
package matras

import "fmt"

// BID is a stable 32-bit handle to a block. It never aliases a raw
// pointer, so blocks may be moved or reclaimed without invalidating IDs
// held elsewhere.
type BID uint32

// NoBlock is the sentinel "no such block" handle.
const NoBlock BID = 0xFFFFFFFF

// AllocFunc allocates one extent of exactly size bytes from the host.
// It returns an error only when the host is out of memory.
type AllocFunc func(size int) ([]byte, error)

// FreeFunc returns a previously allocated extent to the host.
type FreeFunc func(extent []byte)

// extent is one allocation from the host, subdivided into fixed-size
// blocks.
type extent struct {
	data []byte
}

// dir is a level-1/level-2 directory node: a dense array of pointers to
// the next level down. Directory nodes are plain Go slices rather than
// host-allocated extents — only the block-bearing leaf extents are
// obtained through alloc/free.
type dir struct {
	extents []*extent
}

// Matras is the three-level (dir -> dir -> extent) page directory
// described in spec.md §4.1.
type Matras struct {
	blockSize  int
	extentSize int

	blocksPerExtent  int
	entriesPerExtent int // fan-out of each directory level

	alloc AllocFunc
	free  FreeFunc

	dirs    []*dir
	allExts []*extent // flat list, for Reset/ReleaseIdleExtents
	count   uint32     // number of BIDs handed out so far
}

// Create builds an empty matras. blockSize and extentSize must both be
// powers of two and extentSize must be a multiple of blockSize, per
// spec.md §6 ("block_size", "extent_size").
func Create(blockSize, extentSize int, alloc AllocFunc, free FreeFunc) (*Matras, error) {
	if blockSize <= 0 || extentSize <= 0 || extentSize%blockSize != 0 {
		return nil, fmt.Errorf("matras.Create: extent_size %d must be a positive multiple of block_size %d", extentSize, blockSize)
	}
	return &Matras{
		blockSize:        blockSize,
		extentSize:       extentSize,
		blocksPerExtent:  extentSize / blockSize,
		entriesPerExtent: extentSize / blockSize, // same fan-out keeps addressing uniform across levels
		alloc:            alloc,
		free:             free,
	}, nil
}

// bidParts splits a BID into its three directory indices (n1, n2, n3).
func (m *Matras) bidParts(bid BID) (n1, n2, n3 int) {
	perDir := m.entriesPerExtent * m.blocksPerExtent
	idx := int(bid)
	n1 = idx / perDir
	rem := idx % perDir
	n2 = rem / m.blocksPerExtent
	n3 = rem % m.blocksPerExtent
	return
}

// Alloc returns a fresh block and its ID. Fails only if the host
// allocator returns an error.
func (m *Matras) Alloc() (BID, []byte, error) {
	bid := BID(m.count)
	n1, n2, n3 := m.bidParts(bid)

	for len(m.dirs) <= n1 {
		m.dirs = append(m.dirs, &dir{})
	}
	d := m.dirs[n1]
	for len(d.extents) <= n2 {
		d.extents = append(d.extents, nil)
	}
	if d.extents[n2] == nil {
		raw, err := m.alloc(m.extentSize)
		if err != nil {
			return NoBlock, nil, fmt.Errorf("matras.Alloc: extent allocation failed: %w", err)
		}
		if len(raw) != m.extentSize {
			return NoBlock, nil, fmt.Errorf("matras.Alloc: host returned %d bytes, want %d", len(raw), m.extentSize)
		}
		ext := &extent{data: raw}
		d.extents[n2] = ext
		m.allExts = append(m.allExts, ext)
	}
	m.count++
	blk := d.extents[n2].data[n3*m.blockSize : (n3+1)*m.blockSize]
	return bid, blk, nil
}

// Get resolves a BID to its block. Never fails for a BID previously
// returned by Alloc on this matras.
func (m *Matras) Get(bid BID) []byte {
	n1, n2, n3 := m.bidParts(bid)
	blk := m.dirs[n1].extents[n2].data[n3*m.blockSize : (n3+1)*m.blockSize]
	return blk
}

// Count returns the number of blocks ever handed out by Alloc (not the
// number currently live — disposed blocks are tracked by the tree's
// garbage list, not forgotten here).
func (m *Matras) Count() uint32 { return m.count }

// ExtentCount reports how many host extents currently back this matras.
func (m *Matras) ExtentCount() int { return len(m.allExts) }

// MemUsed returns the total bytes currently held from the host.
func (m *Matras) MemUsed() int { return len(m.allExts) * m.extentSize }

// ReleaseIdleExtents frees every extent all of whose blocks satisfy
// dead, returning the full list of BIDs that were reclaimed. Callers
// must not touch a reclaimed BID afterward — its backing memory has
// been returned to the host (spec.md §9, "shrink" open question).
func (m *Matras) ReleaseIdleExtents(dead func(BID) bool) []BID {
	perDir := m.entriesPerExtent * m.blocksPerExtent
	var reclaimed []BID
	for n1, d := range m.dirs {
		if d == nil {
			continue
		}
		for n2, ext := range d.extents {
			if ext == nil {
				continue
			}
			base := n1*perDir + n2*m.blocksPerExtent
			allDead := true
			for n3 := 0; n3 < m.blocksPerExtent; n3++ {
				bid := BID(base + n3)
				if uint32(bid) >= m.count || !dead(bid) {
					allDead = false
					break
				}
			}
			if !allDead {
				continue
			}
			m.free(ext.data)
			d.extents[n2] = nil
			for n3 := 0; n3 < m.blocksPerExtent; n3++ {
				reclaimed = append(reclaimed, BID(base+n3))
			}
			for i, e := range m.allExts {
				if e == ext {
					m.allExts = append(m.allExts[:i], m.allExts[i+1:]...)
					break
				}
			}
		}
	}
	return reclaimed
}

// Reset releases every extent back to the host and returns the matras to
// its just-created state. Used to unwind a failed bulk build (spec.md
// §4.5 step 4).
func (m *Matras) Reset() {
	for _, ext := range m.allExts {
		m.free(ext.data)
	}
	m.dirs = nil
	m.allExts = nil
	m.count = 0
}
