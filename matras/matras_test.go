package matras

import (
	"errors"
	"testing"
)

var errOOM = errors.New("out of memory")

func TestAllocGetRoundTrip(t *testing.T) {
	m, err := Create(64, 256, HeapAlloc, HeapFree)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ids := make([]BID, 0, 100)
	for i := 0; i < 100; i++ {
		bid, blk, err := m.Alloc()
		if err != nil {
			t.Fatalf("Alloc #%d: %v", i, err)
		}
		if len(blk) != 64 {
			t.Fatalf("Alloc #%d: block size = %d, want 64", i, len(blk))
		}
		blk[0] = byte(i)
		ids = append(ids, bid)
	}

	for i, bid := range ids {
		blk := m.Get(bid)
		if blk[0] != byte(i) {
			t.Fatalf("Get(%d): blk[0] = %d, want %d", bid, blk[0], byte(i))
		}
	}

	if got := int(m.Count()); got != 100 {
		t.Fatalf("Count() = %d, want 100", got)
	}
	if m.ExtentCount() == 0 {
		t.Fatalf("ExtentCount() = 0, want > 0")
	}
}

func TestCreateRejectsBadSizes(t *testing.T) {
	if _, err := Create(100, 256, HeapAlloc, HeapFree); err == nil {
		t.Fatalf("Create(100, 256, ...): expected error, got nil")
	}
}

func TestReset(t *testing.T) {
	freed := 0
	free := func(ext []byte) { freed++ }
	m, err := Create(64, 256, HeapAlloc, free)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := 0; i < 20; i++ {
		if _, _, err := m.Alloc(); err != nil {
			t.Fatalf("Alloc #%d: %v", i, err)
		}
	}
	wantExtents := m.ExtentCount()
	m.Reset()
	if freed != wantExtents {
		t.Fatalf("Reset freed %d extents, want %d", freed, wantExtents)
	}
	if m.Count() != 0 || m.ExtentCount() != 0 {
		t.Fatalf("Reset left Count=%d ExtentCount=%d, want 0,0", m.Count(), m.ExtentCount())
	}
}

func TestReleaseIdleExtents(t *testing.T) {
	freed := 0
	free := func(ext []byte) { freed++ }
	m, err := Create(64, 256, HeapAlloc, free) // 4 blocks/extent
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	var ids []BID
	for i := 0; i < 12; i++ { // 3 full extents
		bid, _, err := m.Alloc()
		if err != nil {
			t.Fatalf("Alloc #%d: %v", i, err)
		}
		ids = append(ids, bid)
	}

	dead := make(map[BID]bool)
	for _, id := range ids[4:8] { // only the middle extent is entirely dead
		dead[id] = true
	}

	reclaimed := m.ReleaseIdleExtents(func(bid BID) bool { return dead[bid] })
	if len(reclaimed) != 4 {
		t.Fatalf("ReleaseIdleExtents reclaimed %d blocks, want 4", len(reclaimed))
	}
	if freed != 1 {
		t.Fatalf("freed %d extents, want 1", freed)
	}
	if m.ExtentCount() != 2 {
		t.Fatalf("ExtentCount() = %d, want 2", m.ExtentCount())
	}

	blk := m.Get(ids[0])
	blk[0] = 42
	if m.Get(ids[0])[0] != 42 {
		t.Fatalf("surviving extent's block became unreadable after partial reclamation")
	}
}

func TestAllocFailurePropagates(t *testing.T) {
	boom := func(size int) ([]byte, error) { return nil, errOOM }
	m, err := Create(64, 256, boom, HeapFree)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, err := m.Alloc(); err == nil {
		t.Fatalf("Alloc: expected error from host allocator, got nil")
	}
}
