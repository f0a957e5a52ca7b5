package matras

// HeapAlloc and HeapFree are the default AllocFunc/FreeFunc pair: plain
// Go-heap byte slices. Fine for tests and for hosts that don't care
// about extent placement.
func HeapAlloc(size int) ([]byte, error) {
	return make([]byte, size), nil
}

// HeapFree is a no-op — the garbage collector reclaims the slice once
// Reset drops the matras's last reference to it.
func HeapFree(extent []byte) {}
