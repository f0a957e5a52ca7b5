package bpstree

import "encoding/binary"

// Int64Codec is a Codec[int64] where the element is its own key — the
// shape used throughout spec.md §8's end-to-end scenarios and by the
// cmd/ debug tools.
type Int64Codec struct{}

func (Int64Codec) Size() int { return 8 }

func (Int64Codec) Encode(e int64, buf []byte) {
	binary.LittleEndian.PutUint64(buf, uint64(e))
}

func (Int64Codec) Decode(buf []byte) int64 {
	return int64(binary.LittleEndian.Uint64(buf))
}

// Int64Comparator orders int64 elements/keys numerically.
type Int64Comparator struct{}

func (Int64Comparator) CompareElems(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (Int64Comparator) CompareKey(e int64, k int64) int {
	switch {
	case e < k:
		return -1
	case e > k:
		return 1
	default:
		return 0
	}
}
