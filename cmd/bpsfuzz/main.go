// Command bpsfuzz runs an ad hoc stress loop against an in-memory
// bpstree, checking it against a map oracle after every mutation. It is
// a manually-run companion to bpstree's FuzzTreeOps native fuzz test,
// useful for a long unattended soak run outside `go test -fuzz`.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"bpstree/bpstree"
	"bpstree/matras"
)

func main() {
	iterations := flag.Int("iterations", 200000, "number of random ops to replay")
	keySpace := flag.Int64("keyspace", 5000, "range of keys to draw from")
	seed := flag.Int64("seed", 1, "PRNG seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	tr, err := bpstree.Create[int64, int64](bpstree.Int64Codec{}, bpstree.Int64Comparator{}, matras.HeapAlloc, matras.HeapFree)
	if err != nil {
		fmt.Fprintln(os.Stderr, "create:", err)
		os.Exit(1)
	}
	oracle := make(map[int64]bool)

	for i := 0; i < *iterations; i++ {
		key := rng.Int63n(*keySpace)
		switch rng.Intn(3) {
		case 0:
			if _, _, err := tr.Insert(key); err != nil {
				fail(i, "Insert(%d): %v", key, err)
			}
			oracle[key] = true
		case 1:
			ok, err := tr.Delete(key)
			if err != nil {
				fail(i, "Delete(%d): %v", key, err)
			}
			if ok != oracle[key] {
				fail(i, "Delete(%d) = %v, oracle had %v", key, ok, oracle[key])
			}
			delete(oracle, key)
		case 2:
			v, found := tr.Find(key)
			if found != oracle[key] {
				fail(i, "Find(%d) found=%v, want %v", key, found, oracle[key])
			}
			if found && v != key {
				fail(i, "Find(%d) returned %d", key, v)
			}
		}

		if bits := tr.DebugCheck(); bits != 0 {
			fail(i, "DebugCheck() = %#x", bits)
		}

		if i > 0 && i%50000 == 0 {
			fmt.Printf("%d ops ok, size=%d\n", i, tr.Size())
		}
	}

	if tr.Size() != len(oracle) {
		fail(*iterations, "final Size() = %d, oracle has %d", tr.Size(), len(oracle))
	}
	fmt.Printf("%d ops completed, final size=%d, no invariant violations\n", *iterations, tr.Size())
}

func fail(i int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL at op %d: "+format+"\n", append([]any{i}, args...)...)
	os.Exit(1)
}
