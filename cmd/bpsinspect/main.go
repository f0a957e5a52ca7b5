// Command bpsinspect seeds an in-memory int64 bpstree and prints a
// BFS dump of its block structure, in the spirit of
// bplustree/inspect.go's InspectIndexFileTo but for the in-memory tree
// instead of an on-disk index file.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/term"

	"bpstree/bpstree"
	"bpstree/matras"
)

func main() {
	n := flag.Int("n", 200, "number of elements to seed")
	seed := flag.Int64("seed", 1, "PRNG seed for the element permutation")
	flag.Parse()

	tree, err := bpstree.Create[int64, int64](bpstree.Int64Codec{}, bpstree.Int64Comparator{}, matras.HeapAlloc, matras.HeapFree)
	if err != nil {
		fmt.Fprintln(os.Stderr, "create:", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	perm := rng.Perm(*n)
	for _, v := range perm {
		if _, _, err := tree.Insert(int64(v)); err != nil {
			fmt.Fprintln(os.Stderr, "insert:", err)
			os.Exit(1)
		}
	}

	colorize := term.IsTerminal(int(os.Stdout.Fd()))
	leafColor := color.New(color.FgGreen)
	innerColor := color.New(color.FgCyan)
	warnColor := color.New(color.FgRed, color.Bold)

	blocks := tree.WalkBFS(func(e int64) string { return fmt.Sprintf("%d", e) })
	depth := -1
	for _, b := range blocks {
		if b.Depth != depth {
			depth = b.Depth
			fmt.Printf("Level %d:\n", depth)
		}
		line := fmt.Sprintf("  [block %d] %s size=%d", b.ID, b.Kind, b.Size)
		if b.Kind == "leaf" {
			line += fmt.Sprintf(" range=[%s,%s] prev=%d next=%d", b.First, b.Last, b.Prev, b.Next)
		}
		if colorize {
			if b.Kind == "leaf" {
				leafColor.Println(line)
			} else {
				innerColor.Println(line)
			}
		} else {
			fmt.Println(line)
		}
	}

	stats := tree.Stats()
	fmt.Println("---")
	fmt.Printf("size=%s depth=%d leaves=%s inners=%s garbage=%s extents=%d mem=%s\n",
		humanize.Comma(int64(stats.Size)), stats.Depth,
		humanize.Comma(int64(stats.LeafCount)), humanize.Comma(int64(stats.InnerCount)),
		humanize.Comma(int64(stats.GarbageCount)), stats.ExtentCount,
		humanize.Bytes(uint64(stats.MemUsed)))

	if bits := tree.DebugCheck(); bits != 0 {
		msg := fmt.Sprintf("DebugCheck failed: bitmask=%#x", bits)
		if colorize {
			warnColor.Println(msg)
		} else {
			fmt.Println(msg)
		}
		os.Exit(1)
	}
}
