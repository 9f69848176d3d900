package numa

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	"github.com/htsst/netalx/utils"
)

// Spacing between arrays carved from one block, and their alignment.
const Spacing = 64

const defaultHugePageSize = 2 << 20

type AllocOptions struct {
	HugePages bool // Round to and advise large pages.
	Bind      bool // Prefer the memory of the given node (mbind MPOL_PREFERRED).
}

// Block is one contiguous node-local allocation.
type Block struct {
	data   []byte
	node   int
	mapped bool
}

func (b *Block) Size() int     { return len(b.data) }
func (b *Block) Node() int     { return b.node }

// Touch pre-faults the share of pages belonging to worker core of cores, so that first-touch
// placement puts them on the toucher's node.
func (b *Block) Touch(core, cores int) {
	page := PageSize()
	pages := utils.CeilDiv(len(b.data), page)
	s, e := utils.PartialRange(pages, 0, cores, core)
	for p := s; p < e; p++ {
		b.data[p*page] = 0
	}
}

// Alloc returns a zeroed block of at least size bytes associated with node.
func Alloc(size int, node int, opts AllocOptions) (*Block, error) {
	if size <= 0 {
		size = Spacing
	}
	align := PageSize()
	if opts.HugePages {
		align = HugePageSize()
	}
	return alloc(utils.RoundUp(size, align), node, opts)
}

// Footprint is the block size needed to carve arrays of the given byte sizes with an Arena.
func Footprint(sizes ...int) int {
	total := 0
	for _, s := range sizes {
		total += utils.RoundUp(s, Spacing) + Spacing
	}
	return total
}

// Arena carves typed, aligned slices out of a block in order.
type Arena struct {
	block *Block
	off   int
}

func NewArena(b *Block) *Arena {
	return &Arena{block: b}
}

func (a *Arena) take(bytes int) unsafe.Pointer {
	a.off = utils.RoundUp(a.off, Spacing)
	if a.off+bytes > len(a.block.data) {
		panic("arena exhausted: need " + utils.V(a.off+bytes) + " have " + utils.V(len(a.block.data)))
	}
	p := unsafe.Pointer(&a.block.data[a.off])
	a.off += bytes + Spacing
	return p
}

func (a *Arena) Int64s(n int64) []int64 {
	if n == 0 {
		return []int64{}
	}
	return unsafe.Slice((*int64)(a.take(int(n)*8)), n)
}

func (a *Arena) Uint64s(n int64) []uint64 {
	if n == 0 {
		return []uint64{}
	}
	return unsafe.Slice((*uint64)(a.take(int(n)*8)), n)
}

func (a *Arena) Int32s(n int64) []int32 {
	if n == 0 {
		return []int32{}
	}
	return unsafe.Slice((*int32)(a.take(int(n)*4)), n)
}

// Used is the number of bytes consumed so far.
func (a *Arena) Used() int { return a.off }

var hugePageSize = sync.OnceValue(func() int {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return defaultHugePageSize
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "Hugepagesize:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			if kb, err := strconv.Atoi(fields[1]); err == nil && kb > 0 {
				return kb << 10
			}
		}
	}
	return defaultHugePageSize
})

// HugePageSize is the large page size of the system (2 MiB when unknown).
func HugePageSize() int { return hugePageSize() }
