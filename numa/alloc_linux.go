//go:build linux

package numa

import (
	"fmt"
	"unsafe"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

const (
	mpolPreferred = 1
	mpolMfMove    = 1 << 1
)

func PageSize() int { return unix.Getpagesize() }

func alloc(size int, node int, opts AllocOptions) (*Block, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes for node %d: %w", size, node, err)
	}
	if opts.HugePages {
		if err := unix.Madvise(data, unix.MADV_HUGEPAGE); err != nil {
			log.Debug().Err(err).Msg("madvise(MADV_HUGEPAGE) refused, continuing with small pages")
		}
	}
	if opts.Bind && node < 64 {
		mask := uint64(1) << uint(node)
		_, _, errno := unix.Syscall6(unix.SYS_MBIND, uintptr(unsafe.Pointer(&data[0])), uintptr(len(data)),
			mpolPreferred, uintptr(unsafe.Pointer(&mask)), 64, mpolMfMove)
		if errno != 0 {
			log.Debug().Err(errno).Int("node", node).Msg("mbind refused, relying on first touch")
		}
	}
	return &Block{data: data, node: node, mapped: true}, nil
}

// Free returns the block to the OS. Slices carved from it must not be used afterwards.
func (b *Block) Free() error {
	if b == nil || b.data == nil {
		return nil
	}
	data := b.data
	b.data = nil
	if !b.mapped {
		return nil
	}
	return unix.Munmap(data)
}
