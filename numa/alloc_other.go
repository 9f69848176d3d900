//go:build !linux

package numa

import "os"

func PageSize() int { return os.Getpagesize() }

func alloc(size int, node int, opts AllocOptions) (*Block, error) {
	return &Block{data: make([]byte, size), node: node}, nil
}

func (b *Block) Free() error {
	if b != nil {
		b.data = nil
	}
	return nil
}
