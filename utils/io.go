package utils

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/golang/snappy"
)

// SnappySuffix marks files that are written and read through a snappy stream.
const SnappySuffix = ".sz"

type bufferedFile struct {
	*bufio.Writer
	inner io.WriteCloser
	file  *os.File
}

func (b *bufferedFile) Close() error {
	if err := b.Writer.Flush(); err != nil {
		return err
	}
	if b.inner != nil {
		if err := b.inner.Close(); err != nil {
			return err
		}
	}
	return b.file.Close()
}

// CreateWriter creates path for buffered writing. Paths ending with ".sz" are snappy framed.
func CreateWriter(path string) (io.WriteCloser, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, SnappySuffix) {
		sw := snappy.NewBufferedWriter(file)
		return &bufferedFile{Writer: bufio.NewWriter(sw), inner: sw, file: file}, nil
	}
	return &bufferedFile{Writer: bufio.NewWriter(file), file: file}, nil
}

type readFile struct {
	io.Reader
	file *os.File
}

func (r *readFile) Close() error { return r.file.Close() }

// OpenReader is the reading counterpart to CreateWriter.
func OpenReader(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, SnappySuffix) {
		return &readFile{Reader: bufio.NewReader(snappy.NewReader(file)), file: file}, nil
	}
	return &readFile{Reader: bufio.NewReader(file), file: file}, nil
}
