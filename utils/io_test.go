package utils

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReaderPlainAndSnappy(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"plain.txt", "packed.txt" + SnappySuffix} {
		path := filepath.Join(dir, name)
		w, err := CreateWriter(path)
		require.NoError(t, err)
		_, err = io.WriteString(w, "p sp 3 2\na 1 2 1\n")
		require.NoError(t, err)
		require.NoError(t, w.Close())

		r, err := OpenReader(path)
		require.NoError(t, err)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		require.Equal(t, "p sp 3 2\na 1 2 1\n", string(got), name)
	}
}
