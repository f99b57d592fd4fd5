package fileio

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestBufferedReaderChunks(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		chunks []int
	}{
		{"empty", 0, nil},
		{"one byte", 1, []int{1}},
		{"exact chunk", 8, []int{8}},
		{"two exact chunks", 16, []int{8, 8}},
		{"partial tail", 19, []int{8, 8, 3}},
	}

	c := qt.New(t)
	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			data := bytes.Repeat([]byte{0x5A}, tt.size)
			path := filepath.Join(c.TempDir(), "source")
			c.Assert(os.WriteFile(path, data, 0644), qt.IsNil)

			reader := new(BufferedFactory).NewReader()
			c.Assert(reader.New(path, 8), qt.IsNil)
			defer reader.Close()

			var got []int
			for {
				chunk, err := reader.NextChunk()
				if errors.Is(err, io.EOF) {
					break
				}
				c.Assert(err, qt.IsNil)
				got = append(got, len(chunk))
			}
			c.Assert(got, qt.DeepEquals, tt.chunks)
		})
	}
}

func TestBufferedReaderMissing(t *testing.T) {
	c := qt.New(t)

	reader := new(BufferedReader)
	err := reader.New(filepath.Join(c.TempDir(), "nope"), 8)
	c.Assert(err, qt.ErrorIs, os.ErrNotExist)
}

func TestBufferedWriterClose(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(c.TempDir(), "dest")
	writer := new(BufferedFactory).NewWriter()
	c.Assert(writer.New(path, 4), qt.IsNil)

	c.Assert(writer.WriteChunk([]byte("hello ")), qt.IsNil)
	c.Assert(writer.WriteChunk([]byte("world")), qt.IsNil)
	c.Assert(writer.Written(), qt.Equals, uint64(11))
	c.Assert(writer.Close(), qt.IsNil)
	// Closing twice is harmless.
	c.Assert(writer.Close(), qt.IsNil)

	got, err := os.ReadFile(path)
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, "hello world")

	c.Assert(writer.WriteChunk([]byte("late")), qt.ErrorIs, os.ErrClosed)
}

func TestBufferedWriterTruncates(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(c.TempDir(), "dest")
	c.Assert(os.WriteFile(path, []byte("previous much longer content"), 0644), qt.IsNil)

	writer := new(BufferedWriter)
	c.Assert(writer.New(path, 4), qt.IsNil)
	c.Assert(writer.WriteChunk([]byte("new")), qt.IsNil)
	c.Assert(writer.Close(), qt.IsNil)

	got, err := os.ReadFile(path)
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, "new")
}

func TestBufferedWriterDiscard(t *testing.T) {
	c := qt.New(t)

	c.Run("open file", func(c *qt.C) {
		path := filepath.Join(c.TempDir(), "partial")
		writer := new(BufferedWriter)
		c.Assert(writer.New(path, 4), qt.IsNil)
		c.Assert(writer.WriteChunk([]byte("partial data")), qt.IsNil)

		c.Assert(writer.Discard(), qt.IsNil)
		_, err := os.Stat(path)
		c.Assert(err, qt.ErrorIs, os.ErrNotExist)
	})

	c.Run("closed file", func(c *qt.C) {
		path := filepath.Join(c.TempDir(), "complete")
		writer := new(BufferedWriter)
		c.Assert(writer.New(path, 4), qt.IsNil)
		c.Assert(writer.WriteChunk([]byte("complete")), qt.IsNil)
		c.Assert(writer.Close(), qt.IsNil)

		c.Assert(writer.Discard(), qt.IsNil)
		_, err := os.Stat(path)
		c.Assert(err, qt.ErrorIs, os.ErrNotExist)
		// Nothing left to remove.
		c.Assert(writer.Discard(), qt.IsNil)
	})
}
