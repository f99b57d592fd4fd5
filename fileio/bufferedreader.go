package fileio

import (
	"bufio"
	"errors"
	"io"
	"os"
)

// BufferedReader does buffered file reads
type BufferedReader struct {
	file   *os.File
	reader *bufio.Reader
	chunk  []byte
}

// New opens file for reading or returns error upon failing to do so
func (b *BufferedReader) New(filename string, chunkSize int) error {
	file, err := os.Open(filename)
	if err == nil {
		b.file = file
		b.chunk = make([]byte, chunkSize)
		b.reader = bufio.NewReaderSize(b.file, chunkSize)
		return nil
	}
	return err
}

// NextChunk returns next full chunk of the file, only the last one may be shorter.
// The returned slice is reused by the following call. Returns io.EOF once the
// file has been fully consumed.
func (b *BufferedReader) NextChunk() ([]byte, error) {
	if b.file == nil {
		return nil, os.ErrClosed
	}
	read, err := io.ReadFull(b.reader, b.chunk)
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		// Final partial chunk.
		return b.chunk[:read], nil
	case err != nil:
		return nil, err
	}
	return b.chunk[:read], nil
}

// Close releases file handle
func (b *BufferedReader) Close() error {
	if b.file == nil {
		return nil
	}
	err := b.file.Close()
	b.file = nil
	return err
}
