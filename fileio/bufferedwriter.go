package fileio

import (
	"bufio"
	"errors"
	"go_verified_copy/constants"
	"os"
)

// BufferedWriter does buffered writes to a newly created file
type BufferedWriter struct {
	file     *os.File
	filename string
	writer   *bufio.Writer
	written  uint64
}

// New creates or truncates file for writing or returns error upon failing to do so
func (b *BufferedWriter) New(filename string, bufferSize int) error {
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, constants.FILE_CREATE_MODE)
	if err == nil {
		b.file = file
		b.filename = filename
		b.written = 0
		// New buffered writer.
		b.writer = bufio.NewWriterSize(b.file, bufferSize)
		return nil
	}
	return err
}

// WriteChunk appends chunk to the file
func (b *BufferedWriter) WriteChunk(chunk []byte) error {
	if b.file == nil {
		return os.ErrClosed
	}
	n, err := b.writer.Write(chunk)
	b.written += uint64(n)
	return err
}

// Written returns number of bytes accepted so far
func (b *BufferedWriter) Written() uint64 {
	return b.written
}

// Close flushes remaining bytes to disk and releases file handle
func (b *BufferedWriter) Close() error {
	if b.file == nil {
		return nil
	}
	// Write any remaining bytes.
	err := b.writer.Flush()
	if err == nil {
		err = b.file.Sync()
	}
	err = errors.Join(err, b.file.Close())
	b.file = nil
	return err
}

// Discard closes and removes the file so no partial output survives
func (b *BufferedWriter) Discard() error {
	if b.filename == "" {
		return nil
	}
	if b.file != nil {
		b.file.Close()
		b.file = nil
	}
	err := os.Remove(b.filename)
	b.filename = ""
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
