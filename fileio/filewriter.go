package fileio

// FileWriter persists a destination file and can remove it again on failure
type FileWriter interface {
	New(filename string, bufferSize int) error
	WriteChunk(chunk []byte) error
	Written() uint64
	Close() error
	Discard() error
}
