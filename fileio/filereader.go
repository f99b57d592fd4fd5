package fileio

// FileReader reads a source file sequentially in chunks
type FileReader interface {
	New(filename string, chunkSize int) error
	NextChunk() ([]byte, error)
	Close() error
}
