package fileio

import (
	"crypto/sha256"
	"fmt"
	"go_verified_copy/constants"
	"go_verified_copy/networking"
	"hash"
	"io"
	"os"
)

// Digest incrementally calculates SHA256 checksum of a byte stream
type Digest struct {
	sha256Hash hash.Hash
}

// NewDigest returns digest ready for updates
func NewDigest() *Digest {
	return &Digest{sha256Hash: sha256.New()}
}

// Update feeds next chunk to the digest
func (d *Digest) Update(data []byte) error {
	if d.sha256Hash == nil {
		return fmt.Errorf("%w: digest updated after finalize", networking.ErrMemory)
	}
	if len(data) > 0 {
		d.sha256Hash.Write(data)
	}
	return nil
}

// Write makes Digest usable as io.Writer
func (d *Digest) Write(data []byte) (int, error) {
	if err := d.Update(data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Finalize returns checksum of all data so far and releases hash state
func (d *Digest) Finalize() ([constants.HASH_SIZE]byte, error) {
	var sum [constants.HASH_SIZE]byte
	if d.sha256Hash == nil {
		return sum, fmt.Errorf("%w: digest finalized twice", networking.ErrMemory)
	}
	copy(sum[:], d.sha256Hash.Sum(nil))
	d.sha256Hash = nil
	return sum, nil
}

// GetFileChecksumSHA256 returns SHA256 checksum of given file
func GetFileChecksumSHA256(file string) ([constants.HASH_SIZE]byte, error) {
	var sum [constants.HASH_SIZE]byte

	handle, err := os.Open(file)
	if err != nil {
		return sum, fmt.Errorf("%w: %v", networking.ErrFileNotFound, err)
	}
	defer handle.Close()

	digest := NewDigest()
	if _, err := io.CopyBuffer(digest, handle, make([]byte, constants.TRANSFER_CHUNK)); err != nil {
		return sum, fmt.Errorf("%w: hashing %s: %v", networking.ErrFileNotFound, file, err)
	}

	return digest.Finalize()
}
