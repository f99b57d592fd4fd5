package networking

import (
	"encoding/binary"
	"errors"
	"fmt"
	"go_verified_copy/constants"
	"io"
	"path/filepath"
	"strings"
)

// ErrInvalidFileName is returned for names that are empty, too long or not a plain base name
var ErrInvalidFileName = errors.New("invalid file name")

// fileNamePrefixLen is the size of the big endian length preceding the name
const fileNamePrefixLen = 2

// ValidateFileName accepts only a single path element that stays inside the target directory
func ValidateFileName(name string) error {
	if name == "" || len(name) > constants.MAX_FILENAME {
		return fmt.Errorf("%w: length %d", ErrInvalidFileName, len(name))
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	// Reject separators of every platform, not just the local one.
	if strings.ContainsAny(name, "/\\\x00") || !filepath.IsLocal(name) {
		return fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	return nil
}

// EncodeFileName encodes name as length prefixed frame
func EncodeFileName(name string) ([]byte, error) {
	if err := ValidateFileName(name); err != nil {
		return nil, err
	}
	out := make([]byte, fileNamePrefixLen, fileNamePrefixLen+len(name))
	binary.BigEndian.PutUint16(out, uint16(len(name)))
	return append(out, name...), nil
}

// ReadFileName reads length prefixed file name frame from stream
func ReadFileName(r io.Reader) (string, error) {
	prefix := make([]byte, fileNamePrefixLen)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return "", fmt.Errorf("%w: reading file name length: %v", ErrNetwork, err)
	}

	nameLen := binary.BigEndian.Uint16(prefix)
	if nameLen == 0 || nameLen > constants.MAX_FILENAME {
		return "", fmt.Errorf("%w: %w: length %d", ErrNetwork, ErrInvalidFileName, nameLen)
	}

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return "", fmt.Errorf("%w: reading file name: %v", ErrNetwork, err)
	}

	if err := ValidateFileName(string(name)); err != nil {
		return "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	return string(name), nil
}
