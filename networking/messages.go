package networking

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"go_verified_copy/constants"
	"go_verified_copy/networking/opcode"
	"io"
)

// HeaderLen is the size of an encoded Header on the wire
const HeaderLen = 52

// Header contains the fixed control message opening and closing a session
type Header struct {
	Magic     uint32
	Version   uint8
	Command   uint8 // opcode.START or opcode.END
	Reserved  uint16
	FileSize  uint64 // START: size to expect, END: bytes sent
	ChunkSize uint32 // Informational only
	Hash      [constants.HASH_SIZE]byte
}

// NewHeader returns header of given command stamped with protocol magic and version
func NewHeader(command uint8) *Header {
	return &Header{
		Magic:   constants.PROTOCOL_MAGIC,
		Version: constants.PROTOCOL_VERSION,
		Command: command,
	}
}

// EncodeHeader encodes Header to big endian slice of bytes
func EncodeHeader(header *Header) []byte {
	out := make([]byte, HeaderLen)
	binary.BigEndian.PutUint32(out[0:4], header.Magic)
	out[4] = header.Version
	out[5] = header.Command
	// Bytes 6-7 are reserved and always sent as zero.
	binary.BigEndian.PutUint64(out[8:16], header.FileSize)
	binary.BigEndian.PutUint32(out[16:20], header.ChunkSize)
	copy(out[20:HeaderLen], header.Hash[:])
	return out
}

// DecodeHeader decodes slice of bytes to Header without checking its contents
func DecodeHeader(message []byte) (*Header, error) {
	if len(message) < HeaderLen {
		return nil, fmt.Errorf("%w: got %d of %d bytes", ErrMalformedHeader, len(message), HeaderLen)
	}

	header := new(Header)
	buffer := bytes.NewReader(message[:HeaderLen])
	if err := binary.Read(buffer, binary.BigEndian, header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	return header, nil
}

// ReadHeader blocks until a full header has been read from stream
func ReadHeader(r io.Reader) (*Header, error) {
	msg := make([]byte, HeaderLen)

	read, err := io.ReadFull(r, msg)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %w: stream ended after %d of %d bytes",
				ErrNetwork, ErrMalformedHeader, read, HeaderLen)
		}
		return nil, fmt.Errorf("%w: reading header: %v", ErrNetwork, err)
	}

	return DecodeHeader(msg)
}

// WriteHeader writes encoded header to stream
func WriteHeader(w io.Writer, header *Header) error {
	if _, err := w.Write(EncodeHeader(header)); err != nil {
		return fmt.Errorf("%w: sending %s header: %v", ErrNetwork, opcode.Name(header.Command), err)
	}
	return nil
}

// Validate checks magic, version and that header carries the expected command
func (h *Header) Validate(command uint8) error {
	if h.Magic != constants.PROTOCOL_MAGIC {
		return fmt.Errorf("%w: 0x%08X", ErrInvalidMagic, h.Magic)
	}
	if h.Version != constants.PROTOCOL_VERSION {
		return fmt.Errorf("%w: unsupported protocol version %d", ErrNetwork, h.Version)
	}
	if h.Command != command {
		return fmt.Errorf("%w: expected %s command, got %s",
			ErrNetwork, opcode.Name(command), opcode.Name(h.Command))
	}
	return nil
}
