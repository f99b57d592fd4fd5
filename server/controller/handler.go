package server

import (
	"encoding/hex"
	"fmt"
	"go_verified_copy/constants"
	"go_verified_copy/fileio"
	"go_verified_copy/networking"
	"go_verified_copy/networking/opcode"
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// State is the position of a receiving session in the protocol
type State uint8

const (
	AwaitStartHeader State = iota
	AwaitFilename
	StreamingBody
	AwaitEndHeader
	Verifying
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case AwaitStartHeader:
		return "AWAIT_START_HEADER"
	case AwaitFilename:
		return "AWAIT_FILENAME"
	case StreamingBody:
		return "STREAMING_BODY"
	case AwaitEndHeader:
		return "AWAIT_END_HEADER"
	case Verifying:
		return "VERIFYING"
	case Done:
		return "DONE"
	case Failed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Result describes a file received and verified
type Result struct {
	Name string
	Path string
	Size uint64
	Hash [constants.HASH_SIZE]byte
}

// Handler runs receiving sessions against a root folder
type Handler struct {
	root       string
	chunksize  int
	factory    fileio.IOFactory
	onProgress func(received, total uint64)
}

// NewHandler returns handler storing files under root
func NewHandler(root string, chunksize int, factory fileio.IOFactory) *Handler {
	if chunksize <= 0 {
		chunksize = constants.TRANSFER_CHUNK
	}
	if factory == nil {
		factory = new(fileio.BufferedFactory)
	}
	return &Handler{
		root:      root,
		chunksize: chunksize,
		factory:   factory,
	}
}

// session holds everything owned by one transfer
type session struct {
	state    State
	log      *logrus.Entry
	start    *networking.Header
	name     string
	path     string
	writer   fileio.FileWriter
	digest   *fileio.Digest
	received uint64
}

// Receive runs one session reading from conn. On any failure the destination
// file, if already created, is removed before returning.
func (h *Handler) Receive(conn io.Reader, log *logrus.Entry) (*Result, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &session{state: AwaitStartHeader, log: log}

	result, err := h.run(conn, s)
	if err != nil {
		failedIn := s.state
		s.state = Failed
		if s.writer != nil {
			// Never leave partial or unverified output behind.
			if derr := s.writer.Discard(); derr != nil {
				log.WithError(derr).Warn("Could not remove incomplete file")
			}
		}
		log.WithFields(logrus.Fields{
			"state":    failedIn.String(),
			"received": s.received,
		}).WithError(err).Error("Transfer failed")
		return nil, err
	}

	s.state = Done
	return result, nil
}

// run walks the session through every state until verification
func (h *Handler) run(conn io.Reader, s *session) (*Result, error) {
	if err := h.awaitStart(conn, s); err != nil {
		return nil, err
	}
	if err := h.awaitFilename(conn, s); err != nil {
		return nil, err
	}
	if err := h.streamBody(conn, s); err != nil {
		return nil, err
	}
	end, err := h.awaitEnd(conn, s)
	if err != nil {
		return nil, err
	}
	return h.verify(s, end)
}

// awaitStart reads and validates the opening header
func (h *Handler) awaitStart(conn io.Reader, s *session) error {
	header, err := networking.ReadHeader(conn)
	if err != nil {
		return err
	}
	if err := header.Validate(opcode.START); err != nil {
		return err
	}
	if header.FileSize > constants.MAX_FILE_SIZE {
		return fmt.Errorf("%w: announced size %d exceeds maximum of 16GB", networking.ErrNetwork, header.FileSize)
	}
	s.start = header
	s.log.WithFields(logrus.Fields{
		"size":  header.FileSize,
		"chunk": header.ChunkSize,
	}).Debug("Received START header")

	s.state = AwaitFilename
	return nil
}

// awaitFilename reads file name and creates the destination file
func (h *Handler) awaitFilename(conn io.Reader, s *session) error {
	name, err := networking.ReadFileName(conn)
	if err != nil {
		return err
	}
	s.name = name
	s.path = filepath.Join(h.root, name)
	s.log = s.log.WithField("file", name)

	writer := h.factory.NewWriter()
	if err := writer.New(s.path, h.chunksize); err != nil {
		return fmt.Errorf("%w: %v", networking.ErrFileNotFound, err)
	}
	s.writer = writer
	s.log.WithField("size", s.start.FileSize).Info("Receiving file")

	s.state = StreamingBody
	return nil
}

// streamBody reads exactly the announced number of bytes into the file
func (h *Handler) streamBody(conn io.Reader, s *session) error {
	s.digest = fileio.NewDigest()
	buffer := make([]byte, h.chunksize)
	total := s.start.FileSize

	for s.received < total {
		toReceive := uint64(len(buffer))
		if remaining := total - s.received; remaining < toReceive {
			toReceive = remaining
		}
		chunk := buffer[:toReceive]

		// A short chunk means the sender went away.
		if _, err := io.ReadFull(conn, chunk); err != nil {
			return fmt.Errorf("%w: connection lost after %d of %d bytes: %v",
				networking.ErrNetwork, s.received, total, err)
		}
		if err := s.writer.WriteChunk(chunk); err != nil {
			return fmt.Errorf("%w: writing %s: %v", networking.ErrNetwork, s.path, err)
		}
		if err := s.digest.Update(chunk); err != nil {
			return err
		}
		s.received += toReceive

		if h.onProgress != nil {
			h.onProgress(s.received, total)
		}
	}

	// Flush everything to disk before the trailer arrives.
	if err := s.writer.Close(); err != nil {
		return fmt.Errorf("%w: writing %s: %v", networking.ErrNetwork, s.path, err)
	}

	s.state = AwaitEndHeader
	return nil
}

// awaitEnd reads and validates the closing header
func (h *Handler) awaitEnd(conn io.Reader, s *session) (*networking.Header, error) {
	header, err := networking.ReadHeader(conn)
	if err != nil {
		return nil, err
	}
	if err := header.Validate(opcode.END); err != nil {
		return nil, err
	}
	if header.FileSize != s.received {
		return nil, fmt.Errorf("%w: END reports %d bytes sent, received %d",
			networking.ErrNetwork, header.FileSize, s.received)
	}
	s.log.Debug("Received END header")

	s.state = Verifying
	return header, nil
}

// verify compares local checksum with the one sent by the client
func (h *Handler) verify(s *session, end *networking.Header) (*Result, error) {
	sum, err := s.digest.Finalize()
	if err != nil {
		return nil, err
	}
	if sum != end.Hash {
		return nil, fmt.Errorf("%w: expected %s, calculated %s", networking.ErrHashMismatch,
			hex.EncodeToString(end.Hash[:]), hex.EncodeToString(sum[:]))
	}

	s.log.WithField("hash", hex.EncodeToString(sum[:])).Info("File integrity verified")
	return &Result{
		Name: s.name,
		Path: s.path,
		Size: s.received,
		Hash: sum,
	}, nil
}
