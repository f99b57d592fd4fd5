package comms

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"go_verified_copy/constants"
	"go_verified_copy/fileio"
	"go_verified_copy/networking"
	"go_verified_copy/networking/opcode"
	"io"
	"net"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
)

// Source is a local file validated and hashed for sending
type Source struct {
	Path string
	Name string // Base name sent to the receiver
	Size uint64
	Hash [constants.HASH_SIZE]byte
}

// Client sends a single file over one TCP connection
type Client struct {
	socket  net.Conn
	factory fileio.IOFactory
	log     *logrus.Entry

	// OnProgress is called after every chunk written to the socket.
	OnProgress func(sent, total uint64)
}

// NewClient returns client logging to given entry
func NewClient(log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		factory: new(fileio.BufferedFactory),
		log:     log,
	}
}

// PrepareSource checks that path is a regular file within the size limit and
// calculates its checksum. No network activity happens here.
func PrepareSource(path string) (*Source, error) {
	fileName := filepath.Clean(path)

	// Get file info.
	finfo, err := os.Stat(fileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", networking.ErrFileNotFound, err)
	}
	if !finfo.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", networking.ErrFileNotFound, fileName)
	}
	if finfo.Size() > constants.MAX_FILE_SIZE {
		return nil, fmt.Errorf("%w: %s exceeds maximum size of 16GB", networking.ErrFileNotFound, fileName)
	}

	name := filepath.Base(fileName)
	if err := networking.ValidateFileName(name); err != nil {
		return nil, fmt.Errorf("%w: %w", networking.ErrFileNotFound, err)
	}

	hash, err := fileio.GetFileChecksumSHA256(fileName)
	if err != nil {
		return nil, err
	}

	return &Source{
		Path: fileName,
		Name: name,
		Size: uint64(finfo.Size()),
		Hash: hash,
	}, nil
}

// Connect opens TCP connection to target host address
func (c *Client) Connect(ctx context.Context, address string, dscp int, mptcp bool) error {
	if _, err := net.ResolveTCPAddr("tcp", address); err != nil {
		return fmt.Errorf("%w: %v", networking.ErrNetwork, err)
	}
	dial := new(net.Dialer)
	// Set MPTCP.
	dial.SetMultipathTCP(mptcp)
	// Connect to host.
	conn, err := dial.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("%w: %v", networking.ErrNetwork, err)
	}
	c.socket = conn

	if tcp, ok := conn.(*net.TCPConn); ok {
		// Set TCP_NODELAY to always immediately send.
		tcp.SetNoDelay(true)
	}
	// Set DSCP. NOTE: On Windows by default it will not apply the value.
	if err := ipv4.NewConn(conn).SetTOS(dscp); err != nil {
		c.log.WithError(err).Debug("Could not set DSCP")
	}

	c.log.WithField("remote", conn.RemoteAddr().String()).Info("Connected")
	return nil
}

// SendFile runs a whole session: START header, file name, body and END header.
// Returns number of body bytes sent.
func (c *Client) SendFile(src *Source) (uint64, error) {
	if c.socket == nil {
		return 0, fmt.Errorf("%w: not connected", networking.ErrNetwork)
	}
	log := c.log.WithField("file", src.Name)

	// Announce the file.
	start := networking.NewHeader(opcode.START)
	start.FileSize = src.Size
	start.ChunkSize = constants.TRANSFER_CHUNK
	if err := networking.WriteHeader(c.socket, start); err != nil {
		return 0, err
	}

	frame, err := networking.EncodeFileName(src.Name)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", networking.ErrFileNotFound, err)
	}
	if _, err := c.socket.Write(frame); err != nil {
		return 0, fmt.Errorf("%w: sending file name: %v", networking.ErrNetwork, err)
	}
	log.WithField("size", src.Size).Debug("Sent START header")

	sent, err := c.streamBody(src)
	if err != nil {
		return sent, err
	}

	// Close the session with the checksum calculated before connecting.
	end := networking.NewHeader(opcode.END)
	end.FileSize = sent
	end.Hash = src.Hash
	if err := networking.WriteHeader(c.socket, end); err != nil {
		return sent, err
	}

	log.WithFields(logrus.Fields{
		"bytes": sent,
		"hash":  hex.EncodeToString(src.Hash[:]),
	}).Info("File transfer complete")
	return sent, nil
}

// streamBody writes file contents to socket in chunks without any framing
func (c *Client) streamBody(src *Source) (uint64, error) {
	reader := c.factory.NewReader()
	if err := reader.New(src.Path, constants.TRANSFER_CHUNK); err != nil {
		return 0, fmt.Errorf("%w: %v", networking.ErrFileNotFound, err)
	}
	defer reader.Close()

	digest := fileio.NewDigest()
	var sent uint64

	for {
		chunk, err := reader.NextChunk()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sent, fmt.Errorf("%w: reading %s: %v", networking.ErrFileNotFound, src.Path, err)
		}
		// The receiver reads exactly the announced size.
		if sent+uint64(len(chunk)) > src.Size {
			return sent, fmt.Errorf("%w: %s grew during transfer", networking.ErrFileNotFound, src.Path)
		}

		if _, err := c.socket.Write(chunk); err != nil {
			return sent, fmt.Errorf("%w: sending data: %v", networking.ErrNetwork, err)
		}
		if err := digest.Update(chunk); err != nil {
			return sent, err
		}
		sent += uint64(len(chunk))

		if c.OnProgress != nil {
			c.OnProgress(sent, src.Size)
		}
	}

	if sent != src.Size {
		return sent, fmt.Errorf("%w: %s shrank during transfer", networking.ErrFileNotFound, src.Path)
	}

	// The file must not have changed since it was hashed.
	sum, err := digest.Finalize()
	if err != nil {
		return sent, err
	}
	if sum != src.Hash {
		return sent, fmt.Errorf("%w: %s changed during transfer", networking.ErrHashMismatch, src.Path)
	}

	return sent, nil
}

// Close closes socket
func (c *Client) Close() error {
	if c.socket == nil {
		return nil
	}
	err := c.socket.Close()
	c.socket = nil
	return err
}
