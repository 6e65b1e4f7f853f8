package admin

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/arcmsr/pkg"
)

// Frame geometry.
const (
	HeaderSize   = 3
	LengthSize   = 2
	ChecksumSize = 1
	Overhead     = HeaderSize + LengthSize + ChecksumSize

	// MaxBody is the largest body the firmware accepts in one frame.
	MaxBody = 2040
)

// Header opens every frame in both directions.
var Header = [HeaderSize]byte{0x5E, 0x01, 0x61}

// Checksum returns the 8-bit additive checksum of the length and body.
func Checksum(lengthAndBody []byte) byte {
	var sum byte
	for _, b := range lengthAndBody {
		sum += b
	}
	return sum
}

// AppendFrame appends a framed body to dst.
func AppendFrame(dst, body []byte) ([]byte, error) {
	if len(body) == 0 || len(body) > MaxBody {
		return dst, fmt.Errorf("%w: frame body of %d bytes", pkg.ErrInvalidParameter, len(body))
	}
	dst = append(dst, Header[:]...)
	start := len(dst)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(body)))
	dst = append(dst, body...)
	return append(dst, Checksum(dst[start:])), nil
}

// Encode frames a command for the firmware.
func Encode(code Command, data []byte) ([]byte, error) {
	body := make([]byte, 0, 1+len(data))
	body = append(body, byte(code))
	body = append(body, data...)
	return AppendFrame(make([]byte, 0, Overhead+len(body)), body)
}

// EncodeStatus frames a one-byte status reply.
func EncodeStatus(s Status) []byte {
	frame, _ := AppendFrame(nil, []byte{byte(s)})
	return frame
}

// Identify returns the framed IDENTIFY request.
func Identify() []byte {
	frame, _ := Encode(CmdIdentify, nil)
	return frame
}

// Response is a decoded firmware reply. A one-byte body is a status code;
// anything longer is command-specific data.
type Response struct {
	Body []byte
}

// IsStatus reports whether the reply carries only a status code.
func (r Response) IsStatus() bool {
	return len(r.Body) == 1
}

// Status returns the status code of a one-byte reply, or [StatusOK] for a
// data reply.
func (r Response) Status() Status {
	if r.IsStatus() {
		return Status(r.Body[0])
	}
	return StatusOK
}

// Err returns nil unless the reply is a failing status.
func (r Response) Err() error {
	if s := r.Status(); s != StatusOK {
		return &StatusError{Status: s}
	}
	return nil
}

// Request is a decoded host command.
type Request struct {
	Code Command
	Data []byte
}

// ParseRequest splits a frame body into command code and data.
func ParseRequest(body []byte) (Request, error) {
	if len(body) == 0 {
		return Request{}, fmt.Errorf("%w: empty request", pkg.ErrBadFrame)
	}
	return Request{Code: Command(body[0]), Data: body[1:]}, nil
}

// StatusError reports a failing status reply.
type StatusError struct {
	Status Status
}

// Error implements error.
func (e *StatusError) Error() string {
	return "admin: " + e.Status.String()
}

// Unwrap maps checksum failures onto [pkg.ErrChecksum].
func (e *StatusError) Unwrap() error {
	switch e.Status {
	case StatusChecksumError:
		return pkg.ErrChecksum
	case StatusUnsupportedCommand:
		return pkg.ErrNotSupported
	default:
		return nil
	}
}
