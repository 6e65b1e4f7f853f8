package admin

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ardnew/arcmsr/pkg"
)

// SplitFrame finds the first complete frame in data. It has the shape of a
// [bufio.SplitFunc]: advance is how many bytes to drop, body is the frame
// body (nil when more data is needed). Bytes before a header are skipped;
// a frame with a bad checksum is consumed and reported as [pkg.ErrChecksum].
func SplitFrame(data []byte, atEOF bool) (advance int, body []byte, err error) {
	i := bytes.Index(data, Header[:])
	if i < 0 {
		// keep a possible partial header
		keep := min(len(data), HeaderSize-1)
		if atEOF {
			return len(data), nil, nil
		}
		return len(data) - keep, nil, nil
	}
	frame := data[i:]
	if len(frame) < HeaderSize+LengthSize {
		return i, nil, nil
	}
	n := int(binary.LittleEndian.Uint16(frame[HeaderSize:]))
	if n == 0 || n > MaxBody {
		// not a real header; skip it and resync
		return i + 1, nil, nil
	}
	end := HeaderSize + LengthSize + n
	if len(frame) < end+ChecksumSize {
		return i, nil, nil
	}
	if Checksum(frame[HeaderSize:end]) != frame[end] {
		return i + end + ChecksumSize, nil, fmt.Errorf("%w: frame of %d bytes", pkg.ErrChecksum, n)
	}
	return i + end + ChecksumSize, frame[HeaderSize+LengthSize : end], nil
}

// Decoder reassembles frames from a byte stream.
type Decoder struct {
	r   io.Reader
	buf []byte
	tmp [512]byte
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next returns the body of the next frame, skipping noise between frames.
func (d *Decoder) Next() ([]byte, error) {
	for {
		adv, body, err := SplitFrame(d.buf, false)
		if adv > 0 || body != nil || err != nil {
			out := append([]byte(nil), body...)
			d.buf = d.buf[adv:]
			if err != nil {
				return nil, err
			}
			if body != nil {
				return out, nil
			}
			continue
		}
		n, err := d.r.Read(d.tmp[:])
		d.buf = append(d.buf, d.tmp[:n]...)
		if err != nil {
			if n > 0 {
				continue
			}
			return nil, err
		}
	}
}

// Buffered returns the number of bytes held but not yet framed.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Port is the byte channel a [Client] talks over. An adapter session
// satisfies it.
type Port interface {
	Send(ctx context.Context, p []byte) error
	Recv(p []byte, timeout time.Duration) (int, error)
}

// Client issues management commands over a Port. Bytes read past one
// reply are kept for the next. A Client is not safe for concurrent use.
type Client struct {
	port Port
	rd   portReader
	dec  *Decoder

	// Poll bounds each wait for reply data.
	Poll time.Duration
}

// NewClient returns a client over p.
func NewClient(p Port) *Client {
	c := &Client{port: p, Poll: 100 * time.Millisecond}
	c.rd.port = p
	c.dec = NewDecoder(&c.rd)
	return c
}

// Do sends one command and waits for its reply until ctx is done.
func (c *Client) Do(ctx context.Context, code Command, data []byte) (Response, error) {
	frame, err := Encode(code, data)
	if err != nil {
		return Response{}, err
	}
	pkg.LogDebug(pkg.ComponentAdmin, "request", "command", code, "len", len(data))
	if err := c.port.Send(ctx, frame); err != nil {
		return Response{}, fmt.Errorf("send %s: %w", code, err)
	}

	if n := c.dec.Buffered(); n > 0 {
		pkg.LogDebug(pkg.ComponentAdmin, "reply bytes carried over", "command", code, "len", n)
	}
	c.rd.ctx, c.rd.poll = ctx, c.Poll
	body, err := c.dec.Next()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = pkg.ErrTimeout
		}
		return Response{}, fmt.Errorf("reply to %s: %w", code, err)
	}
	r := Response{Body: body}
	pkg.LogDebug(pkg.ComponentAdmin, "reply", "command", code, "len", len(body), "status", r.IsStatus())
	return r, nil
}

// Identify asks the firmware to name itself.
func (c *Client) Identify(ctx context.Context) (string, error) {
	r, err := c.Do(ctx, CmdIdentify, nil)
	if err != nil {
		return "", err
	}
	if r.IsStatus() {
		if err := r.Err(); err != nil {
			return "", err
		}
	}
	return string(bytes.TrimRight(r.Body, "\x00")), nil
}

// portReader adapts a Port to io.Reader, waiting in poll-sized steps
// until ctx is done.
type portReader struct {
	ctx  context.Context
	port Port
	poll time.Duration
}

func (r *portReader) Read(p []byte) (int, error) {
	for {
		if err := r.ctx.Err(); err != nil {
			return 0, err
		}
		n, err := r.port.Recv(p, r.poll)
		if n > 0 || err != nil {
			return n, err
		}
	}
}
