package admin

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/arcmsr/pkg"
)

func TestEncodeIdentify(t *testing.T) {
	frame := Identify()
	// header, length 1, code 0x13, checksum 0x01+0x00+0x13
	assert.Equal(t, []byte{0x5E, 0x01, 0x61, 0x01, 0x00, 0x13, 0x14}, frame)
}

func TestEncodeLimits(t *testing.T) {
	_, err := Encode(CmdSetLogo, make([]byte, MaxBody))
	require.Error(t, err, "body of MaxBody+1 bytes should be rejected")
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)

	frame, err := Encode(CmdSetLogo, make([]byte, MaxBody-1))
	require.NoError(t, err)
	assert.Len(t, frame, Overhead+MaxBody)
}

func TestSplitFrame(t *testing.T) {
	frame, err := Encode(CmdGetInfoSystem, []byte{1, 2, 3})
	require.NoError(t, err)

	t.Run("complete", func(t *testing.T) {
		adv, body, err := SplitFrame(frame, false)
		require.NoError(t, err)
		assert.Equal(t, len(frame), adv)
		assert.Equal(t, []byte{byte(CmdGetInfoSystem), 1, 2, 3}, body)
	})

	t.Run("partial", func(t *testing.T) {
		adv, body, err := SplitFrame(frame[:len(frame)-1], false)
		require.NoError(t, err)
		assert.Zero(t, adv)
		assert.Nil(t, body)
	})

	t.Run("leading noise", func(t *testing.T) {
		data := append([]byte{0xFF, 0x00, 0x5E}, frame...)
		adv, body, err := SplitFrame(data, false)
		require.NoError(t, err)
		assert.Equal(t, len(data), adv)
		assert.NotNil(t, body)
	})

	t.Run("noise only keeps header prefix", func(t *testing.T) {
		adv, body, err := SplitFrame([]byte{1, 2, 3, 0x5E, 0x01}, false)
		require.NoError(t, err)
		assert.Equal(t, 3, adv)
		assert.Nil(t, body)
	})

	t.Run("bad checksum", func(t *testing.T) {
		bad := bytes.Clone(frame)
		bad[len(bad)-1]++
		adv, body, err := SplitFrame(bad, false)
		assert.ErrorIs(t, err, pkg.ErrChecksum)
		assert.Equal(t, len(bad), adv, "bad frame should be consumed")
		assert.Nil(t, body)
	})
}

func TestDecoderReassembles(t *testing.T) {
	var stream []byte
	stream = append(stream, EncodeStatus(StatusOK)...)
	data, err := AppendFrame(nil, []byte("Areca RAID Subsystem "))
	require.NoError(t, err)
	stream = append(stream, data...)

	// one byte per read, as a worst case of chunked delivery
	dec := NewDecoder(iotest.OneByteReader(bytes.NewReader(stream)))

	body, err := dec.Next()
	require.NoError(t, err)
	r := Response{Body: body}
	assert.True(t, r.IsStatus())
	assert.Equal(t, StatusOK, r.Status())
	assert.NoError(t, r.Err())

	body, err = dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "Areca RAID Subsystem ", string(body))

	_, err = dec.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStatusError(t *testing.T) {
	r := Response{Body: []byte{byte(StatusChecksumError)}}
	err := r.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, pkg.ErrChecksum)
	assert.Equal(t, "admin: checksum error", err.Error())

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StatusChecksumError, se.Status)

	assert.Equal(t, "status-0x7f", Status(0x7F).String())
}

func TestCommandNames(t *testing.T) {
	for code, name := range commandNames {
		got, ok := ParseCommand(name)
		require.True(t, ok, name)
		assert.Equal(t, code, got)
		assert.Equal(t, name, code.String())
	}
	_, ok := ParseCommand("format-c")
	assert.False(t, ok)
	assert.Equal(t, "command-0xff", Command(0xFF).String())
}

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte{byte(CmdMuteBeeper), 0x01})
	require.NoError(t, err)
	assert.Equal(t, CmdMuteBeeper, req.Code)
	assert.Equal(t, []byte{0x01}, req.Data)

	_, err = ParseRequest(nil)
	assert.ErrorIs(t, err, pkg.ErrBadFrame)
}

// loopPort answers every request with a canned reply, delivered in small
// chunks.
type loopPort struct {
	reply []byte
	sent  [][]byte
	chunk int
}

func (p *loopPort) Send(_ context.Context, b []byte) error {
	p.sent = append(p.sent, bytes.Clone(b))
	return nil
}

func (p *loopPort) Recv(b []byte, _ time.Duration) (int, error) {
	n := min(len(b), p.chunk, len(p.reply))
	copy(b, p.reply[:n])
	p.reply = p.reply[n:]
	return n, nil
}

func TestClientIdentify(t *testing.T) {
	reply, err := AppendFrame(nil, []byte("Areca RAID Subsystem "))
	require.NoError(t, err)
	port := &loopPort{reply: reply, chunk: 7}

	name, err := NewClient(port).Identify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Areca RAID Subsystem ", name)
	require.Len(t, port.sent, 1)
	assert.Equal(t, Identify(), port.sent[0])
}

func TestClientTimeout(t *testing.T) {
	port := &loopPort{chunk: 1}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient(port).Do(ctx, CmdNoOperation, nil)
	assert.ErrorIs(t, err, pkg.ErrTimeout)
}

func TestClientKeepsTrailingReply(t *testing.T) {
	first, err := AppendFrame(nil, []byte("Areca RAID Subsystem "))
	require.NoError(t, err)
	both, err := AppendFrame(first, []byte("ARC-1220"))
	require.NoError(t, err)
	// one read returns both frames
	port := &loopPort{reply: both, chunk: len(both)}
	c := NewClient(port)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	name, err := c.Identify(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Areca RAID Subsystem ", name)
	assert.Empty(t, port.reply)

	r, err := c.Do(ctx, CmdGetInfoSystem, nil)
	require.NoError(t, err, "second reply was read with the first")
	assert.Equal(t, []byte("ARC-1220"), r.Body)
}
