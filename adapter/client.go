package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ardnew/arcmsr/pkg"
)

// Session is the single management client attached to an adapter. It
// exchanges raw bytes with the adapter firmware over the message channel.
type Session struct {
	ID uuid.UUID

	a      *Adapter
	opened time.Time
}

// Open attaches a management client. Only one session may be open at a
// time; a second Open fails with [pkg.ErrExclusiveAccess].
func (a *Adapter) Open() (*Session, error) {
	a.g.Lock()
	defer a.g.Unlock()

	if !a.initialized {
		return nil, pkg.ErrNotInitialized
	}
	if a.client != nil {
		pkg.LogDebug(pkg.ComponentClient, "open refused", "holder", a.client.ID)
		return nil, pkg.ErrExclusiveAccess
	}
	s := &Session{ID: uuid.New(), a: a, opened: time.Now()}
	a.client = s
	a.mq.resume()
	pkg.LogDebug(pkg.ComponentClient, "client opened", "session", s.ID)
	return s, nil
}

// Close detaches the session. Queued data stays in the rings for the next
// client.
func (s *Session) Close() error {
	a := s.a
	a.g.Lock()
	defer a.g.Unlock()

	if a.client != s {
		return pkg.ErrNotOpen
	}
	a.client = nil
	a.mq.shutdown(pkg.ErrNotOpen)
	pkg.LogDebug(pkg.ComponentClient, "client closed", "session", s.ID, "held", time.Since(s.opened))
	return nil
}

// active checks that s still holds the adapter. The gate must be held.
func (s *Session) active() error {
	if s.a.client != s {
		return pkg.ErrNotOpen
	}
	return nil
}

// Send queues p for the adapter firmware, blocking while the inbound ring
// is full. The whole of p is queued or none of it. A blocked Send fails
// with [pkg.ErrNotRunning] when the adapter stops and with [pkg.ErrNotOpen]
// when the session closes.
func (s *Session) Send(ctx context.Context, p []byte) error {
	a := s.a
	if len(p) == 0 {
		return fmt.Errorf("%w: empty message", pkg.ErrInvalidParameter)
	}
	if len(p) > a.cfg.MessageBufferSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", pkg.ErrTransferTooLarge, len(p), a.cfg.MessageBufferSize)
	}

	a.g.Lock()
	defer a.g.Unlock()
	if err := s.active(); err != nil {
		return err
	}
	if !a.running {
		return pkg.ErrNotRunning
	}
	pkg.LogDebug(pkg.ComponentClient, "send", "session", s.ID, "len", len(p))
	return a.mq.inboundInsert(ctx, p)
}

// Recv copies up to len(p) bytes received from the adapter firmware. With
// nothing buffered it waits once for up to timeout; it returns 0 bytes
// and no error when the wait expires. A wait cut short by Stop or Close
// returns [pkg.ErrNotRunning] or [pkg.ErrNotOpen].
func (s *Session) Recv(p []byte, timeout time.Duration) (int, error) {
	a := s.a
	if len(p) > a.cfg.MessageBufferSize {
		p = p[:a.cfg.MessageBufferSize]
	}

	a.g.Lock()
	defer a.g.Unlock()
	if err := s.active(); err != nil {
		return 0, err
	}
	if !a.running {
		return 0, pkg.ErrNotRunning
	}
	n := a.mq.outboundRemove(p, timeout)
	// the wait may have ended because the session or adapter went away
	if err := s.active(); err != nil {
		return n, err
	}
	if !a.running {
		return n, pkg.ErrNotRunning
	}
	pkg.LogDebug(pkg.ComponentClient, "recv", "session", s.ID, "len", n)
	return n, nil
}

// ClearInbound discards data queued for the adapter but not yet handed
// over.
func (s *Session) ClearInbound() error {
	a := s.a
	a.g.Lock()
	defer a.g.Unlock()
	if err := s.active(); err != nil {
		return err
	}
	a.mq.inboundClear()
	return nil
}

// ClearOutbound discards data received from the adapter and releases a
// stalled adapter.
func (s *Session) ClearOutbound() error {
	a := s.a
	a.g.Lock()
	defer a.g.Unlock()
	if err := s.active(); err != nil {
		return err
	}
	a.mq.outboundClear()
	return nil
}

// Identify returns the adapter's identity strings.
func (s *Session) Identify() (Info, error) {
	a := s.a
	a.g.Lock()
	defer a.g.Unlock()
	if err := s.active(); err != nil {
		return Info{}, err
	}
	return a.info, nil
}
