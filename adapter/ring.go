package adapter

// Ring is a circular byte buffer. One slot is always kept empty so that a
// full ring and an empty ring are distinguishable, so a ring created with
// capacity C holds at most C-1 bytes.
//
// Ring is not safe for concurrent use; the adapter guards it with its gate.
type Ring struct {
	data []byte
	head int // next write position
	tail int // next read position
}

// NewRing creates a ring of the given capacity.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{data: make([]byte, capacity)}
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.data)
}

// Len returns the number of unread bytes.
func (r *Ring) Len() int {
	size := len(r.data)
	return (r.head + size - r.tail) % size
}

// Available returns how many bytes can be inserted.
func (r *Ring) Available() int {
	return len(r.data) - 1 - r.Len()
}

// Clear discards all unread data.
func (r *Ring) Clear() {
	r.head = 0
	r.tail = 0
}

// Insert appends p in full, or not at all. It returns false when
// len(p) > r.Available().
func (r *Ring) Insert(p []byte) bool {
	if len(p) > r.Available() {
		return false
	}
	size := len(r.data)
	n := copy(r.data[r.head:], p)
	r.head += n
	if r.head == size {
		r.head = 0
	}
	if n < len(p) {
		r.head = copy(r.data, p[n:])
	}
	return true
}

// Remove moves up to len(p) unread bytes into p and returns the count.
func (r *Ring) Remove(p []byte) int {
	if r.head >= r.tail {
		n := copy(p, r.data[r.tail:r.head])
		r.tail += n
		return n
	}
	// tail to end of storage, then wrap
	n := copy(p, r.data[r.tail:])
	r.tail += n
	if r.tail == len(r.data) {
		r.tail = 0
	}
	if n < len(p) {
		m := copy(p[n:], r.data[:r.head])
		r.tail = m
		n += m
	}
	return n
}
