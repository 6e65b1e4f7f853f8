package adapter

import (
	"bytes"
	"testing"
)

func TestRingCapacity(t *testing.T) {
	r := NewRing(8)
	if got := r.Available(); got != 7 {
		t.Fatalf("Available() = %d, want 7", got)
	}
	if !r.Insert(make([]byte, 7)) {
		t.Fatal("Insert() of C-1 bytes failed")
	}
	if r.Insert([]byte{1}) {
		t.Error("Insert() into full ring succeeded")
	}
	if r.Len() != 7 || r.Available() != 0 {
		t.Errorf("Len() = %d, Available() = %d", r.Len(), r.Available())
	}
}

func TestRingInsertAllOrNothing(t *testing.T) {
	r := NewRing(16)
	r.Insert(make([]byte, 10))

	for n := 0; n <= 8; n++ {
		want := n <= r.Available()
		before := r.Len()
		got := r.Insert(make([]byte, n))
		if got != want {
			t.Errorf("Insert(%d) with %d available = %v, want %v", n, r.Available(), got, want)
		}
		if !got && r.Len() != before {
			t.Errorf("failed Insert(%d) changed length", n)
		}
		if got {
			r.Remove(make([]byte, n))
		}
	}
}

func TestRingFIFOAcrossWrap(t *testing.T) {
	r := NewRing(10)
	var out []byte
	next := byte(0)
	buf := make([]byte, 4)

	// push the indices around the ring several times
	for round := 0; round < 20; round++ {
		chunk := make([]byte, 1+round%5)
		for i := range chunk {
			chunk[i] = next
			next++
		}
		for !r.Insert(chunk) {
			n := r.Remove(buf)
			out = append(out, buf[:n]...)
		}
	}
	for r.Len() > 0 {
		n := r.Remove(buf)
		out = append(out, buf[:n]...)
	}

	want := make([]byte, next)
	for i := range want {
		want[i] = byte(i)
	}
	if !bytes.Equal(out, want) {
		t.Errorf("FIFO order broken:\n got %v\nwant %v", out, want)
	}
}

func TestRingRemoveWrapped(t *testing.T) {
	r := NewRing(8)
	r.Insert([]byte{1, 2, 3, 4, 5})
	r.Remove(make([]byte, 4))
	r.Insert([]byte{6, 7, 8, 9, 10})

	p := make([]byte, 16)
	n := r.Remove(p)
	if !bytes.Equal(p[:n], []byte{5, 6, 7, 8, 9, 10}) {
		t.Errorf("Remove() = %v", p[:n])
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after drain", r.Len())
	}
}

func TestRingClear(t *testing.T) {
	r := NewRing(4)
	r.Insert([]byte{1, 2})
	r.Clear()
	if r.Len() != 0 || r.Available() != 3 {
		t.Errorf("after Clear() Len() = %d, Available() = %d", r.Len(), r.Available())
	}
	if n := r.Remove(make([]byte, 4)); n != 0 {
		t.Errorf("Remove() after Clear() = %d", n)
	}
}
