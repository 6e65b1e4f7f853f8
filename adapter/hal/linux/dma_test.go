//go:build linux

package linux

import (
	"testing"

	"github.com/ardnew/arcmsr/adapter/hal"
)

func TestDecodePagemap(t *testing.T) {
	const page = 4096
	tests := []struct {
		name  string
		entry uint64
		phys  uint64
		ok    bool
	}{
		{"present", pagemapPresent | 0x12345, 0x12345 * page, true},
		{"swapped out", 0x12345, 0, false},
		{"hidden pfn", pagemapPresent, 0, false},
		{"soft dirty bit ignored", pagemapPresent | 1<<55 | 7, 7 * page, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phys, ok := decodePagemap(tt.entry, page)
			if phys != tt.phys || ok != tt.ok {
				t.Errorf("decodePagemap(0x%x) = 0x%x, %v", tt.entry, phys, ok)
			}
		})
	}
}

func TestContiguous(t *testing.T) {
	if !contiguous([]uint64{0x1000, 0x2000, 0x3000}, 0x1000) {
		t.Error("adjacent pages not contiguous")
	}
	if contiguous([]uint64{0x1000, 0x5000}, 0x1000) {
		t.Error("gap reported contiguous")
	}
	if contiguous(nil, 0x1000) {
		t.Error("no pages reported contiguous")
	}
}

func TestSegments(t *testing.T) {
	pages := []uint64{0x10000, 0x11000, 0x40000}

	got := segments(pages, 0x1000, 0x800, 0x2000)
	want := []hal.Segment{
		{Addr: 0x10800, Length: 0x1800}, // pages 0 and 1 merge
		{Addr: 0x40000, Length: 0x800},
	}
	if len(got) != len(want) {
		t.Fatalf("segments() = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if got := segments(pages, 0x1000, 0x10, 0x20); len(got) != 1 || got[0].Addr != 0x10010 {
		t.Errorf("segments(within page) = %+v", got)
	}
	if got := segments(pages, 0x1000, 0, 0); got != nil {
		t.Errorf("segments(empty) = %+v", got)
	}
}

func TestRoundUp(t *testing.T) {
	if roundUp(1, 4096) != 4096 || roundUp(4096, 4096) != 4096 || roundUp(4097, 4096) != 8192 {
		t.Error("roundUp() wrong")
	}
}
