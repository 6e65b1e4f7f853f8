package pkg

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Facet is a bitmask selecting which subsystems emit debug records.
type Facet uint32

// Debug facets.
const (
	FacetPCI Facet = 1 << iota
	FacetResource
	FacetInterrupt
	FacetSRB
	FacetSCSI
	FacetClient
	FacetMessages
	FacetRescan
	FacetMisc
	FacetAdapter
	FacetPower
	FacetEvent
	FacetError

	FacetAll Facet = 1<<iota - 1
)

// DefaultFacets is the facet set enabled when none is configured.
const DefaultFacets = FacetError | FacetEvent

var facetNames = []struct {
	name  string
	facet Facet
}{
	{"pci", FacetPCI},
	{"resource", FacetResource},
	{"interrupt", FacetInterrupt},
	{"srb", FacetSRB},
	{"scsi", FacetSCSI},
	{"client", FacetClient},
	{"messages", FacetMessages},
	{"rescan", FacetRescan},
	{"misc", FacetMisc},
	{"adapter", FacetAdapter},
	{"power", FacetPower},
	{"event", FacetEvent},
	{"error", FacetError},
	{"all", FacetAll},
}

var debugFacets atomic.Uint32

func init() {
	debugFacets.Store(uint32(DefaultFacets))
}

// ParseFacets parses a comma-separated list of facet names such as
// "srb,scsi,event". An empty string yields [DefaultFacets].
func ParseFacets(s string) (Facet, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultFacets, nil
	}
	var f Facet
	for _, field := range strings.Split(s, ",") {
		field = strings.ToLower(strings.TrimSpace(field))
		if field == "" {
			continue
		}
		found := false
		for _, fn := range facetNames {
			if fn.name == field {
				f |= fn.facet
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: unknown debug facet %q", ErrInvalidParameter, field)
		}
	}
	return f, nil
}

// String returns the comma-separated facet names set in f.
func (f Facet) String() string {
	if f == FacetAll {
		return "all"
	}
	var names []string
	for _, fn := range facetNames {
		if fn.facet != FacetAll && f&fn.facet != 0 {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, ",")
}

// SetDebugFacets selects the debug facets. It is meant to be called once
// during startup, before any adapter is started.
func SetDebugFacets(f Facet) {
	debugFacets.Store(uint32(f))
}

// DebugFacets returns the enabled debug facets.
func DebugFacets() Facet {
	return Facet(debugFacets.Load())
}

// DebugEnabled reports whether any facet in f is enabled.
func DebugEnabled(f Facet) bool {
	return Facet(debugFacets.Load())&f != 0
}
