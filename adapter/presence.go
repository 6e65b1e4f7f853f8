package adapter

import (
	"github.com/ardnew/arcmsr/pkg"
)

// DeviceEventKind tells whether a unit appeared or went away.
type DeviceEventKind uint8

// Device event kinds.
const (
	DeviceArrived DeviceEventKind = iota
	DeviceDeparted
)

// String returns a human-readable event kind.
func (k DeviceEventKind) String() string {
	switch k {
	case DeviceArrived:
		return "arrived"
	case DeviceDeparted:
		return "departed"
	default:
		return "unknown"
	}
}

// DeviceEvent reports a change in the set of logical units.
type DeviceEvent struct {
	Kind   DeviceEventKind
	Target int
	LUN    int
}

// SCSITarget returns the flattened target number the host stack sees.
func (e DeviceEvent) SCSITarget() int {
	return FlatTarget(e.Target, e.LUN)
}

// FlatTarget flattens an adapter target/lun pair into a single target id.
func FlatTarget(target, lun int) int {
	return target*MaxLUNs + lun
}

// SplitTarget is the inverse of [FlatTarget].
func SplitTarget(flat int) (target, lun int) {
	return flat / MaxLUNs, flat % MaxLUNs
}

// presenceMap tracks which units exist. pending is overwritten from every
// config reply; confirmed only moves when the resolver commits a target.
type presenceMap struct {
	confirmed DeviceMap
	pending   DeviceMap
}

// update stores a freshly reported map and reports whether it differs from
// the confirmed one.
func (m *presenceMap) update(reported DeviceMap) bool {
	m.pending = reported
	return m.pending != m.confirmed
}

// resolve diffs pending against confirmed per target and per LUN bit,
// returning one event per changed bit, and commits each changed target.
func (m *presenceMap) resolve() []DeviceEvent {
	var events []DeviceEvent
	for target := 0; target < MaxTargets; target++ {
		was, now := m.confirmed[target], m.pending[target]
		if was == now {
			continue
		}
		pkg.LogDebug(pkg.ComponentRescan, "target changed", "target", target, "from", was, "to", now)
		for lun := 0; lun < MaxLUNs; lun++ {
			bit := uint8(1) << lun
			switch {
			case was&bit == 0 && now&bit != 0:
				pkg.LogDebug(pkg.ComponentEvent, "device appeared", "target", target, "lun", lun)
				events = append(events, DeviceEvent{Kind: DeviceArrived, Target: target, LUN: lun})
			case was&bit != 0 && now&bit == 0:
				pkg.LogDebug(pkg.ComponentEvent, "device disappeared", "target", target, "lun", lun)
				events = append(events, DeviceEvent{Kind: DeviceDeparted, Target: target, LUN: lun})
			}
		}
		m.confirmed[target] = now
	}
	return events
}
