// Package hal defines the Hardware Abstraction Layer between the ArcMSR
// adapter core and the machine it runs on.
//
// The core needs three things from a platform: a 32-bit register window over
// the adapter's messaging unit, memory the adapter can reach by physical
// address (for command descriptors and data buffers), and a way to block
// until the adapter raises its interrupt.
//
// # Implementations
//
//   - [github.com/ardnew/arcmsr/adapter/hal/sim]: a firmware simulator
//     backed by an in-memory register file and RAM disks
//   - [github.com/ardnew/arcmsr/adapter/hal/linux]: PCI sysfs resource
//     mapping, UIO interrupts and hugepage DMA memory
//
// # Byte order
//
// [MMIO] deals in raw host-order words. The adapter core converts to and from
// the little-endian wire format, so a HAL never swaps bytes.
//
// # Example
//
//	h := sim.New(sim.DefaultOptions())
//	a := adapter.New(h, adapter.DefaultConfig())
//	if err := a.Init(ctx); err != nil {
//	    return err
//	}
package hal
