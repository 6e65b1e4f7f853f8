// Package linux provides an ArcMSR HAL for Linux built on PCI sysfs and
// the userspace I/O (UIO) framework. It needs no cgo.
//
// # Requirements
//
// The adapter must be bound to uio_pci_generic (or another UIO driver that
// exposes its interrupt), for example:
//
//	modprobe uio_pci_generic
//	echo 17d3 1680 > /sys/bus/pci/drivers/uio_pci_generic/new_id
//
// The process needs read/write access to the device's sysfs resource0 and
// config files and to /dev/uioN, and CAP_SYS_ADMIN to read physical
// addresses from /proc/self/pagemap. Descriptor pools larger than a page
// are placed in 2 MiB hugepages, so vm.nr_hugepages must be non-zero.
//
// # Architecture
//
//   - Discovery: /sys/bus/pci/devices/*/{vendor,device,irq,uio}
//   - Registers: BAR0 mapped from resource0 with MAP_SHARED
//   - Interrupts: blocking reads on /dev/uioN, multiplexed with an eventfd
//     through epoll so that WaitInterrupt honours its context
//   - DMA: locked anonymous mappings translated through pagemap
package linux
