// Package sim provides a simulated ArcMSR adapter implementing [hal.HAL].
//
// The simulator keeps a 4 KiB register file laid out like the real
// messaging unit and attaches firmware behaviour to register writes:
//
//   - inbound_msgaddr0 runs the message at once (GET_CONFIG writes a
//     config reply to the message wbuffer) and raises message 0
//   - the inbound doorbell feeds the message channel, answering the
//     management protocol (or echoing bytes back, with Options.Echo)
//   - the inbound queue port executes the posted descriptor against the
//     attached volumes and queues a reply on the outbound queue port
//
// Outbound interrupt status and doorbell registers are write-one-to-clear.
// The interrupt line is asserted whenever an unmasked status bit is set.
//
// DMA memory is ordinary Go memory behind fake physical addresses, so
// descriptors and scatter/gather lists are resolved exactly as the
// hardware would.
//
// # Usage
//
//	h := sim.New(sim.DefaultOptions())
//	h.Attach(0, 0, sim.NewMemoryVolume(2048))
//
//	a := adapter.New(h, adapter.DefaultConfig())
//	if err := a.Init(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	if err := a.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Close()
//
// Switches in [Options] reproduce the failure modes the driver must
// survive: firmware that never boots, a corrupt config signature, messages
// that are never acknowledged and replies held back past a task timeout.
package sim
