package adapter_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/arcmsr/adapter"
	"github.com/ardnew/arcmsr/adapter/admin"
	"github.com/ardnew/arcmsr/adapter/hal"
	"github.com/ardnew/arcmsr/adapter/hal/sim"
	"github.com/ardnew/arcmsr/pkg"
	"github.com/ardnew/arcmsr/scsi"
)

func testConfig() adapter.Config {
	cfg := adapter.DefaultConfig()
	cfg.PollInterval = time.Millisecond
	cfg.FirmwareReadyTries = 20
	cfg.MessageWaitTries = 200
	cfg.ScanInterval = time.Hour
	return cfg
}

// newAdapter returns an initialized adapter over a simulator.
func newAdapter(t *testing.T, opts sim.Options, cfg adapter.Config) (*adapter.Adapter, *sim.HAL) {
	t.Helper()
	h := sim.New(opts)
	a := adapter.New(h, cfg)
	require.NoError(t, a.Init(context.Background()))
	t.Cleanup(func() { a.Close() })
	return a, h
}

// startAdapter returns a running adapter with a volume at target 0 lun 0.
func startAdapter(t *testing.T, opts sim.Options, cfg adapter.Config) (*adapter.Adapter, *sim.HAL, *sim.MemoryVolume) {
	t.Helper()
	a, h := newAdapter(t, opts, cfg)
	vol := sim.NewMemoryVolume(64)
	h.Attach(0, 0, vol)
	require.NoError(t, a.Start(context.Background()))
	return a, h, vol
}

func allocDMA(t *testing.T, h hal.HAL, size int) hal.DMABuffer {
	t.Helper()
	buf, err := h.AllocDMA(size, 8)
	require.NoError(t, err)
	t.Cleanup(func() { buf.Free() })
	return buf
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// =============================================================================
// Init
// =============================================================================

func TestInitFailures(t *testing.T) {
	tests := []struct {
		name string
		edit func(*sim.Options)
		want error
	}{
		{"firmware never ready", func(o *sim.Options) { o.FirmwareNotReady = true }, pkg.ErrFirmwareTimeout},
		{"bad signature", func(o *sim.Options) { o.BadSignature = true }, pkg.ErrConfigSignature},
		{"no acknowledge", func(o *sim.Options) { o.MuteMessages = true }, pkg.ErrMessageTimeout},
		{"zero depth", func(o *sim.Options) { o.QueueDepth = 0 }, pkg.ErrConfigSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := sim.DefaultOptions()
			tt.edit(&opts)
			h := sim.New(opts)
			a := adapter.New(h, testConfig())
			defer a.Close()

			err := a.Init(context.Background())
			require.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, a.Start(context.Background()), pkg.ErrNotInitialized)
		})
	}
}

func TestInitWaitsForFirmware(t *testing.T) {
	opts := sim.DefaultOptions()
	opts.FirmwareDelay = 5 * time.Millisecond
	a, _ := newAdapter(t, opts, testConfig())
	assert.Equal(t, "ARC-1220", a.Info().Model)
}

func TestInitInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MaxOutstanding = 0
	a := adapter.New(sim.New(sim.DefaultOptions()), cfg)
	assert.ErrorIs(t, a.Init(context.Background()), pkg.ErrInvalidParameter)
}

func TestInitInfo(t *testing.T) {
	cfg := testConfig()
	cfg.MaxOutstanding = 32
	opts := sim.DefaultOptions()
	opts.RequestSize = 400
	a, _ := newAdapter(t, opts, cfg)

	info := a.Info()
	assert.Equal(t, "Areca Technology Corp.", info.Vendor)
	assert.Equal(t, "V1.42 2007-10-15", info.FirmwareVersion)
	assert.Equal(t, uint32(adapter.MaxOutstanding), info.QueueDepth)
	assert.Equal(t, 32, info.Tags)
	assert.Equal(t, uint32(416), info.SlotSize)
	assert.Equal(t, uint16(sim.VendorID), info.Bus.VendorID)
}

func TestInitFlushesStaleDoorbell(t *testing.T) {
	opts := sim.DefaultOptions()
	opts.StaleDoorbell = true
	_, h := newAdapter(t, opts, testConfig())
	assert.Equal(t, 1, h.Stats().ReadOKs)
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestLifecycle(t *testing.T) {
	a, h := newAdapter(t, sim.DefaultOptions(), testConfig())
	ctx := context.Background()

	assert.ErrorIs(t, a.Stop(), pkg.ErrNotRunning)
	require.NoError(t, a.Start(ctx))
	assert.True(t, a.Running())
	assert.ErrorIs(t, a.Start(ctx), pkg.ErrAlreadyRunning)

	require.NoError(t, a.Stop())
	assert.False(t, a.Running())
	assert.ErrorIs(t, a.Stop(), pkg.ErrNotRunning)

	msgs := h.Stats().Messages
	assert.Equal(t, adapter.MsgGetConfig, msgs[0])
	assert.Contains(t, msgs, adapter.MsgStartBGRB)
	assert.Contains(t, msgs, adapter.MsgStopBGRB)
	assert.Equal(t, adapter.MsgFlushCache, msgs[len(msgs)-1])

	// restartable after stop
	require.NoError(t, a.Start(ctx))
	require.NoError(t, a.Close())
	assert.False(t, a.Running())
}

func TestInitTwice(t *testing.T) {
	a, _, _ := startAdapter(t, sim.DefaultOptions(), testConfig())

	// a second Init must leave the running adapter's hardware alone
	require.NoError(t, a.Init(context.Background()))
	assert.True(t, a.Running())
	task := &adapter.Task{CDB: scsi.TestUnitReady(), Timeout: 2 * time.Second}
	require.NoError(t, a.Execute(context.Background(), task))
	assert.Equal(t, pkg.TaskStatusGood, task.Status)
}

func TestStartContextCancelled(t *testing.T) {
	a, h := newAdapter(t, sim.DefaultOptions(), testConfig())
	h.Attach(0, 0, sim.NewMemoryVolume(8))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, a.Start(ctx))
	cancel()

	// interrupts are still serviced until Stop
	task := &adapter.Task{CDB: scsi.TestUnitReady(), Timeout: 2 * time.Second}
	require.NoError(t, a.Execute(context.Background(), task))
	assert.Equal(t, pkg.TaskStatusGood, task.Status)
	require.NoError(t, a.Stop())
}

func TestFlushCacheSyncsVolumes(t *testing.T) {
	a, _, vol := startAdapter(t, sim.DefaultOptions(), testConfig())
	require.NoError(t, a.FlushCache(context.Background()))
	assert.Equal(t, 1, vol.Syncs())
}

// =============================================================================
// Tasks
// =============================================================================

func TestExecuteInquiry(t *testing.T) {
	a, h, _ := startAdapter(t, sim.DefaultOptions(), testConfig())
	buf := allocDMA(t, h, scsi.InquiryStandardSize)

	task := &adapter.Task{
		Direction: adapter.DirIn,
		CDB:       scsi.Inquiry(scsi.InquiryStandardSize),
		Buffer:    buf,
		Length:    scsi.InquiryStandardSize,
		Timeout:   time.Second,
	}
	require.NoError(t, a.Execute(context.Background(), task))
	assert.Equal(t, pkg.TaskStatusGood, task.Status)
	assert.Equal(t, pkg.ServiceResponseTaskComplete, task.Response)
	assert.Equal(t, scsi.InquiryStandardSize, task.Realized)

	var inq scsi.InquiryData
	require.True(t, scsi.ParseInquiry(buf.Bytes(), &inq))
	assert.Equal(t, "ARC-VOL#000", inq.Product)

	s := a.Stats()
	assert.Equal(t, uint64(1), s.Posted)
	assert.Equal(t, uint64(1), s.Completed)
	assert.Zero(t, s.TagsInUse)
}

func TestReadWrite(t *testing.T) {
	opts := sim.DefaultOptions()
	opts.PageSize = 1024
	a, h, vol := startAdapter(t, opts, testConfig())
	ctx := context.Background()

	const blocks = 16
	n := blocks * scsi.BlockSize
	out := allocDMA(t, h, n)
	for i := range out.Bytes() {
		out.Bytes()[i] = byte(i * 7)
	}
	write := &adapter.Task{
		Direction: adapter.DirOut,
		CDB:       scsi.Write10(4, blocks),
		Buffer:    out,
		Length:    n,
	}
	require.NoError(t, a.Execute(ctx, write))
	assert.Equal(t, out.Bytes(), vol.Bytes()[4*scsi.BlockSize:][:n])

	in := allocDMA(t, h, n)
	read := &adapter.Task{
		Direction: adapter.DirIn,
		CDB:       scsi.Read10(4, blocks),
		Buffer:    in,
		Length:    n,
	}
	require.NoError(t, a.Execute(ctx, read))
	assert.True(t, bytes.Equal(in.Bytes(), out.Bytes()), "read back differs")
	assert.Equal(t, 2, h.Stats().Completed)
}

func TestCheckCondition(t *testing.T) {
	a, _, _ := startAdapter(t, sim.DefaultOptions(), testConfig())

	task := &adapter.Task{CDB: []byte{0xEE, 0, 0, 0, 0, 0}}
	err := a.Execute(context.Background(), task)
	require.Error(t, err)

	var te *adapter.TaskError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, pkg.TaskStatusCheckCondition, te.Status)
	assert.Equal(t, pkg.ServiceResponseTaskComplete, te.Response)
	require.NotNil(t, te.Sense)
	assert.Equal(t, uint8(scsi.SenseIllegalRequest), te.Sense.Key)
	assert.Equal(t, uint8(scsi.ASCInvalidCommand), te.Sense.ASC)
	assert.True(t, task.SenseValid)
	assert.Equal(t, uint64(1), a.Stats().Errors)
}

func TestMissingUnit(t *testing.T) {
	a, _, _ := startAdapter(t, sim.DefaultOptions(), testConfig())

	task := &adapter.Task{Target: 5, CDB: scsi.TestUnitReady()}
	err := a.Execute(context.Background(), task)
	assert.ErrorIs(t, err, pkg.ErrDeliveryFailure)
	assert.Equal(t, pkg.TaskStatusDeviceNotPresent, task.Status)
	assert.Equal(t, pkg.ServiceResponseDeliveryFailure, task.Response)
}

func TestSubmitRejects(t *testing.T) {
	a, h := newAdapter(t, sim.DefaultOptions(), testConfig())

	task := &adapter.Task{CDB: scsi.TestUnitReady()}
	assert.ErrorIs(t, a.Submit(task), pkg.ErrNotRunning)
	assert.Equal(t, pkg.ServiceResponseFunctionRejected, task.Response)

	require.NoError(t, a.Start(context.Background()))
	tests := []struct {
		name string
		task adapter.Task
		want error
	}{
		{"target range", adapter.Task{Target: adapter.MaxTargets, CDB: scsi.TestUnitReady()}, pkg.ErrRejected},
		{"lun range", adapter.Task{LUN: -1, CDB: scsi.TestUnitReady()}, pkg.ErrRejected},
		{"empty cdb", adapter.Task{}, pkg.ErrInvalidParameter},
		{"long cdb", adapter.Task{CDB: make([]byte, 17)}, pkg.ErrInvalidParameter},
		{"no buffer", adapter.Task{CDB: scsi.Read10(0, 1), Length: 512}, pkg.ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := tt.task
			assert.ErrorIs(t, a.Submit(&task), tt.want)
			assert.Equal(t, pkg.ServiceResponseFunctionRejected, task.Response)
		})
	}
	assert.Zero(t, h.Stats().Posted)
	assert.Equal(t, uint64(len(tests)+1), a.Stats().Rejected)
}

func TestTaskTimeoutAndStaleReply(t *testing.T) {
	opts := sim.DefaultOptions()
	opts.HoldReplies = true
	a, h, _ := startAdapter(t, opts, testConfig())

	task := &adapter.Task{CDB: scsi.TestUnitReady(), Timeout: 20 * time.Millisecond}
	err := a.Execute(context.Background(), task)
	assert.ErrorIs(t, err, pkg.ErrTimeout)
	assert.Equal(t, pkg.ServiceResponseTimeout, task.Response)
	assert.Equal(t, pkg.TaskStatusNoStatus, task.Status)

	s := a.Stats()
	assert.Equal(t, uint64(1), s.Abandoned)
	assert.Equal(t, 1, s.TagsInUse, "abandoned task must keep its tag")

	require.Equal(t, 1, h.ReleaseReplies())
	eventually(t, "stale reply", func() bool { return a.Stats().StaleReplies == 1 })
	assert.Zero(t, a.Stats().TagsInUse)
	assert.Zero(t, a.Stats().Completed)
}

func TestStaleReplyLeavesOtherTags(t *testing.T) {
	opts := sim.DefaultOptions()
	opts.HoldReplies = true
	a, h, _ := startAdapter(t, opts, testConfig())

	done := make(chan *adapter.Task, 2)
	notify := func(t *adapter.Task) { done <- t }
	stale := &adapter.Task{CDB: scsi.TestUnitReady(), Timeout: 20 * time.Millisecond, Done: notify}
	live := &adapter.Task{CDB: scsi.TestUnitReady(), Done: notify}
	require.NoError(t, a.Submit(stale))
	require.NoError(t, a.Submit(live))

	select {
	case task := <-done:
		require.Same(t, stale, task)
		assert.ErrorIs(t, task.Err(), pkg.ErrTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout never abandoned the task")
	}
	assert.Equal(t, 2, a.Stats().TagsInUse)

	// only the abandoned task's reply comes back
	require.True(t, h.ReleaseNext())
	eventually(t, "stale reply", func() bool { return a.Stats().StaleReplies == 1 })
	s := a.Stats()
	assert.Equal(t, 1, s.TagsInUse, "stale reply must free only its own tag")
	assert.Zero(t, s.Completed)
	select {
	case task := <-done:
		t.Fatalf("task finished by a reply that was not its own: %+v", task)
	default:
	}

	require.True(t, h.ReleaseNext())
	select {
	case task := <-done:
		require.Same(t, live, task)
		require.NoError(t, task.Err())
		assert.Equal(t, pkg.TaskStatusGood, task.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("pending task not completed")
	}
	s = a.Stats()
	assert.Zero(t, s.TagsInUse)
	assert.Equal(t, uint64(1), s.Completed)
	assert.Equal(t, uint64(1), s.StaleReplies)
}

func TestExecuteCancel(t *testing.T) {
	opts := sim.DefaultOptions()
	opts.HoldReplies = true
	a, _, _ := startAdapter(t, opts, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	task := &adapter.Task{CDB: scsi.TestUnitReady()}
	assert.ErrorIs(t, a.Execute(ctx, task), pkg.ErrTimeout)
	assert.Equal(t, uint64(1), a.Stats().Abandoned)
}

func TestUnknownReply(t *testing.T) {
	a, h, _ := startAdapter(t, sim.DefaultOptions(), testConfig())
	h.InjectReply(0x00001234)
	eventually(t, "unknown reply", func() bool { return a.Stats().UnknownReply == 1 })
}

func TestTagExhaustion(t *testing.T) {
	cfg := testConfig()
	cfg.MaxOutstanding = 2
	opts := sim.DefaultOptions()
	opts.HoldReplies = true
	a, h, _ := startAdapter(t, opts, cfg)

	done := make(chan *adapter.Task, 2)
	for i := 0; i < 2; i++ {
		task := &adapter.Task{CDB: scsi.TestUnitReady(), Done: func(t *adapter.Task) { done <- t }}
		require.NoError(t, a.Submit(task))
	}
	extra := &adapter.Task{CDB: scsi.TestUnitReady()}
	assert.ErrorIs(t, a.Submit(extra), pkg.ErrNoTag)
	assert.Equal(t, pkg.ServiceResponseFunctionRejected, extra.Response)

	h.ReleaseReplies()
	for i := 0; i < 2; i++ {
		select {
		case task := <-done:
			assert.NoError(t, task.Err())
		case <-time.After(2 * time.Second):
			t.Fatal("task not completed")
		}
	}
	assert.NoError(t, a.Submit(extra))
}

func TestTaskManagementRejected(t *testing.T) {
	a, _, _ := startAdapter(t, sim.DefaultOptions(), testConfig())
	assert.Equal(t, pkg.ServiceResponseFunctionRejected, a.AbortTask(0, 0))
	assert.Equal(t, pkg.ServiceResponseFunctionRejected, a.ResetTarget(0))
	assert.Equal(t, pkg.ServiceResponseFunctionRejected, a.ResetLogicalUnit(0, 0))
}

// =============================================================================
// Device Presence
// =============================================================================

func TestDeviceEvents(t *testing.T) {
	a, h := newAdapter(t, sim.DefaultOptions(), testConfig())
	h.Attach(3, 1, sim.NewMemoryVolume(8))

	events := make(chan adapter.DeviceEvent, 16)
	a.SetOnDeviceEvent(func(e adapter.DeviceEvent) { events <- e })

	next := func() adapter.DeviceEvent {
		t.Helper()
		select {
		case e := <-events:
			return e
		case <-time.After(2 * time.Second):
			t.Fatal("no device event")
			return adapter.DeviceEvent{}
		}
	}

	assert.ErrorIs(t, a.Rescan(), pkg.ErrNotRunning)
	require.NoError(t, a.Start(context.Background()))
	assert.Equal(t, adapter.DeviceEvent{Kind: adapter.DeviceArrived, Target: 3, LUN: 1}, next())
	assert.Equal(t, []adapter.DeviceEvent{{Kind: adapter.DeviceArrived, Target: 3, LUN: 1}}, a.Devices())

	h.Attach(4, 0, sim.NewMemoryVolume(8))
	require.NoError(t, a.Rescan())
	assert.Equal(t, adapter.DeviceEvent{Kind: adapter.DeviceArrived, Target: 4, LUN: 0}, next())

	h.Detach(3, 1)
	require.NoError(t, a.Rescan())
	e := next()
	assert.Equal(t, adapter.DeviceDeparted, e.Kind)
	assert.Equal(t, 3, e.Target)

	eventually(t, "confirmed map", func() bool { return a.Stats().Confirmed[3] == 0 })
	assert.Equal(t, uint8(0x01), a.Stats().Confirmed[4])
}

func TestScanTimer(t *testing.T) {
	cfg := testConfig()
	cfg.ScanInterval = 5 * time.Millisecond
	a, _, _ := startAdapter(t, sim.DefaultOptions(), cfg)
	eventually(t, "periodic polls", func() bool { return a.Stats().ConfigPolls >= 3 })
}

// =============================================================================
// Management Client
// =============================================================================

func TestSessionExclusive(t *testing.T) {
	a, _ := newAdapter(t, sim.DefaultOptions(), testConfig())

	s, err := a.Open()
	require.NoError(t, err)
	_, err = a.Open()
	assert.ErrorIs(t, err, pkg.ErrExclusiveAccess)

	assert.ErrorIs(t, s.Send(context.Background(), []byte{1}), pkg.ErrNotRunning)
	info, err := s.Identify()
	require.NoError(t, err)
	assert.Equal(t, "ARC-1220", info.Model)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), pkg.ErrNotOpen)
	_, err = s.Recv(make([]byte, 4), 0)
	assert.ErrorIs(t, err, pkg.ErrNotOpen)

	s2, err := a.Open()
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, s2.ID)
}

func TestSessionSendLimits(t *testing.T) {
	a, _, _ := startAdapter(t, sim.DefaultOptions(), testConfig())
	s, err := a.Open()
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	assert.ErrorIs(t, s.Send(ctx, nil), pkg.ErrInvalidParameter)
	assert.ErrorIs(t, s.Send(ctx, make([]byte, adapter.MessageBufferSize+1)), pkg.ErrTransferTooLarge)
}

func TestBlockedClientReleased(t *testing.T) {
	tests := []struct {
		name string
		halt func(*adapter.Adapter, *adapter.Session) error
		want error
	}{
		{"stop", func(a *adapter.Adapter, _ *adapter.Session) error { return a.Stop() }, pkg.ErrNotRunning},
		{"close adapter", func(a *adapter.Adapter, _ *adapter.Session) error { return a.Close() }, pkg.ErrNotRunning},
		{"close session", func(_ *adapter.Adapter, s *adapter.Session) error { return s.Close() }, pkg.ErrNotOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// the adapter never drains the message channel
			opts := sim.DefaultOptions()
			opts.StallInbound = true
			a, _, _ := startAdapter(t, opts, testConfig())
			s, err := a.Open()
			require.NoError(t, err)
			ctx := context.Background()

			require.NoError(t, s.Send(ctx, make([]byte, adapter.MessageBufferSize)))
			sent := make(chan error, 1)
			go func() { sent <- s.Send(ctx, make([]byte, 200)) }()
			received := make(chan error, 1)
			go func() {
				_, err := s.Recv(make([]byte, 16), 5*time.Second)
				received <- err
			}()
			time.Sleep(20 * time.Millisecond)

			require.NoError(t, tt.halt(a, s))
			for what, ch := range map[string]chan error{"send": sent, "recv": received} {
				select {
				case err := <-ch:
					assert.ErrorIs(t, err, tt.want, what)
				case <-time.After(2 * time.Second):
					t.Fatalf("%s still blocked", what)
				}
			}
		})
	}
}

func TestAdminIdentify(t *testing.T) {
	a, _, _ := startAdapter(t, sim.DefaultOptions(), testConfig())
	s, err := a.Open()
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c := admin.NewClient(s)
	c.Poll = 10 * time.Millisecond

	name, err := c.Identify(ctx)
	require.NoError(t, err)
	assert.Equal(t, sim.IdentifyString, name)

	r, err := c.Do(ctx, admin.CmdCreateRaidSet, nil)
	require.NoError(t, err)
	assert.True(t, r.IsStatus())
	assert.ErrorIs(t, r.Err(), pkg.ErrNotSupported)
}

func TestMessageChannelOverflow(t *testing.T) {
	opts := sim.DefaultOptions()
	opts.Echo = true
	a, _, _ := startAdapter(t, opts, testConfig())
	s, err := a.Open()
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	first := bytes.Repeat([]byte{0xA5}, adapter.MessageBufferSize)
	require.NoError(t, s.Send(ctx, first))
	eventually(t, "outbound ring full", func() bool {
		return a.Stats().MessageQueue.OutboundBytes == adapter.MessageBufferSize
	})

	second := bytes.Repeat([]byte{0x5A}, adapter.IoctlDataSize)
	require.NoError(t, s.Send(ctx, second))
	eventually(t, "adapter stall", func() bool {
		return a.Stats().MessageQueue.OutboundStalls == 1
	})

	got := make([]byte, adapter.MessageBufferSize)
	n, err := s.Recv(got, 0)
	require.NoError(t, err)
	require.Equal(t, adapter.MessageBufferSize, n)
	assert.Equal(t, first, got)

	// the held chunk comes across on the next read
	n, err = s.Recv(got, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, second, got[:n])

	n, err = s.Recv(got, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecvTimeout(t *testing.T) {
	a, _, _ := startAdapter(t, sim.DefaultOptions(), testConfig())
	s, err := a.Open()
	require.NoError(t, err)
	defer s.Close()

	start := time.Now()
	n, err := s.Recv(make([]byte, 16), 15*time.Millisecond)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestTaskErrorUnwrap(t *testing.T) {
	err := error(&adapter.TaskError{Status: pkg.TaskStatusNoStatus, Response: pkg.ServiceResponseTimeout})
	assert.True(t, errors.Is(err, pkg.ErrTimeout))
	assert.Contains(t, err.Error(), "timeout")
}
