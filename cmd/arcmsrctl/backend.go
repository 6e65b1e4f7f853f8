package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ardnew/arcmsr/adapter"
	"github.com/ardnew/arcmsr/adapter/hal"
	"github.com/ardnew/arcmsr/adapter/hal/linux"
	"github.com/ardnew/arcmsr/adapter/hal/sim"
	"github.com/ardnew/arcmsr/internal/config"
)

// defaultSimBlocks sizes the unit attached when the sim backend has no
// volumes configured.
const defaultSimBlocks = 2048

// controller is an initialized adapter plus whatever backs its HAL.
type controller struct {
	*adapter.Adapter

	hal     hal.HAL
	sim     *sim.HAL // nil unless the sim backend is in use
	closers []io.Closer
}

// openController initializes the configured adapter, and starts it when
// start is set.
func openController(ctx context.Context, start bool) (*controller, error) {
	c := &controller{}
	h, err := c.openHAL()
	if err != nil {
		c.closeBacking()
		return nil, err
	}

	c.hal = h
	c.Adapter = adapter.New(h, cfg.Adapter())
	if err := c.Init(ctx); err != nil {
		c.Adapter.Close()
		c.closeBacking()
		return nil, fmt.Errorf("init %s: %w", h, err)
	}
	if start {
		if err := c.Start(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *controller) openHAL() (hal.HAL, error) {
	switch cfg.Backend {
	case config.BackendLinux:
		return linux.Open(linux.Options{Address: cfg.Device, DevRoot: cfg.UIO})
	case config.BackendSim:
		return c.openSim()
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func (c *controller) openSim() (hal.HAL, error) {
	opts := sim.DefaultOptions()
	if cfg.Sim.Model != "" {
		opts.Model = cfg.Sim.Model
	}
	opts.Echo = cfg.Sim.Echo
	h := sim.New(opts)

	vols := cfg.Sim.Volumes
	if len(vols) == 0 {
		vols = []config.VolumeConfig{{Blocks: defaultSimBlocks}}
	}
	for _, vc := range vols {
		var v sim.Volume
		if vc.File != "" {
			fv, err := sim.OpenFileVolume(vc.File, vc.ReadOnly)
			if err != nil {
				return nil, err
			}
			c.closers = append(c.closers, fv)
			v = fv
		} else {
			mv := sim.NewMemoryVolume(vc.Blocks)
			mv.SetReadOnly(vc.ReadOnly)
			v = mv
		}
		h.Attach(vc.Target, vc.LUN, v)
	}
	c.sim = h
	return h, nil
}

// Close stops and releases the adapter and its backing files.
func (c *controller) Close() error {
	err := c.Adapter.Close()
	return errors.Join(err, c.closeBacking())
}

func (c *controller) closeBacking() error {
	var errs []error
	for _, cl := range c.closers {
		errs = append(errs, cl.Close())
	}
	c.closers = nil
	return errors.Join(errs...)
}
