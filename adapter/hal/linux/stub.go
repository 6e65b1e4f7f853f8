//go:build !linux

package linux

import (
	"github.com/ardnew/arcmsr/adapter/hal"
	"github.com/ardnew/arcmsr/pkg"
)

// Open is only available on Linux.
func Open(opts Options) (hal.HAL, error) {
	return nil, pkg.ErrNotSupported
}
