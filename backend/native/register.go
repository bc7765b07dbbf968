package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuimage/backend"
	"github.com/gogpu/gpuimage/gpucore"
)

func init() {
	backend.Register(backend.NameNative, func() (gpucore.Device, error) {
		return Open()
	})
}

// preferred lists the HAL backends Open tries, in order. The CPU backends
// registered as BackendEmpty are never picked.
var preferred = []gputypes.Backend{
	gputypes.BackendVulkan,
	gputypes.BackendMetal,
	gputypes.BackendDX12,
	gputypes.BackendGL,
}

// Open opens a device on the first registered HAL backend that exposes a
// GPU adapter. Discrete and integrated GPUs are preferred over other
// adapters of the same backend. The returned Device owns the HAL device.
func Open(opts ...Option) (*Device, error) {
	var errs []error
	for _, variant := range preferred {
		b, ok := hal.GetBackend(variant)
		if !ok {
			continue
		}
		d, err := openBackend(b, opts)
		if err != nil {
			backend.Logger().Debug("native: backend unusable", "backend", variant.String(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", variant, err))
			continue
		}
		return d, nil
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no HAL backend registered", backend.ErrBackendNotAvailable)
	}
	return nil, fmt.Errorf("%w: %w", ErrNoGPU, errors.Join(errs...))
}

func openBackend(b hal.Backend, opts []Option) (*Device, error) {
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoGPU
	}
	selected := selectAdapter(adapters)

	open, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}
	d, err := New(open.Device, open.Queue, opts...)
	if err != nil {
		open.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.owned = func() {
		open.Device.Destroy()
		instance.Destroy()
	}
	d.log().Info("native: device opened",
		"backend", b.Variant().String(),
		"adapter", selected.Info.Name,
		"type", selected.Info.DeviceType.String())
	return d, nil
}

// selectAdapter prefers hardware GPUs and falls back to the first adapter.
func selectAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	for i := range adapters {
		switch adapters[i].Info.DeviceType {
		case gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU:
			return &adapters[i]
		}
	}
	return &adapters[0]
}
