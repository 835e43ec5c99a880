package engine

import (
	"github.com/tetratelabs/wazero/api"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/errors"
)

// PageSize is the linear memory growth granule.
const PageSize = 65536

// wazeroMemory adapts wazero memory to wasmbridge.Memory. Every call
// re-derives the view from the live api.Memory, so accesses made after a
// guest call observe grown memory; slices returned by Read must not be
// held across a call into the guest.
type wazeroMemory struct {
	mem api.Memory
}

func (m *wazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseDecode, offset, length, m.mem.Size())
	}
	return data, nil
}

func (m *wazeroMemory) Write(offset uint32, data []byte) error {
	if ok := m.mem.Write(offset, data); !ok {
		return errors.OutOfBounds(errors.PhaseEncode, offset, uint32(len(data)), m.mem.Size())
	}
	return nil
}

func (m *wazeroMemory) ReadU8(offset uint32) (uint8, error) {
	data, err := m.Read(offset, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func (m *wazeroMemory) ReadU16(offset uint32) (uint16, error) {
	val, ok := m.mem.ReadUint16Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseDecode, offset, 2, m.mem.Size())
	}
	return val, nil
}

func (m *wazeroMemory) ReadU32(offset uint32) (uint32, error) {
	val, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseDecode, offset, 4, m.mem.Size())
	}
	return val, nil
}

func (m *wazeroMemory) ReadU64(offset uint32) (uint64, error) {
	val, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseDecode, offset, 8, m.mem.Size())
	}
	return val, nil
}

func (m *wazeroMemory) WriteU8(offset uint32, value uint8) error {
	return m.Write(offset, []byte{value})
}

func (m *wazeroMemory) WriteU16(offset uint32, value uint16) error {
	if ok := m.mem.WriteUint16Le(offset, value); !ok {
		return errors.OutOfBounds(errors.PhaseEncode, offset, 2, m.mem.Size())
	}
	return nil
}

func (m *wazeroMemory) WriteU32(offset uint32, value uint32) error {
	if ok := m.mem.WriteUint32Le(offset, value); !ok {
		return errors.OutOfBounds(errors.PhaseEncode, offset, 4, m.mem.Size())
	}
	return nil
}

func (m *wazeroMemory) WriteU64(offset uint32, value uint64) error {
	if ok := m.mem.WriteUint64Le(offset, value); !ok {
		return errors.OutOfBounds(errors.PhaseEncode, offset, 8, m.mem.Size())
	}
	return nil
}

func (m *wazeroMemory) Size() uint32 {
	return m.mem.Size()
}

// Grow grows memory by delta pages, returning the previous page count.
func (m *wazeroMemory) Grow(deltaPages uint32) (uint32, error) {
	prev, ok := m.mem.Grow(deltaPages)
	if !ok {
		return 0, errors.GrowthFailed(deltaPages, m.mem.Size()/PageSize)
	}
	return prev, nil
}

// Compile-time check that wazeroMemory implements Memory and MemorySizer
var _ wasmbridge.Memory = (*wazeroMemory)(nil)
var _ wasmbridge.MemorySizer = (*wazeroMemory)(nil)
