package wasmbridge

import "fmt"

// Region describes a slice of linear memory holding one value.
// Offset is a byte index, Length is bytes currently used, Capacity is bytes
// available before the guest must signal an error. Capacity is supplied by
// the caller side; Length is produced by whichever side last wrote the value.
type Region struct {
	Offset   uint32
	Length   uint32
	Capacity uint32
}

// Validate checks the Region invariants: Length never exceeds Capacity and
// Offset+Capacity does not overflow the 32-bit address space.
func (r Region) Validate() error {
	if r.Length > r.Capacity {
		return fmt.Errorf("region length %d exceeds capacity %d", r.Length, r.Capacity)
	}
	if uint64(r.Offset)+uint64(r.Capacity) > 1<<32 {
		return fmt.Errorf("region [%d, %d) overflows 32-bit address space", r.Offset, uint64(r.Offset)+uint64(r.Capacity))
	}
	return nil
}

// End returns the first byte offset past the used portion of the region.
func (r Region) End() uint32 {
	return r.Offset + r.Length
}

// WithLength returns a copy of the region with Length set to n.
func (r Region) WithLength(n uint32) Region {
	r.Length = n
	return r
}

func (r Region) String() string {
	return fmt.Sprintf("region{off=%d len=%d cap=%d}", r.Offset, r.Length, r.Capacity)
}

// ResultCode is the signed integer returned by a guest export. Non-negative
// values carry the output byte length; negative values are error sentinels
// whose meaning is scoped to the function that returned them.
type ResultCode int32

// IsError reports whether the code is a negative error sentinel.
func (c ResultCode) IsError() bool {
	return c < 0
}

// Length returns the output byte length a successful code carries.
// Only meaningful when IsError is false.
func (c ResultCode) Length() uint32 {
	if c < 0 {
		return 0
	}
	return uint32(c)
}
