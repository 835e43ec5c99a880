package codec

import (
	"unicode/utf8"

	"go.uber.org/zap"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/errors"
)

// EncodeText writes s as UTF-8 bytes at offset and returns the region
// describing it. The capacity check happens before any write: on failure
// memory is untouched. The returned Length is the byte count, which differs
// from the rune count for non-ASCII text; capacity math must use it.
func (c *Codec) EncodeText(mem wasmbridge.Memory, offset, capacity uint32, s string) (wasmbridge.Region, error) {
	if !utf8.ValidString(s) {
		return wasmbridge.Region{}, errors.EncodingMismatch(errors.PhaseEncode, []byte(s))
	}

	size := len(s)
	if c.overLimit(size) {
		return wasmbridge.Region{}, errors.SizeLimit(errors.PhaseEncode, uint32(size), c.maxSize)
	}
	if uint32(size) > capacity {
		return wasmbridge.Region{}, errors.InsufficientCapacity(errors.PhaseEncode, uint32(size), capacity)
	}

	region := wasmbridge.Region{Offset: offset, Length: uint32(size), Capacity: capacity}
	if err := region.Validate(); err != nil {
		return wasmbridge.Region{}, errors.InvalidRegion(errors.PhaseEncode, err)
	}

	if err := mem.Write(offset, []byte(s)); err != nil {
		return wasmbridge.Region{}, err
	}

	c.log.Debug("encoded text",
		zap.Uint32("offset", offset),
		zap.Uint32("bytes", uint32(size)),
		zap.Int("runes", utf8.RuneCountInString(s)))
	return region, nil
}

// DecodeText reads exactly region.Length bytes and decodes them as UTF-8.
func (c *Codec) DecodeText(mem wasmbridge.Memory, region wasmbridge.Region) (string, error) {
	if err := region.Validate(); err != nil {
		return "", errors.InvalidRegion(errors.PhaseDecode, err)
	}

	data, err := mem.Read(region.Offset, region.Length)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.EncodingMismatch(errors.PhaseDecode, data)
	}

	// string() copies; the view from Read must not outlive this call.
	return string(data), nil
}
