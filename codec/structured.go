package codec

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/errors"
)

// EncodeStructured serializes an arbitrary tree of scalars, sequences and
// mappings into JSON text at offset. Size-limit and capacity checks happen
// before any write.
func (c *Codec) EncodeStructured(mem wasmbridge.Memory, offset, capacity uint32, v any) (wasmbridge.Region, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return wasmbridge.Region{}, errors.SerializationFailure(errors.PhaseEncode, err, "value has no JSON representation")
	}

	size := len(data)
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

	if err := mem.Write(offset, data); err != nil {
		return wasmbridge.Region{}, err
	}

	c.log.Debug("encoded structured value",
		zap.Uint32("offset", offset),
		zap.Uint32("bytes", uint32(size)))
	return region, nil
}

// DecodeStructured reads region.Length bytes and unmarshals them into out,
// which must be a non-nil pointer. Bytes that do not parse as structured
// text fail with a parse-failure error.
func (c *Codec) DecodeStructured(mem wasmbridge.Memory, region wasmbridge.Region, out any) error {
	data, err := c.readStructured(mem, region)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.New(errors.PhaseDecode, errors.KindParseFailure).
			Cause(err).
			Detail("decode into %T", out).
			Build()
	}
	return nil
}

// DecodeStructuredAny decodes a region into the generic tree shape:
// map[string]any, []any, string, float64, bool, nil.
func (c *Codec) DecodeStructuredAny(mem wasmbridge.Memory, region wasmbridge.Region) (any, error) {
	var v any
	if err := c.DecodeStructured(mem, region, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (c *Codec) readStructured(mem wasmbridge.Memory, region wasmbridge.Region) ([]byte, error) {
	if err := region.Validate(); err != nil {
		return nil, errors.InvalidRegion(errors.PhaseDecode, err)
	}

	data, err := mem.Read(region.Offset, region.Length)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.ParseFailure(errors.PhaseDecode, "bytes are not valid structured text")
	}
	return data, nil
}
