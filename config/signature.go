package config

import (
	"strconv"

	"go.bytecodealliance.org/wit"

	wasmbridge "github.com/wippyai/wasm-bridge"
	"github.com/wippyai/wasm-bridge/bridge"
	"github.com/wippyai/wasm-bridge/errors"
)

var scalarTypes = map[string]wit.Type{
	"bool": wit.Bool{},
	"u8":   wit.U8{},
	"s8":   wit.S8{},
	"u16":  wit.U16{},
	"s16":  wit.S16{},
	"u32":  wit.U32{},
	"s32":  wit.S32{},
	"u64":  wit.U64{},
	"s64":  wit.S64{},
	"f32":  wit.F32{},
	"f64":  wit.F64{},
	"char": wit.Char{},
}

// Signature converts the declaration to a bridge signature.
func (o OperationConfig) Signature() (bridge.Signature, error) {
	switch o.Kind {
	case "numeric":
		params, err := scalars(o.Name, o.Params)
		if err != nil {
			return bridge.Signature{}, err
		}
		results, err := scalars(o.Name, o.Results)
		if err != nil {
			return bridge.Signature{}, err
		}
		return bridge.NumericSignature(o.Name, params, results), nil
	case "text":
		sig := bridge.TextSignature(o.Name)
		if o.Codes != nil {
			space, err := codeSpace(o.Name, o.Codes)
			if err != nil {
				return bridge.Signature{}, err
			}
			sig = sig.WithCodes(space)
		}
		return sig, nil
	case "structured":
		sig := bridge.StructuredSignature(o.Name)
		if o.Codes != nil {
			space, err := codeSpace(o.Name, o.Codes)
			if err != nil {
				return bridge.Signature{}, err
			}
			sig = sig.WithCodes(space)
		}
		return sig, nil
	default:
		return bridge.Signature{}, errors.InvalidInput(errors.PhaseConfig,
			"operation %q has unknown kind %q", o.Name, o.Kind)
	}
}

// Signatures converts every declared operation, failing on the first bad one.
func (c *BridgeConfig) Signatures() ([]bridge.Signature, error) {
	sigs := make([]bridge.Signature, 0, len(c.Operations))
	for _, op := range c.Operations {
		sig, err := op.Signature()
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

func scalars(op string, names []string) ([]wit.Type, error) {
	types := make([]wit.Type, 0, len(names))
	for _, n := range names {
		t, ok := scalarTypes[n]
		if !ok {
			return nil, errors.InvalidInput(errors.PhaseConfig,
				"operation %q uses unknown scalar type %q", op, n)
		}
		types = append(types, t)
	}
	return types, nil
}

func codeSpace(op string, codes map[string]string) (bridge.CodeSpace, error) {
	space := make(bridge.CodeSpace, len(codes))
	for key, kind := range codes {
		code, err := strconv.ParseInt(key, 10, 32)
		if err != nil {
			return nil, errors.InvalidInput(errors.PhaseConfig,
				"operation %q has non-integer code key %q", op, key)
		}
		if code >= 0 {
			return nil, errors.InvalidInput(errors.PhaseConfig,
				"operation %q maps non-negative code %d; error codes are negative", op, code)
		}
		if !errors.KnownKind(errors.Kind(kind)) {
			return nil, errors.InvalidInput(errors.PhaseConfig,
				"operation %q maps code %d to unknown error kind %q", op, code, kind)
		}
		space[wasmbridge.ResultCode(code)] = errors.Kind(kind)
	}
	return space, nil
}
