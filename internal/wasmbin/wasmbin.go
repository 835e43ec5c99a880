// Package wasmbin assembles small WebAssembly 1.0 binaries used as guest
// fixtures in tests. The modules are emitted byte by byte so the test suite
// has no dependency on an external toolchain or checked-in .wasm artifacts.
package wasmbin

// Section ids.
const (
	secType   = 0x01
	secImport = 0x02
	secFunc   = 0x03
	secMemory = 0x05
	secGlobal = 0x06
	secExport = 0x07
	secCode   = 0x0A
)

// Value and export types.
const (
	valI32 = 0x7F

	exportFunc   = 0x00
	exportMemory = 0x02
)

// Opcodes.
const (
	opBlock      = 0x02
	opLoop       = 0x03
	opIf         = 0x04
	opEnd        = 0x0B
	opBr         = 0x0C
	opBrIf       = 0x0D
	opReturn     = 0x0F
	opCall       = 0x10
	opLocalGet   = 0x20
	opLocalSet   = 0x21
	opGlobalGet  = 0x23
	opGlobalSet  = 0x24
	opI32Load8U  = 0x2D
	opI32Store8  = 0x3A
	opMemoryGrow = 0x40
	opI32Const   = 0x41
	opI32GtU     = 0x4B
	opI32GeU     = 0x4F
	opI32Add     = 0x6A
	opI32Shl     = 0x74

	blockVoid = 0x40
)

var header = []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

// AppendUleb128 appends v in unsigned LEB128 form.
func AppendUleb128(dst []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			return dst
		}
	}
}

// AppendSleb128 appends v in signed LEB128 form.
func AppendSleb128(dst []byte, v int32) []byte {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

func section(id byte, payload []byte) []byte {
	out := AppendUleb128([]byte{id}, uint32(len(payload)))
	return append(out, payload...)
}

// vec prefixes the concatenation of items with their count.
func vec(items ...[]byte) []byte {
	out := AppendUleb128(nil, uint32(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func name(s string) []byte {
	return append(AppendUleb128(nil, uint32(len(s))), s...)
}

func funcType(params, results []byte) []byte {
	out := []byte{0x60}
	out = AppendUleb128(out, uint32(len(params)))
	out = append(out, params...)
	out = AppendUleb128(out, uint32(len(results)))
	return append(out, results...)
}

func limits(min, max uint32) []byte {
	if max == 0 {
		return AppendUleb128([]byte{0x00}, min)
	}
	out := AppendUleb128([]byte{0x01}, min)
	return AppendUleb128(out, max)
}

func export(nm string, kind byte, index uint32) []byte {
	out := append(name(nm), kind)
	return AppendUleb128(out, index)
}

func module(sections ...[]byte) []byte {
	out := append([]byte(nil), header...)
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

// code accumulates the instruction stream of one function body.
type code struct {
	buf []byte
}

func (c *code) raw(b ...byte)       { c.buf = append(c.buf, b...) }
func (c *code) localGet(i uint32)   { c.buf = AppendUleb128(append(c.buf, opLocalGet), i) }
func (c *code) localSet(i uint32)   { c.buf = AppendUleb128(append(c.buf, opLocalSet), i) }
func (c *code) globalGet(i uint32)  { c.buf = AppendUleb128(append(c.buf, opGlobalGet), i) }
func (c *code) globalSet(i uint32)  { c.buf = AppendUleb128(append(c.buf, opGlobalSet), i) }
func (c *code) i32Const(v int32)    { c.buf = AppendSleb128(append(c.buf, opI32Const), v) }
func (c *code) call(i uint32)       { c.buf = AppendUleb128(append(c.buf, opCall), i) }
func (c *code) load8()              { c.raw(opI32Load8U, 0x00, 0x00) }
func (c *code) store8()             { c.raw(opI32Store8, 0x00, 0x00) }
func (c *code) memoryGrow()         { c.raw(opMemoryGrow, 0x00) }

// body finalizes the function: locals declaration, instructions, end opcode,
// all behind the body size prefix. extraI32 is the number of scratch i32
// locals beyond the parameters.
func (c *code) body(extraI32 uint32) []byte {
	var inner []byte
	if extraI32 == 0 {
		inner = AppendUleb128(nil, 0)
	} else {
		inner = AppendUleb128(nil, 1)
		inner = AppendUleb128(inner, extraI32)
		inner = append(inner, valI32)
	}
	inner = append(inner, c.buf...)
	inner = append(inner, opEnd)
	return append(AppendUleb128(nil, uint32(len(inner))), inner...)
}
