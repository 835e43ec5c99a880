package wasmbin

// BridgeGuest returns a module exporting the fixtures the call bridge tests
// drive end to end:
//
//	memory                         1 page min, 4 pages max
//	double_text(off, len, cap) i32 appends a copy of the input bytes after
//	                               the input, returns 2*len, or -1 when
//	                               2*len exceeds cap
//	echo(off, len, cap) i32        returns len, or -3 when len exceeds cap
//	grow(pages) i32                memory.grow, returns the old page count
//	                               or -1 on failure
//	alloc(size) i32                bump allocator starting at 4096
//	free(ptr)                      no-op
func BridgeGuest() []byte {
	var dt code
	dt.localGet(1)
	dt.i32Const(1)
	dt.raw(opI32Shl)
	dt.localGet(2)
	dt.raw(opI32GtU)
	dt.raw(opIf, blockVoid)
	dt.i32Const(-1)
	dt.raw(opReturn)
	dt.raw(opEnd)
	dt.raw(opBlock, blockVoid)
	dt.raw(opLoop, blockVoid)
	dt.localGet(3)
	dt.localGet(1)
	dt.raw(opI32GeU)
	dt.raw(opBrIf, 0x01)
	dt.localGet(0)
	dt.localGet(1)
	dt.raw(opI32Add)
	dt.localGet(3)
	dt.raw(opI32Add)
	dt.localGet(0)
	dt.localGet(3)
	dt.raw(opI32Add)
	dt.load8()
	dt.store8()
	dt.localGet(3)
	dt.i32Const(1)
	dt.raw(opI32Add)
	dt.localSet(3)
	dt.raw(opBr, 0x00)
	dt.raw(opEnd)
	dt.raw(opEnd)
	dt.localGet(1)
	dt.i32Const(1)
	dt.raw(opI32Shl)

	var echo code
	echo.localGet(1)
	echo.localGet(2)
	echo.raw(opI32GtU)
	echo.raw(opIf, blockVoid)
	echo.i32Const(-3)
	echo.raw(opReturn)
	echo.raw(opEnd)
	echo.localGet(1)

	var grow code
	grow.localGet(0)
	grow.memoryGrow()

	var alloc code
	alloc.globalGet(0)
	alloc.globalGet(0)
	alloc.localGet(0)
	alloc.raw(opI32Add)
	alloc.globalSet(0)

	var free code

	heapBase := append([]byte{valI32, 0x01}, AppendSleb128([]byte{opI32Const}, 4096)...)
	heapBase = append(heapBase, opEnd)

	return module(
		section(secType, vec(
			funcType([]byte{valI32, valI32, valI32}, []byte{valI32}),
			funcType([]byte{valI32}, []byte{valI32}),
			funcType([]byte{valI32}, nil),
		)),
		section(secFunc, vec([]byte{0}, []byte{0}, []byte{1}, []byte{1}, []byte{2})),
		section(secMemory, vec(limits(1, 4))),
		section(secGlobal, vec(heapBase)),
		section(secExport, vec(
			export("memory", exportMemory, 0),
			export("double_text", exportFunc, 0),
			export("echo", exportFunc, 1),
			export("grow", exportFunc, 2),
			export("alloc", exportFunc, 3),
			export("free", exportFunc, 4),
		)),
		section(secCode, vec(dt.body(1), echo.body(0), grow.body(0), alloc.body(0), free.body(0))),
	)
}

// HostCallGuest returns a module importing env.print(i32) and exporting
// sum_print(a, b), which computes a+b and hands the result to the host.
func HostCallGuest() []byte {
	var sum code
	sum.localGet(0)
	sum.localGet(1)
	sum.raw(opI32Add)
	sum.call(0)

	importPrint := append(name("env"), name("print")...)
	importPrint = append(importPrint, exportFunc, 0x00)

	return module(
		section(secType, vec(
			funcType([]byte{valI32}, nil),
			funcType([]byte{valI32, valI32}, nil),
		)),
		section(secImport, vec(importPrint)),
		section(secFunc, vec([]byte{1})),
		section(secMemory, vec(limits(1, 1))),
		section(secExport, vec(
			export("memory", exportMemory, 0),
			export("sum_print", exportFunc, 1),
		)),
		section(secCode, vec(sum.body(0))),
	)
}

// MemoryImportGuest returns a module that imports its linear memory from the
// named module instead of declaring one. It exports poke(off, val) and
// peek(off) for byte-level access so tests can observe sharing.
func MemoryImportGuest(memModule string) []byte {
	var poke code
	poke.localGet(0)
	poke.localGet(1)
	poke.store8()

	var peek code
	peek.localGet(0)
	peek.load8()

	importMem := append(name(memModule), name("memory")...)
	importMem = append(importMem, exportMemory)
	importMem = append(importMem, limits(1, 0)...)

	return module(
		section(secType, vec(
			funcType([]byte{valI32, valI32}, nil),
			funcType([]byte{valI32}, []byte{valI32}),
		)),
		section(secImport, vec(importMem)),
		section(secFunc, vec([]byte{0}, []byte{1})),
		section(secExport, vec(
			export("poke", exportFunc, 0),
			export("peek", exportFunc, 1),
		)),
		section(secCode, vec(poke.body(0), peek.body(0))),
	)
}
