package bridge

import (
	"context"
	goerrors "errors"
	"strings"
	"testing"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-bridge/engine"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/internal/wasmbin"
)

// newGuest instantiates the test guest on a real runtime.
func newGuest(t *testing.T) *engine.Instance {
	t.Helper()
	ctx := context.Background()

	eng, err := engine.New(ctx, nil)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close(ctx) })

	mod, err := eng.LoadModule(ctx, wasmbin.BridgeGuest())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	t.Cleanup(func() { _ = inst.Close(ctx) })
	return inst
}

func TestCallText_EndToEnd(t *testing.T) {
	inst := newGuest(t)
	b, err := New(inst)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Define(TextSignature("double_text")); err != nil {
		t.Fatalf("define: %v", err)
	}

	out, err := b.CallText(context.Background(), "double_text", "abc")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if out != "abcabc" {
		t.Errorf("double_text = %q, want %q", out, "abcabc")
	}
}

func TestCallText_MultibyteInput(t *testing.T) {
	inst := newGuest(t)
	b, _ := New(inst)
	if err := b.Define(TextSignature("double_text")); err != nil {
		t.Fatal(err)
	}

	const in = "Hello 🙋 World!" // 17 bytes
	out, err := b.CallText(context.Background(), "double_text", in)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if out != in+in {
		t.Errorf("double_text = %q", out)
	}
	if len(out) != 34 {
		t.Errorf("output length = %d, want 34", len(out))
	}
}

func TestCallText_GuestReportsCapacity(t *testing.T) {
	inst := newGuest(t)
	b, _ := New(inst)
	if err := b.Define(TextSignature("double_text")); err != nil {
		t.Fatal(err)
	}

	const in = "Hello 🙋 World!" // needs 34 bytes doubled

	t.Run("exact capacity succeeds", func(t *testing.T) {
		s, err := b.Session("double_text")
		if err != nil {
			t.Fatal(err)
		}
		defer s.Close()

		if err := s.Reserve(34); err != nil {
			t.Fatal(err)
		}
		if err := s.EncodeText(in); err != nil {
			t.Fatalf("encode: %v", err)
		}
		if err := s.Invoke(context.Background()); err != nil {
			t.Fatalf("invoke: %v", err)
		}
		out, err := s.DecodeText()
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out != in+in {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("one byte short maps to insufficient capacity", func(t *testing.T) {
		s, err := b.Session("double_text")
		if err != nil {
			t.Fatal(err)
		}
		defer s.Close()

		if err := s.Reserve(33); err != nil {
			t.Fatal(err)
		}
		if err := s.EncodeText(in); err != nil {
			t.Fatalf("encode: %v", err)
		}
		err = s.Invoke(context.Background())
		if !goerrors.Is(err, &errors.Error{Phase: errors.PhaseInvoke, Kind: errors.KindInsufficientCapacity}) {
			t.Fatalf("want insufficient_capacity, got %v", err)
		}
		if !strings.Contains(err.Error(), "double_text") {
			t.Errorf("error should name the operation: %v", err)
		}
		if !strings.Contains(err.Error(), "-1") {
			t.Errorf("error should carry the raw code: %v", err)
		}
		if s.Result() != -1 {
			t.Errorf("Result = %d, want -1", s.Result())
		}
	})
}

func TestCallText_UnknownCode(t *testing.T) {
	inst := newGuest(t)
	b, _ := New(inst)
	// Empty code space: the guest's -1 has no declared meaning.
	if err := b.Define(TextSignature("double_text").WithCodes(CodeSpace{})); err != nil {
		t.Fatal(err)
	}

	s, err := b.Session("double_text")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Reserve(5); err != nil {
		t.Fatal(err)
	}
	if err := s.EncodeText("abc"); err != nil {
		t.Fatal(err)
	}
	err = s.Invoke(context.Background())
	if !goerrors.Is(err, &errors.Error{Phase: errors.PhaseInvoke, Kind: errors.KindUnknownCode}) {
		t.Fatalf("want unknown_code, got %v", err)
	}
}

func TestCallStructured_EndToEnd(t *testing.T) {
	inst := newGuest(t)
	b, _ := New(inst)
	// echo returns its input bytes unchanged, which makes it a JSON echo.
	if err := b.Define(StructuredSignature("echo")); err != nil {
		t.Fatal(err)
	}

	type record struct {
		Name string `json:"name"`
		ID   int    `json:"id"`
	}
	in := []record{{Name: "John", ID: 1}, {Name: "Jane", ID: 2}}

	var out []record
	if err := b.CallStructured(context.Background(), "echo", in, &out); err != nil {
		t.Fatalf("call: %v", err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Errorf("echo = %+v, want %+v", out, in)
	}
}

func TestCallStructured_AnyTree(t *testing.T) {
	inst := newGuest(t)
	b, _ := New(inst)
	if err := b.Define(StructuredSignature("echo")); err != nil {
		t.Fatal(err)
	}

	out, err := b.CallStructuredAny(context.Background(), "echo",
		map[string]any{"op": "noop", "args": []any{float64(1), float64(2)}})
	if err != nil {
		t.Fatal(err)
	}
	m, ok := out.(map[string]any)
	if !ok || m["op"] != "noop" {
		t.Errorf("echo tree = %#v", out)
	}
}

func TestCallNumeric_Grow(t *testing.T) {
	inst := newGuest(t)
	b, _ := New(inst)
	if err := b.Define(NumericSignature("grow",
		[]wit.Type{wit.U32{}}, []wit.Type{wit.S32{}})); err != nil {
		t.Fatal(err)
	}

	before := inst.MemorySize()
	results, err := b.CallNumeric(context.Background(), "grow", 1)
	if err != nil {
		t.Fatalf("grow: %v", err)
	}
	if int32(results[0]) != int32(before/engine.PageSize) {
		t.Errorf("grow returned %d, want old page count %d", int32(results[0]), before/engine.PageSize)
	}
	if got := inst.MemorySize(); got != before+engine.PageSize {
		t.Errorf("memory size = %d, want %d", got, before+engine.PageSize)
	}

	// Accessors re-derive the view, so the grown area is addressable.
	if err := inst.Memory().WriteU32(before, 0xDEADBEEF); err != nil {
		t.Fatalf("write past old bound: %v", err)
	}
	v, err := inst.Memory().ReadU32(before)
	if err != nil || v != 0xDEADBEEF {
		t.Errorf("read back = %x, %v", v, err)
	}
}

func TestCallNumeric_ArityChecked(t *testing.T) {
	inst := newGuest(t)
	b, _ := New(inst)
	if err := b.Define(NumericSignature("grow",
		[]wit.Type{wit.U32{}}, []wit.Type{wit.S32{}})); err != nil {
		t.Fatal(err)
	}

	_, err := b.CallNumeric(context.Background(), "grow", 1, 2)
	if !goerrors.Is(err, &errors.Error{Phase: errors.PhaseInvoke, Kind: errors.KindInvalidInput}) {
		t.Fatalf("want invalid_input on arity mismatch, got %v", err)
	}
}

func TestDefine_MissingExport(t *testing.T) {
	inst := newGuest(t)
	b, _ := New(inst)
	err := b.Define(TextSignature("does_not_exist"))
	if !goerrors.Is(err, &errors.Error{Phase: errors.PhaseInvoke, Kind: errors.KindNotFound}) {
		t.Fatalf("want not_found at define time, got %v", err)
	}
}

func TestMemoryOutsideRegionUntouched(t *testing.T) {
	inst := newGuest(t)
	b, err := New(inst, WithScratchRegion(0, 64))
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Define(TextSignature("double_text")); err != nil {
		t.Fatal(err)
	}

	sentinel := []byte("untouchable-guest-state")
	const sentinelAt = 1024
	if err := inst.Memory().Write(sentinelAt, sentinel); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 8; i++ {
		if _, err := b.CallText(context.Background(), "double_text", "payload"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	got, err := inst.Memory().Read(sentinelAt, uint32(len(sentinel)))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(sentinel) {
		t.Errorf("bytes outside the scratch region changed: %q", got)
	}
}

func TestAllocatorBackedRegions(t *testing.T) {
	inst := newGuest(t)
	if inst.Allocator() == nil {
		t.Fatal("guest should export alloc/free")
	}

	b, err := New(inst, WithAllocator(inst.Allocator()))
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Define(TextSignature("double_text")); err != nil {
		t.Fatal(err)
	}

	s, err := b.Session("double_text")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Reserve(16); err != nil {
		t.Fatal(err)
	}
	if err := s.EncodeText("12345678"); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if r := s.Region(); r.Offset < 4096 {
		t.Errorf("allocator region at %d, want heap placement at or above 4096", r.Offset)
	}
	if err := s.Invoke(context.Background()); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	out, err := s.DecodeText()
	if err != nil {
		t.Fatal(err)
	}
	if out != "1234567812345678" {
		t.Errorf("output = %q", out)
	}
}

func TestScratchCapacityBoundsEncode(t *testing.T) {
	inst := newGuest(t)
	b, _ := New(inst, WithScratchRegion(0, 8))
	if err := b.Define(TextSignature("double_text")); err != nil {
		t.Fatal(err)
	}

	_, err := b.CallText(context.Background(), "double_text", "longer than eight bytes")
	if !goerrors.Is(err, &errors.Error{Phase: errors.PhaseEncode, Kind: errors.KindInsufficientCapacity}) {
		t.Fatalf("want host-side insufficient_capacity, got %v", err)
	}
}
