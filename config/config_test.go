package config

import (
	"os"
	"testing"

	"github.com/wippyai/wasm-bridge/bridge"
	"github.com/wippyai/wasm-bridge/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Default log level mismatch: got %s, want info", cfg.LogLevel)
	}
	if cfg.Region.Capacity != 4096 {
		t.Errorf("Default region capacity mismatch: got %d, want 4096", cfg.Region.Capacity)
	}
	if cfg.Engine.HostMemory {
		t.Errorf("Host memory should be disabled by default")
	}
	if cfg.Engine.HostMemoryModule != "env" {
		t.Errorf("Default host memory module mismatch: got %s", cfg.Engine.HostMemoryModule)
	}
	if cfg.Codec.MaxEncodedSize != 16<<20 {
		t.Errorf("Default codec limit mismatch: got %d", cfg.Codec.MaxEncodedSize)
	}
	if len(cfg.Operations) != 0 {
		t.Errorf("No operations expected by default, got %v", cfg.Operations)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "bridge*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	configContent := `
log_level: debug
module: guest.wasm
engine:
  memory_limit_pages: 16
  host_memory: true
  host_memory_max: 8
region:
  offset: 1024
  capacity: 8192
operations:
  - name: transform
    kind: structured
  - name: shout
    kind: text
    codes:
      -1: insufficient_capacity
      -7: invalid_input
  - name: add
    kind: numeric
    params: [u32, u32]
    results: [u32]
`
	if _, err := tmpfile.Write([]byte(configContent)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("Log level mismatch: got %s, want debug", cfg.LogLevel)
	}
	if cfg.Module != "guest.wasm" {
		t.Errorf("Module mismatch: got %s", cfg.Module)
	}
	if cfg.Engine.MemoryLimitPages != 16 || !cfg.Engine.HostMemory || cfg.Engine.HostMemoryMax != 8 {
		t.Errorf("Engine config mismatch: %+v", cfg.Engine)
	}
	if cfg.Engine.HostMemoryMin != 1 {
		t.Errorf("Host memory min should keep its default, got %d", cfg.Engine.HostMemoryMin)
	}
	if cfg.Region.Offset != 1024 || cfg.Region.Capacity != 8192 {
		t.Errorf("Region config mismatch: %+v", cfg.Region)
	}
	if len(cfg.Operations) != 3 {
		t.Fatalf("Operations mismatch: %+v", cfg.Operations)
	}
}

func TestSignatures(t *testing.T) {
	cfg := &BridgeConfig{
		Operations: []OperationConfig{
			{Name: "transform", Kind: "structured"},
			{Name: "shout", Kind: "text", Codes: map[string]string{"-7": "invalid_input"}},
			{Name: "add", Kind: "numeric", Params: []string{"u32", "u32"}, Results: []string{"u32"}},
		},
	}

	sigs, err := cfg.Signatures()
	if err != nil {
		t.Fatalf("Signatures: %v", err)
	}

	if sigs[0].Kind != bridge.OpStructured {
		t.Errorf("transform kind = %v", sigs[0].Kind)
	}
	if kind, ok := sigs[0].Codes[-3]; !ok || kind != errors.KindInsufficientCapacity {
		t.Errorf("structured default codes missing, got %v", sigs[0].Codes)
	}

	if sigs[1].Kind != bridge.OpText {
		t.Errorf("shout kind = %v", sigs[1].Kind)
	}
	if kind, ok := sigs[1].Codes[-7]; !ok || kind != errors.KindInvalidInput {
		t.Errorf("custom code space not applied: %v", sigs[1].Codes)
	}
	if _, ok := sigs[1].Codes[-1]; ok {
		t.Errorf("custom code space should replace the default, got %v", sigs[1].Codes)
	}

	if sigs[2].Kind != bridge.OpNumeric || len(sigs[2].Params) != 2 || len(sigs[2].Results) != 1 {
		t.Errorf("numeric signature mismatch: %+v", sigs[2])
	}
}

func TestSignatures_UnknownKind(t *testing.T) {
	op := OperationConfig{Name: "x", Kind: "binary"}
	if _, err := op.Signature(); err == nil {
		t.Error("unknown kind should be rejected")
	}
}

func TestSignatures_BadCodeKey(t *testing.T) {
	op := OperationConfig{Name: "x", Kind: "text", Codes: map[string]string{"one": "invalid_input"}}
	if _, err := op.Signature(); err == nil {
		t.Error("non-integer code key should be rejected")
	}
}

func TestSignatures_NonNegativeCodeKey(t *testing.T) {
	for _, key := range []string{"0", "5"} {
		op := OperationConfig{Name: "x", Kind: "text", Codes: map[string]string{key: "invalid_input"}}
		if _, err := op.Signature(); err == nil {
			t.Errorf("code key %q should be rejected, error codes are negative", key)
		}
	}
}

func TestSignatures_MisspelledKind(t *testing.T) {
	op := OperationConfig{Name: "x", Kind: "structured",
		Codes: map[string]string{"-1": "insufficient_capcity"}}
	if _, err := op.Signature(); err == nil {
		t.Error("unknown error kind name should be rejected")
	}
}

func TestSignatures_UnknownScalar(t *testing.T) {
	op := OperationConfig{Name: "x", Kind: "numeric", Params: []string{"i128"}}
	if _, err := op.Signature(); err == nil {
		t.Error("unknown scalar type should be rejected")
	}
}
