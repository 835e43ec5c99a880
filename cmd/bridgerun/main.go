package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/wasm-bridge/bridge"
	"github.com/wippyai/wasm-bridge/config"
	"github.com/wippyai/wasm-bridge/engine"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config declaring operations")
		wasmFile    = flag.String("wasm", "", "Path to guest wasm file (overrides config)")
		opName      = flag.String("op", "", "Operation to call")
		textArg     = flag.String("text", "", "Input for a text operation")
		jsonArg     = flag.String("json", "", "JSON input for a structured operation")
		numArgs     = flag.String("args", "", "Comma-separated integers for a numeric operation")
		capacity    = flag.Uint("capacity", 0, "Override the region capacity in bytes")
		list        = flag.Bool("list", false, "List declared operations and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		os.Exit(1)
	}
	if *wasmFile != "" {
		cfg.Module = *wasmFile
	}
	if *capacity > 0 {
		cfg.Region.Capacity = uint32(*capacity)
	}
	if cfg.Module == "" {
		fmt.Fprintln(os.Stderr, "Usage: bridgerun -config <bridge.yaml> [-wasm file.wasm] -op <name> [-text s | -json doc | -args 1,2]")
		fmt.Fprintln(os.Stderr, "       bridgerun -config <bridge.yaml> -list")
		fmt.Fprintln(os.Stderr, "       bridgerun -config <bridge.yaml> -i  (interactive mode)")
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	engine.SetLogger(logger)

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(cfg, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, logger, *opName, *textArg, *jsonArg, *numArgs, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// setup builds the engine, instantiates the guest and defines every
// configured operation on a bridge.
func setup(ctx context.Context, cfg *config.BridgeConfig, logger *zap.Logger) (*engine.Engine, *bridge.Bridge, error) {
	data, err := os.ReadFile(cfg.Module)
	if err != nil {
		return nil, nil, fmt.Errorf("read module: %w", err)
	}

	eng, err := engine.New(ctx, &engine.Config{
		MemoryLimitPages: cfg.Engine.MemoryLimitPages,
		HostMemory:       cfg.Engine.HostMemory,
		HostMemoryModule: cfg.Engine.HostMemoryModule,
		HostMemoryMin:    cfg.Engine.HostMemoryMin,
		HostMemoryMax:    cfg.Engine.HostMemoryMax,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create engine: %w", err)
	}

	mod, err := eng.LoadModule(ctx, data)
	if err != nil {
		_ = eng.Close(ctx)
		return nil, nil, fmt.Errorf("load module: %w", err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		_ = eng.Close(ctx)
		return nil, nil, fmt.Errorf("instantiate: %w", err)
	}

	opts := []bridge.Option{
		bridge.WithLogger(logger),
		bridge.WithScratchRegion(cfg.Region.Offset, cfg.Region.Capacity),
	}
	if cfg.Region.UseAllocator {
		alloc := inst.Allocator()
		if alloc == nil {
			_ = eng.Close(ctx)
			return nil, nil, fmt.Errorf("config requests the guest allocator but the guest exports none")
		}
		opts = append(opts, bridge.WithAllocator(alloc))
	}

	b, err := bridge.New(inst, opts...)
	if err != nil {
		_ = eng.Close(ctx)
		return nil, nil, err
	}

	sigs, err := cfg.Signatures()
	if err != nil {
		_ = eng.Close(ctx)
		return nil, nil, err
	}
	for _, sig := range sigs {
		if err := b.Define(sig); err != nil {
			_ = eng.Close(ctx)
			return nil, nil, fmt.Errorf("define %s: %w", sig.Name, err)
		}
	}
	return eng, b, nil
}

func run(cfg *config.BridgeConfig, logger *zap.Logger, opName, textArg, jsonArg, numArgs string, listOnly bool) error {
	ctx := context.Background()

	eng, b, err := setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close(ctx) }()

	fmt.Printf("Module: %s\n", cfg.Module)
	fmt.Printf("\nOperations:\n")
	for _, name := range b.Operations() {
		sig, _ := b.Lookup(name)
		fmt.Printf("  %s\n", formatSignature(sig))
	}

	if listOnly {
		return nil
	}
	if opName == "" {
		fmt.Printf("\nUse -op to call an operation.\n")
		return nil
	}

	sig, ok := b.Lookup(opName)
	if !ok {
		return fmt.Errorf("operation %q is not declared", opName)
	}

	switch sig.Kind {
	case bridge.OpText:
		out, err := b.CallText(ctx, opName, textArg)
		if err != nil {
			return err
		}
		fmt.Printf("\nResult: %s\n", out)

	case bridge.OpStructured:
		var in any
		if jsonArg != "" {
			if err := json.Unmarshal([]byte(jsonArg), &in); err != nil {
				return fmt.Errorf("parse -json: %w", err)
			}
		}
		out, err := b.CallStructuredAny(ctx, opName, in)
		if err != nil {
			return err
		}
		pretty, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("\nResult: %s\n", pretty)

	case bridge.OpNumeric:
		args, err := parseNumericArgs(numArgs)
		if err != nil {
			return err
		}
		results, err := b.CallNumeric(ctx, opName, args...)
		if err != nil {
			return err
		}
		parts := make([]string, len(results))
		for i, r := range results {
			parts[i] = strconv.FormatInt(int64(int32(r)), 10)
		}
		fmt.Printf("\nResult: %s\n", strings.Join(parts, ", "))
	}
	return nil
}

func parseNumericArgs(s string) ([]uint64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	args := make([]uint64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse -args element %q: %w", p, err)
		}
		args[i] = uint64(v)
	}
	return args, nil
}

func formatSignature(sig bridge.Signature) string {
	switch sig.Kind {
	case bridge.OpNumeric:
		params := make([]string, len(sig.Params))
		for i, t := range sig.Params {
			params[i] = witTypeStr(t)
		}
		results := make([]string, len(sig.Results))
		for i, t := range sig.Results {
			results[i] = witTypeStr(t)
		}
		out := sig.Name + "(" + strings.Join(params, ", ") + ")"
		if len(results) > 0 {
			out += " -> " + strings.Join(results, ", ")
		}
		return out
	case bridge.OpText:
		return sig.Name + "(text) -> text"
	case bridge.OpStructured:
		return sig.Name + "(json) -> json"
	default:
		return sig.Name
	}
}
