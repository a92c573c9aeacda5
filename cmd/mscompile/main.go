// Command mscompile compiles, parses, encodes, decodes, and lifts
// Miniscript fragments and policies from the command line, one subcommand
// per C6/C7/C8/C9 operation.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/thoughtnetwork/miniscript/miniscript"
	"github.com/thoughtnetwork/miniscript/miniscript/satisfy"
	"github.com/thoughtnetwork/miniscript/miniscript/script"
	"github.com/thoughtnetwork/miniscript/policy"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "mscompile: logger init:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var cmdErr error
	switch os.Args[1] {
	case "parse":
		cmdErr = runParse(os.Args[2:], logger)
	case "encode":
		cmdErr = runEncode(os.Args[2:], logger)
	case "decode":
		cmdErr = runDecode(os.Args[2:], logger)
	case "lift":
		cmdErr = runLift(os.Args[2:], logger)
	case "compile":
		cmdErr = runCompile(os.Args[2:], logger)
	default:
		usage()
		os.Exit(2)
	}
	if cmdErr != nil {
		logger.Error("mscompile", zap.String("subcommand", os.Args[1]), zap.Error(cmdErr))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: mscompile <parse|encode|decode|lift|compile> [flags]")
}

func keyFromHex(s string) (satisfy.Secp256k1Key, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return satisfy.Secp256k1Key{}, fmt.Errorf("bad key hex %q: %w", s, err)
	}
	return satisfy.ParseSecp256k1Key(b)
}

func runParse(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	ms := fs.String("ms", "", "textual miniscript source")
	fs.Parse(args)

	m, err := miniscript.ParseString(*ms, keyFromHex)
	if err != nil {
		return err
	}
	logger.Info("parsed", zap.String("type", m.Type.Base.String()), zap.Int("pk_cost", m.Ext.PkCost))
	fmt.Println(m.String())
	return nil
}

func runEncode(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	ms := fs.String("ms", "", "textual miniscript source")
	fs.Parse(args)

	m, err := miniscript.ParseString(*ms, keyFromHex)
	if err != nil {
		return err
	}
	out := script.Encode(m)
	logger.Info("encoded", zap.Int("bytes", len(out)))
	fmt.Println(hex.EncodeToString(out))
	return nil
}

func runDecode(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	scriptHex := fs.String("script", "", "script hex")
	fs.Parse(args)

	b, err := hex.DecodeString(*scriptHex)
	if err != nil {
		return fmt.Errorf("bad script hex: %w", err)
	}
	m, err := script.Decode[satisfy.Secp256k1Key](b, satisfy.Secp256k1Key{})
	if err != nil {
		return err
	}
	logger.Info("decoded", zap.String("miniscript", m.String()))
	fmt.Println(m.String())
	return nil
}

func runLift(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("lift", flag.ExitOnError)
	ms := fs.String("ms", "", "textual miniscript source")
	fs.Parse(args)

	m, err := miniscript.ParseString(*ms, keyFromHex)
	if err != nil {
		return err
	}
	abs := m.Lift()
	logger.Info("lifted", zap.Int("n_keys", abs.NKeys()), zap.Int("min_n_keys", abs.MinimumNKeys()))
	fmt.Printf("%+v\n", abs)
	return nil
}

func runCompile(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	src := fs.String("policy", "", "textual policy source")
	cacheDir := fs.String("cache-dir", "", "cache directory recorded in the compiler config (not read by the compiler)")
	fs.Parse(args)

	cfg, err := policy.LoadCompilerConfig()
	if err != nil {
		return err
	}
	if *cacheDir != "" {
		cfg.CacheDir = *cacheDir
	}

	pol, err := policy.ParseString(*src, keyFromHex)
	if err != nil {
		return err
	}

	comp := policy.NewCompiler[satisfy.Secp256k1Key](cfg)
	m, err := comp.BestCompilation(pol)
	if err != nil {
		return err
	}
	logger.Info("compiled", zap.Int("pk_cost", m.Ext.PkCost), zap.String("miniscript", m.String()))
	fmt.Println(m.String())
	fmt.Println(hex.EncodeToString(script.Encode(m)))
	return nil
}
