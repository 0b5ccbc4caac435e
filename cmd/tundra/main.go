// Tundra CLI - compiles and runs whitespace programs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/tliron/commonlog"

	"github.com/tundra-lang/tundra/inspect"
	"github.com/tundra-lang/tundra/interp"
	"github.com/tundra-lang/tundra/ir"
	"github.com/tundra-lang/tundra/manifest"
	"github.com/tundra-lang/tundra/ws"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	flag.Usage = usage
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	if *verbose {
		commonlog.Configure(1, nil)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "run":
		err = cmdRun(rest)
	case "check":
		err = cmdCheck(rest)
	case "disasm":
		err = cmdDisasm(rest)
	case "asm":
		err = cmdAsm(rest)
	case "features":
		err = cmdFeatures(rest)
	case "dump":
		err = cmdDump(rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: tundra [options] <command> [args]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  run <file>       Compile and run a program\n")
	fmt.Fprintf(os.Stderr, "  check <file>     Compile a program, reporting malformed-program errors\n")
	fmt.Fprintf(os.Stderr, "  disasm <file>    Print a program as mnemonic assembly\n")
	fmt.Fprintf(os.Stderr, "  asm <file>       Assemble mnemonic assembly into token text\n")
	fmt.Fprintf(os.Stderr, "  features <file>  Report which dialect extensions a program uses\n")
	fmt.Fprintf(os.Stderr, "  dump <file>      Print the compiled SSA form of a program\n")
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nPrograms are read from .ws token files or .wsa assembly files.\n")
	fmt.Fprintf(os.Stderr, "A tundra.toml next to the program (or in a parent directory)\n")
	fmt.Fprintf(os.Stderr, "selects the dialect, optimization, and run limits.\n")
}

// loadProgram reads and decodes a source file using the manifest found
// next to it.
func loadProgram(path string) ([]ws.Inst, *manifest.Manifest, error) {
	m, err := manifest.FindAndLoad(filepath.Dir(path))
	if err != nil {
		return nil, nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	if strings.HasSuffix(path, ".wsa") {
		insts, err := ws.Assemble(string(src))
		return insts, m, err
	}
	table := ws.NewParseTable(m.Dialect.Features())
	insts, err := ws.ParseAll(table, ws.NewByteLexer(src, ws.DefaultMapping()))
	return insts, m, err
}

func compileFile(path string) (*ir.Program, *manifest.Manifest, error) {
	insts, m, err := loadProgram(path)
	if err != nil {
		return nil, nil, err
	}
	p, err := ir.Compile(insts, ir.CompileOptions{Optimize: m.Build.Optimize})
	return p, m, err
}

func oneArg(args []string, cmd string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: tundra %s <file>", cmd)
	}
	return args[0], nil
}

func cmdRun(args []string) error {
	path, err := oneArg(args, "run")
	if err != nil {
		return err
	}
	p, m, err := compileFile(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome := interp.Run(ctx, p,
		interp.NewReaderInput(os.Stdin),
		interp.NewWriterOutput(os.Stdout),
		interp.Options{MaxSteps: m.Run.MaxSteps, Trace: os.Stderr})

	switch outcome.Status {
	case interp.Halted:
		os.Exit(outcome.ExitCode)
	case interp.Cancelled:
		return fmt.Errorf("run cancelled")
	case interp.Faulted:
		return outcome.Fault
	}
	return nil
}

func cmdCheck(args []string) error {
	path, err := oneArg(args, "check")
	if err != nil {
		return err
	}
	p, _, err := compileFile(path)
	if err != nil {
		return err
	}
	fmt.Printf("%s: ok (%d blocks, %d values)\n", path, len(p.Blocks), len(p.Values))
	return nil
}

func cmdDisasm(args []string) error {
	path, err := oneArg(args, "disasm")
	if err != nil {
		return err
	}
	insts, _, err := loadProgram(path)
	if err != nil {
		return err
	}
	fmt.Print(ws.Disassemble(insts))
	return nil
}

func cmdAsm(args []string) error {
	path, err := oneArg(args, "asm")
	if err != nil {
		return err
	}
	insts, _, err := loadProgram(path)
	if err != nil {
		return err
	}
	fmt.Print(ws.EmitText(insts, ws.DefaultMapping()))
	return nil
}

func cmdFeatures(args []string) error {
	path, err := oneArg(args, "features")
	if err != nil {
		return err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	table := ws.NewParseTable(ws.AllFeatures)
	insts, err := ws.ParseAll(table, ws.NewByteLexer(src, ws.DefaultMapping()))
	if err != nil {
		return err
	}
	feats := ws.DetectFeatures(insts)
	if feats == 0 {
		fmt.Printf("%s: base instruction set only\n", path)
		return nil
	}
	fmt.Printf("%s: %s\n", path, feats)
	return nil
}

func cmdDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	asCBOR := fs.Bool("cbor", false, "Emit a CBOR snapshot instead of the text listing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := oneArg(fs.Args(), "dump")
	if err != nil {
		return err
	}
	p, _, err := compileFile(path)
	if err != nil {
		return err
	}

	if *asCBOR {
		snap := inspect.Snapshot(p)
		data, err := inspect.Marshal(snap)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}
	fmt.Print(p.String())
	return nil
}
