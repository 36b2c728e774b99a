// Command roseasm is a small CLI driver around the ir/program/asm/canon
// packages: parse a textual test program (see the rasmfmt package),
// assemble it, and dump or verify the result. It exists for manual
// exploration; the real compile driver that builds programs from a regex
// graph lives upstream of this repo.
//
// Flag-based CLI texture and -v verbose-diagnostics convention lifted from
// cmd/mag/main.go.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/redflare/roseasm/asm"
	"github.com/redflare/roseasm/blob"
	"github.com/redflare/roseasm/canon"
	"github.com/redflare/roseasm/config"
	"github.com/redflare/roseasm/rasmfmt"
	"github.com/redflare/roseasm/snapshot"
	"github.com/redflare/roseasm/store"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: roseasm <command> [options] <file.rasm>\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  assemble   parse and assemble a program, print hex bytecode\n")
		fmt.Fprintf(os.Stderr, "  disasm     parse, assemble, and print disassembly\n")
		fmt.Fprintf(os.Stderr, "  hash       parse and print the program's canon.ProgramHash\n")
		fmt.Fprintf(os.Stderr, "  dump       parse and print a CBOR snapshot (hex) of the IR shape\n")
		fmt.Fprintf(os.Stderr, "  verify     parse two programs and report whether they are equivalent\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	verbose := flag.Bool("v", false, "verbose diagnostics")
	storePath := flag.String("store", "", "sqlite dedup cache path (assemble inserts each program under its hash; the cache is not read)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "assemble":
		err = runAssemble(rest, *verbose, *storePath)
	case "disasm":
		err = runDisasm(rest, *verbose)
	case "hash":
		err = runHash(rest, *verbose)
	case "dump":
		err = runDump(rest)
	case "verify":
		err = runVerify(rest, *verbose)
	default:
		fmt.Fprintf(os.Stderr, "roseasm: unknown command %q\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "roseasm: %v\n", err)
		os.Exit(1)
	}
}

func readProgramFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func runAssemble(args []string, verbose bool, storePath string) error {
	if len(args) != 1 {
		return fmt.Errorf("assemble: expected exactly one file argument")
	}
	src, err := readProgramFile(args[0])
	if err != nil {
		return err
	}
	p, err := rasmfmt.ParseProgram(src)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if c, cerr := config.FindAndLoad("."); cerr == nil && c != nil {
		cfg = c
	}

	blb := blob.New(cfg.Blob.CapacityBytes)
	opts := asm.Options{MinAlign: cfg.Assembler.MinAlign, CatalogueVersion: cfg.Assembler.CatalogueVersion}
	res, err := asm.Assemble(p, blb, opts)
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "roseasm: %d instructions, %d bytes, catalogue v%d, crc32 %08x\n",
			p.Len(), res.TotalLength, res.Stamp.CatalogueVersion, res.Stamp.BodyCRC32)
	}

	fmt.Printf("%x\n", res.Bytes)

	if storePath == "" {
		storePath = cfg.Store.Path
	}
	if storePath != "" {
		s, serr := store.Open(storePath)
		if serr != nil {
			return fmt.Errorf("opening dedup store: %w", serr)
		}
		defer s.Close()
		h := canon.ProgramHash(p)
		if perr := s.Put(store.Entry{ProgramHash: h, Bytecode: res.Bytes, Blob: blb.Bytes()}); perr != nil {
			return fmt.Errorf("caching assembled program: %w", perr)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "roseasm: cached under program_hash=%d\n", h)
		}
	}
	return nil
}

func runDisasm(args []string, verbose bool) error {
	if len(args) != 1 {
		return fmt.Errorf("disasm: expected exactly one file argument")
	}
	src, err := readProgramFile(args[0])
	if err != nil {
		return err
	}
	p, err := rasmfmt.ParseProgram(src)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if c, cerr := config.FindAndLoad("."); cerr == nil && c != nil {
		cfg = c
	}
	opts := asm.Options{MinAlign: cfg.Assembler.MinAlign, CatalogueVersion: cfg.Assembler.CatalogueVersion}

	res, err := asm.Assemble(p, blob.New(0), opts)
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "roseasm: %d bytes\n", res.TotalLength)
	}
	fmt.Print(asm.Disassemble(res.Bytes))
	return nil
}

func runHash(args []string, verbose bool) error {
	if len(args) != 1 {
		return fmt.Errorf("hash: expected exactly one file argument")
	}
	src, err := readProgramFile(args[0])
	if err != nil {
		return err
	}
	p, err := rasmfmt.ParseProgram(src)
	if err != nil {
		return err
	}
	h := canon.ProgramHash(p)
	if verbose {
		fmt.Fprintf(os.Stderr, "roseasm: %d instructions\n", p.Len())
	}
	fmt.Printf("%d\n", h)
	return nil
}

func runDump(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("dump: expected exactly one file argument")
	}
	src, err := readProgramFile(args[0])
	if err != nil {
		return err
	}
	p, err := rasmfmt.ParseProgram(src)
	if err != nil {
		return err
	}
	snap, err := snapshot.Capture(p)
	if err != nil {
		return err
	}
	data, err := snapshot.Marshal(snap)
	if err != nil {
		return err
	}
	fmt.Printf("%x\n", data)
	return nil
}

func runVerify(args []string, verbose bool) error {
	if len(args) != 2 {
		return fmt.Errorf("verify: expected exactly two file arguments")
	}
	srcA, err := readProgramFile(args[0])
	if err != nil {
		return err
	}
	srcB, err := readProgramFile(args[1])
	if err != nil {
		return err
	}
	pa, err := rasmfmt.ParseProgram(srcA)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	pb, err := rasmfmt.ParseProgram(srcB)
	if err != nil {
		return fmt.Errorf("%s: %w", args[1], err)
	}

	eq := canon.Equivalent(pa, pb)
	if verbose {
		fmt.Fprintf(os.Stderr, "roseasm: hash(a)=%d hash(b)=%d\n", canon.ProgramHash(pa), canon.ProgramHash(pb))
	}
	if eq {
		fmt.Println("equivalent")
		return nil
	}
	fmt.Println("not equivalent")
	os.Exit(1)
	return nil
}
