package asm

import (
	"encoding/hex"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/redflare/roseasm/blob"
	"github.com/redflare/roseasm/rasmfmt"
)

// TestTxtarFixtures assembles each testdata/*.txtar fixture's program.rasm
// and checks the emitted bytes against its recorded bytecode.hex.
func TestTxtarFixtures(t *testing.T) {
	files, err := filepath.Glob("testdata/*.txtar")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no txtar fixtures found under testdata/")
	}

	for _, path := range files {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			ar, err := txtar.ParseFile(path)
			if err != nil {
				t.Fatalf("parse txtar: %v", err)
			}

			var programSrc, hexSrc string
			for _, f := range ar.Files {
				switch f.Name {
				case "program.rasm":
					programSrc = string(f.Data)
				case "bytecode.hex":
					hexSrc = string(f.Data)
				}
			}
			if programSrc == "" || hexSrc == "" {
				t.Fatalf("fixture missing program.rasm or bytecode.hex section")
			}

			p, err := rasmfmt.ParseProgram(programSrc)
			if err != nil {
				t.Fatalf("parse program: %v", err)
			}
			res, err := Assemble(p, blob.New(0), Options{})
			if err != nil {
				t.Fatalf("assemble: %v", err)
			}

			want, err := hex.DecodeString(strings.ReplaceAll(strings.TrimSpace(hexSrc), " ", ""))
			if err != nil {
				t.Fatalf("decode expected hex: %v", err)
			}
			if !bytesEqual(res.Bytes, want) {
				t.Fatalf("bytecode mismatch:\n got  % x\n want % x", res.Bytes, want)
			}
		})
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
