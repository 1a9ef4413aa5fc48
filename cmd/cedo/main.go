// Command cedo loads a compiled shared object, runs its main() to
// completion so its global variables are initialized, then emits a
// standalone assembly file reproducing the live contents of a chosen set
// of globals, typed via the object's own DWARF debug info.
package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/brachet-dev/cedo/internal/asmemit"
	"github.com/brachet-dev/cedo/internal/asmstream"
	"github.com/brachet-dev/cedo/internal/cedoerr"
	"github.com/brachet-dev/cedo/internal/cliutil"
	"github.com/brachet-dev/cedo/internal/cversion"
	"github.com/brachet-dev/cedo/internal/dwarfbin"
	_ "github.com/brachet-dev/cedo/internal/elfbin" // registers the ELF object format
	"github.com/brachet-dev/cedo/internal/filemap"
	"github.com/brachet-dev/cedo/internal/objfile"
	"github.com/brachet-dev/cedo/internal/resolver"
	"github.com/brachet-dev/cedo/internal/typebuilder"
)

// symList collects repeated -s/--sym occurrences into an ordered slice.
type symList []string

func (s *symList) String() string { return strings.Join(*s, ",") }

func (s *symList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	var (
		saveTemps  bool
		syms       symList
		outputFile string
		noVersion  bool
		showVer    bool
	)

	flag.BoolVar(&saveTemps, "S", false, "required: stop after emitting assembly")
	flag.Var(&syms, "s", "output symbol name (repeatable)")
	flag.Var(&syms, "sym", "output symbol name (repeatable)")
	flag.StringVar(&outputFile, "o", "", "output file (default: input path with .s extension)")
	flag.StringVar(&outputFile, "output", "", "output file (default: input path with .s extension)")
	flag.BoolVar(&noVersion, "no-version", false, "omit the .ident version comment")
	flag.BoolVar(&showVer, "version", false, "print version information and exit")
	flag.Parse()

	if showVer {
		if err := cliutil.PrintVersion("cedo"); err != nil {
			cliutil.ExitWithError("%v", err)
		}

		return
	}

	if !saveTemps {
		cliutil.ExitWithError("-S must currently be specified")
	}

	args := flag.Args()
	if len(args) == 0 {
		cliutil.ExitWithError("no input file was specified")
	}

	inputFile := args[0]

	if len(syms) == 0 {
		cliutil.ExitWithError("no output symbols were specified")
	}

	if outputFile == "" {
		outputFile = defaultOutputPath(inputFile)
	}

	if err := run(inputFile, outputFile, syms, noVersion); err != nil {
		cliutil.ExitWithError("%v", err)
	}
}

func defaultOutputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".s"
}

func run(inputFile, outputFile string, syms []string, noVersion bool) error {
	symbols, triple, err := resolveSymbols(inputFile, syms)
	if err != nil {
		return err
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return cedoerr.New(cedoerr.IO, "creating %q: %v", outputFile, err)
	}
	defer out.Close()

	versionStr := ""

	if !noVersion {
		versionStr, err = cversion.String()
		if err != nil {
			return err
		}
	}

	emitter := asmemit.New(triple, asmstream.New(out))

	return emitter.EmitAsm(symbols, versionStr)
}

// resolveSymbols reads inputFile's object format and DWARF to type each
// requested symbol, then dlopens the same file and runs its main() so its
// globals are initialized before their live bytes are read out. Symbols
// with no debug info or no matching runtime symbol are warned about and
// skipped, per the original driver's `warn` + continue policy.
func resolveSymbols(inputFile string, syms []string) ([]asmemit.Symbol, objfile.Triple, error) {
	fm, err := filemap.Open(inputFile)
	if err != nil {
		return nil, objfile.Triple{}, err
	}
	defer fm.Close()

	objReader, err := objfile.CreateReader(fm.Bytes())
	if err != nil {
		return nil, objfile.Triple{}, err
	}

	dwarf, err := dwarfbin.Read(objReader)
	if err != nil {
		return nil, objfile.Triple{}, err
	}

	res, err := resolver.Open(inputFile)
	if err != nil {
		return nil, objfile.Triple{}, err
	}
	defer res.Close()

	if exitCode, err := res.CallMain(nil); err != nil {
		return nil, objfile.Triple{}, err
	} else if exitCode != 0 {
		return nil, objfile.Triple{}, cedoerr.New(cedoerr.IO, "loaded program exited with code %d", exitCode)
	}

	triple := objReader.Triple()

	var out []asmemit.Symbol

	for _, name := range syms {
		typ, ok := typebuilder.Build(dwarf, name, triple.AddrByteSize())
		if !ok {
			cliutil.Warn("couldn't find debug info for %q", name)
			continue
		}

		addr, ok := res.Resolve(name)
		if !ok {
			cliutil.Warn("symbol %q is in debug info but was not found in the shared object", name)
			continue
		}

		out = append(out, asmemit.Symbol{
			Name:    name,
			Type:    typ,
			Address: uint64(addr),
			Data:    append([]byte(nil), resolver.ReadBytes(addr, typ.Size())...),
		})
	}

	return out, triple, nil
}
