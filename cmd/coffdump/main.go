// coffdump is a CLI tool that dumps the records of a COFF object file and
// extracts its function symbols into separate files.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/coffkit/gocoff/pkg/coff"
)

var (
	outDir    = flag.String("o", "func", "Directory for extracted function images")
	section   = flag.Uint("section", coff.DefaultCodeSection, "1-based section number to extract functions from")
	jsonOut   = flag.Bool("json", false, "Dump records as JSON instead of text")
	noExtract = flag.Bool("no-extract", false, "Dump records only, do not extract functions")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options] <coff-file>\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  %s firmware.out\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s -json -no-extract firmware.out\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s -o extracted -section 2 firmware.out\n", os.Args[0])
}

func main() {
	log.SetPrefix("coffdump: ")
	log.SetFlags(0)

	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0)); err != nil {
		log.Fatal(err)
	}
}

func run(path string) error {
	f, err := coff.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(f.Info()); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	} else {
		if err := f.Dump(os.Stdout); err != nil {
			return err
		}
	}

	if *noExtract {
		return nil
	}

	sink := &coff.DirSink{Dir: *outDir}
	return f.ExtractFunctions(uint16(*section), sink, func(name string) {
		fmt.Println("Doing symbol " + name)
	})
}
