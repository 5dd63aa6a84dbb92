// mtcunpack validates the preamble of an MTC firmware module, prints its
// metadata and writes the unwrapped payload to a new file.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/coffkit/gocoff/pkg/mtc"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <input> <output>\n", os.Args[0])
}

func main() {
	log.SetPrefix("mtcunpack: ")
	log.SetFlags(0)

	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), flag.Arg(1)); err != nil {
		log.Fatal(err)
	}
}

func run(input, output string) error {
	src, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open module: %w", err)
	}
	defer src.Close()

	// The preamble is validated before the output file is created, so an
	// invalid module never leaves a partial output behind.
	hdr, err := mtc.ReadHeader(src)
	if err != nil {
		return err
	}

	fmt.Printf("Module name: %s\n", hdr.Name)
	fmt.Printf("Module version: %s\n", hdr.VersionString())
	fmt.Printf("Module description: %s\n", hdr.Description)

	dst, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to copy module payload: %w", err)
	}
	return dst.Close()
}
