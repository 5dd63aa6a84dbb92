// Package mtc reads the preamble wrapped around MTC firmware module images.
package mtc

import (
	"bytes"
	"fmt"
	"io"
)

// Magic identifies an MTC module image.
var Magic = []byte("MTCH")

// HeaderSize is the size of the module preamble in bytes.
const HeaderSize = 128

// Header holds the metadata fields of a module preamble.
type Header struct {
	Name        string  // Module name, null padding stripped
	Version     [4]byte // Version number components
	Description string  // Module description, null padding stripped
}

// ReadHeader reads the 128-byte preamble from r and validates its magic.
// The wrapped payload follows at r's position after a successful read.
func ReadHeader(r io.Reader) (*Header, error) {
	var raw [HeaderSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return nil, fmt.Errorf("failed to read module header: %w", err)
	}

	if !bytes.Equal(raw[0:4], Magic) {
		return nil, fmt.Errorf("invalid MTC magic: not a valid module file")
	}

	h := &Header{
		Name:        string(bytes.Trim(raw[44:59], "\x00")),
		Description: string(bytes.Trim(raw[64:96], "\x00")),
	}
	copy(h.Version[:], raw[60:64])

	return h, nil
}

// VersionString returns the module version in dotted form.
func (h *Header) VersionString() string {
	return fmt.Sprintf("%d.%d.%d.%d", h.Version[0], h.Version[1], h.Version[2], h.Version[3])
}
