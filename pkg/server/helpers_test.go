//go:build linux

package server

import (
	"os"

	"github.com/fxamacker/cbor/v2"
)

// decodeString unmarshals a CBOR string body produced by the echo
// handler
func decodeString(body []byte, out *string) error {
	return cbor.Unmarshal(body, out)
}

func unixGeteuid() int {
	return os.Geteuid()
}
