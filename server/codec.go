package server

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborCodec is a Connect codec for plain Go structs. Requests and
// responses travel as canonical CBOR with Content-Type application/cbor.
type cborCodec struct {
	enc cbor.EncMode
}

func newCBORCodec() *cborCodec {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("server: failed to create CBOR enc mode: %v", err))
	}
	return &cborCodec{enc: em}
}

// Name is the codec's content subtype.
func (c *cborCodec) Name() string { return "cbor" }

func (c *cborCodec) Marshal(msg any) ([]byte, error) {
	return c.enc.Marshal(msg)
}

func (c *cborCodec) Unmarshal(data []byte, msg any) error {
	return cbor.Unmarshal(data, msg)
}
