package grpc

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype under which the CBOR codec is registered. Requests carry the
// content type "application/grpc+cbor".
const CodecName = "cbor"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// Core deterministic encoding: sorted map keys and smallest integer encoding, so the same
	// message always produces the same bytes.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("grpc: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Values decoded into interface{} use string keyed maps.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("grpc: CBOR decoder initialization failed: " + err.Error())
	}

	encoding.RegisterCodec(Codec{})
}

// Codec marshals gRPC messages as CBOR. Unknown fields are ignored when decoding.
type Codec struct{}

// Marshal encodes v to CBOR.
func (Codec) Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func (Codec) Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Name returns the content subtype of the codec.
func (Codec) Name() string {
	return CodecName
}
