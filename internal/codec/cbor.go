// Package codec holds the CBOR configuration shared by the wire protocol
// and the serialized vault contents.
//
// Decoding is strict: unknown struct fields, duplicate map keys,
// indefinite-length items and CBOR tags are rejected, so a payload can only
// ever decode into the fixed, data-only shapes declared by the caller.
package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// Name is the gRPC content-subtype used for the CBOR codec.
const Name = "cbor"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		IndefLength:       cbor.IndefLengthForbidden,
		TagsMd:            cbor.TagsForbidden,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
		MaxNestedLevels:   16,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// RawMessage is an encoded CBOR value whose decoding is deferred.
type RawMessage = cbor.RawMessage

// Marshal encodes v using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal strictly decodes data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Frame is one undecoded gRPC message. GRPCCodec copies the bytes into it
// instead of decoding, so the receiver decides how decode failures are
// reported.
type Frame []byte

// GRPCCodec plugs the CBOR configuration into gRPC as a forced codec.
type GRPCCodec struct{}

func (GRPCCodec) Marshal(v any) ([]byte, error) {
	if f, ok := v.(*Frame); ok {
		return *f, nil
	}
	return Marshal(v)
}

func (GRPCCodec) Unmarshal(data []byte, v any) error {
	if f, ok := v.(*Frame); ok {
		// data is only valid for the duration of the call.
		*f = append((*f)[:0], data...)
		return nil
	}
	return Unmarshal(data, v)
}

func (GRPCCodec) Name() string { return Name }
