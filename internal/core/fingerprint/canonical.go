package fingerprint

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses CBOR Core Deterministic Encoding (RFC 8949 §4.2): map keys
// sorted bytewise, shortest integer and float forms, definite lengths.
// Types with MarshalText (domain.Fingerprint) encode as text strings.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.TextMarshaler = cbor.TextMarshalerTextString
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	encMode, err = opts.EncMode()
	if err != nil {
		panic("fingerprint: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("fingerprint: CBOR decoder initialization failed: " + err.Error())
	}
}

// Canonical returns the deterministic encoding of v.
func Canonical(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical encode: %w", err)
	}
	return data, nil
}

// DecodeCanonical decodes bytes produced by Canonical.
func DecodeCanonical(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("canonical decode: %w", err)
	}
	return nil
}
