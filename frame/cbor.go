package frame

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder for heterogeneous columns, configured with
// Core Deterministic Encoding (RFC 8949 §4.2): sorted map keys, smallest
// integer encoding, no indefinite-length items. The same column always
// produces identical payload bytes.
var encMode cbor.EncMode

// decMode is the matching decoder.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Tagged RFC3339 strings keep nanosecond precision and decode back to
	// time.Time. The deterministic default truncates to whole seconds.
	encOptions.Time = cbor.TimeRFC3339Nano
	encOptions.TimeTag = cbor.EncTagRequired
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("frame: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Column elements decoding into any must produce map[string]any,
		// not the CBOR default map[any]any, to match the canonical mapping
		// type used everywhere else in holdall.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// Integers decode as int64 regardless of sign, matching the
		// canonical integer type of inline scalar decoding. Unsigned
		// values above math.MaxInt64 fail; store those in a []uint64
		// column instead.
		IntDec: cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic("frame: CBOR decoder initialization failed: " + err.Error())
	}
}
