package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding: sorted map keys, shortest
// integers, no indefinite lengths. Equal state always yields equal bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Amounts wrap an unexported uint256 and carry their value through
	// MarshalText; without this they encode as empty maps.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	// Unix seconds. The state machine never stores sub-second times.
	encOptions.Time = cbor.TimeUnix
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to deterministic CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Diagnose returns RFC 8949 diagnostic notation for data, for debugging
// snapshot files.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
