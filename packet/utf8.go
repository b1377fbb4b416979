package packet

import (
	"unicode/utf8"

	merrors "github.com/axmq/mqttv5/errors"
)

// ValidateUTF8String checks data against the MQTT 5.0 UTF-8 string rules
// (§1.5.4 of the OASIS spec): valid UTF-8, no U+0000, no UTF-16
// surrogate code points. Control characters and non-character code points
// are discouraged by the spec but not rejected here, matching the
// "should" (not "must") wording of the standard.
func ValidateUTF8String(data []byte) error {
	if !utf8.Valid(data) {
		return merrors.Wrap(merrors.ErrMalformedPacket, "invalid UTF-8 string")
	}
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		switch {
		case r == 0:
			return merrors.Wrap(merrors.ErrMalformedPacket, "UTF-8 string contains U+0000")
		case r >= 0xD800 && r <= 0xDFFF:
			return merrors.Wrap(merrors.ErrMalformedPacket, "UTF-8 string contains a surrogate code point")
		}
		i += size
	}
	return nil
}
