// Package mutf8 implements the modified UTF-8 encoding used by Java class
// files for CONSTANT_Utf8 constant pool entries.
//
// Modified UTF-8 differs from standard UTF-8 in two places:
//
//   - U+0000 is never stored as a raw 0x00 byte; it uses the overlong
//     two-byte form 0xC0 0x80 so that encoded strings contain no NULs.
//   - Code points above U+FFFF are not stored as four-byte sequences;
//     they are first split into a UTF-16 surrogate pair and each surrogate
//     is encoded as an independent three-byte sequence (six bytes total).
//
// Encode and Decode are exact inverses for every byte sequence the class
// file format can legally contain: Encode(Decode(x)) == x.
package mutf8

import (
	"fmt"
	"unicode/utf16"
)

// EncodingError reports a malformed modified UTF-8 byte sequence.
type EncodingError struct {
	// Offset is the byte position where decoding failed.
	Offset int
	// Msg describes the malformation.
	Msg string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("modified UTF-8: %s at byte %d", e.Msg, e.Offset)
}

// Decode converts modified UTF-8 bytes to a Go string.
// It fails on raw NUL bytes, truncated multi-byte sequences, bytes outside
// the legal patterns, and unpaired surrogate encodings.
func Decode(data []byte) (string, error) {
	// Decoded code units are UTF-16 (surrogate pairs arrive as two units).
	units := make([]uint16, 0, len(data))

	for i := 0; i < len(data); {
		b := data[i]
		switch {
		case b == 0x00:
			return "", &EncodingError{Offset: i, Msg: "raw NUL byte"}

		case b < 0x80:
			units = append(units, uint16(b))
			i++

		case b&0xE0 == 0xC0: // 110xxxxx 10xxxxxx
			if i+1 >= len(data) {
				return "", &EncodingError{Offset: i, Msg: "truncated two-byte sequence"}
			}
			b2 := data[i+1]
			if b2&0xC0 != 0x80 {
				return "", &EncodingError{Offset: i + 1, Msg: fmt.Sprintf("bad continuation byte 0x%02X", b2)}
			}
			units = append(units, uint16(b&0x1F)<<6|uint16(b2&0x3F))
			i += 2

		case b&0xF0 == 0xE0: // 1110xxxx 10xxxxxx 10xxxxxx
			if i+2 >= len(data) {
				return "", &EncodingError{Offset: i, Msg: "truncated three-byte sequence"}
			}
			b2, b3 := data[i+1], data[i+2]
			if b2&0xC0 != 0x80 {
				return "", &EncodingError{Offset: i + 1, Msg: fmt.Sprintf("bad continuation byte 0x%02X", b2)}
			}
			if b3&0xC0 != 0x80 {
				return "", &EncodingError{Offset: i + 2, Msg: fmt.Sprintf("bad continuation byte 0x%02X", b3)}
			}
			units = append(units, uint16(b&0x0F)<<12|uint16(b2&0x3F)<<6|uint16(b3&0x3F))
			i += 3

		default:
			return "", &EncodingError{Offset: i, Msg: fmt.Sprintf("illegal leading byte 0x%02X", b)}
		}
	}

	// Validate surrogate pairing: a high surrogate must be followed by a
	// low surrogate and a low surrogate must follow a high one.
	for j := 0; j < len(units); j++ {
		u := units[j]
		switch {
		case u >= 0xD800 && u <= 0xDBFF:
			if j+1 >= len(units) || units[j+1] < 0xDC00 || units[j+1] > 0xDFFF {
				return "", &EncodingError{Offset: -1, Msg: fmt.Sprintf("unpaired high surrogate U+%04X", u)}
			}
			j++ // skip the low half
		case u >= 0xDC00 && u <= 0xDFFF:
			return "", &EncodingError{Offset: -1, Msg: fmt.Sprintf("unpaired low surrogate U+%04X", u)}
		}
	}

	return string(utf16.Decode(units)), nil
}

// Encode converts a Go string to modified UTF-8 bytes.
// Every string Decode can produce is encodable, so Encode never fails.
func Encode(s string) []byte {
	// Work in UTF-16 code units: supplementary code points become surrogate
	// pairs here and each unit is then encoded independently.
	units := utf16.Encode([]rune(s))

	out := make([]byte, 0, len(s)+len(s)/2)
	for _, u := range units {
		switch {
		case u >= 0x01 && u <= 0x7F:
			out = append(out, byte(u))
		case u <= 0x7FF: // includes u == 0 → 0xC0 0x80
			out = append(out,
				0xC0|byte(u>>6),
				0x80|byte(u&0x3F))
		default:
			out = append(out,
				0xE0|byte(u>>12),
				0x80|byte(u>>6&0x3F),
				0x80|byte(u&0x3F))
		}
	}
	return out
}

// EncodedLen returns the number of bytes Encode would produce for s
// without allocating the result.
func EncodedLen(s string) int {
	n := 0
	for _, u := range utf16.Encode([]rune(s)) {
		switch {
		case u >= 0x01 && u <= 0x7F:
			n++
		case u <= 0x7FF:
			n += 2
		default:
			n += 3
		}
	}
	return n
}
