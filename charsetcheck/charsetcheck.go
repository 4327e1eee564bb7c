// Package charsetcheck flags text that cannot be represented in the target
// device's runtime charset (a fixed single- or double-byte legacy encoding
// such as GBK, EUC-KR, or windows-1251).
//
// The verdict is advisory metadata: an unrepresentable character never
// blocks parsing, translation, or saving — it only signals that the device
// would mangle the string at display time.
package charsetcheck

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// Lookup resolves a charset by its IANA name or alias ("GBK", "EUC-KR",
// "Shift_JIS", "windows-1251", ...).
func Lookup(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", name, err)
	}
	if enc == nil {
		// The index knows the name but x/text ships no codec for it.
		return nil, fmt.Errorf("charset %q: no encoder available", name)
	}
	return enc, nil
}

// Validator checks representability of text in one target charset.
type Validator struct {
	name string
	enc  encoding.Encoding
}

// New builds a Validator for the named charset.
func New(name string) (*Validator, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return &Validator{name: name, enc: enc}, nil
}

// Charset returns the charset name the validator was built with.
func (v *Validator) Charset() string {
	return v.name
}

// Validate reports whether every character of text has a mapping in the
// target charset, along with the distinct offending code points in order
// of first appearance.
func (v *Validator) Validate(text string) (ok bool, bad []rune) {
	seen := make(map[rune]bool)
	enc := v.enc.NewEncoder()
	for _, r := range text {
		if seen[r] {
			continue
		}
		// Encode the rune alone: the encoder errors on any rune outside
		// the charset's repertoire.
		if _, err := enc.Bytes([]byte(string(r))); err != nil {
			seen[r] = true
			bad = append(bad, r)
		}
	}
	return len(bad) == 0, bad
}

// Validate is a one-shot convenience wrapper around New + Validate.
func Validate(text, charsetName string) (ok bool, bad []rune, err error) {
	v, err := New(charsetName)
	if err != nil {
		return false, nil, err
	}
	ok, bad = v.Validate(text)
	return ok, bad, nil
}
