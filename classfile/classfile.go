// Package classfile implements lossless parsing and rewriting of Java class
// files at the constant pool level.
//
// Only the fixed header and the constant pool are understood. Everything
// after the pool (access flags, interfaces, fields, methods, attributes) is
// captured as one opaque byte span and re-emitted verbatim, since bytecode
// edits are out of scope. Every pool entry keeps its exact original bytes;
// re-serializing an unmodified file reproduces the input byte for byte.
//
// The only mutation the model supports is replacing the text of a Utf8
// entry. Entry count and index numbering never change, so no offsets
// outside the edited entry move.
package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"clokit/mutf8"
)

// Tag identifies a constant pool entry kind (JVMS §4.4).
type Tag uint8

const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagDynamic            Tag = 17
	TagInvokeDynamic      Tag = 18
	TagModule             Tag = 19
	TagPackage            Tag = 20
)

// String returns the JVMS name of the tag.
func (t Tag) String() string {
	switch t {
	case TagUtf8:
		return "Utf8"
	case TagInteger:
		return "Integer"
	case TagFloat:
		return "Float"
	case TagLong:
		return "Long"
	case TagDouble:
		return "Double"
	case TagClass:
		return "Class"
	case TagString:
		return "String"
	case TagFieldref:
		return "Fieldref"
	case TagMethodref:
		return "Methodref"
	case TagInterfaceMethodref:
		return "InterfaceMethodref"
	case TagNameAndType:
		return "NameAndType"
	case TagMethodHandle:
		return "MethodHandle"
	case TagMethodType:
		return "MethodType"
	case TagDynamic:
		return "Dynamic"
	case TagInvokeDynamic:
		return "InvokeDynamic"
	case TagModule:
		return "Module"
	case TagPackage:
		return "Package"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

// payloadSize returns the fixed payload byte count for a tag, or -1 for
// Utf8 (variable length) and -2 for unknown tags.
func payloadSize(t Tag) int {
	switch t {
	case TagUtf8:
		return -1
	case TagInteger, TagFloat:
		return 4
	case TagLong, TagDouble:
		return 8
	case TagClass, TagString, TagMethodType, TagModule, TagPackage:
		return 2
	case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType,
		TagDynamic, TagInvokeDynamic:
		return 4
	case TagMethodHandle:
		return 3
	default:
		return -2
	}
}

// Magic is the class file magic number (0xCAFEBABE).
const Magic = 0xCAFEBABE

// headerSize covers magic, minor_version, major_version, constant_pool_count.
const headerSize = 10

// Major version bounds defined by the JVM specification
// (45 = JDK 1.0.2 ... 69 = Java 25).
const (
	MinMajorVersion = 45
	MaxMajorVersion = 69
)

// ParseError reports a malformed or unsupported class file.
// A file that fails to parse is skipped by batch operations, never fatal.
type ParseError struct {
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("class file: %s at offset %d", e.Msg, e.Offset)
}

// Entry is one constant pool slot.
//
// Raw holds the exact original bytes including the tag byte. For Utf8
// entries Text holds the decoded string; replacing it via SetText marks the
// entry modified so the writer re-encodes instead of emitting Raw.
type Entry struct {
	// Index is the 1-based constant pool index.
	Index int
	// Tag is the entry kind.
	Tag Tag
	// Raw is the original encoding: tag byte followed by the payload.
	Raw []byte
	// Text is the decoded string for Utf8 entries, empty otherwise.
	Text string

	// origLen is the original payload byte length for Utf8 entries.
	origLen int
	// decodeErr records a Utf8 payload the codec rejected. Such an entry
	// is never a translation candidate and always re-emits Raw.
	decodeErr error
	// modified marks a Utf8 entry whose Text was replaced.
	modified bool
}

// IsUtf8 reports whether the entry is a Utf8 entry with cleanly decoded text.
func (e *Entry) IsUtf8() bool {
	return e.Tag == TagUtf8 && e.decodeErr == nil
}

// Modified reports whether the entry's text has been replaced.
func (e *Entry) Modified() bool {
	return e.modified
}

// DecodeErr returns the codec error for a Utf8 payload that failed to
// decode, or nil.
func (e *Entry) DecodeErr() error {
	return e.decodeErr
}

// OriginalByteLength returns the payload length of the entry as parsed.
func (e *Entry) OriginalByteLength() int {
	return e.origLen
}

// u2 reads the big-endian uint16 at payload offset off (0 = first payload byte).
func (e *Entry) u2(off int) int {
	return int(binary.BigEndian.Uint16(e.Raw[1+off : 3+off]))
}

// RefIndices returns the constant pool indices this entry references,
// classified as either Utf8 references (names and descriptors) or
// indirect references to other pool entries.
func (e *Entry) RefIndices() (utf8Refs, otherRefs []int) {
	switch e.Tag {
	case TagClass, TagMethodType, TagModule, TagPackage:
		return []int{e.u2(0)}, nil
	case TagString:
		// String references a Utf8 entry, but as a literal operand, not a
		// structural name. Reported as "other" so callers treat it apart.
		return nil, []int{e.u2(0)}
	case TagNameAndType:
		return []int{e.u2(0), e.u2(2)}, nil
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		return nil, []int{e.u2(0), e.u2(2)}
	case TagMethodHandle:
		return nil, []int{e.u2(1)}
	case TagDynamic, TagInvokeDynamic:
		// bootstrap_method_attr_index is not a pool index; only the
		// name_and_type_index is.
		return nil, []int{e.u2(2)}
	default:
		return nil, nil
	}
}

// File is a parsed class file: header, constant pool, opaque tail.
type File struct {
	// MinorVersion and MajorVersion are the class file format version.
	MinorVersion uint16
	MajorVersion uint16

	// Entries holds the constant pool indexed from 1 at Entries[index-1].
	// Long and Double entries consume two slots; the second slot is nil.
	Entries []*Entry

	// header is the first 10 bytes, kept verbatim.
	header []byte
	// Tail is everything after the constant pool, kept verbatim.
	Tail []byte
}

// Parse reads a class file from data. The returned File keeps byte-exact
// provenance for every region, so Bytes() with no edits reproduces data.
func Parse(data []byte) (*File, error) {
	if len(data) < headerSize {
		return nil, &ParseError{Offset: 0, Msg: "truncated header"}
	}
	if binary.BigEndian.Uint32(data[0:4]) != Magic {
		return nil, &ParseError{Offset: 0, Msg: fmt.Sprintf("bad magic 0x%08X", binary.BigEndian.Uint32(data[0:4]))}
	}

	f := &File{
		MinorVersion: binary.BigEndian.Uint16(data[4:6]),
		MajorVersion: binary.BigEndian.Uint16(data[6:8]),
		header:       append([]byte(nil), data[:headerSize]...),
	}
	if f.MajorVersion < MinMajorVersion || f.MajorVersion > MaxMajorVersion {
		return nil, &ParseError{Offset: 6, Msg: fmt.Sprintf("unsupported major version %d", f.MajorVersion)}
	}

	// constant_pool_count is the number of entries plus one.
	count := int(binary.BigEndian.Uint16(data[8:10]))
	f.Entries = make([]*Entry, 0, count)

	off := headerSize
	for i := 1; i < count; {
		if off >= len(data) {
			return nil, &ParseError{Offset: off, Msg: "truncated constant pool"}
		}
		start := off
		tag := Tag(data[off])
		off++

		size := payloadSize(tag)
		switch size {
		case -2:
			// Some obfuscators pad the pool with one junk entry in the
			// final slot. Tolerate exactly that: stop the pool early and
			// let the junk byte become part of the opaque tail.
			if i == count-1 {
				off = start
				goto poolDone
			}
			return nil, &ParseError{Offset: start, Msg: fmt.Sprintf("unknown constant pool tag %d", tag)}

		case -1: // Utf8
			if off+2 > len(data) {
				return nil, &ParseError{Offset: off, Msg: "truncated Utf8 length"}
			}
			length := int(binary.BigEndian.Uint16(data[off : off+2]))
			off += 2
			if off+length > len(data) {
				return nil, &ParseError{Offset: off, Msg: "truncated Utf8 payload"}
			}
			payload := data[off : off+length]
			off += length

			e := &Entry{
				Index:   i,
				Tag:     tag,
				Raw:     append([]byte(nil), data[start:off]...),
				origLen: length,
			}
			e.Text, e.decodeErr = mutf8.Decode(payload)
			f.Entries = append(f.Entries, e)
			i++

		default:
			if off+size > len(data) {
				return nil, &ParseError{Offset: off, Msg: fmt.Sprintf("truncated %s entry", tag)}
			}
			off += size
			f.Entries = append(f.Entries, &Entry{
				Index:   i,
				Tag:     tag,
				Raw:     append([]byte(nil), data[start:off]...),
				origLen: size,
			})
			if tag == TagLong || tag == TagDouble {
				// 8-byte entries take two slots; the second is a
				// reserved placeholder.
				f.Entries = append(f.Entries, nil)
				i += 2
			} else {
				i++
			}
		}
	}

poolDone:
	f.Tail = append([]byte(nil), data[off:]...)
	return f, nil
}

func mustEntry(f *File, index int) (*Entry, error) {
	if index < 1 || index > len(f.Entries) {
		return nil, fmt.Errorf("constant pool index %d out of range 1..%d", index, len(f.Entries))
	}
	e := f.Entries[index-1]
	if e == nil {
		return nil, fmt.Errorf("constant pool index %d is a reserved placeholder slot", index)
	}
	return e, nil
}

// EntryAt returns the entry at a 1-based pool index, or nil for placeholder
// slots and out-of-range indices.
func (f *File) EntryAt(index int) *Entry {
	if index < 1 || index > len(f.Entries) {
		return nil
	}
	return f.Entries[index-1]
}

// Utf8Entries returns the Utf8 entries whose payload decoded cleanly,
// in pool order.
func (f *File) Utf8Entries() []*Entry {
	var out []*Entry
	for _, e := range f.Entries {
		if e != nil && e.IsUtf8() {
			out = append(out, e)
		}
	}
	return out
}

// SetText replaces the text of the Utf8 entry at the given pool index.
// Only the payload bytes of that entry change; indices and entry count are
// invariant across the rewrite.
func (f *File) SetText(index int, text string) error {
	e, err := mustEntry(f, index)
	if err != nil {
		return err
	}
	if e.Tag != TagUtf8 {
		return fmt.Errorf("constant pool entry %d is %s, not Utf8", index, e.Tag)
	}
	if e.decodeErr != nil {
		return fmt.Errorf("constant pool entry %d: original payload undecodable: %w", index, e.decodeErr)
	}
	if mutf8.EncodedLen(text) > 0xFFFF {
		return fmt.Errorf("constant pool entry %d: replacement text encodes to more than 65535 bytes", index)
	}
	if text == e.Text && !e.modified {
		return nil
	}
	e.Text = text
	e.modified = true
	return nil
}

// Bytes re-serializes the class file. Unmodified entries emit their exact
// original bytes; modified Utf8 entries re-encode through the codec with a
// recomputed length prefix. Header and tail are appended verbatim.
func (f *File) Bytes() []byte {
	var buf bytes.Buffer
	buf.Write(f.header)
	for _, e := range f.Entries {
		if e == nil {
			continue
		}
		if e.Tag == TagUtf8 && e.modified {
			payload := mutf8.Encode(e.Text)
			buf.WriteByte(byte(TagUtf8))
			var l [2]byte
			binary.BigEndian.PutUint16(l[:], uint16(len(payload)))
			buf.Write(l[:])
			buf.Write(payload)
			continue
		}
		buf.Write(e.Raw)
	}
	buf.Write(f.Tail)
	return buf.Bytes()
}
