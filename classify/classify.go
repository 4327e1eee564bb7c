// Package classify partitions the Utf8 entries of a class file into
// translatable text, structural metadata, and an ambiguous remainder that
// is surfaced for human review instead of being auto-translated.
//
// The partition is built from a reverse-reference index over the constant
// pool: any Utf8 entry reachable as a class, member, or descriptor name is
// structural — editing it would desynchronize field/method resolution — and
// is never a rewrite candidate, regardless of what it looks like. A Utf8
// entry referenced by a String entry is a literal operand and therefore
// translatable. Unreferenced entries fall through to a shape heuristic.
//
// The classification is advisory (a human may override translatable vs
// ambiguous), but structural is a hard verdict the rest of the pipeline
// must honor.
package classify

import (
	"strings"

	"clokit/classfile"
)

// Class is the classification verdict for one Utf8 entry.
type Class string

const (
	// Translatable entries are user-facing text safe to rewrite.
	Translatable Class = "translatable"
	// Structural entries are names or descriptors; rewriting one breaks
	// resolution. Never a candidate.
	Structural Class = "structural"
	// Ambiguous entries could not be decided automatically and are left
	// to manual review.
	Ambiguous Class = "ambiguous"
)

// knownAttributes are attribute names predefined by the JVM specification.
// They live in the pool as plain Utf8 entries referenced only from the
// opaque (unparsed) regions of the file, so the reference scan cannot see
// them; matching by name keeps them out of the rewrite set.
var knownAttributes = map[string]bool{
	"ConstantValue": true, "Code": true, "StackMapTable": true,
	"Exceptions": true, "InnerClasses": true, "EnclosingMethod": true,
	"Synthetic": true, "Signature": true, "SourceFile": true,
	"SourceDebugExtension": true, "LineNumberTable": true,
	"LocalVariableTable": true, "LocalVariableTypeTable": true,
	"Deprecated": true, "RuntimeVisibleAnnotations": true,
	"RuntimeInvisibleAnnotations":          true,
	"RuntimeVisibleParameterAnnotations":   true,
	"RuntimeInvisibleParameterAnnotations": true,
	"RuntimeVisibleTypeAnnotations":        true,
	"RuntimeInvisibleTypeAnnotations":      true,
	"AnnotationDefault":                    true, "BootstrapMethods": true,
	"MethodParameters": true, "Module": true, "ModulePackages": true,
	"ModuleMainClass": true, "NestHost": true, "NestMembers": true,
	"Record": true, "PermittedSubclasses": true,
}

// Classify computes the verdict for every cleanly-decoded Utf8 entry in f,
// keyed by constant pool index.
func Classify(f *classfile.File) map[int]Class {
	structural := make(map[int]bool)
	literal := make(map[int]bool)

	for _, e := range f.Entries {
		if e == nil {
			continue
		}
		utf8Refs, otherRefs := e.RefIndices()
		for _, ix := range utf8Refs {
			structural[ix] = true
		}
		if e.Tag == classfile.TagString {
			for _, ix := range otherRefs {
				literal[ix] = true
			}
		}
	}

	out := make(map[int]Class)
	for _, e := range f.Entries {
		if e == nil || !e.IsUtf8() {
			continue
		}
		switch {
		case structural[e.Index]:
			// Structural always wins, even over a String reference.
			out[e.Index] = Structural
		case knownAttributes[e.Text]:
			out[e.Index] = Structural
		case literal[e.Index]:
			out[e.Index] = Translatable
		case looksTranslatable(e.Text):
			out[e.Index] = Translatable
		default:
			out[e.Index] = Ambiguous
		}
	}
	return out
}

// looksTranslatable is the heuristic for Utf8 entries no pool entry
// references: plain text yes, anything shaped like a descriptor or an
// internal name no.
func looksTranslatable(s string) bool {
	if s == "" {
		return false
	}
	if isDescriptor(s) {
		return false
	}
	// Internal class or package names ("com/example/Main", "java/util")
	// and generic signatures are metadata, not display text.
	if strings.ContainsAny(s, "/;<>") && !strings.ContainsRune(s, ' ') {
		return false
	}
	return true
}

// isDescriptor reports whether s is shaped like a JVM field or method type
// descriptor: starts with '(' or '[', or is a single primitive-type letter,
// or is an object type "Lpkg/Name;".
func isDescriptor(s string) bool {
	if strings.HasPrefix(s, "(") || strings.HasPrefix(s, "[") {
		return true
	}
	if len(s) == 1 && strings.ContainsAny(s, "BCDFIJSZV") {
		return true
	}
	if strings.HasPrefix(s, "L") && strings.HasSuffix(s, ";") {
		return true
	}
	return false
}
