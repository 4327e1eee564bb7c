// Package project implements the clokit project file — the persistent
// record of every string extracted from a set of class files and jars,
// together with the source-file identity needed for lossless, repeatable
// apply cycles.
//
// A project is created by Extract, saved and loaded as a single versioned
// YAML file, filled in by the translation coordinator, and consumed by
// Apply. It is the only stateful aggregate in the pipeline and is always
// passed explicitly.
package project

import (
	"crypto/md5"
	"fmt"
	"sync"

	"clokit/classify"
)

// Version is the project file format version.
const Version = 1

// SourceKind distinguishes the two container formats.
type SourceKind string

const (
	KindClass SourceKind = "class"
	KindJar   SourceKind = "jar"
)

// Status tracks an entry through the translation pipeline.
type Status string

const (
	StatusPending  Status = "pending"
	StatusInFlight Status = "in-flight"
	StatusDone     Status = "done"
	StatusFailed   Status = "failed"
)

// StringEntry is one candidate translatable unit: a single Utf8 constant
// pool entry in a single class file (possibly inside a jar).
//
// Entries are created during extraction, mutated by the classifier override
// (review) and the batch coordinator, and never deleted except on project
// rebuild.
type StringEntry struct {
	// Source is the path of the class file or jar the entry came from.
	Source string `yaml:"source"`
	// Member is the archive member name for jar sources, empty for
	// standalone class files.
	Member string `yaml:"member,omitempty"`
	// Index is the 1-based constant pool index.
	Index int `yaml:"index"`

	// Original is the decoded text at extraction time.
	Original string `yaml:"original"`
	// Translated is empty until a translation lands.
	Translated string `yaml:"translated,omitempty"`

	Classification classify.Class `yaml:"classification"`
	Status         Status         `yaml:"status"`

	// CharsetValid is false when Original (or, once present, Translated)
	// contains code points the target runtime charset cannot represent.
	// Advisory only; never blocks anything.
	CharsetValid bool `yaml:"charsetValid"`
	// Unmappable lists the offending code points, if any.
	Unmappable string `yaml:"unmappable,omitempty"`
}

// Key identifies the entry within its project.
func (e *StringEntry) Key() string {
	if e.Member != "" {
		return fmt.Sprintf("%s!%s#%d", e.Source, e.Member, e.Index)
	}
	return fmt.Sprintf("%s#%d", e.Source, e.Index)
}

// SourceFileRecord captures the identity of one source file at extraction
// time, used to detect staleness before apply.
type SourceFileRecord struct {
	Path string     `yaml:"path"`
	Kind SourceKind `yaml:"kind"`
	// Hash is the MD5 hex digest of the file bytes at extraction time.
	Hash string `yaml:"hash"`
	// Members counts class members for jars (informational).
	Members int `yaml:"members,omitempty"`
	// Skipped records members (or the whole file) that failed to parse
	// and were excluded from extraction.
	Skipped []string `yaml:"skipped,omitempty"`
}

// Project owns the extracted state for one localization effort.
type Project struct {
	Version int `yaml:"version"`

	// TargetLang is the translation target language code.
	TargetLang string `yaml:"targetLang,omitempty"`
	// TargetCharset is the device runtime charset used for validation.
	TargetCharset string `yaml:"targetCharset,omitempty"`

	Files   []*SourceFileRecord `yaml:"files"`
	Entries []*StringEntry      `yaml:"entries"`

	// mu serializes Save and Apply against the same aggregate.
	mu sync.Mutex
}

// Hash computes the MD5 hex digest of raw file bytes; the same digest is
// stored in SourceFileRecord and recomputed at apply time.
func Hash(data []byte) string {
	return fmt.Sprintf("%x", md5.Sum(data))
}

// File returns the record for a source path, or nil.
func (p *Project) File(path string) *SourceFileRecord {
	for _, f := range p.Files {
		if f.Path == path {
			return f
		}
	}
	return nil
}

// EntriesFor returns the entries belonging to one source path, in
// extraction order.
func (p *Project) EntriesFor(path string) []*StringEntry {
	var out []*StringEntry
	for _, e := range p.Entries {
		if e.Source == path {
			out = append(out, e)
		}
	}
	return out
}

// Translatable returns entries currently eligible for dispatch: classified
// translatable with a pending status.
func (p *Project) Translatable() []*StringEntry {
	var out []*StringEntry
	for _, e := range p.Entries {
		if e.Classification == classify.Translatable && e.Status == StatusPending {
			out = append(out, e)
		}
	}
	return out
}

// Ambiguous returns entries awaiting manual review.
func (p *Project) Ambiguous() []*StringEntry {
	var out []*StringEntry
	for _, e := range p.Entries {
		if e.Classification == classify.Ambiguous {
			out = append(out, e)
		}
	}
	return out
}

// Stats summarizes the project for status reporting.
type Stats struct {
	Files        int
	Entries      int
	Translatable int
	Structural   int
	Ambiguous    int
	Done         int
	Failed       int
	CharsetRisk  int
}

// Stats computes per-classification and per-status counts.
func (p *Project) Stats() Stats {
	s := Stats{Files: len(p.Files), Entries: len(p.Entries)}
	for _, e := range p.Entries {
		switch e.Classification {
		case classify.Translatable:
			s.Translatable++
		case classify.Structural:
			s.Structural++
		case classify.Ambiguous:
			s.Ambiguous++
		}
		switch e.Status {
		case StatusDone:
			s.Done++
		case StatusFailed:
			s.Failed++
		}
		if !e.CharsetValid {
			s.CharsetRisk++
		}
	}
	return s
}
