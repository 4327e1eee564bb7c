package project

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"clokit/charsetcheck"
	"clokit/classfile"
	"clokit/classify"
	"clokit/jarfile"
)

// ExtractOptions controls project extraction.
type ExtractOptions struct {
	// Include restricts files found under directory arguments to those
	// whose slash-relative path matches at least one doublestar pattern
	// (e.g. "com/example/**/*.class"). Empty means everything.
	Include []string
	// TargetLang and TargetCharset are stored on the project.
	TargetLang    string
	TargetCharset string
	// OnLog and OnError receive progress and per-file failure reports.
	OnLog   func(format string, args ...any)
	OnError func(format string, args ...any)
}

func (o *ExtractOptions) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *ExtractOptions) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

// Extract parses every class file and jar reachable from paths, classifies
// their Utf8 pool entries, and materializes a fresh Project. A file that
// fails to parse is reported and skipped; it never aborts the batch.
func Extract(paths []string, opts ExtractOptions) (*Project, error) {
	files, err := collectSources(paths, opts.Include)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no class files or jar archives found")
	}

	var validator *charsetcheck.Validator
	if opts.TargetCharset != "" {
		validator, err = charsetcheck.New(opts.TargetCharset)
		if err != nil {
			return nil, err
		}
	}

	p := &Project{
		Version:       Version,
		TargetLang:    opts.TargetLang,
		TargetCharset: opts.TargetCharset,
	}

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			opts.logError("cannot read %s: %v", path, err)
			continue
		}
		rec := &SourceFileRecord{Path: path, Hash: Hash(data)}

		switch {
		case strings.HasSuffix(path, jarfile.ClassExt):
			rec.Kind = KindClass
			entries, err := extractClass(path, "", data, validator)
			if err != nil {
				opts.logError("skipping %s: %v", path, err)
				continue
			}
			p.Files = append(p.Files, rec)
			p.Entries = append(p.Entries, entries...)
			opts.log("extracted %s: %d entries", path, len(entries))

		case strings.HasSuffix(path, ".jar"):
			rec.Kind = KindJar
			err := jarfile.Classes(path, func(member string, data []byte) error {
				rec.Members++
				entries, err := extractClass(path, member, data, validator)
				if err != nil {
					// A malformed member is excluded; the jar itself
					// stays in the project.
					rec.Skipped = append(rec.Skipped, member)
					opts.logError("skipping %s!%s: %v", path, member, err)
					return nil
				}
				p.Entries = append(p.Entries, entries...)
				return nil
			})
			if err != nil {
				opts.logError("skipping %s: %v", path, err)
				continue
			}
			p.Files = append(p.Files, rec)
			opts.log("extracted %s: %d class members (%d skipped)", path, rec.Members, len(rec.Skipped))
		}
	}

	if len(p.Files) == 0 {
		return nil, fmt.Errorf("no usable source files (all failed to parse)")
	}
	return p, nil
}

// extractClass parses one class file (or jar member) and builds its
// StringEntry set.
func extractClass(source, member string, data []byte, validator *charsetcheck.Validator) ([]*StringEntry, error) {
	f, err := classfile.Parse(data)
	if err != nil {
		return nil, err
	}
	classes := classify.Classify(f)

	var out []*StringEntry
	for _, e := range f.Entries {
		if e == nil || e.Tag != classfile.TagUtf8 {
			continue
		}
		if !e.IsUtf8() {
			// Payload the codec rejected: recorded nowhere, rewritten
			// never — the raw bytes pass through verbatim.
			continue
		}
		se := &StringEntry{
			Source:         source,
			Member:         member,
			Index:          e.Index,
			Original:       e.Text,
			Classification: classes[e.Index],
			Status:         StatusPending,
			CharsetValid:   true,
		}
		if validator != nil {
			ok, bad := validator.Validate(e.Text)
			se.CharsetValid = ok
			se.Unmappable = string(bad)
		}
		out = append(out, se)
	}
	return out, nil
}

// collectSources expands file and directory arguments into a list of class
// and jar paths, applying include patterns inside directories.
func collectSources(paths []string, include []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			if isSource(p) {
				out = append(out, p)
			}
			continue
		}
		root := p
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isSource(path) {
				return nil
			}
			if len(include) > 0 {
				rel, err := filepath.Rel(root, path)
				if err != nil {
					return err
				}
				if !matchAny(include, filepath.ToSlash(rel)) {
					return nil
				}
			}
			out = append(out, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	}
	return out, nil
}

func isSource(path string) bool {
	return strings.HasSuffix(path, jarfile.ClassExt) || strings.HasSuffix(path, ".jar")
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}
