package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"clokit/classfile"
	"clokit/classify"
	"clokit/jarfile"
)

// StaleSourceError reports that a target file changed since extraction:
// its current content hash no longer matches the recorded one. Apply never
// writes to a stale target.
type StaleSourceError struct {
	Path string
	Want string // hash recorded at extraction time
	Got  string // hash of the file's current bytes
}

func (e *StaleSourceError) Error() string {
	return fmt.Sprintf("%s: source changed since extraction (hash %s, recorded %s)", e.Path, e.Got, e.Want)
}

// pathLocks serializes writers per target path. Concurrent writers would
// corrupt the backup/rename sequence.
var pathLocks = struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}{m: make(map[string]*sync.Mutex)}

func lockPath(path string) *sync.Mutex {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}
	pathLocks.mu.Lock()
	defer pathLocks.mu.Unlock()
	l, ok := pathLocks.m[key]
	if !ok {
		l = &sync.Mutex{}
		pathLocks.m[key] = l
	}
	return l
}

// ApplyOptions controls Apply.
type ApplyOptions struct {
	// NoBackup skips the .bak copy. By default the first apply to a file
	// leaves a .bak of the pristine original next to it.
	NoBackup bool
	// DryRun performs every check and rebuild but writes nothing.
	DryRun bool
	OnLog  func(format string, args ...any)
}

func (o *ApplyOptions) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

// FileResult is the per-file outcome of an apply run.
type FileResult struct {
	Path       string
	Updated    int    // entries substituted
	BackupPath string // set when a backup was created
	Err        error  // nil on success
}

// ApplyResult collects per-file outcomes. File failures are isolated: one
// stale or unwritable target never aborts the others.
type ApplyResult struct {
	Files []FileResult
}

// Failed returns the results that carry an error.
func (r *ApplyResult) Failed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Updated sums substituted entries across files.
func (r *ApplyResult) Updated() int {
	n := 0
	for _, f := range r.Files {
		n += f.Updated
	}
	return n
}

// substitutions maps member name → pool index → replacement text.
// Standalone class files use the empty member name.
type substitutions map[string]map[int]string

// Apply rewrites every recorded source file, substituting translated text
// for entries with status done. Per file it is all-or-nothing: a staleness
// mismatch or write failure leaves that file byte-identical to before.
// Apply and Save on the same Project are mutually exclusive.
func Apply(p *Project, opts ApplyOptions) *ApplyResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Only done, translatable entries are ever substituted. Structural
	// entries are excluded here unconditionally: no status value can
	// smuggle one into the rewrite.
	subs := make(map[string]substitutions)
	for _, e := range p.Entries {
		if e.Status != StatusDone || e.Translated == "" {
			continue
		}
		if e.Classification != classify.Translatable {
			continue
		}
		bySource, ok := subs[e.Source]
		if !ok {
			bySource = make(substitutions)
			subs[e.Source] = bySource
		}
		if bySource[e.Member] == nil {
			bySource[e.Member] = make(map[int]string)
		}
		bySource[e.Member][e.Index] = e.Translated
	}

	res := &ApplyResult{}
	for _, rec := range p.Files {
		fr := applyFile(rec, subs[rec.Path], &opts)
		if fr.Err != nil {
			opts.log("apply %s failed: %v", rec.Path, fr.Err)
		} else {
			opts.log("applied %s: %d entries", rec.Path, fr.Updated)
		}
		res.Files = append(res.Files, fr)
	}
	return res
}

func applyFile(rec *SourceFileRecord, subs substitutions, opts *ApplyOptions) FileResult {
	fr := FileResult{Path: rec.Path}

	lock := lockPath(rec.Path)
	lock.Lock()
	defer lock.Unlock()

	current, err := os.ReadFile(rec.Path)
	if err != nil {
		fr.Err = fmt.Errorf("reading target: %w", err)
		return fr
	}
	if got := Hash(current); got != rec.Hash {
		fr.Err = &StaleSourceError{Path: rec.Path, Want: rec.Hash, Got: got}
		return fr
	}
	if len(subs) == 0 {
		return fr // nothing translated for this file; leave it untouched
	}

	// Rebuild the rewritten bytes into a temporary file next to the
	// target, then back up and atomically swap.
	dir := filepath.Dir(rec.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(rec.Path)+".tmp-*")
	if err != nil {
		fr.Err = fmt.Errorf("creating temp file: %w", err)
		return fr
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath) // no-op after a successful rename

	switch rec.Kind {
	case KindClass:
		fr.Updated, err = rewriteClassFile(current, subs[""], tmpPath)
	case KindJar:
		fr.Updated, err = rewriteJar(rec.Path, subs, tmpPath)
	default:
		err = fmt.Errorf("unknown source kind %q", rec.Kind)
	}
	if err != nil {
		fr.Err = err
		return fr
	}
	if fr.Updated == 0 || opts.DryRun {
		return fr
	}

	if mode, err := os.Stat(rec.Path); err == nil {
		_ = os.Chmod(tmpPath, mode.Mode())
	}

	if !opts.NoBackup {
		backup := rec.Path + ".bak"
		// Keep the first backup: it is the pristine original.
		if _, err := os.Stat(backup); errors.Is(err, os.ErrNotExist) {
			if err := os.WriteFile(backup, current, 0644); err != nil {
				fr.Err = fmt.Errorf("creating backup: %w", err)
				return fr
			}
			fr.BackupPath = backup
		}
	}

	if err := os.Rename(tmpPath, rec.Path); err != nil {
		// The rename failed; if the target was damaged mid-swap, put the
		// bytes we read back. A half-written target is never left behind.
		if cur, rerr := os.ReadFile(rec.Path); rerr != nil || Hash(cur) != rec.Hash {
			_ = os.WriteFile(rec.Path, current, 0644)
		}
		fr.Err = fmt.Errorf("replacing target: %w", err)
		return fr
	}
	return fr
}

// rewriteClassFile applies substitutions to standalone class file bytes and
// writes the result to dst.
func rewriteClassFile(data []byte, texts map[int]string, dst string) (int, error) {
	if len(texts) == 0 {
		return 0, nil
	}
	f, err := classfile.Parse(data)
	if err != nil {
		return 0, err
	}
	n := 0
	for ix, text := range texts {
		if err := f.SetText(ix, text); err != nil {
			return 0, err
		}
		n++
	}
	if err := os.WriteFile(dst, f.Bytes(), 0644); err != nil {
		return 0, fmt.Errorf("writing rewritten class: %w", err)
	}
	return n, nil
}

// rewriteJar applies substitutions to the jar at src, writing the rewritten
// archive to dst. Members without substitutions are copied raw.
func rewriteJar(src string, subs substitutions, dst string) (int, error) {
	updated := 0
	_, err := jarfile.Rewrite(src, dst, func(member string, data []byte) ([]byte, error) {
		texts := subs[member]
		if len(texts) == 0 {
			return nil, nil
		}
		f, err := classfile.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("member no longer parses: %w", err)
		}
		for ix, text := range texts {
			if err := f.SetText(ix, text); err != nil {
				return nil, err
			}
			updated++
		}
		return f.Bytes(), nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}
