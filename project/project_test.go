package project

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"clokit/classfile"
	"clokit/classify"
	"clokit/mutf8"
)

// buildClass assembles a synthetic class file. The pool is laid out so the
// "Hello" literal lands at index 5, referenced by a String entry at 6:
//
//	1: Utf8 "com/example/Main"   4: Class → 3
//	2: Class → 1                 5: Utf8 "Hello"
//	3: Utf8 "java/lang/Object"   6: String → 5
const helloIndex = 5

func buildClass() []byte {
	var buf bytes.Buffer
	u2 := func(v int) {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(v))
		buf.Write(b[:])
	}
	utf8 := func(s string) {
		payload := mutf8.Encode(s)
		buf.WriteByte(byte(classfile.TagUtf8))
		u2(len(payload))
		buf.Write(payload)
	}

	var h [4]byte
	binary.BigEndian.PutUint32(h[:], classfile.Magic)
	buf.Write(h[:])
	buf.Write([]byte{0, 0, 0, 52})
	u2(7) // constant_pool_count = 6 entries + 1

	utf8("com/example/Main")
	buf.WriteByte(byte(classfile.TagClass))
	u2(1)
	utf8("java/lang/Object")
	buf.WriteByte(byte(classfile.TagClass))
	u2(3)
	utf8("Hello")
	buf.WriteByte(byte(classfile.TagString))
	u2(5)

	buf.Write([]byte{0x00, 0x21, 0x00, 0x02, 0x00, 0x04})
	buf.Write(make([]byte, 8))
	return buf.Bytes()
}

func writeClassFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "Main.class")
	if err := os.WriteFile(path, buildClass(), 0644); err != nil {
		t.Fatalf("writing class fixture: %v", err)
	}
	return path
}

func TestExtractClassFile(t *testing.T) {
	dir := t.TempDir()
	path := writeClassFile(t, dir)

	p, err := Extract([]string{path}, ExtractOptions{TargetLang: "ko"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(p.Files) != 1 {
		t.Fatalf("files = %d, want 1", len(p.Files))
	}
	rec := p.Files[0]
	if rec.Kind != KindClass {
		t.Errorf("kind = %s, want class", rec.Kind)
	}
	data, _ := os.ReadFile(path)
	if rec.Hash != Hash(data) {
		t.Errorf("recorded hash %s does not match file hash", rec.Hash)
	}

	// Three Utf8 entries; only "Hello" is translatable.
	if len(p.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(p.Entries))
	}
	byIndex := make(map[int]*StringEntry)
	for _, e := range p.Entries {
		byIndex[e.Index] = e
	}
	if e := byIndex[helloIndex]; e == nil || e.Classification != classify.Translatable || e.Original != "Hello" {
		t.Errorf("entry %d = %+v, want translatable Hello", helloIndex, byIndex[helloIndex])
	}
	if e := byIndex[1]; e == nil || e.Classification != classify.Structural {
		t.Errorf("class name entry = %+v, want structural", byIndex[1])
	}
	if got := len(p.Translatable()); got != 1 {
		t.Errorf("Translatable() = %d, want 1", got)
	}
}

func TestExtractSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	writeClassFile(t, dir)
	bad := filepath.Join(dir, "Broken.class")
	if err := os.WriteFile(bad, []byte("not a class"), 0644); err != nil {
		t.Fatal(err)
	}

	var errLogged bool
	p, err := Extract([]string{dir}, ExtractOptions{
		OnError: func(string, ...any) { errLogged = true },
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(p.Files) != 1 {
		t.Errorf("files = %d, want 1 (malformed skipped)", len(p.Files))
	}
	if !errLogged {
		t.Error("malformed file skipped silently")
	}
}

func TestExtractIncludePatterns(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "com", "example")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	writeClassFile(t, sub)
	writeClassFile(t, dir)

	p, err := Extract([]string{dir}, ExtractOptions{Include: []string{"com/**/*.class"}})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(p.Files) != 1 || filepath.Dir(p.Files[0].Path) != sub {
		t.Errorf("include pattern matched %v", p.Files)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeClassFile(t, dir)
	p, err := Extract([]string{path}, ExtractOptions{TargetLang: "ko", TargetCharset: "EUC-KR"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, e := range p.Entries {
		if e.Index == helloIndex {
			e.Translated = "안녕"
			e.Status = StatusDone
		}
	}

	projPath := filepath.Join(dir, "proj.yaml")
	if err := p.Save(projPath); err != nil {
		t.Fatalf("Save: %v", err)
	}
	p2, err := Load(projPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if p2.Version != Version || p2.TargetLang != "ko" || p2.TargetCharset != "EUC-KR" {
		t.Errorf("metadata lost: %+v", p2)
	}
	if !reflect.DeepEqual(p.Files, p2.Files) {
		t.Errorf("files did not round-trip:\n%+v\n%+v", p.Files[0], p2.Files[0])
	}
	if len(p.Entries) != len(p2.Entries) {
		t.Fatalf("entry count %d → %d", len(p.Entries), len(p2.Entries))
	}
	for i := range p.Entries {
		if !reflect.DeepEqual(p.Entries[i], p2.Entries[i]) {
			t.Errorf("entry %d did not round-trip:\n%+v\n%+v", i, p.Entries[i], p2.Entries[i])
		}
	}
}

func TestSaveReplacesExistingFileAtomically(t *testing.T) {
	dir := t.TempDir()
	projPath := filepath.Join(dir, "proj.yaml")

	p := &Project{
		Version: Version,
		Entries: []*StringEntry{
			{Source: "a.class", Index: 5, Original: "Hi", Classification: classify.Translatable, Status: StatusPending},
		},
	}
	if err := p.Save(projPath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Overwriting goes through a temp sibling plus rename, never a direct
	// truncate of the only copy.
	p.Entries[0].Translated = "안녕"
	p.Entries[0].Status = StatusDone
	if err := p.Save(projPath); err != nil {
		t.Fatalf("Save over existing: %v", err)
	}

	p2, err := Load(projPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p2.Entries[0].Translated != "안녕" || p2.Entries[0].Status != StatusDone {
		t.Errorf("overwrite lost: %+v", p2.Entries[0])
	}

	names, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, de := range names {
		if strings.Contains(de.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", de.Name())
		}
	}
	if len(names) != 1 {
		t.Errorf("unexpected files in dir: %v", names)
	}
}

func TestLoadRejectsMissingVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "proj.yaml")
	if err := os.WriteFile(path, []byte("files: []\nentries: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("project without version tag accepted")
	}
}

func TestLoadResetsInFlight(t *testing.T) {
	data := []byte("version: 1\nentries:\n  - source: a.class\n    index: 5\n    original: Hi\n    classification: translatable\n    status: in-flight\n")
	p, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.Entries[0].Status != StatusPending {
		t.Errorf("in-flight status survived load: %s", p.Entries[0].Status)
	}
}

// extractHello builds the standard fixture project with "Hello" translated.
func extractHello(t *testing.T, dir string) (*Project, string) {
	t.Helper()
	path := writeClassFile(t, dir)
	p, err := Extract([]string{path}, ExtractOptions{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, e := range p.Entries {
		if e.Index == helloIndex {
			e.Translated = "안녕"
			e.Status = StatusDone
		}
	}
	return p, path
}

func TestApplyScenario(t *testing.T) {
	dir := t.TempDir()
	p, path := extractHello(t, dir)
	original := buildClass()

	res := Apply(p, ApplyOptions{})
	if failed := res.Failed(); len(failed) != 0 {
		t.Fatalf("apply failed: %+v", failed)
	}
	if res.Updated() != 1 {
		t.Errorf("updated = %d, want 1", res.Updated())
	}

	rewritten, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	f, err := classfile.Parse(rewritten)
	if err != nil {
		t.Fatalf("rewritten file does not parse: %v", err)
	}
	if got := f.EntryAt(helloIndex).Text; got != "안녕" {
		t.Errorf("entry %d = %q, want 안녕", helloIndex, got)
	}

	// Every byte outside the edited entry matches the original: rebuild
	// the expectation through the model directly.
	exp, err := classfile.Parse(original)
	if err != nil {
		t.Fatal(err)
	}
	if err := exp.SetText(helloIndex, "안녕"); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rewritten, exp.Bytes()) {
		t.Error("rewritten file has unexpected byte differences")
	}

	// Backup holds the pristine original.
	bak, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if !bytes.Equal(bak, original) {
		t.Error("backup does not match the original bytes")
	}
}

func TestApplyStaleSource(t *testing.T) {
	dir := t.TempDir()
	p, path := extractHello(t, dir)

	// Modify the target behind the project's back.
	tampered := append(buildClass(), 0x00)
	if err := os.WriteFile(path, tampered, 0644); err != nil {
		t.Fatal(err)
	}

	res := Apply(p, ApplyOptions{})
	failed := res.Failed()
	if len(failed) != 1 {
		t.Fatalf("failed = %d, want 1", len(failed))
	}
	var stale *StaleSourceError
	if !errors.As(failed[0].Err, &stale) {
		t.Fatalf("error = %v, want *StaleSourceError", failed[0].Err)
	}

	// Not a single byte of the stale target was modified.
	after, _ := os.ReadFile(path)
	if !bytes.Equal(after, tampered) {
		t.Error("stale target was written to")
	}
	if _, err := os.Stat(path + ".bak"); !errors.Is(err, os.ErrNotExist) {
		t.Error("backup created for a stale target")
	}
}

func TestApplyNothingDoneLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	path := writeClassFile(t, dir)
	p, err := Extract([]string{path}, ExtractOptions{})
	if err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(path)
	info, _ := os.Stat(path)

	res := Apply(p, ApplyOptions{})
	if len(res.Failed()) != 0 || res.Updated() != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("file changed with no done entries")
	}
	info2, _ := os.Stat(path)
	if !info.ModTime().Equal(info2.ModTime()) {
		t.Error("file rewritten with no done entries")
	}
}

func TestApplyNeverMutatesStructural(t *testing.T) {
	dir := t.TempDir()
	p, path := extractHello(t, dir)
	// Force a hostile state: a structural entry marked done with a
	// translation. Apply must ignore it.
	for _, e := range p.Entries {
		if e.Index == 1 {
			e.Translated = "evil/Name"
			e.Status = StatusDone
		}
	}

	res := Apply(p, ApplyOptions{})
	if len(res.Failed()) != 0 {
		t.Fatalf("apply failed: %+v", res.Failed())
	}
	data, _ := os.ReadFile(path)
	f, _ := classfile.Parse(data)
	if got := f.EntryAt(1).Text; got != "com/example/Main" {
		t.Errorf("structural entry mutated to %q", got)
	}
}

func TestApplyJar(t *testing.T) {
	dir := t.TempDir()
	jarPath := filepath.Join(dir, "app.jar")
	jf, err := os.Create(jarPath)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(jf)
	w, _ := zw.CreateHeader(&zip.FileHeader{Name: "com/example/Main.class", Method: zip.Deflate})
	if _, err := w.Write(buildClass()); err != nil {
		t.Fatal(err)
	}
	w, _ = zw.CreateHeader(&zip.FileHeader{Name: "META-INF/MANIFEST.MF", Method: zip.Store})
	if _, err := w.Write([]byte("Manifest-Version: 1.0\r\n\r\n")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	jf.Close()

	p, err := Extract([]string{jarPath}, ExtractOptions{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if p.Files[0].Kind != KindJar || p.Files[0].Members != 1 {
		t.Fatalf("jar record = %+v", p.Files[0])
	}
	for _, e := range p.Entries {
		if e.Index == helloIndex && e.Member == "com/example/Main.class" {
			e.Translated = "안녕"
			e.Status = StatusDone
		}
	}

	res := Apply(p, ApplyOptions{})
	if len(res.Failed()) != 0 {
		t.Fatalf("apply failed: %+v", res.Failed())
	}

	zr, err := zip.OpenReader(jarPath)
	if err != nil {
		t.Fatalf("rewritten jar unreadable: %v", err)
	}
	defer zr.Close()
	for _, e := range zr.File {
		switch e.Name {
		case "com/example/Main.class":
			rc, _ := e.Open()
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				t.Fatal(err)
			}
			f, err := classfile.Parse(data)
			if err != nil {
				t.Fatalf("rewritten member does not parse: %v", err)
			}
			if f.EntryAt(helloIndex).Text != "안녕" {
				t.Error("member text not substituted")
			}
		case "META-INF/MANIFEST.MF":
			if e.Method != zip.Store {
				t.Error("manifest compression method changed")
			}
		}
	}
}
