// Package jarfile adapts jar (zip) archives for the class rewriting
// pipeline. Entries are visited in their original order; class members are
// handed to a rewrite callback, every other member is copied with its
// compressed bytes, compression method, and metadata untouched.
//
// The lossless guarantee rests on raw copying: unmodified entries go
// through OpenRaw/CreateRaw so they are never re-compressed. Only a member
// the callback actually rewrites gets a recomputed CRC-32 and sizes, and it
// keeps the compression method the entry already used.
package jarfile

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"strings"
)

// ClassExt is the archive member suffix that marks a class file.
const ClassExt = ".class"

// IsClassEntry reports whether an archive member name is a class file.
func IsClassEntry(name string) bool {
	return strings.HasSuffix(name, ClassExt)
}

// RewriteFunc receives a class member's name and original bytes and returns
// the replacement bytes. Returning (nil, nil) keeps the member verbatim —
// this is how parse failures are isolated: the member is skipped, not the
// archive.
type RewriteFunc func(name string, data []byte) ([]byte, error)

// Classes calls fn for every class member of the archive at path, in
// original order, with the member's decompressed bytes.
func Classes(path string, fn func(name string, data []byte) error) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer zr.Close()

	for _, e := range zr.File {
		if !IsClassEntry(e.Name) || e.FileInfo().IsDir() {
			continue
		}
		data, err := readEntry(e)
		if err != nil {
			return fmt.Errorf("%s!%s: %w", path, e.Name, err)
		}
		if err := fn(e.Name, data); err != nil {
			return err
		}
	}
	return nil
}

// List returns the names of all class members in original order.
func List(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer zr.Close()

	var names []string
	for _, e := range zr.File {
		if IsClassEntry(e.Name) && !e.FileInfo().IsDir() {
			names = append(names, e.Name)
		}
	}
	return names, nil
}

// Rewrite copies the archive at src to dst, substituting rewritten bytes
// for class members the callback changes. It returns the number of members
// actually rewritten.
func Rewrite(src, dst string, fn RewriteFunc) (rewritten int, err error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", src, err)
	}
	defer zr.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", dst, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	for _, e := range zr.File {
		var newData []byte
		if IsClassEntry(e.Name) && !e.FileInfo().IsDir() {
			data, rerr := readEntry(e)
			if rerr != nil {
				return rewritten, fmt.Errorf("%s!%s: %w", src, e.Name, rerr)
			}
			if newData, err = fn(e.Name, data); err != nil {
				return rewritten, fmt.Errorf("%s!%s: %w", src, e.Name, err)
			}
		}

		if newData == nil {
			if err := copyRaw(zw, e); err != nil {
				return rewritten, fmt.Errorf("%s!%s: %w", src, e.Name, err)
			}
			continue
		}
		if err := writeRewritten(zw, e, newData); err != nil {
			return rewritten, fmt.Errorf("%s!%s: %w", src, e.Name, err)
		}
		rewritten++
	}

	if err := zw.Close(); err != nil {
		return rewritten, fmt.Errorf("finalizing %s: %w", dst, err)
	}
	return rewritten, out.Close()
}

// readEntry decompresses one archive member.
func readEntry(e *zip.File) ([]byte, error) {
	rc, err := e.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// copyRaw transfers an entry without decompressing it, preserving the
// stored compressed bytes, CRC, sizes, method, and timestamps exactly.
func copyRaw(zw *zip.Writer, e *zip.File) error {
	fh := e.FileHeader
	w, err := zw.CreateRaw(&fh)
	if err != nil {
		return err
	}
	r, err := e.OpenRaw()
	if err != nil {
		return err
	}
	_, err = io.Copy(w, r)
	return err
}

// writeRewritten stores replacement bytes for a member, re-using the
// original compression method and metadata while letting the writer
// recompute CRC-32 and both size fields.
func writeRewritten(zw *zip.Writer, e *zip.File, data []byte) error {
	fh := e.FileHeader
	fh.CRC32 = 0
	fh.CompressedSize = 0
	fh.UncompressedSize = 0
	fh.CompressedSize64 = 0
	fh.UncompressedSize64 = 0
	w, err := zw.CreateHeader(&fh)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
