// Package packager bundles generated report files into a single zip archive
// held in memory.
package packager

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/ginjaninja78/itbp-report-generator/internal/types"
	"github.com/ginjaninja78/itbp-report-generator/internal/xlsxwriter"
)

// File is one archive member.
type File struct {
	Name string
	Data []byte
}

// Render serializes named tables into XLSX files, in order.
func Render(tables []types.NamedTable) ([]File, error) {
	files := make([]File, 0, len(tables))
	for _, t := range tables {
		data, err := xlsxwriter.Write(t.Table)
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", t.Name, err)
		}
		files = append(files, File{Name: t.Name, Data: data})
	}
	return files, nil
}

// Pack writes files into a deflate-compressed zip archive. Member order
// follows files; modified is stamped on every member.
func Pack(files []File, modified time.Time) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if seen[f.Name] {
			return nil, fmt.Errorf("duplicate archive member %s", f.Name)
		}
		seen[f.Name] = true

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Unpack reads every member of a zip archive, in archive order.
func Unpack(data []byte) ([]File, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	files := make([]File, 0, len(zr.File))
	for _, zf := range zr.File {
		rc, err := zf.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", zf.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", zf.Name, err)
		}
		files = append(files, File{Name: zf.Name, Data: content})
	}
	return files, nil
}
