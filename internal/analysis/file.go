package analysis

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"docwise-client/internal/pdfinfo"
	"docwise-client/internal/shared/telemetry"
)

// File is a document chosen for upload. It is a value: copying it copies the
// reference to the underlying bytes, which are read only at send time.
type File struct {
	Name  string
	Size  int64
	Pages int

	open func() (io.ReadCloser, error)
}

// FileFromPath references a file on disk. Pages is filled when the file
// parses as a PDF; an unreadable PDF is still returned.
func FileFromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	if !info.Mode().IsRegular() {
		return File{}, fmt.Errorf("%s is not a regular file", path)
	}
	f := File{
		Name: filepath.Base(path),
		Size: info.Size(),
		open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
	if meta, err := pdfinfo.InspectFile(path); err == nil {
		f.Pages = meta.Pages
	} else {
		telemetry.Debug("analysis.pdf_inspect_failed", map[string]any{"path": path, "error": err})
	}
	return f, nil
}

// FileFromBytes wraps in-memory content.
func FileFromBytes(name string, data []byte) File {
	f := File{
		Name: name,
		Size: int64(len(data)),
		open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
	if meta, err := pdfinfo.Inspect(bytes.NewReader(data), int64(len(data))); err == nil {
		f.Pages = meta.Pages
	}
	return f
}

// Open returns the file contents.
func (f File) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, fmt.Errorf("file %q has no content", f.Name)
	}
	return f.open()
}

func hasPDFSuffix(name string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(name)), ".pdf")
}
