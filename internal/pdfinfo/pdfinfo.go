package pdfinfo

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// ErrNotPDF is returned when the payload does not start with a PDF header.
var ErrNotPDF = errors.New("not a pdf document")

// Info describes a local PDF before upload.
type Info struct {
	SizeBytes int64
	Pages     int
}

// InspectFile reads size and page count from a PDF on disk.
func InspectFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return Info{}, err
	}
	return Inspect(f, st.Size())
}

// Inspect reads the page count of a PDF available as a ReaderAt.
// The parser panics on some malformed inputs; those are reported as errors.
func Inspect(r io.ReaderAt, size int64) (info Info, err error) {
	info.SizeBytes = size

	head := make([]byte, len(pdfMagic))
	if _, err := r.ReadAt(head, 0); err != nil || !bytes.Equal(head, pdfMagic) {
		return info, ErrNotPDF
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("parse pdf: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return info, fmt.Errorf("parse pdf: %w", err)
	}
	info.Pages = reader.NumPage()
	return info, nil
}
