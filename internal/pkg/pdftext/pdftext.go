package pdftext

import (
	"bytes"
	"io"
	"os"

	"github.com/ledongthuc/pdf"
)

// ExtractText pulls plain text out of a PDF file, best effort. An empty
// string with nil error means the document had no extractable text.
func ExtractText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if len(b) == 0 {
		return "", nil
	}
	readerAt := bytes.NewReader(b)
	pdfReader, err := pdf.NewReader(readerAt, int64(len(b)))
	if err != nil {
		return "", err
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
