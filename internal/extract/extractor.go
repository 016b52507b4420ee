package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrUnsupportedFormat is returned for file extensions other than PDF/DOCX.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Service pulls embedded raster images out of document containers and writes
// them to the extraction directory.
//
// Output order is best effort: page order for PDF and relationship-table
// order for DOCX, as reported by the container libraries. Stability across
// library versions is not guaranteed. Images are not deduplicated; a bitmap
// referenced twice comes out twice.
type Service struct {
	outputDir string
	log       *zap.Logger
}

func NewService(outputDir string, log *zap.Logger) *Service {
	return &Service{outputDir: outputDir, log: log}
}

// Extract dispatches on the file extension and returns the written image
// paths in extraction order.
func (s *Service) Extract(path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return s.extractPDF(path)
	case ".docx":
		return s.extractDOCX(path)
	default:
		return nil, fmt.Errorf("%w: %q (expected .pdf or .docx)", ErrUnsupportedFormat, ext)
	}
}

// outputBase mirrors the uploaded document's name with dots flattened, so
// extracted files sort next to each other.
func outputBase(path string) string {
	return strings.ReplaceAll(filepath.Base(path), ".", "_")
}
