package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
)

// extractPDF walks pages in order and writes each embedded image the page
// references. Within a page, object-number order keeps output deterministic.
func (s *Service) extractPDF(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf failed: %w", err)
	}
	defer f.Close()

	pages, err := api.ExtractImagesRaw(f, nil, pdfmodel.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("extract pdf images failed: %w", err)
	}

	base := outputBase(path)
	var paths []string
	for _, pageImages := range pages {
		objNrs := make([]int, 0, len(pageImages))
		for nr := range pageImages {
			objNrs = append(objNrs, nr)
		}
		sort.Ints(objNrs)

		for idx, nr := range objNrs {
			img := pageImages[nr]
			data, err := io.ReadAll(img)
			if err != nil {
				return nil, fmt.Errorf("read embedded image (page %d, obj %d) failed: %w", img.PageNr, nr, err)
			}

			ext := img.FileType
			if ext == "" {
				ext = "png"
			}
			name := fmt.Sprintf("%s_p%d_img%d.%s", base, img.PageNr, idx+1, ext)
			out := filepath.Join(s.outputDir, name)
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return nil, fmt.Errorf("write extracted image failed: %w", err)
			}
			paths = append(paths, out)
		}
	}

	s.log.Info("pdf images extracted",
		zap.String("document", filepath.Base(path)),
		zap.Int("images", len(paths)))
	return paths, nil
}
