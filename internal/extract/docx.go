package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const docxRelsPart = "word/_rels/document.xml.rels"

type docxRelationships struct {
	XMLName       xml.Name `xml:"Relationships"`
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Type   string `xml:"Type,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// extractDOCX reads the document's relationship table and writes every part
// whose target references an image. A DOCX is a zip container, so no
// word-processor library is needed for this.
func (s *Service) extractDOCX(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx container failed: %w", err)
	}
	defer zr.Close()

	parts := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		parts[f.Name] = f
	}

	relsFile, ok := parts[docxRelsPart]
	if !ok {
		return nil, fmt.Errorf("docx has no relationship table (%s)", docxRelsPart)
	}
	rels, err := readRelationships(relsFile)
	if err != nil {
		return nil, err
	}

	base := outputBase(path)
	var paths []string
	for _, rel := range rels.Relationships {
		if !strings.Contains(rel.Target, "image") {
			continue
		}

		partName := resolveTarget(rel.Target)
		part, ok := parts[partName]
		if !ok {
			s.log.Warn("docx image relationship target missing",
				zap.String("target", rel.Target))
			continue
		}

		data, err := readPart(part)
		if err != nil {
			return nil, fmt.Errorf("read docx image part %s failed: %w", partName, err)
		}
		if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("decode docx image %s failed: %w", partName, err)
		}

		name := base + "_" + filepath.Base(rel.Target)
		out := filepath.Join(s.outputDir, name)
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return nil, fmt.Errorf("write extracted image failed: %w", err)
		}
		paths = append(paths, out)
	}

	s.log.Info("docx images extracted",
		zap.String("document", filepath.Base(path)),
		zap.Int("images", len(paths)))
	return paths, nil
}

func readRelationships(f *zip.File) (*docxRelationships, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open relationship table failed: %w", err)
	}
	defer rc.Close()

	var rels docxRelationships
	if err := xml.NewDecoder(rc).Decode(&rels); err != nil {
		return nil, fmt.Errorf("parse relationship table failed: %w", err)
	}
	return &rels, nil
}

// resolveTarget maps a relationship target to its part name in the archive.
// Targets are relative to word/ unless they start with a slash.
func resolveTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return "word/" + target
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
