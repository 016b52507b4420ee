package extract

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// writeTestDOCX builds a minimal DOCX container: a relationship table with
// two image relationships, one hyperlink relationship, and the image parts.
func writeTestDOCX(t *testing.T, dir string) string {
	t.Helper()

	rels := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://example.com/"/>
  <Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image2.png"/>
</Relationships>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	entries := map[string][]byte{
		"word/document.xml":            []byte(`<?xml version="1.0"?><document/>`),
		"word/_rels/document.xml.rels": []byte(rels),
		"word/media/image1.png":        pngBytes(t, color.RGBA{R: 255, A: 255}),
		"word/media/image2.png":        pngBytes(t, color.RGBA{B: 255, A: 255}),
	}
	for name, data := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, "report.docx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestExtractDOCXImages(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	docPath := writeTestDOCX(t, srcDir)

	svc := NewService(outDir, zap.NewNop())
	paths, err := svc.Extract(docPath)
	require.NoError(t, err)

	require.Len(t, paths, 2, "one output per image relationship, hyperlink skipped")
	assert.Equal(t, filepath.Join(outDir, "report_docx_image1.png"), paths[0])
	assert.Equal(t, filepath.Join(outDir, "report_docx_image2.png"), paths[1])

	for _, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		_, _, err = image.Decode(bytes.NewReader(data))
		assert.NoError(t, err, "extracted file decodes as an image")
	}
}

func TestExtractDOCXDuplicateReferenceYieldsTwoEntries(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	rels := `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>
</Relationships>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range map[string][]byte{
		"word/_rels/document.xml.rels": []byte(rels),
		"word/media/image1.png":        pngBytes(t, color.RGBA{G: 255, A: 255}),
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	docPath := filepath.Join(srcDir, "dup.docx")
	require.NoError(t, os.WriteFile(docPath, buf.Bytes(), 0o644))

	svc := NewService(outDir, zap.NewNop())
	paths, err := svc.Extract(docPath)
	require.NoError(t, err)
	assert.Len(t, paths, 2, "no deduplication: the same image referenced twice comes out twice")
}

func TestExtractUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	svc := NewService(t.TempDir(), zap.NewNop())
	_, err := svc.Extract(path)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), ".txt", "failure names the offending extension")
}

func TestExtractDOCXWithoutRelationshipTable(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<document/>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, "empty.docx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	svc := NewService(t.TempDir(), zap.NewNop())
	_, err = svc.Extract(path)
	assert.Error(t, err)
}
