package extract

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// pdfFixture assembles a minimal but valid PDF object by object, tracking
// byte offsets for the cross-reference table.
type pdfFixture struct {
	buf     bytes.Buffer
	offsets []int
}

func newPDFFixture() *pdfFixture {
	p := &pdfFixture{}
	p.buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	return p
}

func (p *pdfFixture) object(body string) {
	p.offsets = append(p.offsets, p.buf.Len())
	fmt.Fprintf(&p.buf, "%d 0 obj\n%s\nendobj\n", len(p.offsets), body)
}

func (p *pdfFixture) stream(dict string, data []byte) {
	p.offsets = append(p.offsets, p.buf.Len())
	fmt.Fprintf(&p.buf, "%d 0 obj\n%s\nstream\n", len(p.offsets), dict)
	p.buf.Write(data)
	p.buf.WriteString("\nendstream\nendobj\n")
}

func (p *pdfFixture) bytes() []byte {
	xrefOffset := p.buf.Len()
	fmt.Fprintf(&p.buf, "xref\n0 %d\n", len(p.offsets)+1)
	p.buf.WriteString("0000000000 65535 f \n")
	for _, off := range p.offsets {
		fmt.Fprintf(&p.buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&p.buf,
		"trailer\n<< /Size %d /Root 1 0 R /ID [<4142434445464748> <4142434445464748>] >>\nstartxref\n%d\n%%%%EOF\n",
		len(p.offsets)+1, xrefOffset)
	return p.buf.Bytes()
}

func jpegBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func imageDict(length int) string {
	return fmt.Sprintf("<< /Type /XObject /Subtype /Image /Width 8 /Height 8 "+
		"/ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode /Length %d >>", length)
}

// writeTestPDF builds a three-page PDF: two images on page 1, none on page 2,
// one on page 3. Each image is a distinct solid color so page and object
// order can be read back from the decoded output.
func writeTestPDF(t *testing.T, dir string) string {
	t.Helper()

	red := jpegBytes(t, color.RGBA{R: 255, A: 255})
	green := jpegBytes(t, color.RGBA{G: 255, A: 255})
	blue := jpegBytes(t, color.RGBA{B: 255, A: 255})

	p := newPDFFixture()
	p.object("<< /Type /Catalog /Pages 2 0 R >>")
	p.object("<< /Type /Pages /Kids [3 0 R 4 0 R 5 0 R] /Count 3 /MediaBox [0 0 612 792] >>")
	p.object("<< /Type /Page /Parent 2 0 R /Resources << /XObject << /Im0 6 0 R /Im1 7 0 R >> >> /Contents 9 0 R >>")
	p.object("<< /Type /Page /Parent 2 0 R /Resources << >> /Contents 10 0 R >>")
	p.object("<< /Type /Page /Parent 2 0 R /Resources << /XObject << /Im0 8 0 R >> >> /Contents 11 0 R >>")
	p.stream(imageDict(len(red)), red)
	p.stream(imageDict(len(green)), green)
	p.stream(imageDict(len(blue)), blue)

	page1Content := []byte("q 50 0 0 50 10 10 cm /Im0 Do Q q 50 0 0 50 100 10 cm /Im1 Do Q")
	page3Content := []byte("q 50 0 0 50 10 10 cm /Im0 Do Q")
	p.stream(fmt.Sprintf("<< /Length %d >>", len(page1Content)), page1Content)
	p.stream("<< /Length 0 >>", nil)
	p.stream(fmt.Sprintf("<< /Length %d >>", len(page3Content)), page3Content)

	path := filepath.Join(dir, "doc.pdf")
	require.NoError(t, os.WriteFile(path, p.bytes(), 0o644))
	return path
}

// dominantChannel reports which RGB channel carries the decoded image, so a
// lossy JPEG roundtrip still identifies the solid-color fixtures.
func dominantChannel(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	r, g, b, _ := img.At(4, 4).RGBA()
	switch {
	case r > g && r > b:
		return "red"
	case g > r && g > b:
		return "green"
	default:
		return "blue"
	}
}

func TestExtractPDFImagesInPageOrder(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	docPath := writeTestPDF(t, srcDir)

	svc := NewService(outDir, zap.NewNop())
	paths, err := svc.Extract(docPath)
	require.NoError(t, err)

	require.Len(t, paths, 3, "two images on page 1 plus one on page 3")

	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	assert.True(t, strings.HasPrefix(names[0], "doc_pdf_p1_img1."), "got %q", names[0])
	assert.True(t, strings.HasPrefix(names[1], "doc_pdf_p1_img2."), "got %q", names[1])
	assert.True(t, strings.HasPrefix(names[2], "doc_pdf_p3_img1."), "got %q", names[2])

	assert.Equal(t, "red", dominantChannel(t, paths[0]), "page 1 images keep object order")
	assert.Equal(t, "green", dominantChannel(t, paths[1]))
	assert.Equal(t, "blue", dominantChannel(t, paths[2]))
}
