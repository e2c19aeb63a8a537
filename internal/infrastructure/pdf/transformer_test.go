package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"printpoller/internal/domain/entity"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pageWidth gives page n (1-based) of a generated document a unique width.
func pageWidth(n int) float64 {
	return float64(100 + 10*n)
}

// writeTestPDF writes a minimal PDF with the given number of blank pages.
func writeTestPDF(t *testing.T, path string, pages int) {
	t.Helper()

	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))

	for i := 1; i <= pages; i++ {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.0f 200] /Resources << >> >>", pageWidth(i)))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

func pageWidths(t *testing.T, tr *Transformer, path string) []float64 {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dims, err := api.PageDims(f, tr.conf)
	require.NoError(t, err)

	widths := make([]float64, len(dims))
	for i, d := range dims {
		widths[i] = d.Width
	}
	return widths
}

func TestTransformer_ExtractPages(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.pdf")
	writeTestPDF(t, src, 5)

	tr := NewTransformer()

	n, err := tr.PageCount(src)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	tests := []struct {
		name  string
		expr  string
		pages []int
	}{
		{"identity", "1-5", []int{1, 2, 3, 4, 5}},
		{"reorder with duplicates", "3,1,1-2", []int{3, 1, 1, 2}},
		{"single", "5", []int{5}},
		{"all", "all", []int{1, 2, 3, 4, 5}},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := filepath.Join(dir, fmt.Sprintf("out-%d.pdf", i))

			got, err := tr.ExtractPages(context.Background(), src, dst, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, len(tt.pages), got)

			want := make([]float64, len(tt.pages))
			for j, p := range tt.pages {
				want[j] = pageWidth(p)
			}
			assert.Equal(t, want, pageWidths(t, tr, dst))
		})
	}
}

func TestTransformer_ExtractPagesOutOfRange(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.pdf")
	writeTestPDF(t, src, 3)

	tr := NewTransformer()

	for _, expr := range []string{"0", "4", "2-4"} {
		_, err := tr.ExtractPages(context.Background(), src, filepath.Join(dir, "out.pdf"), expr)
		require.Error(t, err, expr)
		assert.ErrorIs(t, err, entity.ErrInvalidPageRange)
		assert.Contains(t, err.Error(), "[1, 3]")
	}
}

func TestTransformer_CorruptSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(src, []byte("this is not a pdf"), 0o600))

	_, err := NewTransformer().ExtractPages(context.Background(), src, filepath.Join(dir, "out.pdf"), "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrDocumentLoad)
}

func TestTransformer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTransformer().ExtractPages(ctx, "unused.pdf", "out.pdf", "1")
	assert.ErrorIs(t, err, context.Canceled)
}
