package pdf

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"printpoller/internal/domain/entity"
	"printpoller/internal/domain/repository"
	"printpoller/internal/infrastructure/metrics"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Transformer extracts page selections with pdfcpu.
type Transformer struct {
	conf *model.Configuration
}

func NewTransformer() *Transformer {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Transformer{conf: conf}
}

var _ repository.Transformer = (*Transformer)(nil)

// PageCount returns the number of pages in the document at path.
func (t *Transformer) PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", entity.ErrDocumentLoad, err)
	}
	defer f.Close()

	n, err := api.PageCount(f, t.conf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", entity.ErrDocumentLoad, err)
	}
	return n, nil
}

// ExtractPages writes the pages selected by expr from srcPath into dstPath.
// A whole-document selection is copied through without re-encoding.
func (t *Transformer) ExtractPages(ctx context.Context, srcPath, dstPath, expr string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	total, err := t.PageCount(srcPath)
	if err != nil {
		return 0, err
	}

	indices, err := ParsePageRange(expr, total)
	if err != nil {
		return 0, err
	}

	if IsAll(expr) {
		if err := copyFile(srcPath, dstPath); err != nil {
			return 0, err
		}
		return total, nil
	}

	selected := make([]string, len(indices))
	for i, idx := range indices {
		selected[i] = strconv.Itoa(idx + 1)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", entity.ErrDocumentLoad, err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dstPath, err)
	}

	if err := api.Collect(src, dst, selected, t.conf); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return 0, fmt.Errorf("%w: collect pages: %v", entity.ErrDocumentLoad, err)
	}
	if err := dst.Close(); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", dstPath, err)
	}

	metrics.AddPagesExtracted(len(indices))
	return len(indices), nil
}

func copyFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrDocumentLoad, err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dstPath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to copy %s: %w", srcPath, err)
	}
	return dst.Close()
}
