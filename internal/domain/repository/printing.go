package repository

import (
	"context"

	"printpoller/internal/domain/entity"
)

type Transformer interface {
	// ExtractPages writes a copy of src holding only the selected pages, in expression order.
	ExtractPages(ctx context.Context, srcPath, dstPath, expr string) (pages int, err error)
}

// Document is a prepared file inside a workspace scope.
type Document struct {
	Path string
	// TicketPath points at the JSON print ticket written for Path; empty when none was written.
	TicketPath string
}

type Dispatcher interface {
	Submit(ctx context.Context, doc Document, opts entity.PrintOptions) (entity.DispatchResult, error)
	Probe(ctx context.Context) error
}
