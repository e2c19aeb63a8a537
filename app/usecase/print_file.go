package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"printpoller/internal/domain/entity"
	"printpoller/internal/domain/repository"
	"printpoller/internal/infrastructure/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// printFile takes one file entry through fetch, page extraction and dispatch.
// Everything written to disk lives in a scope removed before returning.
func (s *PrintPoller) printFile(ctx context.Context, log *slog.Logger, jobID string, annotation entity.Annotation, file entity.FileEntry) error {
	log = log.With("file_id", file.FileID.String())

	id, err := file.FileID.Normalize()
	if err != nil {
		return err
	}

	opts, err := file.PrintConfig.Resolve(annotation)
	if err != nil {
		return err
	}

	scope, err := s.workspace.NewScope(jobID)
	if err != nil {
		return fmt.Errorf("create workspace scope: %w", err)
	}
	defer func() {
		if cerr := scope.Cleanup(); cerr != nil {
			metrics.IncError("print_poller", "scope_cleanup")
			log.Warn("failed to clean up workspace scope", "err", cerr)
		}
	}()

	ticketPath, err := scope.WriteDescriptor(file.Filename, opts.Ticket())
	if err != nil {
		return err
	}

	srcPath := scope.Path("source.pdf")
	if err := s.fetch(ctx, id, srcPath); err != nil {
		return err
	}

	docPath := srcPath
	if expr := file.PrintConfig.PageRange(); !entity.IsAllPages(expr) {
		docPath = scope.Path("selected.pdf")
		pages, err := s.transformer.ExtractPages(ctx, srcPath, docPath, expr)
		if err != nil {
			return err
		}
		log.Debug("pages extracted", "expr", expr, "pages", pages)
	}

	printCtx, cancel := context.WithTimeout(ctx, s.cfg.PrintTimeout)
	defer cancel()

	res, err := s.dispatcher.Submit(printCtx, repository.Document{Path: docPath, TicketPath: ticketPath}, opts)
	if err != nil {
		return err
	}
	if !res.Accepted {
		return fmt.Errorf("%w: %s", entity.ErrPrintRejected, res.Message)
	}

	log.Info("file dispatched", "filename", file.Filename, "copies", opts.Copies, "reference", res.JobReference)
	return nil
}

// fetch streams the content addressed by id into a new file at path.
func (s *PrintPoller) fetch(ctx context.Context, id primitive.ObjectID, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	_, err = s.content.Fetch(fetchCtx, id, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("write %s: %w", path, cerr)
	}
	if err != nil {
		return fmt.Errorf("fetch %s: %w", id.Hex(), err)
	}
	return nil
}
