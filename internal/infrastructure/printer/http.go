package printer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"printpoller/internal/domain/entity"
	"printpoller/internal/domain/repository"
	"printpoller/internal/infrastructure/metrics"
)

const ModeHTTP = "http"

type printServerReply struct {
	Message string `json:"message"`
	JobID   string `json:"jobId"`
	Error   string `json:"error"`
}

// HTTPDispatcher forwards documents to a print server as multipart uploads.
type HTTPDispatcher struct {
	baseURL string
	printer string
	client  *http.Client
	logger  *slog.Logger
}

func NewHTTPDispatcher(baseURL, printer string, timeout time.Duration, logger *slog.Logger) *HTTPDispatcher {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPDispatcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		printer: printer,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

var _ repository.Dispatcher = (*HTTPDispatcher)(nil)

func (d *HTTPDispatcher) Submit(ctx context.Context, doc repository.Document, opts entity.PrintOptions) (entity.DispatchResult, error) {
	started := time.Now()
	defer func() { metrics.ObserveDispatchDuration(ModeHTTP, time.Since(started)) }()

	config, err := d.loadTicket(doc, opts)
	if err != nil {
		metrics.IncError("http_dispatcher", "load_ticket")
		return entity.DispatchResult{}, err
	}

	body, contentType, err := streamForm(doc.Path, config)
	if err != nil {
		metrics.IncError("http_dispatcher", "build_form")
		return entity.DispatchResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/api/print", body)
	if err != nil {
		_ = body.Close()
		metrics.IncError("http_dispatcher", "create_request")
		return entity.DispatchResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(req)
	if err != nil {
		metrics.IncDispatch(ModeHTTP, "error")
		return entity.DispatchResult{}, fmt.Errorf("%w: %v", entity.ErrPrinterUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			d.logger.Warn("close body failed", "err", err)
		}
	}()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var reply printServerReply
	_ = json.Unmarshal(raw, &reply)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		metrics.IncDispatch(ModeHTTP, "accepted")
		msg := reply.Message
		if msg == "" {
			msg = resp.Status
		}
		return entity.DispatchResult{Accepted: true, Message: msg, JobReference: reply.JobID}, nil
	case resp.StatusCode == http.StatusBadGateway ||
		resp.StatusCode == http.StatusServiceUnavailable ||
		resp.StatusCode == http.StatusGatewayTimeout:
		metrics.IncDispatch(ModeHTTP, "error")
		return entity.DispatchResult{}, fmt.Errorf("%w: print server returned %d", entity.ErrPrinterUnavailable, resp.StatusCode)
	default:
		metrics.IncDispatch(ModeHTTP, "rejected")
		msg := reply.Error
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		if msg == "" {
			msg = resp.Status
		}
		return entity.DispatchResult{Accepted: false, Message: fmt.Sprintf("%d: %s", resp.StatusCode, msg)}, nil
	}
}

// loadTicket reads the ticket written next to the document, falling back to
// one rendered from opts when the document has none.
func (d *HTTPDispatcher) loadTicket(doc repository.Document, opts entity.PrintOptions) ([]byte, error) {
	ticket := opts.Ticket()
	if doc.TicketPath != "" {
		raw, err := os.ReadFile(doc.TicketPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read print ticket: %w", err)
		}
		ticket = entity.PrintTicket{}
		if err := json.Unmarshal(raw, &ticket); err != nil {
			return nil, fmt.Errorf("failed to decode print ticket %s: %w", filepath.Base(doc.TicketPath), err)
		}
	}
	if ticket.Printer == "" {
		ticket.Printer = d.printer
	}
	ticket.Priority = clampPriority(ticket.Priority)

	config, err := json.Marshal(ticket)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal print ticket: %w", err)
	}
	return config, nil
}

// streamForm returns a multipart body that reads the document from disk while
// the request is being sent.
func streamForm(docPath string, config []byte) (io.ReadCloser, string, error) {
	f, err := os.Open(docPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open document: %w", err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer f.Close()
		pw.CloseWithError(writeForm(mw, f, filepath.Base(docPath), config))
	}()
	return pr, mw.FormDataContentType(), nil
}

func writeForm(mw *multipart.Writer, doc io.Reader, filename string, config []byte) error {
	part, err := mw.CreateFormFile("pdf", filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, doc); err != nil {
		return fmt.Errorf("failed to copy document: %w", err)
	}
	if err := mw.WriteField("config", string(config)); err != nil {
		return fmt.Errorf("failed to write config field: %w", err)
	}
	return mw.Close()
}

// Probe expects the print server root to answer 200.
func (d *HTTPDispatcher) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrPrinterUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: print server returned %d", entity.ErrPrinterUnavailable, resp.StatusCode)
	}
	return nil
}
