package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestPrintConfig_ResolveDefaults(t *testing.T) {
	a := Annotation{Username: "alice", OrderID: "ORD-1"}

	opts, err := PrintConfig{}.Resolve(a)
	require.NoError(t, err)

	assert.Equal(t, 1, opts.Copies)
	assert.Equal(t, DefaultPaperSize, opts.PaperSize)
	assert.Equal(t, 1, opts.PagesPerSheet)
	assert.Equal(t, DefaultPriority, opts.Priority)
	assert.False(t, opts.Landscape)
	assert.False(t, opts.Duplex)
	assert.False(t, opts.Border)
	assert.Empty(t, opts.ColorMode)
	assert.Equal(t, a, opts.Annotation)
}

func TestPrintConfig_ResolveExplicit(t *testing.T) {
	cfg := PrintConfig{
		Copies:        ptr(3.0),
		ColorMode:     "Monochrome",
		PaperSize:     "Letter",
		Orientation:   "LANDSCAPE",
		Duplex:        true,
		PagesPerSheet: 4,
		Border:        "single",
		Printer:       "Office",
		Priority:      ptr(50),
	}

	opts, err := cfg.Resolve(Annotation{})
	require.NoError(t, err)

	assert.Equal(t, 3, opts.Copies)
	assert.Equal(t, ColorMonochrome, opts.ColorMode)
	assert.Equal(t, "Letter", opts.PaperSize)
	assert.True(t, opts.Landscape)
	assert.True(t, opts.Duplex)
	assert.Equal(t, 4, opts.PagesPerSheet)
	assert.True(t, opts.Border)
	assert.Equal(t, "Office", opts.Printer)
	assert.Equal(t, 50, opts.Priority)
}

func TestPrintConfig_ResolveInvalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  PrintConfig
		want error
	}{
		{"zero copies", PrintConfig{Copies: ptr(0.0)}, ErrInvalidCopies},
		{"negative copies", PrintConfig{Copies: ptr(-2.0)}, ErrInvalidCopies},
		{"fractional copies", PrintConfig{Copies: ptr(1.5)}, ErrInvalidCopies},
		{"copies above cap", PrintConfig{Copies: ptr(101.0)}, ErrInvalidCopies},
		{"copies past int range", PrintConfig{Copies: ptr(1e20)}, ErrInvalidCopies},
		{"three per sheet", PrintConfig{PagesPerSheet: 3}, ErrInvalidLayout},
		{"negative per sheet", PrintConfig{PagesPerSheet: -1}, ErrInvalidLayout},
		{"sepia", PrintConfig{ColorMode: "sepia"}, ErrInvalidColorMode},
		{"sideways", PrintConfig{Orientation: "sideways"}, ErrInvalidOrientation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Resolve(Annotation{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPrintConfig_ResolveBounds(t *testing.T) {
	opts, err := PrintConfig{Copies: ptr(float64(MaxCopies))}.Resolve(Annotation{})
	require.NoError(t, err)
	assert.Equal(t, MaxCopies, opts.Copies)

	opts, err = PrintConfig{Orientation: "Portrait"}.Resolve(Annotation{})
	require.NoError(t, err)
	assert.False(t, opts.Landscape)
}

func TestPrintConfig_PageRange(t *testing.T) {
	assert.Equal(t, AllPages, PrintConfig{}.PageRange())
	assert.Equal(t, AllPages, PrintConfig{PageRanges: "  "}.PageRange())
	assert.Equal(t, "1-3", PrintConfig{PageRanges: "1-3"}.PageRange())

	assert.True(t, IsAllPages(""))
	assert.True(t, IsAllPages(" ALL "))
	assert.False(t, IsAllPages("1"))
}

func TestJob_Annotation(t *testing.T) {
	j := &Job{JobID: "job-1", OrderID: "ORD-1"}
	assert.Equal(t, Annotation{Username: "Anonymous User", OrderID: "ORD-1", JobID: "job-1"}, j.Annotation())

	j.Username = "bob"
	assert.Equal(t, "bob", j.Annotation().Username)
}

func TestJobStatus(t *testing.T) {
	assert.True(t, JobStatusPending.CanCommit())
	assert.True(t, JobStatusProcessing.CanCommit())
	assert.False(t, JobStatusCompleted.CanCommit())
	assert.False(t, JobStatusCancelled.CanCommit())

	assert.True(t, JobStatusFailed.IsTerminal())
	assert.False(t, JobStatusProcessing.IsTerminal())
}

func TestPageRangeError(t *testing.T) {
	err := &PageRangeError{Token: "0-2", Total: 5}
	assert.ErrorIs(t, err, ErrInvalidPageRange)
	assert.Equal(t, `invalid page range "0-2": valid pages are [1, 5]`, err.Error())
}

func TestPrintOptions_Ticket(t *testing.T) {
	opts, err := PrintConfig{
		Copies:      ptr(2.0),
		Orientation: "landscape",
		Border:      "single",
		PageRanges:  "2-3",
	}.Resolve(Annotation{Username: "ada", OrderID: "ORD-1", JobID: "job-1"})
	require.NoError(t, err)

	ticket := opts.Ticket()
	assert.Equal(t, 2, ticket.Copies)
	assert.Equal(t, "landscape", ticket.Orientation)
	assert.Equal(t, "single", ticket.Border)
	assert.Equal(t, AllPages, ticket.PageRanges)
	assert.Equal(t, DefaultPaperSize, ticket.PaperSize)
	assert.Equal(t, DefaultPriority, ticket.Priority)
	assert.Equal(t, "ada", ticket.Username)
	assert.Equal(t, "ORD-1", ticket.OrderID)
	assert.Empty(t, ticket.Printer)

	ticket = PrintOptions{Copies: 1}.Ticket()
	assert.Equal(t, "portrait", ticket.Orientation)
	assert.Equal(t, "none", ticket.Border)
}
