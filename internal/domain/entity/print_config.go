package entity

import (
	"fmt"
	"math"
	"strings"
)

const (
	DefaultPaperSize = "A4"
	DefaultPriority  = 90
	AllPages         = "all"
	MaxCopies        = 100
)

type ColorMode string

const (
	ColorMonochrome ColorMode = "monochrome"
	ColorBiLevel    ColorMode = "bi-level"
	ColorColor      ColorMode = "color"
)

type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

var validPagesPerSheet = map[int]bool{1: true, 2: true, 4: true, 6: true}

// PrintConfig is the per-file print instruction set as stored on the job.
type PrintConfig struct {
	// Copies is a float so that non-integer values survive decoding and can be rejected.
	Copies        *float64    `json:"copies,omitempty" bson:"copies,omitempty"`
	ColorMode     ColorMode   `json:"color_mode,omitempty" bson:"color_mode,omitempty"`
	PaperSize     string      `json:"paper_size,omitempty" bson:"paper_size,omitempty"`
	Orientation   Orientation `json:"orientation,omitempty" bson:"orientation,omitempty"`
	Duplex        bool        `json:"duplex" bson:"duplex"`
	PageRanges    string      `json:"page_ranges,omitempty" bson:"page_ranges,omitempty"`
	PagesPerSheet int         `json:"pages_per_sheet,omitempty" bson:"pages_per_sheet,omitempty"`
	Border        string      `json:"border,omitempty" bson:"border,omitempty"`
	Printer       string      `json:"printer,omitempty" bson:"printer,omitempty"`
	Priority      *int        `json:"priority,omitempty" bson:"priority,omitempty"`
}

// PrintOptions is a validated PrintConfig with every default applied.
type PrintOptions struct {
	Copies        int
	ColorMode     ColorMode // empty: printer default
	PaperSize     string
	Landscape     bool
	Duplex        bool
	PagesPerSheet int
	Border        bool
	Printer       string
	Priority      int
	Annotation    Annotation
}

// Resolve validates c and fills in defaults.
func (c PrintConfig) Resolve(a Annotation) (PrintOptions, error) {
	opts := PrintOptions{
		Copies:        1,
		PaperSize:     DefaultPaperSize,
		Duplex:        c.Duplex,
		PagesPerSheet: 1,
		Printer:       c.Printer,
		Priority:      DefaultPriority,
		Annotation:    a,
	}

	if c.Copies != nil {
		v := *c.Copies
		if v <= 0 || v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return PrintOptions{}, fmt.Errorf("%w: %v, must be a positive integer", ErrInvalidCopies, v)
		}
		if v > MaxCopies {
			return PrintOptions{}, fmt.Errorf("%w: %v, must be at most %d", ErrInvalidCopies, v, MaxCopies)
		}
		opts.Copies = int(v)
	}

	if c.PagesPerSheet != 0 {
		if !validPagesPerSheet[c.PagesPerSheet] {
			return PrintOptions{}, fmt.Errorf("%w: %d, must be 1, 2, 4, or 6", ErrInvalidLayout, c.PagesPerSheet)
		}
		opts.PagesPerSheet = c.PagesPerSheet
	}

	switch Orientation(strings.ToLower(string(c.Orientation))) {
	case "", OrientationPortrait:
	case OrientationLandscape:
		opts.Landscape = true
	default:
		return PrintOptions{}, fmt.Errorf("%w: %q, must be portrait or landscape", ErrInvalidOrientation, c.Orientation)
	}

	if c.PaperSize != "" {
		opts.PaperSize = c.PaperSize
	}

	if c.ColorMode != "" {
		mode := ColorMode(strings.ToLower(string(c.ColorMode)))
		switch mode {
		case ColorMonochrome, ColorBiLevel, ColorColor:
			opts.ColorMode = mode
		default:
			return PrintOptions{}, fmt.Errorf("%w: %q, must be monochrome, bi-level, or color", ErrInvalidColorMode, c.ColorMode)
		}
	}

	opts.Border = strings.EqualFold(c.Border, "single")

	if c.Priority != nil {
		opts.Priority = *c.Priority
	}

	return opts, nil
}

// PageRange returns the stored expression, defaulting to all pages.
func (c PrintConfig) PageRange() string {
	if strings.TrimSpace(c.PageRanges) == "" {
		return AllPages
	}
	return c.PageRanges
}

// IsAllPages reports whether expr selects the whole document unchanged.
func IsAllPages(expr string) bool {
	e := strings.TrimSpace(expr)
	return e == "" || strings.EqualFold(e, AllPages)
}

// DispatchResult is the print subsystem's answer to one submission.
type DispatchResult struct {
	Accepted     bool   `json:"accepted"`
	Message      string `json:"message"`
	JobReference string `json:"jobReference"`
}
