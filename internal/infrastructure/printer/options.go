// Package printer hands documents to the local print subsystem.
package printer

import (
	"strconv"
	"strings"

	"printpoller/internal/domain/entity"
)

// BuildLPArgs maps resolved print options onto lp(1) arguments. docPath is
// appended last. fallbackPrinter is used when opts names no destination.
func BuildLPArgs(opts entity.PrintOptions, fallbackPrinter, docPath string) []string {
	var args []string

	dest := opts.Printer
	if dest == "" {
		dest = fallbackPrinter
	}
	if dest != "" {
		args = append(args, "-d", dest)
	}

	args = append(args, "-n", strconv.Itoa(opts.Copies))

	if opts.Duplex {
		args = append(args, "-o", "sides=two-sided-long-edge")
	} else {
		args = append(args, "-o", "sides=one-sided")
	}

	args = append(args, "-o", "number-up="+strconv.Itoa(opts.PagesPerSheet))

	if opts.Landscape {
		args = append(args, "-o", "landscape")
	} else {
		args = append(args, "-o", "portrait")
	}

	args = append(args, "-o", "media="+opts.PaperSize)
	args = append(args, "-o", "fit-to-page")

	if opts.Border {
		args = append(args, "-o", "page-border=single")
	} else {
		args = append(args, "-o", "page-border=none")
	}

	if opts.ColorMode != "" {
		args = append(args, "-o", "print-color-mode="+string(opts.ColorMode))
	}

	args = append(args, "-q", strconv.Itoa(clampPriority(opts.Priority)))

	if title := jobTitle(opts.Annotation); title != "" {
		args = append(args, "-t", title)
	}

	return append(args, docPath)
}

// lp accepts priorities 1 through 100.
func clampPriority(p int) int {
	if p < 1 {
		return 1
	}
	if p > 100 {
		return 100
	}
	return p
}

func jobTitle(a entity.Annotation) string {
	parts := make([]string, 0, 2)
	if a.Username != "" {
		parts = append(parts, a.Username)
	}
	if a.OrderID != "" {
		parts = append(parts, "#"+a.OrderID)
	}
	return strings.Join(parts, " ")
}
