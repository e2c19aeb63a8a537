// Package pdf selects and reorders pages of PDF documents.
package pdf

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"printpoller/internal/domain/entity"
)

var pageRangeSyntax = regexp.MustCompile(`^[0-9,\-\s]+$`)

func IsAll(expr string) bool {
	return entity.IsAllPages(expr)
}

// ParsePageRange resolves expr against a document of total pages and returns
// 0-based page indices in the order written. Duplicates are kept.
//
// Grammar: comma separated items, each a page number or an inclusive
// start-end range. Whitespace anywhere is ignored.
func ParsePageRange(expr string, total int) ([]int, error) {
	if IsAll(expr) {
		all := make([]int, total)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	if !pageRangeSyntax.MatchString(expr) {
		return nil, &entity.PageRangeError{Token: expr, Total: total}
	}

	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, expr)

	var out []int
	for _, tok := range strings.Split(compact, ",") {
		start, end, ok := parseToken(tok)
		if !ok || start < 1 || end > total || start > end {
			return nil, &entity.PageRangeError{Token: tok, Total: total}
		}
		for p := start; p <= end; p++ {
			out = append(out, p-1)
		}
	}
	return out, nil
}

func parseToken(tok string) (int, int, bool) {
	if tok == "" {
		return 0, 0, false
	}
	lo, hi, isRange := strings.Cut(tok, "-")
	start, err := strconv.Atoi(lo)
	if err != nil {
		return 0, 0, false
	}
	if !isRange {
		return start, start, true
	}
	end, err := strconv.Atoi(hi)
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}
