// Package splitter breaks SQL script text into statement ranges. It knows
// about quotes, comments and the client side DELIMITER command, but nothing
// about SQL grammar.
package splitter

import (
	"context"
	"strings"
	"sync/atomic"
)

// Range is a statement position inside the scanned text.
type Range struct {
	Offset int
	Length int
}

// Text returns the statement text the range covers.
func (r Range) Text(sql string) string {
	return sql[r.Offset : r.Offset+r.Length]
}

const delimiterKeyword = "delimiter"

// Ranges splits text using ";" as delimiter and "\n" as line break.
func Ranges(text string) []Range {
	return Determine(context.Background(), text, ";", "\n", nil)
}

// Determine scans text and returns the ranges of all statements found.
// Ranges never include leading whitespace, leading comments or the
// delimiter itself. A DELIMITER line changes the active delimiter and is not
// part of any range.
//
// stop may be nil. It and ctx are polled once per scan step; when either
// signals, the ranges collected so far are returned. stop belongs to the
// caller and is never cleared here.
func Determine(ctx context.Context, text, delimiter, lineBreak string, stop *atomic.Bool) []Range {
	if delimiter == "" {
		delimiter = ";"
	}

	var ranges []Range
	emit := func(head, tail int) {
		head = skipLeadingWhitespace(text, head, tail)
		if head < tail {
			ranges = append(ranges, Range{Offset: head, Length: tail - head})
		}
	}

	end := len(text)
	head, tail := 0, 0
	haveContent := false

	for tail < end {
		if stop != nil && stop.Load() {
			return ranges
		}
		if ctx.Err() != nil {
			return ranges
		}

		if strings.HasPrefix(text[tail:], delimiter) {
			emit(head, tail)
			tail += len(delimiter)
			head = tail
			haveContent = false
			continue
		}

		switch text[tail] {
		case '/':
			if byteAt(text, tail+1) != '*' {
				tail++
				break
			}
			tail += 2
			hidden := byteAt(text, tail) == '!'
			for {
				for tail < end && text[tail] != '*' {
					tail++
				}
				if tail >= end {
					break
				}
				tail++
				if byteAt(text, tail) == '/' {
					tail++
					break
				}
			}
			if !hidden && !haveContent {
				head = tail
			}

		case '-':
			next := tail + 2
			if byteAt(text, tail+1) == '-' && (byteAt(text, next) == ' ' || byteAt(text, next) == '\t' || isLineBreak(text, next, lineBreak)) {
				tail += 2
				for tail < end && !isLineBreak(text, tail, lineBreak) {
					tail++
				}
				if !haveContent {
					head = tail
				}
			} else {
				tail++
			}

		case '#':
			for tail < end && !isLineBreak(text, tail, lineBreak) {
				tail++
			}
			if !haveContent {
				head = tail
			}

		case '"', '\'', '`':
			haveContent = true
			quote := text[tail]
			tail++
			for tail < end && text[tail] != quote {
				if text[tail] == '\\' {
					tail++
				}
				tail++
			}
			if tail < end {
				tail++
			} else {
				tail = end
			}

		case 'd', 'D':
			haveContent = true
			if tail > 0 && isIdentifierChar(text[tail-1]) {
				tail++
				break
			}
			kwEnd := tail + len(delimiterKeyword)
			if kwEnd < end && strings.EqualFold(text[tail:kwEnd], delimiterKeyword) && (text[kwEnd] == ' ' || text[kwEnd] == '\t') {
				run := kwEnd
				for run < end && !isLineBreak(text, run, lineBreak) {
					run++
				}
				if d := strings.TrimSpace(text[kwEnd:run]); d != "" {
					delimiter = d
				}
				for run < end && isLineBreak(text, run, lineBreak) {
					run += len(lineBreak)
				}
				tail = run
				head = tail
				haveContent = false
			} else {
				tail++
			}

		default:
			if text[tail] > ' ' {
				haveContent = true
			}
			tail++
		}
	}

	if head < end {
		emit(head, end)
	}
	return ranges
}

func byteAt(s string, i int) byte {
	if i < 0 || i >= len(s) {
		return 0
	}
	return s[i]
}

func isLineBreak(s string, i int, lineBreak string) bool {
	if lineBreak == "" || i >= len(s) {
		return false
	}
	return strings.HasPrefix(s[i:], lineBreak)
}

// isIdentifierChar reports whether c can be part of an unquoted MySQL
// identifier (0-9, A-Z, a-z, _, $ and anything outside ASCII).
func isIdentifierChar(c byte) bool {
	return c >= 0x80 ||
		(c >= '0' && c <= '9') ||
		(c|0x20 >= 'a' && c|0x20 <= 'z') ||
		c == '$' || c == '_'
}

func skipLeadingWhitespace(s string, head, tail int) int {
	for head < tail && s[head] <= ' ' {
		head++
	}
	return head
}
