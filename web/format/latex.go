package format

import (
	"regexp"
	"strconv"
	"strings"
)

// Placeholder delimiters are private-use runes so they never appear in model
// output and never contain '$' or '\'.
const (
	placeholderPrefix = "\uE000CODEBLOCK_"
	placeholderSuffix = "\uE001"
	blockMathOpen     = "$$\n"
	blockMathClose    = "\n$$"
)

var (
	fencePattern       = regexp.MustCompile("(?s)```.*?```")
	placeholderPattern = regexp.MustCompile(regexp.QuoteMeta(placeholderPrefix) + `(\d+)` + regexp.QuoteMeta(placeholderSuffix))

	// latexIndicator lists the control sequences that mark undelimited math.
	// Command names need a word boundary so \pixel or \endpoint do not count.
	latexIndicator = regexp.MustCompile(`\\(?:frac|int|sum|sqrt|left|right|begin|end|pi|alpha|beta|gamma)\b|\^\{|\\\(|\\\)|\\\[|\\\]`)
)

// extractCodeBlocks swaps every fenced block for an indexed placeholder.
// Unterminated fences produce no match and stay in the text.
func extractCodeBlocks(text string) (string, []string) {
	var blocks []string
	replaced := fencePattern.ReplaceAllStringFunc(text, func(m string) string {
		blocks = append(blocks, m)
		return placeholder(len(blocks) - 1)
	})
	return replaced, blocks
}

func placeholder(idx int) string {
	return placeholderPrefix + strconv.Itoa(idx) + placeholderSuffix
}

// restoreCodeBlocks is the inverse of extractCodeBlocks.
func restoreCodeBlocks(text string, blocks []string) string {
	if len(blocks) == 0 {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(m string) string {
		idx, err := strconv.Atoi(m[len(placeholderPrefix) : len(m)-len(placeholderSuffix)])
		if err != nil || idx < 0 || idx >= len(blocks) {
			return m
		}
		return blocks[idx]
	})
}

// needsMathWrap reports whether code-free text looks like math that the
// model forgot to delimit. Any '$' means the text is already delimited.
func needsMathWrap(text string) bool {
	if strings.Contains(text, "$") {
		return false
	}
	return latexIndicator.MatchString(text)
}

// WrapLatexIfNeeded wraps LaTeX-looking model output in $$ block math when it
// carries no dollar delimiters of its own. Fenced code is never inspected or
// changed.
func WrapLatexIfNeeded(text string) string {
	if text == "" {
		return text
	}

	substituted, blocks := extractCodeBlocks(text)
	if needsMathWrap(substituted) {
		substituted = blockMathOpen + substituted + blockMathClose
	}
	return restoreCodeBlocks(substituted, blocks)
}

// Normalize applies WrapLatexIfNeeded to string values and returns anything
// else untouched. It is meant for content decoded from loosely typed JSON.
func Normalize(v any) (out any) {
	s, ok := v.(string)
	if !ok {
		return v
	}
	defer func() {
		if r := recover(); r != nil {
			out = v
		}
	}()
	return WrapLatexIfNeeded(s)
}

// Wrapped reports whether normalization changed the value.
func Wrapped(before, after any) bool {
	b, ok1 := before.(string)
	a, ok2 := after.(string)
	return ok1 && ok2 && a != b
}
