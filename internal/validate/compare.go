package validate

import (
	"strings"
	"time"
)

// Method selects the comparison algorithm.
type Method string

const (
	// MethodLCS scores coverage by longest-common-subsequence over
	// tokens, which tolerates reordered chrome but respects order.
	MethodLCS Method = "lcs"
	// MethodJaccard scores coverage by shingled-token set containment,
	// which is cheaper and order-insensitive.
	MethodJaccard Method = "jaccard"
)

const (
	// StatusComplete marks a page that met the coverage policy.
	StatusComplete = "Complete"
	// StatusAttention marks a page that needs a human look.
	StatusAttention = "Attention"
)

const (
	maxSampledSpans = 5
	// Gaps shorter than this are punctuation and glyph noise, not
	// missing content.
	minSpanTokens = 3
	maxSpanRunes  = 120

	defaultShingleSize = 3

	// Above this many DP cells the full LCS table is too large; an
	// in-order greedy match approximates it from below.
	maxLCSCells = 4 << 20
)

// Report is the outcome of one comparison run.
type Report struct {
	Coverage     float64
	MissingCount int
	MissingSpans []string
	Method       Method
	RunID        string
	Status       string
	CheckedAt    time.Time
}

// Compare scores how much of the canonical source text appears in the
// canonical page text. Missing spans are sampled up to five.
func Compare(sourceText, pageText string, method Method) *Report {
	source := tokenize(sourceText)
	page := tokenize(pageText)

	rep := &Report{Method: method, CheckedAt: time.Now().UTC()}
	if len(source) == 0 {
		rep.Coverage = 1
		rep.Status = StatusComplete
		return rep
	}

	var matched []bool
	switch method {
	case MethodJaccard:
		rep.Coverage, matched = jaccardCoverage(source, page, defaultShingleSize)
	default:
		rep.Method = MethodLCS
		rep.Coverage, matched = lcsCoverage(source, page)
	}

	spans, total := missingSpans(source, matched)
	rep.MissingSpans = spans
	rep.MissingCount = total
	rep.Status = statusFor(rep.Coverage, rep.MissingCount)
	return rep
}

func statusFor(coverage float64, missing int) string {
	if coverage >= defaultCoverageThreshold && missing <= defaultMaxMissing {
		return StatusComplete
	}
	return StatusAttention
}

// lcsCoverage returns the fraction of source tokens present in the page
// as an in-order subsequence, plus a per-token matched mask.
func lcsCoverage(source, page []string) (float64, []bool) {
	n, m := len(source), len(page)
	if m == 0 {
		return 0, make([]bool, n)
	}
	if n*m > maxLCSCells {
		return greedyCoverage(source, page)
	}

	table := make([][]int32, n+1)
	for i := range table {
		table[i] = make([]int32, m+1)
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if source[i-1] == page[j-1] {
				table[i][j] = table[i-1][j-1] + 1
			} else {
				table[i][j] = max(table[i-1][j], table[i][j-1])
			}
		}
	}

	matched := make([]bool, n)
	for i, j := n, m; i > 0 && j > 0; {
		switch {
		case source[i-1] == page[j-1]:
			matched[i-1] = true
			i--
			j--
		case table[i-1][j] >= table[i][j-1]:
			i--
		default:
			j--
		}
	}
	return float64(table[n][m]) / float64(n), matched
}

// greedyCoverage is the large-document fallback: a single in-order pass
// that never overstates what the LCS would find.
func greedyCoverage(source, page []string) (float64, []bool) {
	matched := make([]bool, len(source))
	count, j := 0, 0
	for i, tok := range source {
		for k := j; k < len(page); k++ {
			if page[k] == tok {
				matched[i] = true
				count++
				j = k + 1
				break
			}
		}
	}
	return float64(count) / float64(len(source)), matched
}

// jaccardCoverage shingles both token streams and reports the fraction
// of source shingles found on the page. Tokens belonging to an absent
// shingle are marked missing.
func jaccardCoverage(source, page []string, k int) (float64, []bool) {
	matched := make([]bool, len(source))
	if len(source) < k {
		k = len(source)
	}

	pageSet := make(map[string]struct{})
	for i := 0; i+k <= len(page); i++ {
		pageSet[strings.Join(page[i:i+k], " ")] = struct{}{}
	}

	total, found := 0, 0
	for i := 0; i+k <= len(source); i++ {
		total++
		if _, ok := pageSet[strings.Join(source[i:i+k], " ")]; ok {
			found++
			for t := i; t < i+k; t++ {
				matched[t] = true
			}
		}
	}
	if total == 0 {
		return 0, matched
	}
	return float64(found) / float64(total), matched
}

// missingSpans collapses runs of unmatched source tokens into readable
// spans. Runs shorter than minSpanTokens are ignored. Returns up to
// maxSampledSpans samples and the total count of qualifying spans.
func missingSpans(source []string, matched []bool) ([]string, int) {
	var spans []string
	total := 0

	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		if end-start >= minSpanTokens {
			total++
			if len(spans) < maxSampledSpans {
				spans = append(spans, truncateSpan(strings.Join(source[start:end], " ")))
			}
		}
		start = -1
	}

	for i := range source {
		if matched[i] {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(source))
	return spans, total
}

func truncateSpan(s string) string {
	runes := []rune(s)
	if len(runes) <= maxSpanRunes {
		return s
	}
	return string(runes[:maxSpanRunes]) + "…"
}
