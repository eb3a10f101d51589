package safety

import (
	"regexp"
	"strings"
)

// LeakAction is the disposition for a matched secret pattern.
type LeakAction int

const (
	LeakBlock LeakAction = iota
	LeakRedact
	LeakWarn
)

func (a LeakAction) String() string {
	switch a {
	case LeakBlock:
		return "block"
	case LeakRedact:
		return "redact"
	case LeakWarn:
		return "warn"
	default:
		return "unknown"
	}
}

// LeakMatch is one detected secret occurrence.
type LeakMatch struct {
	PatternName string
	MatchedText string
	Severity    Severity
	Action      LeakAction
}

type leakPattern struct {
	name     string
	regex    *regexp.Regexp
	prefix   string
	severity Severity
	action   LeakAction
}

// defaultLeakPatterns mirrors the canonical secret-scanner table: name,
// regex, literal prefix (empty means "run on whole text, no pre-filter"),
// severity, action.
var defaultLeakPatterns = []leakPattern{
	{"openai_api_key", regexp.MustCompile(`sk-(?:proj-)?[a-zA-Z0-9]{20,}`), "sk-", SeverityCritical, LeakBlock},
	{"anthropic_api_key", regexp.MustCompile(`sk-ant-api[a-zA-Z0-9_-]{90,}`), "sk-ant-api", SeverityCritical, LeakBlock},
	{"aws_access_key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`), "AKIA", SeverityCritical, LeakBlock},
	{"github_pat", regexp.MustCompile(`ghp_[A-Za-z0-9_]{36,}`), "ghp_", SeverityCritical, LeakBlock},
	{"github_fine_grained_pat", regexp.MustCompile(`github_pat_[a-zA-Z0-9]{22}_[a-zA-Z0-9]{59}`), "github_pat_", SeverityCritical, LeakBlock},
	{"stripe_secret_key", regexp.MustCompile(`sk_(?:live|test)_[a-zA-Z0-9]{24,}`), "sk_", SeverityCritical, LeakBlock},
	{"google_api_key", regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`), "AIza", SeverityHigh, LeakBlock},
	{"slack_token", regexp.MustCompile(`xox[baprs]-[0-9a-zA-Z-]{10,}`), "xox", SeverityHigh, LeakBlock},
	{"pem_private_key", regexp.MustCompile(`-----BEGIN\s+(?:RSA\s+)?PRIVATE\s+KEY-----`), "-----BEGIN", SeverityCritical, LeakBlock},
	{"ssh_private_key", regexp.MustCompile(`-----BEGIN\s+(?:OPENSSH|EC|DSA)\s+PRIVATE\s+KEY-----`), "-----BEGIN", SeverityCritical, LeakBlock},
	{"bearer_token", regexp.MustCompile(`Bearer\s+[a-zA-Z0-9_-]{20,}`), "Bearer", SeverityHigh, LeakRedact},
	{"auth_header", regexp.MustCompile(`(?i)authorization:\s*[a-zA-Z]+\s+[a-zA-Z0-9_-]{20,}`), "uthorization:", SeverityHigh, LeakRedact},
	{"high_entropy_hex", regexp.MustCompile(`\b[a-fA-F0-9]{64}\b`), "", SeverityMedium, LeakWarn},
}

// LeakDetector scans text for leaked credentials using a literal-prefix
// pre-filter in front of the full pattern regexes.
//
// The pre-filter is a hand-rolled overlapping scanner rather than an
// Aho-Corasick automaton: see DESIGN.md for why no suitable third-party
// multi-pattern matcher is available, and why a linear scan over the small
// (~9) unique-prefix set is correctness-equivalent to one here. It checks
// every unique prefix at every byte offset independently, so a shorter
// prefix (e.g. "sk-") never shadows a longer one starting at the same
// offset (e.g. "sk-ant-api").
type LeakDetector struct {
	patterns       []leakPattern
	uniquePrefixes []string
	prefixToIdx    [][]int // parallel to uniquePrefixes; pattern indices sharing that prefix
}

func NewLeakDetector() *LeakDetector {
	d := &LeakDetector{patterns: defaultLeakPatterns}
	seen := map[string]int{}
	for i, p := range d.patterns {
		if p.prefix == "" {
			continue
		}
		lower := strings.ToLower(p.prefix)
		if idx, ok := seen[lower]; ok {
			d.prefixToIdx[idx] = append(d.prefixToIdx[idx], i)
			continue
		}
		seen[lower] = len(d.uniquePrefixes)
		d.uniquePrefixes = append(d.uniquePrefixes, p.prefix)
		d.prefixToIdx = append(d.prefixToIdx, []int{i})
	}
	return d
}

// Scan returns every pattern match found in text.
func (d *LeakDetector) Scan(text string) []LeakMatch {
	var matches []LeakMatch
	checked := make([]bool, len(d.patterns))
	lowerText := strings.ToLower(text)

	// Phase 1: prefix-gated patterns, overlapping scan over every offset.
	for offset := 0; offset < len(text); offset++ {
		for pi, prefix := range d.uniquePrefixes {
			lp := strings.ToLower(prefix)
			if offset+len(lp) > len(lowerText) {
				continue
			}
			if lowerText[offset:offset+len(lp)] != lp {
				continue
			}
			for _, patternIdx := range d.prefixToIdx[pi] {
				if checked[patternIdx] {
					continue
				}
				checked[patternIdx] = true
				matches = append(matches, findAll(d.patterns[patternIdx], text)...)
			}
		}
	}

	// Phase 2: prefix-less patterns run on the whole text as a fallback.
	for i, p := range d.patterns {
		if checked[i] || p.prefix != "" {
			continue
		}
		matches = append(matches, findAll(p, text)...)
	}

	return matches
}

func findAll(p leakPattern, text string) []LeakMatch {
	found := p.regex.FindAllString(text, -1)
	out := make([]LeakMatch, 0, len(found))
	for _, m := range found {
		out = append(out, LeakMatch{
			PatternName: p.name,
			MatchedText: m,
			Severity:    p.severity,
			Action:      p.action,
		})
	}
	return out
}

// ScanAndClean scans text and returns a cleaned copy: Block matches become
// "[BLOCKED: name]", Redact matches become "[REDACTED]", Warn matches are
// left in place.
func (d *LeakDetector) ScanAndClean(text string) (string, []LeakMatch) {
	matches := d.Scan(text)
	if len(matches) == 0 {
		return text, matches
	}
	result := text
	for _, leak := range matches {
		switch leak.Action {
		case LeakBlock:
			result = strings.ReplaceAll(result, leak.MatchedText, "[BLOCKED: "+leak.PatternName+"]")
		case LeakRedact:
			result = strings.ReplaceAll(result, leak.MatchedText, "[REDACTED]")
		case LeakWarn:
			// left in place; callers log it
		}
	}
	return result, matches
}

// MaskSecret shows the first and last four characters of a secret and masks
// the middle; secrets of 8 characters or fewer become an equal-length run
// of asterisks.
func MaskSecret(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	prefix := secret[:4]
	suffix := secret[len(secret)-4:]
	return prefix + strings.Repeat("*", len(secret)-8) + suffix
}
