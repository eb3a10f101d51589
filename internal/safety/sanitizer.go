package safety

import (
	"regexp"
	"strings"
)

// InjectionMatch is one detected prompt-injection occurrence.
type InjectionMatch struct {
	Pattern  string
	Severity Severity
}

type injectionPattern struct {
	name     string
	regex    *regexp.Regexp
	prefix   string
	severity Severity
}

// defaultInjectionPatterns covers common prompt-injection phrasing. Engine
// shape mirrors LeakDetector: a literal-prefix pre-filter gates each regex.
var defaultInjectionPatterns = []injectionPattern{
	{"ignore_previous", regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior)\s+instructions`), "ignore", SeverityHigh},
	{"disregard_instructions", regexp.MustCompile(`(?i)disregard\s+(all\s+)?(the\s+)?(rules|instructions)`), "disregard", SeverityHigh},
	{"reveal_system_prompt", regexp.MustCompile(`(?i)reveal\s+(your|the)\s+system\s+prompt`), "reveal", SeverityHigh},
	{"pretend_no_restrictions", regexp.MustCompile(`(?i)pretend\s+you\s+(are|have)\s+no\s+(restrictions|rules|limits)`), "pretend", SeverityHigh},
	{"override_safety", regexp.MustCompile(`(?i)override\s+(your\s+)?(system\s+)?(prompt|instructions|safety)`), "override", SeverityHigh},
	{"bypass_safety", regexp.MustCompile(`(?i)bypass\s+(your\s+)?(system\s+)?(prompt|instructions|safety)`), "bypass", SeverityHigh},
	{"jailbreak", regexp.MustCompile(`(?i)jailbreak`), "jailbreak", SeverityMedium},
}

// Sanitizer detects prompt-injection phrasing using the same literal-prefix
// pre-filter design as LeakDetector (see its doc comment and DESIGN.md for
// why the prefix scan is hand-rolled rather than pulled from a library).
type Sanitizer struct {
	patterns       []injectionPattern
	uniquePrefixes []string
	prefixToIdx    [][]int
}

func NewSanitizer() *Sanitizer {
	s := &Sanitizer{patterns: defaultInjectionPatterns}
	seen := map[string]int{}
	for i, p := range s.patterns {
		lower := strings.ToLower(p.prefix)
		if idx, ok := seen[lower]; ok {
			s.prefixToIdx[idx] = append(s.prefixToIdx[idx], i)
			continue
		}
		seen[lower] = len(s.uniquePrefixes)
		s.uniquePrefixes = append(s.uniquePrefixes, p.prefix)
		s.prefixToIdx = append(s.prefixToIdx, []int{i})
	}
	return s
}

// Scan returns every injection pattern match found in text.
func (s *Sanitizer) Scan(text string) []InjectionMatch {
	var matches []InjectionMatch
	checked := make([]bool, len(s.patterns))
	lowerText := strings.ToLower(text)

	for offset := 0; offset < len(text); offset++ {
		for pi, prefix := range s.uniquePrefixes {
			lp := strings.ToLower(prefix)
			if offset+len(lp) > len(lowerText) {
				continue
			}
			if lowerText[offset:offset+len(lp)] != lp {
				continue
			}
			for _, patternIdx := range s.prefixToIdx[pi] {
				if checked[patternIdx] {
					continue
				}
				checked[patternIdx] = true
				p := s.patterns[patternIdx]
				for _, m := range p.regex.FindAllString(text, -1) {
					_ = m
					matches = append(matches, InjectionMatch{Pattern: p.name, Severity: p.severity})
				}
			}
		}
	}
	return matches
}
