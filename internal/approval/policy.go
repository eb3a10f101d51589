package approval

import (
	"encoding/json"
	"regexp"
)

// Pattern is a regex-based auto-approve/auto-deny rule matched against a
// tool name. ArgPatterns is reserved for future per-argument matching and is
// currently unused by IsAutoApproved/IsAutoDenied, matching the upstream
// policy engine this is grounded on.
type Pattern struct {
	ToolPattern string
	ArgPatterns map[string]string
}

// Policy decides whether a tool call should bypass the pending workflow
// entirely. Auto-approve is checked before auto-deny, so when both an
// approve and a deny rule match the same tool, approve wins.
type Policy struct {
	AutoApprove         []string
	AutoDeny            []string
	AutoApprovePatterns []Pattern
	AutoDenyPatterns    []Pattern
}

// IsAutoApproved reports whether tool matches an exact name or regex rule in
// the approve list. A malformed regex in a pattern never matches and never
// propagates as an error; it is simply skipped.
func (p *Policy) IsAutoApproved(tool string, _ json.RawMessage) bool {
	return matchesPolicy(tool, p.AutoApprove, p.AutoApprovePatterns)
}

// IsAutoDenied reports whether tool matches an exact name or regex rule in
// the deny list, with the same malformed-regex tolerance as IsAutoApproved.
func (p *Policy) IsAutoDenied(tool string, _ json.RawMessage) bool {
	return matchesPolicy(tool, p.AutoDeny, p.AutoDenyPatterns)
}

func matchesPolicy(tool string, exact []string, patterns []Pattern) bool {
	for _, t := range exact {
		if t == tool {
			return true
		}
	}
	for _, pat := range patterns {
		re, err := regexp.Compile(pat.ToolPattern)
		if err != nil {
			continue
		}
		if re.MatchString(tool) {
			return true
		}
	}
	return false
}
