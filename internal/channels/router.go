package channels

import (
	"sync"

	"github.com/nextlevelbuilder/goclaw/internal/bus"
)

// RouteRule maps a channel/account/peer/guild predicate to a target agent.
// Fields left empty act as wildcards. Guild and account are read from the
// inbound message's metadata since bus.InboundMessage does not carry
// dedicated fields for them.
type RouteRule struct {
	ID       string
	Priority int
	Channel  string
	Account  string
	Peer     string
	Guild    string
	AgentID  string
}

func (r RouteRule) matches(msg bus.InboundMessage) bool {
	if r.Channel != "" && r.Channel != msg.Channel {
		return false
	}
	if r.Account != "" && r.Account != msg.Metadata["account"] {
		return false
	}
	if r.Peer != "" && r.Peer != msg.SenderID {
		return false
	}
	if r.Guild != "" && r.Guild != msg.Metadata["guild"] {
		return false
	}
	return true
}

// RouteMatch is the resolved outcome of routing an inbound message.
type RouteMatch struct {
	AgentID string
	RuleID  string
}

// Router chooses a target agent id for each inbound message by evaluating
// rules in descending priority order, falling back to a default agent.
type Router struct {
	mu            sync.RWMutex
	rules         []RouteRule
	defaultAgent  string
	hasDefault    bool
}

func NewRouter() *Router {
	return &Router{}
}

// WithDefaultAgent sets the fallback agent used when no rule matches.
func (r *Router) WithDefaultAgent(agentID string) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultAgent = agentID
	r.hasDefault = true
	return r
}

// AddRule appends a routing rule. Rules are re-sorted by descending
// priority on every add; insertion order is preserved as the tiebreaker
// within an equal priority by using a stable sort.
func (r *Router) AddRule(rule RouteRule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
	stableSortByPriorityDesc(r.rules)
}

// RemoveRule deletes a rule by id, if present.
func (r *Router) RemoveRule(ruleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.rules[:0]
	for _, rule := range r.rules {
		if rule.ID != ruleID {
			out = append(out, rule)
		}
	}
	r.rules = out
}

// Route evaluates rules in descending priority order (ties broken by
// insertion order) and returns the first matching rule's agent, or the
// default agent under rule id "default" if none match. With neither a
// match nor a default, it returns a RoutingError.
func (r *Router) Route(msg *bus.InboundMessage) (RouteMatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rule := range r.rules {
		if rule.matches(*msg) {
			return RouteMatch{AgentID: rule.AgentID, RuleID: rule.ID}, nil
		}
	}

	if r.hasDefault {
		return RouteMatch{AgentID: r.defaultAgent, RuleID: "default"}, nil
	}

	return RouteMatch{}, NewRoutingError("no matching rule and no default agent configured")
}

// stableSortByPriorityDesc sorts in place by descending priority, preserving
// relative order of equal-priority rules (a manual insertion sort keeps
// this obviously stable without pulling in sort.SliceStable for a handful
// of rules per manager).
func stableSortByPriorityDesc(rules []RouteRule) {
	for i := 1; i < len(rules); i++ {
		key := rules[i]
		j := i - 1
		for j >= 0 && rules[j].Priority < key.Priority {
			rules[j+1] = rules[j]
			j--
		}
		rules[j+1] = key
	}
}
