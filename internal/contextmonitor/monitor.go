// Package contextmonitor estimates token usage for a message history via a
// word-count heuristic and recommends a compaction strategy once usage
// crosses configurable thresholds.
package contextmonitor

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/nextlevelbuilder/goclaw/internal/chatmodel"
)

// Average number of tokens per whitespace-delimited word.
const tokensPerWord = 1.3

// Overhead tokens per message for role header / framing.
const messageOverhead = 4.0

// StrategyKind names a CompactionStrategy variant.
type StrategyKind int

const (
	StrategyNone StrategyKind = iota
	StrategySummarize
	StrategyTruncate
)

// CompactionStrategy is the monitor's recommendation for reducing context
// size. KeepRecent is only meaningful for Summarize/Truncate.
type CompactionStrategy struct {
	Kind       StrategyKind
	KeepRecent int
}

// Monitor tracks context window usage for one agent/session configuration.
type Monitor struct {
	contextLimit        int
	compactionThreshold float64
}

// New creates a Monitor with the default 0.8 (80%) compaction threshold.
func New(contextLimit int) *Monitor {
	return &Monitor{contextLimit: contextLimit, compactionThreshold: 0.8}
}

// WithThreshold overrides the compaction threshold (0.0-1.0).
func (m *Monitor) WithThreshold(threshold float64) *Monitor {
	m.compactionThreshold = threshold
	return m
}

// EstimateTokens estimates the token count for a slice of messages using a
// word-count heuristic; ToolUse/ToolResult/Image blocks use JSON size / 4
// instead of word counting.
func EstimateTokens(messages []chatmodel.Message) int {
	var total float64
	for _, msg := range messages {
		total += messageOverhead
		if !msg.Content.IsBlocks() {
			text, _ := msg.Content.AsText()
			total += estimateTextTokens(text)
			continue
		}
		for _, block := range msg.Content.Blocks() {
			total += estimateBlockTokens(block)
		}
	}
	return int(math.Ceil(total))
}

func estimateTextTokens(text string) float64 {
	return float64(len(strings.Fields(text))) * tokensPerWord
}

func estimateBlockTokens(block chatmodel.ContentBlock) float64 {
	switch block.Type {
	case chatmodel.BlockText:
		return estimateTextTokens(block.Text)
	case chatmodel.BlockThinking:
		return estimateTextTokens(block.Text)
	case chatmodel.BlockImage:
		if block.Source == nil {
			return 0
		}
		size := len(block.Source.Data) + len(block.Source.MediaType) + len(block.Source.SourceType)
		return float64(size) / 4.0
	case chatmodel.BlockToolUse:
		inputStr := ""
		if len(block.Input) > 0 {
			var compact []byte
			if b, err := json.Marshal(json.RawMessage(block.Input)); err == nil {
				compact = b
			}
			inputStr = string(compact)
		}
		size := len(block.ID) + len(block.Name) + len(inputStr)
		return float64(size) / 4.0
	case chatmodel.BlockToolResult:
		size := len(block.ToolUseID) + len(block.Content)
		return float64(size) / 4.0
	default:
		return 0
	}
}

// UsagePercent returns current usage as a fraction (0.0-1.0+) of the limit.
func (m *Monitor) UsagePercent(messages []chatmodel.Message) float64 {
	tokens := float64(EstimateTokens(messages))
	return tokens / float64(m.contextLimit)
}

// NeedsCompaction reports whether usage has crossed the threshold.
func (m *Monitor) NeedsCompaction(messages []chatmodel.Message) bool {
	return m.UsagePercent(messages) >= m.compactionThreshold
}

// SuggestStrategy recommends a strategy: below 80% None, 80-90% Summarize
// (keep 10), above 90% Truncate (keep 5).
func (m *Monitor) SuggestStrategy(messages []chatmodel.Message) CompactionStrategy {
	usage := m.UsagePercent(messages)
	switch {
	case usage < 0.8:
		return CompactionStrategy{Kind: StrategyNone}
	case usage < 0.9:
		return CompactionStrategy{Kind: StrategySummarize, KeepRecent: 10}
	default:
		return CompactionStrategy{Kind: StrategyTruncate, KeepRecent: 5}
	}
}
