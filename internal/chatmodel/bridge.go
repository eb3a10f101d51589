package chatmodel

import (
	"encoding/json"
	"time"

	"github.com/nextlevelbuilder/goclaw/internal/providers"
	"github.com/nextlevelbuilder/goclaw/internal/sessions"
)

func marshalArguments(args map[string]interface{}) (json.RawMessage, error) {
	if args == nil {
		return json.RawMessage("{}"), nil
	}
	return json.Marshal(args)
}

func unmarshalArguments(raw json.RawMessage) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// FromProviderMessage converts the flat LLM-wire Message used by
// internal/providers into the block-based Message the context monitor and
// approval manager operate on. A provider message carrying tool calls or a
// tool_call_id becomes block content; plain content becomes plain text.
func FromProviderMessage(m providers.Message) Message {
	role := Role(m.Role)
	if m.ToolCallID != "" {
		return Message{
			Role:      RoleTool,
			Content:   BlocksContent([]ContentBlock{ToolResultBlock(m.ToolCallID, m.Content, false)}),
			Timestamp: time.Now().UTC(),
		}
	}
	if len(m.ToolCalls) == 0 {
		return Message{Role: role, Content: TextContent(m.Content), Timestamp: time.Now().UTC()}
	}
	blocks := make([]ContentBlock, 0, len(m.ToolCalls)+1)
	if m.Content != "" {
		blocks = append(blocks, TextBlock(m.Content))
	}
	for _, tc := range m.ToolCalls {
		input, _ := marshalArguments(tc.Arguments)
		blocks = append(blocks, ToolUseBlock(tc.ID, tc.Name, input))
	}
	return Message{Role: role, Content: BlocksContent(blocks), Timestamp: time.Now().UTC()}
}

// ToProviderMessage flattens a block-based Message back into the wire shape
// the provider adapters send over HTTP. Non-text/tool_use/tool_result blocks
// (e.g. Image, Thinking) are dropped from the text field but not an error:
// providers that want images read ImageBlock content separately.
func ToProviderMessage(m Message) providers.Message {
	out := providers.Message{Role: string(m.Role)}
	if !m.Content.IsBlocks() {
		out.Content, _ = m.Content.AsText()
		return out
	}
	for _, b := range m.Content.Blocks() {
		switch b.Type {
		case BlockText:
			out.Content += b.Text
		case BlockToolResult:
			out.ToolCallID = b.ToolUseID
			out.Content += b.Content
		case BlockToolUse:
			args := unmarshalArguments(b.Input)
			out.ToolCalls = append(out.ToolCalls, providers.ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: args,
			})
		}
	}
	return out
}

// ToCore converts an on-disk persisted session into the core Session shape
// used by the context monitor and approval manager.
func ToCore(s *sessions.Session) *Session {
	core := &Session{
		Key:           s.Key,
		CreatedAt:     s.Created,
		LastMessageAt: s.Updated,
		Messages:      make([]Message, 0, len(s.Messages)),
		Tokens: TokenUsage{
			Input:  uint64(max64(s.InputTokens, 0)),
			Output: uint64(max64(s.OutputTokens, 0)),
		},
		TypeMode: TypeModeTyping,
	}
	if s.Model != "" {
		model := s.Model
		core.Model = &model
	}
	if s.Channel != "" {
		ch := s.Channel
		core.Metadata.Channel = &ch
	}
	for _, m := range s.Messages {
		core.Messages = append(core.Messages, FromProviderMessage(m))
	}
	return core
}

// FromCore writes a core Session's conversation and token state back onto an
// existing on-disk session, preserving the on-disk fields (compaction
// counters, spawn lineage) that have no equivalent in the core model.
func FromCore(dst *sessions.Session, core *Session) {
	dst.Messages = make([]providers.Message, 0, len(core.Messages))
	for _, m := range core.Messages {
		dst.Messages = append(dst.Messages, ToProviderMessage(m))
	}
	dst.InputTokens = int64(core.Tokens.Input)
	dst.OutputTokens = int64(core.Tokens.Output)
	dst.Updated = core.LastMessageAt
	if core.Model != nil {
		dst.Model = *core.Model
	}
	if core.Metadata.Channel != nil {
		dst.Channel = *core.Metadata.Channel
	}
}

func max64(v int64, floor int64) int64 {
	if v < floor {
		return floor
	}
	return v
}
