// Package chatmodel holds the core conversation data model shared by the
// context monitor, approval manager, and session store: messages, content
// blocks, and token accounting. It is distinct from internal/providers'
// flatter wire-format Message, which is the shape spoken to LLM HTTP APIs.
package chatmodel

import (
	"encoding/json"
	"time"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// BlockType tags the variant of a ContentBlock.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockImage      BlockType = "image"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
	BlockThinking   BlockType = "thinking"
)

// ImageSource describes the payload of an Image block.
type ImageSource struct {
	SourceType string `json:"type"`
	MediaType  string `json:"media_type"`
	Data       string `json:"data"`
}

// ContentBlock is one tagged element of a message's structured content.
// Exactly one of the type-specific fields is populated, matching the
// discriminant named by Type.
type ContentBlock struct {
	Type BlockType `json:"type"`

	// Text / Thinking
	Text string `json:"text,omitempty"`

	// Image
	Source *ImageSource `json:"source,omitempty"`

	// ToolUse
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// ToolResult
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

func TextBlock(text string) ContentBlock   { return ContentBlock{Type: BlockText, Text: text} }
func ThinkingBlock(t string) ContentBlock  { return ContentBlock{Type: BlockThinking, Text: t} }
func ImageBlock(src ImageSource) ContentBlock {
	return ContentBlock{Type: BlockImage, Source: &src}
}
func ToolUseBlock(id, name string, input json.RawMessage) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ID: id, Name: name, Input: input}
}
func ToolResultBlock(toolUseID, content string, isError bool) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolUseID: toolUseID, Content: content, IsError: isError}
}

// MessageContent is either plain text or an ordered list of content blocks.
// Exactly one of Text/Blocks is meaningful; IsBlocks reports which.
type MessageContent struct {
	text    string
	blocks  []ContentBlock
	isBlock bool
}

func TextContent(s string) MessageContent { return MessageContent{text: s} }
func BlocksContent(blocks []ContentBlock) MessageContent {
	return MessageContent{blocks: blocks, isBlock: true}
}

func (c MessageContent) IsBlocks() bool        { return c.isBlock }
func (c MessageContent) Blocks() []ContentBlock { return c.blocks }

// AsText returns the text if this is plain text content, or a single Text
// block; otherwise ("", false).
func (c MessageContent) AsText() (string, bool) {
	if !c.isBlock {
		return c.text, true
	}
	if len(c.blocks) == 1 && c.blocks[0].Type == BlockText {
		return c.blocks[0].Text, true
	}
	return "", false
}

// ToText joins all Text blocks (ignoring other block types), or returns the
// plain text as-is.
func (c MessageContent) ToText() string {
	if !c.isBlock {
		return c.text
	}
	out := ""
	for _, b := range c.blocks {
		if b.Type == BlockText {
			out += b.Text
		}
	}
	return out
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.isBlock {
		return json.Marshal(c.blocks)
	}
	return json.Marshal(c.text)
}

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = TextContent(s)
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	*c = BlocksContent(blocks)
	return nil
}

// Message is one conversation turn.
type Message struct {
	Role      Role           `json:"role"`
	Content   MessageContent `json:"content"`
	Name      *string        `json:"name,omitempty"`
	ToolUseID *string        `json:"tool_use_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: TextContent(text), Timestamp: time.Now().UTC()}
}

func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: TextContent(text), Timestamp: time.Now().UTC()}
}

func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: TextContent(text), Timestamp: time.Now().UTC()}
}

func ToolResultMessage(toolUseID, content string, isError bool) Message {
	return Message{
		Role:      RoleTool,
		Content:   BlocksContent([]ContentBlock{ToolResultBlock(toolUseID, content, isError)}),
		Timestamp: time.Now().UTC(),
	}
}

// TokenUsage accumulates token counts across a session's lifetime.
type TokenUsage struct {
	Input          uint64 `json:"input"`
	Output         uint64 `json:"output"`
	CacheCreation  uint64 `json:"cache_creation"`
	CacheRead      uint64 `json:"cache_read"`
}

func (u TokenUsage) Total() uint64 {
	return u.Input + u.Output + u.CacheCreation + u.CacheRead
}

func (u *TokenUsage) Add(other TokenUsage) {
	u.Input += other.Input
	u.Output += other.Output
	u.CacheCreation += other.CacheCreation
	u.CacheRead += other.CacheRead
}

// CostUsage tracks estimated USD cost.
type CostUsage struct {
	InputUSD  float64 `json:"input_usd"`
	OutputUSD float64 `json:"output_usd"`
	TotalUSD  float64 `json:"total_usd"`
}

// TypeMode controls when a channel shows a typing indicator.
type TypeMode string

const (
	TypeModeTyping   TypeMode = "typing"
	TypeModeNever    TypeMode = "never"
	TypeModeThinking TypeMode = "thinking"
	TypeModeMessage  TypeMode = "message"
)

// ThinkingLevel is the extended-thinking budget tier for a session or agent.
type ThinkingLevel string

const (
	ThinkingOff    ThinkingLevel = "off"
	ThinkingMinimal ThinkingLevel = "minimal"
	ThinkingLow    ThinkingLevel = "low"
	ThinkingMedium ThinkingLevel = "medium"
	ThinkingHigh   ThinkingLevel = "high"
	ThinkingXHigh  ThinkingLevel = "xhigh"
)

// BudgetTokens returns the thinking-token budget for a level, or 0 if off.
func (t ThinkingLevel) BudgetTokens() int {
	switch t {
	case ThinkingMinimal:
		return 1024
	case ThinkingLow:
		return 4096
	case ThinkingMedium:
		return 8192
	case ThinkingHigh:
		return 16384
	case ThinkingXHigh:
		return 32768
	default:
		return 0
	}
}

func (t ThinkingLevel) IsEnabled() bool { return t != ThinkingOff && t != "" }

// SessionMetadata carries free-form channel/account/peer context and labels.
type SessionMetadata struct {
	Channel   *string           `json:"channel,omitempty"`
	AccountID *string           `json:"account_id,omitempty"`
	PeerID    *string           `json:"peer_id,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// Session is a conversation bound to one agent, addressed by an opaque key.
type Session struct {
	Key            string          `json:"key"`
	AgentID        string          `json:"agent_id"`
	CreatedAt      time.Time       `json:"created_at"`
	LastMessageAt  time.Time       `json:"last_message_at"`
	Messages       []Message       `json:"messages"`
	Tokens         TokenUsage      `json:"tokens"`
	Cost           *CostUsage      `json:"cost,omitempty"`
	Model          *string         `json:"model,omitempty"`
	ThinkingLevel  *ThinkingLevel  `json:"thinking_level,omitempty"`
	TypeMode       TypeMode        `json:"type_mode"`
	Metadata       SessionMetadata `json:"metadata"`
}

// NewSession creates an empty session with default typing mode.
func NewSession(key, agentID string) *Session {
	now := time.Now().UTC()
	return &Session{
		Key:           key,
		AgentID:       agentID,
		CreatedAt:     now,
		LastMessageAt: now,
		Messages:      []Message{},
		TypeMode:      TypeModeTyping,
	}
}

// AddMessage appends a message and bumps LastMessageAt.
func (s *Session) AddMessage(m Message) {
	s.Messages = append(s.Messages, m)
	s.LastMessageAt = time.Now().UTC()
}

func (s *Session) TotalTokens() uint64 { return s.Tokens.Total() }
