package chatmodel

import "testing"

func TestTokenUsageTotal(t *testing.T) {
	u := TokenUsage{Input: 100, Output: 200, CacheCreation: 50, CacheRead: 30}
	if got := u.Total(); got != 380 {
		t.Fatalf("Total() = %d, want 380", got)
	}
}

func TestTokenUsageAdd(t *testing.T) {
	u := TokenUsage{Input: 10, Output: 20}
	u.Add(TokenUsage{Input: 5, Output: 5, CacheRead: 1})
	want := TokenUsage{Input: 15, Output: 25, CacheRead: 1}
	if u != want {
		t.Fatalf("Add() = %+v, want %+v", u, want)
	}
}

func TestMessageContentToTextJoinsTextBlocksOnly(t *testing.T) {
	c := BlocksContent([]ContentBlock{
		TextBlock("foo"),
		ThinkingBlock("ignored"),
		TextBlock("bar"),
	})
	if got := c.ToText(); got != "foobar" {
		t.Fatalf("ToText() = %q, want %q", got, "foobar")
	}
}

func TestMessageContentAsTextSingleTextBlock(t *testing.T) {
	c := BlocksContent([]ContentBlock{TextBlock("hello")})
	got, ok := c.AsText()
	if !ok || got != "hello" {
		t.Fatalf("AsText() = (%q, %v), want (%q, true)", got, ok, "hello")
	}
}

func TestMessageContentAsTextMultiBlockIsNone(t *testing.T) {
	c := BlocksContent([]ContentBlock{TextBlock("a"), TextBlock("b")})
	if _, ok := c.AsText(); ok {
		t.Fatalf("AsText() on multi-block content should fail")
	}
}

func TestMessageContentAsTextPlain(t *testing.T) {
	c := TextContent("plain")
	got, ok := c.AsText()
	if !ok || got != "plain" {
		t.Fatalf("AsText() = (%q, %v), want (%q, true)", got, ok, "plain")
	}
}

func TestMessageToolResult(t *testing.T) {
	m := ToolResultMessage("tu_123", "result data", false)
	if m.Role != RoleTool {
		t.Fatalf("Role = %v, want Tool", m.Role)
	}
	blocks := m.Content.Blocks()
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	b := blocks[0]
	if b.Type != BlockToolResult || b.ToolUseID != "tu_123" || b.Content != "result data" || b.IsError {
		t.Fatalf("unexpected block: %+v", b)
	}
}

func TestUserAssistantSystemConstructorsProduceTextContent(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
		role Role
	}{
		{"user", UserMessage("hi"), RoleUser},
		{"assistant", AssistantMessage("hi"), RoleAssistant},
		{"system", SystemMessage("hi"), RoleSystem},
	}
	for _, c := range cases {
		if c.msg.Role != c.role {
			t.Errorf("%s: Role = %v, want %v", c.name, c.msg.Role, c.role)
		}
		if c.msg.Content.IsBlocks() {
			t.Errorf("%s: expected plain text content", c.name)
		}
		text, ok := c.msg.Content.AsText()
		if !ok || text != "hi" {
			t.Errorf("%s: AsText() = (%q, %v)", c.name, text, ok)
		}
	}
}
