package genctx

import (
	"strings"
	"testing"

	"feed-agent/internal/feed"
)

func TestNewRequiresPersona(t *testing.T) {
	if _, err := New(Context{Persona: "   "}); err == nil {
		t.Fatal("expected error for blank persona")
	}

	c, err := New(Context{Persona: "  a cat  ", AuthorHandle: "@bob ", MentionText: " hi "})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if c.Persona != "a cat" {
		t.Fatalf("expected trimmed persona, got %q", c.Persona)
	}
	if c.AuthorHandle != "bob" {
		t.Fatalf("expected handle without @, got %q", c.AuthorHandle)
	}
	if c.MentionText != "hi" {
		t.Fatalf("expected trimmed mention, got %q", c.MentionText)
	}
}

func TestSystemPrompt(t *testing.T) {
	c, _ := New(Context{Persona: "a curious cat", Style: "playful"})
	got := c.SystemPrompt()
	if !strings.Contains(got, "a curious cat") {
		t.Fatalf("expected persona in system prompt, got %q", got)
	}
	if !strings.Contains(got, "Voice: playful.") {
		t.Fatalf("expected style voice line, got %q", got)
	}

	c2, _ := New(Context{Persona: "p"})
	if !strings.Contains(c2.SystemPrompt(), "Voice: "+DefaultStyle+".") {
		t.Fatal("expected default style in system prompt")
	}
}

func TestRenderReplyDefaults(t *testing.T) {
	c, _ := New(Context{Persona: "p", AuthorHandle: "alice", MentionText: "hello"})
	got := c.RenderReply()

	for _, want := range []string{NoRecent, NoThread, NoTimeline, "@alice: hello"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in rendered reply context, got:\n%s", want, got)
		}
	}
}

func TestRenderReplyUsesProvidedFields(t *testing.T) {
	c, _ := New(Context{
		Persona:      "p",
		AuthorHandle: "alice",
		MentionText:  "hello",
		ThreadText:   "@root: start",
		RecentText:   "@alice: earlier",
		TimelineText: "@carol: news",
	})
	got := c.RenderReply()

	for _, want := range []string{"@root: start", "@alice: earlier", "@carol: news"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in rendered reply context, got:\n%s", want, got)
		}
	}
	for _, absent := range []string{NoRecent, NoThread, NoTimeline} {
		if strings.Contains(got, absent) {
			t.Fatalf("expected no fallback %q, got:\n%s", absent, got)
		}
	}
}

func TestRenderReplyMentionFallback(t *testing.T) {
	c, _ := New(Context{Persona: "p"})
	if got := c.RenderReply(); !strings.Contains(got, NoMention) {
		t.Fatalf("expected mention fallback, got:\n%s", got)
	}
}

func TestRenderOriginalDefaults(t *testing.T) {
	c, _ := New(Context{Persona: "p"})
	got := c.RenderOriginal()

	for _, want := range []string{DefaultTheme, NoOwnPosts, NoInspiration, NoTimeline} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in rendered original context, got:\n%s", want, got)
		}
	}
}

func TestRenderOriginalUsesTheme(t *testing.T) {
	c, _ := New(Context{Persona: "p", Theme: "rainy days", OwnPostsText: "earlier musings"})
	got := c.RenderOriginal()
	if !strings.Contains(got, "rainy days") {
		t.Fatalf("expected theme, got:\n%s", got)
	}
	if !strings.Contains(got, "earlier musings") {
		t.Fatalf("expected own posts text, got:\n%s", got)
	}
	if strings.Contains(got, NoOwnPosts) {
		t.Fatalf("expected no own-posts fallback, got:\n%s", got)
	}
}

func TestFormatPosts(t *testing.T) {
	if got := FormatPosts(nil); got != "" {
		t.Fatalf("expected empty string for no posts, got %q", got)
	}

	posts := []feed.Post{
		{ID: 1, AuthorID: 10, AuthorHandle: "alice", Text: "first"},
		{ID: 2, AuthorID: 20, Text: "second"},
	}
	got := FormatPosts(posts)
	want := "@alice: first\n@20: second"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestLine(t *testing.T) {
	if got := Line("", "bare"); got != "bare" {
		t.Fatalf("expected bare text, got %q", got)
	}
	if got := Line("@bob", "hi"); got != "@bob: hi" {
		t.Fatalf("expected @bob prefix, got %q", got)
	}
}

func TestSample(t *testing.T) {
	if got := Sample(nil); got != DefaultStyle {
		t.Fatalf("expected default for empty library, got %q", got)
	}
	if got := Sample([]string{"   "}); got != DefaultStyle {
		t.Fatalf("expected default for blank entry, got %q", got)
	}
	if got := Sample([]string{"only"}); got != "only" {
		t.Fatalf("expected the single entry, got %q", got)
	}

	lib := []string{"a", "b", "c"}
	for i := 0; i < 50; i++ {
		got := Sample(lib)
		if got != "a" && got != "b" && got != "c" {
			t.Fatalf("expected a library entry, got %q", got)
		}
	}
}
