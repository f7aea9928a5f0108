package genctx

import (
	"errors"
	"math/rand"
	"strings"

	"feed-agent/internal/feed"
)

// Fallbacks substituted during rendering when a field is absent. Call sites
// never invent their own.
const (
	DefaultStyle  = "default"
	DefaultTheme  = "default"
	NoThread      = "(no earlier posts in this thread)"
	NoRecent      = "(no recent interactions)"
	NoTimeline    = "(timeline unavailable)"
	NoOwnPosts    = "(no recent standalone posts)"
	NoInspiration = "(no inspiration items)"
	NoMention     = "(none)"
)

// Context is the full enumerated field set the generation prompts may
// reference. Build it with New; rendering substitutes the defaults above for
// any optional field left empty.
type Context struct {
	Persona string

	Style string
	Theme string

	AuthorHandle string
	MentionText  string

	ThreadText      string
	RecentText      string
	TimelineText    string
	OwnPostsText    string
	InspirationText string
}

// New trims every field and checks the required ones.
func New(c Context) (Context, error) {
	c.Persona = strings.TrimSpace(c.Persona)
	c.Style = strings.TrimSpace(c.Style)
	c.Theme = strings.TrimSpace(c.Theme)
	c.AuthorHandle = strings.TrimSpace(strings.TrimPrefix(c.AuthorHandle, "@"))
	c.MentionText = strings.TrimSpace(c.MentionText)
	c.ThreadText = strings.TrimSpace(c.ThreadText)
	c.RecentText = strings.TrimSpace(c.RecentText)
	c.TimelineText = strings.TrimSpace(c.TimelineText)
	c.OwnPostsText = strings.TrimSpace(c.OwnPostsText)
	c.InspirationText = strings.TrimSpace(c.InspirationText)

	if c.Persona == "" {
		return Context{}, errors.New("persona text is required")
	}
	return c, nil
}

// SystemPrompt is the persona instruction shared by every generation call.
func (c Context) SystemPrompt() string {
	var b strings.Builder
	b.WriteString(c.Persona)
	b.WriteString("\n\nVoice: ")
	b.WriteString(orDefault(c.Style, DefaultStyle))
	b.WriteString(".\nStay in character. One short post per reply, no preamble.")
	return b.String()
}

// RenderReply assembles the context block for the mention pipeline.
func (c Context) RenderReply() string {
	var b strings.Builder
	writeSection(&b, "Recent interactions", orDefault(c.RecentText, NoRecent))
	writeSection(&b, "Thread so far", orDefault(c.ThreadText, NoThread))
	writeSection(&b, "Home timeline", orDefault(c.TimelineText, NoTimeline))
	writeSection(&b, "Mention to consider", c.mentionLine())
	return strings.TrimRight(b.String(), "\n")
}

// RenderOriginal assembles the context block for scheduled original content.
func (c Context) RenderOriginal() string {
	var b strings.Builder
	writeSection(&b, "Theme", orDefault(c.Theme, DefaultTheme))
	writeSection(&b, "Your recent standalone posts", orDefault(c.OwnPostsText, NoOwnPosts))
	writeSection(&b, "Inspiration", orDefault(c.InspirationText, NoInspiration))
	writeSection(&b, "Home timeline", orDefault(c.TimelineText, NoTimeline))
	return strings.TrimRight(b.String(), "\n")
}

func (c Context) mentionLine() string {
	return Line(c.AuthorHandle, orDefault(c.MentionText, NoMention))
}

// Sample picks one library entry pseudo-randomly, falling back to
// DefaultStyle for an empty library or a blank entry.
func Sample(lib []string) string {
	if len(lib) == 0 {
		return DefaultStyle
	}
	s := strings.TrimSpace(lib[rand.Intn(len(lib))])
	if s == "" {
		return DefaultStyle
	}
	return s
}

// Line renders one attributed utterance for prompt context.
func Line(handle, text string) string {
	handle = strings.TrimSpace(strings.TrimPrefix(handle, "@"))
	if handle == "" {
		return text
	}
	return "@" + handle + ": " + text
}

// FormatPosts renders posts one per line, oldest first, as "@handle: text".
func FormatPosts(posts []feed.Post) string {
	if len(posts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(posts))
	for _, p := range posts {
		handle := p.AuthorHandle
		if handle == "" {
			handle = feed.FormatID(p.AuthorID)
		}
		lines = append(lines, Line(handle, p.Text))
	}
	return strings.Join(lines, "\n")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func writeSection(b *strings.Builder, title, body string) {
	b.WriteString("## ")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n\n")
}
