package feed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"feed-agent/internal/x/textx"
)

// Post is one platform post normalized for the agent. The platform transmits
// ids as decimal strings; they are parsed once here so every comparison
// downstream is numeric magnitude, never lexicographic.
type Post struct {
	ID             int64
	AuthorID       int64
	AuthorHandle   string
	AuthorName     string
	Text           string
	ConversationID int64
	ParentID       int64 // 0 = top-level post
	CreatedAt      time.Time
}

func (p Post) IsReply() bool { return p.ParentID != 0 }

type postJSON struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	ConversationID string `json:"conversation_id"`
	InReplyToID    string `json:"in_reply_to_id"`
	CreatedAt      string `json:"created_at"`
	Author         struct {
		ID     string `json:"id"`
		Handle string `json:"handle"`
		Name   string `json:"name"`
	} `json:"author"`
}

type postListJSON struct {
	Posts []postJSON `json:"posts"`
}

type publishJSON struct {
	Text        string `json:"text"`
	InReplyToID string `json:"in_reply_to_id,omitempty"`
}

func (p postJSON) toPost() (Post, error) {
	id, err := parseWireID(p.ID)
	if err != nil {
		return Post{}, fmt.Errorf("post id: %w", err)
	}
	authorID, err := parseWireID(p.Author.ID)
	if err != nil {
		return Post{}, fmt.Errorf("post %d author id: %w", id, err)
	}

	out := Post{
		ID:           id,
		AuthorID:     authorID,
		AuthorHandle: strings.TrimSpace(p.Author.Handle),
		AuthorName:   strings.TrimSpace(p.Author.Name),
		Text:         textx.CleanText(p.Text),
	}
	// Optional references: a malformed value degrades to absent.
	if v, err := parseWireID(p.ConversationID); err == nil {
		out.ConversationID = v
	}
	if v, err := parseWireID(p.InReplyToID); err == nil {
		out.ParentID = v
	}
	if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(p.CreatedAt)); err == nil {
		out.CreatedAt = ts
	}
	return out, nil
}

func parseWireID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty id")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return v, nil
}

func toPosts(items []postJSON) []Post {
	out := make([]Post, 0, len(items))
	for _, it := range items {
		p, err := it.toPost()
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FormatID renders an id the way the platform expects it on the wire.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
