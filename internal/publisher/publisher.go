package publisher

import (
	"context"
	"fmt"
	"log"

	"feed-agent/internal/config"
	"feed-agent/internal/feed"
	"feed-agent/internal/memory"
	"feed-agent/internal/x/textx"
)

// Poster is the feed surface the publisher submits through.
type Poster interface {
	PublishPost(ctx context.Context, text string, replyTo int64) (*feed.Post, error)
}

// Recorder persists durable post records and conversation rows.
type Recorder interface {
	RecordPost(ctx context.Context, rec memory.PostRecord) error
	EnsureConversation(ctx context.Context, id int64) error
}

// Publisher submits posts and owns the creation of their durable records.
// Safe for concurrent use.
type Publisher struct {
	poster   Poster
	recorder Recorder
	selfID   int64
	handle   string
}

func New(poster Poster, recorder Recorder, selfID int64, handle string) *Publisher {
	return &Publisher{poster: poster, recorder: recorder, selfID: selfID, handle: handle}
}

// Publish submits text to the feed. replyTo == 0 publishes a top-level post;
// conversationID == 0 lets the new post open its own conversation.
//
// A platform duplicate-submission rejection is benign: the platform already
// holds the post, so Publish returns no records and no error and the caller
// proceeds as if nothing needed sending. Any other platform error is a hard
// failure. Record persistence is best-effort once the platform has accepted
// the post.
func (p *Publisher) Publish(ctx context.Context, text string, conversationID, replyTo int64) ([]memory.PostRecord, error) {
	post, err := p.poster.PublishPost(ctx, text, replyTo)
	if err != nil {
		if feed.IsDuplicatePost(err) {
			log.Printf("%s duplicate post absorbed: conv=%d reply_to=%d text=%s",
				config.LogPrefix, conversationID, replyTo, textx.PreviewString(text, config.LogContentPreviewLen),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("publish post: %w", err)
	}

	conv := post.ConversationID
	if conv == 0 {
		conv = conversationID
	}
	if conv == 0 {
		conv = post.ID
	}

	rec := memory.PostRecord{
		ID:             post.ID,
		ConversationID: conv,
		AuthorID:       p.selfID,
		AuthorHandle:   p.handle,
		Body:           post.Text,
		ParentID:       replyTo,
		Self:           true,
		CreatedAt:      post.CreatedAt,
	}
	if rec.Body == "" {
		rec.Body = text
	}

	if err := p.recorder.EnsureConversation(ctx, conv); err != nil {
		log.Printf("%s ensure conversation failed: conv=%d err=%v", config.LogPrefix, conv, err)
	}
	if err := p.recorder.RecordPost(ctx, rec); err != nil {
		log.Printf("%s record published post failed: id=%d err=%v", config.LogPrefix, rec.ID, err)
	}

	log.Printf("%s published: id=%d conv=%d reply_to=%d text=%s",
		config.LogPrefix, post.ID, conv, replyTo, textx.PreviewString(rec.Body, config.LogContentPreviewLen),
	)
	return []memory.PostRecord{rec}, nil
}
