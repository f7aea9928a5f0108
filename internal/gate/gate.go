package gate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"feed-agent/internal/config"
	"feed-agent/internal/genctx"
	"feed-agent/internal/x/textx"
)

// Verdict is the first-stage outcome for a mention.
type Verdict string

const (
	Respond Verdict = "RESPOND"
	Ignore  Verdict = "IGNORE"
	Stop    Verdict = "STOP"
)

const (
	decideInstruction = "Decide whether to reply to the mention above. " +
		"Answer with exactly one word: RESPOND, IGNORE, or STOP. " +
		"STOP means this conversation should end for good."

	composeInstruction = "Write your reply to the mention above. " +
		"Output only the reply text."

	generateInstruction = "Write one new standalone post on the theme above, " +
		"in your own voice. Output only the post text."
)

// Completer is the narrow generation-service surface the gate needs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Gate is the two-stage respond/ignore/stop oracle in front of generation,
// plus the original-content generator the scheduler shares.
type Gate struct {
	llm Completer
}

func New(llm Completer) *Gate {
	return &Gate{llm: llm}
}

// Decide runs the first stage. Unrecognized model output maps to Ignore;
// errors (including overload) propagate to the caller unchanged.
func (g *Gate) Decide(ctx context.Context, rc genctx.Context) (Verdict, error) {
	out, err := g.llm.Complete(ctx, rc.SystemPrompt(), rc.RenderReply()+"\n\n"+decideInstruction)
	if err != nil {
		return Ignore, fmt.Errorf("decide: %w", err)
	}
	v := ParseVerdict(out)
	log.Printf("%s gate decision: author=%s verdict=%s raw=%s",
		config.LogPrefix, rc.AuthorHandle, v, textx.PreviewString(out, config.LogLLMPreviewLen),
	)
	return v, nil
}

// Compose runs the second stage. Empty output is a valid result; the caller
// treats it as an implicit ignore.
func (g *Gate) Compose(ctx context.Context, rc genctx.Context) (string, error) {
	out, err := g.llm.Complete(ctx, rc.SystemPrompt(), rc.RenderReply()+"\n\n"+composeInstruction)
	if err != nil {
		return "", fmt.Errorf("compose: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Generate produces original content for the scheduler.
func (g *Gate) Generate(ctx context.Context, rc genctx.Context) (string, error) {
	out, err := g.llm.Complete(ctx, rc.SystemPrompt(), rc.RenderOriginal()+"\n\n"+generateInstruction)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// ParseVerdict maps model output to a Verdict by its first line. Anything
// unrecognized is Ignore.
func ParseVerdict(s string) Verdict {
	line := s
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.ToUpper(strings.TrimSpace(line))

	switch {
	case strings.HasPrefix(line, string(Stop)):
		return Stop
	case strings.HasPrefix(line, string(Respond)):
		return Respond
	default:
		return Ignore
	}
}
