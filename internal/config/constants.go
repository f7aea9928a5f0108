package config

import "time"

const (
	LogPrefix = "[feed-agent]"

	// DefaultMentionFanout caps how many mention candidates one poll tick asks for.
	DefaultMentionFanout = 5

	// ThreadMaxDepth bounds reconstructed conversation threads. Threads over
	// the bound are checkpointed but never answered.
	ThreadMaxDepth = 9

	RecentInteractionCount = 12
	RecentOwnPostCount     = 8
	TimelinePostCount      = 10
	InspireHeadlineCount   = 3

	// PostBudgetRunes is the target length for outbound posts; PostCeilingRunes
	// is the hard platform limit. Both are rune counts.
	PostBudgetRunes  = 240
	PostCeilingRunes = 280

	DefaultPollMinInterval    = 2 * time.Minute
	DefaultPollMaxInterval    = 7 * time.Minute
	DefaultComposeMinInterval = 180 * time.Minute
	DefaultComposeMaxInterval = 480 * time.Minute

	// PublishCooldown is observed after each successful reply publish before
	// the poller moves on to the next mention.
	PublishCooldown = 30 * time.Second

	TimelineCacheTTL = 6 * time.Hour
	AuditRetention   = 30 * 24 * time.Hour
	MemoryRetention  = 90 * 24 * time.Hour

	LLMMaxRetries          = 5
	LLMRetryInitialBackoff = 250 * time.Millisecond
	LLMRetryMaxBackoff     = 5 * time.Second

	LogContentPreviewLen = 160
	LogLLMPreviewLen     = 240

	CheckpointFileName = "checkpoint.json"
	TimelineFileName   = "timeline.json"
	AuditDirName       = "audit"
	MemoryDBFileName   = "feed-agent.db"
)
