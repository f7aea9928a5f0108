package state

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvStateDir overrides the agent state directory when set.
const EnvStateDir = "FEED_AGENT_STATE_DIR"

// BaseDir returns the directory used for persistent agent state.
//
// Resolution order:
//  1. $FEED_AGENT_STATE_DIR
//  2. system user cache dir + "/feed-agent"
func BaseDir() string {
	if d := strings.TrimSpace(os.Getenv(EnvStateDir)); d != "" {
		return d
	}
	if d, err := os.UserCacheDir(); err == nil && strings.TrimSpace(d) != "" {
		return filepath.Join(d, "feed-agent")
	}
	panic("state.BaseDir: cannot determine system user cache directory")
}

// FilePath returns the path of a named state file under BaseDir.
func FilePath(name string) string {
	return filepath.Join(BaseDir(), name)
}

// SourceFile returns a per-source state file path, keyed by a short hash of
// the source identity so arbitrary identities (URLs, queries) stay filesystem-safe.
func SourceFile(kind, identity string) string {
	sum := sha256.Sum256([]byte(identity))
	shortHash := hex.EncodeToString(sum[:])[:12]
	return filepath.Join(BaseDir(), fmt.Sprintf("%s-%s.json", kind, shortHash))
}
