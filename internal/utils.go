package internal

import (
	"strings"

	"github.com/google/uuid"
)

func replaceIfEmpty(v string, s string) string {
	if v == "" {
		return s
	}

	return v
}

func boolToInt(v bool) int {
	if v {
		return 1
	}

	return 0
}

// generateStickerFileName returns a collision-resistant asset file name.
// Two concurrent mutations against the same pack must never pick the same
// name, so a timestamp is not enough.
func generateStickerFileName(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "") + AssetFileSuffix
}

// joinEmojis renders a sticker's tags the way the host row schema expects.
func joinEmojis(emojis []string) string {
	return strings.Join(emojis, ",")
}
