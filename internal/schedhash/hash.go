package schedhash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Hash fingerprints the facts that should force a reschedule. The input
// is serialized as canonical JSON (object keys sorted at every depth,
// which json.Marshal guarantees for maps), so semantically identical
// inputs hash the same no matter how their config maps were built. It is
// a change detector, not a security primitive.
func Hash(triggerAt *time.Time, repeatKind string, active bool, snoozedUntil *time.Time, title string, repeatConfig map[string]any) string {
	payload := map[string]any{
		"triggerAt":    unixMilliOrNil(triggerAt),
		"repeat":       repeatKind,
		"active":       active,
		"snoozedUntil": unixMilliOrNil(snoozedUntil),
		"title":        title,
		"repeatConfig": repeatConfig,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		b = []byte(err.Error())
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func unixMilliOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}
