// File: /utils/timefmt.go
package utils

import (
	"fmt"
	"time"

	"yonkoma-api/models"
)

// MalformedTimestampLabel is shown instead of a relative time when the
// timestamp cannot be parsed
const MalformedTimestampLabel = "日付のフォーマットが正しくありません"

// ParseTimestamp parses a post timestamp in models.TimestampLayout
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(models.TimestampLayout, s, loc)
}

// FormatTimestamp renders t in models.TimestampLayout
func FormatTimestamp(t time.Time) string {
	return t.Format(models.TimestampLayout)
}

// TimeAgo renders the elapsed time between createdAt and now as 〇日前,
// 〇時間前, 〇分前 or 〇秒前.
func TimeAgo(createdAt string, now time.Time) string {
	target, err := ParseTimestamp(createdAt, now.Location())
	if err != nil {
		return MalformedTimestampLabel
	}

	elapsed := now.Sub(target)
	switch {
	case elapsed >= 24*time.Hour:
		return fmt.Sprintf("%d日前", int(elapsed/(24*time.Hour)))
	case elapsed >= time.Hour:
		return fmt.Sprintf("%d時間前", int(elapsed/time.Hour))
	case elapsed >= time.Minute:
		return fmt.Sprintf("%d分前", int(elapsed/time.Minute))
	case elapsed >= 0:
		return fmt.Sprintf("%d秒前", int(elapsed/time.Second))
	default:
		return "今"
	}
}
