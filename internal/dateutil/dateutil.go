// Package dateutil 统一处理“按天”粒度的日期。
// 所有日期使用 UTC，入库前截断掉时分秒；网络传输使用 ISO8601 日期（2006-01-02）。
package dateutil

import (
	"time"

	"github.com/RentalGrid/RentalGrid/internal/apperr"
)

const dayLayout = "2006-01-02"

// Truncate 把时间截断到当天零点（UTC）。
func Truncate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today 当天零点（UTC）。
func Today() time.Time {
	return Truncate(time.Now())
}

// Parse 解析 ISO8601 日期字符串并截断到天。
func Parse(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, apperr.InvalidDate("Invalid date format")
	}
	return Truncate(t), nil
}

// Format 输出 ISO8601 日期字符串。
func Format(t time.Time) string {
	return Truncate(t).Format(dayLayout)
}

// BookingDays 含首尾的预订天数：同一天取车还车计 1 天。
func BookingDays(start, end time.Time) int {
	return int(Truncate(end).Sub(Truncate(start))/(24*time.Hour)) + 1
}

// Before 按天比较：t1 所在的自然日是否严格早于 t2。
func Before(t1, t2 time.Time) bool {
	return Truncate(t1).Before(Truncate(t2))
}
