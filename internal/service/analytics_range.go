package service

import (
	"strings"
	"time"
)

// 统计区间预设
const (
	RangeToday     = "today"
	Range24h       = "24h"
	RangeThisWeek  = "this_week"
	Range7d        = "7d"
	RangeThisMonth = "this_month"
	Range30d       = "30d"
	Range90d       = "90d"
	RangeThisYear  = "this_year"
	Range6m        = "6m"
	Range12m       = "12m"
	RangeAll       = "all"
	RangeCustom    = "custom"

	DefaultRange = Range30d
)

// RangeQuery 为统计页的区间参数，From/To 为毫秒时间戳，仅 custom 使用
type RangeQuery struct {
	Preset string
	From   *int64
	To     *int64
}

// TimeRange 为解析后的闭区间，单位毫秒
type TimeRange struct {
	Preset  string `json:"preset"`
	StartAt int64  `json:"startAt"`
	EndAt   int64  `json:"endAt"`
}

// ResolveRange 将预设或自定义区间换算为具体起止时间。
// 自由区间缺少任一端点或未指定预设时回退到最近 30 天。
func ResolveRange(query RangeQuery, now time.Time, loc *time.Location) (TimeRange, error) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	end := now.UnixMilli()

	preset := strings.TrimSpace(query.Preset)
	if preset == RangeCustom {
		if query.From != nil && query.To != nil {
			if *query.From > *query.To {
				return TimeRange{}, validationError("range start must not be after range end")
			}
			return TimeRange{Preset: RangeCustom, StartAt: *query.From, EndAt: *query.To}, nil
		}
		preset = DefaultRange
	}
	if preset == "" {
		preset = DefaultRange
	}

	var start time.Time
	switch preset {
	case RangeToday:
		start = startOfDay(now)
	case Range24h:
		start = now.Add(-24 * time.Hour)
	case RangeThisWeek:
		// 周一为一周的第一天
		offset := (int(now.Weekday()) + 6) % 7
		start = startOfDay(now).AddDate(0, 0, -offset)
	case Range7d:
		start = now.AddDate(0, 0, -7)
	case RangeThisMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	case Range30d:
		start = now.AddDate(0, 0, -30)
	case Range90d:
		start = now.AddDate(0, 0, -90)
	case RangeThisYear:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
	case Range6m:
		start = now.AddDate(0, -6, 0)
	case Range12m:
		start = now.AddDate(0, -12, 0)
	case RangeAll:
		return TimeRange{Preset: RangeAll, StartAt: 0, EndAt: end}, nil
	default:
		return TimeRange{}, validationError("unknown range %q", query.Preset)
	}

	return TimeRange{Preset: preset, StartAt: start.UnixMilli(), EndAt: end}, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
