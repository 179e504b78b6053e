package workflow

import (
	"time"
)

// TradingDates returns every weekday in [start, end] at UTC midnight.
// Exchange holidays are not modelled; a holiday replays the previous close.
func TradingDates(start, end time.Time) []time.Time {
	start = day(start)
	end = day(end)
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if isWeekday(d) {
			out = append(out, d)
		}
	}
	return out
}

// ResolveDates 解析本次运行需要处理的交易日：override 优先，其次是配置区间，
// 二者都为空时取 today 当天（周末回退到上一个周五）。
func ResolveDates(start, end, override, today time.Time) []time.Time {
	if !override.IsZero() {
		return []time.Time{day(override)}
	}
	if start.IsZero() && end.IsZero() {
		return []time.Time{previousWeekday(day(today))}
	}
	if start.IsZero() {
		start = end
	}
	if end.IsZero() {
		end = day(today)
	}
	return TradingDates(start, end)
}

// pendingDates drops dates before the latest settled date. The latest date
// itself stays pending because it may have been interrupted between tickers.
func pendingDates(dates []time.Time, latest time.Time) (pending []time.Time, skipped int) {
	if latest.IsZero() {
		return dates, 0
	}
	latest = day(latest)
	for _, d := range dates {
		if d.Before(latest) {
			skipped++
			continue
		}
		pending = append(pending, d)
	}
	return pending, skipped
}

func previousWeekday(d time.Time) time.Time {
	for !isWeekday(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

func isWeekday(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
