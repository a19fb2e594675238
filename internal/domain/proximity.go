package domain

import (
	"fmt"
	"time"
)

// Proximity 表示某个纪念日相对今天的临近度
//
// Days 是排序键：未来日期为负（越近越接近 0），过去日期为正，当天为 0。
// 按 Days 取最大且 <= 0 的条目即为"下一个即将到来"的纪念日。
type Proximity struct {
	Label  string    `json:"label"`  // 展示文本，如 "D-Day"、"D-7"、"D+30"
	Days   int       `json:"days"`   // 排序键（未来为负数）
	Target time.Time `json:"target"` // 参与计算的目标日期（当年或次年）
}

// midnight 将时间截断到日历日的零点，丢弃时分秒与时区偏移带来的误差
//
// 统一用 UTC 重建，保证两个日期相减的小时数恰为 24 的整数倍。
func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ComputeProximity 计算纪念日相对 today 的 D-day 信息
//
// 非周年日期直接取日历差；周年日期取当年同月同日，若已过则滚动到次年，
// 因此周年纪念日的目标日期恒不早于今天。
func ComputeProximity(date time.Time, recurring bool, today time.Time) Proximity {
	base := midnight(today)
	target := midnight(date)

	if recurring {
		y, _, _ := base.Date()
		_, m, d := target.Date()
		target = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		if target.Before(base) {
			target = time.Date(y+1, m, d, 0, 0, 0, 0, time.UTC)
		}
	}

	diff := int(target.Sub(base).Hours() / 24)

	switch {
	case diff == 0:
		return Proximity{Label: "D-Day", Days: 0, Target: target}
	case diff > 0:
		return Proximity{Label: fmt.Sprintf("D-%d", diff), Days: -diff, Target: target}
	default:
		return Proximity{Label: fmt.Sprintf("D+%d", -diff), Days: -diff, Target: target}
	}
}

// NextUpcoming 从一组纪念日中挑出下一个即将到来的条目
//
// 过滤掉已经过去的（Days > 0），在剩余条目里取 Days 最大者，
// 即距离今天最近的未来或当天纪念日。没有命中时返回 nil。
func NextUpcoming(moments []Moment, today time.Time) *Moment {
	var best *Moment
	bestDays := 0
	for i := range moments {
		p := ComputeProximity(moments[i].Date, moments[i].IsRecurring, today)
		if p.Days > 0 {
			continue
		}
		if best == nil || p.Days > bestDays {
			best = &moments[i]
			bestDays = p.Days
		}
	}
	return best
}
