package domain

import (
	"sort"
	"strings"
)

// LetterFilter 信箱方向过滤
type LetterFilter string

const (
	FilterAll      LetterFilter = "all"      // 全部信件
	FilterSent     LetterFilter = "sent"     // 我寄出的
	FilterReceived LetterFilter = "received" // 我收到的
)

// AggregateOptions 信箱聚合参数
type AggregateOptions struct {
	Filter        LetterFilter // 方向过滤，空值等同 FilterAll
	Search        string       // 内容子串搜索，忽略大小写与首尾空白
	SortAscending bool         // true 时按创建时间升序，默认降序
}

// MonthGroup 按月份聚合后的一组信件
type MonthGroup struct {
	Month   string   `json:"month"` // 形如 "January 2026"
	Letters []Letter `json:"letters"`
}

// Aggregate 对信件列表执行信箱聚合：过滤 → 搜索 → 排序 → 按月分组
//
// 纯函数，不修改入参。分组桶的顺序跟随排序后首次出现的月份，
// 因此降序时最近的月份在最前面。
func Aggregate(letters []Letter, viewerID string, opts AggregateOptions) []MonthGroup {
	filtered := make([]Letter, 0, len(letters))
	for _, l := range letters {
		switch opts.Filter {
		case FilterSent:
			if l.SenderID != viewerID {
				continue
			}
		case FilterReceived:
			if l.ReceiverID != viewerID {
				continue
			}
		default:
			if l.SenderID != viewerID && l.ReceiverID != viewerID {
				continue
			}
		}
		filtered = append(filtered, l)
	}

	if q := strings.ToLower(strings.TrimSpace(opts.Search)); q != "" {
		matched := filtered[:0]
		for _, l := range filtered {
			if strings.Contains(strings.ToLower(l.Content), q) {
				matched = append(matched, l)
			}
		}
		filtered = matched
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if opts.SortAscending {
			return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
		}
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	groups := make([]MonthGroup, 0)
	index := make(map[string]int)
	for _, l := range filtered {
		key := l.CreatedAt.Format("January 2006")
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, MonthGroup{Month: key})
		}
		groups[i].Letters = append(groups[i].Letters, l)
	}
	return groups
}
