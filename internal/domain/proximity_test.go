package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeProximity(t *testing.T) {
	today := date(2026, time.March, 10)

	t.Run("当天纪念日", func(t *testing.T) {
		p := ComputeProximity(date(2026, time.March, 10), false, today)
		assert.Equal(t, "D-Day", p.Label)
		assert.Equal(t, 0, p.Days)
	})

	t.Run("未来非周年日期", func(t *testing.T) {
		p := ComputeProximity(date(2026, time.March, 15), false, today)
		assert.Equal(t, "D-5", p.Label)
		assert.Equal(t, -5, p.Days)
		assert.Equal(t, date(2026, time.March, 15), p.Target)
	})

	t.Run("过去非周年日期", func(t *testing.T) {
		p := ComputeProximity(date(2026, time.February, 28), false, today)
		assert.Equal(t, "D+10", p.Label)
		assert.Equal(t, 10, p.Days)
	})

	t.Run("周年日期当年未过", func(t *testing.T) {
		p := ComputeProximity(date(2020, time.March, 15), true, today)
		assert.Equal(t, "D-5", p.Label)
		assert.Equal(t, -5, p.Days)
		assert.Equal(t, date(2026, time.March, 15), p.Target)
	})

	t.Run("周年日期当年已过滚动到次年", func(t *testing.T) {
		p := ComputeProximity(date(2025, time.January, 15), true, date(2025, time.June, 1))
		assert.Equal(t, date(2026, time.January, 15), p.Target)
		assert.Equal(t, -228, p.Days)
		assert.Equal(t, "D-228", p.Label)
	})

	t.Run("周年日期恰为今天", func(t *testing.T) {
		p := ComputeProximity(date(1999, time.March, 10), true, today)
		assert.Equal(t, "D-Day", p.Label)
		assert.Equal(t, 0, p.Days)
	})

	t.Run("忽略时分秒", func(t *testing.T) {
		at := time.Date(2026, time.March, 15, 23, 59, 59, 0, time.UTC)
		now := time.Date(2026, time.March, 10, 0, 0, 1, 0, time.UTC)
		p := ComputeProximity(at, false, now)
		assert.Equal(t, -5, p.Days)
	})

	t.Run("交换参数天数取反", func(t *testing.T) {
		a := date(2026, time.April, 1)
		b := date(2026, time.April, 20)
		pa := ComputeProximity(a, false, b)
		pb := ComputeProximity(b, false, a)
		assert.Equal(t, pa.Days, -pb.Days)
	})
}

func TestNextUpcoming(t *testing.T) {
	today := date(2026, time.March, 10)

	t.Run("选择最近的未来纪念日", func(t *testing.T) {
		moments := []Moment{
			{ID: "past", Date: date(2026, time.January, 1)},
			{ID: "far", Date: date(2026, time.June, 1)},
			{ID: "near", Date: date(2026, time.March, 20)},
		}
		got := NextUpcoming(moments, today)
		require.NotNil(t, got)
		assert.Equal(t, "near", got.ID)
	})

	t.Run("当天纪念日优先于未来", func(t *testing.T) {
		moments := []Moment{
			{ID: "tomorrow", Date: date(2026, time.March, 11)},
			{ID: "today", Date: date(2026, time.March, 10)},
		}
		got := NextUpcoming(moments, today)
		require.NotNil(t, got)
		assert.Equal(t, "today", got.ID)
	})

	t.Run("周年纪念日参与滚动后比较", func(t *testing.T) {
		moments := []Moment{
			{ID: "fixed", Date: date(2026, time.May, 1)},
			{ID: "yearly", Date: date(2020, time.March, 12), IsRecurring: true},
		}
		got := NextUpcoming(moments, today)
		require.NotNil(t, got)
		assert.Equal(t, "yearly", got.ID)
	})

	t.Run("全部过期返回nil", func(t *testing.T) {
		moments := []Moment{
			{ID: "a", Date: date(2025, time.December, 25)},
			{ID: "b", Date: date(2026, time.January, 1)},
		}
		assert.Nil(t, NextUpcoming(moments, today))
	})

	t.Run("空列表返回nil", func(t *testing.T) {
		assert.Nil(t, NextUpcoming(nil, today))
	})
}
