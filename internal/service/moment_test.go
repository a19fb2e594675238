package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loveletter/backend/internal/domain"
)

func TestMomentCRUD(t *testing.T) {
	ctx := context.Background()
	store := pairedStore(t)
	svc := NewMomentService(store, nil, nil)

	t.Run("创建并标注DDay", func(t *testing.T) {
		view, err := svc.Create(ctx, "alice", MomentInput{
			Title:       "第一次约会",
			Date:        time.Now().AddDate(0, 0, 7),
			Category:    domain.CategoryAnniversary,
			Icon:        domain.IconCake,
			IsRecurring: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "D-7", view.DDay.Label)
		assert.True(t, view.IsOwner)
	})

	t.Run("缺省分类与图标回落默认值", func(t *testing.T) {
		view, err := svc.Create(ctx, "alice", MomentInput{
			Title: "搬家",
			Date:  time.Now(),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.CategoryMilestone, view.Category)
		assert.Equal(t, domain.IconFavorite, view.Icon)
	})

	t.Run("非法分类被拒绝", func(t *testing.T) {
		_, err := svc.Create(ctx, "alice", MomentInput{
			Title:    "x",
			Date:     time.Now(),
			Category: "birthday",
		})
		assert.ErrorIs(t, err, ErrInvalidCategory)
	})

	t.Run("非法图标被拒绝", func(t *testing.T) {
		_, err := svc.Create(ctx, "alice", MomentInput{
			Title: "x",
			Date:  time.Now(),
			Icon:  "star",
		})
		assert.ErrorIs(t, err, ErrInvalidIcon)
	})

	t.Run("更新仅限归属用户", func(t *testing.T) {
		created, err := svc.Create(ctx, "alice", MomentInput{
			Title: "旅行",
			Date:  time.Now(),
		})
		require.NoError(t, err)

		_, err = svc.Update(ctx, "bob", created.ID, MomentInput{
			Title: "篡改",
			Date:  time.Now(),
		})
		assert.ErrorIs(t, err, ErrMomentNotFound)

		updated, err := svc.Update(ctx, "alice", created.ID, MomentInput{
			Title: "冲绳旅行",
			Date:  created.Date,
		})
		require.NoError(t, err)
		assert.Equal(t, "冲绳旅行", updated.Title)
	})

	t.Run("删除仅限归属用户", func(t *testing.T) {
		created, err := svc.Create(ctx, "alice", MomentInput{
			Title: "待删除",
			Date:  time.Now(),
		})
		require.NoError(t, err)

		assert.ErrorIs(t, svc.Delete(ctx, "bob", created.ID), ErrMomentNotFound)
		assert.NoError(t, svc.Delete(ctx, "alice", created.ID))
		assert.ErrorIs(t, svc.Delete(ctx, "alice", created.ID), ErrMomentNotFound)
	})
}

func TestMomentList(t *testing.T) {
	ctx := context.Background()
	store := pairedStore(t)
	svc := NewMomentService(store, nil, nil)

	_, err := svc.Create(ctx, "alice", MomentInput{Title: "我的", Date: time.Now()})
	require.NoError(t, err)

	shared, err := svc.Create(ctx, "bob", MomentInput{Title: "共享的", Date: time.Now(), IsShared: true})
	require.NoError(t, err)

	_, err = svc.Create(ctx, "bob", MomentInput{Title: "私密的", Date: time.Now()})
	require.NoError(t, err)

	_, err = svc.Create(ctx, "carol", MomentInput{Title: "无关的", Date: time.Now(), IsShared: true})
	require.NoError(t, err)

	t.Run("含伴侣共享但不含私密与无关", func(t *testing.T) {
		views, err := svc.List(ctx, "alice")
		require.NoError(t, err)

		titles := make([]string, 0, len(views))
		for _, v := range views {
			titles = append(titles, v.Title)
		}
		assert.ElementsMatch(t, []string{"我的", "共享的"}, titles)
	})

	t.Run("伴侣共享条目非本人所有", func(t *testing.T) {
		views, err := svc.List(ctx, "alice")
		require.NoError(t, err)
		for _, v := range views {
			if v.ID == shared.ID {
				assert.False(t, v.IsOwner)
			}
		}
	})

	t.Run("未配对用户只看本人", func(t *testing.T) {
		views, err := svc.List(ctx, "carol")
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "无关的", views[0].Title)
	})
}

func TestMomentUpcoming(t *testing.T) {
	ctx := context.Background()
	store := pairedStore(t)
	svc := NewMomentService(store, nil, nil)

	t.Run("没有纪念日返回nil", func(t *testing.T) {
		view, err := svc.Upcoming(ctx, "alice")
		require.NoError(t, err)
		assert.Nil(t, view)
	})

	t.Run("返回最近的未来纪念日", func(t *testing.T) {
		_, err := svc.Create(ctx, "alice", MomentInput{Title: "远的", Date: time.Now().AddDate(0, 2, 0)})
		require.NoError(t, err)
		_, err = svc.Create(ctx, "alice", MomentInput{Title: "近的", Date: time.Now().AddDate(0, 0, 3)})
		require.NoError(t, err)
		_, err = svc.Create(ctx, "alice", MomentInput{Title: "过去的", Date: time.Now().AddDate(0, -1, 0)})
		require.NoError(t, err)

		view, err := svc.Upcoming(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, view)
		assert.Equal(t, "近的", view.Title)
		assert.Equal(t, "D-3", view.DDay.Label)
	})

	t.Run("伴侣共享的纪念日参与选择", func(t *testing.T) {
		_, err := svc.Create(ctx, "bob", MomentInput{
			Title:    "伴侣的",
			Date:     time.Now().AddDate(0, 0, 1),
			IsShared: true,
		})
		require.NoError(t, err)

		view, err := svc.Upcoming(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, view)
		assert.Equal(t, "伴侣的", view.Title)
	})
}
