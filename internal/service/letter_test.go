package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loveletter/backend/internal/domain"
	"loveletter/backend/internal/storage/memory"
)

// pairedStore 构造一对已配对用户 alice/bob 以及旁观者 carol
func pairedStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	seedUser(t, store, "alice", "LOVE-ALICE1")
	seedUser(t, store, "bob", "LOVE-BOB001")
	seedUser(t, store, "carol", "LOVE-CAROL1")
	require.NoError(t, store.PairUsers(context.Background(), "alice", "bob", time.Now()))
	return store
}

func TestSendLetter(t *testing.T) {
	ctx := context.Background()

	t.Run("寄信成功默认主题", func(t *testing.T) {
		svc := NewLetterService(pairedStore(t), nil, nil, nil, nil)

		letter, err := svc.Send(ctx, "alice", SendLetterInput{Content: "今天也想你"})
		require.NoError(t, err)
		assert.Equal(t, "alice", letter.SenderID)
		assert.Equal(t, "bob", letter.ReceiverID)
		assert.Equal(t, "default", letter.ThemeID)
		assert.Nil(t, letter.ScheduledAt)
		assert.False(t, letter.IsOpened)
	})

	t.Run("未配对不能寄信", func(t *testing.T) {
		svc := NewLetterService(pairedStore(t), nil, nil, nil, nil)

		_, err := svc.Send(ctx, "carol", SendLetterInput{Content: "hello"})
		assert.ErrorIs(t, err, ErrNoPartner)
	})

	t.Run("空内容被拒绝", func(t *testing.T) {
		svc := NewLetterService(pairedStore(t), nil, nil, nil, nil)

		_, err := svc.Send(ctx, "alice", SendLetterInput{Content: "  "})
		assert.ErrorIs(t, err, domain.ErrEmptyContent)
	})

	t.Run("过去的预约时间被拒绝", func(t *testing.T) {
		svc := NewLetterService(pairedStore(t), nil, nil, nil, nil)

		past := time.Now().Add(-time.Hour)
		_, err := svc.Send(ctx, "alice", SendLetterInput{Content: "hi", ScheduledAt: &past})
		assert.ErrorIs(t, err, ErrScheduleInPast)
	})
}

func TestListForUser(t *testing.T) {
	ctx := context.Background()
	store := pairedStore(t)
	svc := NewLetterService(store, nil, nil, nil, nil)

	_, err := svc.Send(ctx, "alice", SendLetterInput{Content: "immediate"})
	require.NoError(t, err)

	future := time.Now().Add(2 * time.Hour)
	scheduled, err := svc.Send(ctx, "alice", SendLetterInput{Content: "surprise", ScheduledAt: &future})
	require.NoError(t, err)

	t.Run("收件人看不到未释放的预约信件", func(t *testing.T) {
		views, err := svc.ListForUser(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "immediate", views[0].Content)
	})

	t.Run("寄件人始终可见自己的预约信件", func(t *testing.T) {
		views, err := svc.ListForUser(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, views, 2)
	})

	t.Run("昵称已展开", func(t *testing.T) {
		views, err := svc.ListForUser(ctx, "bob")
		require.NoError(t, err)
		require.NotEmpty(t, views)
		assert.Equal(t, "昵称-alice", views[0].SenderNickname)
		assert.Equal(t, "昵称-bob", views[0].ReceiverNickname)
	})

	t.Run("收件人不能单独查看未释放信件", func(t *testing.T) {
		_, err := svc.Get(ctx, "bob", scheduled.ID)
		assert.ErrorIs(t, err, ErrLetterNotFound)

		view, err := svc.Get(ctx, "alice", scheduled.ID)
		require.NoError(t, err)
		assert.Equal(t, "surprise", view.Content)
	})

	t.Run("无关用户不可见", func(t *testing.T) {
		views, err := svc.ListForUser(ctx, "carol")
		require.NoError(t, err)
		assert.Empty(t, views)
	})
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	store := pairedStore(t)
	svc := NewLetterService(store, nil, nil, nil, nil)

	jan := time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)
	feb := time.Date(2026, time.February, 14, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveLetter(ctx, &domain.Letter{
		ID: "l1", SenderID: "alice", ReceiverID: "bob",
		Content: "january rain", ThemeID: "default", CreatedAt: jan,
	}))
	require.NoError(t, store.SaveLetter(ctx, &domain.Letter{
		ID: "l2", SenderID: "bob", ReceiverID: "alice",
		Content: "valentine", ThemeID: "default", CreatedAt: feb,
	}))

	t.Run("按月降序分组", func(t *testing.T) {
		groups, err := svc.Archive(ctx, "alice", domain.AggregateOptions{})
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, "February 2026", groups[0].Month)
		assert.Equal(t, "January 2026", groups[1].Month)
	})

	t.Run("方向过滤与搜索组合", func(t *testing.T) {
		groups, err := svc.Archive(ctx, "alice", domain.AggregateOptions{
			Filter: domain.FilterSent,
			Search: "RAIN",
		})
		require.NoError(t, err)
		require.Len(t, groups, 1)
		require.Len(t, groups[0].Letters, 1)
		assert.Equal(t, "l1", groups[0].Letters[0].ID)
	})
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	store := pairedStore(t)
	svc := NewLetterService(store, nil, nil, nil, nil)

	letter, err := svc.Send(ctx, "alice", SendLetterInput{Content: "read me"})
	require.NoError(t, err)

	t.Run("收件人首次置已读", func(t *testing.T) {
		view, err := svc.MarkRead(ctx, "bob", letter.ID)
		require.NoError(t, err)
		assert.True(t, view.IsOpened)
		require.NotNil(t, view.OpenedAt)
	})

	t.Run("重复置已读幂等且保留首次时间", func(t *testing.T) {
		first, err := svc.Get(ctx, "bob", letter.ID)
		require.NoError(t, err)

		view, err := svc.MarkRead(ctx, "bob", letter.ID)
		require.NoError(t, err)
		assert.True(t, view.IsOpened)
		assert.True(t, view.OpenedAt.Equal(*first.OpenedAt))
	})

	t.Run("寄件人调用不改变状态", func(t *testing.T) {
		another, err := svc.Send(ctx, "alice", SendLetterInput{Content: "second"})
		require.NoError(t, err)

		view, err := svc.MarkRead(ctx, "alice", another.ID)
		require.NoError(t, err)
		assert.False(t, view.IsOpened)
	})

	t.Run("无关用户收到未找到", func(t *testing.T) {
		_, err := svc.MarkRead(ctx, "carol", letter.ID)
		assert.ErrorIs(t, err, ErrLetterNotFound)
	})
}

func TestReleaseDueScheduled(t *testing.T) {
	ctx := context.Background()
	store := pairedStore(t)
	svc := NewLetterService(store, nil, nil, nil, nil)

	// 已到期的预约信件直接写入存储
	past := time.Now().Add(-time.Minute)
	require.NoError(t, store.SaveLetter(ctx, &domain.Letter{
		ID: "due", SenderID: "alice", ReceiverID: "bob",
		Content: "timed", ThemeID: "default",
		ScheduledAt: &past, CreatedAt: time.Now().Add(-time.Hour),
	}))

	future := time.Now().Add(time.Hour)
	require.NoError(t, store.SaveLetter(ctx, &domain.Letter{
		ID: "pending", SenderID: "alice", ReceiverID: "bob",
		Content: "later", ThemeID: "default",
		ScheduledAt: &future, CreatedAt: time.Now().Add(-time.Hour),
	}))

	t.Run("只释放到期信件", func(t *testing.T) {
		released, err := svc.ReleaseDueScheduled(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, released)
	})

	t.Run("重复运行不再释放", func(t *testing.T) {
		released, err := svc.ReleaseDueScheduled(ctx)
		require.NoError(t, err)
		assert.Zero(t, released)
	})

	t.Run("释放后收件人可见", func(t *testing.T) {
		views, err := svc.ListForUser(ctx, "bob")
		require.NoError(t, err)
		ids := make([]string, 0, len(views))
		for _, v := range views {
			ids = append(ids, v.ID)
		}
		assert.Contains(t, ids, "due")
		assert.NotContains(t, ids, "pending")
	})
}
