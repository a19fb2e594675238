package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loveletter/backend/internal/domain"
	"loveletter/backend/internal/storage"
)

func newUser(id, email, code string) *domain.User {
	return &domain.User{
		ID:                  id,
		Email:               email,
		Nickname:            "nick-" + id,
		InviteCode:          code,
		InviteCodeExpiresAt: time.Now().Add(24 * time.Hour),
		IsActive:            true,
		CreatedAt:           time.Now(),
	}
}

func TestUserCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	t.Run("创建并按三种键查询", func(t *testing.T) {
		u := newUser("u1", "a@example.com", "LOVE-AAA111")
		require.NoError(t, store.CreateUser(ctx, u))

		byID, err := store.GetUserByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", byID.Email)

		byEmail, err := store.GetUserByEmail(ctx, "A@Example.COM")
		require.NoError(t, err)
		assert.Equal(t, "u1", byEmail.ID)

		byCode, err := store.GetUserByInviteCode(ctx, "LOVE-AAA111")
		require.NoError(t, err)
		assert.Equal(t, "u1", byCode.ID)
	})

	t.Run("重复邮箱冲突", func(t *testing.T) {
		dup := newUser("u2", "a@example.com", "LOVE-BBB222")
		assert.ErrorIs(t, store.CreateUser(ctx, dup), storage.ErrEmailExists)
	})

	t.Run("重复邀请码冲突", func(t *testing.T) {
		dup := newUser("u3", "c@example.com", "LOVE-AAA111")
		assert.ErrorIs(t, store.CreateUser(ctx, dup), storage.ErrCodeExists)
	})

	t.Run("查询不存在的用户", func(t *testing.T) {
		_, err := store.GetUserByID(ctx, "ghost")
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
	})

	t.Run("更新换邀请码后旧码失效", func(t *testing.T) {
		u, err := store.GetUserByID(ctx, "u1")
		require.NoError(t, err)
		u.InviteCode = "LOVE-CCC333"
		require.NoError(t, store.UpdateUser(ctx, u))

		_, err = store.GetUserByInviteCode(ctx, "LOVE-AAA111")
		assert.ErrorIs(t, err, storage.ErrUserNotFound)

		found, err := store.GetUserByInviteCode(ctx, "LOVE-CCC333")
		require.NoError(t, err)
		assert.Equal(t, "u1", found.ID)
	})

	t.Run("返回值是副本", func(t *testing.T) {
		u, err := store.GetUserByID(ctx, "u1")
		require.NoError(t, err)
		u.Nickname = "mutated"

		again, err := store.GetUserByID(ctx, "u1")
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", again.Nickname)
	})
}

func TestPairUsers(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) *Store {
		store := NewStore()
		require.NoError(t, store.CreateUser(ctx, newUser("a", "a@x.com", "LOVE-A00001")))
		require.NoError(t, store.CreateUser(ctx, newUser("b", "b@x.com", "LOVE-B00001")))
		require.NoError(t, store.CreateUser(ctx, newUser("c", "c@x.com", "LOVE-C00001")))
		return store
	}

	t.Run("配对后双方对称", func(t *testing.T) {
		store := setup(t)
		at := time.Now()
		require.NoError(t, store.PairUsers(ctx, "a", "b", at))

		a, _ := store.GetUserByID(ctx, "a")
		b, _ := store.GetUserByID(ctx, "b")
		require.NotNil(t, a.PartnerID)
		require.NotNil(t, b.PartnerID)
		assert.Equal(t, "b", *a.PartnerID)
		assert.Equal(t, "a", *b.PartnerID)
		require.NotNil(t, a.ConnectedAt)
		require.NotNil(t, b.ConnectedAt)
		assert.True(t, a.ConnectedAt.Equal(*b.ConnectedAt))
	})

	t.Run("已配对的一方拒绝再次配对", func(t *testing.T) {
		store := setup(t)
		require.NoError(t, store.PairUsers(ctx, "a", "b", time.Now()))
		assert.ErrorIs(t, store.PairUsers(ctx, "c", "b", time.Now()), storage.ErrAlreadyPaired)
		assert.ErrorIs(t, store.PairUsers(ctx, "a", "c", time.Now()), storage.ErrAlreadyPaired)
	})

	t.Run("用户不存在", func(t *testing.T) {
		store := setup(t)
		assert.ErrorIs(t, store.PairUsers(ctx, "ghost", "b", time.Now()), storage.ErrUserNotFound)
	})

	t.Run("并发配对只有一个赢家", func(t *testing.T) {
		store := setup(t)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs[0] = store.PairUsers(ctx, "a", "b", time.Now())
		}()
		go func() {
			defer wg.Done()
			errs[1] = store.PairUsers(ctx, "c", "b", time.Now())
		}()
		wg.Wait()

		var ok, failed int
		for _, err := range errs {
			if err == nil {
				ok++
			} else if assert.ErrorIs(t, err, storage.ErrAlreadyPaired) {
				failed++
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, 1, failed)

		b, _ := store.GetUserByID(ctx, "b")
		require.NotNil(t, b.PartnerID)
		partner, _ := store.GetUserByID(ctx, *b.PartnerID)
		require.NotNil(t, partner.PartnerID)
		assert.Equal(t, "b", *partner.PartnerID)
	})
}

func TestLetterRepository(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Now()

	save := func(id string, createdAt time.Time, scheduledAt *time.Time) {
		require.NoError(t, store.SaveLetter(ctx, &domain.Letter{
			ID: id, SenderID: "a", ReceiverID: "b",
			Content: "content-" + id, ThemeID: "default",
			ScheduledAt: scheduledAt, CreatedAt: createdAt,
		}))
	}

	save("l1", now.Add(-2*time.Hour), nil)
	save("l2", now.Add(-1*time.Hour), nil)
	past := now.Add(-10 * time.Minute)
	future := now.Add(10 * time.Hour)
	save("due", now.Add(-30*time.Minute), &past)
	save("pending", now.Add(-20*time.Minute), &future)

	t.Run("按用户列出并倒序", func(t *testing.T) {
		letters, err := store.ListLettersByUserID(ctx, "b")
		require.NoError(t, err)
		require.Len(t, letters, 4)
		for i := 1; i < len(letters); i++ {
			assert.False(t, letters[i].CreatedAt.After(letters[i-1].CreatedAt))
		}
	})

	t.Run("无关用户列表为空", func(t *testing.T) {
		letters, err := store.ListLettersByUserID(ctx, "stranger")
		require.NoError(t, err)
		assert.Empty(t, letters)
	})

	t.Run("置已读幂等", func(t *testing.T) {
		flipped, err := store.MarkLetterOpened(ctx, "l1", "b", now)
		require.NoError(t, err)
		assert.True(t, flipped)

		again, err := store.MarkLetterOpened(ctx, "l1", "b", now.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, again)

		l, err := store.GetLetter(ctx, "l1")
		require.NoError(t, err)
		assert.True(t, l.IsOpened)
		require.NotNil(t, l.OpenedAt)
		assert.True(t, l.OpenedAt.Equal(now))
	})

	t.Run("发件人无法置已读", func(t *testing.T) {
		flipped, err := store.MarkLetterOpened(ctx, "l2", "a", now)
		require.NoError(t, err)
		assert.False(t, flipped)

		l, _ := store.GetLetter(ctx, "l2")
		assert.False(t, l.IsOpened)
	})

	t.Run("到期预约信件可被找出并标记", func(t *testing.T) {
		due, err := store.ListUnreleasedDue(ctx, now)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, "due", due[0].ID)

		require.NoError(t, store.MarkLetterReleased(ctx, "due"))
		due, err = store.ListUnreleasedDue(ctx, now)
		require.NoError(t, err)
		assert.Empty(t, due)
	})
}

func TestMomentRepository(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	partnerID := "b"

	save := func(id, owner string, d time.Time, shared bool) {
		require.NoError(t, store.SaveMoment(ctx, &domain.Moment{
			ID: id, UserID: owner, Title: "t-" + id, Date: d,
			Category: domain.CategoryMilestone, Icon: domain.IconFavorite,
			IsShared: shared,
		}))
	}

	save("mine1", "a", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), false)
	save("mine2", "a", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), false)
	save("shared", "b", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), true)
	save("private", "b", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), false)

	t.Run("含伴侣共享且按日期倒序", func(t *testing.T) {
		moments, err := store.ListMomentsForUser(ctx, "a", &partnerID)
		require.NoError(t, err)
		ids := make([]string, 0, len(moments))
		for _, m := range moments {
			ids = append(ids, m.ID)
		}
		assert.Equal(t, []string{"mine2", "shared", "mine1"}, ids)
	})

	t.Run("未配对只看本人", func(t *testing.T) {
		moments, err := store.ListMomentsForUser(ctx, "a", nil)
		require.NoError(t, err)
		assert.Len(t, moments, 2)
	})

	t.Run("删除后查询失败", func(t *testing.T) {
		require.NoError(t, store.DeleteMoment(ctx, "mine1"))
		_, err := store.GetMoment(ctx, "mine1")
		assert.ErrorIs(t, err, storage.ErrMomentNotFound)
		assert.ErrorIs(t, store.DeleteMoment(ctx, "mine1"), storage.ErrMomentNotFound)
	})
}
