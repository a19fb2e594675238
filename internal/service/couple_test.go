package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loveletter/backend/internal/domain"
	"loveletter/backend/internal/storage/memory"
)

func seedUser(t *testing.T, store *memory.Store, id, code string) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:                  id,
		Email:               id + "@example.com",
		Nickname:            "昵称-" + id,
		InviteCode:          code,
		InviteCodeExpiresAt: time.Now().Add(24 * time.Hour),
		ReminderTime:        "21:00",
		IsActive:            true,
		CreatedAt:           time.Now(),
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func TestConnect(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*CoupleService, *memory.Store) {
		store := memory.NewStore()
		seedUser(t, store, "alice", "LOVE-ALICE1")
		seedUser(t, store, "bob", "LOVE-BOB001")
		seedUser(t, store, "carol", "LOVE-CAROL1")
		return NewCoupleService(store, 24*time.Hour, nil, nil), store
	}

	t.Run("配对成功返回伴侣信息", func(t *testing.T) {
		svc, store := setup(t)

		result, err := svc.Connect(ctx, "alice", "LOVE-BOB001")
		require.NoError(t, err)
		assert.Equal(t, "bob", result.PartnerID)
		assert.Equal(t, "昵称-bob", result.PartnerNickname)
		assert.False(t, result.ConnectedAt.IsZero())

		alice, _ := store.GetUserByID(ctx, "alice")
		bob, _ := store.GetUserByID(ctx, "bob")
		require.NotNil(t, alice.PartnerID)
		require.NotNil(t, bob.PartnerID)
		assert.Equal(t, "bob", *alice.PartnerID)
		assert.Equal(t, "alice", *bob.PartnerID)
		assert.True(t, alice.ConnectedAt.Equal(*bob.ConnectedAt))
	})

	t.Run("邀请码不存在", func(t *testing.T) {
		svc, _ := setup(t)
		_, err := svc.Connect(ctx, "alice", "LOVE-GHOST1")
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})

	t.Run("不能用自己的邀请码", func(t *testing.T) {
		svc, _ := setup(t)
		_, err := svc.Connect(ctx, "alice", "LOVE-ALICE1")
		assert.ErrorIs(t, err, ErrSelfPairing)
	})

	t.Run("对方已配对", func(t *testing.T) {
		svc, _ := setup(t)
		_, err := svc.Connect(ctx, "alice", "LOVE-BOB001")
		require.NoError(t, err)

		_, err = svc.Connect(ctx, "carol", "LOVE-BOB001")
		assert.ErrorIs(t, err, ErrAlreadyPaired)
	})

	t.Run("自己已配对", func(t *testing.T) {
		svc, _ := setup(t)
		_, err := svc.Connect(ctx, "alice", "LOVE-BOB001")
		require.NoError(t, err)

		_, err = svc.Connect(ctx, "alice", "LOVE-CAROL1")
		assert.ErrorIs(t, err, ErrAlreadyPaired)
	})

	t.Run("过期邀请码仍可配对", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewCoupleService(store, 24*time.Hour, nil, nil)
		seedUser(t, store, "alice", "LOVE-ALICE1")
		expired := seedUser(t, store, "bob", "LOVE-BOB001")
		expired.InviteCodeExpiresAt = time.Now().Add(-time.Hour)
		require.NoError(t, store.UpdateUser(ctx, expired))

		_, err := svc.Connect(ctx, "alice", "LOVE-BOB001")
		assert.NoError(t, err)
	})

	t.Run("并发抢同一个邀请码只有一个赢家", func(t *testing.T) {
		svc, store := setup(t)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = svc.Connect(ctx, "alice", "LOVE-BOB001")
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = svc.Connect(ctx, "carol", "LOVE-BOB001")
		}()
		wg.Wait()

		var won, lost int
		for _, err := range errs {
			if err == nil {
				won++
			} else if assert.ErrorIs(t, err, ErrAlreadyPaired) {
				lost++
			}
		}
		assert.Equal(t, 1, won)
		assert.Equal(t, 1, lost)

		bob, _ := store.GetUserByID(ctx, "bob")
		require.NotNil(t, bob.PartnerID)
		winner, _ := store.GetUserByID(ctx, *bob.PartnerID)
		require.NotNil(t, winner.PartnerID)
		assert.Equal(t, "bob", *winner.PartnerID)
	})
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewCoupleService(store, 24*time.Hour, nil, nil)
	seedUser(t, store, "alice", "LOVE-ALICE1")
	seedUser(t, store, "bob", "LOVE-BOB001")

	t.Run("未配对", func(t *testing.T) {
		status, err := svc.Status(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, status.Paired)
		assert.Empty(t, status.PartnerID)
	})

	t.Run("配对后", func(t *testing.T) {
		_, err := svc.Connect(ctx, "alice", "LOVE-BOB001")
		require.NoError(t, err)

		status, err := svc.Status(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, status.Paired)
		assert.Equal(t, "bob", status.PartnerID)
		assert.Equal(t, "昵称-bob", status.PartnerNickname)
		require.NotNil(t, status.ConnectedAt)
	})
}

func TestInviteCodeLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("查询自己的邀请码", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewCoupleService(store, 24*time.Hour, nil, nil)
		seedUser(t, store, "alice", "LOVE-ALICE1")

		info, err := svc.InviteCode(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "LOVE-ALICE1", info.Code)
		assert.True(t, info.ExpiresAt.After(time.Now()))
	})

	t.Run("主动换码后旧码失效", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewCoupleService(store, 24*time.Hour, nil, nil)
		seedUser(t, store, "alice", "LOVE-ALICE1")
		seedUser(t, store, "bob", "LOVE-BOB001")

		info, err := svc.RegenerateInviteCode(ctx, "alice")
		require.NoError(t, err)
		assert.NotEqual(t, "LOVE-ALICE1", info.Code)

		_, err = svc.Connect(ctx, "bob", "LOVE-ALICE1")
		assert.ErrorIs(t, err, ErrCodeNotFound)

		_, err = svc.Connect(ctx, "bob", info.Code)
		assert.NoError(t, err)
	})

	t.Run("已配对用户不能换码", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewCoupleService(store, 24*time.Hour, nil, nil)
		seedUser(t, store, "alice", "LOVE-ALICE1")
		seedUser(t, store, "bob", "LOVE-BOB001")
		_, err := svc.Connect(ctx, "alice", "LOVE-BOB001")
		require.NoError(t, err)

		_, err = svc.RegenerateInviteCode(ctx, "alice")
		assert.ErrorIs(t, err, ErrAlreadyPaired)
	})

	t.Run("后台轮换只处理过期未配对用户", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewCoupleService(store, 24*time.Hour, nil, nil)

		expired := seedUser(t, store, "alice", "LOVE-ALICE1")
		expired.InviteCodeExpiresAt = time.Now().Add(-time.Hour)
		require.NoError(t, store.UpdateUser(ctx, expired))

		seedUser(t, store, "bob", "LOVE-BOB001") // 未过期

		rotated, err := svc.RotateExpiredCodes(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, rotated)

		alice, _ := store.GetUserByID(ctx, "alice")
		assert.NotEqual(t, "LOVE-ALICE1", alice.InviteCode)
		assert.True(t, alice.InviteCodeExpiresAt.After(time.Now()))

		bob, _ := store.GetUserByID(ctx, "bob")
		assert.Equal(t, "LOVE-BOB001", bob.InviteCode)
	})
}
