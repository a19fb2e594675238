package auth

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loveletter/backend/internal/storage/memory"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewStore(), 24*time.Hour)

	t.Run("注册成功并分配邀请码", func(t *testing.T) {
		user, err := svc.Register(ctx, RegisterInput{
			Email:    "Alice@Example.com",
			Password: "password123",
			Nickname: "小艾",
		})
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, "小艾", user.Nickname)
		assert.Regexp(t, regexp.MustCompile(`^LOVE-[A-Z2-9]{6}$`), user.InviteCode)
		assert.True(t, user.InviteCodeExpiresAt.After(time.Now()))
		assert.NotEqual(t, "password123", user.PasswordHash)
		assert.Nil(t, user.PartnerID)
	})

	t.Run("重复邮箱注册失败", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterInput{
			Email:    "alice@example.com",
			Password: "password123",
			Nickname: "冒名者",
		})
		assert.ErrorIs(t, err, ErrEmailExists)
	})

	t.Run("非法邮箱格式失败", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterInput{
			Email:    "not-an-email",
			Password: "password123",
			Nickname: "x",
		})
		assert.ErrorIs(t, err, ErrInvalidEmail)
	})

	t.Run("密码过短失败", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterInput{
			Email:    "bob@example.com",
			Password: "short",
			Nickname: "bob",
		})
		assert.Error(t, err)
	})

	t.Run("空昵称失败", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterInput{
			Email:    "bob@example.com",
			Password: "password123",
			Nickname: "   ",
		})
		assert.Error(t, err)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewStore(), 24*time.Hour)

	registered, err := svc.Register(ctx, RegisterInput{
		Email:    "carol@example.com",
		Password: "password123",
		Nickname: "carol",
	})
	require.NoError(t, err)

	t.Run("登录成功", func(t *testing.T) {
		user, err := svc.Login(ctx, LoginInput{Email: "Carol@example.com", Password: "password123"})
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)
	})

	t.Run("密码错误", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Email: "carol@example.com", Password: "wrong-password"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("用户不存在", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password123"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewStore(), 24*time.Hour)

	user, err := svc.Register(ctx, RegisterInput{
		Email:    "dave@example.com",
		Password: "password123",
		Nickname: "dave",
	})
	require.NoError(t, err)

	t.Run("更新昵称与提醒时间", func(t *testing.T) {
		nickname := "大卫"
		reminder := "09:30"
		updated, err := svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{
			Nickname:     &nickname,
			ReminderTime: &reminder,
		})
		require.NoError(t, err)
		assert.Equal(t, "大卫", updated.Nickname)
		assert.Equal(t, "09:30", updated.ReminderTime)
	})

	t.Run("非法提醒时间被拒绝", func(t *testing.T) {
		reminder := "25:00"
		_, err := svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{ReminderTime: &reminder})
		assert.Error(t, err)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewStore(), 24*time.Hour)

	user, err := svc.Register(ctx, RegisterInput{
		Email:    "erin@example.com",
		Password: "password123",
		Nickname: "erin",
	})
	require.NoError(t, err)

	t.Run("旧密码错误", func(t *testing.T) {
		err := svc.ChangePassword(ctx, user.ID, "wrong", "newpassword456")
		assert.Error(t, err)
	})

	t.Run("修改后新密码可登录", func(t *testing.T) {
		require.NoError(t, svc.ChangePassword(ctx, user.ID, "password123", "newpassword456"))

		_, err := svc.Login(ctx, LoginInput{Email: "erin@example.com", Password: "password123"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		logged, err := svc.Login(ctx, LoginInput{Email: "erin@example.com", Password: "newpassword456"})
		require.NoError(t, err)
		assert.Equal(t, user.ID, logged.ID)
	})
}

func TestGenerateInviteCode(t *testing.T) {
	t.Run("格式正确且不含易混淆字符", func(t *testing.T) {
		pattern := regexp.MustCompile(`^LOVE-[ABCDEFGHJKLMNPQRSTUVWXYZ23456789]{6}$`)
		for i := 0; i < 100; i++ {
			code, err := GenerateInviteCode()
			require.NoError(t, err)
			assert.Regexp(t, pattern, code)
		}
	})
}
