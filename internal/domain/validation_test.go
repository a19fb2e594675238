package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateLetterContent(t *testing.T) {
	t.Run("正常内容", func(t *testing.T) {
		assert.NoError(t, ValidateLetterContent("今天也很想你"))
	})

	t.Run("空内容", func(t *testing.T) {
		assert.ErrorIs(t, ValidateLetterContent(""), ErrEmptyContent)
	})

	t.Run("纯空白内容", func(t *testing.T) {
		assert.ErrorIs(t, ValidateLetterContent("   \n\t"), ErrEmptyContent)
	})

	t.Run("超长内容", func(t *testing.T) {
		long := strings.Repeat("爱", MaxLetterLength+1)
		assert.ErrorIs(t, ValidateLetterContent(long), ErrContentTooLong)
	})

	t.Run("恰好达到上限", func(t *testing.T) {
		assert.NoError(t, ValidateLetterContent(strings.Repeat("a", MaxLetterLength)))
	})
}

func TestValidateNickname(t *testing.T) {
	t.Run("正常昵称", func(t *testing.T) {
		assert.NoError(t, ValidateNickname("小熊"))
	})

	t.Run("空昵称", func(t *testing.T) {
		assert.ErrorIs(t, ValidateNickname("  "), ErrInvalidNickname)
	})

	t.Run("超长昵称", func(t *testing.T) {
		assert.ErrorIs(t, ValidateNickname(strings.Repeat("x", MaxNicknameLength+1)), ErrInvalidNickname)
	})
}

func TestValidateReminderTime(t *testing.T) {
	valid := []string{"00:00", "09:30", "21:00", "23:59"}
	for _, v := range valid {
		assert.NoError(t, ValidateReminderTime(v), v)
	}

	invalid := []string{"", "24:00", "9:30", "12:60", "noon", "12:3", "12:345"}
	for _, v := range invalid {
		assert.ErrorIs(t, ValidateReminderTime(v), ErrInvalidReminder, v)
	}
}

func TestValidateThemeID(t *testing.T) {
	t.Run("合法主题", func(t *testing.T) {
		assert.NoError(t, ValidateThemeID("default"))
		assert.NoError(t, ValidateThemeID("vintage-rose-2"))
	})

	t.Run("非法主题", func(t *testing.T) {
		assert.ErrorIs(t, ValidateThemeID(""), ErrInvalidTheme)
		assert.ErrorIs(t, ValidateThemeID("Bad Theme"), ErrInvalidTheme)
		assert.ErrorIs(t, ValidateThemeID(strings.Repeat("a", 51)), ErrInvalidTheme)
	})
}

func TestValidateMomentTitle(t *testing.T) {
	t.Run("正常标题", func(t *testing.T) {
		assert.NoError(t, ValidateMomentTitle("第一次旅行"))
	})

	t.Run("空标题", func(t *testing.T) {
		assert.ErrorIs(t, ValidateMomentTitle(" "), ErrEmptyTitle)
	})

	t.Run("超长标题", func(t *testing.T) {
		assert.ErrorIs(t, ValidateMomentTitle(strings.Repeat("t", MaxMomentTitleLength+1)), ErrTitleTooLong)
	})
}

func TestMomentEnums(t *testing.T) {
	t.Run("合法分类与图标", func(t *testing.T) {
		assert.True(t, ValidCategory(CategoryAnniversary))
		assert.True(t, ValidIcon(IconCake))
	})

	t.Run("非法分类与图标", func(t *testing.T) {
		assert.False(t, ValidCategory("birthday"))
		assert.False(t, ValidIcon("star"))
	})
}
