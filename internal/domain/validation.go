package domain

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// 字段长度上限
const (
	MaxNicknameLength    = 50
	MaxLetterLength      = 5000
	MaxMomentTitleLength = 200
	MaxDescriptionLength = 2000
)

var (
	ErrEmptyContent    = errors.New("content is empty")
	ErrContentTooLong  = errors.New("content exceeds maximum length")
	ErrInvalidNickname = errors.New("invalid nickname")
	ErrInvalidReminder = errors.New("invalid reminder time")
	ErrInvalidTheme    = errors.New("invalid theme id")
	ErrEmptyTitle      = errors.New("title is empty")
	ErrTitleTooLong    = errors.New("title exceeds maximum length")
)

var (
	reminderTimeRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	themeIDRegex      = regexp.MustCompile(`^[a-z0-9-]{1,50}$`)
)

// ValidateLetterContent 校验信件正文：非空白且不超长
func ValidateLetterContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxLetterLength {
		return ErrContentTooLong
	}
	return nil
}

// ValidateNickname 校验昵称：非空白且不超长
func ValidateNickname(nickname string) error {
	trimmed := strings.TrimSpace(nickname)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > MaxNicknameLength {
		return ErrInvalidNickname
	}
	return nil
}

// ValidateReminderTime 校验每日提醒时间，要求 24 小时制 HH:MM
func ValidateReminderTime(t string) error {
	if !reminderTimeRegex.MatchString(t) {
		return ErrInvalidReminder
	}
	return nil
}

// ValidateThemeID 校验信纸主题标识，限小写字母数字与连字符
func ValidateThemeID(id string) error {
	if !themeIDRegex.MatchString(id) {
		return ErrInvalidTheme
	}
	return nil
}

// ValidateMomentTitle 校验纪念日标题
func ValidateMomentTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(trimmed) > MaxMomentTitleLength {
		return ErrTitleTooLong
	}
	return nil
}
