package domain

import "time"

// Letter 表示一封从发件人到收件人的定向信件
//
// 不变量：SenderID != ReceiverID；OpenedAt 非空当且仅当 IsOpened 为 true。
// 信件创建后内容与 CreatedAt 不可变，已读状态仅由收件人翻转一次。
type Letter struct {
	ID              string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SenderID        string     `json:"senderId" gorm:"type:varchar(36);index;not null"`
	ReceiverID      string     `json:"receiverId" gorm:"type:varchar(36);index;not null"`
	Content         string     `json:"content" gorm:"type:text;not null"`
	ThemeID         string     `json:"themeId" gorm:"type:varchar(50);default:'default'"`
	ScheduledAt     *time.Time `json:"scheduledAt,omitempty"` // 预约送达时间，nil 表示立即送达
	ReleaseNotified bool       `json:"-" gorm:"default:false"` // 预约释放通知是否已推送
	IsOpened        bool       `json:"isOpened" gorm:"default:false"`
	OpenedAt        *time.Time `json:"openedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// IsReleased 判断信件对收件人是否已可见
//
// 未设置预约时间的信件立即可见；预约信件到点才可见。
func (l *Letter) IsReleased(now time.Time) bool {
	return l.ScheduledAt == nil || !l.ScheduledAt.After(now)
}

// VisibleTo 判断信件是否对指定用户可见
//
// 发件人始终可见自己写的信；收件人只能看到已释放的信件。
func (l *Letter) VisibleTo(userID string, now time.Time) bool {
	if l.SenderID == userID {
		return true
	}
	if l.ReceiverID == userID {
		return l.IsReleased(now)
	}
	return false
}
