package domain

import "time"

// User 表示注册用户的业务实体
//
// 一个用户最多与一位伴侣配对（PartnerID），配对关系是对称的：
// A.PartnerID = B 时必有 B.PartnerID = A，且 ConnectedAt 两侧一致。
type User struct {
	ID                  string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email               string     `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Nickname            string     `json:"nickname" gorm:"type:varchar(100);not null"`
	PasswordHash        string     `json:"-" gorm:"type:varchar(255)"` // 不返回给前端
	InviteCode          string     `json:"inviteCode" gorm:"uniqueIndex;type:varchar(20)"`
	InviteCodeExpiresAt time.Time  `json:"inviteCodeExpiresAt"`
	PartnerID           *string    `json:"partnerId" gorm:"type:varchar(36);index"`
	ConnectedAt         *time.Time `json:"connectedAt,omitempty"`
	ReminderTime        string     `json:"reminderTime" gorm:"type:varchar(5);default:'21:00'"` // 每日提醒时间 HH:MM
	IsActive            bool       `json:"isActive" gorm:"default:true"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
	LastLoginAt         *time.Time `json:"lastLoginAt,omitempty"`
}

// IsPaired 判断用户是否已与伴侣配对
func (u *User) IsPaired() bool {
	return u.PartnerID != nil && *u.PartnerID != ""
}

// InviteCodeExpired 判断邀请码是否已过显示有效期
//
// 注意：有效期仅用于前端倒计时展示与后台轮换任务，
// 配对流程本身不拒绝过期邀请码（与线上行为保持一致）。
func (u *User) InviteCodeExpired(now time.Time) bool {
	return !u.InviteCodeExpiresAt.IsZero() && now.After(u.InviteCodeExpiresAt)
}
