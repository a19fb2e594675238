package domain

import "time"

// MomentCategory 纪念日分类
type MomentCategory string

const (
	CategoryMilestone   MomentCategory = "milestone"
	CategoryAnniversary MomentCategory = "anniversary"
	CategoryTravel      MomentCategory = "travel"
	CategoryCelebration MomentCategory = "celebration"
)

// MomentIcon 纪念日图标
type MomentIcon string

const (
	IconFavorite MomentIcon = "favorite"
	IconDiamond  MomentIcon = "diamond"
	IconCake     MomentIcon = "cake"
	IconFlight   MomentIcon = "flight"
	IconCalendar MomentIcon = "calendar"
)

// Moment 表示用户记录的纪念日或里程碑事件
//
// 仅归属用户可以创建、编辑、删除；IsShared 为 true 时对其伴侣只读可见。
type Moment struct {
	ID          string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string         `json:"userId" gorm:"type:varchar(36);index;not null"`
	Title       string         `json:"title" gorm:"type:varchar(200);not null"`
	Date        time.Time      `json:"date" gorm:"not null"` // 仅日历日期有意义，时间部分忽略
	Category    MomentCategory `json:"category" gorm:"type:varchar(20);default:'milestone';index"`
	Description string         `json:"description,omitempty" gorm:"type:text"`
	ImageURL    string         `json:"imageUrl,omitempty" gorm:"type:varchar(500)"`
	Icon        MomentIcon     `json:"icon" gorm:"type:varchar(20);default:'favorite'"`
	IsRecurring bool           `json:"isRecurring" gorm:"default:false"`
	IsShared    bool           `json:"isShared" gorm:"default:false"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// ValidCategory 判断分类是否在固定枚举集合内
func ValidCategory(c MomentCategory) bool {
	switch c {
	case CategoryMilestone, CategoryAnniversary, CategoryTravel, CategoryCelebration:
		return true
	}
	return false
}

// ValidIcon 判断图标是否在固定枚举集合内
func ValidIcon(i MomentIcon) bool {
	switch i {
	case IconFavorite, IconDiamond, IconCake, IconFlight, IconCalendar:
		return true
	}
	return false
}
