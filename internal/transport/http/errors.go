package httptransport

import (
	"loveletter/backend/internal/auth"
	"loveletter/backend/internal/domain"
	"loveletter/backend/internal/service"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	// 认证错误
	auth.ErrInvalidEmail:       "邮箱格式无效",
	auth.ErrEmailExists:        "该邮箱已注册",
	auth.ErrInvalidCredentials: "邮箱或密码错误",
	auth.ErrUserInactive:       "账户已被禁用",
	auth.ErrUserNotFound:       "用户不存在",

	// 配对错误
	service.ErrCodeNotFound:  "邀请码不存在",
	service.ErrSelfPairing:   "不能和自己配对",
	service.ErrAlreadyPaired: "已经有伴侣了",

	// 信件错误
	service.ErrNoPartner:      "还没有配对的伴侣，先邀请 TA 吧",
	service.ErrLetterNotFound: "信件不存在",
	service.ErrScheduleInPast: "预约送达时间不能早于现在",
	domain.ErrEmptyContent:    "信件内容不能为空",
	domain.ErrContentTooLong:  "信件内容超过长度限制",
	domain.ErrInvalidTheme:    "信纸主题无效",

	// 纪念日错误
	service.ErrMomentNotFound: "纪念日不存在",
	service.ErrInvalidCategory: "纪念日分类无效",
	service.ErrInvalidIcon:     "纪念日图标无效",
	service.ErrInvalidDate:     "纪念日日期无效",
	domain.ErrEmptyTitle:       "标题不能为空",
	domain.ErrTitleTooLong:     "标题超过长度限制",

	// 资料错误
	domain.ErrInvalidNickname: "昵称格式无效",
	domain.ErrInvalidReminder: "提醒时间格式无效，应为 HH:MM",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	if msg, ok := errorMessages[err]; ok {
		return msg
	}
	return err.Error()
}

// 通用错误消息
const (
	// 请求相关
	MsgInvalidRequest   = "请求参数格式错误"
	MsgInvalidJSON      = "JSON格式错误"
	MsgRequestBodyEmpty = "请求体不能为空"

	// 认证相关
	MsgAuthRequired       = "需要登录认证"
	MsgInvalidCredentials = "邮箱或密码错误"
	MsgTokenExpired       = "登录已过期，请重新登录"
	MsgTokenInvalid       = "无效的访问令牌"
	MsgPermissionDenied   = "权限不足"

	// 信件相关
	MsgLetterSendFailed     = "寄信失败"
	MsgLetterNotFound       = "信件不存在"
	MsgLetterListFailed     = "获取信件列表失败"
	MsgLetterArchiveFailed  = "获取信箱归档失败"
	MsgLetterMarkReadFailed = "标记已读失败"

	// 纪念日相关
	MsgMomentCreateFailed = "创建纪念日失败"
	MsgMomentNotFound     = "纪念日不存在"
	MsgMomentListFailed   = "获取纪念日列表失败"
	MsgMomentUpdateFailed = "更新纪念日失败"
	MsgMomentDeleteFailed = "删除纪念日失败"

	// 配对相关
	MsgConnectFailed       = "配对失败"
	MsgStatusFailed        = "获取配对状态失败"
	MsgInviteCodeFailed    = "获取邀请码失败"
	MsgRegenerateFailed    = "更换邀请码失败"

	// 限流相关
	MsgTooManyRequests = "请求过于频繁，请稍后重试"

	// 服务器错误
	MsgInternalError = "服务器内部错误，请稍后重试"
)
