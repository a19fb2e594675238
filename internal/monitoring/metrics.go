// Package monitoring 提供 Prometheus 指标
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// 信件指标
	LettersSent      prometheus.Counter
	LettersScheduled prometheus.Counter
	LettersReleased  prometheus.Counter
	LettersOpened    prometheus.Counter

	// 配对指标
	CouplesConnected    prometheus.Counter
	ConnectFailures     *prometheus.CounterVec
	InviteCodesRotated  prometheus.Counter

	// 纪念日指标
	MomentsCreated prometheus.Counter
	MomentsDeleted prometheus.Counter

	// 用户指标
	UsersRegistered prometheus.Counter
	UsersOnline     prometheus.Gauge

	// 系统指标
	SystemUptime prometheus.Gauge

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// 限流指标
	RateLimitBlocks *prometheus.CounterVec
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dearly_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dearly_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dearly_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dearly_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "endpoint"},
		),

		LettersSent: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dearly_letters_sent_total",
				Help: "Total number of letters sent",
			},
		),

		LettersScheduled: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dearly_letters_scheduled_total",
				Help: "Total number of letters sent with a future delivery time",
			},
		),

		LettersReleased: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dearly_letters_released_total",
				Help: "Total number of scheduled letters released",
			},
		),

		LettersOpened: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dearly_letters_opened_total",
				Help: "Total number of letters opened by their receiver",
			},
		),

		CouplesConnected: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dearly_couples_connected_total",
				Help: "Total number of successful pairings",
			},
		),

		ConnectFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dearly_connect_failures_total",
				Help: "Total number of failed pairing attempts",
			},
			[]string{"reason"},
		),

		InviteCodesRotated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dearly_invite_codes_rotated_total",
				Help: "Total number of invite codes rotated after expiry",
			},
		),

		MomentsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dearly_moments_created_total",
				Help: "Total number of moments created",
			},
		),

		MomentsDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dearly_moments_deleted_total",
				Help: "Total number of moments deleted",
			},
		),

		UsersRegistered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dearly_users_registered_total",
				Help: "Total number of users registered",
			},
		),

		UsersOnline: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dearly_users_online",
				Help: "Number of users with an open WebSocket connection",
			},
		),

		SystemUptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dearly_system_uptime_seconds",
				Help: "System uptime in seconds",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dearly_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dearly_panics_total",
				Help: "Total number of panics",
			},
		),

		RateLimitBlocks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dearly_rate_limit_blocks_total",
				Help: "Total number of requests blocked by rate limiting",
			},
			[]string{"route"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, requestSize, responseSize int64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.HTTPRequestSize.WithLabelValues(method, endpoint).Observe(float64(requestSize))
	m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// RecordLetterSent 记录信件寄出
func (m *Metrics) RecordLetterSent(scheduled bool) {
	m.LettersSent.Inc()
	if scheduled {
		m.LettersScheduled.Inc()
	}
}

// RecordLetterReleased 记录预约信件释放
func (m *Metrics) RecordLetterReleased() {
	m.LettersReleased.Inc()
}

// RecordLetterOpened 记录信件被打开
func (m *Metrics) RecordLetterOpened() {
	m.LettersOpened.Inc()
}

// RecordCoupleConnected 记录配对成功
func (m *Metrics) RecordCoupleConnected() {
	m.CouplesConnected.Inc()
}

// RecordConnectFailure 记录配对失败原因
func (m *Metrics) RecordConnectFailure(reason string) {
	m.ConnectFailures.WithLabelValues(reason).Inc()
}

// RecordInviteCodeRotated 记录邀请码轮换
func (m *Metrics) RecordInviteCodeRotated() {
	m.InviteCodesRotated.Inc()
}

// RecordMomentCreated 记录纪念日创建
func (m *Metrics) RecordMomentCreated() {
	m.MomentsCreated.Inc()
}

// RecordMomentDeleted 记录纪念日删除
func (m *Metrics) RecordMomentDeleted() {
	m.MomentsDeleted.Inc()
}

// RecordUserRegistered 记录用户注册
func (m *Metrics) RecordUserRegistered() {
	m.UsersRegistered.Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// RecordRateLimitBlock 记录限流阻止
func (m *Metrics) RecordRateLimitBlock(route string) {
	m.RateLimitBlocks.WithLabelValues(route).Inc()
}

// UpdateUsersOnline 更新在线用户数
func (m *Metrics) UpdateUsersOnline(count int) {
	m.UsersOnline.Set(float64(count))
}

// UpdateSystemUptime 更新系统运行时间
func (m *Metrics) UpdateSystemUptime(uptime time.Duration) {
	m.SystemUptime.Set(uptime.Seconds())
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
