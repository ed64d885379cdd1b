// Package metrics 基于Prometheus的业务与基础设施指标
//
// 命名约定：
//   - Counter 以 _total 结尾
//   - Histogram 以单位结尾（_seconds）
//   - 标签只用有限取值的维度（result、kind），不要用 user_id 这类高基数字段
//
// 所有指标通过 promauto 注册到默认 Registry，由 /metrics 暴露。
// 业务代码通过 Record* 函数记录，首次调用时自动完成注册。
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// HTTP

	HTTPRequestsTotal      *prometheus.CounterVec   // method, path, status
	HTTPRequestDuration    *prometheus.HistogramVec // method, path
	HTTPRequestsInProgress prometheus.Gauge

	// 借阅生命周期

	BorrowingsCreatedTotal  prometheus.Counter
	BorrowingsRejectedTotal *prometheus.CounterVec // reason: invalid_date/out_of_stock/other
	BorrowingsReturnedTotal *prometheus.CounterVec // overdue: true/false
	FinesIssuedTotal        prometheus.Counter
	LifecycleDuration       *prometheus.HistogramVec // operation: create/return

	// 支付

	PaymentSessionsTotal    *prometheus.CounterVec // kind, result: opened/unavailable/failed
	PaymentsConfirmedTotal  prometheus.Counter
	CircuitBreakerState     *prometheus.GaugeVec   // name; 0=CLOSED 1=OPEN 2=HALF_OPEN
	CircuitBreakerRequests  *prometheus.CounterVec // name, result
	SagaExecutionsTotal     *prometheus.CounterVec // saga, result
	SagaCompensationsTotal  *prometheus.CounterVec // saga

	// 通知

	NotificationsTotal        *prometheus.CounterVec // sender, result: sent/failed/dropped
	NotificationQueueDepth    prometheus.Gauge
	MessagesPublishedTotal    *prometheus.CounterVec // exchange, routing_key
	MessagesConsumedTotal     *prometheus.CounterVec // queue, result
	MessageProcessingDuration prometheus.Histogram
)

// InitMetrics 注册全部指标，可重复调用
func InitMetrics() {
	once.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP请求总数",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP请求耗时（秒）",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
	}, []string{"method", "path"})

	HTTPRequestsInProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_in_progress",
		Help: "正在处理的HTTP请求数",
	})

	BorrowingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "library_borrowings_created_total",
		Help: "借阅创建成功总数",
	})

	BorrowingsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_borrowings_rejected_total",
		Help: "借阅创建被拒绝总数",
	}, []string{"reason"})

	BorrowingsReturnedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_borrowings_returned_total",
		Help: "归还总数",
	}, []string{"overdue"})

	FinesIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "library_fines_issued_total",
		Help: "逾期罚款次数",
	})

	LifecycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "library_lifecycle_duration_seconds",
		Help:    "借阅/归还处理耗时（秒），含事务与支付会话",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"operation"})

	PaymentSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_payment_sessions_total",
		Help: "支付会话创建结果",
	}, []string{"kind", "result"})

	PaymentsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "library_payments_confirmed_total",
		Help: "支付确认（PENDING->PAID）总数",
	})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
	}, []string{"name"})

	CircuitBreakerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_requests_total",
		Help: "熔断器请求总数",
	}, []string{"name", "result"})

	SagaExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saga_executions_total",
		Help: "Saga执行总数",
	}, []string{"saga", "result"})

	SagaCompensationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saga_compensations_total",
		Help: "Saga补偿执行总数",
	}, []string{"saga"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_notifications_total",
		Help: "通知投递结果",
	}, []string{"sender", "result"})

	NotificationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "library_notification_queue_depth",
		Help: "进程内通知队列长度",
	})

	MessagesPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messages_published_total",
		Help: "消息发布总数",
	}, []string{"exchange", "routing_key"})

	MessagesConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messages_consumed_total",
		Help: "消息消费总数",
	}, []string{"queue", "result"})

	MessageProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "message_processing_duration_seconds",
		Help:    "消息处理耗时（秒）",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
	})
}

// =========================================
// 记录函数
// =========================================

// RecordHTTPRequest HTTP请求，path用路由模板避免高基数
func RecordHTTPRequest(method, path, status string, seconds float64) {
	InitMetrics()
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// HTTPRequestStarted 进行中请求数+1，返回对应的结束函数
func HTTPRequestStarted() func() {
	InitMetrics()
	HTTPRequestsInProgress.Inc()
	return HTTPRequestsInProgress.Dec
}

// RecordBorrowingCreated 借阅创建成功
func RecordBorrowingCreated(seconds float64) {
	InitMetrics()
	BorrowingsCreatedTotal.Inc()
	LifecycleDuration.WithLabelValues("create").Observe(seconds)
}

// RecordBorrowingRejected 借阅被拒绝
func RecordBorrowingRejected(reason string) {
	InitMetrics()
	BorrowingsRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordBorrowingReturned 归还成功
func RecordBorrowingReturned(overdue bool, seconds float64) {
	InitMetrics()
	label := "false"
	if overdue {
		label = "true"
		FinesIssuedTotal.Inc()
	}
	BorrowingsReturnedTotal.WithLabelValues(label).Inc()
	LifecycleDuration.WithLabelValues("return").Observe(seconds)
}

// RecordPaymentSession 支付会话结果
func RecordPaymentSession(kind, result string) {
	InitMetrics()
	PaymentSessionsTotal.WithLabelValues(kind, result).Inc()
}

// RecordPaymentConfirmed 支付确认
func RecordPaymentConfirmed() {
	InitMetrics()
	PaymentsConfirmedTotal.Inc()
}

// RecordBreakerState 熔断器状态
func RecordBreakerState(name string, state int) {
	InitMetrics()
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordBreakerRequest 熔断器请求结果：success/failure/rejected
func RecordBreakerRequest(name, result string) {
	InitMetrics()
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// RecordSaga Saga执行结果
func RecordSaga(name string, err error) {
	InitMetrics()
	if err != nil {
		SagaExecutionsTotal.WithLabelValues(name, "failure").Inc()
		SagaCompensationsTotal.WithLabelValues(name).Inc()
		return
	}
	SagaExecutionsTotal.WithLabelValues(name, "success").Inc()
}

// RecordNotification 通知投递结果：sent/failed/dropped
func RecordNotification(sender, result string) {
	InitMetrics()
	NotificationsTotal.WithLabelValues(sender, result).Inc()
}

// SetNotificationQueueDepth 通知队列长度
func SetNotificationQueueDepth(n int) {
	InitMetrics()
	NotificationQueueDepth.Set(float64(n))
}

// RecordMessagePublished MQ发布
func RecordMessagePublished(exchange, routingKey string) {
	InitMetrics()
	MessagesPublishedTotal.WithLabelValues(exchange, routingKey).Inc()
}

// RecordMessageConsumed MQ消费
func RecordMessageConsumed(queue string, err error, seconds float64) {
	InitMetrics()
	result := "success"
	if err != nil {
		result = "failure"
	}
	MessagesConsumedTotal.WithLabelValues(queue, result).Inc()
	MessageProcessingDuration.Observe(seconds)
}
