package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// TestInitMetrics 重复初始化不应panic（promauto重复注册会panic）
func TestInitMetrics(t *testing.T) {
	InitMetrics()
	InitMetrics()

	if HTTPRequestsTotal == nil || BorrowingsCreatedTotal == nil || NotificationsTotal == nil {
		t.Fatal("指标未初始化")
	}
}

func TestRecordBorrowingCreated(t *testing.T) {
	InitMetrics()
	before := getCounterValue(t, BorrowingsCreatedTotal)
	beforeCount := getHistogramVecCount(t, LifecycleDuration, "create")

	RecordBorrowingCreated(0.02)
	RecordBorrowingCreated(0.03)

	if got := getCounterValue(t, BorrowingsCreatedTotal) - before; got != 2 {
		t.Errorf("创建计数错误: expected=2, got=%f", got)
	}
	if got := getHistogramVecCount(t, LifecycleDuration, "create") - beforeCount; got != 2 {
		t.Errorf("耗时观测次数错误: expected=2, got=%d", got)
	}
}

func TestRecordBorrowingReturned_Overdue(t *testing.T) {
	InitMetrics()
	fines := getCounterValue(t, FinesIssuedTotal)
	overdue := getCounterVecValue(t, BorrowingsReturnedTotal, "true")
	onTime := getCounterVecValue(t, BorrowingsReturnedTotal, "false")

	RecordBorrowingReturned(true, 0.01)
	RecordBorrowingReturned(false, 0.01)

	if got := getCounterValue(t, FinesIssuedTotal) - fines; got != 1 {
		t.Errorf("罚款计数错误: expected=1, got=%f", got)
	}
	if got := getCounterVecValue(t, BorrowingsReturnedTotal, "true") - overdue; got != 1 {
		t.Errorf("逾期归还计数错误: %f", got)
	}
	if got := getCounterVecValue(t, BorrowingsReturnedTotal, "false") - onTime; got != 1 {
		t.Errorf("按时归还计数错误: %f", got)
	}
}

func TestRecordSaga(t *testing.T) {
	InitMetrics()
	failures := getCounterVecValue(t, SagaExecutionsTotal, "test-saga", "failure")
	compensations := getCounterVecValue(t, SagaCompensationsTotal, "test-saga")

	RecordSaga("test-saga", nil)
	RecordSaga("test-saga", errors.New("boom"))

	if got := getCounterVecValue(t, SagaExecutionsTotal, "test-saga", "failure") - failures; got != 1 {
		t.Errorf("失败计数错误: %f", got)
	}
	if got := getCounterVecValue(t, SagaCompensationsTotal, "test-saga") - compensations; got != 1 {
		t.Errorf("补偿计数错误: %f", got)
	}
}

func TestRecordBreakerState(t *testing.T) {
	RecordBreakerState("stripe", 1)

	var m dto.Metric
	if err := CircuitBreakerState.WithLabelValues("stripe").Write(&m); err != nil {
		t.Fatal(err)
	}
	if m.Gauge.GetValue() != 1 {
		t.Errorf("熔断器状态错误: %f", m.Gauge.GetValue())
	}
}

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := counter.Write(&m); err != nil {
		t.Fatalf("读取Counter值失败: %v", err)
	}
	return m.Counter.GetValue()
}

func getCounterVecValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	return getCounterValue(t, vec.WithLabelValues(labels...))
}

func getHistogramVecCount(t *testing.T, vec *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	var m dto.Metric
	if err := vec.WithLabelValues(labels...).(prometheus.Histogram).Write(&m); err != nil {
		t.Fatalf("读取Histogram值失败: %v", err)
	}
	return m.Histogram.GetSampleCount()
}
