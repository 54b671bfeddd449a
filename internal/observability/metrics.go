package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	deliveryCount map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		deliveryCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordDelivery counts notification outcomes per type and status tag.
func (m *Metrics) RecordDelivery(notificationType, status string) {
	if m == nil {
		return
	}
	key := notificationType + "|" + status
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveryCount[key]++
}

// DeliverySnapshot copies the delivery counters for admin inspection.
func (m *Metrics) DeliverySnapshot() map[string]int64 {
	return m.snapshot(func() map[string]int64 { return m.deliveryCount })
}

// RequestSnapshot copies the request counters for admin inspection.
func (m *Metrics) RequestSnapshot() map[string]int64 {
	return m.snapshot(func() map[string]int64 { return m.requestCount })
}

// ErrorSnapshot copies the error counters for admin inspection.
func (m *Metrics) ErrorSnapshot() map[string]int64 {
	return m.snapshot(func() map[string]int64 { return m.errorCount })
}

func (m *Metrics) snapshot(source func() map[string]int64) map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	counters := source()
	snapshot := make(map[string]int64, len(counters))
	for key, count := range counters {
		snapshot[key] = count
	}
	return snapshot
}
