package service

import (
	"sync"
	"time"
)

// Monitor 监控服务，用于统计订单核心的错误和业务指标
type Monitor struct {
	mu sync.RWMutex

	// 错误统计
	DBErrors         int64
	NotifyErrors     int64
	OversellRejected int64
	ValidationErrors int64

	// 业务统计
	OrdersCreated  int64
	StatusUpdates  int64
	Cancellations  int64
	RestockedItems int64
	DeletedOrders  int64

	// 时间统计
	LastDBError   time.Time
	LastOrderTime time.Time
}

var globalMonitor = &Monitor{}

// GetMonitor 获取全局监控实例
func GetMonitor() *Monitor {
	return globalMonitor
}

// RecordDBError 记录数据库错误
func (m *Monitor) RecordDBError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DBErrors++
	m.LastDBError = time.Now()
}

// RecordNotifyError 记录事件通知失败（不影响主流程）
func (m *Monitor) RecordNotifyError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifyErrors++
}

// RecordOversellRejected 记录因库存不足被拒的下单
func (m *Monitor) RecordOversellRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OversellRejected++
}

// RecordValidationError 记录入参校验失败
func (m *Monitor) RecordValidationError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ValidationErrors++
}

// RecordOrderCreated 记录下单成功
func (m *Monitor) RecordOrderCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrdersCreated++
	m.LastOrderTime = time.Now()
}

// RecordStatusUpdate 记录状态变更成功
func (m *Monitor) RecordStatusUpdate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusUpdates++
}

// RecordCancellation 记录取消订单及其回补的件数
func (m *Monitor) RecordCancellation(restockedItems int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancellations++
	m.RestockedItems += restockedItems
}

// RecordDeleted 记录硬删除的订单数
func (m *Monitor) RecordDeleted(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeletedOrders += n
}

// GetStats 获取统计信息
func (m *Monitor) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"errors": map[string]interface{}{
			"db":         m.DBErrors,
			"notify":     m.NotifyErrors,
			"oversell":   m.OversellRejected,
			"validation": m.ValidationErrors,
		},
		"orders": map[string]interface{}{
			"created":         m.OrdersCreated,
			"status_updates":  m.StatusUpdates,
			"cancellations":   m.Cancellations,
			"restocked_items": m.RestockedItems,
			"deleted":         m.DeletedOrders,
		},
		"last_events": map[string]interface{}{
			"db_error":   m.LastDBError,
			"last_order": m.LastOrderTime,
		},
	}
}

// Reset 重置统计（用于测试或定期清理）
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DBErrors = 0
	m.NotifyErrors = 0
	m.OversellRejected = 0
	m.ValidationErrors = 0
	m.OrdersCreated = 0
	m.StatusUpdates = 0
	m.Cancellations = 0
	m.RestockedItems = 0
	m.DeletedOrders = 0
}
