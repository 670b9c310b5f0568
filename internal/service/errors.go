package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ValidationError 入参不合法，在开事务之前就被拒绝
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidationError 构造校验错误
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError 引用的订单或商品不存在
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s不存在: %d", e.Resource, e.ID)
}

// NotAvailableError 请求的商品不在可售集合中（不存在或已下架）
type NotAvailableError struct {
	ProductIDs []int64
}

func (e *NotAvailableError) Error() string {
	ids := make([]string, 0, len(e.ProductIDs))
	for _, id := range e.ProductIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	return "商品不可购买: " + strings.Join(ids, ", ")
}

// InsufficientStockError 库存不足，必须指明是哪个商品
type InsufficientStockError struct {
	ProductTitle string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("商品「%s」库存不足", e.ProductTitle)
}

// InvalidTransitionError 非法的状态迁移（从终态出发）
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("订单已是终态 %s，不能变更为 %s", e.From, e.To)
}

// AuthorizationError 调用方无权限
type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string {
	if e.Msg == "" {
		return "没有权限执行该操作"
	}
	return e.Msg
}

// TransactionError 底层持久化失败。对外只给稳定的提示语，
// 原始错误保留在 Err 中供日志诊断，不向调用方泄露。
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return "系统繁忙，请稍后重试"
}

func (e *TransactionError) Unwrap() error { return e.Err }

// IsDomainErr 判断是否为领域内已分类的错误。
// 事务回调返回这类错误时直接透传，不再包 TransactionError。
func IsDomainErr(err error) bool {
	var (
		ve *ValidationError
		nf *NotFoundError
		na *NotAvailableError
		is *InsufficientStockError
		it *InvalidTransitionError
		ae *AuthorizationError
	)
	return errors.As(err, &ve) ||
		errors.As(err, &nf) ||
		errors.As(err, &na) ||
		errors.As(err, &is) ||
		errors.As(err, &it) ||
		errors.As(err, &ae)
}
