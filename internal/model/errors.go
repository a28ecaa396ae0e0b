package model

import (
	"errors"
)

// ============================================================================
// 业务错误
// ============================================================================
//
// 所有校验类错误都在访问存储之前于本地判定，不会自动重试。
// 每个错误都绑定一个字段名，响应里据此告诉调用方该改哪个输入。

var (
	ErrInvalidPhone    = errors.New("phone must be 05XXXXXXXX (digits only)")
	ErrMissingName     = errors.New("customer name is required")
	ErrMissingCoupon   = errors.New("a compensation coupon must be selected")
	ErrInvalidCoupon   = errors.New("unknown compensation coupon")
	ErrInvalidAmount   = errors.New("credit amount must be a number greater than zero")
	ErrMissingReason   = errors.New("compensation reason is required")
	ErrMissingActor    = errors.New("compensation approver is required")
	ErrMissingApprover = errors.New("redemption approver name is required")
	ErrAlreadyRedeemed = errors.New("compensation already redeemed")
	ErrEmptyImport     = errors.New("no valid rows to import")
	ErrNoSession       = errors.New("login required")

	ErrInvalidStatus        = errors.New("status must be one of all, open, redeemed")
	ErrInvalidDate          = errors.New("date must be formatted as YYYY-MM-DD")
	ErrPageOutOfRange       = errors.New("page out of range")
	ErrCompensationNotFound = errors.New("compensation not found")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidFile          = errors.New("file could not be read as a spreadsheet")
	ErrImportTooLarge       = errors.New("too many rows in import file")

	// ErrPersistence 存储层失败的统一类别，具体消息见 PersistenceError
	ErrPersistence = errors.New("persistence error")
)

// errorFields 按顺序匹配，同时包装了多个哨兵的错误取第一个命中的字段
var errorFields = []struct {
	err   error
	field string
}{
	{ErrInvalidPhone, "phone"},
	{ErrMissingName, "name"},
	{ErrMissingCoupon, "coupon_kind"},
	{ErrInvalidCoupon, "coupon_kind"},
	{ErrInvalidAmount, "credit_amount"},
	{ErrMissingReason, "reason"},
	{ErrMissingActor, "created_by"},
	{ErrMissingApprover, "approver"},
	{ErrInvalidStatus, "status"},
	{ErrInvalidDate, "date"},
	{ErrPageOutOfRange, "page"},
	{ErrEmptyImport, "file"},
	{ErrInvalidFile, "file"},
	{ErrImportTooLarge, "file"},
}

// FieldOf 返回错误对应的输入字段，没有对应字段时返回空串
func FieldOf(err error) string {
	for _, e := range errorFields {
		if errors.Is(err, e.err) {
			return e.field
		}
	}
	return ""
}

// PersistenceError 包装存储层返回的错误，消息原样透传
type PersistenceError struct {
	Err error
}

// Persistence 包装存储错误；nil 原样返回，已包装过的不再重复包装
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Err: err}
}

func (e *PersistenceError) Error() string {
	return e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
