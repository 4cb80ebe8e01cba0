package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

// ApiResponse is the single envelope every HTTP handler returns, per
// spec §6: {success, code, message, data, metadata?, userError?, operation}.
type ApiResponse struct {
	Success   bool   `json:"success"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Metadata  any    `json:"metadata,omitempty"`
	UserError string `json:"userError,omitempty"`
	Operation string `json:"operation"`
}

// OK writes a 200 success envelope.
func OK(c echo.Context, operation string, data any) error {
	return c.JSON(http.StatusOK, ApiResponse{Success: true, Code: http.StatusOK, Message: "success", Data: data, Operation: operation})
}

// Created writes a 201 success envelope.
func Created(c echo.Context, operation string, data any) error {
	return c.JSON(http.StatusCreated, ApiResponse{Success: true, Code: http.StatusCreated, Message: "created", Data: data, Operation: operation})
}

// Paged writes a 200 success envelope carrying pagination metadata.
func Paged(c echo.Context, operation string, data any, total, page, limit int) error {
	return c.JSON(http.StatusOK, ApiResponse{
		Success: true, Code: http.StatusOK, Message: "success", Data: data, Operation: operation,
		Metadata: map[string]any{"total": total, "page": page, "limit": limit},
	})
}

// Error maps a domain error to the right HTTP status class and writes the
// envelope, per spec §7's kind -> status-class table.
func Error(c echo.Context, operation string, err error) error {
	status, userError := classify(err)
	return c.JSON(status, ApiResponse{
		Success:   false,
		Code:      status,
		Message:   err.Error(),
		UserError: userError,
		Operation: operation,
	})
}

// classify maps a domain sentinel (or wrapped echo.HTTPError) to an HTTP
// status and a localized-ish user-facing message. Unknown errors are
// treated as System (500).
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidPercentage),
		errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrUnknownPaymentCode),
		errors.Is(err, domain.ErrInvalidTenantID), errors.Is(err, domain.ErrNameRequired),
		errors.Is(err, domain.ErrNameTooLong):
		return http.StatusBadRequest, "入力内容を確認してください"

	case errors.Is(err, domain.ErrInvalidCartEvent), errors.Is(err, domain.ErrTerminalNotOpened),
		errors.Is(err, domain.ErrTerminalNotIdle):
		return http.StatusBadRequest, "この操作は現在の状態では実行できません"

	case errors.Is(err, domain.ErrDiscountRestricted), errors.Is(err, domain.ErrAmountLessThanDiscount),
		errors.Is(err, domain.ErrBalanceLessThanDiscount), errors.Is(err, domain.ErrDiscountAllocationFailed),
		errors.Is(err, domain.ErrBalanceZero), errors.Is(err, domain.ErrBalanceMinus),
		errors.Is(err, domain.ErrDepositOver), errors.Is(err, domain.ErrCannotRefund):
		return http.StatusBadRequest, "この取引は処理できません"

	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrTenantNotFound),
		errors.Is(err, domain.ErrStoreNotFound), errors.Is(err, domain.ErrTerminalNotFound),
		errors.Is(err, domain.ErrCartNotFound), errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrTaxNotFound), errors.Is(err, domain.ErrPaymentNotFound),
		errors.Is(err, domain.ErrCategoryNotFound), errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrStockNotFound), errors.Is(err, domain.ErrStaffNotFound),
		errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrScheduleNotFound),
		errors.Is(err, domain.ErrSettingsNotFound), errors.Is(err, domain.ErrButtonLayoutNotFound),
		errors.Is(err, domain.ErrJournalNotFound), errors.Is(err, domain.ErrAPITokenNotFound):
		return http.StatusNotFound, "対象のデータが見つかりません"

	case errors.Is(err, domain.ErrCartAlreadyFinalized), errors.Is(err, domain.ErrTerminalAlreadyExists),
		errors.Is(err, domain.ErrTenantAlreadyExists), errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrAlreadyVoided), errors.Is(err, domain.ErrAlreadyRefunded):
		return http.StatusConflict, "この処理はすでに行われています"

	case errors.Is(err, domain.ErrUpdateMiss), errors.Is(err, domain.ErrDeleteMiss),
		errors.Is(err, domain.ErrTransactionAborted):
		return http.StatusInternalServerError, "内部エラーが発生しました"

	case errors.Is(err, domain.ErrMasterDataUnavailable), errors.Is(err, domain.ErrBusPublishFailed):
		return http.StatusBadGateway, "外部サービスに接続できません"

	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidAPIKey),
		errors.Is(err, domain.ErrInvalidPassword):
		return http.StatusUnauthorized, "認証に失敗しました"

	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "この操作を行う権限がありません"

	default:
		var herr *echo.HTTPError
		if errors.As(err, &herr) {
			if code, ok := herr.Code, true; ok {
				return code, "リクエストを処理できませんでした"
			}
		}
		var serr *domain.StorageError
		if errors.As(err, &serr) {
			return http.StatusInternalServerError, "内部エラーが発生しました"
		}
		return http.StatusInternalServerError, "予期しないエラーが発生しました"
	}
}
