package handler

import (
	"errors"

	"compsystem/internal/model"
	"compsystem/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errorCodes = []struct {
	err  error
	code int
}{
	{model.ErrInvalidPhone, response.CodeInvalidPhone},
	{model.ErrMissingName, response.CodeMissingName},
	{model.ErrMissingCoupon, response.CodeMissingCoupon},
	{model.ErrInvalidCoupon, response.CodeInvalidCoupon},
	{model.ErrInvalidAmount, response.CodeInvalidAmount},
	{model.ErrMissingReason, response.CodeMissingReason},
	{model.ErrMissingActor, response.CodeMissingActor},
	{model.ErrMissingApprover, response.CodeMissingApprover},
	{model.ErrEmptyImport, response.CodeEmptyImport},
	{model.ErrInvalidStatus, response.CodeInvalidFilter},
	{model.ErrInvalidDate, response.CodeInvalidFilter},
	{model.ErrPageOutOfRange, response.CodePageOutOfRange},
	{model.ErrCompensationNotFound, response.CodeRecordNotFound},
	{model.ErrInvalidCredentials, response.CodeInvalidCredentials},
	{model.ErrInvalidFile, response.CodeInvalidFile},
	{model.ErrImportTooLarge, response.CodeImportTooLarge},
}

// writeError 把业务错误翻译成响应。校验错误带上字段名，其余按服务端错误处理
func writeError(c *gin.Context, log *zap.Logger, err error) {
	if errors.Is(err, model.ErrNoSession) {
		response.Unauthorized(c, err.Error())
		return
	}
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			response.FieldError(c, e.code, err.Error(), model.FieldOf(err))
			return
		}
	}

	log.Error("请求处理失败",
		zap.String("path", c.FullPath()),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err),
	)
	// 存储错误的消息原样透传，便于前台直接展示
	response.ServerError(c, err.Error())
}
