package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess      = 0
	CodeParamError   = 400
	CodeUnauthorized = 401
	CodeServerError  = 500
)

// 补偿业务错误码
const (
	CodeInvalidPhone       = 1001
	CodeMissingName        = 1002
	CodeMissingCoupon      = 1003
	CodeInvalidCoupon      = 1004
	CodeInvalidAmount      = 1005
	CodeMissingReason      = 1006
	CodeMissingActor       = 1007
	CodeMissingApprover    = 1008
	CodeEmptyImport        = 1009
	CodeInvalidFilter      = 1010
	CodePageOutOfRange     = 1011
	CodeRecordNotFound     = 1012
	CodeInvalidCredentials = 1013
	CodeInvalidFile        = 1014
	CodeImportTooLarge     = 1015
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Field   string      `json:"field,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// FieldError 校验失败，field 指明需要修改的输入
func FieldError(c *gin.Context, code int, message, field string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Field:   field,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func Unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
		Code:    CodeUnauthorized,
		Message: message,
	})
}

func ServerError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, Response{
		Code:    CodeServerError,
		Message: message,
	})
}
