package handler

import (
	"errors"
	"net/http"
	"strconv"

	"compsystem/internal/infrastructure/sheet"
	"compsystem/internal/model"
	"compsystem/internal/service"
	"compsystem/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	compensation *service.CompensationService
	imports      *service.ImportService
	auth         *service.AuthService
	maxUpload    int64
	log          *zap.Logger
}

// NewHandler 创建处理器实例
func NewHandler(compensation *service.CompensationService, imports *service.ImportService, auth *service.AuthService, maxUpload int64, log *zap.Logger) *Handler {
	return &Handler{
		compensation: compensation,
		imports:      imports,
		auth:         auth,
		maxUpload:    maxUpload,
		log:          log,
	}
}

// ============================================================
// 登录
// ============================================================

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 登录
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	response.Success(c, res)
}

// Logout 登出
// POST /api/v1/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context()); err != nil {
		writeError(c, h.log, err)
		return
	}
	response.Success(c, nil)
}

// ============================================================
// 补偿券
// ============================================================

// Catalog 可选券种
// GET /api/v1/coupon/catalog
func (h *Handler) Catalog(c *gin.Context) {
	response.Success(c, gin.H{
		"variant":  h.compensation.Variant(),
		"currency": model.CurrencySymbol,
		"options":  h.compensation.Catalog(),
	})
}

// CreateCompensation 新增补偿
// POST /api/v1/compensation/create
func (h *Handler) CreateCompensation(c *gin.Context) {
	var req service.CreateCompensationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	created, err := h.compensation.Create(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	response.Success(c, created)
}

// GetCard 顾客卡片
// GET /api/v1/compensation/card?phone=xxx
func (h *Handler) GetCard(c *gin.Context) {
	card, err := h.compensation.Card(c.Request.Context(), c.Query("phone"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	response.Success(c, card)
}

// Redeem 兑换，返回刷新后的顾客卡片。重复兑换按成功返回，redeemed=false
// POST /api/v1/compensation/redeem
func (h *Handler) Redeem(c *gin.Context) {
	var req service.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	record, err := h.compensation.Redeem(ctx, &req)
	noop := errors.Is(err, model.ErrAlreadyRedeemed)
	if err != nil && !noop {
		writeError(c, h.log, err)
		return
	}

	card, err := h.compensation.CardOf(ctx, record)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	response.Success(c, gin.H{
		"redeemed": !noop,
		"card":     card,
	})
}

// ListCompensations 分页列表
// GET /api/v1/compensation/list?phone=&name=&status=&date_from=&date_to=&page=
func (h *Handler) ListCompensations(c *gin.Context) {
	filter, page, ok := h.bindListQuery(c)
	if !ok {
		return
	}

	result, err := h.compensation.Browse(c.Request.Context(), filter, page)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	response.Success(c, result)
}

// ImportCompensations 表格导入
// POST /api/v1/compensation/import (multipart, 字段 file)
func (h *Handler) ImportCompensations(c *gin.Context) {
	if c.Request.ContentLength > h.maxUpload {
		writeError(c, h.log, model.ErrImportTooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, h.log, model.ErrImportTooLarge)
			return
		}
		response.FieldError(c, response.CodeParamError, "file is required", "file")
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	defer f.Close()

	result, err := h.imports.ImportFile(c.Request.Context(), fh.Filename, f)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	response.Success(c, result)
}

// ExportCompensations 导出当前页
// GET /api/v1/compensation/export?<同列表筛选>&page=
func (h *Handler) ExportCompensations(c *gin.Context) {
	filter, page, ok := h.bindListQuery(c)
	if !ok {
		return
	}

	data, err := h.compensation.Export(c.Request.Context(), filter, page)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+sheet.ExportFileName+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *Handler) bindListQuery(c *gin.Context) (model.ListFilter, int, bool) {
	var filter model.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return filter, 0, false
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(c, h.log, model.ErrPageOutOfRange)
			return filter, 0, false
		}
		page = n
	}
	return filter, page, true
}
