package channel

import (
	"errors"
	"net/http"

	"gitee.com/flycash/courier-platform/internal/domain"
	"gitee.com/flycash/courier-platform/internal/errs"
	channelsvc "gitee.com/flycash/courier-platform/internal/service/channel"
	"github.com/gin-gonic/gin"
	"github.com/gotomicro/ego/core/elog"
)

type Handler struct {
	svc    channelsvc.Service
	logger *elog.Component
}

func NewHandler(svc channelsvc.Service) *Handler {
	return &Handler{
		svc:    svc,
		logger: elog.DefaultLogger,
	}
}

func (h *Handler) PrivateRoutes(engine *gin.Engine) {
	g := engine.Group("/channels")
	g.POST("", h.Create)
	g.POST("/claim", h.Claim)
	g.POST("/:id/release", h.Release)
	g.GET("/:uuid", h.Get)
}

type Result[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

type CreateReq struct {
	OrgID      int64             `json:"org_id"`
	Type       string            `json:"type" binding:"required"`
	Name       string            `json:"name"`
	Address    string            `json:"address"`
	Schemes    []string          `json:"schemes"`
	TPS        int               `json:"tps"`
	Config     map[string]string `json:"config"`
	AlertEmail string            `json:"alert_email"`
	CreatedBy  int64             `json:"created_by"`
}

type ChannelVO struct {
	ID        int64    `json:"id"`
	UUID      string   `json:"uuid"`
	OrgID     int64    `json:"org_id"`
	Type      string   `json:"type"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Schemes   []string `json:"schemes"`
	TPS       int      `json:"tps"`
	ClaimCode string   `json:"claim_code,omitempty"`
	IsActive  bool     `json:"is_active"`
}

func (h *Handler) Create(ctx *gin.Context) {
	var req CreateReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, Result[any]{Code: http.StatusBadRequest, Msg: err.Error()})
		return
	}

	created, err := h.svc.Create(ctx.Request.Context(), domain.Channel{
		OrgID:      req.OrgID,
		Type:       req.Type,
		Name:       req.Name,
		Address:    req.Address,
		Schemes:    req.Schemes,
		TPS:        req.TPS,
		Config:     req.Config,
		AlertEmail: req.AlertEmail,
		CreatedBy:  req.CreatedBy,
	})
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, Result[ChannelVO]{Data: toVO(created)})
}

type ClaimReq struct {
	ClaimCode string `json:"claim_code" binding:"required"`
	OrgID     int64  `json:"org_id" binding:"required"`
}

func (h *Handler) Claim(ctx *gin.Context) {
	var req ClaimReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, Result[any]{Code: http.StatusBadRequest, Msg: err.Error()})
		return
	}
	claimed, err := h.svc.Claim(ctx.Request.Context(), req.ClaimCode, req.OrgID)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, Result[ChannelVO]{Data: toVO(claimed)})
}

type ReleaseReq struct {
	ID int64 `uri:"id" binding:"required"`
}

func (h *Handler) Release(ctx *gin.Context) {
	var req ReleaseReq
	if err := ctx.ShouldBindUri(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, Result[any]{Code: http.StatusBadRequest, Msg: err.Error()})
		return
	}
	if err := h.svc.Release(ctx.Request.Context(), req.ID); err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, Result[any]{})
}

func (h *Handler) Get(ctx *gin.Context) {
	channel, err := h.svc.GetByUUID(ctx.Request.Context(), ctx.Param("uuid"))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, Result[ChannelVO]{Data: toVO(channel)})
}

func (h *Handler) writeError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrChannelNotFound):
		ctx.JSON(http.StatusNotFound, Result[any]{Code: http.StatusNotFound, Msg: err.Error()})
	case errors.Is(err, errs.ErrInvalidParameter),
		errors.Is(err, errs.ErrUnsupportedScheme),
		errors.Is(err, errs.ErrUnknownChannelType),
		errors.Is(err, errs.ErrChannelHasDependents):
		// 释放校验错误是给人看的，带上阻塞的流程名
		ctx.JSON(http.StatusBadRequest, Result[any]{Code: http.StatusBadRequest, Msg: err.Error()})
	default:
		h.logger.Error("渠道操作失败", elog.FieldErr(err))
		ctx.JSON(http.StatusInternalServerError, Result[any]{Code: http.StatusInternalServerError, Msg: "系统错误"})
	}
}

func toVO(c domain.Channel) ChannelVO {
	return ChannelVO{
		ID:        c.ID,
		UUID:      c.UUID,
		OrgID:     c.OrgID,
		Type:      c.Type,
		Name:      c.Name,
		Address:   c.Address,
		Schemes:   c.Schemes,
		TPS:       c.TPS,
		ClaimCode: c.ClaimCode,
		IsActive:  c.IsActive,
	}
}
