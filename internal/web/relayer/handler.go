package relayer

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"gitee.com/flycash/courier-platform/internal/errs"
	syncsvc "gitee.com/flycash/courier-platform/internal/service/sync"
	"github.com/gin-gonic/gin"
	"github.com/gotomicro/ego/core/elog"
)

// 认证失败的稳定错误码，设备固件据此区分"重新同步凭证"和"放弃注册"
const (
	errIDInvalidSignature = 1
	errIDChannelNotUsable = 2
	errIDRequestExpired   = 3
	errIDMissingDeviceCmd = 4
)

// errorBody 设备侧的结构化错误，读它的是固件不是人
type errorBody struct {
	Error   string            `json:"error"`
	ErrorID int               `json:"error_id"`
	Cmds    []syncsvc.RespCmd `json:"cmds"`
}

// Handler 设备同步握手的接入层
type Handler struct {
	svc    syncsvc.Service
	logger *elog.Component
}

func NewHandler(svc syncsvc.Service) *Handler {
	return &Handler{
		svc:    svc,
		logger: elog.DefaultLogger,
	}
}

func (h *Handler) PublicRoutes(engine *gin.Engine) {
	// 设备固件对非 POST 的历史行为是 500，不能改成 405
	engine.Any("/relayer/sync/:uuid", h.Sync)
}

func (h *Handler) Sync(ctx *gin.Context) {
	if ctx.Request.Method != http.MethodPost {
		ctx.JSON(http.StatusInternalServerError, errorBody{
			Error: "POST Required",
			Cmds:  []syncsvc.RespCmd{},
		})
		return
	}

	// 签名覆盖原始请求体，必须在反序列化之前完整读出
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorBody{
			Error: "Read Error",
			Cmds:  []syncsvc.RespCmd{},
		})
		return
	}

	var req syncsvc.Request
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			ctx.JSON(http.StatusBadRequest, errorBody{
				Error: "Invalid JSON",
				Cmds:  []syncsvc.RespCmd{},
			})
			return
		}
	}

	ts, _ := strconv.ParseInt(ctx.Query("ts"), 10, 64)
	sig := ctx.Query("signature")

	resp, err := h.svc.Process(ctx.Request.Context(), ctx.Param("uuid"), sig, ts, body, req)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	if resp.Cmds == nil {
		resp.Cmds = []syncsvc.RespCmd{}
	}
	ctx.JSON(http.StatusOK, resp)
}

func (h *Handler) writeError(ctx *gin.Context, err error) {
	var errID int
	switch {
	case errors.Is(err, errs.ErrInvalidSignature):
		errID = errIDInvalidSignature
	case errors.Is(err, errs.ErrChannelNotUsable):
		errID = errIDChannelNotUsable
	case errors.Is(err, errs.ErrRequestExpired):
		errID = errIDRequestExpired
	case errors.Is(err, errs.ErrMissingDeviceCmd):
		errID = errIDMissingDeviceCmd
	default:
		h.logger.Error("同步握手处理失败", elog.FieldErr(err))
		ctx.JSON(http.StatusInternalServerError, errorBody{
			Error: "Server Error",
			Cmds:  []syncsvc.RespCmd{},
		})
		return
	}
	ctx.JSON(http.StatusUnauthorized, errorBody{
		Error:   err.Error(),
		ErrorID: errID,
		Cmds:    []syncsvc.RespCmd{},
	})
}
