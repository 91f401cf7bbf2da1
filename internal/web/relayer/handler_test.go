package relayer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gitee.com/flycash/courier-platform/internal/errs"
	syncsvc "gitee.com/flycash/courier-platform/internal/service/sync"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSyncService 按渠道UUID返回预设的结果
type fakeSyncService struct {
	resp syncsvc.Response
	err  error

	gotUUID string
	gotSig  string
	gotTS   int64
	gotBody []byte
}

func (f *fakeSyncService) Process(_ context.Context, channelUUID, sig string, ts int64,
	body []byte, _ syncsvc.Request,
) (syncsvc.Response, error) {
	f.gotUUID = channelUUID
	f.gotSig = sig
	f.gotTS = ts
	f.gotBody = body
	return f.resp, f.err
}

func newEngine(svc syncsvc.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewHandler(svc).PublicRoutes(engine)
	return engine
}

func TestSync(t *testing.T) {
	t.Parallel()

	t.Run("非POST请求按固件历史行为回500", func(t *testing.T) {
		t.Parallel()
		engine := newEngine(&fakeSyncService{})
		req := httptest.NewRequest(http.MethodGet, "/relayer/sync/abc", nil)
		recorder := httptest.NewRecorder()
		engine.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
		var body errorBody
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
		assert.Equal(t, "POST Required", body.Error)
		assert.NotNil(t, body.Cmds)
	})

	t.Run("透传路径参数与查询参数和原始请求体", func(t *testing.T) {
		t.Parallel()
		svc := &fakeSyncService{resp: syncsvc.Response{}}
		engine := newEngine(svc)
		payload := []byte(`{"cmds":[{"cmd":"fcm","fcm_id":"f","uuid":"d"}]}`)
		req := httptest.NewRequest(http.MethodPost,
			"/relayer/sync/chan-uuid?signature=sig-value&ts=1709294400", bytes.NewReader(payload))
		recorder := httptest.NewRecorder()
		engine.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "chan-uuid", svc.gotUUID)
		assert.Equal(t, "sig-value", svc.gotSig)
		assert.Equal(t, int64(1709294400), svc.gotTS)
		// 签名校验用的是原始请求体
		assert.Equal(t, payload, svc.gotBody)
	})

	t.Run("空响应序列化为空命令数组而非null", func(t *testing.T) {
		t.Parallel()
		engine := newEngine(&fakeSyncService{resp: syncsvc.Response{}})
		req := httptest.NewRequest(http.MethodPost, "/relayer/sync/abc", bytes.NewReader([]byte("{}")))
		recorder := httptest.NewRecorder()
		engine.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), `"cmds":[]`)
	})

	t.Run("非法JSON回400", func(t *testing.T) {
		t.Parallel()
		engine := newEngine(&fakeSyncService{})
		req := httptest.NewRequest(http.MethodPost, "/relayer/sync/abc", bytes.NewReader([]byte("{not-json")))
		recorder := httptest.NewRecorder()
		engine.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("认证失败翻译成固定错误码", func(t *testing.T) {
		t.Parallel()
		testCases := []struct {
			name      string
			err       error
			wantErrID int
		}{
			{name: "签名错误", err: errs.ErrInvalidSignature, wantErrID: 1},
			{name: "渠道不可用", err: errs.ErrChannelNotUsable, wantErrID: 2},
			{name: "请求过期", err: errs.ErrRequestExpired, wantErrID: 3},
			{name: "缺身份命令", err: errs.ErrMissingDeviceCmd, wantErrID: 4},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()
				engine := newEngine(&fakeSyncService{err: tc.err})
				req := httptest.NewRequest(http.MethodPost, "/relayer/sync/abc", bytes.NewReader([]byte("{}")))
				recorder := httptest.NewRecorder()
				engine.ServeHTTP(recorder, req)

				assert.Equal(t, http.StatusUnauthorized, recorder.Code)
				var body errorBody
				require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
				assert.Equal(t, tc.wantErrID, body.ErrorID)
				assert.NotNil(t, body.Cmds)
			})
		}
	})

	t.Run("其他错误回500且不带错误码", func(t *testing.T) {
		t.Parallel()
		engine := newEngine(&fakeSyncService{err: errs.ErrChannelNotFound})
		req := httptest.NewRequest(http.MethodPost, "/relayer/sync/abc", bytes.NewReader([]byte("{}")))
		recorder := httptest.NewRecorder()
		engine.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	})
}
