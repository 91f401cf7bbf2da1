package registry

import (
	"context"
	"testing"

	"gitee.com/flycash/courier-platform/internal/domain"
	"gitee.com/flycash/courier-platform/internal/errs"
	"gitee.com/flycash/courier-platform/internal/pkg/courier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	t.Parallel()

	t.Run("内置类型", func(t *testing.T) {
		t.Parallel()
		d, err := Get(domain.ChannelTypeAndroid)
		require.NoError(t, err)
		assert.Equal(t, "Android", d.Name)
		assert.Equal(t, ClaimModeRelayer, d.ClaimMode)
		assert.Equal(t, []string{domain.SchemeTel}, d.Schemes)
		assert.True(t, d.Roles.Has(domain.RoleSend))
		assert.True(t, d.Roles.Has(domain.RoleReceive))
	})

	t.Run("未知类型", func(t *testing.T) {
		t.Parallel()
		_, err := Get("XX")
		assert.ErrorIs(t, err, errs.ErrUnknownChannelType)
	})
}

func TestGetHandler(t *testing.T) {
	t.Parallel()

	h, err := GetHandler(domain.ChannelTypeAndroid)
	require.NoError(t, err)
	// 中继渠道不经供应商 API，激活与投递都是空操作
	assert.NoError(t, h.Activate(context.Background(), domain.Channel{}))
	assert.NoError(t, h.Send(context.Background(), domain.Channel{}, courier.Task{}))

	_, err = GetHandler("XX")
	assert.ErrorIs(t, err, errs.ErrUnknownChannelType)
}

func TestRegisterDuplicate(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		Register(Descriptor{Code: domain.ChannelTypeAndroid}, relayerHandler{})
	})
}

func TestAll(t *testing.T) {
	t.Parallel()

	all := All()
	assert.GreaterOrEqual(t, len(all), 6)
	codes := make(map[string]struct{}, len(all))
	for _, d := range all {
		codes[d.Code] = struct{}{}
	}
	assert.Contains(t, codes, domain.ChannelTypeAndroid)
	assert.Contains(t, codes, domain.ChannelTypeTwilio)
}
