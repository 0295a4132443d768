package home

import (
	"context"
	"testing"

	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetPresenceVisiblePersists(t *testing.T) {
	en := setup(t)
	old := sys.DB
	sys.DB = en.lib.DB()
	t.Cleanup(func() { sys.DB = old })
	ctx := context.Background()

	assert.Equal(t, sys.MsgSessionStatusOff, setPresenceVisible(ctx, false))
	v, err := sys.GetBotConfig(ctx, proc.ConfigKeyPresenceVisible)
	require.NoError(t, err)
	assert.Equal(t, "false", v)

	assert.Equal(t, sys.MsgSessionStatusOn, setPresenceVisible(ctx, true))
	v, err = sys.GetBotConfig(ctx, proc.ConfigKeyPresenceVisible)
	require.NoError(t, err)
	assert.Equal(t, "true", v)
}
