package bus

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/genlink/pkg/env"
)

func TestParseReset(t *testing.T) {
	reset, err := parseReset(nil)
	require.NoError(t, err)
	require.False(t, reset)
	reset, err = parseReset([]string{"reset"})
	require.NoError(t, err)
	require.True(t, reset)
	_, err = parseReset([]string{"now"})
	require.Error(t, err)
}

func TestStatusAndUpload(t *testing.T) {
	m, err := env.NewConfig().NewMachine()
	require.NoError(t, err)
	ctx := context.Background()

	st, err := QueryStatus(ctx, m)
	require.NoError(t, err)
	require.False(t, st.Taken)
	require.False(t, st.DriverReady)
	require.False(t, st.Booted)

	require.NoError(t, m.Arbiter.RequestBus(ctx, false))
	st, err = QueryStatus(ctx, m)
	require.NoError(t, err)
	require.True(t, st.Taken)
	require.Equal(t, "bus=68k ready=false", st.String())
	m.Arbiter.ReleaseBus()
	require.NoError(t, m.Arbiter.WaitReleased(ctx))

	fn := filepath.Join(t.TempDir(), "drv.bin")
	require.NoError(t, ioutil.WriteFile(fn, []byte{0xc3, 0x00, 0x00}, 0644))
	require.NoError(t, Upload(ctx, m, fn, true))
	st, err = QueryStatus(ctx, m)
	require.NoError(t, err)
	require.True(t, st.DriverReady)
	require.True(t, st.Booted)
	require.Error(t, Upload(ctx, m, filepath.Join(t.TempDir(), "missing.bin"), true))
}
