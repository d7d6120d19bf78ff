package api

import (
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profiledir/internal/backends/mem"
	"profiledir/internal/directory"
	"profiledir/internal/search"
	"profiledir/internal/teams"
	"profiledir/internal/templates"
	"profiledir/internal/throttle"
	"profiledir/internal/types"
)

func newTestHandler() *Handler {
	store := mem.NewStore()
	daily := throttle.NewDaily(0)
	endpoints := teams.NewEndpointStore(store)
	reg := teams.NewRegistry(store, daily, noopNotifier{}, endpoints, types.Settings{})
	reg.SetSettleDelay(0)
	return NewHandler(
		directory.New(store, daily, 0),
		reg,
		endpoints,
		templates.NewStore(store, search.NewFuzzy()),
	)
}

func TestRunServerInterruptible(t *testing.T) {
	addr, stop, done := RunServerInterruptible(0, newTestHandler())
	require.NotEmpty(t, addr)

	_, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%s/health", port))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	close(stop)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	// the port is released after shutdown
	_, err = http.Get(fmt.Sprintf("http://127.0.0.1:%s/health", port))
	assert.Error(t, err)
}
