package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPushDisabled(t *testing.T) {
	assert.NoError(t, Push(context.Background(), "", "job", "run", zap.NewNop()))
}

func TestPush(t *testing.T) {
	var path, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, method = r.URL.Path, r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	FramesExportedTotal.Add(1)
	require.NoError(t, Push(context.Background(), srv.URL, "automan_archiver", "run-1", zap.NewNop()))
	assert.Equal(t, http.MethodPut, method)
	assert.True(t, strings.HasPrefix(path, "/metrics/job/automan_archiver/run_id/run-1"), path)
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.Error(t, Push(context.Background(), srv.URL, "job", "run", zap.NewNop()))
}
