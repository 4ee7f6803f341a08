package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_NilIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveLLMCall("ollama", "gemma3", time.Second, 10, 20, nil)
	r.ObserveAgent("grammar_style", nil)
	r.ObserveAnalysis(2, 80, 90, nil)
	r.ObserveOCR("vision", time.Second, nil)
	r.ObserveTranslation("es-en", nil)
	r.ObserveMemoryLookup(true)
	assert.Nil(t, r.Registry())
	assert.NotNil(t, r.Handler())
}

func TestRecorder_Counts(t *testing.T) {
	r := New(DefaultConfig())

	r.ObserveLLMCall("ollama", "gemma3", 2*time.Second, 100, 50, nil)
	r.ObserveLLMCall("ollama", "gemma3", time.Second, 0, 0, errors.New("boom"))
	r.ObserveAgent("voice", nil)
	r.ObserveAnalysis(3, 85.5, 92, nil)
	r.ObserveAnalysis(0, 0, 0, errors.New("failed"))
	r.ObserveMemoryLookup(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.llmRequests.WithLabelValues("ollama", "gemma3", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.llmRequests.WithLabelValues("ollama", "gemma3", "error")))
	assert.Equal(t, 100.0, testutil.ToFloat64(r.llmTokens.WithLabelValues("ollama", "prompt")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.agentCalls.WithLabelValues("voice", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.analyses.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.analyses.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("miss")))
}

func TestRecorder_Handler(t *testing.T) {
	r := New(Config{})
	r.ObserveOCR("vision", 500*time.Millisecond, nil)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "wordweaver_ocr_runs_total"))
}
