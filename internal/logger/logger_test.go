package logger

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iurnickita/affiliatemart/internal/logger/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewZapLog(t *testing.T) {
	zaplog, err := NewZapLog(config.Config{LogLevel: "debug"})
	require.NoError(t, err)
	require.NotNil(t, zaplog)

	_, err = NewZapLog(config.Config{LogLevel: "loud"})
	require.Error(t, err)
}

func TestRequestLogMdlw(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	zaplog := zap.New(core)

	h := RequestLogMdlw(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusTeapot)
		w.Write(body)
	}, zaplog)

	r := httptest.NewRequest(http.MethodPost, "/affiliate", strings.NewReader(`{"ref":"anna"}`))
	w := httptest.NewRecorder()
	h(w, r)

	// тело запроса доступно обработчику после логирования
	require.Equal(t, http.StatusTeapot, w.Code)
	require.Equal(t, `{"ref":"anna"}`, w.Body.String())
	require.NotEmpty(t, w.Header().Get(HeaderRequestID))

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "/affiliate", entries[0].ContextMap()["path"])
	require.EqualValues(t, http.StatusTeapot, entries[1].ContextMap()["code"])
}
