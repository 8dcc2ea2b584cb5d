package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"CourtSync/internal/config"
	"CourtSync/internal/model"

	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestFetcher_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(r.Header.Get("User-Agent") + "|" + r.Header.Get("X-Test")))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	f := NewFetcherWithClient(model.PlatformBetter, srv.Client(), "courtsync", quietLogger())
	header := http.Header{}
	header.Set("X-Test", "1")

	body, err := f.Get(context.Background(), srv.URL+"/ok", header)
	require.NoError(t, err)
	require.Equal(t, "courtsync|1", string(body))

	_, err = f.Get(context.Background(), srv.URL+"/missing", nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestFetcher_KeepsSendingWhileUpstreamUnhealthy(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 5 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewFetcherWithClient(model.PlatformLTA, srv.Client(), "", quietLogger())
	for i := 0; i < 5; i++ {
		_, err := f.Get(context.Background(), srv.URL, nil)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		require.Equal(t, http.StatusBadGateway, se.StatusCode)
	}
	require.Equal(t, gobreaker.StateOpen, f.State())

	for i := 0; i < 3; i++ {
		body, err := f.Get(context.Background(), srv.URL, nil)
		require.NoError(t, err)
		require.Equal(t, "ok", string(body))
	}
	require.Equal(t, int32(8), atomic.LoadInt32(&hits))
}

func TestFetcher_ClientErrorsDoNotMarkUnhealthy(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcherWithClient(model.PlatformTowerHamlets, srv.Client(), "", quietLogger())
	for i := 0; i < 8; i++ {
		_, err := f.Get(context.Background(), srv.URL, nil)
		require.Error(t, err)
	}
	require.Equal(t, int32(8), atomic.LoadInt32(&hits))
	require.Equal(t, gobreaker.StateClosed, f.State())
}

func TestFetcher_UpstreamHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("User-Agent") + "|" + r.Header.Get("Cache-Control") + "|" + r.Header.Get("Accept-Encoding")))
	}))
	defer srv.Close()

	f := NewFetcherWithClient(model.PlatformBetter, srv.Client(), "courtsync", quietLogger())
	body, err := f.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	require.Equal(t, "courtsync|no-cache|gzip", string(body))

	header := http.Header{}
	header.Set("User-Agent", "custom")
	body, err = f.Get(context.Background(), srv.URL, header)
	require.NoError(t, err)
	require.Equal(t, "custom|no-cache|gzip", string(body))
}

func TestNewHTTPClient_Gzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write([]byte(`{"data":[]}`))
		_ = zw.Close()
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	client := NewHTTPClient(&config.PlatformConfig{Timeout: 5}, quietLogger())
	f := NewFetcherWithClient(model.PlatformBetter, client, "", quietLogger())
	body, err := f.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	require.Equal(t, `{"data":[]}`, string(body))
}
