package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/doeshing/gadget-go/internal/domain"
)

func settingsFor(endpoint string) domain.RemoteSettings {
	return domain.RemoteSettings{
		Endpoint:       endpoint,
		ConnectTimeout: time.Second,
		ReadTimeout:    time.Second,
		WriteTimeout:   time.Second,
	}
}

func TestSendPostsFormEncodedCommand(t *testing.T) {
	var gotMethod, gotCommand, gotContentType, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		_ = r.ParseForm()
		gotCommand = r.PostForm.Get("command")
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	t.Setenv("GADGET_TEST_TOKEN", "secret")
	settings := settingsFor(srv.URL)
	settings.TokenEnv = "GADGET_TEST_TOKEN"

	resp, err := NewHTTPTransport(settings).Send(context.Background(), "lights on")
	require.NoError(t, err)
	require.Equal(t, "OK", resp)
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "lights on", gotCommand)
	require.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	require.Equal(t, "Bearer secret", gotAuth)
}

func TestSendAcceptsAny2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("queued"))
	}))
	defer srv.Close()

	resp, err := NewHTTPTransport(settingsFor(srv.URL)).Send(context.Background(), "x")
	require.NoError(t, err)
	require.Equal(t, "queued", resp)
}

func TestSendMapsNon2xxToNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "relay down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPTransport(settingsFor(srv.URL)).Send(context.Background(), "x")
	require.ErrorIs(t, err, domain.ErrNetwork)

	var netErr *domain.NetworkError
	require.True(t, errors.As(err, &netErr))
	require.Equal(t, http.StatusBadGateway, netErr.StatusCode)
}

func TestSendReadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	settings := settingsFor(srv.URL)
	settings.ReadTimeout = 50 * time.Millisecond

	start := time.Now()
	_, err := NewHTTPTransport(settings).Send(context.Background(), "x")
	require.ErrorIs(t, err, domain.ErrNetwork)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestSendConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPTransport(settingsFor(url)).Send(context.Background(), "x")
	require.ErrorIs(t, err, domain.ErrNetwork)
}

func TestSendWithoutEndpoint(t *testing.T) {
	_, err := NewHTTPTransport(domain.RemoteSettings{}).Send(context.Background(), "x")
	require.ErrorIs(t, err, domain.ErrNetwork)
}

func TestIdleConnectionsRetireBeforeReadDeadline(t *testing.T) {
	settings := settingsFor("http://relay.invalid")
	settings.ReadTimeout = 200 * time.Millisecond
	rt := newRoundTripper(settings)
	require.Positive(t, rt.IdleConnTimeout)
	require.Less(t, rt.IdleConnTimeout, settings.ReadTimeout)
}

func TestSendAfterIdleGapReusesTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	settings := settingsFor(srv.URL)
	settings.ReadTimeout = 100 * time.Millisecond
	tr := NewHTTPTransport(settings)

	for i := 0; i < 3; i++ {
		reply, err := tr.Send(context.Background(), "lights on")
		require.NoError(t, err)
		require.Equal(t, "OK", reply)
		time.Sleep(150 * time.Millisecond)
	}
}
