package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/teamsync/internal/apperror"
)

func newTestCallbackServer(timeout time.Duration) *CallbackServer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCallbackServer("127.0.0.1:0", timeout, logger)
}

func TestAwait_CodeFlow(t *testing.T) {
	s := newTestCallbackServer(5 * time.Second)

	var got CallbackParams
	status := make(chan int, 1)

	err := s.Await(context.Background(), "st-1",
		func(baseURL string) error {
			go func() {
				resp, err := http.Get(baseURL + "/callback?code=abc&state=st-1")
				if err != nil {
					status <- 0
					return
				}
				resp.Body.Close()
				status <- resp.StatusCode
			}()
			return nil
		},
		func(ctx context.Context, p CallbackParams) error {
			got = p
			return nil
		},
	)

	require.NoError(t, err)
	assert.Equal(t, "abc", got.Code)
	assert.Empty(t, got.AccessToken)
	assert.Equal(t, http.StatusOK, <-status)
}

func TestAwait_TokenFlow(t *testing.T) {
	s := newTestCallbackServer(5 * time.Second)

	var got CallbackParams
	err := s.Await(context.Background(), "st-2",
		func(baseURL string) error {
			go func() {
				// The fragment page is served first; the browser then posts the token.
				if resp, err := http.Get(baseURL + "/callback"); err == nil {
					body, _ := io.ReadAll(resp.Body)
					resp.Body.Close()
					if !strings.Contains(string(body), "/callback/token") {
						return
					}
				}
				resp, err := http.PostForm(baseURL+"/callback/token", url.Values{
					"access_token": {"gho_x"},
					"state":        {"st-2"},
				})
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		},
		func(ctx context.Context, p CallbackParams) error {
			got = p
			return nil
		},
	)

	require.NoError(t, err)
	assert.Equal(t, "gho_x", got.AccessToken)
}

func TestAwait_StateMismatchIsIgnored(t *testing.T) {
	s := newTestCallbackServer(300 * time.Millisecond)

	called := false
	status := make(chan int, 1)
	err := s.Await(context.Background(), "expected",
		func(baseURL string) error {
			go func() {
				resp, err := http.Get(baseURL + "/callback?code=abc&state=forged")
				if err != nil {
					status <- 0
					return
				}
				resp.Body.Close()
				status <- resp.StatusCode
			}()
			return nil
		},
		func(ctx context.Context, p CallbackParams) error {
			called = true
			return nil
		},
	)

	assert.True(t, errors.Is(err, apperror.ErrTimeout), "got %v", err)
	assert.False(t, called, "a forged state must not complete sign-in")
	assert.Equal(t, http.StatusBadRequest, <-status)
}

func TestAwait_CompleteErrorIsReturned(t *testing.T) {
	s := newTestCallbackServer(5 * time.Second)
	boom := errors.New("exchange failed")

	err := s.Await(context.Background(), "st",
		func(baseURL string) error {
			go func() {
				if resp, err := http.Get(baseURL + "/callback?code=abc&state=st"); err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		},
		func(ctx context.Context, p CallbackParams) error { return boom },
	)

	assert.ErrorIs(t, err, boom)
}

func TestAwait_DeniedByUser(t *testing.T) {
	s := newTestCallbackServer(5 * time.Second)

	err := s.Await(context.Background(), "st",
		func(baseURL string) error {
			go func() {
				if resp, err := http.Get(baseURL + "/callback?error=access_denied&state=st"); err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		},
		func(ctx context.Context, p CallbackParams) error { return nil },
	)

	assert.True(t, errors.Is(err, apperror.ErrRemote), "got %v", err)
}

func TestAwait_ReadyErrorStopsListener(t *testing.T) {
	s := newTestCallbackServer(5 * time.Second)
	boom := errors.New("no browser")

	var base string
	err := s.Await(context.Background(), "st",
		func(baseURL string) error {
			base = baseURL
			return boom
		},
		func(ctx context.Context, p CallbackParams) error { return nil },
	)
	require.ErrorIs(t, err, boom)

	_, err = http.Get(base + "/callback")
	assert.Error(t, err, "listener should be closed after Await returns")
}

func TestAwait_ContextCancelled(t *testing.T) {
	s := newTestCallbackServer(5 * time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	err := s.Await(ctx, "st",
		func(baseURL string) error {
			cancel()
			return nil
		},
		func(ctx context.Context, p CallbackParams) error { return nil },
	)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestAwait_RepeatedCallbackRunsCompleteOnce(t *testing.T) {
	s := newTestCallbackServer(5 * time.Second)

	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	repeatStatus := make(chan int, 1)

	post := func(baseURL string) (int, error) {
		resp, err := http.PostForm(baseURL+"/callback/token", url.Values{
			"access_token": {"gho_x"},
			"state":        {"st-dup"},
		})
		if err != nil {
			return 0, err
		}
		resp.Body.Close()
		return resp.StatusCode, nil
	}

	err := s.Await(context.Background(), "st-dup",
		func(baseURL string) error {
			go func() { _, _ = post(baseURL) }()
			go func() {
				<-entered // the first post is inside complete
				code, err := post(baseURL)
				if err != nil {
					code = 0
				}
				repeatStatus <- code
				close(release)
			}()
			return nil
		},
		func(ctx context.Context, p CallbackParams) error {
			calls.Add(1)
			close(entered)
			<-release
			return nil
		},
	)

	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, http.StatusConflict, <-repeatStatus)
}
