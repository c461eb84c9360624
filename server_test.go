package pipehttp_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/advdv/pipehttp"
	"github.com/stretchr/testify/require"
)

// installMW builds a server-install middleware that appends name to log
// (guarded by mu) both before and after calling next, and optionally
// triggers srv.Shutdown concurrently from inside its pre-next step — the
// harness for §8 scenario 5.
func installMW(mu *sync.Mutex, log *[]int, name int, triggerClose func()) pipehttp.Middleware {
	return pipehttp.Middleware{
		ProcessServer: func(ctx context.Context, next pipehttp.ServerNext) error {
			mu.Lock()
			*log = append(*log, name)
			mu.Unlock()

			if triggerClose != nil {
				go triggerClose()
			}

			err := next(ctx)

			mu.Lock()
			*log = append(*log, name)
			mu.Unlock()

			return err
		},
	}
}

// TestServerInstallTeardownLIFOEvenOnConcurrentClose is §8 scenario 5:
// install order 1,2,3 with a close triggered during mw-2's pre-next still
// observes [1,2,3,3,2,1] — install runs to completion before any teardown.
func TestServerInstallTeardownLIFOEvenOnConcurrentClose(t *testing.T) {
	var mu sync.Mutex
	var log []int

	var srv *pipehttp.Server
	triggerDuring2 := func() {
		// give mw-2's pre-next a moment to have logged before Shutdown races
		// ahead of mw-3's pre-next — the scenario's "close during mw-2" setup.
		time.Sleep(5 * time.Millisecond)
		srv.Shutdown(context.Background()) //nolint:errcheck
	}

	mws := []pipehttp.Middleware{
		installMW(&mu, &log, 1, nil),
		installMW(&mu, &log, 2, triggerDuring2),
		installMW(&mu, &log, 3, nil),
	}

	srv = newServer(t, routerFunc(func(r *http.Request) (*pipehttp.Route, bool) { return nil, false }), mws)
	srv.NotifyListening()

	select {
	case <-srv.Closed():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not close in time")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{1, 2, 3, 3, 2, 1}, log)
}

func TestServerListeningResolvesAfterNotifyListening(t *testing.T) {
	srv := newServer(t, routerFunc(func(r *http.Request) (*pipehttp.Route, bool) { return nil, false }), nil)

	select {
	case <-srv.Listening():
		t.Fatal("should not be listening before NotifyListening")
	default:
	}

	srv.NotifyListening()

	select {
	case <-srv.Listening():
	case <-time.After(time.Second):
		t.Fatal("did not become listening")
	}

	require.NoError(t, srv.Shutdown(context.Background()))
	select {
	case <-srv.Closed():
	default:
		t.Fatal("should be closed immediately once Shutdown returns")
	}
}

func TestServerShutdownIsIdempotent(t *testing.T) {
	srv := newServer(t, routerFunc(func(r *http.Request) (*pipehttp.Route, bool) { return nil, false }), nil)
	srv.NotifyListening()

	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, srv.Shutdown(context.Background()))
}
