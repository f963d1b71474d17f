package core

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSimulator() *InteractionSimulator {
	return NewInteractionSimulator(zap.NewNop(), "test-agent", 5*time.Second, 5)
}

// trackingServer records which paths were hit.
func trackingServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), paths...)
	}
}

func TestSimulateAllThreeSignals(t *testing.T) {
	srv, hits := trackingServer(t)
	html := fmt.Sprintf(`<html><body>
		<img src="%[1]s/track/open/42" width="1" height="1"/>
		<a href="%[1]s/landing">Read more</a>
		<a href="%[1]s/track/unsubscribe/42">Unsubscribe</a>
	</body></html>`, srv.URL)

	outcome, err := newSimulator().Simulate(context.Background(), &RetrievedMessage{HTMLBody: html})
	require.NoError(t, err)
	assert.Equal(t, 3, outcome.SuccessCount())
	assert.ElementsMatch(t, []string{"/track/open/42", "/landing", "/track/unsubscribe/42"}, hits())
}

func TestSimulateTwoOfThreeIsSuccess(t *testing.T) {
	srv, _ := trackingServer(t)
	// No unsubscribe link anywhere: that signal fails, 2 of 3 remain.
	html := fmt.Sprintf(`<html><body>
		<img src="%[1]s/track/open/7"/>
		<a href="%[1]s/products">Shop</a>
	</body></html>`, srv.URL)

	outcome, err := newSimulator().Simulate(context.Background(), &RetrievedMessage{HTMLBody: html})
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.SuccessCount())
	assert.False(t, outcome.Unsubscribe.Succeeded)
}

func TestSimulateOneOfThreeIsFailure(t *testing.T) {
	srv, _ := trackingServer(t)
	html := fmt.Sprintf(`<html><body><img src="%s/track/open/7"/></body></html>`, srv.URL)

	outcome, err := newSimulator().Simulate(context.Background(), &RetrievedMessage{HTMLBody: html})
	var failure *InteractionFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 1, outcome.SuccessCount())
	assert.Contains(t, err.Error(), "click")
	assert.Contains(t, err.Error(), "unsubscribe")
}

func TestSimulateNoLinksIsFailure(t *testing.T) {
	outcome, err := newSimulator().Simulate(context.Background(),
		&RetrievedMessage{HTMLBody: "<html><body><p>plain text only</p></body></html>"})
	var failure *InteractionFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 0, outcome.SuccessCount())
}

func TestSimulateNonSuccessStatusStillCounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	html := fmt.Sprintf(`<html><body>
		<img src="%[1]s/track/open/1"/>
		<a href="%[1]s/a">A</a>
		<a href="%[1]s/unsubscribe/1">bye</a>
	</body></html>`, srv.URL)

	outcome, err := newSimulator().Simulate(context.Background(), &RetrievedMessage{HTMLBody: html})
	require.NoError(t, err)
	assert.Equal(t, 3, outcome.SuccessCount())
}

func TestSimulateUnreachableHostFails(t *testing.T) {
	// Closed server: connection-level errors do fail the signal.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	html := fmt.Sprintf(`<html><body>
		<img src="%[1]s/track/open/1"/>
		<a href="%[1]s/a">A</a>
		<a href="%[1]s/unsubscribe/1">bye</a>
	</body></html>`, url)

	sim := NewInteractionSimulator(zap.NewNop(), "test-agent", time.Second, 5)
	outcome, err := sim.Simulate(context.Background(), &RetrievedMessage{HTMLBody: html})
	var failure *InteractionFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 0, outcome.SuccessCount())
	assert.Error(t, outcome.Open.Err)
}
