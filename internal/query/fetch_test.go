package query

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/packtrack/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchServesFreshValuesFromCache(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now), WithDefaultPolicy(DefaultPolicy(time.Minute, time.Hour)))
	key := Keys("package").List()

	var calls atomic.Int32
	load := func(context.Context) ([]string, error) {
		calls.Add(1)
		return []string{"p-1"}, nil
	}

	for i := 0; i < 3; i++ {
		value, err := Fetch(context.Background(), s, key, FetchOptions{}, load)
		require.NoError(t, err)
		assert.Equal(t, []string{"p-1"}, value)
	}
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(time.Minute)
	_, err := Fetch(context.Background(), s, key, FetchOptions{}, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	s.Invalidate(key)
	_, err = Fetch(context.Background(), s, key, FetchOptions{}, load)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchNoCachePolicyAlwaysRefetches(t *testing.T) {
	s := NewStore()
	key := Keys("package").History("1")
	policy := NoCachePolicy

	var calls atomic.Int32
	for i := 0; i < 2; i++ {
		_, err := Fetch(context.Background(), s, key, FetchOptions{Policy: &policy}, func(context.Context) (int, error) {
			return int(calls.Add(1)), nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 1, s.Collect(time.Now()), "zero gc time drops the entry at the next sweep")
}

func TestFetchSingleFlight(t *testing.T) {
	s := NewStore(WithDefaultPolicy(NoCachePolicy))
	key := Keys("package").Detail("1")

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "p-1", nil
	}

	const callers = 5
	var started, done sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			results[i], errs[i] = Fetch(context.Background(), s, key, FetchOptions{}, load)
		}(i)
	}
	started.Wait()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	done.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "p-1", results[i])
	}
}

func TestFetchLatestIssueWins(t *testing.T) {
	s := NewStore()
	key := Keys("package").Search("TRK")

	slowStarted := make(chan struct{})
	releaseSlow := make(chan struct{})
	slowDone := make(chan string, 1)
	go func() {
		value, err := Fetch(context.Background(), s, key, FetchOptions{}, func(context.Context) (string, error) {
			close(slowStarted)
			<-releaseSlow
			return "old", nil
		})
		assert.NoError(t, err)
		slowDone <- value
	}()
	<-slowStarted

	value, err := Refetch(context.Background(), s, key, FetchOptions{}, func(context.Context) (string, error) {
		return "new", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "new", value)

	close(releaseSlow)
	assert.Equal(t, "new", <-slowDone, "superseded callers see the newer value")

	cached, _ := Lookup[string](s, key)
	assert.Equal(t, "new", cached)
}

func TestFetchDiscardsResponseOlderThanWrite(t *testing.T) {
	s := NewStore()
	key := Keys("package").Detail("1")

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Fetch(context.Background(), s, key, FetchOptions{}, func(context.Context) (string, error) {
			close(started)
			<-release
			return "stale read", nil
		})
	}()
	<-started
	s.Set(key, "mutation result")
	close(release)
	<-done

	cached, _ := Lookup[string](s, key)
	assert.Equal(t, "mutation result", cached)
}

func TestFetchRetriesRetryableFailures(t *testing.T) {
	s := NewStore(WithRetry(3, time.Millisecond))
	key := Keys("package").List()

	var calls atomic.Int32
	value, err := Fetch(context.Background(), s, key, FetchOptions{Operation: "getPackages"}, func(context.Context) (string, error) {
		if calls.Add(1) < 3 {
			return "", statusError{code: 503}
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	s := NewStore(WithRetry(3, time.Millisecond))
	key := Keys("package").Detail("missing")

	var calls atomic.Int32
	_, err := Fetch(context.Background(), s, key, FetchOptions{Operation: "getPackage(missing)"}, func(context.Context) (string, error) {
		calls.Add(1)
		return "", statusError{code: 404}
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	classified := pkgerrors.AsResponse(err)
	require.NotNil(t, classified)
	assert.Equal(t, pkgerrors.CodeNotFound, classified.Code)
	assert.Equal(t, "getPackage(missing)", classified.Context)
	assert.Equal(t, 404, classified.HTTPStatusCode())

	state := StateOf[string](s, key)
	assert.False(t, state.HasData)
	require.NotNil(t, state.Error)
	assert.Equal(t, pkgerrors.CodeNotFound, state.Error.Code)
}

func TestFetchExhaustedRetriesReturnClassifiedError(t *testing.T) {
	s := NewStore(WithRetry(2, time.Millisecond))
	var calls atomic.Int32
	_, err := Fetch(context.Background(), s, Keys("package").List(), FetchOptions{Operation: "getPackages"}, func(context.Context) (string, error) {
		calls.Add(1)
		return "", statusError{code: 500}
	})
	assert.Equal(t, int32(3), calls.Load())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeServer))
}

func TestFetchCallerCancellationLeavesFlightRunning(t *testing.T) {
	s := NewStore()
	key := Keys("package").Detail("1")

	release := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		_, err := Fetch(ctx, s, key, FetchOptions{Operation: "getPackage(1)"}, func(context.Context) (string, error) {
			close(started)
			<-release
			return "p-1", nil
		})
		errCh <- err
	}()
	<-started
	cancel()

	err := <-errCh
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNetwork))

	close(release)
	require.Eventually(t, func() bool {
		value, ok := Lookup[string](s, key)
		return ok && value == "p-1"
	}, time.Second, time.Millisecond)
}

func TestStateOfReportsLoading(t *testing.T) {
	s := NewStore()
	key := Keys("package").List()

	assert.True(t, StateOf[string](s, key).IsStale)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Fetch(context.Background(), s, key, FetchOptions{}, func(context.Context) (string, error) {
			close(started)
			<-release
			return "list", nil
		})
	}()
	<-started
	assert.True(t, StateOf[string](s, key).IsLoading)
	close(release)
	<-done

	state := StateOf[string](s, key)
	assert.False(t, state.IsLoading)
	assert.True(t, state.HasData)
	assert.Equal(t, "list", state.Data)
	assert.Nil(t, state.Error)
}
