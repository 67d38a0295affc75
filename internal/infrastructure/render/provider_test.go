package render_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molscope/molscope/internal/infrastructure/render"
	"github.com/molscope/molscope/internal/infrastructure/render/rendertest"
	"github.com/molscope/molscope/pkg/errors"
)

func TestProvider_UnknownEngine(t *testing.T) {
	p := render.NewProvider()

	_, err := p.Acquire(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, errors.CodeEngineNotRegistered, errors.GetCode(err))
}

func TestProvider_ResolvesOnceAndCaches(t *testing.T) {
	eng := rendertest.NewEngine("fake")
	calls := 0

	p := render.NewProvider()
	p.Register("fake", func(ctx context.Context) (render.Engine, error) {
		calls++
		return eng, nil
	})

	first, err := p.Acquire(context.Background(), "fake")
	require.NoError(t, err)
	second, err := p.Acquire(context.Background(), "fake")
	require.NoError(t, err)

	assert.Same(t, eng, first.(*rendertest.Engine))
	assert.Same(t, eng, second.(*rendertest.Engine))
	assert.Equal(t, 1, calls)
	assert.True(t, p.Resolved("fake"))
}

func TestProvider_ConcurrentAcquiresShareOneLoad(t *testing.T) {
	eng := rendertest.NewEngine("fake")
	gate := rendertest.NewGate(eng)

	p := render.NewProvider()
	p.Register("fake", gate.Factory())

	const waiters = 4
	var wg sync.WaitGroup
	engines := make([]render.Engine, waiters)
	errs := make([]error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			engines[i], errs[i] = p.Acquire(context.Background(), "fake")
		}(i)
	}

	<-gate.Started()
	gate.Release()
	wg.Wait()

	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, eng, engines[i].(*rendertest.Engine))
	}
	assert.Equal(t, 1, gate.Calls())
}

func TestProvider_AbandonedWaiterDoesNotAbortLoad(t *testing.T) {
	eng := rendertest.NewEngine("fake")
	gate := rendertest.NewGate(eng)

	p := render.NewProvider()
	p.Register("fake", gate.Factory())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := p.Acquire(ctx, "fake")
		errCh <- err
	}()

	<-gate.Started()
	cancel()

	err := <-errCh
	require.Error(t, err)
	assert.Equal(t, errors.CodeEngineUnavailable, errors.GetCode(err))
	assert.False(t, p.Resolved("fake"))

	// The load keeps running and its result is cached for the next mount.
	gate.Release()
	require.Eventually(t, func() bool { return p.Resolved("fake") },
		time.Second, 5*time.Millisecond)

	got, err := p.Acquire(context.Background(), "fake")
	require.NoError(t, err)
	assert.Same(t, eng, got.(*rendertest.Engine))
	assert.Equal(t, 1, gate.Calls())
}

func TestProvider_FailureIsNotCached(t *testing.T) {
	eng := rendertest.NewEngine("fake")
	attempts := 0

	p := render.NewProvider()
	p.Register("flaky", func(ctx context.Context) (render.Engine, error) {
		attempts++
		if attempts == 1 {
			return nil, fmt.Errorf("engine script failed to load")
		}
		return eng, nil
	})

	_, err := p.Acquire(context.Background(), "flaky")
	require.Error(t, err)
	assert.Equal(t, errors.CodeEngineUnavailable, errors.GetCode(err))
	assert.False(t, p.Resolved("flaky"))

	got, err := p.Acquire(context.Background(), "flaky")
	require.NoError(t, err)
	assert.Same(t, eng, got.(*rendertest.Engine))
	assert.Equal(t, 2, attempts)
}

func TestProvider_EnginesSorted(t *testing.T) {
	p := render.NewProvider()
	p.Register("zdepth", rendertest.Factory(rendertest.NewEngine("zdepth")))
	p.Register("raster", rendertest.Factory(rendertest.NewEngine("raster")))

	assert.Equal(t, []string{"raster", "zdepth"}, p.Engines())
}

func TestProvider_RegisterReplacesResolvedHandle(t *testing.T) {
	p := render.NewProvider()
	p.Register("fake", rendertest.Factory(rendertest.NewEngine("fake")))

	_, err := p.Acquire(context.Background(), "fake")
	require.NoError(t, err)
	require.True(t, p.Resolved("fake"))

	replacement := rendertest.NewEngine("fake")
	p.Register("fake", rendertest.Factory(replacement))
	assert.False(t, p.Resolved("fake"))

	got, err := p.Acquire(context.Background(), "fake")
	require.NoError(t, err)
	assert.Same(t, replacement, got.(*rendertest.Engine))
}
