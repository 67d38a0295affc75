package viewer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molscope/molscope/internal/application/viewer"
	"github.com/molscope/molscope/internal/infrastructure/render"
	"github.com/molscope/molscope/internal/infrastructure/render/rendertest"
	"github.com/molscope/molscope/pkg/errors"
	vtypes "github.com/molscope/molscope/pkg/types/viewer"
)

func newTestManager(t *testing.T, cfg viewer.ManagerConfig) (*viewer.Manager, *rendertest.Engine) {
	t.Helper()
	eng := rendertest.NewEngine("fake")
	provider := render.NewProvider()
	provider.Register("fake", rendertest.Factory(eng))
	if cfg.Session.Engine == "" {
		cfg.Session.Engine = "fake"
	}
	m := viewer.NewManager(provider, cfg)
	t.Cleanup(m.CloseAll)
	return m, eng
}

func TestManager_OpenCreatesReadySession(t *testing.T) {
	m, eng := newTestManager(t, viewer.ManagerConfig{})

	sess, err := m.Open(context.Background(), vtypes.CreateSessionRequest{})
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Equal(t, vtypes.StateReady, sess.State())
	assert.NotEmpty(t, sess.ID())
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, eng.ViewerCount())

	info := sess.Info()
	assert.Equal(t, 640, info.Width, "width defaults when the request omits it")
	assert.Equal(t, 480, info.Height)

	got, err := m.Get(sess.ID())
	require.NoError(t, err)
	assert.Same(t, sess, got)
}

func TestManager_OpenHonorsRequestOverrides(t *testing.T) {
	alt := rendertest.NewEngine("alt")
	eng := rendertest.NewEngine("fake")
	provider := render.NewProvider()
	provider.Register("fake", rendertest.Factory(eng))
	provider.Register("alt", rendertest.Factory(alt))
	m := viewer.NewManager(provider, viewer.ManagerConfig{Session: viewer.Config{Engine: "fake"}})
	t.Cleanup(m.CloseAll)

	sess, err := m.Open(context.Background(), vtypes.CreateSessionRequest{
		Engine: "alt",
		Width:  100,
		Height: 50,
	})
	require.NoError(t, err)

	info := sess.Info()
	assert.Equal(t, "alt", info.Engine)
	assert.Equal(t, 100, info.Width)
	assert.Equal(t, 50, info.Height)
	assert.Equal(t, 1, alt.ViewerCount())
	assert.Equal(t, 0, eng.ViewerCount(), "the default engine stays untouched")
}

func TestManager_OpenRejectsNegativeDimensions(t *testing.T) {
	m, _ := newTestManager(t, viewer.ManagerConfig{})

	_, err := m.Open(context.Background(), vtypes.CreateSessionRequest{Width: -1})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
	assert.Equal(t, 0, m.Len())
}

func TestManager_OpenEnforcesSessionLimit(t *testing.T) {
	m, _ := newTestManager(t, viewer.ManagerConfig{MaxSessions: 2})
	ctx := context.Background()

	first, err := m.Open(ctx, vtypes.CreateSessionRequest{})
	require.NoError(t, err)
	_, err = m.Open(ctx, vtypes.CreateSessionRequest{})
	require.NoError(t, err)

	_, err = m.Open(ctx, vtypes.CreateSessionRequest{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeSessionLimit))
	assert.Equal(t, 2, m.Len())

	// Closing a session frees its slot.
	require.NoError(t, m.Close(first.ID()))
	_, err = m.Open(ctx, vtypes.CreateSessionRequest{})
	require.NoError(t, err)
}

func TestManager_OpenRegistersFailedSessions(t *testing.T) {
	provider := render.NewProvider()
	m := viewer.NewManager(provider, viewer.ManagerConfig{Session: viewer.Config{Engine: "missing"}})
	t.Cleanup(m.CloseAll)

	// Initialization failure is session state, not an Open error: the session
	// stays registered so callers can observe the Error state and retry.
	sess, err := m.Open(context.Background(), vtypes.CreateSessionRequest{})
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Equal(t, vtypes.StateError, sess.State())
	assert.NotEmpty(t, sess.Info().Error)
	assert.Equal(t, 1, m.Len())
}

func TestManager_GetUnknownSession(t *testing.T) {
	m, _ := newTestManager(t, viewer.ManagerConfig{})

	_, err := m.Get("nope")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeSessionNotFound))
}

func TestManager_CloseTearsSessionDown(t *testing.T) {
	m, eng := newTestManager(t, viewer.ManagerConfig{})
	sess, err := m.Open(context.Background(), vtypes.CreateSessionRequest{})
	require.NoError(t, err)
	v := eng.LastViewer()

	require.NoError(t, m.Close(sess.ID()))

	assert.Equal(t, 0, m.Len())
	assert.True(t, v.Released())
	_, err = m.Get(sess.ID())
	assert.True(t, errors.IsCode(err, errors.CodeSessionNotFound))

	err = sess.Resize(10, 10)
	assert.True(t, errors.IsCode(err, errors.CodeViewerTornDown))

	err = m.Close(sess.ID())
	assert.True(t, errors.IsCode(err, errors.CodeSessionNotFound), "a second close finds nothing")
}

func TestManager_CloseAll(t *testing.T) {
	m, eng := newTestManager(t, viewer.ManagerConfig{})
	ctx := context.Background()

	var viewers []*rendertest.Viewer
	for i := 0; i < 3; i++ {
		_, err := m.Open(ctx, vtypes.CreateSessionRequest{})
		require.NoError(t, err)
		viewers = append(viewers, eng.LastViewer())
	}
	require.Equal(t, 3, m.Len())

	m.CloseAll()

	assert.Equal(t, 0, m.Len())
	for _, v := range viewers {
		assert.True(t, v.Released())
	}
}

func TestManager_ListOrdersByCreation(t *testing.T) {
	m, _ := newTestManager(t, viewer.ManagerConfig{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := m.Open(ctx, vtypes.CreateSessionRequest{})
		require.NoError(t, err)
	}

	list := m.List()
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].CreatedAt().Before(list[i-1].CreatedAt()),
			"sessions are listed oldest first")
	}
}
