package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/figflow/pkg/adapters/memory"
	"github.com/aretw0/figflow/pkg/domain"
	"github.com/aretw0/figflow/pkg/ports"
	"github.com/aretw0/figflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_AtMostOneSession(t *testing.T) {
	factory := memory.NewPanelFactory(nil)
	manager := session.NewManager(factory)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, _, err := manager.Acquire(ctx)
			assert.NoError(t, err)
			ids <- sess.ID
		}()
	}
	wg.Wait()
	close(ids)

	for id := range ids {
		assert.Equal(t, "panel-1", id)
	}
	assert.Equal(t, 1, factory.Opened(), "concurrent Acquire must open a single panel")
}

func TestManager_DisposeThenReopen(t *testing.T) {
	var disposed []string
	factory := memory.NewPanelFactory(nil)
	manager := session.NewManager(factory, session.WithDisposeHook(func(s *session.Session) {
		disposed = append(disposed, s.ID)
	}))
	ctx := context.Background()

	first, created, err := manager.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := manager.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, first, again)

	require.NoError(t, manager.Dispose(first))
	_, ok := manager.Current()
	assert.False(t, ok)
	<-first.View.Done()

	second, created, err := manager.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "panel-2", second.ID)

	require.NoError(t, manager.Dispose(first), "disposing a stale session is a no-op")
	current, ok := manager.Current()
	assert.True(t, ok)
	assert.Same(t, second, current)
	assert.Equal(t, []string{"panel-1"}, disposed)
}

func TestManager_AcquireAfterPanelClosedByUser(t *testing.T) {
	var disposed []string
	factory := memory.NewPanelFactory(nil)
	manager := session.NewManager(factory, session.WithDisposeHook(func(s *session.Session) {
		disposed = append(disposed, s.ID)
	}))
	ctx := context.Background()

	first, _, err := manager.Acquire(ctx)
	require.NoError(t, err)

	// Closed from the panel side; nobody has called Dispose yet.
	require.NoError(t, first.View.(*memory.HostEnd).Bridge().Panel().Close())

	_, ok := manager.Current()
	assert.False(t, ok, "a closed view is not live")

	second, created, err := manager.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "panel-2", second.ID)
	assert.Equal(t, []string{"panel-1"}, disposed)

	require.NoError(t, manager.Dispose(first), "late dispose from the serve loop is a no-op")
	current, ok := manager.Current()
	require.True(t, ok)
	assert.Same(t, second, current)
	assert.Equal(t, 2, factory.Opened())
}

func TestManager_Require(t *testing.T) {
	manager := session.NewManager(memory.NewPanelFactory(nil))

	_, err := manager.Require()
	assert.ErrorIs(t, err, domain.ErrNoSession)

	_, _, err = manager.Acquire(context.Background())
	require.NoError(t, err)
	_, err = manager.Require()
	assert.NoError(t, err)

	require.NoError(t, manager.DisposeCurrent())
	require.NoError(t, manager.DisposeCurrent())
}

type failingFactory struct{}

func (failingFactory) Open(ctx context.Context) (ports.PanelView, error) {
	return nil, errors.New("no display")
}

func TestManager_OpenFailure(t *testing.T) {
	manager := session.NewManager(failingFactory{})

	_, _, err := manager.Acquire(context.Background())
	assert.ErrorContains(t, err, "no display")

	_, ok := manager.Current()
	assert.False(t, ok)
}
