package panel_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/figflow/pkg/adapters/memory"
	"github.com/aretw0/figflow/pkg/domain"
	"github.com/aretw0/figflow/pkg/panel"
	"github.com/aretw0/figflow/pkg/protocol"
	"github.com/aretw0/figflow/pkg/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transformFunc func(ctx context.Context, req domain.TransformationRequest) (domain.TransformationResult, error)

func (f transformFunc) Transform(ctx context.Context, req domain.TransformationRequest) (domain.TransformationResult, error) {
	return f(ctx, req)
}

// start runs a session on a fresh bridge and returns the Host end.
func start(t *testing.T, tr transformFunc) (*panel.Session, *memory.HostEnd) {
	t.Helper()
	b := memory.NewBridge(8)
	s := panel.New(b.Panel(), tr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s, b.Host()
}

func pushSnapshot(t *testing.T, s *panel.Session, host *memory.HostEnd, code string) {
	t.Helper()
	require.NoError(t, host.Post(context.Background(), protocol.SetCode{Code: code}))
	require.Eventually(t, func() bool {
		got, ok := s.Snapshot()
		return ok && got == code
	}, time.Second, 5*time.Millisecond)
}

func next(t *testing.T, host *memory.HostEnd) protocol.Message {
	t.Helper()
	select {
	case msg := <-host.Messages():
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for panel message")
		return nil
	}
}

func assertNothingPosted(t *testing.T, host *memory.HostEnd) {
	t.Helper()
	select {
	case msg := <-host.Messages():
		t.Fatalf("unexpected panel message %#v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNew_Greets(t *testing.T) {
	s, _ := start(t, nil)

	entries := s.Transcript()
	require.Len(t, entries, 1)
	assert.Equal(t, panel.RoleBot, entries[0].Role)
	assert.Equal(t, panel.Greeting, entries[0].Text)
	assert.Equal(t, panel.StateIdle, s.State())
}

// The canonical scenario: snapshot "x=1", prompt "format", service answers "x = 1".
func TestSend_FormatScenario(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"code":"x = 1"}`)
	}))
	defer srv.Close()

	b := memory.NewBridge(8)
	s := panel.New(b.Panel(), transform.New(srv.URL))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()
	host := b.Host()

	pushSnapshot(t, s, host, "x=1")

	res, err := s.Send(ctx, "format", nil)
	require.NoError(t, err)
	assert.Equal(t, "x = 1", res.Code)
	assert.JSONEq(t, `{"code":"x=1","prompt":"format"}`, gotBody)

	assert.Equal(t, protocol.UpdateEditorCode{Code: "x = 1"}, next(t, host))
	assert.Equal(t, protocol.Success(panel.MsgSent), next(t, host))

	entries := s.Transcript()
	require.Len(t, entries, 3)
	assert.Equal(t, panel.RoleUser, entries[1].Role)
	assert.Equal(t, "format", entries[1].Text)
	assert.Equal(t, panel.RoleBot, entries[2].Role)
	assert.Equal(t, "x = 1", entries[2].Text)
	assert.Equal(t, panel.StateIdle, s.State())
}

func TestSend_ServerErrorPostsNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := memory.NewBridge(8)
	s := panel.New(b.Panel(), transform.New(srv.URL))
	host := b.Host()

	_, err := s.Send(context.Background(), "format", nil)
	assert.ErrorIs(t, err, domain.ErrTransport)

	assertNothingPosted(t, host)
	entries := s.Transcript()
	last := entries[len(entries)-1]
	assert.Equal(t, panel.RoleError, last.Role)
	assert.Equal(t, panel.MsgRequestFailed, last.Text)
	assert.Equal(t, panel.StateIdle, s.State())
}

func TestSend_WithoutSnapshotSendsEmptyCode(t *testing.T) {
	var got domain.TransformationRequest
	s, host := start(t, func(_ context.Context, req domain.TransformationRequest) (domain.TransformationResult, error) {
		got = req
		return domain.TransformationResult{Code: "print(1)"}, nil
	})

	_, ok := s.Snapshot()
	assert.False(t, ok)

	_, err := s.Send(context.Background(), "  write hello  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "", got.Code)
	assert.Equal(t, "write hello", got.Prompt, "prompt is trimmed")
	assert.Equal(t, protocol.UpdateEditorCode{Code: "print(1)"}, next(t, host))
}

func TestSend_EmptyPrompt(t *testing.T) {
	called := false
	s, host := start(t, func(context.Context, domain.TransformationRequest) (domain.TransformationResult, error) {
		called = true
		return domain.TransformationResult{}, nil
	})

	_, err := s.Send(context.Background(), " \n\t", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyPrompt)
	assert.False(t, called)
	assert.Len(t, s.Transcript(), 1)
	assertNothingPosted(t, host)
}

func TestSend_BusyWhileAwaiting(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	s, host := start(t, func(ctx context.Context, _ domain.TransformationRequest) (domain.TransformationResult, error) {
		close(entered)
		<-release
		return domain.TransformationResult{Code: "first"}, nil
	})

	errc := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "first", nil)
		errc <- err
	}()
	<-entered
	assert.Equal(t, panel.StateAwaiting, s.State())

	_, err := s.Send(context.Background(), "second", nil)
	assert.ErrorIs(t, err, domain.ErrBusy)

	close(release)
	require.NoError(t, <-errc)
	assert.Equal(t, protocol.UpdateEditorCode{Code: "first"}, next(t, host))
	assert.Equal(t, panel.StateIdle, s.State())
}

func TestSend_ImageAnnouncesAttachment(t *testing.T) {
	var got domain.TransformationRequest
	s, host := start(t, func(_ context.Context, req domain.TransformationRequest) (domain.TransformationResult, error) {
		got = req
		return domain.TransformationResult{Code: "<div/>"}, nil
	})
	img := &domain.Image{Name: "a.png", ContentType: "image/png", Data: []byte("png")}

	_, err := s.Send(context.Background(), "to html", img)
	require.NoError(t, err)
	assert.Same(t, img, got.Image)

	assert.Equal(t, protocol.FileSelected{Data: img.DataURL()}, next(t, host))
	assert.Equal(t, protocol.UpdateEditorCode{Code: "<div/>"}, next(t, host))

	entries := s.Transcript()
	assert.Equal(t, "a.png", entries[1].Image)
}

func TestSend_WrapsNonTransportErrors(t *testing.T) {
	s, _ := start(t, func(context.Context, domain.TransformationRequest) (domain.TransformationResult, error) {
		return domain.TransformationResult{}, errors.New("offline")
	})

	_, err := s.Send(context.Background(), "go", nil)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestRun_IgnoresOtherHostMessages(t *testing.T) {
	s, host := start(t, nil)

	require.NoError(t, host.Post(context.Background(), protocol.Unknown{Name: "bogus"}))
	require.NoError(t, host.Post(context.Background(), protocol.UpdateEditorCode{Code: "nope"}))
	pushSnapshot(t, s, host, "kept")

	code, ok := s.Snapshot()
	assert.True(t, ok)
	assert.Equal(t, "kept", code)
}

func TestRun_StopsWhenDisposed(t *testing.T) {
	b := memory.NewBridge(1)
	s := panel.New(b.Panel(), nil)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	require.NoError(t, b.Host().Dispose())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after dispose")
	}
}

func TestWatch_StreamsEvents(t *testing.T) {
	s, host := start(t, func(context.Context, domain.TransformationRequest) (domain.TransformationResult, error) {
		return domain.TransformationResult{Code: "ok"}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	events := s.Watch(ctx)

	require.NoError(t, host.Reveal(context.Background()))
	pushSnapshot(t, s, host, "x")
	_, err := s.Send(context.Background(), "hi", nil)
	require.NoError(t, err)

	var kinds []panel.EventKind
	timeout := time.After(time.Second)
collect:
	for len(kinds) < 6 {
		select {
		case ev := <-events:
			kinds = append(kinds, ev.Kind)
		case <-timeout:
			break collect
		}
	}

	assert.Contains(t, kinds, panel.EventReveal)
	assert.Contains(t, kinds, panel.EventSnapshot)
	assert.Contains(t, kinds, panel.EventEntry)
	assert.Contains(t, kinds, panel.EventState)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestSubscribe_ReplayAndEventsDoNotOverlap(t *testing.T) {
	s, host := start(t, func(_ context.Context, req domain.TransformationRequest) (domain.TransformationResult, error) {
		return domain.TransformationResult{Code: req.Prompt}, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for {
			select {
			case <-host.Messages():
			case <-ctx.Done():
				return
			}
		}
	}()

	sent := make(chan struct{})
	go func() {
		defer close(sent)
		for i := 0; i < 40; i++ {
			_, _ = s.Send(ctx, fmt.Sprintf("p%d", i), nil)
		}
	}()

	require.Eventually(t, func() bool { return len(s.Transcript()) > 10 }, 2*time.Second, time.Millisecond)
	replay, events := s.Subscribe(ctx)

	seen := make(map[string]int)
	for _, e := range replay.Transcript {
		seen[string(e.Role)+":"+e.Text]++
	}
	record := func(ev panel.Event) {
		if ev.Kind == panel.EventEntry {
			seen[string(ev.Entry.Role)+":"+ev.Entry.Text]++
		}
	}

collect:
	for {
		select {
		case ev := <-events:
			record(ev)
		case <-sent:
			break collect
		}
	}
	for {
		select {
		case ev := <-events:
			record(ev)
			continue
		default:
		}
		break
	}

	for key, n := range seen {
		assert.Equal(t, 1, n, "entry %q delivered %d times", key, n)
	}
	assert.Len(t, seen, len(s.Transcript()), "every entry delivered exactly once")
}

func TestPost_RelaysToHost(t *testing.T) {
	s, host := start(t, nil)

	require.NoError(t, s.Post(context.Background(), protocol.Unknown{Name: "ping"}))
	assert.Equal(t, protocol.Unknown{Name: "ping"}, next(t, host))

	assert.Error(t, s.Post(context.Background(), nil))
}
