package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTelegramSendsAndRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottok/sendMessage", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "42", body["chat_id"])
		assert.Equal(t, "hello", body["text"])
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"ok":false,"description":"busy"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	tg := NewTelegram("tok", "42")
	tg.BaseURL = srv.URL
	tg.Backoff = time.Millisecond
	require.NoError(t, tg.SendText(context.Background(), "hello"))
	assert.EqualValues(t, 2, calls.Load())
}

func TestTelegramReportsDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	tg := NewTelegram("tok", "42")
	tg.BaseURL = srv.URL
	tg.Backoff = time.Millisecond
	err := tg.SendText(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegramRequiresConfig(t *testing.T) {
	assert.Error(t, NewTelegram("", "").SendText(context.Background(), "x"))
}

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) SendText(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, text)
	return nil
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func TestQueueDeliversInOrder(t *testing.T) {
	rec := &recorder{}
	q := NewQueue(rec, 8, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = q.Run(ctx)
		close(done)
	}()

	assert.True(t, q.Send("a"))
	assert.True(t, q.Send("b"))
	assert.False(t, q.Send(""))
	require.Eventually(t, func() bool { return len(rec.all()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, rec.all())

	cancel()
	<-done
	assert.False(t, q.Send("late"))
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) SendText(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func TestQueueContinuesAfterDeliveryFailure(t *testing.T) {
	sink := &mockSink{}
	sink.On("SendText", mock.Anything, "first").Return(errors.New("telegram down")).Once()
	delivered := make(chan struct{})
	sink.On("SendText", mock.Anything, "second").Return(nil).Once().
		Run(func(mock.Arguments) { close(delivered) })

	q := NewQueue(sink, 4, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = q.Run(ctx)
		close(done)
	}()

	require.True(t, q.Send("first"))
	require.True(t, q.Send("second"))
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("second message was not delivered")
	}
	cancel()
	<-done
	sink.AssertExpectations(t)
}

func TestQueueRejectsWhenFull(t *testing.T) {
	q := NewQueue(&recorder{}, 1, time.Second)
	assert.True(t, q.Send("a"))
	assert.False(t, q.Send("b"))
}

func TestStructuredMessageRender(t *testing.T) {
	msg := StructuredMessage{
		Icon:   "🟢",
		Title:  "Trade opened",
		Fields: []Field{F("Entry", "%.2f", 150.0), F("Empty", "")},
		Sections: []MessageSection{
			{Title: "Signal", Lines: []string{"close_above_ema20", " "}},
		},
		Footer:    "paper mode",
		Timestamp: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
	}
	out := msg.RenderMarkdown()
	assert.Contains(t, out, "🟢 Trade opened")
	assert.Contains(t, out, "- Entry: 150.00")
	assert.NotContains(t, out, "Empty")
	assert.Contains(t, out, "Signal\n- close_above_ema20")
	assert.Contains(t, out, "paper mode")
	assert.Contains(t, out, "Time: 2024-03-04 10:00:00 UTC")
}
