package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Rrens/flexy-chat/internal/domain"
	"github.com/coder/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type staticCreds struct {
	token string
}

func (c staticCreds) Token() (string, bool) {
	return c.token, c.token != ""
}

type dialResult struct {
	transport Transport
	err       error
}

// fakeDialer blocks every dial until the test hands it a result
type fakeDialer struct {
	mu      sync.Mutex
	urls    []string
	results chan dialResult
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{results: make(chan dialResult)}
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Transport, error) {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	d.mu.Unlock()

	select {
	case r := <-d.results:
		return r.transport, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

type fakeTransport struct {
	inbound chan []byte
	fail    chan error

	mu        sync.Mutex
	written   [][]byte
	closed    bool
	closeCode int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound: make(chan []byte, 8),
		fail:    make(chan error, 1),
	}
}

func (t *fakeTransport) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-t.inbound:
		return data, nil
	case err := <-t.fail:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *fakeTransport) Write(_ context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.written = append(t.written, data)
	return nil
}

func (t *fakeTransport) Close(code int, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.closeCode = code
	return nil
}

func (t *fakeTransport) writes() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.written...)
}

func (t *fakeTransport) closedWith() (bool, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed, t.closeCode
}

// recorder collects handler invocations
type recorder struct {
	mu          sync.Mutex
	frames      []domain.Frame
	statuses    []domain.ConnectionStatus
	disconnects []int
	errs        []error
	delays      []time.Duration
	connects    int
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnMessage: func(f domain.Frame) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.frames = append(r.frames, f)
		},
		OnConnect: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.connects++
		},
		OnDisconnect: func(code int) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.disconnects = append(r.disconnects, code)
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, err)
		},
		OnStatus: func(s domain.ConnectionStatus) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.statuses = append(r.statuses, s)
		},
		OnRetryScheduled: func(_ int, delay time.Duration) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.delays = append(r.delays, delay)
		},
	}
}

func (r *recorder) retryDelays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func (r *recorder) disconnectCodes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.disconnects...)
}

func (r *recorder) errorLog() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *recorder) statusLog() []domain.ConnectionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ConnectionStatus(nil), r.statuses...)
}

func (r *recorder) frameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func abnormal() error {
	return websocket.CloseError{Code: websocket.StatusAbnormalClosure}
}

func newTestManager(t *testing.T, dialer Dialer, rec *recorder, fc clockwork.Clock) *Manager {
	t.Helper()
	m := NewManager(dialer, staticCreds{token: "tok"},
		WithEndpoint("ws://chat.test/ws/"),
		WithClock(fc),
		WithHandlers(rec.handlers()),
	)
	t.Cleanup(m.Close)
	return m
}

// openConnection connects and completes the dial with a fresh transport
func openConnection(t *testing.T, m *Manager, d *fakeDialer, session string) *fakeTransport {
	t.Helper()
	tr := newFakeTransport()
	m.Connect(session)
	d.results <- dialResult{transport: tr}
	require.Eventually(t, func() bool { return m.Status() == domain.StatusConnected }, waitFor, tick)
	return tr
}

func TestManager_BackoffSchedule(t *testing.T) {
	fc := clockwork.NewFakeClock()
	d := newFakeDialer()
	rec := &recorder{}
	m := newTestManager(t, d, rec, fc)

	m.Connect("sess-1")

	for i := 0; i < 6; i++ {
		want := i + 1
		require.Eventually(t, func() bool { return d.count() == want }, waitFor, tick, "dial %d", want)

		// outlive the immediate-close threshold before failing
		fc.Advance(6 * time.Second)
		d.results <- dialResult{err: abnormal()}

		if i < 5 {
			require.Eventually(t, func() bool { return len(rec.retryDelays()) == want }, waitFor, tick)
			fc.Advance(rec.retryDelays()[i])
		}
	}

	require.Eventually(t, func() bool { return len(rec.disconnectCodes()) == 6 }, waitFor, tick)
	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}, rec.retryDelays())
	assert.Equal(t, domain.StatusDisconnected, m.Status())

	fc.Advance(time.Minute)
	assert.Never(t, func() bool { return d.count() > 6 }, 100*time.Millisecond, tick)
}

func TestManager_NoRetry(t *testing.T) {
	tests := []struct {
		name     string
		lifetime time.Duration
		err      error
	}{
		{"immediate abnormal close", 2 * time.Second, abnormal()},
		{"immediate normal close", 2 * time.Second, websocket.CloseError{Code: websocket.StatusNormalClosure}},
		{"late normal close", 10 * time.Second, websocket.CloseError{Code: websocket.StatusNormalClosure}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := clockwork.NewFakeClock()
			d := newFakeDialer()
			rec := &recorder{}
			m := newTestManager(t, d, rec, fc)

			m.Connect("sess-1")
			require.Eventually(t, func() bool { return d.count() == 1 }, waitFor, tick)
			fc.Advance(tt.lifetime)
			d.results <- dialResult{err: tt.err}

			require.Eventually(t, func() bool { return len(rec.disconnectCodes()) == 1 }, waitFor, tick)
			assert.Empty(t, rec.retryDelays())

			fc.Advance(time.Minute)
			assert.Never(t, func() bool { return d.count() > 1 }, 100*time.Millisecond, tick)
			assert.Equal(t, domain.StatusDisconnected, m.Status())
		})
	}
}

func TestManager_ConnectIsIdempotent(t *testing.T) {
	d := newFakeDialer()
	rec := &recorder{}
	m := newTestManager(t, d, rec, clockwork.NewFakeClock())

	m.Connect("sess-1")
	m.Connect("sess-1")

	require.Eventually(t, func() bool { return d.count() == 1 }, waitFor, tick)
	assert.Equal(t, domain.StatusConnecting, m.Status())

	tr := newFakeTransport()
	d.results <- dialResult{transport: tr}
	require.Eventually(t, func() bool { return m.Status() == domain.StatusConnected }, waitFor, tick)

	m.Connect("sess-1")
	assert.Never(t, func() bool { return d.count() > 1 }, 100*time.Millisecond, tick)
}

func TestManager_ConnectSkipped(t *testing.T) {
	tests := []struct {
		name     string
		session  string
		token    string
		endpoint string
	}{
		{"empty session", "", "tok", "ws://chat.test"},
		{"provisional session", "fallback-1-1700000000000", "tok", "ws://chat.test"},
		{"unauthenticated", "sess-1", "", "ws://chat.test"},
		{"no endpoint", "sess-1", "tok", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDialer()
			m := NewManager(d, staticCreds{token: tt.token}, WithEndpoint(tt.endpoint))
			defer m.Close()

			m.Connect(tt.session)

			assert.Never(t, func() bool { return d.count() > 0 }, 50*time.Millisecond, tick)
			assert.Equal(t, domain.StatusDisconnected, m.Status())
		})
	}
}

func TestManager_DialURL(t *testing.T) {
	d := newFakeDialer()
	m := newTestManager(t, d, &recorder{}, clockwork.NewFakeClock())

	m.Connect("abc 1")

	require.Eventually(t, func() bool { return d.count() == 1 }, waitFor, tick)
	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Equal(t, "ws://chat.test/ws/chat/abc%201?token=tok", d.urls[0])
}

func TestManager_SendAfterClosedHandleReconnectsOnce(t *testing.T) {
	fc := clockwork.NewFakeClock()
	d := newFakeDialer()
	rec := &recorder{}
	m := newTestManager(t, d, rec, fc)

	first := openConnection(t, m, d, "sess-1")

	// closes inside the threshold, so no automatic retry
	first.fail <- abnormal()
	require.Eventually(t, func() bool { return len(rec.disconnectCodes()) == 1 }, waitFor, tick)
	require.Equal(t, 1, d.count())

	err := m.Send("lost message")
	assert.ErrorIs(t, err, ErrNotConnected)

	require.Eventually(t, func() bool { return d.count() == 2 }, waitFor, tick)
	err = m.Send("still lost")
	assert.ErrorIs(t, err, ErrNotConnected)

	second := newFakeTransport()
	d.results <- dialResult{transport: second}
	require.Eventually(t, func() bool { return m.Status() == domain.StatusConnected }, waitFor, tick)

	assert.Never(t, func() bool { return d.count() > 2 }, 100*time.Millisecond, tick)
	assert.Empty(t, first.writes())
	assert.Empty(t, second.writes())
}

func TestManager_SendWritesUserFrame(t *testing.T) {
	d := newFakeDialer()
	m := newTestManager(t, d, &recorder{}, clockwork.NewFakeClock())
	tr := openConnection(t, m, d, "sess-1")

	require.NoError(t, m.Send("how many orders?"))

	require.Eventually(t, func() bool { return len(tr.writes()) == 1 }, waitFor, tick)
	var frame domain.Frame
	require.NoError(t, json.Unmarshal(tr.writes()[0], &frame))
	assert.Equal(t, domain.FrameUserMessage, frame.Type)
	assert.Equal(t, "how many orders?", frame.Content)
}

func TestManager_DeliversFramesAndDropsMalformed(t *testing.T) {
	d := newFakeDialer()
	rec := &recorder{}
	m := newTestManager(t, d, rec, clockwork.NewFakeClock())
	tr := openConnection(t, m, d, "sess-1")

	tr.inbound <- []byte("{not json")
	tr.inbound <- []byte(`{"type": "ai_response", "content": "hello", "data": {"insight_id": 7}}`)

	require.Eventually(t, func() bool { return rec.frameCount() == 1 }, waitFor, tick)
	rec.mu.Lock()
	frame := rec.frames[0]
	rec.mu.Unlock()

	assert.Equal(t, domain.FrameAIResponse, frame.Type)
	assert.Equal(t, "hello", frame.Content)
	require.NotNil(t, frame.Data)
	assert.Equal(t, int64(7), *frame.Data.InsightID)
	assert.Equal(t, domain.StatusConnected, m.Status())

	tr.inbound <- []byte(`{"type": "ai_response", "content": "stringified", "data": {"chart_config": "{\"type\": \"bar\"}"}}`)
	tr.inbound <- []byte(`{"type": "ai_response", "content": "string id", "data": {"insight_id": "42"}}`)
	tr.inbound <- []byte(`{"type": "ai_response", "content": "odd shapes", "data": {"insight_id": [1], "chart_config": 3, "chart_data": null}}`)

	require.Eventually(t, func() bool { return rec.frameCount() == 4 }, waitFor, tick)
	rec.mu.Lock()
	frames := append([]domain.Frame(nil), rec.frames...)
	rec.mu.Unlock()

	assert.Equal(t, "stringified", frames[1].Content)
	require.NotNil(t, frames[1].Data)
	assert.Equal(t, map[string]any{"type": "bar"}, frames[1].Data.ChartPayload())

	assert.Equal(t, "string id", frames[2].Content)
	require.NotNil(t, frames[2].Data.InsightID)
	assert.Equal(t, int64(42), *frames[2].Data.InsightID)

	assert.Equal(t, "odd shapes", frames[3].Content)
	assert.Nil(t, frames[3].Data.InsightID)
	assert.Nil(t, frames[3].Data.ChartPayload())
}

func TestManager_DisconnectSuppressesRetry(t *testing.T) {
	fc := clockwork.NewFakeClock()
	d := newFakeDialer()
	rec := &recorder{}
	m := newTestManager(t, d, rec, fc)
	tr := openConnection(t, m, d, "sess-1")

	m.Disconnect()

	closed, code := tr.closedWith()
	assert.True(t, closed)
	assert.Equal(t, CloseNormal, code)
	assert.Equal(t, []int{CloseNormal}, rec.disconnectCodes())
	assert.Equal(t, domain.StatusDisconnected, m.Status())

	// a manual teardown leaves no closed handle behind to recover from
	assert.ErrorIs(t, m.Send("after"), ErrNotConnected)

	fc.Advance(time.Minute)
	assert.Never(t, func() bool { return d.count() > 1 }, 100*time.Millisecond, tick)
}

func TestManager_CloseCancelsPendingRetry(t *testing.T) {
	fc := clockwork.NewFakeClock()
	d := newFakeDialer()
	rec := &recorder{}
	m := newTestManager(t, d, rec, fc)

	m.Connect("sess-1")
	require.Eventually(t, func() bool { return d.count() == 1 }, waitFor, tick)
	fc.Advance(6 * time.Second)
	d.results <- dialResult{err: abnormal()}
	require.Eventually(t, func() bool { return len(rec.retryDelays()) == 1 }, waitFor, tick)

	m.Close()
	fc.Advance(time.Minute)

	assert.Never(t, func() bool { return d.count() > 1 }, 100*time.Millisecond, tick)
	m.Connect("sess-1")
	assert.Never(t, func() bool { return d.count() > 1 }, 50*time.Millisecond, tick)
}

func TestManager_OpenResetsAttempts(t *testing.T) {
	fc := clockwork.NewFakeClock()
	d := newFakeDialer()
	rec := &recorder{}
	m := newTestManager(t, d, rec, fc)

	m.Connect("sess-1")
	require.Eventually(t, func() bool { return d.count() == 1 }, waitFor, tick)
	fc.Advance(6 * time.Second)
	d.results <- dialResult{err: abnormal()}
	require.Eventually(t, func() bool { return len(rec.retryDelays()) == 1 }, waitFor, tick)
	fc.Advance(time.Second)

	require.Eventually(t, func() bool { return d.count() == 2 }, waitFor, tick)
	tr := newFakeTransport()
	d.results <- dialResult{transport: tr}
	require.Eventually(t, func() bool { return m.Status() == domain.StatusConnected }, waitFor, tick)

	fc.Advance(6 * time.Second)
	tr.fail <- abnormal()

	require.Eventually(t, func() bool { return len(rec.retryDelays()) == 2 }, waitFor, tick)
	assert.Equal(t, time.Second, rec.retryDelays()[1])
}

func TestManager_Reconnect(t *testing.T) {
	fc := clockwork.NewFakeClock()
	d := newFakeDialer()
	rec := &recorder{}
	m := newTestManager(t, d, rec, fc)
	tr := openConnection(t, m, d, "sess-1")

	m.Reconnect()

	closed, code := tr.closedWith()
	assert.True(t, closed)
	assert.Equal(t, CloseNormal, code)
	assert.Equal(t, 1, d.count())

	require.NoError(t, fc.BlockUntilContext(context.Background(), 1))
	fc.Advance(time.Second)

	require.Eventually(t, func() bool { return d.count() == 2 }, waitFor, tick)
	assert.Equal(t, domain.StatusConnecting, m.Status())
}

func TestManager_ReadFailureReportsError(t *testing.T) {
	t.Run("failure without close frame", func(t *testing.T) {
		d := newFakeDialer()
		rec := &recorder{}
		m := newTestManager(t, d, rec, clockwork.NewFakeClock())
		tr := openConnection(t, m, d, "sess-1")

		reset := errors.New("connection reset by peer")
		tr.fail <- reset

		require.Eventually(t, func() bool { return len(rec.disconnectCodes()) == 1 }, waitFor, tick)
		assert.Equal(t, []int{CloseAbnormal}, rec.disconnectCodes())
		require.Len(t, rec.errorLog(), 1)
		assert.ErrorIs(t, rec.errorLog()[0], reset)
		assert.Contains(t, rec.statusLog(), domain.StatusError)
	})

	t.Run("close frame is not an error", func(t *testing.T) {
		d := newFakeDialer()
		rec := &recorder{}
		m := newTestManager(t, d, rec, clockwork.NewFakeClock())
		tr := openConnection(t, m, d, "sess-1")

		tr.fail <- abnormal()

		require.Eventually(t, func() bool { return len(rec.disconnectCodes()) == 1 }, waitFor, tick)
		assert.Empty(t, rec.errorLog())
		assert.NotContains(t, rec.statusLog(), domain.StatusError)
	})
}

func TestManager_UnbindForgetsSession(t *testing.T) {
	fc := clockwork.NewFakeClock()
	d := newFakeDialer()
	m := newTestManager(t, d, &recorder{}, fc)
	tr := openConnection(t, m, d, "sess-1")

	m.Unbind()

	closed, code := tr.closedWith()
	assert.True(t, closed)
	assert.Equal(t, CloseNormal, code)
	assert.Empty(t, m.SessionID())

	m.Reconnect()
	fc.Advance(time.Minute)
	assert.Never(t, func() bool { return d.count() > 1 }, 100*time.Millisecond, tick)
	assert.Equal(t, domain.StatusDisconnected, m.Status())
}

func TestManager_SwitchSessionClosesPrevious(t *testing.T) {
	d := newFakeDialer()
	m := newTestManager(t, d, &recorder{}, clockwork.NewFakeClock())
	tr := openConnection(t, m, d, "sess-1")

	m.Connect("sess-2")

	closed, _ := tr.closedWith()
	assert.True(t, closed)
	require.Eventually(t, func() bool { return d.count() == 2 }, waitFor, tick)
	assert.Equal(t, "sess-2", m.SessionID())
}

func TestPolicy_Backoff(t *testing.T) {
	p := DefaultPolicy()

	for attempt, want := range []time.Duration{1, 2, 4, 8, 16} {
		assert.Equal(t, want*time.Second, p.Backoff(attempt))
	}

	capped := p.Backoff(maxBackoffShift)
	for _, attempt := range []int{31, 63, 64, 1000} {
		assert.Equal(t, capped, p.Backoff(attempt))
	}
	assert.Positive(t, capped)
	assert.Equal(t, time.Second, p.Backoff(-1))
}
