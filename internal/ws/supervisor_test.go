package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-sync/internal/apierr"
	"chat-sync/internal/auth"
	"chat-sync/internal/store"
)

type fakeConn struct {
	in      chan []byte
	readErr chan error
	done    chan struct{}
	once    sync.Once

	mu        sync.Mutex
	written   [][]byte
	controls  []int
	deadlines []time.Time
	onPong    func(string) error
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 8), readErr: make(chan error, 1), done: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case b := <-c.in:
		return websocket.TextMessage, b, nil
	case err := <-c.readErr:
		return 0, nil, err
	case <-c.done:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) WriteControl(messageType int, _ []byte, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controls = append(c.controls, messageType)
	return nil
}

func (c *fakeConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadlines = append(c.deadlines, t)
	return nil
}

func (c *fakeConn) SetPongHandler(h func(string) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPong = h
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) closeWith(code int) {
	c.readErr <- &websocket.CloseError{Code: code}
}

func (c *fakeConn) controlCount(messageType int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.controls {
		if m == messageType {
			n++
		}
	}
	return n
}

func (c *fakeConn) writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte{}, c.written...)
}

type fakeDialer struct {
	mu    sync.Mutex
	urls  []string
	conns []*fakeConn
	err   error
	block chan struct{}
}

func (d *fakeDialer) Dial(_ context.Context, url string) (Conn, error) {
	if d.block != nil {
		<-d.block
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	if d.err != nil {
		return nil, d.err
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) url(i int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.urls[i]
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

func newTestSupervisor(t *testing.T, tokens auth.TokenSource) (*Supervisor, *fakeDialer, *clockwork.FakeClock, *store.Store) {
	t.Helper()
	d := &fakeDialer{}
	clk := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	st := store.New()
	sup := NewSupervisor(Config{
		BaseURL:    "ws://chat.test",
		Tokens:     tokens,
		Dialer:     d,
		Clock:      clk,
		Errors:     st,
		NewBackOff: func() backoff.BackOff { return backoff.NewConstantBackOff(DefaultReconnectDelay) },
	})
	t.Cleanup(sup.Close)
	return sup, d, clk, st
}

func waitState(t *testing.T, sup *Supervisor, key ChannelKey, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return sup.State(key) == want }, time.Second, 5*time.Millisecond,
		"channel %s never reached %s, last %s", key, want, sup.State(key))
}

func waitDials(t *testing.T, d *fakeDialer, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return d.dials() == want }, time.Second, 5*time.Millisecond,
		"expected %d dials, got %d", want, d.dials())
}

func blockUntil(t *testing.T, clk *clockwork.FakeClock, waiters int) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		clk.BlockUntil(waiters)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("clock never had %d waiters", waiters)
	}
}

func TestConnectWithoutTokenFailsWithAuthentication(t *testing.T) {
	sup, d, _, st := newTestSupervisor(t, auth.StaticToken(""))

	h, err := sup.Connect(context.Background(), ChatKey("r1"))

	require.Error(t, err)
	assert.Nil(t, h)
	assert.Equal(t, apierr.KindAuthentication, apierr.KindOf(err))
	assert.Equal(t, 0, d.dials())
	require.NotNil(t, st.Error())
	assert.Equal(t, apierr.KindAuthentication, st.Error().Kind)
	assert.Equal(t, StateIdle, sup.State(ChatKey("r1")))
}

func TestConnectBuildsURLAndDeliversEvents(t *testing.T) {
	sup, d, _, _ := newTestSupervisor(t, auth.StaticToken("jwt"))
	key := ChatKey("r1")

	_, err := sup.Connect(context.Background(), key)
	require.NoError(t, err)
	waitState(t, sup, key, StateOpen)

	assert.Equal(t, "ws://chat.test/ws/chat/r1/?token=jwt", d.url(0))

	d.conn(0).in <- []byte(`{"type":"typing"}`)
	select {
	case ev := <-sup.Events():
		assert.Equal(t, key, ev.Key)
		assert.JSONEq(t, `{"type":"typing"}`, string(ev.Payload))
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestConnectSameKeyReturnsExistingHandle(t *testing.T) {
	sup, d, _, _ := newTestSupervisor(t, auth.StaticToken("jwt"))

	h1, err := sup.Connect(context.Background(), PresenceKey())
	require.NoError(t, err)
	h2, err := sup.Connect(context.Background(), PresenceKey())
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	waitState(t, sup, PresenceKey(), StateOpen)
	assert.Equal(t, 1, d.dials())
}

func TestNormalClosureDoesNotReconnect(t *testing.T) {
	sup, d, clk, _ := newTestSupervisor(t, auth.StaticToken("jwt"))
	key := NotificationsKey()

	_, err := sup.Connect(context.Background(), key)
	require.NoError(t, err)
	waitState(t, sup, key, StateOpen)

	d.conn(0).closeWith(websocket.CloseNormalClosure)
	waitState(t, sup, key, StateIdle)

	clk.Advance(time.Minute)
	assert.Never(t, func() bool { return d.dials() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestAbnormalCloseSchedulesOneReconnect(t *testing.T) {
	sup, d, clk, st := newTestSupervisor(t, auth.StaticToken("jwt"))
	key := ChatKey("r1")

	reopened := make(chan bool, 2)
	sup.OnOpen(func(k ChannelKey, reconnect bool) {
		if k == key {
			reopened <- reconnect
		}
	})

	_, err := sup.Connect(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, <-reopened)

	d.conn(0).closeWith(websocket.CloseAbnormalClosure)
	waitState(t, sup, key, StateReconnectPending)
	require.NotNil(t, st.Error())
	assert.Equal(t, apierr.KindWebSocket, st.Error().Kind)

	clk.Advance(4 * time.Second)
	assert.Never(t, func() bool { return d.dials() > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	clk.Advance(time.Second)
	waitState(t, sup, key, StateOpen)
	assert.Equal(t, 2, d.dials())
	assert.True(t, <-reopened)
	assert.Nil(t, st.Error(), "open clears websocket errors")
}

func TestDialFailureRetriesUntilMaxAttempts(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	clk := clockwork.NewFakeClock()
	st := store.New()
	sup := NewSupervisor(Config{
		BaseURL:              "ws://chat.test",
		Tokens:               auth.StaticToken("jwt"),
		Dialer:               d,
		Clock:                clk,
		Errors:               st,
		NewBackOff:           func() backoff.BackOff { return backoff.NewConstantBackOff(time.Second) },
		MaxReconnectAttempts: 2,
	})
	defer sup.Close()
	key := PresenceKey()

	_, err := sup.Connect(context.Background(), key)
	require.NoError(t, err)
	waitState(t, sup, key, StateReconnectPending)

	blockUntil(t, clk, 1)
	clk.Advance(time.Second)
	waitDials(t, d, 2)
	blockUntil(t, clk, 1)
	clk.Advance(time.Second)

	waitState(t, sup, key, StateIdle)
	assert.Equal(t, 3, d.dials())
	clk.Advance(time.Minute)
	assert.Never(t, func() bool { return d.dials() > 3 }, 50*time.Millisecond, 5*time.Millisecond)
	require.NotNil(t, st.Error())
	assert.Contains(t, st.Error().Message, "max reconnect attempts")
}

func TestSendRequiresOpenChannel(t *testing.T) {
	sup, d, _, _ := newTestSupervisor(t, auth.StaticToken("jwt"))
	d.block = make(chan struct{})
	key := ChatKey("r1")

	_, err := sup.Connect(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, StateConnecting, sup.State(key))

	err = sup.Send(key, map[string]string{"type": "message", "message": "hi"})
	require.Error(t, err)
	assert.Equal(t, apierr.KindWebSocket, apierr.KindOf(err))

	err = sup.Send(ChatKey("unknown"), map[string]string{"type": "message"})
	assert.Equal(t, apierr.KindWebSocket, apierr.KindOf(err))

	close(d.block)
	waitState(t, sup, key, StateOpen)
	require.NoError(t, sup.Send(key, map[string]string{"type": "message", "message": "hi"}))

	writes := d.conn(0).writes()
	require.Len(t, writes, 1)
	var frame map[string]string
	require.NoError(t, json.Unmarshal(writes[0], &frame))
	assert.Equal(t, "hi", frame["message"])
}

func TestDisconnectAllCancelsPendingReconnects(t *testing.T) {
	sup, d, clk, _ := newTestSupervisor(t, auth.StaticToken("jwt"))

	_, err := sup.Connect(context.Background(), ChatKey("a"))
	require.NoError(t, err)
	_, err = sup.Connect(context.Background(), ChatKey("b"))
	require.NoError(t, err)
	waitState(t, sup, ChatKey("a"), StateOpen)
	waitState(t, sup, ChatKey("b"), StateOpen)

	var broken, healthy *fakeConn
	for i := 0; i < 2; i++ {
		c := d.conn(i)
		if d.url(i) == "ws://chat.test/ws/chat/a/?token=jwt" {
			broken = c
		} else {
			healthy = c
		}
	}
	broken.closeWith(websocket.CloseGoingAway)
	waitState(t, sup, ChatKey("a"), StateReconnectPending)

	sup.DisconnectAll()

	clk.Advance(time.Minute)
	assert.Never(t, func() bool { return d.dials() > 2 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, StateIdle, sup.State(ChatKey("a")))
	assert.Equal(t, StateIdle, sup.State(ChatKey("b")))

	healthy.mu.Lock()
	defer healthy.mu.Unlock()
	assert.Equal(t, []int{websocket.CloseMessage}, healthy.controls)
}

func TestKeepAliveUsesControlPings(t *testing.T) {
	d := &fakeDialer{}
	clk := clockwork.NewFakeClock()
	st := store.New()
	sup := NewSupervisor(Config{
		BaseURL:      "ws://chat.test",
		Tokens:       auth.StaticToken("jwt"),
		Dialer:       d,
		Clock:        clk,
		Errors:       st,
		PingInterval: DefaultPingInterval,
	})
	defer sup.Close()
	key := ChatKey("r1")

	_, err := sup.Connect(context.Background(), key)
	require.NoError(t, err)
	waitState(t, sup, key, StateOpen)
	conn := d.conn(0)

	blockUntil(t, clk, 1)
	clk.Advance(DefaultPingInterval)
	require.Eventually(t, func() bool { return conn.controlCount(websocket.PingMessage) == 1 }, time.Second, 5*time.Millisecond)
	clk.Advance(DefaultPingInterval)
	require.Eventually(t, func() bool { return conn.controlCount(websocket.PingMessage) == 2 }, time.Second, 5*time.Millisecond)

	assert.Empty(t, conn.writes(), "keep-alive never writes data frames")
	assert.Nil(t, st.Error())
	assert.Equal(t, StateOpen, sup.State(key))

	conn.mu.Lock()
	onPong := conn.onPong
	before := len(conn.deadlines)
	conn.mu.Unlock()
	require.NotNil(t, onPong)
	require.Equal(t, 1, before)
	require.NoError(t, onPong(""))
	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.Len(t, conn.deadlines, 2, "a pong extends the read deadline")
}

func TestStatusReportsEveryChannel(t *testing.T) {
	sup, _, _, _ := newTestSupervisor(t, auth.StaticToken("jwt"))

	_, err := sup.Connect(context.Background(), PresenceKey())
	require.NoError(t, err)
	waitState(t, sup, PresenceKey(), StateOpen)

	status := sup.Status()
	require.Contains(t, status, "presence")
	assert.Equal(t, StateOpen, status["presence"].State)
	assert.Zero(t, status["presence"].Attempts)
}

func TestDefaultBackOffStartsAtFiveSeconds(t *testing.T) {
	b := DefaultBackOff()
	first := b.NextBackOff()
	assert.GreaterOrEqual(t, first, 4*time.Second)
	assert.LessOrEqual(t, first, 6*time.Second)

	for i := 0; i < 10; i++ {
		b.NextBackOff()
	}
	assert.LessOrEqual(t, b.NextBackOff(), time.Duration(float64(DefaultMaxReconnect)*1.2))
}
