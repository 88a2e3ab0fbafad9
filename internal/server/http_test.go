package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kafkaviz/kafkaviz-server-go/internal/lesson"
)

func newTestServer(t *testing.T) (*httptest.Server, *Director) {
	t.Helper()
	d, _ := newTestDirector(t)
	hub := NewHub(d, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx, 10*time.Millisecond)

	api := NewAPI(d, hub, zaptest.NewLogger(t))
	ts := httptest.NewServer(api.Router(ctx, []string{"*"}, true, "/metrics"))
	t.Cleanup(ts.Close)
	return ts, d
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)

	var body map[string]string
	resp := getJSON(t, ts.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestListLessons(t *testing.T) {
	ts, d := newTestServer(t)
	require.NoError(t, d.SelectLesson(context.Background(), lesson.SlugMessageKeys))

	var got []lessonSummary
	resp := getJSON(t, ts.URL+"/api/lessons", &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, got, len(lesson.Order))

	for i, summary := range got {
		assert.Equal(t, lesson.Order[i], summary.Slug)
		assert.Equal(t, summary.Slug == lesson.SlugMessageKeys, summary.Active)
	}
}

func TestGetLesson(t *testing.T) {
	ts, _ := newTestServer(t)

	var d lesson.Descriptor
	resp := getJSON(t, ts.URL+"/api/lessons/"+lesson.SlugOffsetsLag, &d)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, lesson.SlugOffsetsLag, d.Slug)

	resp = getJSON(t, ts.URL+"/api/lessons/no-such-lesson", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSceneSVG(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/scene.svg?lesson=" + lesson.SlugProducerConsumer)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "<svg"))
	assert.Contains(t, string(body), `id="topic"`)
}

func TestSceneSVGUnknownLesson(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/scene.svg?lesson=nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "kafkaviz_ws_clients_connected")
}

func TestWebsocketSessionFlow(t *testing.T) {
	ts, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	readMessage := func() Message {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	// The greeting: catalog, transport state, one frame.
	assert.Equal(t, "catalog", readMessage().Type)
	assert.Equal(t, "state", readMessage().Type)
	assert.Equal(t, "frame", readMessage().Type)

	require.NoError(t, conn.WriteJSON(Message{Type: "select_lesson", Slug: lesson.SlugProducerConsumer}))

	// Selection triggers scene_ready and lesson_changed broadcasts plus a
	// direct state reply; order between them is not fixed.
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		seen[readMessage().Type] = true
	}
	assert.True(t, seen["scene_ready"])
	assert.True(t, seen["lesson_changed"])
	assert.True(t, seen["state"])
}

func TestShutdownClosesClientConnections(t *testing.T) {
	d, _ := newTestDirector(t)
	hub := NewHub(d, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		hub.Run(ctx, 10*time.Millisecond)
		close(runDone)
	}()

	api := NewAPI(d, hub, zaptest.NewLogger(t))
	ts := httptest.NewServer(api.Router(ctx, []string{"*"}, false, ""))
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// The greeting proves this client registered before shutdown begins.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))

	cancel()
	<-runDone

	// The server side must actively close the connection; a read deadline
	// expiring instead means a pump is still holding it open.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var readErr error
	for readErr == nil {
		_, _, readErr = conn.ReadMessage()
	}
	var nerr net.Error
	if errors.As(readErr, &nerr) && nerr.Timeout() {
		t.Fatal("connection still open after shutdown")
	}
}
