package network

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kylechrisking/it-empire-idle/internal/config"
	"github.com/kylechrisking/it-empire-idle/internal/domain/roster"
	"github.com/kylechrisking/it-empire-idle/internal/engine"
	"github.com/kylechrisking/it-empire-idle/internal/events"
	"github.com/kylechrisking/it-empire-idle/internal/infra/storage"
	"github.com/kylechrisking/it-empire-idle/internal/persistence"
	"github.com/kylechrisking/it-empire-idle/internal/platform/logger"
	"github.com/kylechrisking/it-empire-idle/internal/save"
)

type fixture struct {
	hub       *Hub
	scheduler *engine.Scheduler
	eventLog  *events.EventLog
	server    *httptest.Server
}

// newFixture wires an engine, loop, hub and router the way the server does.
func newFixture(t *testing.T, actionsPerSec int) *fixture {
	t.Helper()
	return newFixtureFromSave(t, actionsPerSec, nil)
}

// newFixtureFromSave loads saved before the hub starts, as the server does on boot.
func newFixtureFromSave(t *testing.T, actionsPerSec int, saved []byte) *fixture {
	t.Helper()
	cat := config.DefaultCatalog()
	cat.Achievements = nil
	el := events.NewEventLog(nil)
	log := logger.Discard()

	e, err := engine.NewEngine(cat, el, log, engine.WithRand(engine.FixedRand(0.99)))
	require.NoError(t, err)

	hub := NewHub(nil, log, config.DefaultBuffers(), actionsPerSec)
	e.SetPresenter(hub)
	repo := storage.NewMemorySaveRepository()
	gw := persistence.NewGateway(repo, "test", log)
	if saved != nil {
		require.NoError(t, repo.Save(context.Background(), "test", saved))
		require.NoError(t, gw.Load(context.Background(), e))
	}
	s := engine.NewScheduler(e, gw, log, engine.SchedulerConfig{
		TickInterval: 10 * time.Millisecond,
		HoldInterval: time.Hour,
	})
	hub.SetScheduler(s)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	go s.Start(ctx)

	r := mux.NewRouter()
	NewAPI(s, log).Routes(r)
	NewHistoryHandler(el, nil, "test", log).Routes(r)
	r.HandleFunc("/ws", hub.ServeWS(websocket.Upgrader{}))
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-s.Done()
	})
	return &fixture{hub: hub, scheduler: s, eventLog: el, server: srv}
}

func (f *fixture) post(t *testing.T, path, body string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(f.server.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (f *fixture) clicks(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		code, _ := f.post(t, "/api/click", "")
		require.Equal(t, http.StatusOK, code)
	}
}

func TestAPI_ClickAndState(t *testing.T) {
	f := newFixture(t, 0)

	code, body := f.post(t, "/api/click", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["amount"])

	resp, err := http.Get(f.server.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	var st engine.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, 1.0, st.Balance)
	assert.Len(t, st.Roles, 2)
}

func TestAPI_ErrorMapping(t *testing.T) {
	f := newFixture(t, 0)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"insufficient funds", "/api/employees/technician/tech1/hire", http.StatusConflict},
		{"unknown entity", "/api/employees/technician/ghost/hire", http.StatusNotFound},
		{"worker not owned", "/api/managers/techManager1/hire", http.StatusConflict},
		{"upgrades locked", "/api/upgrades/taskSpeedUpgrade/purchase", http.StatusConflict},
		{"corrupt import", "/api/import", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := f.post(t, tt.path, `{"data": -1, "roles": {}}`)
			assert.Equal(t, tt.want, code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestAPI_HireFlow(t *testing.T) {
	f := newFixture(t, 0)
	f.clicks(t, 25)

	code, _ := f.post(t, "/api/employees/technician/tech1/hire", "")
	require.Equal(t, http.StatusOK, code)
	code, _ = f.post(t, "/api/tasks/technician/tech1/start", "")
	require.Equal(t, http.StatusOK, code)

	resp, err := http.Get(f.server.URL + "/api/events?type=ENTITY_HIRED")
	require.NoError(t, err)
	defer resp.Body.Close()
	var ev EventsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ev))
	require.Len(t, ev.Events, 1)
	assert.Equal(t, "tech1", ev.Events[0].TargetID)
}

func TestAPI_ExportImport(t *testing.T) {
	f := newFixture(t, 0)
	f.clicks(t, 3)

	resp, err := http.Get(f.server.URL + "/api/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "it-empire-save.json")
	var snap map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, 3.0, snap["data"])

	snap["data"] = 999.0
	payload, err := json.Marshal(snap)
	require.NoError(t, err)
	code, _ := f.post(t, "/api/import", string(payload))
	require.Equal(t, http.StatusOK, code)

	st, err := f.scheduler.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 999.0, st.Balance)
}

func TestAPI_Settings(t *testing.T) {
	f := newFixture(t, 0)

	req, err := http.NewRequest(http.MethodPut, f.server.URL+"/api/settings", bytes.NewBufferString(`{"theme":"dark","notificationDuration":100}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	st, err := f.scheduler.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dark", st.Settings.Theme)
}

func TestHistory_NotConfigured(t *testing.T) {
	f := newFixture(t, 0)
	resp, err := http.Get(f.server.URL + "/api/history")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

// wsReader splits the newline-batched frames the write pump sends.
type wsReader struct {
	conn    *websocket.Conn
	pending []Message
}

func (r *wsReader) next(t *testing.T) Message {
	t.Helper()
	for len(r.pending) == 0 {
		r.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := r.conn.ReadMessage()
		require.NoError(t, err)
		sc := bufio.NewScanner(bytes.NewReader(data))
		sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
		for sc.Scan() {
			var m Message
			require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
			r.pending = append(r.pending, m)
		}
	}
	m := r.pending[0]
	r.pending = r.pending[1:]
	return m
}

// until reads messages until one of type typ arrives.
func (r *wsReader) until(t *testing.T, typ string) Message {
	t.Helper()
	for i := 0; i < 200; i++ {
		if m := r.next(t); m.Type == typ {
			return m
		}
	}
	t.Fatalf("no %s message", typ)
	return Message{}
}

// collect reads until one message of each type has arrived, in any order.
func (r *wsReader) collect(t *testing.T, types ...string) map[string]Message {
	t.Helper()
	got := make(map[string]Message, len(types))
	for i := 0; i < 200 && len(got) < len(types); i++ {
		m := r.next(t)
		for _, typ := range types {
			if _, seen := got[typ]; !seen && m.Type == typ {
				got[typ] = m
			}
		}
	}
	require.Len(t, got, len(types))
	return got
}

func dial(t *testing.T, f *fixture) *wsReader {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &wsReader{conn: conn}
}

func TestWebSocket_IntentsAndBroadcasts(t *testing.T) {
	f := newFixture(t, 0)
	ws := dial(t, f)

	first := ws.until(t, MsgState)
	assert.NotNil(t, first.Data)

	require.NoError(t, ws.conn.WriteJSON(engine.Intent{Type: engine.IntentClick}))
	got := ws.collect(t, MsgBalance, MsgResult)
	assert.Equal(t, 1.0, got[MsgBalance].Data.(map[string]interface{})["balance"])
	assert.Equal(t, 1.0, got[MsgResult].Data.(map[string]interface{})["amount"])

	require.NoError(t, ws.conn.WriteJSON(engine.Intent{Type: engine.IntentHireEmployee, Role: "technician", ID: "tech1"}))
	errMsg := ws.until(t, MsgError)
	assert.Equal(t, "HIRE_EMPLOYEE", errMsg.Data.(map[string]interface{})["intent"])

	require.NoError(t, ws.conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	ws.until(t, MsgError)
}

func TestWebSocket_RateLimit(t *testing.T) {
	f := newFixture(t, 1)
	ws := dial(t, f)
	ws.until(t, MsgState)

	for i := 0; i < 5; i++ {
		require.NoError(t, ws.conn.WriteJSON(engine.Intent{Type: engine.IntentClick}))
	}
	require.NoError(t, ws.conn.WriteJSON(engine.Intent{Type: IntentGetState}))
	time.Sleep(100 * time.Millisecond)

	st, err := f.scheduler.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, st.Balance, "only the first click inside the window counts")
}

// automatedSave is a save with tech1 managed, written an hour ago.
func automatedSave(t *testing.T) []byte {
	t.Helper()
	e, err := engine.NewEngine(config.DefaultCatalog(), nil, logger.Discard())
	require.NoError(t, err)
	snap := e.Snapshot(time.Now().Add(-time.Hour))
	snap.Roles[roster.RoleTechnician].Employees["tech1"] = save.Entity{Owned: true, Automated: true, Cost: 25}
	snap.Roles[roster.RoleManager].Employees["techManager1"] = save.Entity{Owned: true, Cost: 100, Manages: "tech1"}
	data, err := save.Encode(snap)
	require.NoError(t, err)
	return data
}

func TestWebSocket_StartupNoticesReachFirstClient(t *testing.T) {
	t.Run("offline earnings", func(t *testing.T) {
		f := newFixtureFromSave(t, 0, automatedSave(t))
		ws := dial(t, f)

		got := ws.until(t, MsgNotice)
		data, ok := got.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, data["message"], "While you were away")
	})

	t.Run("unreadable save", func(t *testing.T) {
		f := newFixtureFromSave(t, 0, []byte("{not json"))
		ws := dial(t, f)

		got := ws.until(t, MsgNotice)
		data, ok := got.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, data["message"], "could not be read")
	})

	t.Run("delivered only once", func(t *testing.T) {
		f := newFixtureFromSave(t, 0, automatedSave(t))
		first := dial(t, f)
		first.until(t, MsgNotice)

		second := dial(t, f)
		second.until(t, MsgState)
		assert.Eventually(t, func() bool { return f.hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)
		f.hub.mu.Lock()
		assert.Empty(t, f.hub.pending)
		f.hub.mu.Unlock()
	})
}

func TestClient_SendAfterHubStops(t *testing.T) {
	hub := NewHub(nil, logger.Discard(), config.BufferConfig{Broadcast: 8, ClientSend: 4}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	clients := make([]*Client, 4)
	for i := range clients {
		clients[i] = NewClient(hub, nil)
		hub.Register(clients[i])
	}
	require.Eventually(t, func() bool { return hub.ClientCount() == len(clients) }, time.Second, time.Millisecond)

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.reply(Message{Type: MsgResult})
				hub.Broadcast(Message{Type: MsgBalance})
			}
		}(c)
	}
	cancel()
	<-hub.done
	wg.Wait()

	for _, c := range clients {
		assert.NotPanics(t, func() { c.reply(Message{Type: MsgResult}) })
		for range c.send {
		}
	}
	assert.Zero(t, hub.ClientCount())
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusNotImplemented, StatusFor(engine.ErrNoPersister))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(assert.AnError))
}
