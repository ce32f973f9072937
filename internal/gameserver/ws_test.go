package gameserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/cory-johannsen/nightfall/internal/gameserver"
	"github.com/cory-johannsen/nightfall/internal/storage/postgres"
)

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) Check(ctx context.Context) error { return f(ctx) }

type fakeHistory struct {
	games []postgres.GameRecord
}

func (h *fakeHistory) Recent(_ context.Context, limit int) ([]postgres.GameRecord, error) {
	if limit < len(h.games) {
		return h.games[:limit], nil
	}
	return h.games, nil
}

func (h *fakeHistory) Get(_ context.Context, id string) (postgres.GameRecord, error) {
	for _, g := range h.games {
		if g.ID == id {
			return g, nil
		}
	}
	return postgres.GameRecord{}, postgres.ErrGameNotFound
}

func newServer(t *testing.T, checks map[string]gameserver.Checker, history gameserver.History) *httptest.Server {
	t.Helper()
	m, _ := newManager(t, gameConfig(), nil)
	h := gameserver.NewHandler(m, checks, history, nil, zap.NewNop())
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func createRoom(t *testing.T, srv *httptest.Server, body string) string {
	t.Helper()
	resp, err := http.Post(srv.URL+"/rooms", "application/yaml", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out["id"]
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

type packet struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// readUntil reads packets until one of type want arrives.
func readUntil(ctx context.Context, t *testing.T, conn *websocket.Conn, want string) packet {
	t.Helper()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err, "waiting for %s", want)
		var p packet
		require.NoError(t, json.Unmarshal(data, &p))
		if p.Type == want {
			return p
		}
	}
}

const threePlayerYAML = `
role_list:
  - role: detective
  - role: mafioso
  - role: villager
`

func TestHandler_PlayThroughWebsocket(t *testing.T) {
	srv := newServer(t, nil, nil)
	id := createRoom(t, srv, threePlayerYAML)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conns := make([]*websocket.Conn, 0, 3)
	tokens := make([]string, 0, 3)
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		conn, _, err := websocket.Dial(ctx, wsURL(srv, "/rooms/"+id+"/ws?name="+name), nil)
		require.NoError(t, err)
		defer conn.CloseNow()

		p := readUntil(ctx, t, conn, "joined")
		var joined gameserver.JoinedPacket
		require.NoError(t, json.Unmarshal(p.Payload, &joined))
		assert.Equal(t, name, joined.Name)
		conns = append(conns, conn)
		tokens = append(tokens, joined.Token)
	}

	require.NoError(t, conns[0].Write(ctx, websocket.MessageText, []byte(`{"type":"start_game"}`)))
	for i, conn := range conns {
		p := readUntil(ctx, t, conn, "your_index")
		var idx struct {
			Index int `json:"index"`
		}
		require.NoError(t, json.Unmarshal(p.Payload, &idx))
		assert.Equal(t, i, idx.Index)
	}

	// Bob drops and comes back with his token.
	require.NoError(t, conns[1].Close(websocket.StatusNormalClosure, "bye"))
	again, _, err := websocket.Dial(ctx, wsURL(srv, "/rooms/"+id+"/ws?token="+tokens[1]), nil)
	require.NoError(t, err)
	defer again.CloseNow()
	readUntil(ctx, t, again, "your_controllers")
}

func TestHandler_ConnectErrors(t *testing.T) {
	srv := newServer(t, nil, nil)
	id := createRoom(t, srv, "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tests := []struct {
		name string
		path string
		want int
	}{
		{"unknown room", "/rooms/nope/ws?name=Alice", http.StatusNotFound},
		{"no name or token", "/rooms/" + id + "/ws", http.StatusBadRequest},
		{"bad token", "/rooms/" + id + "/ws?token=bogus", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.Dial(ctx, wsURL(srv, tt.path), nil)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestHandler_CreateRoomRejectsBadSettings(t *testing.T) {
	srv := newServer(t, nil, nil)
	resp, err := http.Post(srv.URL+"/rooms", "application/yaml", strings.NewReader("max_day: 0\nmystery: 1\n"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_ListRooms(t *testing.T) {
	srv := newServer(t, nil, nil)
	id := createRoom(t, srv, "")

	resp, err := http.Get(srv.URL + "/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	var rooms []gameserver.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, id, rooms[0].ID)
	assert.False(t, rooms[0].Started)
}

func TestHandler_Health(t *testing.T) {
	healthy := newServer(t, map[string]gameserver.Checker{
		"postgres": checkerFunc(func(context.Context) error { return nil }),
	}, nil)
	resp, err := http.Get(healthy.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	failing := newServer(t, map[string]gameserver.Checker{
		"postgres": checkerFunc(func(context.Context) error { return errors.New("down") }),
	}, nil)
	resp, err = http.Get(failing.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), `"postgres":{"status":"error"}`)
}

func TestHandler_Games(t *testing.T) {
	noStats := newServer(t, nil, nil)
	resp, err := http.Get(noStats.URL + "/games")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	history := &fakeHistory{games: []postgres.GameRecord{
		{ID: "11111111-1111-1111-1111-111111111111", FinalDay: 3, Conclusion: "town"},
		{ID: "22222222-2222-2222-2222-222222222222", FinalDay: 5, Conclusion: "mafia"},
	}}
	srv := newServer(t, nil, history)

	resp, err = http.Get(srv.URL + "/games?limit=1")
	require.NoError(t, err)
	var games []postgres.GameRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&games))
	resp.Body.Close()
	require.Len(t, games, 1)
	assert.Equal(t, "town", games[0].Conclusion)

	resp, err = http.Get(srv.URL + "/games?limit=0")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/games/22222222-2222-2222-2222-222222222222")
	require.NoError(t, err)
	var game postgres.GameRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&game))
	resp.Body.Close()
	assert.Equal(t, 5, game.FinalDay)

	resp, err = http.Get(srv.URL + "/games/33333333-3333-3333-3333-333333333333")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
