package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurobon/gitlane/internal/git/gittest"
	"github.com/kurobon/gitlane/internal/refs"
	"github.com/kurobon/gitlane/internal/state"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedMerge(repo *gittest.Repo) {
	repo.Commit("a", 100)
	repo.Commit("b", 200, "a")
	repo.Commit("f", 250, "b")
	repo.Commit("c", 300, "b")
	repo.Commit("m", 400, "c", "f")
	repo.Branch("master", "m")
	repo.Branch("feature", "f")
}

func newTestServer(t *testing.T, repo *gittest.Repo) (*Server, *httptest.Server) {
	t.Helper()
	ctrl, err := state.NewController(repo.Repository, state.Options{Logger: discardLogger()})
	require.NoError(t, err)
	_, err = ctrl.Load(context.Background())
	require.NoError(t, err)

	srv := NewServer(ctrl, discardLogger())
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return srv, ts
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body any, v any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(url, "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestServerEndpoints(t *testing.T) {
	repo := gittest.New(t)
	seedMerge(repo)
	_, ts := newTestServer(t, repo)

	t.Run("Ping", func(t *testing.T) {
		var res map[string]string
		assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/ping", &res))
		assert.Equal(t, "pong", res["message"])
	})

	t.Run("Log", func(t *testing.T) {
		var res LogResponse
		require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/log", &res))
		assert.Equal(t, 5, res.Total)
		assert.True(t, res.Complete)
		require.Len(t, res.Entries, 5)
		assert.Equal(t, "•─┐ ", res.Entries[0].Text)
		assert.Equal(t, repo.Hash("m").String(), res.Entries[0].ID)
		assert.Equal(t, []string{"master"}, res.Entries[0].Refs)
		require.Len(t, res.Entries[0].Graph, 4)
		assert.Equal(t, res.Entries[0].Text, res.Entries[0].Graph.String())
	})

	t.Run("LogPaging", func(t *testing.T) {
		var res LogResponse
		require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/log?offset=1&limit=2", &res))
		assert.Equal(t, 1, res.Offset)
		require.Len(t, res.Entries, 2)
		assert.Equal(t, "c", res.Entries[0].Summary)
		assert.Equal(t, "f", res.Entries[1].Summary)
	})

	t.Run("LogBadParams", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/log?limit=x", nil))
		assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/log?offset=-1", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, postJSON(t, ts.URL+"/api/log", nil, nil))
	})

	t.Run("Commit", func(t *testing.T) {
		var d state.CommitDetail
		require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/commit?id="+repo.Hash("m").String(), &d))
		assert.Equal(t, "m", d.Summary)
		assert.Len(t, d.Parents, 2)
		assert.Equal(t, int64(400), d.CorrectedTime)

		assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/commit?id=abc", nil))
		missing := strings.Repeat("ab", 20)
		assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/commit?id="+missing, nil))
	})

	t.Run("Refs", func(t *testing.T) {
		var res RefsResponse
		require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/refs", &res))
		require.Len(t, res.Refs, 2)
		assert.Equal(t, "refs/heads/feature", res.Refs[0].Name)
		assert.Equal(t, refs.KindBranch, res.Refs[0].Kind)
		assert.True(t, res.Refs[0].Active)
		require.Len(t, res.Tree, 1)
		assert.Equal(t, "heads", res.Tree[0].Name)
		assert.Len(t, res.Tree[0].Children, 2)
	})

	t.Run("Metrics", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "gitlane_commits_drained_total 5")
	})
}

func TestServerSetActive(t *testing.T) {
	repo := gittest.New(t)
	seedMerge(repo)
	_, ts := newTestServer(t, repo)

	var status state.Status
	require.Equal(t, http.StatusOK, postJSON(t, ts.URL+"/api/refs/active",
		SetActiveRequest{Name: "feature", Active: false}, &status))
	assert.Equal(t, 5, status.Total)

	var res LogResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/log", &res))
	assert.Equal(t, "f", res.Entries[2].Summary)
	assert.Empty(t, res.Entries[2].Refs)

	require.Equal(t, http.StatusOK, postJSON(t, ts.URL+"/api/refs/active",
		SetActiveRequest{Name: "heads", Active: false, Prefix: true}, &status))
	assert.Equal(t, 0, status.Heads)
	assert.Equal(t, 0, status.Total)

	assert.Equal(t, http.StatusNotFound, postJSON(t, ts.URL+"/api/refs/active",
		SetActiveRequest{Name: "nope"}, nil))

	resp, err := http.Post(ts.URL+"/api/refs/active", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServerReloadNotifiesClients(t *testing.T) {
	repo := gittest.New(t)
	seedMerge(repo)
	_, ts := newTestServer(t, repo)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	type logMessage struct {
		Type MessageType  `json:"type"`
		Data state.Status `json:"data"`
	}

	var msg logMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypeLog, msg.Type)
	assert.Equal(t, 5, msg.Data.Total)

	repo.Commit("n", 500, "m")
	repo.Branch("master", "n")

	var status state.Status
	require.Equal(t, http.StatusOK, postJSON(t, ts.URL+"/api/reload", nil, &status))
	assert.Equal(t, 6, status.Total)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypeLog, msg.Type)
	assert.Equal(t, 6, msg.Data.Total)
	assert.True(t, msg.Data.Complete)
}
