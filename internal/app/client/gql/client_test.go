package gql

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"memorizefacts/internal/domain/replication"
	"memorizefacts/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeServer минимальный сервер GraphQL, отвечающий по имени операции
type fakeServer struct {
	mu       sync.Mutex
	password string
	tokens   map[string]bool
	logins   int
	requests []Request
	auth     []string
	feed     string
	push     string
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	fs := &fakeServer{
		password: "secret",
		tokens:   map[string]bool{},
		feed:     `{"feedForRxDBReplicationTag":[]}`,
		push:     `{"setRxDBReplicationTags":{"id":null,"rejected":[]}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(srv.Close)
	return fs, srv
}

func (fs *fakeServer) expire() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.tokens = map[string]bool{}
}

func (fs *fakeServer) serve(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.requests = append(fs.requests, req)
	fs.auth = append(fs.auth, r.Header.Get("Authorization"))

	w.Header().Set("Content-Type", "application/json")
	switch req.OperationName {
	case "authenticateUserWithPassword":
		fs.logins++
		if req.Variables["password"] != fs.password {
			_, _ = io.WriteString(w, `{"data":{"authenticateUserWithPassword":{"__typename":"UserAuthenticationWithPasswordFailure","message":"Authentication failed."}}}`)
			return
		}
		token := "token-" + string(rune('0'+fs.logins))
		fs.tokens[token] = true
		_, _ = io.WriteString(w, `{"data":{"authenticateUserWithPassword":{"__typename":"UserAuthenticationWithPasswordSuccess","sessionToken":"`+token+`"}}}`)
		return
	case "createUser":
		_, _ = io.WriteString(w, `{"data":{"createUser":{"id":"1","email":"user@example.com"}}}`)
		return
	}

	if len(r.Header.Get("Authorization")) < 7 || !fs.tokens[r.Header.Get("Authorization")[7:]] {
		_, _ = io.WriteString(w, `{"data":null,"errors":[{"message":"not signed in","extensions":{"code":"UNAUTHENTICATED"}}]}`)
		return
	}

	switch req.OperationName {
	case "FeedTags":
		_, _ = io.WriteString(w, `{"data":`+fs.feed+`}`)
	case "CreateTags":
		_, _ = io.WriteString(w, `{"data":`+fs.push+`}`)
	default:
		_, _ = io.WriteString(w, `{"errors":[{"message":"unknown operation"}]}`)
	}
}

func creds(password string) replication.Credentials {
	return replication.Credentials{Login: "user@example.com", Password: password}
}

func TestConnector_Connect(t *testing.T) {
	_, srv := newFakeServer(t)
	conn := NewConnector(srv.URL, discard())

	remote, err := conn.Connect(context.Background(), creds("secret"))
	require.NoError(t, err)
	assert.NotNil(t, remote)

	_, err = conn.Connect(context.Background(), creds("wrong"))
	assert.ErrorIs(t, err, replication.ErrUnauthorized)
}

func TestConnector_EmptyURL(t *testing.T) {
	_, err := NewConnector("", discard()).Connect(context.Background(), creds("secret"))
	assert.ErrorIs(t, err, replication.ErrConfig)
}

func TestRemote_Pull(t *testing.T) {
	fs, srv := newFakeServer(t)
	fs.feed = `{"feedForRxDBReplicationTag":[{"id":"a","name":"physics","updatedAt":"2024-03-10T12:30:00.000Z","deleted":false}]}`

	remote, err := NewConnector(srv.URL, discard()).Connect(context.Background(), creds("secret"))
	require.NoError(t, err)

	cursor := model.Cursor{LastID: "z", LastUpdatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	docs, err := remote.Pull(context.Background(), model.CollectionTags, cursor, 5)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "physics", docs[0].Name())

	fs.mu.Lock()
	last := fs.requests[len(fs.requests)-1]
	auth := fs.auth[len(fs.auth)-1]
	fs.mu.Unlock()
	assert.Equal(t, "FeedTags", last.OperationName)
	assert.Equal(t, "z", last.Variables["lastId"])
	assert.Equal(t, "2024-03-01T00:00:00.000Z", last.Variables["minUpdatedAt"])
	assert.Equal(t, float64(5), last.Variables["limit"])
	assert.Equal(t, "Bearer token-1", auth)
}

func TestRemote_PushRejections(t *testing.T) {
	fs, srv := newFakeServer(t)
	fs.push = `{"setRxDBReplicationTags":{"id":"a","rejected":[{"frontendId":"b","reason":"STALE_WRITE"}]}}`

	remote, err := NewConnector(srv.URL, discard()).Connect(context.Background(), creds("secret"))
	require.NoError(t, err)

	a, _ := model.NewDocument(model.CollectionTags, "a", map[string]string{"name": "a"})
	b, _ := model.NewDocument(model.CollectionTags, "b", map[string]string{"name": "b"})
	rejected, err := remote.Push(context.Background(), model.CollectionTags, []model.Document{a, b})
	require.NoError(t, err)
	assert.Equal(t, []replication.Rejection{{ID: "b", Reason: "STALE_WRITE"}}, rejected)
}

func TestRemote_UnsupportedCollection(t *testing.T) {
	_, srv := newFakeServer(t)
	remote, err := NewConnector(srv.URL, discard()).Connect(context.Background(), creds("secret"))
	require.NoError(t, err)

	_, err = remote.Pull(context.Background(), model.CollectionFacts, model.InitialCursor(), 5)
	assert.ErrorIs(t, err, replication.ErrUnsupportedCollection)
	_, err = remote.Push(context.Background(), model.CollectionFacts, nil)
	assert.ErrorIs(t, err, replication.ErrUnsupportedCollection)
}

func TestRemote_ReloginOnExpiredSession(t *testing.T) {
	fs, srv := newFakeServer(t)
	remote, err := NewConnector(srv.URL, discard()).Connect(context.Background(), creds("secret"))
	require.NoError(t, err)

	fs.expire()

	_, err = remote.Pull(context.Background(), model.CollectionTags, model.InitialCursor(), 5)
	require.NoError(t, err)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Equal(t, 2, fs.logins)
	assert.Equal(t, "Bearer token-2", fs.auth[len(fs.auth)-1])
}

func TestClient_Do(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "data", status: http.StatusOK, body: `{"data":{"ok":true}}`},
		{name: "graphql errors", status: http.StatusOK, body: `{"errors":[{"message":"boom"}]}`, wantErr: ErrServer},
		{name: "unauthenticated", status: http.StatusOK, body: `{"errors":[{"message":"no","extensions":{"code":"UNAUTHENTICATED"}}]}`, wantErr: ErrUnauthorized},
		{name: "http 401", status: http.StatusUnauthorized, body: ``, wantErr: ErrUnauthorized},
		{name: "http 502", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, wantErr: ErrServer},
		{name: "not json", status: http.StatusOK, body: `hello`, wantErr: ErrMalformedResponse},
		{name: "null data", status: http.StatusOK, body: `{"data":null}`, wantErr: ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			client, err := NewClient(srv.URL, discard())
			require.NoError(t, err)

			data, err := client.Do(context.Background(), Request{Query: "{ ok }"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, `{"ok":true}`, string(data))
		})
	}
}

func TestClient_Register(t *testing.T) {
	fs, srv := newFakeServer(t)
	client, err := NewClient(srv.URL, discard())
	require.NoError(t, err)

	require.NoError(t, client.Register(context.Background(), "user@example.com", "secret"))

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Equal(t, "createUser", fs.requests[0].OperationName)
}

func TestClient_ContextCancelled(t *testing.T) {
	_, srv := newFakeServer(t)
	client, err := NewClient(srv.URL, discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Login(ctx, "user@example.com", "secret")
	assert.ErrorIs(t, err, context.Canceled)
}
