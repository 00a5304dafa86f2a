package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	gws "github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/require"

	"feedlab/auth"
	"feedlab/domain"
	"feedlab/feed"
	"feedlab/repositories"
	"feedlab/services"
	"feedlab/session"
)

const testPassword = "Corr3ct-horse-battery!"

// wsClient drives one end of a net.Pipe as a WebSocket client.
type wsClient struct {
	t    *testing.T
	conn net.Conn
}

func (c *wsClient) send(payload any) {
	c.t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(c.t, err)
	require.NoError(c.t, wsutil.WriteClientMessage(c.conn, gws.OpText, data))
}

// recv reads server frames until one of the wanted type arrives. The
// snapshot pump runs concurrently with request handling, so unrelated
// frames may interleave.
func (c *wsClient) recv(wantType string, out any) {
	c.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_ = c.conn.SetReadDeadline(deadline)
		data, err := wsutil.ReadServerText(c.conn)
		require.NoError(c.t, err)

		var partial struct {
			Type string `json:"type"`
		}
		require.NoError(c.t, json.Unmarshal(data, &partial))
		if partial.Type != wantType {
			continue
		}
		require.NoError(c.t, json.Unmarshal(data, out))
		return
	}
	c.t.Fatalf("no %q frame received", wantType)
}

func newTestClient(t *testing.T) *wsClient {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := feed.NewStore(slog.Default(), repositories.NewMessageRepository(db, slog.Default()))
	require.NoError(t, err)

	tokens := auth.NewTokenManager([]byte("test-secret"), "feedlab-test", time.Hour)
	authService := services.NewAuthService(repositories.NewUserRepository(db), tokens)

	server, client := net.Pipe()
	sess := session.New(authService)
	chat := services.NewChatService(sess, store, nil, nil)
	conn := newConnection(server, slog.Default(), authService, sess, chat)

	ctx, cancel := context.WithCancel(context.Background())
	go conn.serve(ctx)
	t.Cleanup(func() {
		cancel()
		_ = client.Close()
	})

	return &wsClient{t: t, conn: client}
}

type registerPayload struct {
	Type     string `json:"type"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sendPayload struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type bareFrame struct {
	Type string `json:"type"`
}

func TestConnection_RegisterSubscribeSend(t *testing.T) {
	req := require.New(t)
	client := newTestClient(t)

	client.send(registerPayload{Type: TypeRegister, Email: "alice@example.com", Password: testPassword})

	var authFrame AuthStateFrame
	client.recv(TypeAuthState, &authFrame)
	req.Equal(domain.AuthAuthenticated, authFrame.State.Phase)
	req.NotEmpty(authFrame.Token)
	req.Equal("alice@example.com", authFrame.State.Identity.Email)

	client.send(bareFrame{Type: TypeSubscribe})

	var chatFrame ChatStateFrame
	client.recv(TypeChatState, &chatFrame)
	req.Equal(domain.ChatReady, chatFrame.State.Phase)

	// The first snapshot arrives without any message having been sent.
	var snapshot SnapshotFrame
	client.recv(TypeSnapshot, &snapshot)
	req.Empty(snapshot.Messages)

	client.send(sendPayload{Type: TypeSend, Content: "  hello  "})
	client.recv(TypeSnapshot, &snapshot)
	req.Len(snapshot.Messages, 1)
	req.Equal("hello", snapshot.Messages[0].Content)
	req.Equal("alice@example.com", snapshot.Messages[0].SenderID)
}

func TestConnection_RejectsUnauthenticatedSend(t *testing.T) {
	req := require.New(t)
	client := newTestClient(t)

	client.send(sendPayload{Type: TypeSend, Content: "hello"})

	var errFrame ErrorFrame
	client.recv(TypeError, &errFrame)
	req.Equal("not_authenticated", errFrame.Code)
	req.NotEmpty(errFrame.Message)
}

func TestConnection_BlankContentError(t *testing.T) {
	req := require.New(t)
	client := newTestClient(t)

	client.send(registerPayload{Type: TypeRegister, Email: "alice@example.com", Password: testPassword})
	var authFrame AuthStateFrame
	client.recv(TypeAuthState, &authFrame)
	req.Equal(domain.AuthAuthenticated, authFrame.State.Phase)

	client.send(sendPayload{Type: TypeSend, Content: "   "})

	var errFrame ErrorFrame
	client.recv(TypeError, &errFrame)
	req.Equal("empty_content", errFrame.Code)
}

func TestConnection_LogoutClearsSession(t *testing.T) {
	req := require.New(t)
	client := newTestClient(t)

	client.send(registerPayload{Type: TypeRegister, Email: "alice@example.com", Password: testPassword})
	var authFrame AuthStateFrame
	client.recv(TypeAuthState, &authFrame)
	req.Equal(domain.AuthAuthenticated, authFrame.State.Phase)

	client.send(bareFrame{Type: TypeLogout})
	client.recv(TypeAuthState, &authFrame)
	req.Equal(domain.AuthUnauthenticated, authFrame.State.Phase)

	client.send(sendPayload{Type: TypeSend, Content: "hello"})
	var errFrame ErrorFrame
	client.recv(TypeError, &errFrame)
	req.Equal("not_authenticated", errFrame.Code)
}

func TestConnection_RestoreFromToken(t *testing.T) {
	req := require.New(t)
	client := newTestClient(t)

	client.send(registerPayload{Type: TypeRegister, Email: "alice@example.com", Password: testPassword})
	var authFrame AuthStateFrame
	client.recv(TypeAuthState, &authFrame)
	token := authFrame.Token

	client.send(bareFrame{Type: TypeLogout})
	client.recv(TypeAuthState, &authFrame)

	client.send(struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}{Type: TypeRestore, Token: token})
	client.recv(TypeAuthState, &authFrame)
	req.Equal(domain.AuthAuthenticated, authFrame.State.Phase)
	req.Equal("alice@example.com", authFrame.State.Identity.Email)

	// Garbage tokens fail without changing the session.
	client.send(struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}{Type: TypeRestore, Token: "garbage"})
	client.recv(TypeAuthState, &authFrame)
	req.Equal(domain.AuthError, authFrame.State.Phase)
	req.NotEmpty(authFrame.State.Message)
}

func TestConnection_PingPong(t *testing.T) {
	client := newTestClient(t)

	client.send(bareFrame{Type: TypePing})
	var pong PongFrame
	client.recv(TypePong, &pong)
	require.Equal(t, TypePong, pong.Type)
}
