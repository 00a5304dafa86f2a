package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"

	"feedlab/domain"
	"feedlab/errors"
	"feedlab/feed"
	"feedlab/services"
	"feedlab/session"
)

// Connection is one WebSocket client. Each connection owns its own
// session and chat service, so authentication on one socket is never
// visible on another. Outbound frames are serialized by writeMu so the
// snapshot pump and the request handler never interleave frame bytes.
type Connection struct {
	id      uuid.UUID
	log     *slog.Logger
	conn    net.Conn
	writeMu sync.Mutex

	auth    services.IAuthService
	session *session.State
	chat    services.IChatService

	mu  sync.Mutex
	sub *feed.Subscription
}

func newConnection(conn net.Conn, log *slog.Logger, auth services.IAuthService,
	sess *session.State, chat services.IChatService) *Connection {
	id := uuid.New()
	return &Connection{
		id:      id,
		log:     log.With(slog.String("connection_id", id.String())),
		conn:    conn,
		auth:    auth,
		session: sess,
		chat:    chat,
	}
}

// serve reads frames until the peer disconnects, then tears down the
// subscription and the socket.
func (c *Connection) serve(ctx context.Context) {
	defer c.teardown()

	for {
		data, _, err := wsutil.ReadClientData(c.conn)
		if err != nil {
			c.log.Debug("connection closed", slog.Any("error", err))
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.writeError("malformed_frame", err.Error())
			continue
		}
		c.dispatch(ctx, env)
	}
}

func (c *Connection) dispatch(ctx context.Context, env Envelope) {
	switch env.Type {
	case TypeRegister:
		c.handleRegister(env)
	case TypeLogin:
		c.handleLogin(env)
	case TypeRestore:
		c.handleRestore(env)
	case TypeLogout:
		c.handleLogout()
	case TypeSend:
		c.handleSend(env)
	case TypeDelete:
		c.handleDelete(env)
	case TypeSubscribe:
		c.handleSubscribe()
	case TypeUnsubscribe:
		c.handleUnsubscribe()
	case TypeSearch:
		c.handleSearch(ctx, env)
	case TypePing:
		c.write(PongFrame{Type: TypePong})
	default:
		c.writeError("unknown_frame", "unknown frame type: "+env.Type)
	}
}

func (c *Connection) handleRegister(env Envelope) {
	frame, err := decode[RegisterFrame](env)
	if err != nil {
		c.writeError("malformed_frame", err.Error())
		return
	}

	token, identity, err := c.auth.Register(frame.Email, frame.Password)
	if err != nil {
		c.writeAuthState(domain.AuthFailure(err.Error()), "")
		return
	}

	// A fresh account is logged in immediately, seeded from its own
	// token so the session goes through the provider like any restore.
	if _, err := c.session.Restore(string(token)); err != nil {
		c.writeAuthState(domain.AuthFailure(err.Error()), "")
		return
	}
	c.writeAuthState(domain.Authenticated(identity), string(token))
}

func (c *Connection) handleLogin(env Envelope) {
	frame, err := decode[LoginFrame](env)
	if err != nil {
		c.writeError("malformed_frame", err.Error())
		return
	}

	token, identity, err := c.auth.Login(frame.Email, frame.Password)
	if err != nil {
		// A failed login leaves the current session untouched.
		c.writeAuthState(domain.AuthFailure(err.Error()), "")
		return
	}
	if _, err := c.session.Restore(string(token)); err != nil {
		c.writeAuthState(domain.AuthFailure(err.Error()), "")
		return
	}
	c.writeAuthState(domain.Authenticated(identity), string(token))
}

func (c *Connection) handleRestore(env Envelope) {
	frame, err := decode[RestoreFrame](env)
	if err != nil {
		c.writeError("malformed_frame", err.Error())
		return
	}

	identity, err := c.session.Restore(frame.Token)
	if err != nil {
		c.writeAuthState(domain.AuthFailure(err.Error()), "")
		return
	}
	c.writeAuthState(domain.Authenticated(identity), frame.Token)
}

func (c *Connection) handleLogout() {
	c.stopSubscription()
	c.session.Logout()
	c.writeAuthState(domain.Unauthenticated(), "")
}

func (c *Connection) handleSend(env Envelope) {
	frame, err := decode[SendFrame](env)
	if err != nil {
		c.writeError("malformed_frame", err.Error())
		return
	}
	if _, err := c.chat.SendMessage(frame.Content); err != nil {
		c.writeChatError(err)
	}
}

func (c *Connection) handleDelete(env Envelope) {
	frame, err := decode[DeleteFrame](env)
	if err != nil {
		c.writeError("malformed_frame", err.Error())
		return
	}
	id, err := uuid.Parse(frame.ID)
	if err != nil {
		c.writeError("malformed_frame", "invalid message id")
		return
	}
	if err := c.chat.DeleteMessage(id); err != nil {
		c.writeChatError(err)
	}
}

// handleSubscribe attaches this connection to the feed. The first
// snapshot arrives immediately; subsequent ones follow every change.
// Subscribing twice is a no-op.
func (c *Connection) handleSubscribe() {
	c.mu.Lock()
	already := c.sub != nil
	c.mu.Unlock()
	if already {
		return
	}

	sub, err := c.chat.SubscribeToFeed()
	if err != nil {
		c.writeChatError(err)
		return
	}

	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()

	c.write(ChatStateFrame{Type: TypeChatState, State: domain.ChatState{Phase: domain.ChatReady}})
	go c.pump(sub)
}

func (c *Connection) handleUnsubscribe() {
	c.stopSubscription()
}

func (c *Connection) handleSearch(ctx context.Context, env Envelope) {
	frame, err := decode[SearchFrame](env)
	if err != nil {
		c.writeError("malformed_frame", err.Error())
		return
	}
	results, err := c.chat.Search(ctx, frame.Term)
	if err != nil {
		c.writeChatError(err)
		return
	}
	c.write(SearchResultFrame{Type: TypeSearchResult, Term: frame.Term, Messages: results})
}

// pump forwards feed snapshots until the subscription closes.
func (c *Connection) pump(sub *feed.Subscription) {
	for snapshot := range sub.Snapshots() {
		if err := c.write(SnapshotFrame{Type: TypeSnapshot, Messages: snapshot}); err != nil {
			c.log.Debug("snapshot write failed", slog.Any("error", err))
			return
		}
	}
}

// stopSubscription detaches from the feed. Safe to call repeatedly and
// with no active subscription.
func (c *Connection) stopSubscription() {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	if sub != nil {
		c.chat.Unsubscribe(sub)
	}
}

func (c *Connection) teardown() {
	c.stopSubscription()
	_ = c.conn.Close()
}

func (c *Connection) write(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsutil.WriteServerMessage(c.conn, ws.OpText, data)
}

func (c *Connection) writeAuthState(state domain.AuthState, token string) {
	c.write(AuthStateFrame{Type: TypeAuthState, State: state, Token: token})
}

func (c *Connection) writeError(code, message string) {
	c.write(ErrorFrame{Type: TypeError, Code: code, Message: message})
}

// writeChatError maps a chat failure to a stable code. The message is
// always the error's own text, fit for direct display.
func (c *Connection) writeChatError(err error) {
	c.writeError(errorCode(err), err.Error())
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errors.ErrEmptyContent):
		return "empty_content"
	case errors.Is(err, errors.ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, errors.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, errors.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, errors.ErrForbidden):
		return "forbidden"
	case errors.Is(err, errors.ErrMessageNotFound):
		return "not_found"
	case errors.Is(err, errors.ErrUserAlreadyExists):
		return "user_exists"
	case errors.Is(err, errors.ErrStorage):
		return "storage"
	default:
		return "internal"
	}
}
