package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"feedlab/domain"
	"feedlab/errors"
	"feedlab/feed"
	"feedlab/mocks"
	"feedlab/moderation"
	"feedlab/repositories"
	"feedlab/search"
	"feedlab/session"
)

type chatFixture struct {
	store    *feed.Store
	session  *session.State
	provider *mocks.MockIdentityProvider
	service  *ChatService
}

func newChatFixture(t *testing.T, moderator *moderation.Moderator, index *search.Index) *chatFixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := feed.NewStore(slog.Default(), repositories.NewMessageRepository(db, slog.Default()))
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	provider := mocks.NewMockIdentityProvider(ctrl)
	sess := session.New(provider)

	return &chatFixture{
		store:    store,
		session:  sess,
		provider: provider,
		service:  NewChatService(sess, store, moderator, index),
	}
}

func (f *chatFixture) loginAs(t *testing.T, email string) {
	t.Helper()
	f.provider.EXPECT().
		Authenticate(email, gomock.Any()).
		Return(domain.Identity{UID: "uid-" + email, Email: email}, nil)
	_, err := f.session.Login(email, "pw")
	require.NoError(t, err)
}

func latestSnapshot(t *testing.T, sub *feed.Subscription) []domain.Message {
	t.Helper()
	select {
	case snapshot := <-sub.Snapshots():
		return snapshot
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
		return nil
	}
}

func TestChatService_SendMessage_Validation(t *testing.T) {
	f := newChatFixture(t, nil, nil)
	f.loginAs(t, "alice@example.com")

	for _, content := range []string{"", "   ", "\n\t"} {
		t.Run("blank", func(t *testing.T) {
			req := require.New(t)
			_, err := f.service.SendMessage(content)
			req.ErrorIs(err, errors.ErrEmptyContent)
			req.Zero(f.store.Len())
		})
	}
}

func TestChatService_SendMessage_RequiresAuthentication(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t, nil, nil)

	_, err := f.service.SendMessage("hello")
	req.ErrorIs(err, errors.ErrNotAuthenticated)
	req.Zero(f.store.Len())
}

func TestChatService_SendMessage_TrimsAndStampsSender(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t, nil, nil)
	f.loginAs(t, "alice@example.com")

	message, err := f.service.SendMessage("  hello world  ")
	req.NoError(err)
	req.Equal("alice@example.com", message.SenderID)
	req.Equal("hello world", message.Content)

	stored, ok := f.store.Get(message.ID)
	req.True(ok)
	req.Equal(message, stored)
}

func TestChatService_SendMessage_AppliesModeration(t *testing.T) {
	req := require.New(t)
	moderator, err := moderation.NewModerator([]string{"badger"}, '*')
	req.NoError(err)
	f := newChatFixture(t, moderator, nil)
	f.loginAs(t, "alice@example.com")

	message, err := f.service.SendMessage("release the badger")
	req.NoError(err)
	req.Equal("release the ******", message.Content)
}

func TestChatService_DeleteMessage_AccessControl(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t, nil, nil)

	// Unauthenticated callers are rejected before any lookup.
	req.ErrorIs(f.service.DeleteMessage(uuid.New()), errors.ErrNotAuthenticated)

	f.loginAs(t, "alice@example.com")
	hello, err := f.service.SendMessage("Hello")
	req.NoError(err)

	req.ErrorIs(f.service.DeleteMessage(uuid.New()), errors.ErrMessageNotFound)

	// bob may not delete alice's message.
	f.loginAs(t, "bob@example.com")
	req.ErrorIs(f.service.DeleteMessage(hello.ID), errors.ErrForbidden)

	// alice may.
	f.loginAs(t, "alice@example.com")
	req.NoError(f.service.DeleteMessage(hello.ID))
	req.Zero(f.store.Len())
}

// Mirrors the two-user walkthrough: alice and bob publish, a subscriber
// sees [Hello, Hi], bob cannot delete alice's message, alice can, and
// the next snapshot is [Hi].
func TestChatService_TwoUserScenario(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t, nil, nil)

	f.loginAs(t, "alice@example.com")
	hello, err := f.service.SendMessage("Hello")
	req.NoError(err)

	f.loginAs(t, "bob@example.com")
	_, err = f.service.SendMessage("Hi")
	req.NoError(err)

	sub, err := f.service.SubscribeToFeed()
	req.NoError(err)
	defer f.service.Unsubscribe(sub)

	snapshot := latestSnapshot(t, sub)
	req.Len(snapshot, 2)
	req.Equal("Hello", snapshot[0].Content)
	req.Equal("Hi", snapshot[1].Content)
	req.True(snapshot[0].Before(snapshot[1]))

	req.ErrorIs(f.service.DeleteMessage(hello.ID), errors.ErrForbidden)

	f.loginAs(t, "alice@example.com")
	req.NoError(f.service.DeleteMessage(hello.ID))

	snapshot = latestSnapshot(t, sub)
	req.Len(snapshot, 1)
	req.Equal("Hi", snapshot[0].Content)
}

func TestChatService_SubscribeToFeed_RequiresAuthentication(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t, nil, nil)

	_, err := f.service.SubscribeToFeed()
	req.ErrorIs(err, errors.ErrNotAuthenticated)
}

func TestChatService_Search(t *testing.T) {
	req := require.New(t)
	index, err := search.Open(t.TempDir(), slog.Default())
	req.NoError(err)
	t.Cleanup(func() { _ = index.Close() })

	f := newChatFixture(t, nil, index)

	_, err = f.service.Search(context.Background(), "hello")
	req.ErrorIs(err, errors.ErrNotAuthenticated)

	f.loginAs(t, "alice@example.com")
	message, err := f.service.SendMessage("searchable greetings")
	req.NoError(err)
	req.NoError(index.Add(message.ID, message.SenderID, message.Content))

	results, err := f.service.Search(context.Background(), "searchable")
	req.NoError(err)
	req.Len(results, 1)
	req.Equal(message, results[0])

	// Hits are resolved through the store: a removed message never
	// surfaces, even while still indexed.
	req.NoError(f.service.DeleteMessage(message.ID))
	results, err = f.service.Search(context.Background(), "searchable")
	req.NoError(err)
	req.Empty(results)
}
