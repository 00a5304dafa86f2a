package repositories

import (
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Store_And_Load_Messages_In_Acceptance_Order(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default())

	diskMessages := []DiskMessage{
		{ID: uuid.New(), Sender: "alice@example.com", Content: "first", Timestamp: 1000, Seq: 1},
		{ID: uuid.New(), Sender: "bob@example.com", Content: "second", Timestamp: 1000, Seq: 2},
		{ID: uuid.New(), Sender: "clara@example.com", Content: "third", Timestamp: 2000, Seq: 3},
	}
	// Store out of order on purpose; the key layout must restore order.
	for _, i := range []int{2, 0, 1} {
		req.NoError(repository.StoreMessage(diskMessages[i]))
	}

	fetched, err := repository.LoadMessages()
	req.NoError(err)
	req.Equal(diskMessages, fetched)
}

func Test_Delete_Message(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default())

	kept := DiskMessage{ID: uuid.New(), Sender: "alice@example.com", Content: "kept", Timestamp: 1000, Seq: 1}
	gone := DiskMessage{ID: uuid.New(), Sender: "alice@example.com", Content: "gone", Timestamp: 2000, Seq: 2}
	req.NoError(repository.StoreMessage(kept))
	req.NoError(repository.StoreMessage(gone))

	req.NoError(repository.DeleteMessage(gone))

	fetched, err := repository.LoadMessages()
	req.NoError(err)
	req.Equal([]DiskMessage{kept}, fetched)

	// Deleting again is not an error at the storage layer.
	req.NoError(repository.DeleteMessage(gone))
}

func Test_Load_Empty_Log(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default())

	fetched, err := repository.LoadMessages()
	req.NoError(err)
	req.Empty(fetched)
}
