//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"feedlab/errors"
)

const messagePrefix = "msg:"

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	DeleteMessage(message DiskMessage) error
	LoadMessages() ([]DiskMessage, error)
}

// MessageRepository persists the feed in BadgerDB.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// DiskMessage is the storage-level representation of a feed entry.
type DiskMessage struct {
	ID        uuid.UUID `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Language  string    `json:"language,omitempty"`
	Timestamp int64     `json:"timestamp"`
	Seq       uint64    `json:"seq"`
}

// messageKey builds "msg:{timestamp_padded}:{seq_padded}:{uuid}".
// Zero padding makes the lexicographical key order equal the
// (timestamp, seq) acceptance order, so a forward prefix scan returns
// the feed already sorted. The UUID suffix keeps keys unique even if
// a record is ever rewritten.
func messageKey(m DiskMessage) []byte {
	return []byte(fmt.Sprintf("%s%013d:%016d:%s", messagePrefix, m.Timestamp, m.Seq, m.ID))
}

// StoreMessage persists a message. The caller has already assigned
// ID, Timestamp and Seq.
func (r MessageRepository) StoreMessage(message DiskMessage) error {
	bytes, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%w: marshal message: %v", errors.ErrStorage, err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message), bytes)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return nil
}

// DeleteMessage removes a message record. Deleting an absent key is not
// an error at this layer; existence is the store's concern.
func (r MessageRepository) DeleteMessage(message DiskMessage) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(messageKey(message))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return nil
}

// LoadMessages returns every stored message in (timestamp, seq) order.
// Thanks to the padded key layout a plain forward scan is enough.
func (r MessageRepository) LoadMessages() ([]DiskMessage, error) {
	var messages []DiskMessage
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(messagePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(value []byte) error {
				var m DiskMessage
				if err := json.Unmarshal(value, &m); err != nil {
					// A corrupt record must not hide the rest of the log.
					r.log.Warn("Skipping unreadable message record",
						"key", string(item.Key()), "error", err)
					return nil
				}
				messages = append(messages, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return messages, nil
}
