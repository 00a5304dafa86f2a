// Package feed implements the message store: a durable, ordered,
// append-only log with live snapshot fan-out to subscribers.
package feed

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"feedlab/domain"
	"feedlab/errors"
	"feedlab/repositories"
)

// Store owns the canonical message sequence. Append, Remove and
// subscriber notification are serialized under a single writer lock so
// timestamp assignment, acceptance order and fan-out are observed
// identically by every subscriber. Snapshot delivery itself never
// blocks the writer (see Subscription.push).
type Store struct {
	mu          sync.Mutex
	log         *slog.Logger
	repo        repositories.IMessageRepository
	messages    []domain.Message // ascending by (Timestamp, Seq)
	lastStamp   int64
	seq         uint64
	subscribers map[*Subscription]struct{}
	now         func() time.Time
}

// NewStore loads the persisted log and resumes the acceptance sequence
// where the previous run left off.
func NewStore(log *slog.Logger, repo repositories.IMessageRepository) (*Store, error) {
	stored, err := repo.LoadMessages()
	if err != nil {
		return nil, err
	}

	s := &Store{
		log:         log,
		repo:        repo,
		subscribers: make(map[*Subscription]struct{}),
		now:         time.Now,
	}
	s.messages = lo.Map(stored, func(m repositories.DiskMessage, _ int) domain.Message {
		return domain.Message{
			ID:        m.ID,
			SenderID:  m.Sender,
			Content:   m.Content,
			Language:  m.Language,
			Timestamp: m.Timestamp,
			Seq:       m.Seq,
		}
	})
	if n := len(s.messages); n > 0 {
		last := s.messages[n-1]
		s.lastStamp = last.Timestamp
		s.seq = last.Seq
	}
	return s, nil
}

// Append validates, stamps, persists and fans out one message. The
// timestamp is assigned here at acceptance, never taken from the
// caller; a clock running backwards is clamped so stamps never
// decrease, and the sequence counter breaks ties deterministically.
func (s *Store) Append(sender, content string) (domain.Message, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stamp := s.now().UnixMilli()
	if stamp < s.lastStamp {
		stamp = s.lastStamp
	}
	s.seq++

	message := domain.Message{
		ID:        uuid.New(),
		SenderID:  sender,
		Content:   trimmed,
		Language:  detectLanguage(trimmed),
		Timestamp: stamp,
		Seq:       s.seq,
	}

	if err := s.repo.StoreMessage(toDiskMessage(message)); err != nil {
		// Roll the sequence back so a retry by the caller does not
		// leave a gap in acceptance order.
		s.seq--
		return domain.Message{}, err
	}

	s.lastStamp = stamp
	s.messages = append(s.messages, message)
	s.broadcastLocked()
	return message, nil
}

// Remove deletes a message by id and notifies subscribers through the
// next snapshot.
func (s *Store) Remove(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, m := range s.messages {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.ErrMessageNotFound
	}

	if err := s.repo.DeleteMessage(toDiskMessage(s.messages[idx])); err != nil {
		return err
	}

	s.messages = append(s.messages[:idx], s.messages[idx+1:]...)
	s.broadcastLocked()
	return nil
}

// Get returns a copy of one message, if present.
func (s *Store) Get(id uuid.UUID) (domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Message{}, false
}

// Len returns the number of live messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Subscribe registers a new subscriber and immediately delivers the
// current snapshot, mirroring a snapshot-on-attach listener.
func (s *Store) Subscribe() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := newSubscription()
	s.subscribers[sub] = struct{}{}
	sub.push(s.snapshotLocked())
	return sub
}

// Unsubscribe stops delivery. Calling it twice is a no-op.
func (s *Store) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	s.mu.Lock()
	_, active := s.subscribers[sub]
	delete(s.subscribers, sub)
	s.mu.Unlock()

	if active {
		sub.close()
	}
}

func (s *Store) snapshotLocked() []domain.Message {
	snapshot := make([]domain.Message, len(s.messages))
	copy(snapshot, s.messages)
	return snapshot
}

func (s *Store) broadcastLocked() {
	snapshot := s.snapshotLocked()
	for sub := range s.subscribers {
		sub.push(snapshot)
	}
}

func toDiskMessage(m domain.Message) repositories.DiskMessage {
	return repositories.DiskMessage{
		ID:        m.ID,
		Sender:    m.SenderID,
		Content:   m.Content,
		Language:  m.Language,
		Timestamp: m.Timestamp,
		Seq:       m.Seq,
	}
}

// detectLanguage tags content with an ISO 639-3 code when detection is
// confident enough, "" otherwise.
func detectLanguage(content string) string {
	info := whatlanggo.Detect(content)
	if !info.IsReliable() {
		return ""
	}
	return whatlanggo.LangToString(info.Lang)
}
