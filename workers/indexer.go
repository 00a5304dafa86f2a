package workers

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"feedlab/contract"
	"feedlab/domain"
	"feedlab/feed"
	"feedlab/search"
)

var _ contract.Worker = (*IndexerWorker)(nil)

// IndexerWorker keeps the search index in sync with the feed. It owns
// its own subscription and diffs consecutive snapshots into index adds
// and deletes, so a removed message disappears from search results.
type IndexerWorker struct {
	store *feed.Store
	index *search.Index
	log   *slog.Logger
	seen  map[uuid.UUID]struct{}
}

func NewIndexerWorker(store *feed.Store, index *search.Index, log *slog.Logger) *IndexerWorker {
	return &IndexerWorker{
		store: store,
		index: index,
		log:   log,
		seen:  make(map[uuid.UUID]struct{}),
	}
}

func (w *IndexerWorker) Run(ctx context.Context) error {
	sub := w.store.Subscribe()
	defer w.store.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping indexer worker")
			return nil
		case snapshot, ok := <-sub.Snapshots():
			if !ok {
				return nil
			}
			w.apply(snapshot)
		}
	}
}

// apply diffs one snapshot against the set of ids indexed so far.
func (w *IndexerWorker) apply(snapshot []domain.Message) {
	live := make(map[uuid.UUID]struct{}, len(snapshot))
	for _, message := range snapshot {
		live[message.ID] = struct{}{}
		if _, ok := w.seen[message.ID]; ok {
			continue
		}
		if err := w.index.Add(message.ID, message.SenderID, message.Content); err != nil {
			w.log.Error("Failed to index message", "id", message.ID, "error", err)
			continue
		}
		w.seen[message.ID] = struct{}{}
	}

	for id := range w.seen {
		if _, ok := live[id]; ok {
			continue
		}
		if err := w.index.Delete(id); err != nil {
			w.log.Error("Failed to prune message from index", "id", id, "error", err)
			continue
		}
		delete(w.seen, id)
	}
}
