// Package search maintains a full-text index over message content.
// The index is a projection of the feed; the store stays the source of
// truth and removed messages are pruned by the indexer worker.
package search

import (
	"context"
	"log/slog"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func Open(path string, log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer, log: log}, nil
}

// Add indexes one message, replacing any previous version of the same id.
func (i *Index) Add(id uuid.UUID, sender, content string) error {
	doc := bluge.NewDocument(id.String()).
		AddField(bluge.NewTextField("content", content)).
		AddField(bluge.NewKeywordField("sender", sender))
	return i.writer.Update(doc.ID(), doc)
}

// Delete removes one message from the index.
func (i *Index) Delete(id uuid.UUID) error {
	doc := bluge.NewDocument(id.String())
	return i.writer.Delete(doc.ID())
}

// Query returns the ids of the best matching messages for a term.
func (i *Index) Query(ctx context.Context, term string, limit int) ([]uuid.UUID, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("Failed to close index reader", "error", err)
		}
	}()

	query := bluge.NewMatchQuery(term).SetField("content")
	request := bluge.NewTopNSearch(limit, query)

	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	match, err := iterator.Next()
	for err == nil && match != nil {
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				if id, parseErr := uuid.Parse(string(value)); parseErr == nil {
					ids = append(ids, id)
				}
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}
