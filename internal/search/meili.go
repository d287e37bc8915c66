package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meilisearch/meilisearch-go"

	"alltech-shop/internal/models"
)

// Meili is the MeiliSearch-backed Client.
type Meili struct {
	client *meilisearch.Client
}

func NewMeili(host, apiKey string) *Meili {
	return &Meili{
		client: meilisearch.NewClient(meilisearch.ClientConfig{
			Host:   host,
			APIKey: apiKey,
		}),
	}
}

func (m *Meili) Index(uid string) Index {
	return &meiliIndex{index: m.client.Index(uid)}
}

type meiliIndex struct {
	index *meilisearch.Index
}

func (i *meiliIndex) AddDocuments(ctx context.Context, docs []models.IndexDocument) error {
	task, err := i.index.AddDocuments(docs)
	return checkTask(task, err)
}

func (i *meiliIndex) UpdateDocuments(ctx context.Context, docs []models.IndexDocument) error {
	task, err := i.index.UpdateDocuments(docs)
	return checkTask(task, err)
}

func (i *meiliIndex) DeleteDocument(ctx context.Context, id string) error {
	task, err := i.index.DeleteDocument(id)
	return checkTask(task, err)
}

func (i *meiliIndex) Search(ctx context.Context, query string, limit int) ([]models.IndexDocument, error) {
	resp, err := i.index.Search(query, &meilisearch.SearchRequest{Limit: int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	docs := make([]models.IndexDocument, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		raw, err := json.Marshal(hit)
		if err != nil {
			return nil, err
		}
		var doc models.IndexDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("search %q: decode hit: %w", query, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// checkTask mirrors the front-of-house contract: a mutation only counts
// once the service reports the task enqueued.
func checkTask(task *meilisearch.TaskInfo, err error) error {
	if err != nil {
		return err
	}
	if task.Status != meilisearch.TaskStatusEnqueued {
		return fmt.Errorf("%w: task %d status %s", ErrIndexRejected, task.TaskUID, task.Status)
	}
	return nil
}
