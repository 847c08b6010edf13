package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
)

const queryTimeout = 5 * time.Second

type Hit struct {
	Index  string          `json:"index"`
	ID     string          `json:"id"`
	Score  float64         `json:"score"`
	Source json.RawMessage `json:"source"`
}

// Query runs a free-text search across all fest indexes.
func Query(ctx context.Context, c *es.Client, q string, limit int) ([]Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	body, _ := json.Marshal(map[string]any{
		"size": limit,
		"query": map[string]any{
			"query_string": map[string]any{
				"query": q,
			},
		},
	})
	res, err := c.Search(
		c.Search.WithContext(ctx),
		c.Search.WithIndex(IdxParticipants, IdxTeams, IdxEvents),
		c.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Index  string          `json:"_index"`
				ID     string          `json:"_id"`
				Score  float64         `json:"_score"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, Hit{Index: h.Index, ID: h.ID, Score: h.Score, Source: h.Source})
	}
	return out, nil
}
