package search

import (
	"bytes"
	"context"
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"
)

const (
	IdxParticipants = "participants_v1"
	IdxTeams        = "teams_v1"
	IdxEvents       = "events_v1"
)

func EnsureIndexes(ctx context.Context, c *es.Client) error {
	mapping := `{"settings":{"number_of_shards":1},"mappings":{"dynamic":"strict","properties":{
		"name":{"type":"text"},"email":{"type":"keyword"},"category":{"type":"keyword"},
		"college":{"type":"text"},"pid":{"type":"keyword"},"updated_at":{"type":"date"}
	}}}`
	if err := ensure(ctx, c, IdxParticipants, mapping); err != nil {
		return err
	}

	mapping = `{"settings":{"number_of_shards":1},"mappings":{"dynamic":"strict","properties":{
		"name":{"type":"text"},"event_id":{"type":"keyword"},"leader_id":{"type":"keyword"},
		"confirmed":{"type":"boolean"},"member_ids":{"type":"keyword"},"updated_at":{"type":"date"}
	}}}`
	if err := ensure(ctx, c, IdxTeams, mapping); err != nil {
		return err
	}

	mapping = `{"settings":{"number_of_shards":1},"mappings":{"dynamic":"strict","properties":{
		"name":{"type":"text"},"type":{"type":"keyword"},"fees":{"type":"long"},
		"published":{"type":"boolean"},"updated_at":{"type":"date"}
	}}}`
	return ensure(ctx, c, IdxEvents, mapping)
}

func ensure(ctx context.Context, c *es.Client, index, body string) error {
	exists, _ := c.Indices.Exists([]string{index})
	if exists != nil && exists.StatusCode == 200 {
		return nil
	}
	_, err := c.Indices.Create(index, c.Indices.Create.WithBody(bytes.NewBufferString(body)), c.Indices.Create.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	return nil
}
