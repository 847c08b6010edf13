package search

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/incridea/fest-backend/internal/metrics"
	"github.com/incridea/fest-backend/internal/models"
)

// SyncWorker drains the outbox into Elasticsearch so admin search stays
// close to the relational truth without querying it.
type SyncWorker struct {
	DB *gorm.DB
	ES *es.Client
}

func (w *SyncWorker) Run(ctx context.Context) {
	if err := EnsureIndexes(ctx, w.ES); err != nil {
		log.Fatalf("ensure indexes: %v", err)
	}
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.processOnce(ctx); err != nil {
				log.Printf("sync worker error: %v", err)
			}
		}
	}
}

func (w *SyncWorker) processOnce(ctx context.Context) error {
	batch, err := FetchOutboxBatch(ctx, w.DB, 200)
	if err != nil {
		return err
	}
	if len(batch.Events) == 0 {
		return nil
	}

	bi, _ := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client: w.ES, Index: "", FlushBytes: 5 << 20, NumWorkers: 2,
	})

	for _, e := range batch.Events {
		if err := w.applyEvent(ctx, bi, e); err != nil {
			// Already marked processed, so failures go to the DLQ
			// instead of looping forever.
			metrics.SyncFailed.Inc()
			PutDLQ(w.DB, e, err.Error())
			log.Printf("search DLQ outbox_id=%d: %v", e.ID, err)
			continue
		}
		metrics.SyncProcessed.Inc()
	}

	if err := bi.Close(ctx); err != nil {
		return err
	}
	stats := bi.Stats()
	log.Printf("bulk ok=%d failed=%d", stats.NumFlushed, stats.NumFailed)
	return nil
}

func (w *SyncWorker) ApplyEvent(ctx context.Context, bi esutil.BulkIndexer, e models.Outbox) error {
	return w.applyEvent(ctx, bi, e)
}

func (w *SyncWorker) applyEvent(ctx context.Context, bi esutil.BulkIndexer, e models.Outbox) error {
	switch e.EntityType {
	case "user":
		if e.Op == "DELETE" {
			return w.add(bi, IdxParticipants, e.EntityID.String(), e.ID, "delete", nil)
		}
		var u models.User
		if err := w.DB.First(&u, "id = ?", e.EntityID).Error; err != nil {
			return err
		}
		var pidCode string
		var pid models.PID
		if err := w.DB.First(&pid, "user_id = ?", e.EntityID).Error; err == nil {
			pidCode = pid.Code
		}
		doc, err := BuildParticipantDoc(u, pidCode)
		if err != nil {
			return err
		}
		return w.add(bi, IdxParticipants, e.EntityID.String(), e.ID, "index", doc)

	case "team":
		if e.Op == "DELETE" {
			return w.add(bi, IdxTeams, e.EntityID.String(), e.ID, "delete", nil)
		}
		var t models.Team
		if err := w.DB.First(&t, "id = ?", e.EntityID).Error; err != nil {
			return err
		}
		var members []models.TeamMember
		if err := w.DB.Where("team_id = ?", e.EntityID).Find(&members).Error; err != nil {
			return err
		}
		doc, err := BuildTeamDoc(t, members)
		if err != nil {
			return err
		}
		return w.add(bi, IdxTeams, e.EntityID.String(), e.ID, "index", doc)

	case "event":
		if e.Op == "DELETE" {
			return w.add(bi, IdxEvents, e.EntityID.String(), e.ID, "delete", nil)
		}
		var ev models.Event
		if err := w.DB.First(&ev, "id = ?", e.EntityID).Error; err != nil {
			return err
		}
		doc, err := BuildEventDoc(ev)
		if err != nil {
			return err
		}
		return w.add(bi, IdxEvents, e.EntityID.String(), e.ID, "index", doc)
	}
	return fmt.Errorf("unknown entity_type=%s", e.EntityType)
}

func (w *SyncWorker) add(bi esutil.BulkIndexer, index, docID string, outboxID int64, action string, body []byte) error {
	item := esutil.BulkIndexerItem{
		Action:     action,
		DocumentID: docID,
		Index:      index,
		OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
			msg := ""
			switch {
			case err != nil:
				msg = err.Error()
			case res.Error.Reason != "":
				msg = fmt.Sprintf("%s: %s", res.Error.Type, res.Error.Reason)
			default:
				msg = fmt.Sprintf("status=%d failed to index", res.Status)
			}

			ob := models.Outbox{
				ID:         outboxID,
				EntityType: indexToEntity(index),
				EntityID:   uuid.MustParse(docID),
				Op:         action,
			}
			PutDLQ(w.DB, ob, msg)
			log.Printf("💀 search DLQ for outbox_id=%d index=%s id=%s reason=%s", outboxID, index, docID, msg)
		},
	}

	if len(body) > 0 {
		item.Body = bytes.NewReader(body)
	}
	return bi.Add(context.Background(), item)
}

func indexToEntity(index string) string {
	switch index {
	case IdxParticipants:
		return "user"
	case IdxTeams:
		return "team"
	case IdxEvents:
		return "event"
	default:
		return "unknown"
	}
}
