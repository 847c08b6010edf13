package search

import (
	"context"
	"log"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/google/uuid"

	"github.com/incridea/fest-backend/internal/metrics"
	"github.com/incridea/fest-backend/internal/models"
)

// RetryDLQ periodically replays unresolved search DLQ entries.
func (w *SyncWorker) RetryDLQ(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var dlqs []models.SearchDLQ
			if err := w.DB.Where("resolved = false").Limit(50).Find(&dlqs).Error; err != nil {
				log.Printf("search DLQ fetch error: %v", err)
				continue
			}
			for _, d := range dlqs {
				entityID, err := uuid.Parse(d.EntityID)
				if err != nil {
					log.Printf("search DLQ id=%d has bad entity id %q", d.ID, d.EntityID)
					continue
				}
				log.Printf("♻️ Retrying search DLQ id=%d entity=%s op=%s", d.ID, d.EntityType, d.Op)
				ob := models.Outbox{
					ID:         d.OutboxID,
					EntityType: d.EntityType,
					EntityID:   entityID,
					Op:         d.Op,
				}
				bi, _ := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
					Client: w.ES, Index: "", FlushBytes: 5 << 20, NumWorkers: 2,
				})
				if err := w.applyEvent(ctx, bi, ob); err != nil {
					continue
				}
				if err := bi.Close(ctx); err != nil {
					continue
				}
				now := time.Now()
				w.DB.Model(&models.SearchDLQ{}).Where("id = ?", d.ID).Updates(map[string]any{
					"resolved":   true,
					"retried_at": &now,
				})
				metrics.SyncProcessed.Inc()
				log.Printf("✅ search DLQ id=%d resolved", d.ID)
			}
		}
	}
}
