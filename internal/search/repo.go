package search

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/incridea/fest-backend/internal/metrics"
	"github.com/incridea/fest-backend/internal/models"
)

type OutboxBatch struct{ Events []models.Outbox }

// FetchOutboxBatch claims unprocessed events. FOR UPDATE SKIP LOCKED
// keeps multiple sync workers off each other's batches.
func FetchOutboxBatch(ctx context.Context, db *gorm.DB, limit int) (OutboxBatch, error) {
	var evts []models.Outbox
	tx := db.WithContext(ctx).Raw(`
		WITH cte AS (
		  SELECT * FROM outboxes
		  WHERE processed = false
		  ORDER BY id ASC
		  LIMIT ?
		  FOR UPDATE SKIP LOCKED
		)
		UPDATE outboxes SET processed = true
		FROM cte
		WHERE outboxes.id = cte.id
		RETURNING cte.*`, limit).Scan(&evts)
	return OutboxBatch{Events: evts}, tx.Error
}

// PutDLQ records an outbox event that failed to index.
func PutDLQ(db *gorm.DB, ob models.Outbox, msg string) {
	metrics.SyncDLQ.Inc()
	dlq := models.SearchDLQ{
		OutboxID:   ob.ID,
		EntityType: ob.EntityType,
		EntityID:   ob.EntityID.String(),
		Op:         ob.Op,
		ErrorMsg:   msg,
		Payload:    ob.Payload,
		CreatedAt:  time.Now(),
		Resolved:   false,
	}
	if err := db.Create(&dlq).Error; err != nil {
		log.Printf("❌ Failed to insert into search DLQ: %v", err)
	} else {
		log.Printf("💀 search DLQ record created for outbox_id=%d", ob.ID)
	}
}
