// Package workers contains the background job loops: receipt
// generation and its dead-letter handling.
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/incridea/fest-backend/internal/metrics"
	"github.com/incridea/fest-backend/internal/models"
	"github.com/incridea/fest-backend/internal/receipt"
	"github.com/incridea/fest-backend/internal/store"
)

// backoff is the reschedule delay after the nth failure. After the last
// entry the job is dead-lettered, not retried.
var backoff = []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}

const (
	claimBatch = 20
	// defaultConcurrency bounds in-flight renders/uploads per worker.
	defaultConcurrency = 16
	// staleProcessingAfter is how long a job may sit in processing
	// before it is assumed orphaned by a dead worker and reclaimed.
	staleProcessingAfter = 5 * time.Minute
)

// ReceiptWorker drains the receipt job queue: render, upload, persist
// the URL, notify. Any step failing reschedules the whole job.
type ReceiptWorker struct {
	Store       store.Store
	Renderer    receipt.Renderer
	Storage     receipt.Storage
	Notifier    receipt.Notifier
	VerifyBase  string
	Concurrency int

	clock func() time.Time
}

func NewReceiptWorker(st store.Store, r receipt.Renderer, s receipt.Storage, n receipt.Notifier, verifyBase string) *ReceiptWorker {
	return &ReceiptWorker{
		Store:       st,
		Renderer:    r,
		Storage:     s,
		Notifier:    n,
		VerifyBase:  verifyBase,
		Concurrency: defaultConcurrency,
		clock:       time.Now,
	}
}

func (w *ReceiptWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ProcessOnce(ctx); err != nil {
				log.Printf("receipt worker error: %v", err)
			}
		}
	}
}

// ProcessOnce claims one batch of due jobs and runs them on a bounded
// pool.
func (w *ReceiptWorker) ProcessOnce(ctx context.Context) error {
	if n, err := w.Store.ReclaimStaleReceiptJobs(ctx, w.clock().Add(-staleProcessingAfter)); err != nil {
		log.Printf("❌ reclaiming stale receipt jobs: %v", err)
	} else if n > 0 {
		log.Printf("♻️ reclaimed %d orphaned receipt job(s)", n)
	}

	jobs, err := w.Store.ClaimDueReceiptJobs(ctx, claimBatch, w.clock())
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	sem := make(chan struct{}, w.concurrency())
	done := make(chan struct{})
	for _, job := range jobs {
		job := job
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; done <- struct{}{} }()
			w.process(ctx, job)
		}()
	}
	for range jobs {
		<-done
	}
	return nil
}

func (w *ReceiptWorker) process(ctx context.Context, job models.ReceiptJob) {
	if err := w.runJob(ctx, job); err != nil {
		metrics.ReceiptFailed.Inc()
		w.fail(ctx, job, err)
		return
	}
	metrics.ReceiptProcessed.Inc()
	if err := w.Store.MarkReceiptJob(ctx, job.ID, models.JobSucceeded, ""); err != nil {
		log.Printf("❌ marking receipt job %d succeeded: %v", job.ID, err)
	}
}

func (w *ReceiptWorker) runJob(ctx context.Context, job models.ReceiptJob) error {
	var payload models.ReceiptPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	// A racing retry may have finished already; an existing receipt
	// means success, not a re-render.
	order, err := w.Store.OrderByGatewayID(ctx, job.OrderID)
	if err != nil {
		return err
	}
	if order.Receipt != nil {
		log.Printf("⏭️ order %s already has a receipt, skipping render", job.OrderID)
		return nil
	}

	data := receipt.Data{
		OrderID:   order.OrderID,
		PaymentID: paymentID(order.PaymentData),
		Name:      payload.User.Name,
		Email:     payload.User.Email,
		College:   payload.User.College,
		Amount:    order.CollectedAmount,
		VerifyURL: fmt.Sprintf("%s/api/payment/receipt/%s/verify?paymentId=%s", w.VerifyBase, order.OrderID, paymentID(order.PaymentData)),
		IssuedAt:  w.clock(),
	}
	if pid, err := w.Store.PIDByUser(ctx, order.UserID); err == nil {
		data.PIDCode = pid.Code
	}

	artifact, err := w.Renderer.Render(ctx, data)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	url, err := w.Storage.Upload(ctx, fmt.Sprintf("receipts/%s.html", order.OrderID), artifact)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	if _, err := w.Store.SetOrderReceipt(ctx, order.OrderID, url); err != nil {
		return fmt.Errorf("persist receipt url: %w", err)
	}

	if err := w.Notifier.ReceiptReady(ctx, payload.User.Email, url); err != nil {
		// Notification failures never fail the job; the receipt exists.
		log.Printf("⚠️ receipt notification for %s failed: %v", order.OrderID, err)
	}
	log.Printf("🧾 receipt for order %s at %s", order.OrderID, url)
	return nil
}

func (w *ReceiptWorker) fail(ctx context.Context, job models.ReceiptJob, cause error) {
	attempts := job.Attempts + 1
	if attempts >= len(backoff)+1 {
		log.Printf("💀 receipt job %d dead after %d attempts: %v", job.ID, attempts, cause)
		metrics.ReceiptDLQ.Inc()
		if err := w.Store.MarkReceiptJob(ctx, job.ID, models.JobDead, cause.Error()); err != nil {
			log.Printf("❌ marking receipt job %d dead: %v", job.ID, err)
		}
		if err := w.Store.PutReceiptDLQ(ctx, job, cause.Error()); err != nil {
			log.Printf("❌ inserting receipt DLQ for job %d: %v", job.ID, err)
		}
		return
	}
	delay := backoff[attempts-1]
	log.Printf("♻️ receipt job %d attempt %d failed (%v), retrying in %s", job.ID, attempts, cause, delay)
	if err := w.Store.RescheduleReceiptJob(ctx, job.ID, attempts, cause.Error(), w.clock().Add(delay)); err != nil {
		log.Printf("❌ rescheduling receipt job %d: %v", job.ID, err)
	}
}

// RetryDLQ re-enqueues a dead-lettered job for a fresh attempt series.
// Driven by the admin endpoint, not a ticker: dead jobs are for manual
// inspection.
func (w *ReceiptWorker) RetryDLQ(ctx context.Context, dlqID int64) error {
	entry, err := w.Store.ReceiptDLQByID(ctx, dlqID)
	if err != nil {
		return err
	}
	if entry.Resolved {
		return nil
	}
	if err := w.Store.EnqueueReceiptJob(ctx, &models.ReceiptJob{
		OrderID:   entry.OrderID,
		Payload:   entry.Payload,
		NextRunAt: w.clock(),
	}); err != nil {
		return err
	}
	return w.Store.ResolveReceiptDLQ(ctx, dlqID)
}

func (w *ReceiptWorker) concurrency() int {
	if w.Concurrency > 0 {
		return w.Concurrency
	}
	return defaultConcurrency
}

func paymentID(snapshot []byte) string {
	var body struct {
		Payload struct {
			Payment struct {
				Entity struct {
					ID string `json:"id"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if json.Unmarshal(snapshot, &body) != nil {
		return ""
	}
	return body.Payload.Payment.Entity.ID
}
