package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/incridea/fest-backend/internal/apperror"
	"github.com/incridea/fest-backend/internal/metrics"
	"github.com/incridea/fest-backend/internal/models"
	"github.com/incridea/fest-backend/internal/store"
)

// Category codes embedded in the PID. Unmapped categories fall back to
// the external code (kept from the original behavior; a warning is
// logged so a latent mapping gap is visible).
const (
	codeInternal = "IN"
	codeExternal = "EX"
	codeAlumni   = "AL"

	returningYes = "R"
	returningNo  = "N"
)

// PIDService issues participant identifiers exactly once per user.
type PIDService struct {
	store store.Store
}

func NewPIDService(st store.Store) *PIDService {
	return &PIDService{store: st}
}

// IssuePID returns the user's PID, creating it if needed. The existence
// check and the counter increment share one transaction, so a retried
// webhook or two concurrent calls for the same user cannot mint two
// codes; the unique constraint on user_id is the final backstop.
func (s *PIDService) IssuePID(ctx context.Context, userID, paymentOrderID uuid.UUID) (*models.PID, error) {
	var pid *models.PID
	err := s.store.InTx(ctx, func(tx store.Store) error {
		order, err := tx.OrderByID(ctx, paymentOrderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderSuccess {
			return apperror.Conflict("payment order is not successful")
		}

		if existing, err := tx.PIDByUser(ctx, userID); err == nil {
			pid = existing
			return nil
		} else if !errors.Is(err, apperror.ErrNotFound) {
			return err
		}

		user, err := tx.User(ctx, userID)
		if err != nil {
			return err
		}
		category := categoryCode(user.Category)

		returning := returningNo
		prior, err := tx.PriorUserExists(ctx, user.Email)
		if err != nil {
			return err
		}
		if prior {
			returning = returningYes
		}

		seq, err := tx.NextPIDSequence(ctx, category)
		if err != nil {
			return err
		}

		pid = &models.PID{
			Code:           fmt.Sprintf("INC-%s%s%04d", category, returning, seq),
			UserID:         userID,
			PaymentOrderID: paymentOrderID,
		}
		if err := tx.CreatePID(ctx, pid); err != nil {
			return err
		}
		metrics.PIDIssued.Inc()
		log.Printf("🎫 issued %s to user %s", pid.Code, userID)

		// Reindex the participant so search shows the new PID.
		return tx.AppendOutbox(ctx, "user", userID, "UPSERT", user)
	})
	if err != nil {
		return nil, err
	}
	return pid, nil
}

func categoryCode(c models.UserCategory) string {
	switch c {
	case models.CategoryInternal:
		return codeInternal
	case models.CategoryExternal:
		return codeExternal
	case models.CategoryAlumni:
		return codeAlumni
	default:
		log.Printf("⚠️ unmapped user category %q, defaulting to %s", c, codeExternal)
		return codeExternal
	}
}
