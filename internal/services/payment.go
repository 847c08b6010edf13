package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/incridea/fest-backend/internal/apperror"
	"github.com/incridea/fest-backend/internal/config"
	"github.com/incridea/fest-backend/internal/metrics"
	"github.com/incridea/fest-backend/internal/models"
	"github.com/incridea/fest-backend/internal/store"
)

// Webhook event names the gateway sends.
const (
	eventOrderPaid       = "order.paid"
	eventPaymentCaptured = "payment.captured"
	eventPaymentFailed   = "payment.failed"
)

// Gateway creates orders on the external payment provider. The
// implementation must enforce its own request timeout.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receiptRef string, notes map[string]string) (*GatewayOrder, error)
}

type GatewayOrder struct {
	ID       string
	Amount   int64
	Currency string
	Raw      json.RawMessage
}

// InitiateResult is what the frontend needs to open the checkout.
type InitiateResult struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// PaymentService owns the payment order ledger and the webhook
// reconciler.
type PaymentService struct {
	store        store.Store
	gateway      Gateway
	pids         *PIDService
	registration *RegistrationService

	secret   []byte
	feeRate  float64
	currency string
	fees     map[config.Selector]config.Fee
}

func NewPaymentService(st store.Store, gw Gateway, pids *PIDService, reg *RegistrationService, cfg *config.Config) *PaymentService {
	return &PaymentService{
		store:        st,
		gateway:      gw,
		pids:         pids,
		registration: reg,
		secret:       []byte(cfg.WebhookSecret),
		feeRate:      cfg.GatewayFeeRate,
		currency:     cfg.Currency,
		fees:         cfg.Fees,
	}
}

// GrossAmount computes what the payer is charged so that after the
// gateway deducts its cut, the intended net lands with the fest.
// Rounded up to the next paisa.
func GrossAmount(net int64, feeRate float64) int64 {
	return int64(math.Ceil(float64(net) / (1 - feeRate)))
}

// Initiate resolves the fee for a selector, creates the gateway order
// and records a PENDING ledger row referencing it.
func (s *PaymentService) Initiate(ctx context.Context, userID uuid.UUID, selector config.Selector) (*InitiateResult, error) {
	fee, ok := s.fees[selector]
	if !ok {
		return nil, apperror.Validation("unknown registration selector")
	}
	if fee.Net <= 0 {
		return nil, apperror.Validation("invalid fee configuration")
	}
	gross := GrossAmount(fee.Net, s.feeRate)

	gwOrder, err := s.gateway.CreateOrder(ctx, gross, s.currency, userID.String(), map[string]string{
		"type":   string(fee.Type),
		"userId": userID.String(),
	})
	if err != nil {
		return nil, apperror.External("payment gateway", err)
	}

	order := &models.PaymentOrder{
		OrderID:     gwOrder.ID,
		UserID:      userID,
		Type:        fee.Type,
		Status:      models.OrderPending,
		Amount:      gross,
		PaymentData: datatypes.JSON(gwOrder.Raw),
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	log.Printf("💳 order %s created for user %s (%s, %d %s)", gwOrder.ID, userID, fee.Type, gross, s.currency)

	return &InitiateResult{OrderID: gwOrder.ID, Amount: gross, Currency: s.currency}, nil
}

// InitiateEventPayment creates the order that, once captured, confirms
// the team. The team id rides along in the gateway notes and comes
// back on the webhook as notes.registrationId.
func (s *PaymentService) InitiateEventPayment(ctx context.Context, userID, teamID uuid.UUID) (*InitiateResult, error) {
	team, err := s.store.Team(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.LeaderID != userID {
		return nil, apperror.Forbidden("only the team leader can pay for the team")
	}
	if team.Confirmed {
		return nil, apperror.Conflict("Team is already confirmed")
	}
	ev, err := s.store.Event(ctx, team.EventID)
	if err != nil {
		return nil, err
	}
	if ev.Fees <= 0 {
		return nil, apperror.Validation("this event is free, confirm the team directly")
	}
	n, err := s.store.TeamMemberCount(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if n < int64(ev.MinTeamSize) {
		return nil, apperror.Conflict(fmt.Sprintf("Team needs at least %d members", ev.MinTeamSize))
	}
	gross := GrossAmount(ev.Fees, s.feeRate)

	gwOrder, err := s.gateway.CreateOrder(ctx, gross, s.currency, teamID.String(), map[string]string{
		"type":           string(models.OrderEventRegistration),
		"userId":         userID.String(),
		"registrationId": teamID.String(),
	})
	if err != nil {
		return nil, apperror.External("payment gateway", err)
	}

	order := &models.PaymentOrder{
		OrderID:     gwOrder.ID,
		UserID:      userID,
		Type:        models.OrderEventRegistration,
		Status:      models.OrderPending,
		Amount:      gross,
		PaymentData: datatypes.JSON(gwOrder.Raw),
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	log.Printf("💳 order %s created for team %s (%d %s)", gwOrder.ID, teamID, gross, s.currency)

	return &InitiateResult{OrderID: gwOrder.ID, Amount: gross, Currency: s.currency}, nil
}

// webhookBody mirrors the gateway's envelope: event name plus a nested
// payment entity.
type webhookBody struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	Method  string `json:"method"`
	Status  string `json:"status"`
	Notes   struct {
		Type           string `json:"type"`
		UserID         string `json:"userId"`
		RegistrationID string `json:"registrationId"`
	} `json:"notes"`
}

// HandleWebhook verifies and reconciles one gateway notification.
// Delivery is at least once, so everything past signature verification
// is idempotent; any recognized-but-unmatched case returns nil so the
// handler acks 200 and the gateway does not retry-storm.
func (s *PaymentService) HandleWebhook(ctx context.Context, rawBody []byte, signature string) error {
	// The HMAC must cover the raw bytes as delivered. Verifying against
	// re-serialized JSON diverges on key order and whitespace.
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		metrics.WebhookRejected.Inc()
		return apperror.InvalidSignature()
	}

	var body webhookBody
	if err := json.Unmarshal(rawBody, &body); err != nil {
		return apperror.Validation("malformed webhook body")
	}
	ent := body.Payload.Payment.Entity

	switch body.Event {
	case eventOrderPaid, eventPaymentCaptured:
		return s.reconcileSuccess(ctx, ent, rawBody)
	case eventPaymentFailed:
		return s.reconcileFailure(ctx, ent, rawBody)
	default:
		log.Printf("🤷 ignoring webhook event %q", body.Event)
		return nil
	}
}

func (s *PaymentService) reconcileSuccess(ctx context.Context, ent paymentEntity, rawBody []byte) error {
	var order *models.PaymentOrder
	err := s.store.InTx(ctx, func(tx store.Store) error {
		var err error
		order, err = tx.OrderByGatewayID(ctx, ent.OrderID)
		if errors.Is(err, apperror.ErrNotFound) {
			// Accepted-loss edge: the gateway knows an order we do not.
			// Ack so it stops retrying, leave a trace for ops.
			metrics.WebhookUnmatched.Inc()
			log.Printf("⚠️ webhook for unknown order %s, acking anyway", ent.OrderID)
			order = nil
			return nil
		}
		if err != nil {
			return err
		}

		transitioned, err := tx.TransitionOrder(ctx, ent.OrderID, models.OrderPending, models.OrderSuccess, ent.Amount, datatypes.JSON(rawBody))
		if err != nil {
			return err
		}
		if !transitioned {
			metrics.WebhookDuplicate.Inc()
			log.Printf("🔁 duplicate webhook for order %s (status %s), no-op", ent.OrderID, order.Status)
			order = nil
			return nil
		}
		metrics.WebhookProcessed.Inc()
		order.Status = models.OrderSuccess
		order.CollectedAmount = ent.Amount

		user, err := tx.User(ctx, order.UserID)
		if err != nil {
			return err
		}
		payload, _ := json.Marshal(models.ReceiptPayload{Order: *order, User: *user})
		return tx.EnqueueReceiptJob(ctx, &models.ReceiptJob{
			OrderID: order.OrderID,
			UserID:  order.UserID,
			Payload: payload,
		})
	})
	if err != nil || order == nil {
		return err
	}

	// Downstream effects run outside the ledger transaction: their
	// failure must not roll back the durable transition or fail the
	// webhook ack. They are retried out of band (PID issuance is
	// idempotent, team confirmation is guarded).
	switch order.Type {
	case models.OrderFestRegistration:
		if _, err := s.pids.IssuePID(ctx, order.UserID, order.ID); err != nil {
			log.Printf("❌ pid issuance failed for order %s: %v", order.OrderID, err)
		}
	case models.OrderEventRegistration:
		if teamID, err := uuid.Parse(ent.Notes.RegistrationID); err == nil {
			if err := s.registration.ConfirmPaidTeam(ctx, teamID); err != nil {
				log.Printf("❌ paid team confirmation failed for order %s: %v", order.OrderID, err)
			}
		} else {
			log.Printf("⚠️ order %s has no usable registrationId note", order.OrderID)
		}
	}
	return nil
}

func (s *PaymentService) reconcileFailure(ctx context.Context, ent paymentEntity, rawBody []byte) error {
	return s.store.InTx(ctx, func(tx store.Store) error {
		transitioned, err := tx.TransitionOrder(ctx, ent.OrderID, models.OrderPending, models.OrderFailed, 0, datatypes.JSON(rawBody))
		if err != nil {
			return err
		}
		if !transitioned {
			metrics.WebhookDuplicate.Inc()
			return nil
		}
		metrics.WebhookProcessed.Inc()
		log.Printf("💥 order %s marked FAILED", ent.OrderID)
		return nil
	})
}

// VerifyReceipt backs the QR payload on generated artifacts.
type VerifyResult struct {
	Valid   bool               `json:"valid"`
	OrderID string             `json:"order_id"`
	Status  models.OrderStatus `json:"status"`
	Amount  int64              `json:"amount"`
	PID     string             `json:"pid,omitempty"`
}

func (s *PaymentService) VerifyReceipt(ctx context.Context, orderID, paymentID string) (*VerifyResult, error) {
	order, err := s.store.OrderByGatewayID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	res := &VerifyResult{
		Valid:   order.Status == models.OrderSuccess,
		OrderID: order.OrderID,
		Status:  order.Status,
		Amount:  order.CollectedAmount,
	}
	if paymentID != "" && order.PaymentData != nil {
		var body webhookBody
		if json.Unmarshal(order.PaymentData, &body) == nil &&
			body.Payload.Payment.Entity.ID != "" &&
			body.Payload.Payment.Entity.ID != paymentID {
			res.Valid = false
		}
	}
	if pid, err := s.store.PIDByUser(ctx, order.UserID); err == nil {
		res.PID = pid.Code
	}
	return res, nil
}

// Sign computes the signature the gateway would attach to body. Shared
// with tests and local tooling.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
