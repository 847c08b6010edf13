package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incridea/fest-backend/internal/config"
	"github.com/incridea/fest-backend/internal/models"
	"github.com/incridea/fest-backend/internal/services"
	"github.com/incridea/fest-backend/internal/store"
)

const webhookSecret = "whsec_handler_test"

type stubGateway struct{}

func (stubGateway) CreateOrder(ctx context.Context, amount int64, currency, receiptRef string, notes map[string]string) (*services.GatewayOrder, error) {
	return &services.GatewayOrder{ID: "order_stub", Amount: amount, Currency: currency, Raw: []byte(`{"id":"order_stub"}`)}, nil
}

func webhookRouter(mem *store.Memory) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		WebhookSecret:  webhookSecret,
		GatewayFeeRate: 0.02,
		Currency:       "INR",
		Fees: map[config.Selector]config.Fee{
			config.SelectorFestInternal: {Type: models.OrderFestRegistration, Net: 25000},
		},
	}
	reg := services.NewRegistrationService(mem, nil)
	svc := services.NewPaymentService(mem, stubGateway{}, services.NewPIDService(mem), reg, cfg)

	r := gin.New()
	r.POST("/api/payment/webhook", PaymentWebhook(svc))
	r.GET("/api/payment/receipt/:orderId/verify", VerifyReceipt(svc))
	return r
}

func postWebhook(r *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", signature)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPaymentWebhookEndpoint(t *testing.T) {
	ctx := context.Background()

	t.Run("bad signature is a 400", func(t *testing.T) {
		r := webhookRouter(store.NewMemory())
		body := []byte(`{"event":"payment.captured","payload":{}}`)

		w := postWebhook(r, body, "deadbeef")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown order is still acked", func(t *testing.T) {
		r := webhookRouter(store.NewMemory())
		body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_ghost","amount":100}}}}`)

		w := postWebhook(r, body, services.Sign([]byte(webhookSecret), body))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("valid delivery settles the order", func(t *testing.T) {
		mem := store.NewMemory()
		r := webhookRouter(mem)
		u := mem.AddUser(models.User{Name: "asha", Email: "asha@example.com", Category: models.CategoryInternal})
		order := &models.PaymentOrder{OrderID: "order_stub", UserID: u.ID, Type: models.OrderFestRegistration, Amount: 25511}
		require.NoError(t, mem.CreateOrder(ctx, order))

		body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_stub","amount":25511,"notes":{"type":"FEST_REGISTRATION"}}}}}`)
		w := postWebhook(r, body, services.Sign([]byte(webhookSecret), body))
		require.Equal(t, http.StatusOK, w.Code)

		got, err := mem.OrderByGatewayID(ctx, "order_stub")
		require.NoError(t, err)
		assert.Equal(t, models.OrderSuccess, got.Status)

		// And the verify endpoint agrees.
		req := httptest.NewRequest(http.MethodGet, "/api/payment/receipt/order_stub/verify?paymentId=pay_1", nil)
		vw := httptest.NewRecorder()
		r.ServeHTTP(vw, req)
		require.Equal(t, http.StatusOK, vw.Code)

		var res services.VerifyResult
		require.NoError(t, json.Unmarshal(vw.Body.Bytes(), &res))
		assert.True(t, res.Valid)
	})

	t.Run("verify for a missing order is a 404", func(t *testing.T) {
		r := webhookRouter(store.NewMemory())
		req := httptest.NewRequest(http.MethodGet, "/api/payment/receipt/order_nope/verify", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
