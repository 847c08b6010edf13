package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incridea/fest-backend/internal/apperror"
	"github.com/incridea/fest-backend/internal/models"
	"github.com/incridea/fest-backend/internal/store"
)

func successOrder(t *testing.T, mem *store.Memory, userID uuid.UUID) *models.PaymentOrder {
	t.Helper()
	o := &models.PaymentOrder{
		OrderID: "order_" + uuid.NewString(),
		UserID:  userID,
		Type:    models.OrderFestRegistration,
		Status:  models.OrderSuccess,
		Amount:  25510,
	}
	require.NoError(t, mem.CreateOrder(context.Background(), o))
	return o
}

func TestIssuePID(t *testing.T) {
	ctx := context.Background()

	t.Run("code carries category and returning flags", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewPIDService(mem)
		u := mem.AddUser(models.User{Name: "asha", Email: "asha@nmamit.in", Category: models.CategoryInternal})
		order := successOrder(t, mem, u.ID)

		pid, err := svc.IssuePID(ctx, u.ID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, "INC-INN0001", pid.Code)
		assert.Equal(t, order.ID, pid.PaymentOrderID)
	})

	t.Run("returning participant gets the R flag", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewPIDService(mem)
		u := mem.AddUser(models.User{Name: "bala", Email: "bala@alum.example.com", Category: models.CategoryAlumni})
		mem.AddPriorUser(u.Email)
		order := successOrder(t, mem, u.ID)

		pid, err := svc.IssuePID(ctx, u.ID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, "INC-ALR0001", pid.Code)
	})

	t.Run("unmapped category falls back to external", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewPIDService(mem)
		u := mem.AddUser(models.User{Name: "chen", Email: "chen@example.com", Category: models.UserCategory("STAFF")})
		order := successOrder(t, mem, u.ID)

		pid, err := svc.IssuePID(ctx, u.ID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, "INC-EXN0001", pid.Code)
	})

	t.Run("sequences are per category", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewPIDService(mem)

		var codes []string
		for i, cat := range []models.UserCategory{models.CategoryInternal, models.CategoryInternal, models.CategoryExternal} {
			u := mem.AddUser(models.User{Name: "u", Email: fmt.Sprintf("u%d@example.com", i), Category: cat})
			order := successOrder(t, mem, u.ID)
			pid, err := svc.IssuePID(ctx, u.ID, order.ID)
			require.NoError(t, err)
			codes = append(codes, pid.Code)
		}
		assert.Equal(t, []string{"INC-INN0001", "INC-INN0002", "INC-EXN0001"}, codes)
	})

	t.Run("idempotent per user", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewPIDService(mem)
		u := mem.AddUser(models.User{Name: "asha", Email: "asha@example.com", Category: models.CategoryExternal})
		order := successOrder(t, mem, u.ID)

		first, err := svc.IssuePID(ctx, u.ID, order.ID)
		require.NoError(t, err)

		// Second order for the same user (webhook redelivery or a second
		// purchase) must return the same code without burning a sequence.
		second := successOrder(t, mem, u.ID)
		again, err := svc.IssuePID(ctx, u.ID, second.ID)
		require.NoError(t, err)
		assert.Equal(t, first.Code, again.Code)

		next := mem.AddUser(models.User{Name: "bala", Email: "bala@example.com", Category: models.CategoryExternal})
		order3 := successOrder(t, mem, next.ID)
		pid3, err := svc.IssuePID(ctx, next.ID, order3.ID)
		require.NoError(t, err)
		assert.Equal(t, "INC-EXN0002", pid3.Code)
	})

	t.Run("rejects orders that have not settled", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewPIDService(mem)
		u := mem.AddUser(models.User{Name: "asha", Email: "asha@example.com", Category: models.CategoryExternal})
		o := &models.PaymentOrder{OrderID: "order_pending", UserID: u.ID, Type: models.OrderFestRegistration, Amount: 25510}
		require.NoError(t, mem.CreateOrder(ctx, o))

		_, err := svc.IssuePID(ctx, u.ID, o.ID)
		assert.ErrorIs(t, err, apperror.ErrConflict)

		_, err = mem.PIDByUser(ctx, u.ID)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("concurrent issuance never reuses a sequence", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewPIDService(mem)

		const n = 20
		type seed struct {
			userID  uuid.UUID
			orderID uuid.UUID
		}
		seeds := make([]seed, 0, n)
		for i := 0; i < n; i++ {
			u := mem.AddUser(models.User{Name: "u", Email: fmt.Sprintf("c%d@example.com", i), Category: models.CategoryExternal})
			seeds = append(seeds, seed{userID: u.ID, orderID: successOrder(t, mem, u.ID).ID})
		}

		var wg sync.WaitGroup
		codes := make([]string, n)
		for i, s := range seeds {
			wg.Add(1)
			go func(i int, s seed) {
				defer wg.Done()
				pid, err := svc.IssuePID(ctx, s.userID, s.orderID)
				if assert.NoError(t, err) {
					codes[i] = pid.Code
				}
			}(i, s)
		}
		wg.Wait()

		seen := map[string]bool{}
		for _, code := range codes {
			require.NotEmpty(t, code)
			assert.False(t, seen[code], "duplicate code %s", code)
			seen[code] = true
		}
	})
}
