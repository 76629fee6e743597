package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-scm/internal/scm/entity"
	"github.com/bitfantasy/nimo-scm/internal/scm/repository"
	"github.com/bitfantasy/nimo-scm/internal/scm/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupOrderTest(t *testing.T) (*gorm.DB, *OrderService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db, zap.NewNop())
	return db, NewOrderService(repos.Order, repos.ActivityLog)
}

func validCreateRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		CustomerID:   "customer-001",
		CustomerName: "Test Customer",
		ProductType:  entity.ProductTypeLMR,
		RequiredDate: time.Now().AddDate(0, 1, 0),
		Items: []CreateOrderItem{
			{Description: "Product 1", Quantity: 30, UnitPrice: 10},
			{Description: "Product 2", Quantity: 20, Unit: "kg", UnitPrice: 5},
		},
	}
}

func TestCreateOrder(t *testing.T) {
	_, svc := setupOrderTest(t)

	order, err := svc.Create(context.Background(), "user-1", validCreateRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !strings.HasPrefix(order.OrderNo, "SO-") {
		t.Fatalf("order number should carry SO- prefix, got %s", order.OrderNo)
	}
	if order.Status != entity.OrderStatusSubmitted {
		t.Fatalf("new order should be submitted, got %s", order.Status)
	}
	if order.TotalQuantity() != 50 {
		t.Fatalf("expected total quantity 50, got %d", order.TotalQuantity())
	}
	// unit defaults to pcs when omitted
	if order.Items[0].Unit != "pcs" || order.Items[1].Unit != "kg" {
		t.Fatalf("unexpected units: %s / %s", order.Items[0].Unit, order.Items[1].Unit)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	_, svc := setupOrderTest(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateOrderRequest)
	}{
		{"unknown product type", func(r *CreateOrderRequest) { r.ProductType = "frozen" }},
		{"no items", func(r *CreateOrderRequest) { r.Items = nil }},
		{"past required date", func(r *CreateOrderRequest) { r.RequiredDate = time.Now().AddDate(0, 0, -1) }},
		{"zero quantity", func(r *CreateOrderRequest) { r.Items[0].Quantity = 0 }},
		{"negative price", func(r *CreateOrderRequest) { r.Items[0].UnitPrice = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateRequest()
			tc.mutate(req)
			if _, err := svc.Create(ctx, "user-1", req); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestUpdateOrderOnlyWhileEditable(t *testing.T) {
	db, svc := setupOrderTest(t)
	ctx := context.Background()

	order := testutil.SeedOrder(t, db, entity.OrderStatusPlanning, entity.ProductTypeLMR, 30)
	name := "Renamed Customer"
	updated, err := svc.Update(ctx, order.ID, &UpdateOrderRequest{CustomerName: &name})
	if err != nil {
		t.Fatalf("update in planning should succeed: %v", err)
	}
	if updated.CustomerName != name {
		t.Fatalf("customer name not applied: %s", updated.CustomerName)
	}

	locked := testutil.SeedOrder(t, db, entity.OrderStatusInProduction, entity.ProductTypeLMR, 30)
	_, err = svc.Update(ctx, locked.ID, &UpdateOrderRequest{CustomerName: &name})
	if !errors.Is(err, entity.ErrInvalidTransition) {
		t.Fatalf("update in production should fail with ErrInvalidTransition, got %v", err)
	}
}

func TestUpdateOrderReplacesItems(t *testing.T) {
	db, svc := setupOrderTest(t)
	ctx := context.Background()

	order := testutil.SeedOrder(t, db, entity.OrderStatusSubmitted, entity.ProductTypeLMR, 30, 20)
	updated, err := svc.Update(ctx, order.ID, &UpdateOrderRequest{
		Items: []CreateOrderItem{{Description: "Replacement", Quantity: 99}},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(updated.Items) != 1 || updated.Items[0].Quantity != 99 {
		t.Fatalf("items not replaced: %+v", updated.Items)
	}

	var count int64
	db.Model(&entity.OrderItem{}).Where("order_id = ?", order.ID).Count(&count)
	if count != 1 {
		t.Fatalf("old items should be gone, found %d rows", count)
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	db, svc := setupOrderTest(t)
	ctx := context.Background()

	order := testutil.SeedOrder(t, db, entity.OrderStatusSubmitted, entity.ProductTypeLMR, 30)
	updated, err := svc.UpdateStatus(ctx, order.ID, entity.OrderStatusUnderReview, "user-1")
	if err != nil {
		t.Fatalf("legal transition failed: %v", err)
	}
	if updated.Status != entity.OrderStatusUnderReview {
		t.Fatalf("expected under_review, got %s", updated.Status)
	}

	// submitted -> in_production skips the whole review chain
	if _, err := svc.UpdateStatus(ctx, order.ID, entity.OrderStatusInProduction, "user-1"); !errors.Is(err, entity.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancelOrder(t *testing.T) {
	db, svc := setupOrderTest(t)
	ctx := context.Background()

	order := testutil.SeedOrder(t, db, entity.OrderStatusInProduction, entity.ProductTypeLMR, 30)
	updated, err := svc.Cancel(ctx, order.ID, "user-1")
	if err != nil {
		t.Fatalf("cancel from in_production should succeed: %v", err)
	}
	if updated.Status != entity.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", updated.Status)
	}

	done := testutil.SeedOrder(t, db, entity.OrderStatusDelivered, entity.ProductTypeLMR, 30)
	if _, err := svc.Cancel(ctx, done.ID, "user-1"); !errors.Is(err, entity.ErrInvalidTransition) {
		t.Fatalf("cancelling a delivered order should fail, got %v", err)
	}
}

func TestDeleteOrderOnlyWhileSubmitted(t *testing.T) {
	db, svc := setupOrderTest(t)
	ctx := context.Background()

	order := testutil.SeedOrder(t, db, entity.OrderStatusSubmitted, entity.ProductTypeLMR, 30)
	if err := svc.Delete(ctx, order.ID); err != nil {
		t.Fatalf("delete of submitted order failed: %v", err)
	}
	if _, err := svc.Get(ctx, order.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("order should be gone, got %v", err)
	}

	reviewed := testutil.SeedOrder(t, db, entity.OrderStatusUnderReview, entity.ProductTypeLMR, 30)
	if err := svc.Delete(ctx, reviewed.ID); !errors.Is(err, entity.ErrInvalidTransition) {
		t.Fatalf("delete after review should fail, got %v", err)
	}
}
