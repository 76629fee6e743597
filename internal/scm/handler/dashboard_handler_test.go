package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-scm/internal/scm/entity"
	"github.com/bitfantasy/nimo-scm/internal/scm/testutil"
)

func TestOrderSummaryEndpoint(t *testing.T) {
	env := setupHandlerTest(t)
	token := testutil.DefaultTestToken()

	testutil.SeedOrder(t, env.DB, entity.OrderStatusSubmitted, entity.ProductTypeLMR, 30)
	testutil.SeedOrder(t, env.DB, entity.OrderStatusSubmitted, entity.ProductTypeLMR, 20)
	testutil.SeedOrder(t, env.DB, entity.OrderStatusInProduction, entity.ProductTypeFFV, 10)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/scm/dashboard/order-summary", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["total_orders"].(float64) != 3 {
		t.Fatalf("expected 3 total orders, got %v", data["total_orders"])
	}
	byStatus := data["by_status"].(map[string]interface{})
	if byStatus[entity.OrderStatusSubmitted].(float64) != 2 {
		t.Fatalf("expected 2 submitted orders, got %v", byStatus[entity.OrderStatusSubmitted])
	}
}

func TestFulfillmentProgressEndpoint(t *testing.T) {
	env := setupHandlerTest(t)
	token := testutil.DefaultTestToken()

	order := testutil.SeedOrder(t, env.DB, entity.OrderStatusPOCreated, entity.ProductTypeLMR, 60)
	supA := testutil.SeedSupplier(t, env.DB, "Acme Foods", entity.ProductTypeLMR, 100, 0, 0.95, 4.5)
	supB := testutil.SeedSupplier(t, env.DB, "Best Produce", entity.ProductTypeLMR, 100, 0, 0.9, 4.0)
	seedHandlerPO(t, env, order.ID, supA.ID, entity.POStatusDelivered)
	seedHandlerPO(t, env, order.ID, supB.ID, entity.POStatusConfirmed)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/scm/orders/"+order.ID+"/fulfillment", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["total_pos"].(float64) != 2 {
		t.Fatalf("expected 2 POs, got %v", data["total_pos"])
	}
	if data["confirmed_pos"].(float64) != 2 {
		t.Fatalf("both POs count as confirmed, got %v", data["confirmed_pos"])
	}
	if data["delivered_pos"].(float64) != 1 {
		t.Fatalf("expected 1 delivered PO, got %v", data["delivered_pos"])
	}
	if data["progress_pct"].(float64) != 50 {
		t.Fatalf("expected 50%% progress, got %v", data["progress_pct"])
	}
}

func TestSupplierLoadsEndpoint(t *testing.T) {
	env := setupHandlerTest(t)
	token := testutil.DefaultTestToken()

	order := testutil.SeedOrder(t, env.DB, entity.OrderStatusPOCreated, entity.ProductTypeLMR, 60)
	sup := testutil.SeedSupplier(t, env.DB, "Acme Foods", entity.ProductTypeLMR, 100, 0, 0.95, 4.5)
	// idle supplier never shows up
	testutil.SeedSupplier(t, env.DB, "Idle Farm", entity.ProductTypeLMR, 100, 0, 0.95, 4.5)
	seedHandlerPO(t, env, order.ID, sup.ID, entity.POStatusConfirmed)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/scm/dashboard/supplier-loads", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	loads := resp["data"].([]interface{})
	if len(loads) != 1 {
		t.Fatalf("expected 1 supplier with open load, got %d", len(loads))
	}
	load := loads[0].(map[string]interface{})
	if load["supplier_name"] != "Acme Foods" || load["open_pos"].(float64) != 1 {
		t.Fatalf("unexpected load row: %+v", load)
	}
}
