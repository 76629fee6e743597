package service

import (
	"strings"
	"testing"

	"github.com/bitfantasy/nimo-scm/internal/scm/entity"
)

func info(id string, capacity int, utilization, score, quality, onTime float64) SupplierAllocationInfo {
	return SupplierAllocationInfo{
		SupplierID:          id,
		SupplierName:        "Supplier " + id,
		AvailableCapacity:   capacity,
		CapacityUtilization: utilization,
		PerformanceScore:    score,
		QualityRating:       quality,
		OnTimeRate:          onTime,
	}
}

func totalAllocated(allocations []entity.SupplierAllocation) int {
	total := 0
	for _, a := range allocations {
		total += a.Quantity
	}
	return total
}

// checkInvariants verifies the properties every strategy must hold:
// never over-allocate the total, never exceed a supplier's capacity,
// never emit an allocation below the minimum unit.
func checkInvariants(t *testing.T, allocations []entity.SupplierAllocation, total int) {
	t.Helper()
	if got := totalAllocated(allocations); got > total {
		t.Fatalf("allocated %d exceeds requested total %d", got, total)
	}
	for _, a := range allocations {
		if a.Quantity < MinAllocationUnit {
			t.Fatalf("supplier %s allocated %d, below minimum unit", a.SupplierID, a.Quantity)
		}
		if a.Quantity > a.AvailableCapacity {
			t.Fatalf("supplier %s allocated %d over capacity %d", a.SupplierID, a.Quantity, a.AvailableCapacity)
		}
	}
}

func TestAllocateEvenSplitsWithRemainder(t *testing.T) {
	engine := NewAllocationEngine()
	infos := []SupplierAllocationInfo{
		info("a", 100, 0.2, 0.9, 4.0, 0.9),
		info("b", 100, 0.2, 0.85, 4.0, 0.85),
		info("c", 100, 0.2, 0.8, 4.0, 0.8),
	}

	allocations := engine.Allocate(infos, 100, entity.StrategyEven)
	checkInvariants(t, allocations, 100)

	if len(allocations) != 3 {
		t.Fatalf("expected 3 allocations, got %d", len(allocations))
	}
	// 100/3 = 33 each, remainder 1 goes to the first supplier
	if allocations[0].Quantity != 34 || allocations[1].Quantity != 33 || allocations[2].Quantity != 33 {
		t.Fatalf("unexpected even split: %d/%d/%d",
			allocations[0].Quantity, allocations[1].Quantity, allocations[2].Quantity)
	}
	if totalAllocated(allocations) != 100 {
		t.Fatalf("even split should fully allocate, got %d", totalAllocated(allocations))
	}
}

func TestAllocateEvenCapsAtCapacity(t *testing.T) {
	engine := NewAllocationEngine()
	infos := []SupplierAllocationInfo{
		info("a", 10, 0.9, 0.9, 4.0, 0.9),
		info("b", 100, 0.1, 0.85, 4.0, 0.85),
	}

	allocations := engine.Allocate(infos, 100, entity.StrategyEven)
	checkInvariants(t, allocations, 100)

	// supplier a can only take 10 of its 50 share
	if allocations[0].SupplierID != "a" || allocations[0].Quantity != 10 {
		t.Fatalf("expected supplier a capped at 10, got %+v", allocations[0])
	}
}

func TestAllocateCapacityGreedyFill(t *testing.T) {
	engine := NewAllocationEngine()
	// capacity-based example: A has 70 available, B has 30; request 80
	infos := []SupplierAllocationInfo{
		info("b", 30, 0.7, 0.9, 4.0, 0.9),
		info("a", 70, 0.3, 0.8, 4.0, 0.8),
	}

	allocations := engine.Allocate(infos, 80, entity.StrategyCapacity)
	checkInvariants(t, allocations, 80)

	if len(allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(allocations))
	}
	// descending capacity: A first with all 70, B takes the remaining 10
	if allocations[0].SupplierID != "a" || allocations[0].Quantity != 70 {
		t.Fatalf("expected a=70 first, got %+v", allocations[0])
	}
	if allocations[1].SupplierID != "b" || allocations[1].Quantity != 10 {
		t.Fatalf("expected b=10 second, got %+v", allocations[1])
	}
}

func TestAllocatePerformanceWeighting(t *testing.T) {
	engine := NewAllocationEngine()
	infos := []SupplierAllocationInfo{
		info("low", 1000, 0.1, 0.72, 3.0, 0.75),
		// preferred supplier: quality>=4.5 and on-time>=0.9 earns +0.2
		info("pref", 1000, 0.1, 0.95, 4.8, 0.95),
	}

	allocations := engine.Allocate(infos, 100, entity.StrategyPerformance)
	checkInvariants(t, allocations, 100)

	if allocations[0].SupplierID != "pref" {
		t.Fatalf("best performer should be allocated first, got %s", allocations[0].SupplierID)
	}
	// weights: pref=1.15, low=0.72 → pref gets round(1.15/1.87*100)=61
	if allocations[0].Quantity != 61 {
		t.Fatalf("expected preferred supplier to get 61, got %d", allocations[0].Quantity)
	}
	if allocations[1].Quantity != 39 {
		t.Fatalf("expected low supplier to get 39, got %d", allocations[1].Quantity)
	}
}

func TestAllocateBalancedRedistributesLeftover(t *testing.T) {
	engine := NewAllocationEngine()
	// first pass rounds down leave leftover; redistribution should top up
	// the best performer within its remaining headroom
	infos := []SupplierAllocationInfo{
		info("a", 200, 0.1, 0.95, 4.5, 0.95),
		info("b", 40, 0.8, 0.8, 4.0, 0.8),
		info("c", 40, 0.8, 0.75, 3.5, 0.75),
	}

	allocations := engine.Allocate(infos, 150, entity.StrategyBalanced)
	checkInvariants(t, allocations, 150)

	if totalAllocated(allocations) != 150 {
		t.Fatalf("balanced strategy should fully allocate when capacity suffices, got %d", totalAllocated(allocations))
	}

	redistributed := false
	for _, a := range allocations {
		if strings.Contains(a.Reason, "redistributed") {
			redistributed = true
		}
	}
	if !redistributed {
		t.Fatal("expected at least one allocation topped up by redistribution")
	}
}

func TestAllocateBalancedShortfall(t *testing.T) {
	engine := NewAllocationEngine()
	infos := []SupplierAllocationInfo{
		info("a", 30, 0.7, 0.9, 4.0, 0.9),
		info("b", 20, 0.8, 0.85, 4.0, 0.85),
	}

	allocations := engine.Allocate(infos, 100, entity.StrategyBalanced)
	checkInvariants(t, allocations, 100)

	// total capacity 50 < 100; everything available must be used, nothing more
	if totalAllocated(allocations) != 50 {
		t.Fatalf("expected 50 allocated under shortfall, got %d", totalAllocated(allocations))
	}
}

func TestAllocateDropsBelowMinimumUnit(t *testing.T) {
	engine := NewAllocationEngine()
	// a tiny share that rounds to 0 must be dropped, not padded
	infos := []SupplierAllocationInfo{
		info("big", 1000, 0.1, 0.99, 5.0, 0.99),
		info("tiny", 1000, 0.1, 0.70, 3.0, 0.70),
	}

	allocations := engine.Allocate(infos, 2, entity.StrategyPerformance)
	checkInvariants(t, allocations, 2)

	for _, a := range allocations {
		if a.Quantity < MinAllocationUnit {
			t.Fatalf("allocation below minimum unit should be dropped: %+v", a)
		}
	}
}

func TestAllocateEmptyInputs(t *testing.T) {
	engine := NewAllocationEngine()

	if got := engine.Allocate(nil, 100, entity.StrategyEven); got != nil {
		t.Fatalf("no suppliers should yield nil, got %v", got)
	}
	infos := []SupplierAllocationInfo{info("a", 100, 0.2, 0.9, 4.0, 0.9)}
	if got := engine.Allocate(infos, 0, entity.StrategyEven); got != nil {
		t.Fatalf("zero total should yield nil, got %v", got)
	}
}

func TestAllocateUnknownStrategyFallsBackToBalanced(t *testing.T) {
	engine := NewAllocationEngine()
	infos := []SupplierAllocationInfo{
		info("a", 100, 0.2, 0.9, 4.0, 0.9),
		info("b", 100, 0.2, 0.8, 4.0, 0.8),
	}

	got := engine.Allocate(infos, 50, "nonsense")
	want := engine.Allocate(infos, 50, entity.StrategyBalanced)

	if len(got) != len(want) {
		t.Fatalf("fallback mismatch: got %d allocations, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i].SupplierID != want[i].SupplierID || got[i].Quantity != want[i].Quantity {
			t.Fatalf("fallback allocation %d differs: %+v vs %+v", i, got[i], want[i])
		}
	}
}

func TestPerformanceBonusTiers(t *testing.T) {
	// preferred beats reliable when both apply
	preferred := info("p", 100, 0.2, 0.9, 4.6, 0.96)
	if got := performanceBonus(preferred); got != 0.2 {
		t.Fatalf("expected preferred bonus 0.2, got %v", got)
	}
	reliable := info("r", 100, 0.2, 0.9, 4.0, 0.96)
	if got := performanceBonus(reliable); got != 0.1 {
		t.Fatalf("expected reliable bonus 0.1, got %v", got)
	}
	plain := info("n", 100, 0.2, 0.9, 4.0, 0.8)
	if got := performanceBonus(plain); got != 0 {
		t.Fatalf("expected no bonus, got %v", got)
	}
}
