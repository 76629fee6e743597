package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/bitfantasy/nimo-scm/internal/scm/entity"
)

// AllocationEngine 多策略分配引擎，纯计算无副作用
type AllocationEngine struct{}

func NewAllocationEngine() *AllocationEngine {
	return &AllocationEngine{}
}

// Allocate 按策略把总量分配到合格供应商。
// 每个分配量不低于最小分配单位、不超过该供应商剩余产能；
// 低于最小单位的候选直接丢弃而不是补零。
func (e *AllocationEngine) Allocate(infos []SupplierAllocationInfo, total int, strategy string) []entity.SupplierAllocation {
	if total <= 0 || len(infos) == 0 {
		return nil
	}

	switch strategy {
	case entity.StrategyEven:
		return e.allocateEven(infos, total)
	case entity.StrategyPerformance:
		return e.allocatePerformance(infos, total)
	case entity.StrategyCapacity:
		return e.allocateCapacity(infos, total)
	default:
		return e.allocateBalanced(infos, total)
	}
}

// allocateEven 均分：base=total/N，余数按合格顺序每家加一个单位
func (e *AllocationEngine) allocateEven(infos []SupplierAllocationInfo, total int) []entity.SupplierAllocation {
	n := len(infos)
	base := total / n
	remainder := total % n

	var allocations []entity.SupplierAllocation
	remaining := total
	for i, info := range infos {
		if remaining <= 0 {
			break
		}
		target := base
		if i < remainder {
			target++
		}
		qty := minInt(target, info.AvailableCapacity, remaining)
		if qty < MinAllocationUnit {
			continue
		}
		allocations = append(allocations, newAllocation(info, qty, total,
			fmt.Sprintf("even: %d of %d units", qty, total)))
		remaining -= qty
	}
	return allocations
}

// allocatePerformance 绩效加权：weight=score+bonus，按绩效降序分配
func (e *AllocationEngine) allocatePerformance(infos []SupplierAllocationInfo, total int) []entity.SupplierAllocation {
	sorted := sortedCopy(infos, func(a, b SupplierAllocationInfo) bool {
		return a.PerformanceScore > b.PerformanceScore
	})

	var weightSum float64
	weights := make([]float64, len(sorted))
	for i, info := range sorted {
		weights[i] = info.PerformanceScore + performanceBonus(info)
		weightSum += weights[i]
	}
	if weightSum <= 0 {
		return nil
	}

	var allocations []entity.SupplierAllocation
	remaining := total
	for i, info := range sorted {
		if remaining <= 0 {
			break
		}
		target := int(math.Round(weights[i] / weightSum * float64(total)))
		qty := minInt(target, info.AvailableCapacity, remaining)
		if qty < MinAllocationUnit {
			continue
		}
		allocations = append(allocations, newAllocation(info, qty, total,
			fmt.Sprintf("performance: weight %.2f, %d of %d units", weights[i], qty, total)))
		remaining -= qty
	}
	return allocations
}

// allocateCapacity 产能优先：按剩余产能降序，每家尽量吃满
func (e *AllocationEngine) allocateCapacity(infos []SupplierAllocationInfo, total int) []entity.SupplierAllocation {
	sorted := sortedCopy(infos, func(a, b SupplierAllocationInfo) bool {
		return a.AvailableCapacity > b.AvailableCapacity
	})

	var allocations []entity.SupplierAllocation
	remaining := total
	for _, info := range sorted {
		if remaining <= 0 {
			break
		}
		qty := minInt(info.AvailableCapacity, remaining)
		if qty < MinAllocationUnit {
			continue
		}
		allocations = append(allocations, newAllocation(info, qty, total,
			fmt.Sprintf("capacity: %d of %d available", qty, info.AvailableCapacity)))
		remaining -= qty
	}
	return allocations
}

// allocateBalanced 综合策略：composite=0.6×绩效+0.4×(1−产能占用率)，
// 首轮按权重分配，剩余量按绩效降序二次分给已分配供应商的剩余产能
func (e *AllocationEngine) allocateBalanced(infos []SupplierAllocationInfo, total int) []entity.SupplierAllocation {
	type scored struct {
		info      SupplierAllocationInfo
		composite float64
	}
	scoredInfos := make([]scored, 0, len(infos))
	var weightSum float64
	for _, info := range infos {
		c := 0.6*info.PerformanceScore + 0.4*(1-info.CapacityUtilization)
		scoredInfos = append(scoredInfos, scored{info: info, composite: c})
		weightSum += c
	}
	if weightSum <= 0 {
		return nil
	}
	sort.SliceStable(scoredInfos, func(i, j int) bool {
		return scoredInfos[i].composite > scoredInfos[j].composite
	})

	// 首轮
	var allocations []entity.SupplierAllocation
	remaining := total
	for _, sc := range scoredInfos {
		if remaining <= 0 {
			break
		}
		target := int(math.Round(sc.composite / weightSum * float64(total)))
		qty := minInt(target, sc.info.AvailableCapacity, remaining)
		if qty < MinAllocationUnit {
			continue
		}
		allocations = append(allocations, newAllocation(sc.info, qty, total,
			fmt.Sprintf("balanced: composite %.2f, %d of %d units", sc.composite, qty, total)))
		remaining -= qty
	}

	// 二次分配：取整和产能封顶留下的余量给已分配供应商的剩余空间
	if remaining > 0 {
		allocations = redistributeLeftover(allocations, remaining, total)
	}
	return allocations
}

// redistributeLeftover 重建分配列表而不是原地修改，避免跨轮别名问题
func redistributeLeftover(allocations []entity.SupplierAllocation, leftover, total int) []entity.SupplierAllocation {
	order := make([]int, len(allocations))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return allocations[order[a]].PerformanceScore > allocations[order[b]].PerformanceScore
	})

	extra := make([]int, len(allocations))
	for _, idx := range order {
		if leftover <= 0 {
			break
		}
		headroom := allocations[idx].AvailableCapacity - allocations[idx].Quantity
		if headroom <= 0 {
			continue
		}
		add := minInt(headroom, leftover)
		extra[idx] = add
		leftover -= add
	}

	rebuilt := make([]entity.SupplierAllocation, 0, len(allocations))
	for i, a := range allocations {
		if extra[i] > 0 {
			a.Quantity += extra[i]
			a.Percentage = percentage(a.Quantity, total)
			a.Reason = fmt.Sprintf("%s (+%d redistributed)", a.Reason, extra[i])
		}
		rebuilt = append(rebuilt, a)
	}
	return rebuilt
}

// performanceBonus 绩效加成：优选供应商+0.2，可靠供应商+0.1，互斥且优选优先
func performanceBonus(info SupplierAllocationInfo) float64 {
	if info.QualityRating >= 4.5 && info.OnTimeRate >= 0.9 {
		return 0.2
	}
	if info.OnTimeRate >= 0.95 {
		return 0.1
	}
	return 0
}

func newAllocation(info SupplierAllocationInfo, qty, total int, reason string) entity.SupplierAllocation {
	return entity.SupplierAllocation{
		SupplierID:        info.SupplierID,
		SupplierName:      info.SupplierName,
		Quantity:          qty,
		Percentage:        percentage(qty, total),
		AvailableCapacity: info.AvailableCapacity,
		PerformanceScore:  info.PerformanceScore,
		QualityRating:     info.QualityRating,
		OnTimeRate:        info.OnTimeRate,
		Reason:            reason,
	}
}

func percentage(qty, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(qty) / float64(total) * 100
}

func sortedCopy(infos []SupplierAllocationInfo, less func(a, b SupplierAllocationInfo) bool) []SupplierAllocationInfo {
	out := make([]SupplierAllocationInfo, len(infos))
	copy(out, infos)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
