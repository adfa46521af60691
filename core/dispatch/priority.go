package dispatch

import (
	"math"
	"sort"
)

// Slot is a bounded, prioritized unit seen by the priority engine. It can
// carry energy (MWh) or steam (MT); the engine does not care.
type Slot struct {
	ID       string
	Priority int
	Min      float64
	Max      float64
}

// Assignment is the quantity given to one slot.
type Assignment struct {
	Slot
	Quantity float64
}

// Headroom returns the quantity the slot can still take.
func (a Assignment) Headroom() float64 { return a.Max - a.Quantity }

// Allocation is the outcome of a priority dispatch, in input order.
type Allocation struct {
	Assignments []Assignment
	Target      float64
	Total       float64
	TotalMin    float64
	TotalMax    float64
	Shortfall   float64 // target not placed
	Excess      float64 // minimum above target
}

// Quantity returns the quantity assigned to id.
func (a Allocation) Quantity(id string) float64 {
	for _, as := range a.Assignments {
		if as.ID == id {
			return as.Quantity
		}
	}
	return 0
}

// PriorityDispatcher allocates a quantity over slots tier by tier. Residual
// is the amount below which an undistributed remainder is treated as placed.
type PriorityDispatcher struct {
	Residual float64
}

// NewPriorityDispatcher returns an engine with the given residual threshold.
func NewPriorityDispatcher(residual float64) PriorityDispatcher {
	if residual <= 0 {
		residual = 1e-6
	}
	return PriorityDispatcher{Residual: residual}
}

// Raise sets every slot to its minimum and then places target-totalMin by
// ascending priority, splitting equally inside a tier.
func (d PriorityDispatcher) Raise(slots []Slot, target float64) Allocation {
	alloc := newAllocation(slots, target, false)
	remaining := target - alloc.TotalMin
	if remaining <= 0 {
		alloc.Excess = -remaining
		alloc.finish()
		return alloc
	}
	for _, tier := range tiers(alloc.Assignments, false) {
		if remaining <= d.Residual {
			break
		}
		remaining -= d.spread(alloc.Assignments, tier, remaining, +1)
	}
	alloc.finish()
	return alloc
}

// Lower starts every slot at its maximum and removes amount by descending
// priority, splitting equally inside a tier and never going below minimum.
// The unplaced part of amount is reported as Shortfall.
func (d PriorityDispatcher) Lower(slots []Slot, amount float64) Allocation {
	alloc := newAllocation(slots, 0, true)
	start := alloc.TotalMax
	remaining := amount
	for _, tier := range tiers(alloc.Assignments, true) {
		if remaining <= d.Residual {
			break
		}
		remaining -= d.spread(alloc.Assignments, tier, remaining, -1)
	}
	alloc.finish()
	alloc.Target = start - amount
	alloc.Shortfall = math.Max(0, remaining)
	if alloc.Shortfall <= d.Residual {
		alloc.Shortfall = 0
	}
	return alloc
}

// spread moves up to amount through the slots of one tier in equal steps,
// redistributing among slots that still have room. It returns what was moved.
func (d PriorityDispatcher) spread(as []Assignment, tier []int, amount float64, dir float64) float64 {
	moved := 0.0
	active := append([]int(nil), tier...)
	// Each pass either places the whole share or saturates at least one slot.
	for pass := 0; pass <= len(tier) && amount-moved > d.Residual && len(active) > 0; pass++ {
		share := (amount - moved) / float64(len(active))
		next := active[:0]
		for _, i := range active {
			room := as[i].Max - as[i].Quantity
			if dir < 0 {
				room = as[i].Quantity - as[i].Min
			}
			step := math.Min(share, room)
			as[i].Quantity += dir * step
			moved += step
			if room-step > d.Residual {
				next = append(next, i)
			}
		}
		active = next
	}
	return moved
}

func newAllocation(slots []Slot, target float64, atMax bool) Allocation {
	alloc := Allocation{Target: target, Assignments: make([]Assignment, len(slots))}
	for i, s := range slots {
		if s.Max < s.Min {
			s.Max = s.Min
		}
		q := s.Min
		if atMax {
			q = s.Max
		}
		alloc.Assignments[i] = Assignment{Slot: s, Quantity: q}
		alloc.TotalMin += s.Min
		alloc.TotalMax += s.Max
	}
	return alloc
}

func (a *Allocation) finish() {
	a.Total = 0
	for _, as := range a.Assignments {
		a.Total += as.Quantity
	}
	if a.Target > a.Total {
		a.Shortfall = a.Target - a.Total
	}
}

// tiers groups assignment indexes by priority, ascending unless reverse.
func tiers(as []Assignment, reverse bool) [][]int {
	byPrio := make(map[int][]int)
	var prios []int
	for i, a := range as {
		if _, ok := byPrio[a.Priority]; !ok {
			prios = append(prios, a.Priority)
		}
		byPrio[a.Priority] = append(byPrio[a.Priority], i)
	}
	sort.Ints(prios)
	if reverse {
		for i, j := 0, len(prios)-1; i < j; i, j = i+1, j-1 {
			prios[i], prios[j] = prios[j], prios[i]
		}
	}
	out := make([][]int, len(prios))
	for i, p := range prios {
		out[i] = byPrio[p]
	}
	return out
}
