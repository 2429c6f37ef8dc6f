// Package renumber collapses duplicate citations in a document and
// renumbers its reference list to a contiguous 1..K sequence.
package renumber

import (
	"sort"

	"github.com/matsen/citemap/internal/reference"
)

// Plan maps every original local number of one document to its final
// number. Removed numbers either redirect to a kept number or vanish.
type Plan struct {
	// Numbers lists every original number in ascending order.
	Numbers []int
	// Kept lists the surviving original numbers in ascending order.
	Kept []int
	// Removed lists the numbers whose entries are deleted.
	Removed []int
	// Redirect sends a removed number to the kept number that replaces it.
	Redirect map[int]int
	// Final is the number each original number ends up as. Removed
	// numbers without a redirect have no final number.
	Final map[int]int
}

// PlanDedup groups the fragment's numbers by key. In every group with more
// than one member the smallest number is kept and the others redirect to
// it. With no duplicates the plan still closes numbering gaps.
func PlanDedup(frag reference.Fragment) *Plan {
	byKey := make(map[string][]int)
	for _, n := range frag.Numbers() {
		byKey[frag[n]] = append(byKey[frag[n]], n)
	}

	redirect := make(map[int]int)
	for _, nums := range byKey {
		// nums ascend, so nums[0] is the canonical number
		for _, n := range nums[1:] {
			redirect[n] = nums[0]
		}
	}
	return newPlan(frag.Numbers(), redirect, nil)
}

// PlanRemoval removes the given numbers outright and renumbers the rest.
// Numbers not present in the fragment are ignored.
func PlanRemoval(frag reference.Fragment, remove []int) *Plan {
	drop := make(map[int]bool, len(remove))
	for _, n := range remove {
		if _, ok := frag[n]; ok {
			drop[n] = true
		}
	}
	return newPlan(frag.Numbers(), nil, drop)
}

func newPlan(numbers []int, redirect map[int]int, drop map[int]bool) *Plan {
	p := &Plan{
		Numbers:  numbers,
		Redirect: make(map[int]int, len(redirect)),
		Final:    make(map[int]int, len(numbers)),
	}
	for _, n := range numbers {
		if _, ok := redirect[n]; ok || drop[n] {
			p.Removed = append(p.Removed, n)
			continue
		}
		p.Kept = append(p.Kept, n)
	}
	for i, n := range p.Kept {
		p.Final[n] = i + 1
	}
	for n, target := range redirect {
		p.Redirect[n] = target
		p.Final[n] = p.Final[target]
	}
	return p
}

// Changed reports whether applying the plan would alter anything.
func (p *Plan) Changed() bool {
	if len(p.Removed) > 0 {
		return true
	}
	for _, n := range p.Kept {
		if p.Final[n] != n {
			return true
		}
	}
	return false
}

// IsRemoved reports whether n is deleted by the plan.
func (p *Plan) IsRemoved(n int) bool {
	i := sort.SearchInts(p.Removed, n)
	return i < len(p.Removed) && p.Removed[i] == n
}

// Fragment returns the chapter map fragment after the plan is applied.
func (p *Plan) Fragment(frag reference.Fragment) reference.Fragment {
	out := make(reference.Fragment, len(p.Kept))
	for _, n := range p.Kept {
		out[p.Final[n]] = frag[n]
	}
	return out
}
