package services

import (
	"time"
)

// tourProblem is one solver invocation's private search state: an anchored
// cycle over n nodes with integer arc costs. The closing arc back to the
// anchor is implied, never stored in the tour slice.
type tourProblem struct {
	n      int
	cost   []int64 // row-major n×n
	anchor int
	tail   int // node deferred to the end of construction; -1 when unused
}

func (p *tourProblem) arc(i, j int) int64 { return p.cost[i*p.n+j] }

// tourSearch runs cheapest-arc construction followed by guided local
// search. Worsening moves are never taken directly; instead, arc-usage
// penalties reshape the cost surface at each local optimum so the search
// can climb out of it. The best tour seen (by true cost) is retained, so
// the search is anytime once construction finishes.
type tourSearch struct {
	p       *tourProblem
	penalty []int32 // per-arc GLS penalties, row-major
	lambda  int64   // penalty weight in augmented cost

	tour     []int // current tour, tour[0] == anchor
	best     []int
	bestCost int64
}

// deadline check granularity; scanning candidate moves is cheap, clock
// reads are not.
const deadlineCheckMask = 0x3ff

// penaltyWeightDivisor sets lambda ≈ tourCost / (5n), the classic GLS
// regularization scale for TSP.
const penaltyWeightDivisor = 5

// searchTour solves the anchored-cycle problem within the wall-clock
// limit. ok is false only when no feasible tour could be constructed
// (degenerate input, n < 1 or anchor out of range).
func searchTour(p *tourProblem, timeLimit time.Duration) (route []int, ok bool) {
	if p.n < 1 || p.anchor < 0 || p.anchor >= p.n {
		return nil, false
	}

	s := &tourSearch{
		p:       p,
		penalty: make([]int32, p.n*p.n),
	}

	s.tour = s.construct()
	s.best = append([]int(nil), s.tour...)
	s.bestCost = s.trueCost(s.tour)

	if p.n <= 3 {
		// Any anchored order over ≤3 nodes that the construction returns is
		// already optimal up to the only available permutations; still run
		// one improvement pass for the 3-node case.
		if p.n == 3 {
			s.improve(time.Now().Add(timeLimit))
		}
		return s.best, true
	}

	s.lambda = s.bestCost / int64(p.n*penaltyWeightDivisor)
	if s.lambda < 1 {
		s.lambda = 1
	}

	s.improve(time.Now().Add(timeLimit))
	return s.best, true
}

// construct builds the initial tour by always following the cheapest
// feasible arc from the current node (ties break on the lower index).
func (s *tourSearch) construct() []int {
	n := s.p.n
	tour := make([]int, 0, n)
	visited := make([]bool, n)

	cur := s.p.anchor
	tour = append(tour, cur)
	visited[cur] = true

	for len(tour) < n {
		next := -1
		var nextCost int64
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			// A deferred tail node joins only when nothing else is left,
			// so its cheap in-arcs cannot hijack the greedy walk.
			if j == s.p.tail && len(tour) < n-1 {
				continue
			}
			c := s.p.arc(cur, j)
			if next == -1 || c < nextCost {
				next = j
				nextCost = c
			}
		}
		tour = append(tour, next)
		visited[next] = true
		cur = next
	}

	return tour
}

func (s *tourSearch) trueCost(tour []int) int64 {
	var total int64
	for i := 0; i < len(tour); i++ {
		total += s.p.arc(tour[i], tour[(i+1)%len(tour)])
	}
	return total
}

// augArc is the arc cost on the penalty-augmented surface the local
// search descends.
func (s *tourSearch) augArc(i, j int) int64 {
	return s.p.arc(i, j) + s.lambda*int64(s.penalty[i*s.p.n+j])
}

// improve alternates first-improvement descent with penalty updates until
// the deadline. The current tour keeps evolving on the augmented surface;
// the best tour is tracked by true cost.
func (s *tourSearch) improve(deadline time.Time) {
	steps := 0
	expired := func() bool {
		steps++
		if steps&deadlineCheckMask != 0 {
			return false
		}
		return !time.Now().Before(deadline)
	}

	keepBest := func() {
		if c := s.trueCost(s.tour); c < s.bestCost {
			s.bestCost = c
			copy(s.best, s.tour)
		}
	}

	for {
		improved := true
		for improved {
			if expired() {
				keepBest()
				return
			}
			improved = s.relocatePass(expired) || s.exchangePass(expired)
		}

		keepBest()

		if !time.Now().Before(deadline) {
			return
		}
		s.penalizeUtilityArcs()
	}
}

// relocatePass tries moving segments of length 1–3 to another position.
// Segment moves keep direction, which stays correct on asymmetric
// matrices (no reversal). Returns true on the first improving move.
func (s *tourSearch) relocatePass(expired func() bool) bool {
	n := s.p.n
	t := s.tour

	for segLen := 1; segLen <= 3 && segLen < n-1; segLen++ {
		for i := 1; i+segLen-1 < n; i++ {
			if expired() {
				return false
			}

			e := i + segLen - 1
			pre := t[i-1]
			segHead := t[i]
			segTail := t[e]
			post := t[(e+1)%n]

			removeGain := s.augArc(pre, segHead) + s.augArc(segTail, post) - s.augArc(pre, post)

			for j := 0; j < n; j++ {
				// Insertion happens after position j; skip positions
				// touching the segment itself.
				if j >= i-1 && j <= e {
					continue
				}
				after := t[j]
				next := t[(j+1)%n]

				insertCost := s.augArc(after, segHead) + s.augArc(segTail, next) - s.augArc(after, next)
				if insertCost < removeGain {
					s.applyRelocate(i, e, j)
					return true
				}
			}
		}
	}

	return false
}

// applyRelocate moves tour[i..e] so it follows the node currently at
// position j (j outside [i-1, e]).
func (s *tourSearch) applyRelocate(i, e, j int) {
	t := s.tour
	seg := append([]int(nil), t[i:e+1]...)
	rest := append([]int(nil), t[:i]...)
	rest = append(rest, t[e+1:]...)

	// Position of the insertion node within rest.
	pos := j
	if j > e {
		pos = j - len(seg)
	}

	out := make([]int, 0, len(t))
	out = append(out, rest[:pos+1]...)
	out = append(out, seg...)
	out = append(out, rest[pos+1:]...)
	s.tour = out
}

// exchangePass swaps two non-anchor nodes. Returns true on the first
// improving move.
func (s *tourSearch) exchangePass(expired func() bool) bool {
	n := s.p.n
	t := s.tour

	for i := 1; i < n-1; i++ {
		if expired() {
			return false
		}
		for j := i + 1; j < n; j++ {
			var delta int64

			a := t[i-1]
			u := t[i]
			v := t[j]
			b := t[(j+1)%n]

			if j == i+1 {
				delta = s.augArc(a, v) + s.augArc(v, u) + s.augArc(u, b) -
					s.augArc(a, u) - s.augArc(u, v) - s.augArc(v, b)
			} else {
				p := t[j-1]
				q := t[i+1]
				delta = s.augArc(a, v) + s.augArc(v, q) + s.augArc(p, u) + s.augArc(u, b) -
					s.augArc(a, u) - s.augArc(u, q) - s.augArc(p, v) - s.augArc(v, b)
			}

			if delta < 0 {
				t[i], t[j] = t[j], t[i]
				return true
			}
		}
	}

	return false
}

// penalizeUtilityArcs increments the penalty of the current tour's
// highest-utility arcs (cost divided by one plus current penalty), the
// guided-local-search rule that discourages re-using expensive structure.
func (s *tourSearch) penalizeUtilityArcs() {
	n := s.p.n
	t := s.tour

	var maxUtil float64 = -1
	for i := 0; i < n; i++ {
		from, to := t[i], t[(i+1)%n]
		util := float64(s.p.arc(from, to)) / float64(1+s.penalty[from*n+to])
		if util > maxUtil {
			maxUtil = util
		}
	}
	if maxUtil <= 0 {
		return
	}

	for i := 0; i < n; i++ {
		from, to := t[i], t[(i+1)%n]
		util := float64(s.p.arc(from, to)) / float64(1+s.penalty[from*n+to])
		if util == maxUtil {
			s.penalty[from*n+to]++
		}
	}
}
