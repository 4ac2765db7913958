package nn

import "sort"

// Schedule maps a 1-based epoch to the learning rate used during it.
type Schedule interface {
	LR(epoch int) float64
}

// MultiStep decays Base by Gamma once per milestone reached.
type MultiStep struct {
	Base       float64
	Milestones []int
	Gamma      float64
}

// LR returns Base * Gamma^k, k being the number of milestones <= epoch.
func (m MultiStep) LR(epoch int) float64 {
	lr := m.Base
	for _, ms := range m.Milestones {
		if ms <= epoch {
			lr *= m.Gamma
		}
	}
	return lr
}

// Steps holds explicit overrides: from each listed epoch on, its rate applies.
type Steps struct {
	Base float64
	At   map[int]float64
}

// LR returns the override of the latest listed epoch <= epoch, or Base.
func (s Steps) LR(epoch int) float64 {
	var keys []int
	for e := range s.At {
		keys = append(keys, e)
	}
	sort.Ints(keys)
	lr := s.Base
	for _, e := range keys {
		if e > epoch {
			break
		}
		lr = s.At[e]
	}
	return lr
}
