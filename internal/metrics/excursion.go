package metrics

import (
	"math"

	"github.com/san-kum/langevin/internal/dynamo"
)

// Excursion is the largest distance from the first observed position.
type Excursion struct {
	name    string
	origin  float64
	maxDist float64
	samples int
}

func NewExcursion() *Excursion {
	return &Excursion{name: "max_excursion"}
}

func (s *Excursion) Name() string {
	return s.name
}

func (s *Excursion) Observe(x dynamo.State, _ float64) {
	pos := x[dynamo.Position]
	if s.samples == 0 {
		s.origin = pos
	}
	s.samples++
	s.maxDist = math.Max(s.maxDist, math.Abs(pos-s.origin))
}

func (s *Excursion) Value() float64 {
	return s.maxDist
}

func (s *Excursion) Reset() {
	s.origin = 0
	s.maxDist = 0
	s.samples = 0
}
