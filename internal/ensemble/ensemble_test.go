package ensemble_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/langevin/internal/dynamo"
	"github.com/san-kum/langevin/internal/ensemble"
	"github.com/san-kum/langevin/internal/params"
	"github.com/san-kum/langevin/internal/physics"
	"github.com/san-kum/langevin/internal/sim"
)

// scriptedRunner hands out trajectories in call order.
type scriptedRunner struct {
	mu      sync.Mutex
	calls   int
	script  []*dynamo.Trajectory
	failAt  int
	failErr error
}

func (s *scriptedRunner) Run(_ context.Context, _ params.Physical, _ *rand.Rand) (*dynamo.Trajectory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if s.failErr != nil && i == s.failAt {
		return nil, s.failErr
	}
	return s.script[i%len(s.script)], nil
}

func trajectory(absorbed bool, times ...float64) *dynamo.Trajectory {
	tr := dynamo.NewTrajectory(len(times))
	for _, t := range times {
		tr.Append(t, dynamo.State{1, 0})
	}
	tr.Absorbed = absorbed
	tr.Truncated = absorbed
	return tr
}

func reducedBead() params.Physical {
	return params.Physical{
		Duration:    1,
		Dt:          1e-3,
		InitPos:     2.5,
		Mass:        1e-9,
		Gamma:       1e-10,
		Temperature: 300,
		Lambda:      1e-10,
		WallSize:    5,
		Noise:       true,
		Units:       physics.Reduced,
	}
}

var _ = Describe("Aggregator", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("first-passage filtering", func() {
		It("excludes trials that never reach a wall", func() {
			runner := &scriptedRunner{script: []*dynamo.Trajectory{trajectory(false, 0, 0.5, 1)}}
			res, err := ensemble.New(runner, ensemble.Config{Trials: 4}).Run(ctx, reducedBead())

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Samples).To(BeEmpty())
			Expect(res.Censored).To(Equal(4))
			Expect(res.Absorbed).To(BeZero())
			Expect(res.Histogram.Bins()).To(BeZero())
		})

		It("records exactly the truncated final time of absorbed trials", func() {
			runner := &scriptedRunner{script: []*dynamo.Trajectory{
				trajectory(true, 0, 0.1, 0.2),
				trajectory(false, 0, 0.5, 1),
				trajectory(true, 0, 0.1, 0.2, 0.3, 0.4),
			}}
			res, err := ensemble.New(runner, ensemble.Config{Trials: 3}).Run(ctx, reducedBead())

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Samples).To(Equal([]float64{0.2, 0.4}))
			Expect(res.Absorbed).To(Equal(2))
			Expect(res.Censored).To(Equal(1))
			Expect(res.Outcomes[1].PassageTime).To(BeZero())
			Expect(res.Histogram.Total()).To(Equal(2))
			Expect(res.Summary.Count).To(Equal(2))
		})

		It("matches the final time of a deterministic crossing", func() {
			p := reducedBead()
			p.Noise = false
			p.Gamma = 0
			p.Mass = 1
			p.InitVel = 10
			p.Dt = 0.01

			traj, err := sim.New(nil).Run(ctx, p, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(traj.Absorbed).To(BeTrue())
			want, _, _ := traj.Final()

			res, err := ensemble.New(sim.New(nil), ensemble.Config{Trials: 3}).Run(ctx, p)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Samples).To(Equal([]float64{want, want, want}))
			Expect(want).To(BeNumerically("~", 0.25, 0.011))
		})

		It("gives a zero passage time to particles that start on a wall", func() {
			p := reducedBead()
			p.InitPos = 0

			res, err := ensemble.New(sim.New(nil), ensemble.Config{Trials: 5, Seed: 11}).Run(ctx, p)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Samples).To(HaveLen(5))
			for _, s := range res.Samples {
				Expect(s).To(BeZero())
			}
		})
	})

	Describe("reproducibility", func() {
		It("produces identical samples for sequential and parallel runs", func() {
			p := reducedBead()
			seq, err := ensemble.New(sim.New(nil), ensemble.Config{Trials: 24, Seed: 7}).Run(ctx, p)
			Expect(err).NotTo(HaveOccurred())
			par, err := ensemble.New(sim.New(nil), ensemble.Config{Trials: 24, Seed: 7, Workers: 4}).Run(ctx, p)
			Expect(err).NotTo(HaveOccurred())

			Expect(par.Samples).To(Equal(seq.Samples))
			Expect(par.Censored).To(Equal(seq.Censored))
			for i, o := range par.Outcomes {
				Expect(o.Index).To(Equal(i))
				Expect(o.Seed).To(Equal(ensemble.TrialSeed(7, i)))
			}
		})

		It("changes with the base seed", func() {
			p := reducedBead()
			a, err := ensemble.New(sim.New(nil), ensemble.Config{Trials: 8, Seed: 1}).Run(ctx, p)
			Expect(err).NotTo(HaveOccurred())
			b, err := ensemble.New(sim.New(nil), ensemble.Config{Trials: 8, Seed: 1000}).Run(ctx, p)
			Expect(err).NotTo(HaveOccurred())

			Expect(a.Outcomes[0].FinalPos).NotTo(Equal(b.Outcomes[0].FinalPos))
		})
	})

	Describe("persistence and progress", func() {
		It("passes every trajectory to the sink and reports every trial", func() {
			var mu sync.Mutex
			seen := map[int]int{}
			progress := 0

			cfg := ensemble.Config{
				Trials:  6,
				Workers: 3,
				Sink: func(trial int, traj *dynamo.Trajectory) error {
					mu.Lock()
					defer mu.Unlock()
					seen[trial] = traj.Len()
					return nil
				},
				OnTrial: func(ensemble.Outcome) { progress++ },
			}
			res, err := ensemble.New(sim.New(nil), cfg).Run(ctx, reducedBead())

			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(HaveLen(6))
			Expect(progress).To(Equal(6))
			for i, o := range res.Outcomes {
				Expect(seen[i]).To(Equal(o.Steps))
			}
		})

		It("aborts when the sink fails", func() {
			boom := errors.New("disk full")
			cfg := ensemble.Config{
				Trials: 3,
				Sink:   func(int, *dynamo.Trajectory) error { return boom },
			}
			_, err := ensemble.New(sim.New(nil), cfg).Run(ctx, reducedBead())
			Expect(err).To(MatchError(boom))
			Expect(err.Error()).To(ContainSubstring("trial 0"))
		})
	})

	Describe("errors", func() {
		It("rejects the configuration before running any trial", func() {
			runner := &scriptedRunner{script: []*dynamo.Trajectory{trajectory(true, 0)}}
			p := reducedBead()
			p.Dt = 0

			_, err := ensemble.New(runner, ensemble.Config{Trials: 3}).Run(ctx, p)
			Expect(errors.Is(err, dynamo.ErrInvalidConfiguration)).To(BeTrue())
			Expect(runner.calls).To(BeZero())
		})

		It("rejects a non-positive wall", func() {
			p := reducedBead()
			p.WallSize = 0
			_, err := ensemble.New(sim.New(nil), ensemble.Config{Trials: 3}).Run(ctx, p)
			Expect(errors.Is(err, dynamo.ErrInvalidBoundary)).To(BeTrue())
			Expect(errors.Is(err, dynamo.ErrInvalidConfiguration)).To(BeTrue())
		})

		It("rejects a zero mass", func() {
			p := reducedBead()
			p.Mass = 0
			_, err := ensemble.New(sim.New(nil), ensemble.Config{Trials: 3}).Run(ctx, p)
			Expect(errors.Is(err, dynamo.ErrDivisionByZero)).To(BeTrue())
		})

		It("rejects a non-positive trial count", func() {
			_, err := ensemble.New(sim.New(nil), ensemble.Config{}).Run(ctx, reducedBead())
			Expect(errors.Is(err, dynamo.ErrInvalidConfiguration)).To(BeTrue())
		})

		It("aborts the whole ensemble on a failing trial", func() {
			boom := errors.New("diverged")
			runner := &scriptedRunner{
				script:  []*dynamo.Trajectory{trajectory(true, 0, 0.1)},
				failAt:  2,
				failErr: boom,
			}

			res, err := ensemble.New(runner, ensemble.Config{Trials: 5}).Run(ctx, reducedBead())
			Expect(res).To(BeNil())
			Expect(err).To(MatchError(boom))
			Expect(err.Error()).To(ContainSubstring("trial 2"))
			Expect(runner.calls).To(Equal(3))
		})

		It("stops when the context is canceled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := ensemble.New(sim.New(nil), ensemble.Config{Trials: 3}).Run(cctx, reducedBead())
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})
	})
})
