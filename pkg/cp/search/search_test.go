package search_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/operator-framework/deppy-fd/pkg/cp"
	"github.com/operator-framework/deppy-fd/pkg/cp/alldiff"
	"github.com/operator-framework/deppy-fd/pkg/cp/mdd"
	"github.com/operator-framework/deppy-fd/pkg/cp/search"
)

func keys(sols []*search.Solution) []string {
	out := make([]string, len(sols))
	for i, s := range sols {
		out[i] = key(s)
	}
	sort.Strings(out)
	return out
}

var _ = Describe("Search", func() {
	var (
		n   *cp.Network
		ctx context.Context
	)

	BeforeEach(func() {
		n = cp.NewNetwork()
		ctx = context.Background()
	})

	It("should enumerate every assignment of three free booleans", func() {
		boolVars(n, "a", "b", "c")
		s, err := search.New(n)
		Expect(err).ToNot(HaveOccurred())

		sols, err := s.All(ctx)
		Expect(err).ToNot(HaveOccurred())
		want := []string{
			"a=0 b=0 c=0", "a=0 b=0 c=1", "a=0 b=1 c=0", "a=0 b=1 c=1",
			"a=1 b=0 c=0", "a=1 b=0 c=1", "a=1 b=1 c=0", "a=1 b=1 c=1",
		}
		Expect(cmp.Diff(want, keys(sols))).To(BeEmpty())
		Expect(s.State()).To(Equal(search.StateExhausted))
		Expect(s.Stats().Solutions).To(Equal(int64(8)))
	})

	It("should produce solutions lazily and restore the network when done", func() {
		vars := boolVars(n, "a", "b")
		s, err := search.New(n)
		Expect(err).ToNot(HaveOccurred())

		first, err := s.Next(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(key(first)).To(Equal("a=0 b=0"))
		Expect(s.State()).To(Equal(search.StateBacktrack))
		Expect(vars[0].IsFixed()).To(BeTrue())

		for {
			sol, err := s.Next(ctx)
			Expect(err).ToNot(HaveOccurred())
			if sol == nil {
				break
			}
		}
		Expect(s.State()).To(Equal(search.StateExhausted))
		for _, x := range vars {
			Expect(x.Values()).To(Equal([]int{0, 1}))
		}
		Expect(n.Level()).To(Equal(0))

		sol, err := s.Next(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(sol).To(BeNil())
	})

	It("should enumerate permutations under all-different", func() {
		vars := make([]*cp.IntVar, 4)
		for i := range vars {
			x, err := n.NewEnumVar(fmt.Sprint("p", i), 1, 4)
			Expect(err).ToNot(HaveOccurred())
			vars[i] = x
		}
		c, err := alldiff.New(vars...)
		Expect(err).ToNot(HaveOccurred())
		Expect(n.Post(c)).To(Succeed())

		s, err := search.New(n, search.WithVarSelector(search.FirstFail), search.WithValueSelector(search.Max))
		Expect(err).ToNot(HaveOccurred())
		sols, err := s.All(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(sols).To(HaveLen(24))
		seen := map[string]bool{}
		for _, sol := range sols {
			Expect(seen[key(sol)]).To(BeFalse())
			seen[key(sol)] = true
			used := map[int]bool{}
			for _, x := range vars {
				v, err := sol.Value(x)
				Expect(err).ToNot(HaveOccurred())
				used[v] = true
			}
			Expect(used).To(HaveLen(4))
		}
	})

	It("should split interval domains", func() {
		vars := make([]*cp.IntVar, 3)
		for i := range vars {
			x, err := n.NewIntervalVar(fmt.Sprint("q", i), 1, 3)
			Expect(err).ToNot(HaveOccurred())
			vars[i] = x
		}
		c, err := alldiff.NewBoundsOnly(vars...)
		Expect(err).ToNot(HaveOccurred())
		Expect(n.Post(c)).To(Succeed())

		s, err := search.New(n, search.WithValueSelector(search.Mid))
		Expect(err).ToNot(HaveOccurred())
		sols, err := s.All(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(keys(sols)).To(Equal([]string{
			"q0=1 q1=2 q2=3", "q0=1 q1=3 q2=2", "q0=2 q1=1 q2=3",
			"q0=2 q1=3 q2=1", "q0=3 q1=1 q2=2", "q0=3 q1=2 q2=1",
		}))
	})

	It("should turn an interior assignment on an interval into a split", func() {
		_, err := n.NewIntervalVar("x", 0, 4)
		Expect(err).ToNot(HaveOccurred())
		middle := func(x *cp.IntVar) (search.Operator, int) {
			return search.Assign, (x.Min() + x.Max()) / 2
		}
		s, err := search.New(n, search.WithValueSelector(middle))
		Expect(err).ToNot(HaveOccurred())
		sols, err := s.All(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(keys(sols)).To(Equal([]string{"x=0", "x=1", "x=2", "x=3", "x=4"}))
	})

	It("should report an infeasible root without solutions", func() {
		vars := boolVars(n, "a", "b")
		c, err := alldiff.New(vars...)
		Expect(err).ToNot(HaveOccurred())
		Expect(n.Post(c)).To(Succeed())
		// left for the root propagation to discover
		_, err = vars[0].Instantiate(1)
		Expect(err).ToNot(HaveOccurred())
		_, err = vars[1].Instantiate(1)
		Expect(err).ToNot(HaveOccurred())

		s, err := search.New(n)
		Expect(err).ToNot(HaveOccurred())
		sols, err := s.All(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(sols).To(BeEmpty())
		Expect(s.State()).To(Equal(search.StateExhausted))
		Expect(s.Stats().Failures).To(Equal(int64(1)))
		Expect(s.Stats().Nodes).To(BeZero())
	})

	It("should not enumerate a network whose post already failed", func() {
		x, err := n.NewEnumVarOf("x", 0)
		Expect(err).ToNot(HaveOccurred())
		y, err := n.NewEnumVarOf("y", 0)
		Expect(err).ToNot(HaveOccurred())
		c, err := alldiff.New(x, y)
		Expect(err).ToNot(HaveOccurred())
		Expect(cp.IsContradiction(n.Post(c))).To(BeTrue())

		s, err := search.New(n)
		Expect(err).ToNot(HaveOccurred())
		sols, err := s.All(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(sols).To(BeEmpty())
		Expect(s.State()).To(Equal(search.StateExhausted))
		Expect(s.Stats().Failures).To(Equal(int64(1)))
	})

	It("should not enumerate after posting the false constraint", func() {
		boolVars(n, "a")
		Expect(cp.IsContradiction(n.Post(cp.FalseConstraint()))).To(BeTrue())

		s, err := search.New(n)
		Expect(err).ToNot(HaveOccurred())
		sols, err := s.All(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(sols).To(BeEmpty())
		Expect(s.Stats().Nodes).To(BeZero())

		// a second run over the same network fails the same way
		s, err = search.New(n)
		Expect(err).ToNot(HaveOccurred())
		sols, err = s.All(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(sols).To(BeEmpty())
	})

	It("should not enumerate after a failed instantiation", func() {
		vars := boolVars(n, "a", "b")
		_, err := vars[0].Instantiate(2)
		Expect(cp.IsContradiction(err)).To(BeTrue())

		s, err := search.New(n)
		Expect(err).ToNot(HaveOccurred())
		sols, err := s.All(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(sols).To(BeEmpty())
	})

	It("should trace failed branches", func() {
		vars := boolVars(n, "x", "y")
		Expect(n.Post(cp.NewConstraint("differ", &differ{x: vars[0], y: vars[1]}))).To(Succeed())
		var buf bytes.Buffer
		mon := &counter{}
		s, err := search.New(n, search.WithTracer(search.LoggingTracer{Writer: &buf}), search.WithMonitor(mon))
		Expect(err).ToNot(HaveOccurred())

		sols, err := s.All(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(keys(sols)).To(Equal([]string{"x=0 y=1", "x=1 y=0"}))
		Expect(buf.String()).To(ContainSubstring("---\nDecisions:\n- x = 0\n- y = 0\nConflict:\n- contradiction in differ: x == y\n"))
		Expect(s.Stats().Failures).To(Equal(int64(2)))

		Expect(mon.starts).To(Equal(1))
		Expect(mon.failures).To(Equal(2))
		Expect(mon.solutions).To(Equal(2))
		Expect(mon.decisions).To(Equal(int(s.Stats().Nodes)))
		Expect(mon.backtracks).To(Equal(int(s.Stats().Backtracks)))
		Expect(mon.closed).To(Equal([]search.State{search.StateExhausted}))
	})

	Context("limits", func() {
		BeforeEach(func() {
			boolVars(n, "a", "b", "c", "d")
		})

		It("should stop after the requested number of solutions", func() {
			s, err := search.New(n, search.WithSolutionLimit(3))
			Expect(err).ToNot(HaveOccurred())
			sols, err := s.All(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(sols).To(HaveLen(3))
			Expect(s.State()).To(Equal(search.StateStopped))
			Expect(s.StopReason()).To(Equal("solution limit reached"))
		})

		It("should stop after the requested number of nodes", func() {
			s, err := search.New(n, search.WithNodeLimit(2))
			Expect(err).ToNot(HaveOccurred())
			sols, err := s.All(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(sols).To(BeEmpty())
			Expect(s.Stats().Nodes).To(Equal(int64(2)))
			Expect(s.State()).To(Equal(search.StateStopped))
		})

		It("should stop when the context is done", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			s, err := search.New(n)
			Expect(err).ToNot(HaveOccurred())
			sol, err := s.Next(cctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(sol).To(BeNil())
			Expect(s.State()).To(Equal(search.StateStopped))
			Expect(s.StopReason()).To(Equal(context.Canceled.Error()))
		})

		It("should reject negative limits", func() {
			_, err := search.New(n, search.WithFailLimit(-1))
			var cfg *cp.ConfigurationError
			Expect(errors.As(err, &cfg)).To(BeTrue())
		})
	})

	Context("optimization", func() {
		var x, y *cp.IntVar

		BeforeEach(func() {
			var err error
			x, err = n.NewEnumVar("x", 0, 3)
			Expect(err).ToNot(HaveOccurred())
			y, err = n.NewEnumVar("y", 0, 3)
			Expect(err).ToNot(HaveOccurred())
			tuples := mdd.NewTuples(2)
			for _, t := range [][]int{{1, 0}, {3, 2}, {2, 3}, {0, 1}} {
				Expect(tuples.Add(t...)).To(Succeed())
			}
			c, err := mdd.Table([]*cp.IntVar{x, y}, tuples)
			Expect(err).ToNot(HaveOccurred())
			Expect(n.Post(c)).To(Succeed())
		})

		It("should find the maximum", func() {
			s, err := search.New(n, search.WithVars(y), search.Maximize(x))
			Expect(err).ToNot(HaveOccurred())
			best, err := s.Optimize(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(best.Value(x)).To(Equal(3))
			Expect(best.Value(y)).To(Equal(2))
			Expect(s.State()).To(Equal(search.StateExhausted))
		})

		It("should find the minimum", func() {
			s, err := search.New(n, search.WithValueSelector(search.Max), search.Minimize(y))
			Expect(err).ToNot(HaveOccurred())
			best, err := s.Optimize(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(best.Value(y)).To(Equal(0))
			Expect(best.Value(x)).To(Equal(1))
			Expect(s.Stats().Solutions).To(BeNumerically(">=", 1))
		})

		It("should refuse to optimize without an objective", func() {
			s, err := search.New(n)
			Expect(err).ToNot(HaveOccurred())
			_, err = s.Optimize(ctx)
			var perr *cp.ProtocolError
			Expect(errors.As(err, &perr)).To(BeTrue())
		})

		It("should reject an objective from another network", func() {
			other := cp.NewNetwork().NewBoolVar("z")
			_, err := search.New(n, search.Minimize(other))
			Expect(err).To(MatchError(ContainSubstring("another network")))
		})
	})

	It("should refuse the value of a variable left free", func() {
		vars := boolVars(n, "a", "b")
		s, err := search.New(n, search.WithVars(vars[0]))
		Expect(err).ToNot(HaveOccurred())
		sol, err := s.Next(ctx)
		Expect(err).ToNot(HaveOccurred())
		_, err = sol.Value(vars[1])
		var perr *cp.ProtocolError
		Expect(errors.As(err, &perr)).To(BeTrue())
		Expect(sol.Len()).To(Equal(1))
	})

	It("should render decisions", func() {
		x := n.NewBoolVar("x")
		Expect(search.Decision{Var: x, Op: search.Assign, Value: 1}.String()).To(Equal("x = 1"))
		Expect(search.Decision{Var: x, Op: search.Assign, Value: 1, Refuted: true}.String()).To(Equal("x != 1"))
		Expect(search.Decision{Var: x, Op: search.Split, Value: 0}.String()).To(Equal("x <= 0"))
		Expect(search.Decision{Var: x, Op: search.Split, Value: 0, Refuted: true}.String()).To(Equal("x > 0"))
	})

	Context("run ids", func() {
		It("should count up", func() {
			p := &search.IncreasingRunIDProvider{}
			Expect(p.NextRunID()).To(Equal("1"))
			Expect(p.NextRunID()).To(Equal("2"))
			s, err := search.New(n, search.WithRunIDProvider(p))
			Expect(err).ToNot(HaveOccurred())
			Expect(s.RunID()).To(Equal("3"))
		})

		It("should use the uuid when there is one", func() {
			id := uuid.MustParse("8a0b1c5e-1f0e-4d7b-9a55-3c2f0e6b7d41")
			p := search.NewCustomUUIDRunIDProvider(func() (uuid.UUID, error) { return id, nil })
			Expect(p.NextRunID()).To(Equal(id.String()))
		})

		It("should still produce an id when the generator fails", func() {
			p := search.NewCustomUUIDRunIDProvider(func() (uuid.UUID, error) { return uuid.Nil, errors.New("no entropy") })
			Expect(p.NextRunID()).To(ContainSubstring("with error: no entropy"))
		})
	})
})
