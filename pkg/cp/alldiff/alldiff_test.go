package alldiff_test

import (
	"fmt"
	"math/rand"
	"slices"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/operator-framework/deppy-fd/pkg/cp"
	"github.com/operator-framework/deppy-fd/pkg/cp/alldiff"
)

var _ = Describe("AllDifferent", func() {
	var n *cp.Network

	BeforeEach(func() {
		n = cp.NewNetwork()
	})

	It("should reject an empty variable list", func() {
		_, err := alldiff.New()
		var cfg *cp.ConfigurationError
		Expect(err).To(BeAssignableToTypeOf(cfg))
	})

	It("should reject a variable listed twice", func() {
		x := n.NewBoolVar("x")
		_, err := alldiff.NewBoundsOnly(x, x)
		Expect(err).To(MatchError(ContainSubstring("appears twice")))
	})

	It("should fail four variables sharing three values", func() {
		c, err := alldiff.NewBoundsOnly(enumVars(n, 4, 0, 2)...)
		Expect(err).ToNot(HaveOccurred())
		err = n.Post(c)
		Expect(cp.IsContradiction(err)).To(BeTrue())
		Expect(n.Engine().State()).To(Equal(cp.Failed))
	})

	It("should filter intervals at the edges of the value range", func() {
		vars := intervalVars(n, [][2]int{
			{cp.MaxValue - 1, cp.MaxValue},
			{cp.MaxValue - 1, cp.MaxValue},
			{cp.MinValue, cp.MaxValue},
			{cp.MinValue, cp.MinValue},
		})
		c, err := alldiff.NewBoundsOnly(vars...)
		Expect(err).ToNot(HaveOccurred())
		Expect(n.Post(c)).To(Succeed())
		Expect(vars[2].Min()).To(Equal(cp.MinValue + 1))
		Expect(vars[2].Max()).To(Equal(cp.MaxValue - 2))
	})

	It("should exclude the value of a fixed variable at the upper end", func() {
		vars := enumVars(n, 4, 0, 3)
		c, err := alldiff.NewBoundsOnly(vars...)
		Expect(err).ToNot(HaveOccurred())
		Expect(n.Post(c)).To(Succeed())

		n.Checkpoint()
		_, err = vars[3].Instantiate(3)
		Expect(err).ToNot(HaveOccurred())
		Expect(n.Propagate()).To(Succeed())
		for _, x := range vars[:3] {
			Expect(x.Max()).To(Equal(2), x.String())
			Expect(x.Contains(3)).To(BeFalse())
		}
	})

	It("should exclude the value of a fixed variable from every other domain", func() {
		vars := enumVars(n, 4, 0, 3)
		c, err := alldiff.New(vars...)
		Expect(err).ToNot(HaveOccurred())
		Expect(n.Post(c)).To(Succeed())

		n.Checkpoint()
		_, err = vars[0].Instantiate(2)
		Expect(err).ToNot(HaveOccurred())
		Expect(n.Propagate()).To(Succeed())
		for _, x := range vars[1:] {
			Expect(x.Values()).To(Equal([]int{0, 1, 3}), x.String())
		}
	})

	It("should chase instantiations caused by removals", func() {
		x, _ := n.NewEnumVarOf("x", 1)
		y, _ := n.NewEnumVarOf("y", 1, 2)
		z, _ := n.NewEnumVarOf("z", 1, 2, 3)
		c, err := alldiff.New(x, y, z)
		Expect(err).ToNot(HaveOccurred())
		Expect(n.Post(c)).To(Succeed())
		Expect(y.Value()).To(Equal(2))
		Expect(z.Value()).To(Equal(3))
		Expect(c.Entailed()).To(Equal(cp.EntailTrue))
	})

	It("should push bounds past a Hall interval", func() {
		vars := intervalVars(n, [][2]int{{1, 2}, {1, 2}, {1, 4}, {2, 5}})
		c, err := alldiff.NewBoundsOnly(vars...)
		Expect(err).ToNot(HaveOccurred())
		Expect(n.Post(c)).To(Succeed())
		Expect(vars[2].Min()).To(Equal(3))
		Expect(vars[3].Min()).To(Equal(3))
		Expect(vars[0].Max()).To(Equal(2))
	})

	It("should not report entailment while a variable is free", func() {
		vars := enumVars(n, 3, 0, 5)
		c, err := alldiff.New(vars...)
		Expect(err).ToNot(HaveOccurred())
		Expect(n.Post(c)).To(Succeed())
		Expect(c.Entailed()).To(Equal(cp.EntailUndefined))
	})

	It("should recover the occurrence counts after backtracking", func() {
		vars := intervalVars(n, [][2]int{{0, 3}, {0, 3}, {0, 3}})
		c, err := alldiff.NewBoundsOnly(vars...)
		Expect(err).ToNot(HaveOccurred())
		Expect(n.Post(c)).To(Succeed())

		m := n.Checkpoint()
		for _, x := range vars {
			_, err := x.UpdateUpperBound(1)
			Expect(err).ToNot(HaveOccurred())
		}
		Expect(cp.IsContradiction(n.Propagate())).To(BeTrue())
		Expect(n.Rollback(m)).To(Succeed())

		n.Checkpoint()
		for _, x := range vars {
			_, err := x.UpdateUpperBound(2)
			Expect(err).ToNot(HaveOccurred())
		}
		Expect(n.Propagate()).To(Succeed())
		for _, x := range vars {
			Expect([]int{x.Min(), x.Max()}).To(Equal([]int{0, 2}))
		}
	})

	Context("on random interval domains", func() {
		It("should tighten every bound to the hull of its supports", func() {
			r := rand.New(rand.NewSource(7))
			for round := 0; round < 200; round++ {
				size := 2 + r.Intn(4)
				bounds := make([][2]int, size)
				doms := make([][]int, size)
				for i := range bounds {
					lo := r.Intn(6)
					hi := lo + r.Intn(4)
					bounds[i] = [2]int{lo, hi}
					doms[i] = span(lo, hi)
				}
				supp, feasible := supports(doms)

				n := cp.NewNetwork()
				vars := intervalVars(n, bounds)
				c, err := alldiff.NewBoundsOnly(vars...)
				Expect(err).ToNot(HaveOccurred())
				err = n.Post(c)
				desc := fmt.Sprintf("round %d: %v", round, bounds)
				if !feasible {
					Expect(cp.IsContradiction(err)).To(BeTrue(), desc)
					continue
				}
				Expect(err).ToNot(HaveOccurred(), desc)
				for i, x := range vars {
					values := make([]int, 0, len(supp[i]))
					for v := range supp[i] {
						values = append(values, v)
					}
					Expect(x.Min()).To(Equal(slices.Min(values)), desc)
					Expect(x.Max()).To(Equal(slices.Max(values)), desc)
				}
			}
		})
	})

	Context("on random enumerated domains", func() {
		It("should keep every supported value and drop every fixed value from the others", func() {
			r := rand.New(rand.NewSource(11))
			for round := 0; round < 200; round++ {
				size := 2 + r.Intn(4)
				doms := make([][]int, size)
				for i := range doms {
					for v := 0; v < 6; v++ {
						if r.Intn(3) > 0 {
							doms[i] = append(doms[i], v)
						}
					}
					if len(doms[i]) == 0 {
						doms[i] = []int{r.Intn(6)}
					}
				}
				supp, feasible := supports(doms)

				n := cp.NewNetwork()
				vars := make([]*cp.IntVar, size)
				for i, d := range doms {
					x, err := n.NewEnumVarOf(fmt.Sprint("x", i), d...)
					Expect(err).ToNot(HaveOccurred())
					vars[i] = x
				}
				c, err := alldiff.New(vars...)
				Expect(err).ToNot(HaveOccurred())
				err = n.Post(c)
				desc := fmt.Sprintf("round %d: %v", round, doms)
				if err != nil {
					Expect(cp.IsContradiction(err)).To(BeTrue(), desc)
					Expect(feasible).To(BeFalse(), desc)
					continue
				}
				for i, x := range vars {
					for v := range supp[i] {
						Expect(x.Contains(v)).To(BeTrue(), "%s lost %d in %s", x.Name(), v, desc)
					}
					if !x.IsFixed() {
						continue
					}
					for j, y := range vars {
						if j != i {
							Expect(y.Contains(x.Value())).To(BeFalse(), desc)
						}
					}
				}
			}
		})
	})
})
