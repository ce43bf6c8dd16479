package mdd_test

import (
	"fmt"
	"math/rand"
	"slices"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/operator-framework/deppy-fd/pkg/cp"
	"github.com/operator-framework/deppy-fd/pkg/cp/mdd"
)

// product returns every tuple of the cross product of domains.
func product(domains [][]int) [][]int {
	out := [][]int{{}}
	for _, d := range domains {
		var next [][]int
		for _, prefix := range out {
			for _, v := range d {
				next = append(next, append(slices.Clone(prefix), v))
			}
		}
		out = next
	}
	return out
}

func contains(rows [][]int, t []int) bool {
	return slices.ContainsFunc(rows, func(r []int) bool { return slices.Equal(r, t) })
}

var _ = Describe("MDD", func() {
	var n *cp.Network

	BeforeEach(func() {
		n = cp.NewNetwork()
	})

	Context("construction", func() {
		It("should reject tuples of the wrong arity", func() {
			t := mdd.NewTuples(2)
			err := t.Add(1, 2, 3)
			var cfg *cp.ConfigurationError
			Expect(err).To(BeAssignableToTypeOf(cfg))

			vars := enumVars(n, 3, 0, 1)
			_, err = mdd.New(vars, t)
			Expect(err).To(MatchError(ContainSubstring("arity 2 over 3 variables")))
		})

		It("should reject a coordinate outside the domain", func() {
			vars := enumVars(n, 2, 0, 2)
			_, err := mdd.New(vars, tuplesOf(2, []int{0, 1}, []int{1, 3}))
			var cfg *cp.ConfigurationError
			Expect(err).To(BeAssignableToTypeOf(cfg))
			Expect(err).To(MatchError(ContainSubstring("outside the domain of X1")))
		})

		It("should reject a variable too wide for a layer", func() {
			x := n.NewBoolVar("x")
			y, err := n.NewIntervalVar("y", 0, 1<<20)
			Expect(err).ToNot(HaveOccurred())
			_, err = mdd.New([]*cp.IntVar{x, y}, tuplesOf(2, []int{0, 1}))
			var cfg *cp.ConfigurationError
			Expect(err).To(BeAssignableToTypeOf(cfg))
			Expect(err).To(MatchError(ContainSubstring("variable y spans")))
		})

		It("should reject an empty variable list", func() {
			_, err := mdd.New(nil, mdd.NewTuples(0))
			Expect(err).To(HaveOccurred())
		})

		It("should build a lone rejecting root for no tuples", func() {
			vars := enumVars(n, 4, 0, 2)
			m, err := mdd.New(vars, mdd.NewTuples(4))
			Expect(err).ToNot(HaveOccurred())
			Expect(m.Diagram()).To(Equal([]int{0, 0, 0}))
			Expect(m.NodeCount()).To(Equal(1))
			for _, t := range product([][]int{{0, 1, 2}, {0, 1, 2}, {0, 1, 2}, {0, 1, 2}}) {
				Expect(m.Exists(t)).To(BeFalse())
			}
		})

		It("should share isomorphic nodes", func() {
			vars := enumVars(n, 4, 0, 2)
			rows := [][]int{
				{0, 0, 0, 0}, {0, 0, 0, 1}, {0, 0, 1, 0}, {0, 0, 1, 1},
				{0, 1, 0, 0}, {0, 1, 0, 1}, {0, 1, 1, 0}, {0, 1, 1, 1},
				{2, 2, 2, 2},
			}
			m, err := mdd.New(vars, tuplesOf(4, rows...))
			Expect(err).ToNot(HaveOccurred())
			Expect(m.Diagram()).To(Equal([]int{3, 0, 12, 6, 6, 0, 9, 9, 0, -1, -1, 0, 0, 0, 15, 0, 0, 18, 0, 0, -1}))
			Expect(m.NodeCount()).To(Equal(7))

			trie, err := mdd.New(vars, tuplesOf(4, rows...), mdd.WithCompaction(false))
			Expect(err).ToNot(HaveOccurred())
			Expect(trie.NodeCount()).To(Equal(11))

			for _, t := range product([][]int{{0, 1, 2}, {0, 1, 2}, {0, 1, 2}, {0, 1, 2}}) {
				Expect(m.Exists(t)).To(Equal(contains(rows, t)), fmt.Sprint(t))
				Expect(trie.Exists(t)).To(Equal(contains(rows, t)), fmt.Sprint(t))
			}
		})

		It("should collapse a full cross product into a chain", func() {
			vars := enumVars(n, 3, 0, 1)
			all := product([][]int{{0, 1}, {0, 1}, {0, 1}})
			m, err := mdd.New(vars, tuplesOf(3, all...))
			Expect(err).ToNot(HaveOccurred())
			Expect(m.Diagram()).To(Equal([]int{2, 2, 4, 4, -1, -1}))
			for _, t := range all {
				Expect(m.Exists(t)).To(BeTrue())
			}
		})

		It("should reject tuples that leave the diagram", func() {
			x, err := n.NewIntervalVar("X", -1, 0)
			Expect(err).ToNot(HaveOccurred())
			y, err := n.NewEnumVarOf("Y", -1, 2)
			Expect(err).ToNot(HaveOccurred())
			m, err := mdd.New([]*cp.IntVar{x, y}, tuplesOf(2, []int{0, -1}, []int{-1, 2}))
			Expect(err).ToNot(HaveOccurred())
			Expect(m.Exists([]int{0, -1})).To(BeTrue())
			Expect(m.Exists([]int{-1, 2})).To(BeTrue())
			Expect(m.Exists([]int{0, 2})).To(BeFalse())
			Expect(m.Exists([]int{-1, -1})).To(BeFalse())
			Expect(m.Exists([]int{1, -1})).To(BeFalse())
			Expect(m.Exists([]int{0})).To(BeFalse())
		})

		DescribeTable("should accept the same tuples under every flag combination",
			func(domains [][]int, rows [][]int) {
				vars := make([]*cp.IntVar, len(domains))
				for i, d := range domains {
					x, err := n.NewEnumVarOf(fmt.Sprint("V", i), d...)
					Expect(err).ToNot(HaveOccurred())
					vars[i] = x
				}
				for _, opts := range flags {
					m, err := mdd.New(vars, tuplesOf(len(vars), rows...), opts...)
					Expect(err).ToNot(HaveOccurred())
					for _, t := range product(domains) {
						Expect(m.Exists(t)).To(Equal(contains(rows, t)), fmt.Sprint(t))
					}
				}
			},
			Entry("holes in the second layer", [][]int{{0, 1}, {-1, 1}},
				[][]int{{0, -1}, {1, -1}, {0, 1}}),
			Entry("three signed layers", [][]int{{-1, 0, 1}, {-1, 0, 1}, {-1, 0, 1}},
				[][]int{{0, -1, -1}, {-1, 0, -1}, {1, -1, 0}, {0, 0, 0}, {-1, 1, 0}, {1, 0, 1}, {0, 1, 1}}),
			Entry("duplicates", [][]int{{0, 1}, {0, 1}},
				[][]int{{1, 1}, {0, 1}, {1, 1}}),
		)

		It("should lay out sorted tuples independently of input order", func() {
			vars := enumVars(n, 3, -1, 1)
			rows := [][]int{{0, -1, -1}, {-1, 0, -1}, {1, -1, 0}, {0, 0, 0}}
			a, err := mdd.New(vars, tuplesOf(3, rows...), mdd.WithSortedTuples(true))
			Expect(err).ToNot(HaveOccurred())
			slices.Reverse(rows)
			b, err := mdd.New(vars, tuplesOf(3, rows...), mdd.WithSortedTuples(true))
			Expect(err).ToNot(HaveOccurred())
			Expect(a.Diagram()).To(Equal(b.Diagram()))
		})
	})

	Context("propagation", func() {
		It("should remove nothing for a full cross product", func() {
			vars := enumVars(n, 3, 0, 1)
			c, err := mdd.Table(vars, tuplesOf(3, product([][]int{{0, 1}, {0, 1}, {0, 1}})...))
			Expect(err).ToNot(HaveOccurred())
			Expect(n.Post(c)).To(Succeed())
			for _, x := range vars {
				Expect(x.Values()).To(Equal([]int{0, 1}))
			}
		})

		It("should fail on an empty tuple set", func() {
			vars := enumVars(n, 3, 0, 2)
			c, err := mdd.Table(vars, mdd.NewTuples(3))
			Expect(err).ToNot(HaveOccurred())
			Expect(cp.IsContradiction(n.Post(c))).To(BeTrue())
		})

		It("should filter generated tuples as search narrows the domains", func() {
			vars := enumVars(n, 3, 0, 1)
			exactlyOne := mdd.Generate(vars, func(t []int) bool { return t[0]+t[1]+t[2] == 1 })
			Expect(exactlyOne.Len()).To(Equal(3))
			c, err := mdd.Table(vars, exactlyOne)
			Expect(err).ToNot(HaveOccurred())
			Expect(n.Post(c)).To(Succeed())

			m := n.Checkpoint()
			_, err = vars[1].Instantiate(1)
			Expect(err).ToNot(HaveOccurred())
			Expect(n.Propagate()).To(Succeed())
			Expect(vars[0].Value()).To(Equal(0))
			Expect(vars[2].Value()).To(Equal(0))
			Expect(c.Entailed()).To(Equal(cp.EntailTrue))

			Expect(n.Rollback(m)).To(Succeed())
			Expect(vars[0].Values()).To(Equal([]int{0, 1}))
		})

		It("should compute exactly the supported values on random tables", func() {
			r := rand.New(rand.NewSource(3))
			domains := [][]int{{0, 1, 2}, {0, 1, 2}, {0, 1, 2}}
			all := product(domains)
			for round := 0; round < 100; round++ {
				var rows [][]int
				for _, t := range all {
					if r.Intn(4) == 0 {
						rows = append(rows, t)
					}
				}
				for _, opts := range flags {
					n := cp.NewNetwork()
					vars := enumVars(n, 3, 0, 2)
					c, err := mdd.Table(vars, tuplesOf(3, rows...), opts...)
					Expect(err).ToNot(HaveOccurred())
					for _, x := range vars {
						if v := r.Intn(4); v < 3 {
							_, err := x.RemoveValue(v)
							Expect(err).ToNot(HaveOccurred())
						}
					}

					expected := make([][]int, 3)
					for _, t := range rows {
						if vars[0].Contains(t[0]) && vars[1].Contains(t[1]) && vars[2].Contains(t[2]) {
							for l, v := range t {
								if !slices.Contains(expected[l], v) {
									expected[l] = append(expected[l], v)
								}
							}
						}
					}
					err = n.Post(c)
					desc := fmt.Sprintf("round %d: %v", round, rows)
					if expected[0] == nil {
						Expect(cp.IsContradiction(err)).To(BeTrue(), desc)
						continue
					}
					Expect(err).ToNot(HaveOccurred(), desc)
					for l, x := range vars {
						slices.Sort(expected[l])
						Expect(x.Values()).To(Equal(expected[l]), desc)
					}
				}
			}
		})
	})
})
