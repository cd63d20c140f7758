package startupdag_test

import (
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/recovery-kernel/internal/registry"
	"github.com/angeloszaimis/recovery-kernel/internal/startupdag"
)

func TestStartupDAG(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "StartupDAG Suite")
}

func register(fleet *registry.InMemory, name string, deps ...registry.Dependency) {
	err := fleet.Register(registry.Definition{
		Name:         name,
		Criticality:  registry.CriticalityOptional,
		Dependencies: deps,
	})
	Expect(err).NotTo(HaveOccurred())
}

func dep(component string) registry.Dependency {
	return registry.Dependency{Component: component}
}

var _ = Describe("DAG", func() {
	var fleet *registry.InMemory
	var dag *startupdag.DAG

	BeforeEach(func() {
		fleet = registry.NewInMemory()
		dag = startupdag.New(fleet)
	})

	Describe("Build", func() {
		It("should put independent components into a single sorted tier", func() {
			register(fleet, "comp-c")
			register(fleet, "comp-a")
			register(fleet, "comp-b")

			tiers, err := dag.Build()
			Expect(err).NotTo(HaveOccurred())
			Expect(tiers).To(HaveLen(1))
			Expect(tiers[0]).To(Equal([]string{"comp-a", "comp-b", "comp-c"}))
		})

		It("should order a dependency chain into one tier per component", func() {
			register(fleet, "comp-a")
			register(fleet, "comp-b", dep("comp-a"))
			register(fleet, "comp-c", dep("comp-b"))

			tiers, err := dag.Build()
			Expect(err).NotTo(HaveOccurred())
			Expect(tiers).To(Equal([][]string{
				{"comp-a"}, {"comp-b"}, {"comp-c"},
			}))
		})

		It("should place every dependency in an earlier tier", func() {
			register(fleet, "store")
			register(fleet, "cache", dep("store"))
			register(fleet, "api", dep("store"), dep("cache"))
			register(fleet, "worker", dep("store"))
			register(fleet, "ui", dep("api"))

			tiers, err := dag.Build()
			Expect(err).NotTo(HaveOccurred())

			tierOf := make(map[string]int)
			for i, tier := range tiers {
				for _, name := range tier {
					tierOf[name] = i
				}
			}

			for _, defn := range fleet.AllDefinitions() {
				for _, d := range defn.Dependencies {
					Expect(tierOf[d.Component]).To(BeNumerically("<", tierOf[defn.Name]),
						"%s must start before %s", d.Component, defn.Name)
				}
			}
		})

		It("should include names referenced only as dependencies", func() {
			register(fleet, "comp-b", dep("phantom"))

			tiers, err := dag.Build()
			Expect(err).NotTo(HaveOccurred())
			Expect(tiers).To(Equal([][]string{
				{"phantom"}, {"comp-b"},
			}))
		})

		It("should order soft dependencies like hard ones", func() {
			register(fleet, "gcp-prewarm")
			err := fleet.Register(registry.Definition{
				Name:        "assistant-prime",
				Criticality: registry.CriticalityDegradedOK,
				Dependencies: []registry.Dependency{
					{Component: "gcp-prewarm", Soft: true},
				},
			})
			Expect(err).NotTo(HaveOccurred())

			tiers, buildErr := dag.Build()
			Expect(buildErr).NotTo(HaveOccurred())
			Expect(tiers[0]).To(ContainElement("gcp-prewarm"))
			Expect(tiers[1]).To(ContainElement("assistant-prime"))
		})

		It("should return an empty plan for an empty registry", func() {
			tiers, err := dag.Build()
			Expect(err).NotTo(HaveOccurred())
			Expect(tiers).To(BeEmpty())
		})
	})

	Describe("cycle detection", func() {
		It("should reject a direct cycle", func() {
			register(fleet, "comp-a", dep("comp-b"))
			register(fleet, "comp-b", dep("comp-a"))

			_, err := dag.Build()
			Expect(err).To(HaveOccurred())

			var cycleErr *startupdag.CycleError
			Expect(errors.As(err, &cycleErr)).To(BeTrue())
		})

		It("should report the full cycle path", func() {
			// a -> c, b -> a, c -> b
			register(fleet, "comp-a", dep("comp-c"))
			register(fleet, "comp-b", dep("comp-a"))
			register(fleet, "comp-c", dep("comp-b"))

			_, err := dag.Build()

			var cycleErr *startupdag.CycleError
			Expect(errors.As(err, &cycleErr)).To(BeTrue())
			Expect(cycleErr.Path).To(ContainElements("comp-a", "comp-b", "comp-c"))
			Expect(cycleErr.Path[0]).To(Equal(cycleErr.Path[len(cycleErr.Path)-1]))
			Expect(err.Error()).To(ContainSubstring("dependency cycle detected"))
			Expect(err.Error()).To(ContainSubstring(" -> "))
		})

		It("should reject a self-dependency", func() {
			register(fleet, "comp-a", dep("comp-a"))

			_, err := dag.Build()

			var cycleErr *startupdag.CycleError
			Expect(errors.As(err, &cycleErr)).To(BeTrue())
			Expect(cycleErr.Path).To(Equal([]string{"comp-a", "comp-a"}))
		})
	})

	Describe("Tier", func() {
		It("should build implicitly on first use", func() {
			register(fleet, "comp-a")
			register(fleet, "comp-b", dep("comp-a"))

			tier, err := dag.Tier("comp-b")
			Expect(err).NotTo(HaveOccurred())
			Expect(tier).To(Equal(1))
		})

		It("should return -1 for unknown components", func() {
			register(fleet, "comp-a")

			tier, err := dag.Tier("nope")
			Expect(err).NotTo(HaveOccurred())
			Expect(tier).To(Equal(-1))
		})

		It("should surface cycle errors from the implicit build", func() {
			register(fleet, "comp-a", dep("comp-b"))
			register(fleet, "comp-b", dep("comp-a"))

			_, err := dag.Tier("comp-a")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Tiers", func() {
		It("should be nil before Build and cached after", func() {
			register(fleet, "comp-a")
			Expect(dag.Tiers()).To(BeNil())

			built, err := dag.Build()
			Expect(err).NotTo(HaveOccurred())
			Expect(dag.Tiers()).To(Equal(built))
		})
	})
})
