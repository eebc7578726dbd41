package engine

import (
	"errors"
	"testing"

	"github.com/repodp/repodp/internal/domain"
)

func chainSteps() []domain.StepSpec {
	return []domain.StepSpec{
		{Name: "extract", Kind: domain.KindExtractor, Method: domain.MethodFileExtraction, Enabled: true},
		{Name: "dedup", Kind: domain.KindCleaner, Method: domain.MethodDeduplication, Enabled: true, DependsOn: []string{"extract"}},
		{Name: "clean", Kind: domain.KindCleaner, Method: domain.MethodContentCleaning, Enabled: true, DependsOn: []string{"dedup"}},
	}
}

func TestBuild_SimpleChain(t *testing.T) {
	g, err := Build(chainSteps())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.Size() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.Size())
	}

	dedup := g.Node("dedup")
	if len(dedup.DependsOn) != 1 || dedup.DependsOn[0].Name != "extract" {
		t.Error("dedup should depend on extract")
	}

	clean := g.Node("clean")
	if len(clean.DependsOn) != 1 || clean.DependsOn[0].Name != "dedup" {
		t.Error("clean should depend on dedup")
	}
}

func TestBuild_Diamond(t *testing.T) {
	// extract → dedup → analyze
	// extract → clean → analyze
	steps := []domain.StepSpec{
		{Name: "extract", Kind: domain.KindExtractor, Method: domain.MethodFileExtraction, Enabled: true},
		{Name: "dedup", Kind: domain.KindCleaner, Method: domain.MethodDeduplication, Enabled: true, DependsOn: []string{"extract"}},
		{Name: "clean", Kind: domain.KindCleaner, Method: domain.MethodContentCleaning, Enabled: true, DependsOn: []string{"extract"}},
		{Name: "analyze", Kind: domain.KindAnalyzer, Method: domain.MethodMetricsAnalysis, Enabled: true, DependsOn: []string{"dedup", "clean"}},
	}

	g, err := Build(steps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.Node("extract").InDegree != 0 {
		t.Error("extract should have inDegree 0")
	}
	if g.Node("dedup").InDegree != 1 {
		t.Error("dedup should have inDegree 1")
	}
	if g.Node("analyze").InDegree != 2 {
		t.Error("analyze should have inDegree 2")
	}
}

func TestBuild_DuplicateName(t *testing.T) {
	steps := []domain.StepSpec{
		{Name: "extract", Kind: domain.KindExtractor, Method: domain.MethodFileExtraction, Enabled: true},
		{Name: "extract", Kind: domain.KindExtractor, Method: domain.MethodFileExtraction, Enabled: true},
	}

	_, err := Build(steps)
	if !errors.Is(err, ErrDuplicateStepName) {
		t.Errorf("expected ErrDuplicateStepName, got %v", err)
	}
}

func TestBuild_MissingDependency(t *testing.T) {
	steps := []domain.StepSpec{
		{Name: "x", Kind: domain.KindCleaner, Method: domain.MethodDeduplication, Enabled: true, DependsOn: []string{"y"}},
	}

	_, err := Build(steps)
	if !errors.Is(err, ErrMissingDependency) {
		t.Errorf("expected ErrMissingDependency, got %v", err)
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.StepName != "x" {
		t.Errorf("expected error on step x, got %s", verr.StepName)
	}
}

func TestBuild_SelfDependency(t *testing.T) {
	steps := []domain.StepSpec{
		{Name: "a", Kind: domain.KindExtractor, Method: domain.MethodFileExtraction, Enabled: true, DependsOn: []string{"a"}},
	}

	_, err := Build(steps)
	if !errors.Is(err, ErrSelfDependency) {
		t.Errorf("expected ErrSelfDependency, got %v", err)
	}
}

func TestTopologicalOrder_RespectsEdges(t *testing.T) {
	steps := []domain.StepSpec{
		{Name: "analyze", Kind: domain.KindAnalyzer, Method: domain.MethodMetricsAnalysis, Enabled: true, DependsOn: []string{"dedup", "clean"}},
		{Name: "clean", Kind: domain.KindCleaner, Method: domain.MethodContentCleaning, Enabled: true, DependsOn: []string{"extract"}},
		{Name: "dedup", Kind: domain.KindCleaner, Method: domain.MethodDeduplication, Enabled: true, DependsOn: []string{"extract"}},
		{Name: "extract", Kind: domain.KindExtractor, Method: domain.MethodFileExtraction, Enabled: true},
	}

	g, err := Build(steps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(order) != 4 {
		t.Fatalf("expected 4 steps in order, got %d", len(order))
	}

	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}

	// Каждое ребро dep → step: dep раньше step
	edges := [][2]string{
		{"extract", "clean"},
		{"extract", "dedup"},
		{"dedup", "analyze"},
		{"clean", "analyze"},
	}
	for _, e := range edges {
		if pos[e[0]] > pos[e[1]] {
			t.Errorf("%s should come before %s, order: %v", e[0], e[1], order)
		}
	}
}

func TestTopologicalOrder_Deterministic(t *testing.T) {
	// clean и dedup независимы: при равенстве побеждает порядок объявления
	steps := []domain.StepSpec{
		{Name: "extract", Kind: domain.KindExtractor, Method: domain.MethodFileExtraction, Enabled: true},
		{Name: "clean", Kind: domain.KindCleaner, Method: domain.MethodContentCleaning, Enabled: true, DependsOn: []string{"extract"}},
		{Name: "dedup", Kind: domain.KindCleaner, Method: domain.MethodDeduplication, Enabled: true, DependsOn: []string{"extract"}},
	}

	g, err := Build(steps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 10; i++ {
		order, err := g.TopologicalOrder()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if order[0] != "extract" || order[1] != "clean" || order[2] != "dedup" {
			t.Fatalf("expected declaration-order tie break, got %v", order)
		}
	}
}

func TestTopologicalOrder_CycleFailsLoudly(t *testing.T) {
	steps := []domain.StepSpec{
		{Name: "a", Kind: domain.KindCleaner, Method: domain.MethodDeduplication, Enabled: true, DependsOn: []string{"b"}},
		{Name: "b", Kind: domain.KindCleaner, Method: domain.MethodContentCleaning, Enabled: true, DependsOn: []string{"a"}},
	}

	g, err := Build(steps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := g.TopologicalOrder(); !errors.Is(err, ErrCyclicDependency) {
		t.Errorf("expected ErrCyclicDependency, got %v", err)
	}
}

func TestHasCycle(t *testing.T) {
	acyclic, err := Build(chainSteps())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acyclic.HasCycle() {
		t.Error("acyclic graph reported a cycle")
	}

	cyclic, err := Build([]domain.StepSpec{
		{Name: "a", Kind: domain.KindCleaner, Method: domain.MethodDeduplication, Enabled: true, DependsOn: []string{"c"}},
		{Name: "b", Kind: domain.KindCleaner, Method: domain.MethodContentCleaning, Enabled: true, DependsOn: []string{"a"}},
		{Name: "c", Kind: domain.KindCleaner, Method: domain.MethodMetricsCleaning, Enabled: true, DependsOn: []string{"b"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cyclic.HasCycle() {
		t.Error("cyclic graph not detected")
	}
}
