package engine

import (
	"fmt"
	"strings"

	"github.com/repodp/repodp/internal/domain"
)

// Node — узел графа зависимостей.
type Node struct {
	// Spec — объявление шага.
	Spec *domain.StepSpec

	// Name — имя шага (дублирует Spec.Name для удобства).
	Name string

	// InDegree — количество входящих рёбер (зависимостей).
	InDegree int

	// DependsOn — узлы, от которых зависит этот узел.
	DependsOn []*Node

	// Dependents — узлы, которые зависят от этого узла.
	Dependents []*Node
}

// Graph — направленный граф зависимостей шагов pipeline.
//
// Ребро dep → step существует для каждого dep из step.depends_on.
// Порядок объявления шагов сохраняется и используется для
// детерминированного разрешения связей при топологической сортировке.
type Graph struct {
	// Nodes — все узлы графа (имя шага → Node).
	Nodes map[string]*Node

	// DeclOrder — имена шагов в порядке объявления.
	DeclOrder []string
}

// Build строит граф зависимостей из шагов pipeline.
//
// Возвращает ошибку при дубликате имени или ссылке на
// несуществующий шаг. Циклы здесь не проверяются — см. HasCycle
// и TopologicalOrder.
func Build(steps []domain.StepSpec) (*Graph, error) {
	g := &Graph{
		Nodes:     make(map[string]*Node, len(steps)),
		DeclOrder: make([]string, 0, len(steps)),
	}

	// Первый проход: создаём узлы
	for i := range steps {
		spec := &steps[i]

		if spec.Name == "" {
			return nil, NewValidationError("", "name", "step has empty name", ErrEmptyStepName)
		}
		if _, exists := g.Nodes[spec.Name]; exists {
			return nil, NewValidationError(spec.Name, "name",
				fmt.Sprintf("duplicate step name: %s", spec.Name), ErrDuplicateStepName)
		}

		g.Nodes[spec.Name] = &Node{
			Spec:       spec,
			Name:       spec.Name,
			DependsOn:  make([]*Node, 0, len(spec.DependsOn)),
			Dependents: make([]*Node, 0),
		}
		g.DeclOrder = append(g.DeclOrder, spec.Name)
	}

	// Второй проход: связываем узлы по зависимостям
	for _, name := range g.DeclOrder {
		node := g.Nodes[name]

		for _, dep := range node.Spec.DependsOn {
			if dep == name {
				return nil, NewValidationError(name, "depends_on",
					"step depends on itself", ErrSelfDependency)
			}

			depNode, exists := g.Nodes[dep]
			if !exists {
				return nil, NewValidationError(name, "depends_on",
					fmt.Sprintf("dependency %s not found", dep), ErrMissingDependency)
			}

			g.addEdge(depNode, node)
		}
	}

	return g, nil
}

// addEdge добавляет ребро from → to.
// Дубликаты рёбер игнорируются, чтобы не раздувать InDegree.
func (g *Graph) addEdge(from, to *Node) {
	for _, dep := range to.DependsOn {
		if dep.Name == from.Name {
			return
		}
	}
	from.Dependents = append(from.Dependents, to)
	to.DependsOn = append(to.DependsOn, from)
	to.InDegree++
}

// TopologicalOrder возвращает полный топологический порядок шагов
// (алгоритм Кана). Порядок детерминирован: при равенстве выбирается
// шаг, объявленный раньше.
//
// Кан на циклическом графе молча теряет узлы цикла, поэтому неполный
// результат — симптом цикла: возвращается ErrCyclicDependency с
// перечислением недостижимых шагов, а не усечённый порядок.
func (g *Graph) TopologicalOrder() ([]string, error) {
	inDegree := make(map[string]int, len(g.Nodes))
	for name, node := range g.Nodes {
		inDegree[name] = node.InDegree
	}

	emitted := make(map[string]bool, len(g.Nodes))
	order := make([]string, 0, len(g.Nodes))

	for len(order) < len(g.Nodes) {
		// Следующий узел: первый по порядку объявления с inDegree 0
		next := ""
		for _, name := range g.DeclOrder {
			if !emitted[name] && inDegree[name] == 0 {
				next = name
				break
			}
		}
		if next == "" {
			// Остались только узлы с ненулевым inDegree — цикл
			remaining := make([]string, 0)
			for _, name := range g.DeclOrder {
				if !emitted[name] {
					remaining = append(remaining, name)
				}
			}
			return nil, fmt.Errorf("%w: unresolvable steps: %s",
				ErrCyclicDependency, strings.Join(remaining, ", "))
		}

		emitted[next] = true
		order = append(order, next)

		for _, dependent := range g.Nodes[next].Dependents {
			inDegree[dependent.Name]--
		}
	}

	return order, nil
}

// HasCycle проверяет наличие цикла DFS'ом со стеком рекурсии:
// обратное ребро в узел, находящийся на стеке, означает цикл.
func (g *Graph) HasCycle() bool {
	visited := make(map[string]bool, len(g.Nodes))
	onStack := make(map[string]bool, len(g.Nodes))

	var dfs func(name string) bool
	dfs = func(name string) bool {
		visited[name] = true
		onStack[name] = true

		for _, dependent := range g.Nodes[name].Dependents {
			if !visited[dependent.Name] {
				if dfs(dependent.Name) {
					return true
				}
			} else if onStack[dependent.Name] {
				return true
			}
		}

		onStack[name] = false
		return false
	}

	for _, name := range g.DeclOrder {
		if !visited[name] {
			if dfs(name) {
				return true
			}
		}
	}
	return false
}

// Node возвращает узел по имени шага.
func (g *Graph) Node(name string) *Node {
	return g.Nodes[name]
}

// Size возвращает количество узлов.
func (g *Graph) Size() int {
	return len(g.Nodes)
}
