package engine

import (
	"github.com/shaiso/Nodeflow/internal/domain"
)

// Graph — граф зависимостей workflow.
//
// Строится заново для каждого запуска и после построения не изменяется:
// планировщик работает на собственной копии InDegree.
type Graph struct {
	// Nodes — идентификаторы всех нод в естественном порядке.
	Nodes []string

	// Successors — ноды, зависящие от данной (source → [targets]).
	// Есть запись для каждой ноды, в том числе пустая.
	Successors map[string][]string

	// InDegree — количество различных нод, от которых зависит данная.
	InDegree map[string]int
}

// BuildGraph строит граф зависимостей из workflow.
//
// Ребро source → node добавляется для каждого входа-ссылки, если source
// есть в workflow. Ссылки на несуществующие ноды молча пропускаются:
// они проявятся при разрешении входов. Циклы здесь не проверяются —
// это побочный результат топологической сортировки.
func BuildGraph(wf domain.Workflow) *Graph {
	ids := wf.NodeIDs()

	g := &Graph{
		Nodes:      ids,
		Successors: make(map[string][]string, len(ids)),
		InDegree:   make(map[string]int, len(ids)),
	}

	// Первый проход: по записи на каждую ноду
	for _, id := range ids {
		g.Successors[id] = make([]string, 0)
		g.InDegree[id] = 0
	}

	// Второй проход: рёбра по ссылкам
	for _, id := range ids {
		for _, nl := range wf[id].Links() {
			source := nl.Link.SourceID
			if !wf.Has(source) {
				continue
			}
			g.addEdge(source, id)
		}
	}

	return g
}

// addEdge добавляет ребро между нодами.
// Повторная ссылка на тот же источник не увеличивает InDegree.
func (g *Graph) addEdge(from, to string) {
	for _, succ := range g.Successors[from] {
		if succ == to {
			return // уже связаны
		}
	}
	g.Successors[from] = append(g.Successors[from], to)
	g.InDegree[to]++
}

// Size возвращает количество нод в графе.
func (g *Graph) Size() int {
	return len(g.Nodes)
}

// Roots возвращает ноды без входящих рёбер в естественном порядке.
func (g *Graph) Roots() []string {
	roots := make([]string, 0)
	for _, id := range g.Nodes {
		if g.InDegree[id] == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}
