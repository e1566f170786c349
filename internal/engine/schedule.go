package engine

import (
	"github.com/shaiso/Nodeflow/internal/domain"
)

// TopologicalOrder выполняет топологическую сортировку (алгоритм Кана).
//
// Очередь FIFO засевается нодами с нулевым in-degree в естественном порядке
// идентификаторов; освободившиеся ноды добавляются в конец очереди в порядке
// рёбер. Для одного и того же workflow порядок всегда одинаковый.
//
// Если упорядочить удалось не все ноды, граф содержит цикл:
// возвращается *CircularDependencyError и никакого частичного порядка.
func TopologicalOrder(g *Graph) ([]string, error) {
	// Копируем inDegree, чтобы не модифицировать граф
	inDegree := make(map[string]int, len(g.InDegree))
	for id, deg := range g.InDegree {
		inDegree[id] = deg
	}

	queue := g.Roots()
	order := make([]string, 0, g.Size())

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		// Уменьшаем inDegree у зависимых нод
		for _, succ := range g.Successors[id] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	// Если не все ноды обработаны — есть цикл
	if len(order) != g.Size() {
		return nil, &CircularDependencyError{
			Remaining: remaining(g.Nodes, inDegree),
			Total:     g.Size(),
		}
	}

	return order, nil
}

// Plan строит граф и порядок выполнения одним вызовом.
func Plan(wf domain.Workflow) (*Graph, []string, error) {
	g := BuildGraph(wf)
	order, err := TopologicalOrder(g)
	if err != nil {
		return g, nil, err
	}
	return g, order, nil
}

// remaining возвращает ноды, так и не получившие нулевой in-degree.
func remaining(nodes []string, inDegree map[string]int) []string {
	left := make([]string, 0)
	for _, id := range nodes {
		if inDegree[id] > 0 {
			left = append(left, id)
		}
	}
	return left
}
