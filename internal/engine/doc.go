// Package engine содержит движок построения графа workflow.
//
// Включает:
//   - parser.go   — разбор workflow из JSON и структурная проверка
//   - graph.go    — построение графа зависимостей (successors + in-degree)
//   - schedule.go — топологический порядок (алгоритм Кана) и поиск циклов
//
// Engine отвечает только за понимание структуры workflow и порядок
// выполнения нод. Сам вызов нод выполняет пакет executor.
package engine
