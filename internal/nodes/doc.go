// Package nodes содержит реестр типов нод и встроенные ноды.
//
// # Обзор
//
// Нода — единица вычисления в workflow. Каждая нода:
//   - Объявляет входы (обязательные и необязательные) с типами и значениями по умолчанию
//   - Объявляет типы выходов по слотам
//   - Получает разрешённые входы и возвращает упорядоченный список типизированных значений
//
// # Интерфейс Node
//
//	type Node interface {
//	    Kind() string
//	    Info() Info
//	    Execute(ctx context.Context, in Inputs) ([]domain.Value, error)
//	}
//
// Движок использует только первый выход ноды (слот 0).
//
// # Registry
//
// Registry сопоставляет строковый тип ноды (class_type) с реализацией:
//
//	registry := nodes.DefaultRegistry(nodes.Options{OutputDir: "outputs"})
//	node, err := registry.Get("textInput")
//	if errors.Is(err, nodes.ErrKindNotFound) {
//	    // неизвестный тип
//	}
//
// Реестр заполняется при старте процесса; изменения во время работы
// синхронизированы.
//
// # Встроенные ноды
//
//   - textInput     — (text STRING) → STRING
//   - modelSelector — (prompt STRING, model STRING, steps INT?) → IMAGE, через внешний сервис генерации
//   - output        — (image IMAGE) → STRING, путь к сохранённому PNG
//
// # Файлы пакета
//
//   - node.go     — интерфейс Node, Info, Inputs, ошибки
//   - registry.go — Registry
//   - text.go     — TextInputNode
//   - imagegen.go — ModelSelectorNode
//   - output.go   — OutputNode
package nodes
