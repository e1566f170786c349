// Package executor выполняет workflow: строит граф, упорядочивает ноды
// и вызывает их одну за другой, передавая выходы по ссылкам.
//
// # Жизненный цикл запуска
//
//	PENDING → GRAPH_BUILT → ORDERED → EXECUTING(i) → COMPLETED
//	                  (любая фаза) → FAILED
//
// Запуск проходит за один непрерывный проход. Граф, порядок и хранилище
// выходов создаются заново на каждый вызов Run.
//
// # Разрешение входов
//
//   - литерал передаётся ноде без изменений
//   - ссылка [source, slot] заменяется выходом source из хранилища
//   - если выхода нет, вход пропускается, а в Result.Warnings
//     добавляется domain.UnresolvedInput (Config.StrictLinks делает это ошибкой)
//   - тип значения по ссылке сверяется с объявленным типом входа
//
// # Ошибки
//
// Все ошибки Run имеют тип *ExecutionError с полем Kind:
//
//	CIRCULAR_DEPENDENCY  — цикл в графе (ошибка уровня графа)
//	UNKNOWN_NODE_KIND    — тип ноды не зарегистрирован
//	NODE_INVOCATION      — нода вернула ошибку или пустой результат
//	INPUT_TYPE_MISMATCH  — тип значения по ссылке не подходит входу
//	UNRESOLVED_INPUT     — неразрешённая ссылка в строгом режиме
//
// # Наблюдение
//
// Observer получает события запуска. LogObserver пишет их в slog,
// MetricsObserver обновляет Prometheus метрики, Observers объединяет несколько.
//
// # Файлы пакета
//
//   - executor.go — Executor, Config, Result
//   - state.go    — состояние одного запуска и его фазы
//   - resolve.go  — разрешение входов
//   - observer.go — Observer и его реализации
//   - errors.go   — ExecutionError и классы ошибок
package executor
