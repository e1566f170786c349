// Package worker выполняет поставленные в очередь runs.
//
// # Обзор
//
// Worker — stateless компонент системы Nodeflow, который выполняет
// workflow, отправленные через POST /api/v1/prompts. Worker отвечает за:
//
//   - Получение prompt.queued из очереди RabbitMQ (event-driven)
//   - Периодическую проверку PENDING runs в БД (polling fallback)
//   - Атомарный захват run (PENDING → RUNNING)
//   - Выполнение workflow через executor
//   - Сохранение результата (SUCCEEDED/FAILED) в историю
//
// Workers масштабируются горизонтально: несколько экземпляров
// потребляют из одной очереди prompts.queued. Параллелизм есть только
// между runs; ноды внутри одного run выполняются последовательно.
//
// # Использование
//
//	w := worker.New(worker.Config{
//	    Runs:   runRepo,
//	    Runner: exec,
//	    Conn:   mqConn,
//	    Logger: logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// # Обработка run
//
//  1. Получение run ID (из очереди или polling)
//  2. Claim: PENDING → RUNNING; уже захваченный run пропускается
//  3. Выполнение workflow
//  4. Успех → MarkSucceeded с сериализованными выходами
//  5. Ошибка → MarkFailed с классом ошибки (CIRCULAR_DEPENDENCY, NODE_INVOCATION, ...)
//
// # Ошибки
//
// Битое сообщение отправляется в DLQ (mq.ErrDiscard). Ошибки хранилища
// возвращают сообщение в очередь. Ошибка самого workflow — штатный
// результат: run сохраняется как FAILED, сообщение подтверждается.
package worker
