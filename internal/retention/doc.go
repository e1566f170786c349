// Package retention удаляет старые записи истории запусков.
//
// Структура:
//   - pruner.go — Pruner (Prune, Run)
//   - cron.go   — парсинг cron-выражений и вычисление следующего запуска
//
// Использование:
//
//	pruner, err := retention.New(retention.Config{
//	    Store:    runRepo,
//	    CronExpr: "@hourly",
//	    MaxAge:   7 * 24 * time.Hour,
//	    Logger:   logger,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	go pruner.Run(ctx)
//
// Удаляются только runs в статусах SUCCEEDED и FAILED. Очистка
// идемпотентна, поэтому несколько воркеров могут выполнять её одновременно.
package retention
