// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go        — Handler с DI (runner, каталог нод, история, очередь, logger)
//   - routes.go         — регистрация маршрутов
//   - middleware.go     — middleware (logging, recovery, CORS, metrics)
//   - response.go       — унифицированные JSON-ответы и обработка ошибок
//   - dto.go            — Data Transfer Objects (request/response)
//   - prompt_handler.go — обработчики для /prompt и /api/v1/prompts
//   - object_info.go    — обработчик для /object_info
//   - run_handler.go    — обработчики для /api/v1/runs
//
// Маршруты /prompt и /object_info совместимы по форме с клиентами ComfyUI.
package api
