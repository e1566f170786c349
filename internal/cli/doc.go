// Package cli реализует инструмент командной строки Nodeflow.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Nodeflow API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Nodeflow API. Инкапсулирует все HTTP-запросы,
// разбор конвертов ответов ({data, total} и {error})
// и обработку ошибок (*APIError).
//
//	client := cli.NewClient("http://localhost:8188")
//	resp, err := client.SubmitPrompt(workflow)
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Warn/Error) — в stderr.
// Это позволяет использовать pipe: nodeflow runs list --json | jq .
//
// ## Commands
//
//   - submit FILE [--async] — выполнить или поставить в очередь workflow
//   - runs: list, show — история запусков
//   - nodes — зарегистрированные типы нод
//
// Каждая команда создаётся через фабричную функцию (NewSubmitCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
