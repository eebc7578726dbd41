// Package scheduler запускает пакетную обработку по cron-расписанию.
package scheduler
