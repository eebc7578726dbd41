// Package telemetry содержит логирование и метрики.
//
// Логгер настраивается переменными окружения REPODP_LOG_LEVEL и
// REPODP_LOG_FORMAT. Метрики Prometheus отдаются демоном планировщика
// на /metrics; разовые CLI команды метрики не регистрируют.
package telemetry
