// Package domain содержит типы предметной области repodp:
// pipeline и его шаги, статусы, отчёты о выполнении, реестр репозиториев.
//
// Типы пакета не имеют внешних зависимостей и безопасно разделяются
// между engine, executor и batch.
package domain
