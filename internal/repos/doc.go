// Package repos управляет реестром обрабатываемых репозиториев:
// клонирование и обновление через go-git, регистрация локальных
// каталогов, персистентный JSON реестр.
package repos
