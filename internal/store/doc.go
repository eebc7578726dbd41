// Package store хранит историю прогонов пайплайнов в SQLite.
package store
