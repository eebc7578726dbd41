package domain

import "time"

// Repository — зарегистрированный репозиторий-источник.
//
// Реестр репозиториев хранится в repositories.json в data каталоге.
type Repository struct {
	// Name — уникальное имя репозитория в реестре.
	Name string `json:"name"`

	// URL — origin URL (пусто для локальных репозиториев).
	URL string `json:"url,omitempty"`

	// Path — путь к рабочему дереву.
	Path string `json:"path"`

	// Branch — ветка, с которой работаем.
	Branch string `json:"branch,omitempty"`

	// Local — true, если репозиторий подключён как локальный путь
	// (не клонировался и не обновляется через git).
	Local bool `json:"local,omitempty"`

	// CommitHash — хэш HEAD на момент последнего clone/pull.
	CommitHash string `json:"commit_hash,omitempty"`

	// LastUpdated — время последнего clone/pull.
	LastUpdated time.Time `json:"last_updated,omitempty"`
}
