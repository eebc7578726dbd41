// Package steps содержит реализации методов обработки репозитория.
//
// Закрытый набор методов:
//   - file_extraction — обход репозитория, JSONL записи о файлах
//   - deduplication — удаление дубликатов по размеру и хешу
//   - content_cleaning — очистка содержимого (комментарии, импорты)
//   - metrics_cleaning — фильтрация по пороговым метрикам
//   - duplicate_analysis — JSON отчёт о группах дубликатов
//   - metrics_analysis — сводный JSON отчёт о метриках корпуса
//
// Диспетчеризация через For: исчерпывающий switch по методу,
// неизвестный метод — явная ошибка.
package steps
