package steps

import (
	"bytes"
	"path/filepath"
	"strings"
)

// languageByExtension — соответствие расширений языкам.
var languageByExtension = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".cs":    "csharp",
	".kt":    "kotlin",
	".swift": "swift",
	".sh":    "shell",
	".bash":  "shell",
	".sql":   "sql",
	".html":  "html",
	".css":   "css",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".xml":   "xml",
	".md":    "markdown",
}

// commentSyntax — синтаксис комментариев языка.
type commentSyntax struct {
	// Line — префиксы строчных комментариев.
	Line []string
	// BlockStart, BlockEnd — границы блочного комментария ("" если нет).
	BlockStart string
	BlockEnd   string
}

// commentSyntaxByLanguage — таблица синтаксиса комментариев.
// Языки вне таблицы очистке комментариев не подвергаются.
var commentSyntaxByLanguage = map[string]commentSyntax{
	"go":         {Line: []string{"//"}, BlockStart: "/*", BlockEnd: "*/"},
	"c":          {Line: []string{"//"}, BlockStart: "/*", BlockEnd: "*/"},
	"cpp":        {Line: []string{"//"}, BlockStart: "/*", BlockEnd: "*/"},
	"java":       {Line: []string{"//"}, BlockStart: "/*", BlockEnd: "*/"},
	"javascript": {Line: []string{"//"}, BlockStart: "/*", BlockEnd: "*/"},
	"typescript": {Line: []string{"//"}, BlockStart: "/*", BlockEnd: "*/"},
	"rust":       {Line: []string{"//"}, BlockStart: "/*", BlockEnd: "*/"},
	"csharp":     {Line: []string{"//"}, BlockStart: "/*", BlockEnd: "*/"},
	"kotlin":     {Line: []string{"//"}, BlockStart: "/*", BlockEnd: "*/"},
	"swift":      {Line: []string{"//"}, BlockStart: "/*", BlockEnd: "*/"},
	"php":        {Line: []string{"//", "#"}, BlockStart: "/*", BlockEnd: "*/"},
	"python":     {Line: []string{"#"}},
	"ruby":       {Line: []string{"#"}},
	"shell":      {Line: []string{"#"}},
	"yaml":       {Line: []string{"#"}},
	"sql":        {Line: []string{"--"}, BlockStart: "/*", BlockEnd: "*/"},
	"css":        {BlockStart: "/*", BlockEnd: "*/"},
}

// importPrefixesByLanguage — префиксы строк импорта.
var importPrefixesByLanguage = map[string][]string{
	"go":         {"import "},
	"python":     {"import ", "from "},
	"java":       {"import "},
	"javascript": {"import "},
	"typescript": {"import "},
	"rust":       {"use ", "extern crate "},
	"ruby":       {"require ", "require_relative "},
	"php":        {"use ", "require ", "require_once ", "include "},
	"csharp":     {"using "},
	"kotlin":     {"import "},
	"swift":      {"import "},
	"c":          {"#include "},
	"cpp":        {"#include "},
}

// detectLanguage определяет язык файла по расширению.
func detectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := languageByExtension[ext]; ok {
		return lang
	}
	return "unknown"
}

// isBinary эвристически определяет бинарный файл: нулевой байт
// в первых 8 КБ содержимого.
func isBinary(content []byte) bool {
	probe := content
	if len(probe) > 8192 {
		probe = probe[:8192]
	}
	return bytes.IndexByte(probe, 0) >= 0
}
