// Package chunk implements the language-aware chunker of §4.2: route
// code through a regex-based semantic splitter, markdown through a
// heading-based splitter, everything else through fixed-size chunking
// with overlap. Grounded on
// original_source/backend/app/services/chunking.py, ported from its
// tree-sitter/regex hybrid to a regex-only strategy — there is no
// maintained Go tree-sitter grammar bundle in the example pack, so the
// AST path the Python service falls back from is this port's only path,
// matching the "fall back to regex-based parsing" behavior the original
// already exercises when tree-sitter is unavailable.
package chunk

import "strings"

type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangGo         Language = "go"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangCSharp     Language = "csharp"
	LangRuby       Language = "ruby"
	LangPHP        Language = "php"
	LangSwift      Language = "swift"
	LangKotlin     Language = "kotlin"
	LangScala      Language = "scala"
	LangShell      Language = "shell"
	LangSQL        Language = "sql"
	LangHTML       Language = "html"
	LangCSS        Language = "css"
	LangYAML       Language = "yaml"
	LangJSON       Language = "json"
	LangTOML       Language = "toml"
	LangXML        Language = "xml"
	LangMarkdown   Language = "markdown"
	LangPlainText  Language = "plaintext"
	LangUnknown    Language = "unknown"
)

var extensionToLanguage = map[string]Language{
	".py": LangPython, ".pyw": LangPython, ".pyi": LangPython,
	".js": LangJavaScript, ".mjs": LangJavaScript, ".cjs": LangJavaScript, ".jsx": LangJavaScript,
	".ts": LangTypeScript, ".tsx": LangTypeScript, ".mts": LangTypeScript, ".cts": LangTypeScript,
	".go": LangGo,
	".rs": LangRust,
	".java": LangJava,
	".c": LangC, ".h": LangC,
	".cpp": LangCPP, ".cc": LangCPP, ".cxx": LangCPP, ".hpp": LangCPP, ".hxx": LangCPP,
	".cs": LangCSharp,
	".rb": LangRuby, ".rake": LangRuby,
	".php":    LangPHP,
	".swift":  LangSwift,
	".kt":     LangKotlin,
	".kts":    LangKotlin,
	".scala":  LangScala,
	".sh":     LangShell,
	".bash":   LangShell,
	".zsh":    LangShell,
	".sql":    LangSQL,
	".html":   LangHTML,
	".htm":    LangHTML,
	".css":    LangCSS,
	".scss":   LangCSS,
	".sass":   LangCSS,
	".less":   LangCSS,
	".yaml":   LangYAML,
	".yml":    LangYAML,
	".json":   LangJSON,
	".toml":   LangTOML,
	".xml":    LangXML,
	".md":       LangMarkdown,
	".markdown": LangMarkdown,
	".rst":      LangPlainText,
	".txt":      LangPlainText,
}

var nonCodeLanguages = map[Language]bool{
	LangMarkdown: true, LangPlainText: true, LangYAML: true, LangJSON: true,
	LangTOML: true, LangXML: true, LangHTML: true, LangCSS: true, LangUnknown: true,
}

func IsCodeFile(l Language) bool { return !nonCodeLanguages[l] }

// DetectLanguage checks the file extension first, then falls back to a
// handful of content heuristics for extensionless or ambiguous files,
// matching ChunkingService.detect_language.
func DetectLanguage(fileName, content string) Language {
	lower := strings.ToLower(fileName)
	for ext, lang := range extensionToLanguage {
		if strings.HasSuffix(lower, ext) {
			return lang
		}
	}

	if content == "" {
		return LangUnknown
	}
	head := content
	if len(head) > 2000 {
		head = head[:2000]
	}
	headLower := strings.ToLower(head)

	if strings.HasPrefix(content, "#!") {
		firstLine := strings.ToLower(strings.SplitN(content, "\n", 2)[0])
		switch {
		case strings.Contains(firstLine, "python"):
			return LangPython
		case strings.Contains(firstLine, "node"), strings.Contains(firstLine, "deno"):
			return LangJavaScript
		case strings.Contains(firstLine, "bash"), strings.Contains(firstLine, "sh"):
			return LangShell
		case strings.Contains(firstLine, "ruby"):
			return LangRuby
		}
	}

	switch {
	case strings.Contains(headLower, "def ") && strings.Contains(headLower, "import "):
		return LangPython
	case strings.Contains(headLower, "function ") || strings.Contains(headLower, "const "):
		if strings.Contains(headLower, "interface ") || strings.Contains(headLower, ": ") {
			return LangTypeScript
		}
		return LangJavaScript
	case strings.Contains(headLower, "package ") && strings.Contains(headLower, "func "):
		return LangGo
	case strings.Contains(headLower, "fn ") && strings.Contains(headLower, "let "):
		return LangRust
	}
	return LangUnknown
}
