// Package extract pulls searchable text out of a file's bytes for the
// indexing pipeline (§4.2's upstream stage). Grounded on
// original_source/backend/app/services/content_extraction.py: text/code
// MIME types and known extensions are decoded directly; anything else
// (PDF, Office documents) is handed to an external conversion service
// over HTTP rather than linked in-process, since no PDF/Office parsing
// library appears anywhere in the example pack.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
)

const maxContentLength = 50000

var extractableMIMETypes = map[string]bool{
	"text/plain": true, "text/html": true, "text/markdown": true, "text/csv": true,
	"text/xml": true, "application/json": true, "application/xml": true,
	"application/x-yaml": true, "application/yaml": true, "text/yaml": true, "text/x-yaml": true,
	"application/pdf": true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-powerpoint": true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/vnd.oasis.opendocument.text":        true,
	"application/vnd.oasis.opendocument.spreadsheet":  true,
	"application/vnd.oasis.opendocument.presentation": true,
	"text/javascript": true, "text/css": true, "application/javascript": true,
	"text/x-python": true, "text/x-java-source": true, "text/x-c": true, "text/x-c++": true,
	"text/x-sh": true, "application/x-sh": true,
}

var textExtensions = []string{
	".yml", ".yaml", ".json", ".xml", ".toml", ".ini", ".cfg", ".conf", ".env", ".properties", ".cnf",
	".py", ".js", ".ts", ".jsx", ".tsx", ".java", ".c", ".cpp", ".h", ".hpp",
	".go", ".rs", ".rb", ".php", ".swift", ".kt", ".scala", ".r", ".m",
	".cs", ".vb", ".fs", ".lua", ".pl", ".pm", ".sh", ".bash", ".zsh",
	".fish", ".ps1", ".psm1", ".bat", ".cmd",
	".html", ".htm", ".css", ".scss", ".sass", ".less", ".vue", ".svelte",
	".csv", ".tsv", ".sql", ".graphql", ".gql",
	".md", ".markdown", ".rst", ".txt", ".adoc", ".asciidoc",
	".dockerfile", ".containerfile", ".tf", ".tfvars", ".hcl",
	".gradle", ".sbt", ".cmake", ".makefile",
	".gitignore", ".gitattributes", ".editorconfig", ".eslintrc",
	".prettierrc", ".babelrc", ".nvmrc", ".npmrc", ".yarnrc",
}

var textFilenames = map[string]bool{
	"Makefile": true, "Dockerfile": true, "Containerfile": true, "Jenkinsfile": true, "Vagrantfile": true,
	"Gemfile": true, "Rakefile": true, "Procfile": true, "Brewfile": true,
	".gitignore": true, ".gitattributes": true, ".dockerignore": true, ".editorconfig": true,
	".cursorrules": true, ".cursorignore": true, ".env": true, ".envrc": true,
	"requirements.txt": true, "Pipfile": true, "setup.py": true, "pyproject.toml": true,
	"package.json": true, "tsconfig.json": true, "webpack.config.js": true,
	"docker-compose.yml": true, "docker-compose.yaml": true,
	"LICENSE": true, "README": true, "CHANGELOG": true, "AUTHORS": true, "CONTRIBUTING": true,
	"CODEOWNERS": true, "SECURITY": true, "NOTICE": true,
}

func isTextByFilename(fileName string) bool {
	if textFilenames[fileName] {
		return true
	}
	lower := strings.ToLower(fileName)
	for _, ext := range textExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	if i := strings.LastIndexByte(fileName, '/'); i >= 0 {
		return textFilenames[fileName[i+1:]]
	}
	return false
}

// CanExtract reports whether text extraction is attempted for this
// file, matching ContentExtractionService.can_extract.
func CanExtract(mimeType, fileName string) bool {
	if extractableMIMETypes[mimeType] {
		return true
	}
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	if fileName != "" && (mimeType == "application/octet-stream" || mimeType == "") {
		return isTextByFilename(fileName)
	}
	return false
}

// Extractor calls out to an external conversion service for binary
// document formats; text and code are decoded in-process.
type Extractor struct {
	ConversionURL string
	Client        *http.Client
}

func New(conversionURL string) *Extractor {
	return &Extractor{ConversionURL: conversionURL, Client: &http.Client{Timeout: 60 * time.Second}}
}

func isTextMIME(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml", "application/javascript",
		"application/x-yaml", "application/yaml":
		return true
	}
	return false
}

// ExtractText returns the extracted text, or ("", false) when nothing
// could be extracted — matching extract_text's Optional[str] return.
func (e *Extractor) ExtractText(ctx context.Context, content []byte, fileName, mimeType string) (string, bool, error) {
	if !CanExtract(mimeType, fileName) {
		return "", false, nil
	}

	isTextByName := mimeType == "application/octet-stream" && isTextByFilename(fileName)
	if isTextMIME(mimeType) || isTextByName {
		return truncateText(decodeBestEffort(content)), true, nil
	}

	// Binary document formats delegate to the conversion service
	// boundary (§12); this process never parses PDF/Office bytes
	// itself.
	if e.ConversionURL == "" {
		return "", false, nil
	}
	text, err := e.extractViaConversionService(ctx, content, fileName, mimeType)
	if err != nil {
		return "", false, err
	}
	if text == "" {
		return "", false, nil
	}
	return truncateText(text), true, nil
}

// decodeBestEffort tries UTF-8 first; anything non-UTF-8 is decoded as
// Latin-1 (a byte-for-rune mapping), matching the original's fallback
// chain without pulling in a full encoding-detection library.
func decodeBestEffort(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	runes := make([]rune, len(content))
	for i, b := range content {
		runes[i] = rune(b)
	}
	return string(runes)
}

func truncateText(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= maxContentLength {
		return text
	}
	truncated := text[:maxContentLength]
	if i := strings.LastIndexByte(truncated, ' '); i > int(float64(maxContentLength)*0.8) {
		return strings.TrimSpace(truncated[:i])
	}
	return strings.TrimSpace(truncated)
}

func (e *Extractor) extractViaConversionService(ctx context.Context, content []byte, fileName, mimeType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.ConversionURL+"/convert/text", bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("X-Filename", fileName)

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", cmn.WrapError(cmn.KindTransient, err, "calling conversion service for %s", fileName)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// CreateSearchableContent prefixes extracted text with filename/path/
// type metadata, matching create_searchable_content.
func CreateSearchableContent(fileName, filePath, extractedText, mimeType string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s", fileName)
	if filePath != "" && filePath != "/" {
		fmt.Fprintf(&b, "\nPath: %s", filePath)
	}
	if desc := typeDescription(mimeType); desc != "" {
		fmt.Fprintf(&b, "\nType: %s", desc)
	}
	if extractedText != "" {
		b.WriteString("\n\n")
		b.WriteString(extractedText)
	}
	return b.String()
}

func typeDescription(mimeType string) string {
	switch mimeType {
	case "application/pdf":
		return "PDF Document"
	case "application/msword", "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return "Word Document"
	case "application/vnd.ms-excel", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return "Excel Spreadsheet"
	case "application/vnd.ms-powerpoint", "application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return "PowerPoint Presentation"
	case "text/plain":
		return "Text File"
	case "text/html":
		return "HTML Document"
	case "text/markdown":
		return "Markdown Document"
	case "text/csv":
		return "CSV Data"
	}
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "Image"
	case strings.HasPrefix(mimeType, "video/"):
		return "Video"
	case strings.HasPrefix(mimeType, "audio/"):
		return "Audio"
	case strings.HasPrefix(mimeType, "text/"):
		return "Text Document"
	}
	return "File"
}
