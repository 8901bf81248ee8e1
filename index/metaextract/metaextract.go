// Package metaextract pulls structural metadata out of a file's text:
// imports/exports/symbols and framework hints for code, headings/links/
// tables for documentation. Grounded on
// original_source/backend/app/services/metadata_extraction.py, ported
// regex-for-regex onto index/chunk's language detection.
package metaextract

import (
	"regexp"
	"strings"

	"github.com/nicolaslallier/Beacon-Library-sub000/index/chunk"
)

// CodeMetadata mirrors CodeMetadata.to_dict's field set.
type CodeMetadata struct {
	Language      chunk.Language
	Imports       []string
	Exports       []string
	Dependencies  []string
	Functions     []string
	Classes       []string
	Interfaces    []string
	Types         []string
	Constants     []string
	HasTests      bool
	HasTypes      bool
	Frameworks    []string
	LineCount     int
	CommentRatio  float64
}

// ToFields renders the struct as flat storage fields, matching
// CodeMetadata.to_dict's comma-joined-and-capped lists.
func (m CodeMetadata) ToFields() map[string]interface{} {
	return map[string]interface{}{
		"language":      string(m.Language),
		"imports":       strings.Join(limit(m.Imports, 30), ","),
		"exports":       strings.Join(limit(m.Exports, 30), ","),
		"dependencies":  strings.Join(limit(m.Dependencies, 30), ","),
		"functions":     strings.Join(limit(m.Functions, 30), ","),
		"classes":       strings.Join(limit(m.Classes, 20), ","),
		"interfaces":    strings.Join(limit(m.Interfaces, 20), ","),
		"types":         strings.Join(limit(m.Types, 20), ","),
		"constants":     strings.Join(limit(m.Constants, 20), ","),
		"has_tests":     m.HasTests,
		"has_types":     m.HasTypes,
		"frameworks":    strings.Join(limit(m.Frameworks, 10), ","),
		"line_count":    m.LineCount,
		"comment_ratio": roundTo2(m.CommentRatio),
	}
}

// DocumentMetadata mirrors DocumentMetadata.to_dict's field set.
type DocumentMetadata struct {
	DocType          string
	Title            string
	Headings         []string
	HeadingStructure []HeadingEntry
	HasCodeBlocks    bool
	CodeLanguages    []string
	HasTables        bool
	HasImages        bool
	HasLinks         bool
	InternalLinks    []string
	ExternalLinks    []string
	WordCount        int
	SectionCount     int
}

type HeadingEntry struct {
	Level int
	Text  string
	Line  int
}

func (m DocumentMetadata) ToFields() map[string]interface{} {
	return map[string]interface{}{
		"doc_type":       m.DocType,
		"title":          m.Title,
		"headings":       strings.Join(limit(m.Headings, 20), ","),
		"has_code_blocks": m.HasCodeBlocks,
		"code_languages": strings.Join(limit(m.CodeLanguages, 10), ","),
		"has_tables":     m.HasTables,
		"has_images":     m.HasImages,
		"has_links":      m.HasLinks,
		"word_count":     m.WordCount,
		"section_count":  m.SectionCount,
	}
}

func limit(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func roundTo2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func dedupe(s []string) []string {
	seen := make(map[string]bool, len(s))
	out := make([]string, 0, len(s))
	for _, v := range s {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

var frameworkPatterns = map[string][]*regexp.Regexp{
	"react":     {regexp.MustCompile(`(?i)import.*from\s+['"]react['"]`), regexp.MustCompile(`(?i)React\.`), regexp.MustCompile(`(?i)useState`), regexp.MustCompile(`(?i)useEffect`)},
	"vue":       {regexp.MustCompile(`(?i)import.*from\s+['"]vue['"]`), regexp.MustCompile(`(?i)defineComponent`), regexp.MustCompile(`(?i)<template>`)},
	"angular":   {regexp.MustCompile(`(?i)@Component`), regexp.MustCompile(`(?i)@Injectable`), regexp.MustCompile(`(?i)@NgModule`)},
	"fastapi":   {regexp.MustCompile(`(?i)from fastapi`), regexp.MustCompile(`(?i)@app\.(get|post|put|delete)`), regexp.MustCompile(`(?i)FastAPI`)},
	"django":    {regexp.MustCompile(`(?i)from django`), regexp.MustCompile(`(?i)models\.Model`), regexp.MustCompile(`(?i)views\.`)},
	"flask":     {regexp.MustCompile(`(?i)from flask`), regexp.MustCompile(`(?i)Flask\(`), regexp.MustCompile(`(?i)@app\.route`)},
	"express":   {regexp.MustCompile(`(?i)require\(['"]express['"]\)`), regexp.MustCompile(`(?i)express\(\)`), regexp.MustCompile(`(?i)app\.(get|post)`)},
	"nestjs":    {regexp.MustCompile(`(?i)@Controller`), regexp.MustCompile(`(?i)@Injectable`), regexp.MustCompile(`(?i)@Module`)},
	"spring":    {regexp.MustCompile(`(?i)@SpringBootApplication`), regexp.MustCompile(`(?i)@RestController`), regexp.MustCompile(`(?i)@Service`)},
	"pytest":    {regexp.MustCompile(`(?i)import pytest`), regexp.MustCompile(`(?i)@pytest\.`), regexp.MustCompile(`(?i)def test_`)},
	"jest":      {regexp.MustCompile(`(?i)describe\(`), regexp.MustCompile(`(?i)it\(`), regexp.MustCompile(`(?i)expect\(`), regexp.MustCompile(`(?i)test\(`)},
	"unittest":  {regexp.MustCompile(`(?i)import unittest`), regexp.MustCompile(`(?i)TestCase`), regexp.MustCompile(`(?i)self\.assert`)},
	"sqlalchemy": {regexp.MustCompile(`(?i)from sqlalchemy`), regexp.MustCompile(`(?i)Column\(`), regexp.MustCompile(`(?i)relationship\(`)},
	"prisma":    {regexp.MustCompile(`(?i)@prisma/client`), regexp.MustCompile(`(?i)PrismaClient`)},
	"tensorflow": {regexp.MustCompile(`(?i)import tensorflow`), regexp.MustCompile(`(?i)tf\.`)},
	"pytorch":   {regexp.MustCompile(`(?i)import torch`), regexp.MustCompile(`(?i)torch\.`)},
	"pandas":    {regexp.MustCompile(`(?i)import pandas`), regexp.MustCompile(`(?i)pd\.DataFrame`)},
	"numpy":     {regexp.MustCompile(`(?i)import numpy`), regexp.MustCompile(`(?i)np\.`)},
}

var testFilePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)test_\w+\.py$`),
	regexp.MustCompile(`(?i)\w+_test\.py$`),
	regexp.MustCompile(`(?i)\.test\.(js|ts|tsx)$`),
	regexp.MustCompile(`(?i)\.spec\.(js|ts|tsx)$`),
	regexp.MustCompile(`(?i)test\.(js|ts|tsx)$`),
	regexp.MustCompile(`(?i)spec\.(js|ts|tsx)$`),
}

var testContentIndicators = []*regexp.Regexp{
	regexp.MustCompile(`def test_`), regexp.MustCompile(`@pytest`),
	regexp.MustCompile(`describe\(`), regexp.MustCompile(`it\(`), regexp.MustCompile(`test\(`),
	regexp.MustCompile(`@Test`), regexp.MustCompile(`TestCase`), regexp.MustCompile(`unittest`),
}

var importPatterns = map[chunk.Language][]*regexp.Regexp{
	chunk.LangPython: {
		regexp.MustCompile(`(?m)^from\s+([\w.]+)\s+import`),
		regexp.MustCompile(`(?m)^import\s+([\w.]+)`),
	},
	chunk.LangJavaScript: {
		regexp.MustCompile(`import\s+.*?from\s+['"]([^'"]+)['"]`),
		regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`),
	},
	chunk.LangTypeScript: {
		regexp.MustCompile(`import\s+.*?from\s+['"]([^'"]+)['"]`),
		regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`),
	},
	chunk.LangGo: {
		regexp.MustCompile(`import\s+['"]([^'"]+)['"]`),
		regexp.MustCompile(`import\s+\w+\s+['"]([^'"]+)['"]`),
	},
	chunk.LangRust: {
		regexp.MustCompile(`use\s+([\w:]+)`),
		regexp.MustCompile(`extern\s+crate\s+(\w+)`),
	},
	chunk.LangJava: {
		regexp.MustCompile(`import\s+([\w.]+)`),
	},
}

var (
	exportNamedJS   = regexp.MustCompile(`export\s+(?:const|let|var|function|class|interface|type)\s+(\w+)`)
	exportDefaultJS = regexp.MustCompile(`export\s+default\s+(?:function\s+)?(\w+)`)
	exportListJS    = regexp.MustCompile(`export\s*\{([^}]+)\}`)
	exportListName  = regexp.MustCompile(`(\w+)`)
	pyAll           = regexp.MustCompile(`__all__\s*=\s*\[([^\]]+)\]`)
	pyAllName       = regexp.MustCompile(`['"](\w+)['"]`)
	pyPublicDefCls  = regexp.MustCompile(`(?m)^(?:def|class)\s+([a-zA-Z]\w*)`)
	goExported      = regexp.MustCompile(`(?m)^(?:func|type|var|const)\s+([A-Z]\w*)`)
	rustPub         = regexp.MustCompile(`pub\s+(?:fn|struct|enum|trait|type|const)\s+(\w+)`)
)

var functionPatterns = map[chunk.Language]*regexp.Regexp{
	chunk.LangPython:     regexp.MustCompile(`(?m)^(?:async\s+)?def\s+(\w+)`),
	chunk.LangJavaScript: regexp.MustCompile(`(?m)(?:function\s+(\w+)|(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?(?:function|\([^)]*\)\s*=>))`),
	chunk.LangTypeScript: regexp.MustCompile(`(?m)(?:function\s+(\w+)|(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?(?:function|\([^)]*\)\s*=>))`),
	chunk.LangGo:         regexp.MustCompile(`(?m)^func\s+(?:\([^)]+\)\s+)?(\w+)`),
	chunk.LangRust:       regexp.MustCompile(`(?m)^(?:pub\s+)?(?:async\s+)?fn\s+(\w+)`),
	chunk.LangJava:       regexp.MustCompile(`(?:public|private|protected)?\s*(?:static\s+)?(?:\w+\s+)+(\w+)\s*\([^)]*\)\s*(?:throws\s+\w+\s*)?\{`),
}

var classPatterns = map[chunk.Language]*regexp.Regexp{
	chunk.LangPython:     regexp.MustCompile(`(?m)^class\s+(\w+)`),
	chunk.LangJavaScript: regexp.MustCompile(`class\s+(\w+)`),
	chunk.LangTypeScript: regexp.MustCompile(`class\s+(\w+)`),
	chunk.LangGo:         regexp.MustCompile(`type\s+(\w+)\s+struct`),
	chunk.LangRust:       regexp.MustCompile(`(?:pub\s+)?struct\s+(\w+)`),
	chunk.LangJava:       regexp.MustCompile(`(?:public\s+)?class\s+(\w+)`),
}

var interfacePatterns = map[chunk.Language]*regexp.Regexp{
	chunk.LangTypeScript: regexp.MustCompile(`interface\s+(\w+)`),
	chunk.LangGo:         regexp.MustCompile(`type\s+(\w+)\s+interface`),
	chunk.LangRust:       regexp.MustCompile(`(?:pub\s+)?trait\s+(\w+)`),
	chunk.LangJava:       regexp.MustCompile(`interface\s+(\w+)`),
}

var typePatterns = map[chunk.Language]*regexp.Regexp{
	chunk.LangTypeScript: regexp.MustCompile(`type\s+(\w+)\s*=`),
	chunk.LangGo:         regexp.MustCompile(`type\s+(\w+)\s+(?:struct|interface)?`),
	chunk.LangRust:       regexp.MustCompile(`type\s+(\w+)\s*=`),
}

var constantPatterns = map[chunk.Language]*regexp.Regexp{
	chunk.LangPython:     regexp.MustCompile(`(?m)^([A-Z][A-Z0-9_]+)\s*=`),
	chunk.LangJavaScript: regexp.MustCompile(`const\s+([A-Z][A-Z0-9_]+)\s*=`),
	chunk.LangTypeScript: regexp.MustCompile(`const\s+([A-Z][A-Z0-9_]+)\s*=`),
	chunk.LangGo:         regexp.MustCompile(`const\s+(\w+)\s*=`),
	chunk.LangRust:       regexp.MustCompile(`const\s+([A-Z][A-Z0-9_]+)\s*:`),
}

var commentPatterns = map[chunk.Language][]*regexp.Regexp{
	chunk.LangPython:     {regexp.MustCompile(`^\s*#`), regexp.MustCompile(`^\s*"""`), regexp.MustCompile(`^\s*'''`)},
	chunk.LangJavaScript: {regexp.MustCompile(`^\s*//`), regexp.MustCompile(`^\s*/\*`)},
	chunk.LangTypeScript: {regexp.MustCompile(`^\s*//`), regexp.MustCompile(`^\s*/\*`)},
	chunk.LangGo:         {regexp.MustCompile(`^\s*//`), regexp.MustCompile(`^\s*/\*`)},
	chunk.LangRust:       {regexp.MustCompile(`^\s*//`), regexp.MustCompile(`^\s*/\*`)},
	chunk.LangJava:       {regexp.MustCompile(`^\s*//`), regexp.MustCompile(`^\s*/\*`)},
}

var defaultCommentPatterns = []*regexp.Regexp{regexp.MustCompile(`^\s*#`), regexp.MustCompile(`^\s*//`)}

// ExtractCode builds a CodeMetadata from source content, matching
// MetadataExtractionService.extract_code_metadata.
func ExtractCode(content, fileName string, lang chunk.Language) CodeMetadata {
	if lang == "" {
		lang = chunk.DetectLanguage(fileName, content)
	}
	m := CodeMetadata{Language: lang, LineCount: strings.Count(content, "\n") + 1}
	m.Imports = extractImports(content, lang)
	m.Exports = extractExports(content, lang)
	m.Functions = extractFirstGroup(functionPatterns[lang], content, 50)
	m.Classes = extractNames(classPatterns[lang], content, 30)
	m.Interfaces = extractNames(interfacePatterns[lang], content, 20)
	m.Types = extractNames(typePatterns[lang], content, 20)
	m.Constants = extractNames(constantPatterns[lang], content, 20)
	m.Dependencies = extractDependencies(content, m.Imports, lang)
	m.Frameworks = detectFrameworks(content)
	m.HasTests = isTestFile(fileName, content)
	m.HasTypes = hasTypeAnnotations(content, lang)
	m.CommentRatio = commentRatio(content, lang)
	return m
}

func extractImports(content string, lang chunk.Language) []string {
	var out []string
	for _, re := range importPatterns[lang] {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			if m[1] != "" && !contains(out, m[1]) {
				out = append(out, m[1])
			}
		}
	}
	return limit(out, 50)
}

func extractExports(content string, lang chunk.Language) []string {
	var out []string
	switch lang {
	case chunk.LangJavaScript, chunk.LangTypeScript:
		for _, m := range exportNamedJS.FindAllStringSubmatch(content, -1) {
			out = append(out, m[1])
		}
		for _, m := range exportDefaultJS.FindAllStringSubmatch(content, -1) {
			out = append(out, m[1])
		}
		for _, m := range exportListJS.FindAllStringSubmatch(content, -1) {
			for _, n := range exportListName.FindAllStringSubmatch(m[1], -1) {
				if n[1] != "as" && n[1] != "from" {
					out = append(out, n[1])
				}
			}
		}
	case chunk.LangPython:
		if m := pyAll.FindStringSubmatch(content); m != nil {
			for _, n := range pyAllName.FindAllStringSubmatch(m[1], -1) {
				out = append(out, n[1])
			}
		} else {
			for _, m := range pyPublicDefCls.FindAllStringSubmatch(content, -1) {
				out = append(out, m[1])
			}
		}
	case chunk.LangGo:
		for _, m := range goExported.FindAllStringSubmatch(content, -1) {
			out = append(out, m[1])
		}
	case chunk.LangRust:
		for _, m := range rustPub.FindAllStringSubmatch(content, -1) {
			out = append(out, m[1])
		}
	}
	return limit(dedupe(out), 30)
}

func extractFirstGroup(re *regexp.Regexp, content string, cap int) []string {
	if re == nil {
		return nil
	}
	var out []string
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		name := m[1]
		if name == "" && len(m) > 2 {
			name = m[2]
		}
		if name != "" && !contains(out, name) {
			out = append(out, name)
		}
	}
	return limit(out, cap)
}

func extractNames(re *regexp.Regexp, content string, cap int) []string {
	if re == nil {
		return nil
	}
	var out []string
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		if !contains(out, m[1]) {
			out = append(out, m[1])
		}
	}
	return limit(out, cap)
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func extractDependencies(content string, imports []string, lang chunk.Language) []string {
	var out []string
	for _, imp := range imports {
		var base string
		switch lang {
		case chunk.LangPython:
			base = strings.SplitN(imp, ".", 2)[0]
		case chunk.LangJavaScript, chunk.LangTypeScript:
			base = strings.TrimPrefix(strings.SplitN(imp, "/", 2)[0], "@")
		default:
			parts := strings.Split(imp, "/")
			last := parts[len(parts)-1]
			dotParts := strings.Split(last, ".")
			base = dotParts[len(dotParts)-1]
		}
		if base == "" {
			continue
		}
		if regexp.MustCompile(`\b` + regexp.QuoteMeta(base) + `\b`).MatchString(content) {
			out = append(out, imp)
		}
	}
	return limit(out, 30)
}

func detectFrameworks(content string) []string {
	var out []string
	for name, patterns := range frameworkPatterns {
		for _, re := range patterns {
			if re.MatchString(content) {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

func isTestFile(fileName, content string) bool {
	for _, re := range testFilePatterns {
		if re.MatchString(fileName) {
			return true
		}
	}
	for _, re := range testContentIndicators {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

func hasTypeAnnotations(content string, lang chunk.Language) bool {
	switch lang {
	case chunk.LangPython:
		return regexp.MustCompile(`:\s*(?:str|int|float|bool|List|Dict|Optional|Any|Tuple)`).MatchString(content)
	case chunk.LangTypeScript, chunk.LangGo, chunk.LangRust, chunk.LangJava:
		return true
	}
	return false
}

func commentRatio(content string, lang chunk.Language) float64 {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 {
		return 0
	}
	patterns, ok := commentPatterns[lang]
	if !ok {
		patterns = defaultCommentPatterns
	}
	commentLines := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, re := range patterns {
			if re.MatchString(line) {
				commentLines++
				break
			}
		}
	}
	return float64(commentLines) / float64(len(lines))
}

var (
	titleRe    = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	headingRe  = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	codeFence  = regexp.MustCompile("```(\\w*)")
	tableRow   = regexp.MustCompile(`(?m)^\|.+\|$`)
	imageLink  = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	anyLink    = regexp.MustCompile(`\[.*?\]\(.*?\)`)
	linkTarget = regexp.MustCompile(`\[.*?\]\((.*?)\)`)
	fencedCode = regexp.MustCompile(`(?s)` + "```.*?```")
	inlineCode = regexp.MustCompile("`[^`]+`")
	wordRe     = regexp.MustCompile(`\b\w+\b`)
)

// ExtractDocument builds a DocumentMetadata from markdown/rst/text
// content, matching MetadataExtractionService.extract_document_metadata.
func ExtractDocument(content, fileName string) DocumentMetadata {
	docType := "markdown"
	switch {
	case strings.HasSuffix(fileName, ".rst"):
		docType = "rst"
	case strings.HasSuffix(fileName, ".txt"):
		docType = "text"
	case strings.HasSuffix(fileName, ".html"):
		docType = "html"
	}
	m := DocumentMetadata{DocType: docType}

	if tm := titleRe.FindStringSubmatch(content); tm != nil {
		m.Title = strings.TrimSpace(tm[1])
	}

	for _, hm := range headingRe.FindAllStringSubmatchIndex(content, -1) {
		level := hm[3] - hm[2]
		heading := strings.TrimSpace(content[hm[4]:hm[5]])
		m.Headings = append(m.Headings, heading)
		m.HeadingStructure = append(m.HeadingStructure, HeadingEntry{
			Level: level,
			Text:  heading,
			Line:  strings.Count(content[:hm[0]], "\n") + 1,
		})
	}
	m.SectionCount = len(m.Headings)

	fences := codeFence.FindAllStringSubmatch(content, -1)
	m.HasCodeBlocks = len(fences) > 0
	var langs []string
	for _, f := range fences {
		if f[1] != "" && !contains(langs, f[1]) {
			langs = append(langs, f[1])
		}
	}
	m.CodeLanguages = langs

	m.HasTables = tableRow.MatchString(content)
	m.HasImages = imageLink.MatchString(content)
	m.HasLinks = anyLink.MatchString(content)

	for _, lm := range linkTarget.FindAllStringSubmatch(content, -1) {
		link := lm[1]
		if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
			m.ExternalLinks = append(m.ExternalLinks, link)
		} else {
			m.InternalLinks = append(m.InternalLinks, link)
		}
	}
	m.ExternalLinks = limit(m.ExternalLinks, 20)
	m.InternalLinks = limit(m.InternalLinks, 20)

	textOnly := fencedCode.ReplaceAllString(content, "")
	textOnly = inlineCode.ReplaceAllString(textOnly, "")
	m.WordCount = len(wordRe.FindAllString(textOnly, -1))

	return m
}
