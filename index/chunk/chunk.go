package chunk

import (
	"regexp"
	"strings"

	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
)

type ChunkType string

const (
	TypeFunction  ChunkType = "function"
	TypeClass     ChunkType = "class"
	TypeMethod    ChunkType = "method"
	TypeModule    ChunkType = "module"
	TypeSection   ChunkType = "section"
	TypeParagraph ChunkType = "paragraph"
)

// Chunk is one unit of content handed to the embedding client, carrying
// enough metadata to populate the vector store record (§4.2/§4.5).
type Chunk struct {
	Content       string
	ChunkType     ChunkType
	Index         int
	Language      Language
	Name          string
	LineStart     int
	LineEnd       int
	ParentHeading string
	Heading       string
	HeadingLevel  int
	HasCodeBlocks bool
	CodeLanguages []string
	Imports       []string
}

func (c Chunk) ToMetadata() map[string]interface{} {
	m := map[string]interface{}{
		"chunk_type":  string(c.ChunkType),
		"chunk_index": c.Index,
		"language":    string(c.Language),
		"line_start":  c.LineStart,
		"line_end":    c.LineEnd,
	}
	if c.Name != "" {
		m["name"] = c.Name
	}
	if c.Heading != "" {
		m["heading"] = c.Heading
	}
	if c.HeadingLevel != 0 {
		m["heading_level"] = c.HeadingLevel
	}
	if c.ParentHeading != "" {
		m["parent_heading"] = c.ParentHeading
	}
	if c.HasCodeBlocks {
		m["has_code_blocks"] = true
	}
	if len(c.CodeLanguages) > 0 {
		m["code_languages"] = strings.Join(c.CodeLanguages, ",")
	}
	if len(c.Imports) > 0 {
		m["imports"] = strings.Join(limit(c.Imports, 20), ",")
	}
	return m
}

func limit(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Chunker holds the size knobs threaded from cmn.ChunkConf.
type Chunker struct {
	ChunkSizeCode    int
	ChunkSizeDocs    int
	ChunkOverlap     int
	MaxChunksPerFile int
}

func NewChunker(cfg cmn.ChunkConf) *Chunker {
	return &Chunker{
		ChunkSizeCode:    cfg.ChunkSizeCodeTokens,
		ChunkSizeDocs:    cfg.ChunkSizeDocsTokens,
		ChunkOverlap:     cfg.OverlapTokens,
		MaxChunksPerFile: cfg.MaxChunksPerFile,
	}
}

// ChunkContent routes content to the appropriate strategy by detected
// language, then truncates to MaxChunksPerFile, matching
// ChunkingService.chunk_content.
func (c *Chunker) ChunkContent(content, fileName string) []Chunk {
	lang := DetectLanguage(fileName, content)

	var chunks []Chunk
	switch {
	case lang == LangMarkdown:
		chunks = c.chunkMarkdown(content, lang)
	case IsCodeFile(lang):
		chunks = c.chunkCode(content, lang)
	default:
		chunks = c.chunkText(content, lang)
	}

	if len(chunks) > c.MaxChunksPerFile {
		chunks = chunks[:c.MaxChunksPerFile]
	}
	return chunks
}

var codePatterns = map[Language][]struct {
	re   *regexp.Regexp
	kind ChunkType
}{
	LangPython: {
		{regexp.MustCompile(`(?ms)^(class\s+\w+.*?:.*?)(?:\n(?:class|def|async\s+def)\s|\z)`), TypeClass},
		{regexp.MustCompile(`(?ms)^((?:async\s+)?def\s+\w+.*?:.*?)(?:\n(?:def|async\s+def|class)\s|\z)`), TypeFunction},
	},
	LangJavaScript: {
		{regexp.MustCompile(`(?ms)(class\s+\w+.*?\{.*?\n\})`), TypeClass},
		{regexp.MustCompile(`(?ms)((?:async\s+)?function\s+\w+.*?\{.*?\n\})`), TypeFunction},
	},
	LangTypeScript: {
		{regexp.MustCompile(`(?ms)(interface\s+\w+.*?\{.*?\n\})`), TypeClass},
		{regexp.MustCompile(`(?ms)(class\s+\w+.*?\{.*?\n\})`), TypeClass},
		{regexp.MustCompile(`(?ms)((?:async\s+)?function\s+\w+.*?\{.*?\n\})`), TypeFunction},
	},
	LangGo: {
		{regexp.MustCompile(`(?ms)(func\s+\(\w+\s+\*?\w+\)\s+\w+.*?\{.*?\n\})`), TypeMethod},
		{regexp.MustCompile(`(?ms)(func\s+\w+.*?\{.*?\n\})`), TypeFunction},
		{regexp.MustCompile(`(?ms)(type\s+\w+\s+struct\s*\{.*?\n\})`), TypeClass},
	},
	LangRust: {
		{regexp.MustCompile(`(?ms)(fn\s+\w+.*?\{.*?\n\})`), TypeFunction},
		{regexp.MustCompile(`(?ms)(impl\s+.*?\{.*?\n\})`), TypeClass},
		{regexp.MustCompile(`(?ms)(struct\s+\w+\s*\{.*?\n\})`), TypeClass},
	},
}

var genericCodePattern = regexp.MustCompile(`(?ms)((?:function|def|fn|func)\s+\w+.*?\{.*?\})`)

var importPatterns = map[Language]*regexp.Regexp{
	LangPython:     regexp.MustCompile(`(?:from\s+(\S+)\s+import|import\s+(\S+))`),
	LangJavaScript: regexp.MustCompile(`import\s+.*?from\s+['"]([^'"]+)['"]`),
	LangTypeScript: regexp.MustCompile(`import\s+.*?from\s+['"]([^'"]+)['"]`),
	LangGo:         regexp.MustCompile(`import\s+(?:\(\s*)?([\w"/.]+)`),
	LangRust:       regexp.MustCompile(`use\s+([\w:]+)`),
}

var nameExtract = regexp.MustCompile(`(?:class|def|function|fn|func|interface|type|const)\s+(\w+)`)

func (c *Chunker) extractImports(content string, lang Language) []string {
	pat, ok := importPatterns[lang]
	if !ok {
		return nil
	}
	head := content
	if len(head) > 5000 {
		head = head[:5000]
	}
	var out []string
	for _, m := range pat.FindAllStringSubmatch(head, -1) {
		for _, g := range m[1:] {
			if g != "" {
				out = append(out, g)
				break
			}
		}
	}
	return limit(out, 20)
}

// chunkCode applies the language's regex patterns (or a generic
// fallback) and falls back to fixed-size chunking if nothing matched,
// matching ChunkingService._chunk_code_regex.
func (c *Chunker) chunkCode(content string, lang Language) []Chunk {
	imports := c.extractImports(content, lang)
	patterns, ok := codePatterns[lang]
	if !ok {
		patterns = []struct {
			re   *regexp.Regexp
			kind ChunkType
		}{{genericCodePattern, TypeFunction}}
	}

	var chunks []Chunk
	idx := 0
	for _, p := range patterns {
		for _, loc := range p.re.FindAllStringIndex(content, -1) {
			body := content[loc[0]:loc[1]]
			if len(strings.TrimSpace(body)) < 50 {
				continue
			}
			lineStart := strings.Count(content[:loc[0]], "\n") + 1
			lineEnd := lineStart + strings.Count(body, "\n")
			name := ""
			if m := nameExtract.FindStringSubmatch(body); m != nil {
				name = m[1]
			}
			chunks = append(chunks, Chunk{
				Content: body, ChunkType: p.kind, Index: idx, Language: lang,
				Name: name, LineStart: lineStart, LineEnd: lineEnd, Imports: imports,
			})
			idx++
		}
	}

	if len(chunks) == 0 {
		return c.chunkCodeFixed(content, lang, imports)
	}
	return chunks
}

// chunkCodeFixed splits code into fixed-size chunks (4 chars/token
// estimate) with overlap, used when no semantic pattern matched.
func (c *Chunker) chunkCodeFixed(content string, lang Language, imports []string) []Chunk {
	charsPerChunk := c.ChunkSizeCode * 4
	overlapChars := c.ChunkOverlap * 4
	return fixedSizeSplit(content, charsPerChunk, overlapChars, 50, func(body string, idx, lineStart, lineEnd int) Chunk {
		ch := Chunk{Content: body, ChunkType: TypeModule, Index: idx, Language: lang, LineStart: lineStart, LineEnd: lineEnd}
		if idx == 0 {
			ch.Imports = imports
		}
		return ch
	})
}

var headerPattern = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
var codeBlockPattern = regexp.MustCompile("(?m)```(\\w*)\n")

// chunkMarkdown splits by heading, tracking the nearest enclosing
// parent heading, then re-splits any section larger than
// ChunkSizeDocs*4 characters — matching ChunkingService._chunk_markdown.
func (c *Chunker) chunkMarkdown(content string, lang Language) []Chunk {
	lines := strings.Split(content, "\n")

	var sections []Chunk
	var current []string
	var heading string
	var level int
	parentHeadings := map[int]string{}
	sectionStart := 1

	flush := func(endLine int) {
		if len(current) == 0 {
			return
		}
		body := strings.Join(current, "\n")
		if len(strings.TrimSpace(body)) <= 30 {
			return
		}
		var codeLangs []string
		for _, m := range codeBlockPattern.FindAllStringSubmatch(body, -1) {
			if m[1] != "" {
				codeLangs = append(codeLangs, m[1])
			}
		}
		var parent string
		for l := level - 1; l > 0; l-- {
			if h, ok := parentHeadings[l]; ok {
				parent = h
				break
			}
		}
		sections = append(sections, Chunk{
			Content: body, ChunkType: TypeSection, Index: len(sections), Language: lang,
			LineStart: sectionStart, LineEnd: endLine, Heading: heading, HeadingLevel: level,
			ParentHeading: parent, HasCodeBlocks: len(codeBlockPattern.FindAllString(body, -1)) > 0,
			CodeLanguages: codeLangs,
		})
	}

	for i, line := range lines {
		if m := headerPattern.FindStringSubmatch(line); m != nil {
			flush(i)
			level = len(m[1])
			heading = m[2]
			parentHeadings[level] = heading
			current = []string{line}
			sectionStart = i + 1
		} else {
			current = append(current, line)
		}
	}
	flush(len(lines))

	if len(sections) == 0 {
		return c.chunkText(content, lang)
	}

	var final []Chunk
	for _, s := range sections {
		if len(s.Content) > c.ChunkSizeDocs*4 {
			for _, sub := range c.splitLargeSection(s) {
				sub.Index = len(final)
				final = append(final, sub)
			}
		} else {
			s.Index = len(final)
			final = append(final, s)
		}
	}
	return final
}

func (c *Chunker) splitLargeSection(parent Chunk) []Chunk {
	charsPerChunk := c.ChunkSizeDocs * 4
	overlapChars := c.ChunkOverlap * 4
	subs := fixedSizeSplit(parent.Content, charsPerChunk, overlapChars, 30, func(body string, idx, _, _ int) Chunk {
		return Chunk{
			Content: body, ChunkType: parent.ChunkType, Index: idx, Language: parent.Language,
			LineStart: parent.LineStart, LineEnd: parent.LineEnd, Heading: parent.Heading,
			HeadingLevel: parent.HeadingLevel, ParentHeading: parent.ParentHeading,
			HasCodeBlocks: parent.HasCodeBlocks, CodeLanguages: parent.CodeLanguages,
		}
	})
	if len(subs) == 0 {
		return []Chunk{parent}
	}
	return subs
}

// chunkText is the generic fixed-size fallback for non-code, non-
// markdown content (config files, plaintext).
func (c *Chunker) chunkText(content string, lang Language) []Chunk {
	charsPerChunk := c.ChunkSizeDocs * 4
	overlapChars := c.ChunkOverlap * 4
	return fixedSizeSplit(content, charsPerChunk, overlapChars, 30, func(body string, idx, lineStart, lineEnd int) Chunk {
		return Chunk{Content: body, ChunkType: TypeParagraph, Index: idx, Language: lang, LineStart: lineStart, LineEnd: lineEnd}
	})
}

// fixedSizeSplit walks content in windows of size charsPerChunk,
// preferring a paragraph or sentence boundary near the window edge,
// retreating by overlapChars between windows, and dropping any
// resulting chunk whose trimmed length is <= minLen.
func fixedSizeSplit(content string, charsPerChunk, overlapChars, minLen int, build func(body string, idx, lineStart, lineEnd int) Chunk) []Chunk {
	var chunks []Chunk
	pos := 0
	idx := 0
	for pos < len(content) {
		end := pos + charsPerChunk
		if end > len(content) {
			end = len(content)
		}
		if end < len(content) {
			if para := indexParagraphBreak(content, end); para != -1 {
				end = para + 2
			} else if sent := lastSentenceEnd(content, pos, end); sent != -1 {
				end = sent
			}
			if end > len(content) {
				end = len(content)
			}
		}

		body := content[pos:end]
		if len(strings.TrimSpace(body)) > minLen {
			lineStart := strings.Count(content[:pos], "\n") + 1
			lineEnd := lineStart + strings.Count(body, "\n")
			chunks = append(chunks, build(body, idx, lineStart, lineEnd))
			idx++
		}

		next := end - overlapChars
		if next <= pos || end >= len(content) {
			break
		}
		pos = next
	}
	return chunks
}

func indexParagraphBreak(content string, near int) int {
	lo := near - 100
	if lo < 0 {
		lo = 0
	}
	hi := near + 100
	if hi > len(content) {
		hi = len(content)
	}
	rel := strings.Index(content[lo:hi], "\n\n")
	if rel == -1 {
		return -1
	}
	return lo + rel
}

func lastSentenceEnd(content string, from, near int) int {
	hi := near + 50
	if hi > len(content) {
		hi = len(content)
	}
	window := content[from:hi]
	best := -1
	for _, sep := range []string{". ", ".\n", "! ", "? "} {
		if i := strings.LastIndex(window, sep); i != -1 {
			cand := from + i + len(sep)
			if cand > best {
				best = cand
			}
		}
	}
	return best
}
