package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// MarkdownImporter handles .md, .markdown and .txt files. Plain text is valid
// markdown, so both go through the same parser.
type MarkdownImporter struct{}

// CanHandle returns true for Markdown and plain text extensions.
func (m *MarkdownImporter) CanHandle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown" || ext == ".txt"
}

// Import reads a notes file and normalizes it into a Document.
func (m *MarkdownImporter) Import(ctx context.Context, path string) (*Document, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := ParseMarkdown(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	doc.SourceFile = absPath
	return doc, nil
}

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// ParseMarkdown normalizes markdown source. Front matter is decoded and
// removed from the body before parsing; fenced and indented code is kept out
// of Text.
func ParseMarkdown(src []byte) (*Document, error) {
	content := strings.ReplaceAll(string(src), "\r\n", "\n")
	doc := &Document{Raw: content}
	if strings.TrimSpace(content) == "" {
		return doc, nil
	}

	frontmatter, body := stripFrontMatter(content)
	doc.Frontmatter = frontmatter

	source := []byte(body)
	root := md.Parser().Parse(text.NewReader(source))

	var html bytes.Buffer
	if err := md.Renderer().Render(&html, source, root); err != nil {
		return nil, fmt.Errorf("rendering html: %w", err)
	}
	doc.HTML = html.String()

	w := &textWalker{src: source}
	w.block(root)
	doc.Text = w.finish()
	doc.Headings = w.headings
	doc.Links = w.links
	doc.Images = w.images
	return doc, nil
}

// stripFrontMatter removes YAML front matter (--- delimited) from content.
// Returns the decoded map and the remaining body. Front matter that is not
// valid YAML falls back to simple "key: value" lines.
func stripFrontMatter(content string) (map[string]any, string) {
	if !strings.HasPrefix(strings.TrimSpace(content), "---") {
		return nil, content
	}

	trimmed := strings.TrimSpace(content)
	rest := trimmed[3:] // skip opening ---
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return nil, content
	}

	fmContent := strings.TrimSpace(rest[:idx])
	body := rest[idx+4:] // skip \n---
	if nl := strings.Index(body, "\n"); nl >= 0 && strings.TrimSpace(body[:nl]) == "" {
		body = body[nl+1:]
	}

	var metadata map[string]any
	if err := yaml.Unmarshal([]byte(fmContent), &metadata); err == nil {
		return metadata, body
	}

	metadata = make(map[string]any)
	for _, line := range strings.Split(fmContent, "\n") {
		line = strings.TrimSpace(line)
		if colonIdx := strings.Index(line, ":"); colonIdx > 0 {
			key := strings.TrimSpace(line[:colonIdx])
			val := strings.TrimSpace(line[colonIdx+1:])
			if key != "" && val != "" {
				metadata[key] = val
			}
		}
	}
	return metadata, body
}

// wikiLinkRE matches Obsidian-style [[Target]] and [[Target|Alias]] links.
var wikiLinkRE = regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]+))?\]\]`)

// textWalker flattens a goldmark AST into plain text lines and collects
// headings, links and images along the way.
type textWalker struct {
	src      []byte
	lines    []string
	headings []Heading
	links    []Link
	images   []Image
}

func (w *textWalker) emit(line string) {
	w.lines = append(w.lines, w.unwiki(strings.TrimSpace(line)))
}

func (w *textWalker) blank() {
	if n := len(w.lines); n > 0 && w.lines[n-1] != "" {
		w.lines = append(w.lines, "")
	}
}

func (w *textWalker) block(n ast.Node) {
	switch v := n.(type) {
	case *ast.Heading:
		label := strings.TrimSpace(w.unwiki(w.inline(v)))
		w.headings = append(w.headings, Heading{Level: v.Level, Text: label, ID: headingID(v)})
		w.blank()
		w.emit(label)
		w.blank()
	case *ast.Paragraph:
		w.emit(w.inline(v))
		w.blank()
	case *ast.TextBlock:
		w.emit(w.inline(v))
	case *east.TableHeader, *east.TableRow:
		var cells []string
		for c := v.FirstChild(); c != nil; c = c.NextSibling() {
			cells = append(cells, strings.TrimSpace(w.inline(c)))
		}
		w.emit(strings.Join(cells, " | "))
	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.ThematicBreak:
		w.blank()
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			w.block(c)
		}
		if _, ok := n.(*ast.List); ok {
			w.blank()
		}
		if _, ok := n.(*east.Table); ok {
			w.blank()
		}
	}
}

func (w *textWalker) inline(n ast.Node) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(w.src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(v.Value)
		case *ast.Link:
			label := w.inline(v)
			w.links = append(w.links, Link{Text: label, URL: string(v.Destination), Title: string(v.Title)})
			sb.WriteString(label)
		case *ast.AutoLink:
			label := string(v.Label(w.src))
			w.links = append(w.links, Link{Text: label, URL: string(v.URL(w.src))})
			sb.WriteString(label)
		case *ast.Image:
			w.images = append(w.images, Image{Alt: w.inline(v), Src: string(v.Destination), Title: string(v.Title)})
		case *ast.RawHTML:
			// dropped
		default:
			sb.WriteString(w.inline(c))
		}
	}
	return sb.String()
}

// unwiki replaces wiki links with their display text and records them.
func (w *textWalker) unwiki(s string) string {
	if !strings.Contains(s, "[[") {
		return s
	}
	return wikiLinkRE.ReplaceAllStringFunc(s, func(m string) string {
		parts := wikiLinkRE.FindStringSubmatch(m)
		target := strings.TrimSpace(parts[1])
		label := target
		if alias := strings.TrimSpace(parts[2]); alias != "" {
			label = alias
		}
		w.links = append(w.links, Link{Text: label, URL: target})
		return label
	})
}

func (w *textWalker) finish() string {
	var out []string
	for _, line := range w.lines {
		if line == "" && (len(out) == 0 || out[len(out)-1] == "") {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func headingID(h *ast.Heading) string {
	v, ok := h.AttributeString("id")
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case []byte:
		return string(id)
	case string:
		return id
	}
	return ""
}
