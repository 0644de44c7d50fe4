package convert

import (
	"bytes"
	"encoding/json"
	"fmt"
	stdhtml "html"
	"io"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
)

func passthrough(data []byte) ([]byte, error) {
	return data, nil
}

func markdownToHTML(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert(data, &buf); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// markdownToPlain renders the markdown and strips the resulting markup, so
// emphasis, headings and links are reduced to their visible text.
func markdownToPlain(data []byte) ([]byte, error) {
	rendered, err := markdownToHTML(data)
	if err != nil {
		return nil, err
	}
	return htmlToPlain(rendered)
}

// blockTags are elements whose close marks a line break in the extracted
// text.
var blockTags = map[string]struct{}{
	"p": {}, "div": {}, "li": {}, "tr": {}, "blockquote": {}, "pre": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
}

// htmlToPlain extracts the visible text of an HTML document. Script and
// style bodies are dropped, entities are decoded, and block boundaries
// become newlines. Structure beyond that is lost.
func htmlToPlain(data []byte) ([]byte, error) {
	tokenizer := html.NewTokenizer(bytes.NewReader(data))

	var buf bytes.Buffer
	skip := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			err := tokenizer.Err()
			if err == io.EOF {
				return collapseBlankLines(buf.Bytes()), nil
			}
			return nil, fmt.Errorf("parsing html: %w", err)

		case html.TextToken:
			if skip == 0 {
				buf.Write(tokenizer.Text())
			}

		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			case "br":
				buf.WriteByte('\n')
			}

		case html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "br" {
				buf.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if skip > 0 {
					skip--
				}
				continue
			}
			if _, ok := blockTags[tag]; ok {
				buf.WriteByte('\n')
			}
		}
	}
}

// collapseBlankLines trims the output and squeezes runs of blank lines left
// behind by nested block elements.
func collapseBlankLines(data []byte) []byte {
	for bytes.Contains(data, []byte("\n\n\n")) {
		data = bytes.ReplaceAll(data, []byte("\n\n\n"), []byte("\n\n"))
	}
	return bytes.TrimSpace(data)
}

// plainToHTML wraps the escaped text in a minimal document. The pre element
// keeps the original line structure readable.
func plainToHTML(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<body>\n<pre>")
	buf.WriteString(stdhtml.EscapeString(string(data)))
	buf.WriteString("</pre>\n</body>\n</html>\n")
	return buf.Bytes(), nil
}

// jsonToPlain pretty-prints the document. Invalid JSON is an error: the
// payload claimed application/json and did not deliver.
func jsonToPlain(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, fmt.Errorf("formatting json: %w", err)
	}
	return buf.Bytes(), nil
}

// plainToJSON encodes the whole payload as a single JSON string.
func plainToJSON(data []byte) ([]byte, error) {
	out, err := json.Marshal(string(data))
	if err != nil {
		return nil, fmt.Errorf("encoding json: %w", err)
	}
	return out, nil
}

// plainToCSS embeds the text as a CSS comment, producing a valid stylesheet.
// Comment terminators inside the text are escaped so they cannot close the
// comment early.
func plainToCSS(data []byte) ([]byte, error) {
	escaped := bytes.ReplaceAll(data, []byte("*/"), []byte("*\\/"))

	var buf bytes.Buffer
	buf.WriteString("/*\n")
	buf.Write(escaped)
	buf.WriteString("\n*/\n")
	return buf.Bytes(), nil
}

// plainToJavaScript embeds the text as line comments, producing a valid
// script.
func plainToJavaScript(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	for _, line := range bytes.Split(data, []byte("\n")) {
		buf.WriteString("// ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
