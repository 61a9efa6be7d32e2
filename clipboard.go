package main

import (
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
)

// PasteKind classifies what the clipboard held.
type PasteKind int

const (
	PasteEmpty PasteKind = iota
	PasteText
	PasteImage
)

// PasteContent is the normalized result of a clipboard read.
type PasteContent struct {
	Kind  PasteKind
	Text  string
	Image []byte
}

// readClipboardText prefers pbpaste on macOS, where clipboard.ReadAll
// can hand back RTF for text copied out of rich editors.
func readClipboardText() (string, error) {
	if runtime.GOOS == "darwin" {
		if output, err := exec.Command("pbpaste", "-Prefer", "txt").Output(); err == nil {
			return string(output), nil
		}
	}
	return clipboard.ReadAll()
}

// ReadPaste reads the clipboard and decides whether it holds an image
// (as a data URI) or plain text. Rich-text wrappers are stripped.
func ReadPaste() (PasteContent, error) {
	raw, err := readClipboardText()
	if err != nil {
		return PasteContent{}, err
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return PasteContent{Kind: PasteEmpty}, nil
	}
	if data, ok := parseDataURI(trimmed); ok {
		return PasteContent{Kind: PasteImage, Image: data}, nil
	}
	text := cleanClipboardText(raw)
	if strings.TrimSpace(text) == "" {
		return PasteContent{Kind: PasteEmpty}, nil
	}
	return PasteContent{Kind: PasteText, Text: text}, nil
}

// cleanClipboardText strips RTF and HTML wrappers and normalizes line
// endings so pasted text lands as plain lines.
func cleanClipboardText(text string) string {
	if strings.HasPrefix(text, "{\\rtf") || strings.Contains(text, "\\rtf1") {
		text = stripRTF(text)
	} else if looksLikeHTML(text) {
		text = stripHTML(text)
	}
	var out strings.Builder
	out.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\r' || r == '\t' || r >= 32 {
			out.WriteRune(r)
		}
	}
	normalized := strings.ReplaceAll(out.String(), "\r\n", "\n")
	return strings.ReplaceAll(normalized, "\r", "\n")
}

func looksLikeHTML(text string) bool {
	t := strings.TrimSpace(text)
	return strings.HasPrefix(t, "<") &&
		(strings.Contains(t, "<html") || strings.Contains(t, "<body") || strings.Contains(t, "<div"))
}

func stripHTML(html string) string {
	var out strings.Builder
	out.Grow(len(html))
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			out.WriteRune(r)
		}
	}
	text := out.String()
	for entity, repl := range map[string]string{
		"&lt;": "<", "&gt;": ">", "&amp;": "&",
		"&quot;": "\"", "&#39;": "'", "&nbsp;": " ",
	} {
		text = strings.ReplaceAll(text, entity, repl)
	}
	return text
}

// stripRTF drops RTF group braces and control words, keeping literal
// text plus \par and \tab expansions.
func stripRTF(text string) string {
	var out strings.Builder
	out.Grow(len(text))
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '{', '}':
			continue
		case '\\':
			if i+1 >= len(runes) {
				continue
			}
			next := runes[i+1]
			if next == '\\' || next == '{' || next == '}' {
				out.WriteRune(next)
				i++
				continue
			}
			if next >= 'a' && next <= 'z' || next >= 'A' && next <= 'Z' {
				start := i + 1
				i++
				for i+1 < len(runes) && isControlRune(runes[i+1]) {
					i++
				}
				word := strings.TrimRight(string(runes[start:i+1]), "-0123456789")
				switch word {
				case "par", "line":
					out.WriteByte('\n')
				case "tab":
					out.WriteByte('\t')
				}
				if i+1 < len(runes) && runes[i+1] == ' ' {
					i++
				}
				continue
			}
			i++
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}

func isControlRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-'
}
