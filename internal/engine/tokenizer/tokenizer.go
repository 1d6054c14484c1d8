// Package tokenizer flattens report markup into the styled text tokens the
// parser consumes.
package tokenizer

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/crimson-sun/eventimx/internal/model"
)

// Selector picks the text-bearing leaves of a report: every font element
// inside a table, in document order.
const Selector = "table font"

// Tokenize decodes markup from r to UTF-8 (honouring a BOM, contentType or a
// meta charset declaration), normalizes it to NFC and returns one token per
// element matched by Selector.
func Tokenize(r io.Reader, contentType string) ([]model.Token, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: read markup: %w", err)
	}
	return TokenizeBytes(body, contentType)
}

// TokenizeBytes is Tokenize over an in-memory document.
func TokenizeBytes(b []byte, contentType string) ([]model.Token, error) {
	text, err := decode(b, contentType)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(transform.NewReader(bytes.NewReader(text), norm.NFC))
	if err != nil {
		return nil, fmt.Errorf("tokenizer: parse markup: %w", err)
	}
	return FromDocument(doc), nil
}

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// decode converts b to UTF-8. Charset sniffing only sees the first 1024
// bytes, so an uncertain guess is overridden when the whole body is valid
// UTF-8.
func decode(b []byte, contentType string) ([]byte, error) {
	enc, name, certain := charset.DetermineEncoding(b, contentType)
	if name == "utf-8" || (!certain && utf8.Valid(b)) {
		return bytes.TrimPrefix(b, utf8BOM), nil
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: decode %s: %w", name, err)
	}
	return out, nil
}

// TokenizeString is Tokenize over UTF-8 markup.
func TokenizeString(s string) ([]model.Token, error) {
	return Tokenize(strings.NewReader(s), "text/html; charset=utf-8")
}

// FromDocument extracts tokens from an already parsed document.
func FromDocument(doc *goquery.Document) []model.Token {
	sel := doc.Find(Selector)
	tokens := make([]model.Token, 0, sel.Length())
	sel.Each(func(_ int, el *goquery.Selection) {
		tokens = append(tokens, tokenOf(el))
	})
	return tokens
}

// tokenOf reads one element. It is emphasized only when its first child
// element is <strong>; line breaks become newlines before trimming.
func tokenOf(el *goquery.Selection) model.Token {
	emphasized := goquery.NodeName(el.Children().First()) == "strong"

	clone := el.Clone()
	clone.Find("br").Each(func(_ int, br *goquery.Selection) {
		br.ReplaceWithNodes(&html.Node{Type: html.TextNode, Data: "\n"})
	})
	return model.Token{
		Text:       strings.TrimSpace(clone.Text()),
		Emphasized: emphasized,
	}
}
