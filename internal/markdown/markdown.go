// Package markdown wraps goldmark as the body parser collaborator.
//
// The parsed Document is opaque to the build core; only headings and links
// are exposed, and rendering reuses the stored AST.
package markdown

import (
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Parser turns a Markdown body (frontmatter already removed) into a Document.
type Parser interface {
	Parse(body []byte) (*Document, error)
}

// Document is a parsed body handle.
type Document struct {
	source   []byte
	root     gmast.Node
	headings []Heading
	links    []Link
}

// Source returns the body bytes the document was parsed from.
func (d *Document) Source() []byte { return d.source }

// Headings returns the headings in document order.
func (d *Document) Headings() []Heading { return d.headings }

// Links returns inline, image and auto links in document order, followed by
// reference definitions sorted by label.
func (d *Document) Links() []Link { return d.links }

// Goldmark is the default Parser. A Goldmark value is not safe for
// concurrent Render calls; render workers each own one.
type Goldmark struct {
	md goldmark.Markdown
}

// New returns a goldmark parser with GFM and automatic heading ids.
func New() *Goldmark {
	return &Goldmark{md: goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)}
}

// Parse parses body and collects headings and links.
func (g *Goldmark) Parse(body []byte) (*Document, error) {
	ctx := parser.NewContext()
	root := g.md.Parser().Parse(text.NewReader(body), parser.WithContext(ctx))

	doc := &Document{source: body, root: root}
	err := gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *gmast.Heading:
			h := Heading{Level: node.Level, Text: plainText(node, body)}
			if id, ok := node.AttributeString("id"); ok {
				if b, isBytes := id.([]byte); isBytes {
					h.ID = string(b)
				}
			}
			doc.headings = append(doc.headings, h)
		case *gmast.AutoLink:
			doc.links = append(doc.links, Link{Kind: LinkKindAuto, Destination: string(node.URL(body))})
		case *gmast.Image:
			doc.links = append(doc.links, Link{Kind: LinkKindImage, Destination: string(node.Destination)})
		case *gmast.Link:
			// Reference-style links resolve to a Link node with a Destination.
			doc.links = append(doc.links, Link{Kind: LinkKindInline, Destination: string(node.Destination)})
		}
		return gmast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	// Reference definitions live in the parse context, not the AST.
	refs := ctx.References()
	sort.Slice(refs, func(i, j int) bool {
		return string(refs[i].Label()) < string(refs[j].Label())
	})
	for _, ref := range refs {
		doc.links = append(doc.links, Link{Kind: LinkKindReferenceDefinition, Destination: string(ref.Destination())})
	}

	return doc, nil
}

// Render writes the HTML for doc without reparsing it.
func (g *Goldmark) Render(w io.Writer, doc *Document) error {
	if doc == nil || doc.root == nil {
		return nil
	}
	return g.md.Renderer().Render(w, doc.source, doc.root)
}

// RenderString renders doc to a string.
func (g *Goldmark) RenderString(doc *Document) (string, error) {
	var buf bytes.Buffer
	if err := g.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func plainText(n gmast.Node, source []byte) string {
	var sb strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				sb.WriteByte(' ')
			}
		case *gmast.String:
			sb.Write(t.Value)
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
