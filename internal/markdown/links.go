package markdown

type LinkKind string

const (
	LinkKindInline              LinkKind = "inline"
	LinkKindImage               LinkKind = "image"
	LinkKindAuto                LinkKind = "auto"
	LinkKindReferenceDefinition LinkKind = "reference_definition"
)

// Link is a link-like construct found in a body.
type Link struct {
	Kind        LinkKind
	Destination string
}

// Heading is a heading with the anchor id assigned by the parser.
type Heading struct {
	Level int
	Text  string
	ID    string
}
