package markdown

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := New().Parse([]byte(src))
	require.NoError(t, err)
	return doc
}

func TestLinks_InlineLink(t *testing.T) {
	links := parse(t, "See [API](api.md) for details.").Links()
	require.Len(t, links, 1)
	require.Equal(t, LinkKindInline, links[0].Kind)
	require.Equal(t, "api.md", links[0].Destination)
}

func TestLinks_ImageLink(t *testing.T) {
	links := parse(t, "![Diagram](diagram.png)").Links()
	require.Len(t, links, 1)
	require.Equal(t, LinkKindImage, links[0].Kind)
	require.Equal(t, "diagram.png", links[0].Destination)
}

func TestLinks_AutoLink(t *testing.T) {
	links := parse(t, "<https://example.com/path>").Links()
	require.Len(t, links, 1)
	require.Equal(t, LinkKindAuto, links[0].Kind)
	require.Equal(t, "https://example.com/path", links[0].Destination)
}

func TestLinks_ReferenceLinkUsageAndDefinition(t *testing.T) {
	links := parse(t, "See [API][ref].\n\n[ref]: api.md\n").Links()

	require.Len(t, links, 2)
	require.Equal(t, LinkKindInline, links[0].Kind)
	require.Equal(t, "api.md", links[0].Destination)
	require.Equal(t, LinkKindReferenceDefinition, links[1].Kind)
	require.Equal(t, "api.md", links[1].Destination)
}

func TestLinks_SkipsInlineCodeAndCodeBlocks(t *testing.T) {
	src := "" +
		"Inline code: `[Link](./ignored-inline.md)`\n" +
		"\n" +
		"```\n" +
		"[Link](./ignored-fence.md)\n" +
		"```\n" +
		"\n" +
		"Real: [OK](./real.md)\n"

	links := parse(t, src).Links()
	require.Len(t, links, 1)
	require.Equal(t, "./real.md", links[0].Destination)
}
