package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/types"
)

func extract(t *testing.T, html string) *PageContext {
	t.Helper()
	e := NewExtractor(logging.Nop())
	ctx, err := e.Extract(types.PageSnapshot{
		URL:   "https://example.com/page",
		Title: "Example Page",
		HTML:  html,
	})
	require.NoError(t, err)
	return ctx
}

func TestExtractPrefersArticleOverBody(t *testing.T) {
	ctx := extract(t, `<html><body>
		<nav>Site navigation that should never appear</nav>
		<article>`+strings.Repeat("The article body text. ", 10)+`</article>
		<footer>Copyright footer</footer>
	</body></html>`)

	assert.Contains(t, ctx.Content, "The article body text.")
	assert.NotContains(t, ctx.Content, "Site navigation")
	assert.NotContains(t, ctx.Content, "Copyright footer")
}

func TestExtractFallsBackToBody(t *testing.T) {
	ctx := extract(t, `<html><body><p>Just a short page.</p></body></html>`)
	assert.Contains(t, ctx.Content, "Just a short page.")
}

func TestExtractSkipsThinPriorityMatches(t *testing.T) {
	ctx := extract(t, `<html><body>
		<article>tiny</article>
		<main>`+strings.Repeat("Real main content here. ", 10)+`</main>
	</body></html>`)
	assert.Contains(t, ctx.Content, "Real main content here.")
}

func TestExtractTruncatesLongContent(t *testing.T) {
	ctx := extract(t, `<html><body><article>`+strings.Repeat("x", 12000)+`</article></body></html>`)
	assert.Len(t, ctx.Content, maxContentLength+3)
	assert.True(t, strings.HasSuffix(ctx.Content, "..."))
}

func TestExtractStripsScriptsAndStyles(t *testing.T) {
	ctx := extract(t, `<html><body><article>
		<script>var secret = "leaky";</script>
		<style>.x { color: red }</style>
		`+strings.Repeat("Visible words only. ", 10)+`
	</article></body></html>`)

	assert.NotContains(t, ctx.Content, "leaky")
	assert.NotContains(t, ctx.Content, "color: red")
	assert.Contains(t, ctx.Content, "Visible words only.")
}

func TestExtractMetadataAndHeadings(t *testing.T) {
	ctx := extract(t, `<html><head>
		<meta name="description" content="A page about things">
	</head><body>
		<h1>Top</h1>
		<h2>Section</h2>
		<nav><h2>Nav heading</h2></nav>
		<h3></h3>
	</body></html>`)

	assert.Equal(t, "Example Page", ctx.Title)
	assert.Equal(t, "https://example.com/page", ctx.URL)
	assert.Equal(t, "A page about things", ctx.Description)
	require.Len(t, ctx.Headings, 2)
	assert.Equal(t, Heading{Level: 1, Text: "Top"}, ctx.Headings[0])
	assert.Equal(t, Heading{Level: 2, Text: "Section"}, ctx.Headings[1])
}

func TestExtractModalWithFormFields(t *testing.T) {
	ctx := extract(t, `<html><body>
		<div role="dialog">
			<h2 class="modal-title">Apply Now</h2>
			<div class="modal-body">Submit your application for the Senior Go Engineer role at this company today.</div>
			<label for="company">Company</label>
			<input type="text" id="company" value="Acme Corp">
			<input type="email" placeholder="Email address">
			<button>Submit</button>
			<button>Cancel</button>
		</div>
	</body></html>`)

	require.Len(t, ctx.Modals, 1)
	m := ctx.Modals[0]
	assert.Equal(t, "Apply Now", m.Title)
	assert.Contains(t, m.Content, "Senior Go Engineer")
	require.Len(t, m.Fields, 2)
	assert.Equal(t, FormField{Label: "Company", Value: "Acme Corp"}, m.Fields[0])
	assert.Equal(t, "Email address", m.Fields[1].Label)
	assert.Equal(t, "", m.Fields[1].Value)
	assert.Equal(t, []string{"Submit", "Cancel"}, m.Actions)
}

func TestExtractModalsSortedByStackingOrder(t *testing.T) {
	ctx := extract(t, `<html><body>
		<div class="modal" style="z-index: 100"><h2>Lower</h2></div>
		<div role="dialog" style="z-index: 2000"><h2>Upper</h2></div>
	</body></html>`)

	require.Len(t, ctx.Modals, 2)
	assert.Equal(t, "Upper", ctx.Modals[0].Title)
	assert.Equal(t, 2000, ctx.Modals[0].ZIndex)
	assert.Equal(t, "Lower", ctx.Modals[1].Title)
}

func TestExtractHighZIndexOverlayWithoutModalClass(t *testing.T) {
	ctx := extract(t, `<html><body>
		<div style="position: fixed; z-index: 1500"><h2>Cookie Consent</h2>We use cookies.</div>
	</body></html>`)

	require.Len(t, ctx.Modals, 1)
	assert.Equal(t, "Cookie Consent", ctx.Modals[0].Title)
}

func TestExtractIgnoresHiddenModal(t *testing.T) {
	ctx := extract(t, `<html><body>
		<div role="dialog" style="display: none"><h2>Hidden</h2></div>
	</body></html>`)
	assert.Empty(t, ctx.Modals)
}

func TestExtractDeduplicatesModalSelectors(t *testing.T) {
	// Matches both the role selector and the class selector; counted once.
	ctx := extract(t, `<html><body>
		<div role="dialog" class="modal"><h2>Once</h2></div>
	</body></html>`)
	assert.Len(t, ctx.Modals, 1)
}

func TestNormalizeUTF8PassesThroughValid(t *testing.T) {
	assert.Equal(t, "héllo", normalizeUTF8([]byte("héllo")))
}

func TestNormalizeUTF8TranscodesLatin1(t *testing.T) {
	// ISO-8859-1 French text; é is the single byte 0xE9.
	raw := []byte("Le caf\xe9 pr\xe8s du mus\xe9e est d\xe9j\xe0 ferm\xe9 ce soir, voil\xe0 une soir\xe9e rat\xe9e.")
	got := normalizeUTF8(raw)
	assert.Contains(t, got, "café")
	assert.Contains(t, got, "déjà")
}
