package ai

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"

	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/types"
)

// maxContentLength caps the extracted main content.
const maxContentLength = 10000

// Selector sets mirroring what the shell considers interesting content.
var (
	mainSelectors = []string{"article", "main", `[role="main"]`, "#main-content", ".main-content"}

	excludeSelectors = "script, style, nav, header, footer, aside, .ad, .advertisement, .sidebar"

	modalSelectors = []string{
		`[role="dialog"]`,
		`[role="alertdialog"]`,
		`[aria-modal="true"]`,
		".modal:not(.modal-backdrop)",
		".popup",
		".dialog",
		".overlay-content",
		".lightbox",
		".popover",
		`.tooltip[role="tooltip"]`,
		`[class*="modal"][class*="open"]`,
		`[class*="modal"][class*="show"]`,
		`[class*="popup"][class*="open"]`,
		`[class*="popup"][class*="show"]`,
		".MuiDialog-root",
		".ant-modal-wrap",
		".modal-content",
		`[data-testid="modal"]`,
		`[data-modal="true"]`,
	}

	modalTitleSelectors = []string{
		`[role="heading"]`,
		".modal-title",
		".modal-header h1, .modal-header h2, .modal-header h3",
		".dialog-title",
		".popup-title",
		"h1, h2, h3",
		`[class*="title"]`,
	}

	modalBodySelectors = []string{
		".modal-body",
		".dialog-content",
		".popup-content",
		`[class*="content"]`,
		"main",
		"article",
	}
)

var zIndexRe = regexp.MustCompile(`z-index\s*:\s*(-?\d+)`)

// Heading is one entry of the page outline.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// FormField is a labeled input found inside a modal.
type FormField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Modal is an overlay extracted from the page, highest stacking order first.
type Modal struct {
	Title   string      `json:"title"`
	Content string      `json:"content"`
	Fields  []FormField `json:"fields"`
	Actions []string    `json:"actions"`
	ZIndex  int         `json:"zIndex"`
}

// PageContext is the digest of a page snapshot fed to the assistant.
type PageContext struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	Headings    []Heading `json:"headings"`
	Modals      []Modal   `json:"modals"`
}

// Extractor digests page snapshots into assistant context.
type Extractor struct {
	flatten *bluemonday.Policy
	log     *logging.Logger
}

// NewExtractor builds an extractor. The strict policy flattens any fragment
// to plain text, so stray markup in attribute-injected content never reaches
// the prompt.
func NewExtractor(log *logging.Logger) *Extractor {
	return &Extractor{flatten: bluemonday.StrictPolicy(), log: log}
}

// Extract parses a snapshot and pulls out the title, metadata, prioritized
// main content, heading outline, and any active overlays.
func (e *Extractor) Extract(page types.PageSnapshot) (*PageContext, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(normalizeUTF8([]byte(page.HTML))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	ctx := &PageContext{
		Title: page.Title,
		URL:   page.URL,
	}
	if ctx.Title == "" {
		ctx.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		ctx.Description = strings.TrimSpace(desc)
	}

	ctx.Modals = e.extractModals(doc)
	ctx.Content = e.mainContent(doc)
	ctx.Headings = e.headings(doc)
	return ctx, nil
}

// mainContent walks the priority selectors and keeps the first substantial
// hit, falling back to the whole body. The result is capped at
// maxContentLength with an ellipsis.
func (e *Extractor) mainContent(doc *goquery.Document) string {
	var content string
	for _, sel := range mainSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		content = e.textOf(node)
		if len(content) > 100 {
			break
		}
	}
	if content == "" {
		content = e.textOf(doc.Find("body").First())
	}
	if len(content) > maxContentLength {
		content = content[:maxContentLength] + "..."
	}
	return content
}

func (e *Extractor) headings(doc *goquery.Document) []Heading {
	var out []Heading
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered(excludeSelectors).Length() > 0 {
			return
		}
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		name := goquery.NodeName(s)
		level, _ := strconv.Atoi(strings.TrimPrefix(name, "h"))
		out = append(out, Heading{Level: level, Text: text})
	})
	return out
}

// extractModals finds visible overlays: the known dialog/popup selectors plus
// any inline-styled element stacked above z-index 999. Results come back
// highest stacking order first.
func (e *Extractor) extractModals(doc *goquery.Document) []Modal {
	seen := make(map[*xhtml.Node]bool)
	type candidate struct {
		sel    *goquery.Selection
		zIndex int
	}
	var found []candidate

	add := func(s *goquery.Selection) {
		node := s.Get(0)
		if seen[node] || hiddenInline(s) {
			return
		}
		seen[node] = true
		found = append(found, candidate{sel: s, zIndex: inlineZIndex(s)})
	}

	for _, sel := range modalSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) { add(s) })
	}

	// High z-index overlays that no class or role gave away.
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		z := inlineZIndex(s)
		if z <= 999 {
			return
		}
		if !strings.Contains(style, "fixed") && !strings.Contains(style, "absolute") {
			return
		}
		add(s)
	})

	sort.SliceStable(found, func(i, j int) bool { return found[i].zIndex > found[j].zIndex })

	out := make([]Modal, 0, len(found))
	for _, c := range found {
		out = append(out, e.extractModal(c.sel, c.zIndex))
	}
	return out
}

func (e *Extractor) extractModal(s *goquery.Selection, zIndex int) Modal {
	m := Modal{ZIndex: zIndex}

	for _, sel := range modalTitleSelectors {
		if t := strings.TrimSpace(s.Find(sel).First().Text()); t != "" {
			m.Title = t
			break
		}
	}

	for _, sel := range modalBodySelectors {
		body := s.Find(sel).First()
		if body.Length() == 0 {
			continue
		}
		m.Content = e.textOf(body)
		if len(m.Content) > 50 {
			break
		}
	}
	if m.Content == "" {
		m.Content = e.textOf(s)
	}

	s.Find(`input[type="text"], input[type="email"], textarea, select`).Each(func(_ int, in *goquery.Selection) {
		label := fieldLabel(s, in)
		if label == "" {
			return
		}
		value, _ := in.Attr("value")
		if value == "" && goquery.NodeName(in) == "textarea" {
			value = strings.TrimSpace(in.Text())
		}
		m.Fields = append(m.Fields, FormField{Label: label, Value: value})
	})

	s.Find(`button, [role="button"], input[type="submit"]`).Each(func(_ int, btn *goquery.Selection) {
		text := strings.TrimSpace(btn.Text())
		if text == "" {
			text, _ = btn.Attr("value")
			text = strings.TrimSpace(text)
		}
		if text != "" && len(text) < 50 {
			m.Actions = append(m.Actions, text)
		}
	})
	return m
}

// fieldLabel resolves an input's label: an explicit <label for>, then its
// placeholder, aria-label, or name.
func fieldLabel(scope, in *goquery.Selection) string {
	if id, ok := in.Attr("id"); ok && id != "" {
		if l := strings.TrimSpace(scope.Find(`label[for="` + id + `"]`).First().Text()); l != "" {
			return l
		}
	}
	for _, attr := range []string{"placeholder", "aria-label", "name"} {
		if v, ok := in.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// textOf flattens a node to plain text with the excluded chrome removed.
func (e *Extractor) textOf(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	clone := s.Clone()
	clone.Find(excludeSelectors).Remove()
	inner, err := clone.Html()
	if err != nil {
		return strings.TrimSpace(clone.Text())
	}
	text := html.UnescapeString(e.flatten.Sanitize(inner))
	return strings.Join(strings.Fields(text), " ")
}

func inlineZIndex(s *goquery.Selection) int {
	style, ok := s.Attr("style")
	if !ok {
		return 0
	}
	m := zIndexRe.FindStringSubmatch(style)
	if m == nil {
		return 0
	}
	z, _ := strconv.Atoi(m[1])
	return z
}

func hiddenInline(s *goquery.Selection) bool {
	style, ok := s.Attr("style")
	if !ok {
		return false
	}
	style = strings.ReplaceAll(style, " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}
