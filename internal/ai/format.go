package ai

import (
	"fmt"
	"strings"
)

// FormatContext renders a page digest into the prompt section the assistant
// reads. Modal overlays come first so the assistant answers about what is
// actually on screen.
func FormatContext(ctx *PageContext) string {
	if ctx == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Page Title: %s\n", ctx.Title)
	fmt.Fprintf(&b, "URL: %s\n\n", ctx.URL)

	if ctx.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n\n", ctx.Description)
	}

	if len(ctx.Modals) > 0 {
		b.WriteString("=== ACTIVE POPUPS/MODALS ===\n")
		for i, m := range ctx.Modals {
			if m.Title != "" {
				fmt.Fprintf(&b, "\nModal %d: %s\n", i+1, m.Title)
			} else {
				fmt.Fprintf(&b, "\nModal %d\n", i+1)
			}
			b.WriteString(strings.Repeat("-", 30) + "\n")

			if m.Content != "" {
				content := m.Content
				if len(content) > 500 {
					content = content[:500] + "..."
				}
				fmt.Fprintf(&b, "Content: %s\n", content)
			}

			if len(m.Fields) > 0 {
				b.WriteString("\nForm Fields:\n")
				for _, f := range m.Fields {
					value := f.Value
					if value == "" {
						value = "(empty)"
					}
					fmt.Fprintf(&b, "  - %s: %s\n", f.Label, value)
				}
			}

			if len(m.Actions) > 0 {
				fmt.Fprintf(&b, "\nAvailable Actions: %s\n", strings.Join(m.Actions, ", "))
			}
		}
		b.WriteString("\n=== END OF POPUPS/MODALS ===\n\n")
	}

	if len(ctx.Headings) > 0 {
		b.WriteString("Page Structure:\n")
		for _, h := range ctx.Headings {
			indent := strings.Repeat("  ", h.Level-1)
			fmt.Fprintf(&b, "%s%s\n", indent, h.Text)
		}
		b.WriteString("\n")
	}

	b.WriteString("Main Content:\n")
	b.WriteString(ctx.Content)
	return b.String()
}
