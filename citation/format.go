package citation

import (
	"fmt"
	"strings"

	"github.com/NguyenHuy190303/Mental-Care-AI-sub001/schema"
)

// Supported bibliographic styles.
const (
	StyleAPA    = "apa"
	StyleMLA    = "mla"
	StyleSimple = "simple"
)

// Format renders a citation in the requested bibliographic style.
// Unrecognized styles fall back to the simple rendering.
func Format(c schema.Citation, style string) string {
	switch strings.ToLower(strings.TrimSpace(style)) {
	case StyleAPA:
		return formatAPA(c)
	case StyleMLA:
		return formatMLA(c)
	default:
		return formatSimple(c)
	}
}

// formatAPA renders "Authors (Year). Title. URL|doi".
func formatAPA(c schema.Citation) string {
	var b strings.Builder
	b.WriteString(strings.Join(c.Authors, ", "))
	b.WriteString(fmt.Sprintf(" (%s). ", yearOf(c.PublicationDate)))
	b.WriteString(ensurePeriod(c.Title))
	if locator := locatorOf(c); locator != "" {
		b.WriteString(" ")
		b.WriteString(locator)
	}
	return b.String()
}

// formatMLA renders `Author_last, First. "Title." Source, Date, URL.`
func formatMLA(c schema.Citation) string {
	author := ""
	if len(c.Authors) > 0 {
		author = invertAuthor(c.Authors[0])
		if len(c.Authors) > 1 {
			author += ", et al"
		}
	}
	var parts []string
	if c.Source != "" {
		parts = append(parts, c.Source)
	}
	if c.PublicationDate != "" {
		parts = append(parts, c.PublicationDate)
	}
	if c.URL != "" {
		parts = append(parts, c.URL)
	}
	var b strings.Builder
	if author != "" {
		b.WriteString(ensurePeriod(author))
		b.WriteString(" ")
	}
	b.WriteString(fmt.Sprintf("%q ", ensurePeriod(c.Title)))
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString(".")
	return b.String()
}

// formatSimple renders "Title - Author1, Author2 (source)".
func formatSimple(c schema.Citation) string {
	return fmt.Sprintf("%s - %s (%s)", c.Title, strings.Join(c.Authors, ", "), c.Source)
}

// invertAuthor converts "First Last" to "Last, First". Inversion only
// applies when the name lacks a comma and has at least two tokens.
func invertAuthor(name string) string {
	name = strings.TrimSpace(name)
	if strings.Contains(name, ",") {
		return name
	}
	tokens := strings.Fields(name)
	if len(tokens) < 2 {
		return name
	}
	last := tokens[len(tokens)-1]
	first := strings.Join(tokens[:len(tokens)-1], " ")
	return last + ", " + first
}

// yearOf extracts the year of an ISO date, or "n.d." when absent.
func yearOf(date string) string {
	date = strings.TrimSpace(date)
	if len(date) >= 4 {
		year := date[:4]
		numeric := true
		for _, r := range year {
			if r < '0' || r > '9' {
				numeric = false
				break
			}
		}
		if numeric {
			return year
		}
	}
	return "n.d."
}

func locatorOf(c schema.Citation) string {
	if c.URL != "" {
		return c.URL
	}
	if c.DOI != "" {
		return "doi:" + c.DOI
	}
	return ""
}

func ensurePeriod(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?") {
		return s
	}
	return s + "."
}
