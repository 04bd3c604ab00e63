package classifier

import (
	"fmt"
	"html/template"
	"sort"
	"strings"

	"rentalwatch/internal/watch"
)

// Feature labels surfaced in the digest summary.
const (
	featureType      = "Type of house"
	featureArea      = "Living area"
	featureAvailable = "Available"
	featurePrice     = "Rental price"
)

// Each entry is a single div with no nested divs; the digest store splits the
// file back apart on the closing tag.
var entryTmpl = template.Must(template.New("entry").Parse(strings.TrimSpace(`
<div style="border: 1px solid #ccc; padding: 16px; margin-bottom: 16px; border-radius: 6px;">
<h3 style="margin-top: 0; margin-bottom: 8px;"><a href="{{.URL}}" style="text-decoration: none; color: #1a73e8;">{{.Title}}</a></h3>
{{if .Score}}<p style="margin: 4px 0;"><strong>Matching:</strong> {{.Score}}%</p>
{{end}}<p style="margin: 4px 0;"><strong>Type:</strong> {{.Type}}</p>
<p style="margin: 4px 0;"><strong>Area:</strong> {{.Area}}</p>
<p style="margin: 4px 0;"><strong>Available:</strong> {{.Available}}</p>
<p style="margin: 8px 0;"><strong>Cost:</strong> {{.Cost}}</p>
{{if .Assessment}}<p style="margin: 8px 0;"><strong>Assessment:</strong></p>
<p style="margin: 8px 0; background-color: #f3f3f3; padding: 8px; border-left: 4px solid #1a73e8;"><em>{{.Assessment}}</em></p>
{{end}}</div>
`)))

type entryData struct {
	URL        string
	Title      string
	Score      *int
	Type       string
	Area       string
	Available  string
	Cost       string
	Assessment string
}

// RenderEntry produces the HTML digest entry for one classified record.
func RenderEntry(baseURL string, record watch.ListingRecord, verdict watch.Verdict) (string, error) {
	title := record.Title
	if title == "" {
		title = "Unknown location"
	}
	data := entryData{
		URL:        baseURL + record.Link,
		Title:      title,
		Score:      verdict.Score,
		Type:       record.FeatureValue(featureType, "N/A"),
		Area:       record.FeatureValue(featureArea, "N/A"),
		Available:  record.FeatureValue(featureAvailable, "N/A"),
		Cost:       record.FeatureValue(featurePrice, "N/A"),
		Assessment: verdict.Assessment,
	}

	var b strings.Builder
	if err := entryTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render digest entry: %w", err)
	}
	return b.String(), nil
}

// BuildPrompt renders the user prompt sent to the oracle for one record.
func BuildPrompt(record watch.ListingRecord) string {
	var b strings.Builder
	b.WriteString("Listing Details:\n")
	if record.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", record.Title)
	}

	if len(record.Extra) > 0 {
		keys := make([]string, 0, len(record.Extra))
		for k := range record.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, record.Extra[k])
		}
	}

	if len(record.Features) > 0 {
		b.WriteString("\nFeatures:\n")
		for _, f := range record.Features {
			fmt.Fprintf(&b, "%s: %s\n", f.Label, f.Value)
		}
	}

	fmt.Fprintf(&b, "\nDescription:\n%s", strings.TrimSpace(record.Description))
	return b.String()
}
