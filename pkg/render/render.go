// Package render draws layout frames. The SVG renderer produces a static
// vector image; the HTML renderer produces a self-contained viewer page with
// the frame embedded as JSON.
package render

// Health bucket colors. The thresholds match the dashboard: a score of 90
// or above is healthy, 80-89 needs attention, below 80 is failing. Missing
// scores arrive as 80 from the wire layer.
const (
	ColorHealthy = "#10b981"
	ColorWarning = "#f59e0b"
	ColorFailing = "#ef4444"
)

// HealthColor maps a 0-100 health score to its bucket color.
func HealthColor(score float64) string {
	switch {
	case score >= 90:
		return ColorHealthy
	case score >= 80:
		return ColorWarning
	default:
		return ColorFailing
	}
}

// Options adjust rendering. Zero values fall back to defaults.
type Options struct {
	NodeRadius float64
	FontSize   float64
	Background string
	Title      string
}

func (o Options) withDefaults() Options {
	if o.NodeRadius <= 0 {
		o.NodeRadius = 20
	}
	if o.FontSize <= 0 {
		o.FontSize = 12
	}
	if o.Background == "" {
		o.Background = "#0f172a"
	}
	if o.Title == "" {
		o.Title = "Dependency Graph"
	}
	return o
}
