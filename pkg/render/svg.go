package render

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/zenpipeline/archview/pkg/layout"
)

// SVG renders a frame as a standalone SVG document. Edges are lines with an
// arrowhead marker pointing at the target; nodes are circles colored by
// health bucket with the module name below. Element order is deterministic:
// defs, edges in input order, then nodes in input order so circles paint
// over lines.
func SVG(frame layout.Frame, opts Options) string {
	opts = opts.withDefaults()

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">`+"\n",
		frame.Width, frame.Height, frame.Width, frame.Height)
	b.WriteString("<defs>\n")
	b.WriteString(`<marker id="arrow" viewBox="0 0 10 10" refX="28" refY="5" markerWidth="6" markerHeight="6" orient="auto-start-reverse">` + "\n")
	b.WriteString(`<path d="M 0 0 L 10 5 L 0 10 z" fill="#64748b"/>` + "\n")
	b.WriteString("</marker>\n</defs>\n")
	fmt.Fprintf(&b, `<rect width="100%%" height="100%%" fill="%s"/>`+"\n", escape(opts.Background))

	for _, e := range frame.Edges {
		fmt.Fprintf(&b,
			`<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="#64748b" stroke-width="1.5" marker-end="url(#arrow)"/>`+"\n",
			e.X1, e.Y1, e.X2, e.Y2)
	}

	for _, n := range frame.Nodes {
		fmt.Fprintf(&b, `<circle cx="%.2f" cy="%.2f" r="%.0f" fill="%s" stroke="#1e293b" stroke-width="2"/>`+"\n",
			n.X, n.Y, opts.NodeRadius, HealthColor(n.Health))
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" font-size="%.0f" fill="#e2e8f0" text-anchor="middle" font-family="sans-serif">%s</text>`+"\n",
			n.X, n.Y+opts.NodeRadius+opts.FontSize+4, opts.FontSize, escape(n.Name))
	}

	b.WriteString("</svg>\n")
	return b.String()
}

func escape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
