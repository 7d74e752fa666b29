package latex

import (
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/folio/pkg/manuscript"
)

// Assembler concatenates rendered blocks into a markup document.
type Assembler struct {
	Renderer *Renderer

	// GroupListItems wraps each run of consecutive list items in an itemize
	// environment. It only applies in normal mode; degraded list items are
	// plain bullet lines and need no environment.
	GroupListItems bool
}

// NewAssembler creates an assembler with list grouping enabled.
func NewAssembler(mode OverlayMode, logger *log.Logger) *Assembler {
	return &Assembler{
		Renderer:       NewRenderer(mode, logger),
		GroupListItems: true,
	}
}

// Assemble renders blocks in order and joins them behind the preamble
// placeholder, with one blank line after every non-empty fragment.
//
// params is carried for the template step and does not influence the
// fragments themselves. An empty block list yields only the placeholder line.
func (a *Assembler) Assemble(blocks []manuscript.Block, params Params, degraded bool) string {
	r := a.Renderer
	if r == nil {
		r = &Renderer{}
	}
	group := a.GroupListItems && !degraded

	parts := []string{PreamblePlaceholder, ""}
	var items []string
	flush := func() {
		if len(items) == 0 {
			return
		}
		parts = append(parts, "\\begin{itemize}\n"+strings.Join(items, "\n")+"\n\\end{itemize}", "")
		items = items[:0]
	}

	for _, b := range blocks {
		frag := r.RenderBlock(b, degraded)
		if group && b.Type == manuscript.BlockListItem {
			items = append(items, frag)
			continue
		}
		flush()
		if frag != "" {
			parts = append(parts, frag, "")
		}
	}
	flush()

	r.logger().Debug("assembled markup", "blocks", len(blocks), "degraded", degraded)
	return strings.Join(parts, "\n")
}
