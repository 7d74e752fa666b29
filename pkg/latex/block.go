package latex

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/folio/pkg/manuscript"
)

// Fixed markup emitted by the renderer.
const (
	PreamblePlaceholder  = "% PREAMBLE_PLACEHOLDER"
	TitlePagePlaceholder = "% TITLE_PAGE_PLACEHOLDER"
	SceneBreak           = `\scenebreak`
)

// Renderer maps blocks to markup fragments.
//
// The zero value renders in strict overlay mode and discards log output.
type Renderer struct {
	Mode   OverlayMode
	Logger *log.Logger
}

// NewRenderer creates a renderer that logs unexpected block types to logger.
func NewRenderer(mode OverlayMode, logger *log.Logger) *Renderer {
	return &Renderer{Mode: mode, Logger: logger}
}

func (r *Renderer) logger() *log.Logger {
	if r == nil || r.Logger == nil {
		return log.New(io.Discard)
	}
	return r.Logger
}

func (r *Renderer) mode() OverlayMode {
	if r == nil {
		return OverlayStrict
	}
	return r.Mode
}

// RenderBlock returns the markup fragment for b. An empty string means the
// block produces no output.
//
// The block text passes through [Overlay] before dispatch; the per-type
// rules below never escape again.
func (r *Renderer) RenderBlock(b manuscript.Block, degraded bool) string {
	text := Overlay(b.Text, b.Marks, r.mode())

	switch b.Type {
	case manuscript.BlockTitlePage:
		return TitlePagePlaceholder

	case manuscript.BlockFrontMatterHeading, manuscript.BlockBackMatterHeading:
		return unnumberedChapter(text)

	case manuscript.BlockFrontMatterText, manuscript.BlockParagraph, manuscript.BlockBackMatterText:
		return text

	case manuscript.BlockChapterHeading:
		if _, ok := b.ChapterNumber(); ok {
			return `\chapter{` + text + `}`
		}
		return unnumberedChapter(text)

	case manuscript.BlockSceneBreak:
		return SceneBreak

	case manuscript.BlockBlockquote:
		if degraded {
			return "\\begin{quote}\n" + text + "\n\\end{quote}"
		}
		return "\\begin{quotation}\n" + text + "\n\\end{quotation}"

	case manuscript.BlockListItem:
		if degraded {
			return "• " + text
		}
		return `\item ` + text

	case manuscript.BlockEpigraph:
		if degraded {
			return "\\begin{flushright}\n\\textit{" + text + "}\n\\end{flushright}"
		}
		return `\epigraph{` + text + `}{}`

	case manuscript.BlockImagePlaceholder, manuscript.BlockTablePlaceholder, manuscript.BlockFootnote:
		if degraded {
			return "% UNSUPPORTED: " + string(b.Type)
		}
		r.logger().Warn("unexpected block in normal mode", "type", b.Type)
		return ""
	}

	r.logger().Warn("unknown block type", "type", b.Type)
	return text
}

func unnumberedChapter(text string) string {
	return `\chapter*{` + text + "}\n" + `\addcontentsline{toc}{chapter}{` + text + `}`
}
