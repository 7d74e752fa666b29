package latex

import "strings"

// Default formatting parameters.
const (
	DefaultTrimSize     = "6x9"
	DefaultFont         = "Garamond"
	DefaultChapterStyle = "numbered"
	DefaultGenre        = "fiction"
	DefaultAuthorName   = "Author"
	DefaultBookTitle    = "Untitled"
)

// Params are the layout knobs for one book. Every field has a default, so a
// partially filled record is always usable after [Params.WithDefaults].
type Params struct {
	TrimSize     string `json:"trim_size" toml:"trim_size" mapstructure:"trim_size"`
	Font         string `json:"font" toml:"font" mapstructure:"font"`
	ChapterStyle string `json:"chapter_style" toml:"chapter_style" mapstructure:"chapter_style"`
	Genre        string `json:"genre" toml:"genre" mapstructure:"genre"`
	AuthorName   string `json:"author_name" toml:"author_name" mapstructure:"author_name"`
	BookTitle    string `json:"book_title" toml:"book_title" mapstructure:"book_title"`
}

// DefaultParams returns the parameters used when nothing is configured.
func DefaultParams() Params {
	return Params{
		TrimSize:     DefaultTrimSize,
		Font:         DefaultFont,
		ChapterStyle: DefaultChapterStyle,
		Genre:        DefaultGenre,
		AuthorName:   DefaultAuthorName,
		BookTitle:    DefaultBookTitle,
	}
}

// WithDefaults returns a copy of p with blank fields set to their defaults.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&p.TrimSize, d.TrimSize)
	fill(&p.Font, d.Font)
	fill(&p.ChapterStyle, d.ChapterStyle)
	fill(&p.Genre, d.Genre)
	fill(&p.AuthorName, d.AuthorName)
	fill(&p.BookTitle, d.BookTitle)
	return p
}

// Numbered reports whether chapters carry numbers in the table of contents
// and headings.
func (p Params) Numbered() bool {
	return !strings.EqualFold(p.ChapterStyle, "unnumbered")
}
