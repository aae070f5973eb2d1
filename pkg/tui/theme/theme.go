package theme

import "github.com/charmbracelet/lipgloss/v2"

// Theme centralizes Lip Gloss styles for the Bubble Tea UI.
type Theme struct {
	Header HeaderTheme
	List   ListTheme
	Footer FooterTheme
	Panel  PanelTheme
}

// HeaderTheme styles the title line and the view-control summary.
type HeaderTheme struct {
	Title     lipgloss.Style
	Controls  lipgloss.Style
	Selecting lipgloss.Style
}

// ListTheme styles collection rows.
type ListTheme struct {
	Row      lipgloss.Style
	Cursor   lipgloss.Style
	Selected lipgloss.Style
	Done     lipgloss.Style
	Pending  lipgloss.Style
	Empty    lipgloss.Style
	Preview  lipgloss.Style
}

// FooterTheme groups styles used by the bottom status/help bar.
type FooterTheme struct {
	Help   lipgloss.Style
	Status lipgloss.Style
	Error  lipgloss.Style
	Prompt lipgloss.Style
}

// PanelTheme styles framed panels and headings.
type PanelTheme struct {
	Frame lipgloss.Style
	Title lipgloss.Style
	Body  lipgloss.Style
}

// Default returns the built-in theme used across the UI.
func Default() Theme {
	return Theme{
		Header: HeaderTheme{
			Title:     lipgloss.NewStyle().Bold(true).Underline(true),
			Controls:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
			Selecting: lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		},
		List: ListTheme{
			Row:      lipgloss.NewStyle(),
			Cursor:   lipgloss.NewStyle().Reverse(true),
			Selected: lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
			Done:     lipgloss.NewStyle().Strikethrough(true).Faint(true),
			Pending:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),
			Empty:    lipgloss.NewStyle().Faint(true).Italic(true),
			Preview:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		},
		Footer: FooterTheme{
			Help:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
			Status: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
			Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
			Prompt: lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		},
		Panel: PanelTheme{
			Frame: lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				Padding(1, 2),
			Title: lipgloss.NewStyle().Bold(true),
			Body:  lipgloss.NewStyle(),
		},
	}
}
