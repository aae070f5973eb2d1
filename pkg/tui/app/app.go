// Package app is the Bubble Tea host for a single collection screen.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"tableflip.dev/jot/pkg/collection/selection"
	"tableflip.dev/jot/pkg/collection/viewmodel"
	"tableflip.dev/jot/pkg/glyph"
	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/tui/theme"
)

type mode int

const (
	modeNormal mode = iota
	modeSearch
	modeAdd
	// modeAddBody asks for a new note's content after its title.
	modeAddBody
	modeEdit
	modeConfirm
	modeDetail
	modeHelp
)

type eventMsg viewmodel.Event

type actionDoneMsg struct {
	what string
	err  error
}

// Model renders a ViewModel and forwards key presses to it.
type Model struct {
	ctx  context.Context
	vm   *viewmodel.ViewModel
	kind item.Kind
	th   theme.Theme

	width  int
	height int

	items  []item.Item
	cursor int
	mode   mode
	input  textinput.Model
	status string

	detailID string
	editID   string
	// draftTitle holds the title while a note's body is entered.
	draftTitle string
	confirm  func() tea.Cmd
}

// New builds a model for a mounted (or mounting) view-model.
func New(ctx context.Context, vm *viewmodel.ViewModel, kind item.Kind) *Model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Prompt = ""
	ti.VirtualCursor = true

	m := &Model{
		ctx:   ctx,
		vm:    vm,
		kind:  kind,
		th:    theme.Default(),
		input: ti,
		width: 80,
	}
	m.reload()
	return m
}

// Run launches the Bubble Tea program until the user quits.
func Run(ctx context.Context, vm *viewmodel.ViewModel, kind item.Kind) error {
	p := tea.NewProgram(New(ctx, vm, kind), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m *Model) waitForEvent() tea.Cmd {
	ch := m.vm.Events()
	return func() tea.Msg {
		select {
		case ev := <-ch:
			return eventMsg(ev)
		case <-m.ctx.Done():
			return nil
		}
	}
}

// run performs fn off the update loop and reports the outcome.
func (m *Model) run(what string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{what: what, err: fn(ctx)}
	}
}

func (m *Model) reload() {
	m.items = m.vm.Items()
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.mode == modeDetail {
		if _, ok := m.vm.Item(m.detailID); !ok {
			m.mode = modeNormal
		}
	}
}

func (m *Model) current() (item.Item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return item.Item{}, false
	}
	return m.items[m.cursor], true
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = v.Width
		m.height = v.Height
	case eventMsg:
		m.reload()
		if v.Type == viewmodel.EventError {
			// vm.Err is rendered in the footer.
			m.status = ""
		}
		cmds = append(cmds, m.waitForEvent())
	case actionDoneMsg:
		m.reload()
		switch {
		case v.err == nil:
			m.status = v.what
		case item.Classify(v.err) == item.ClassNotFound:
			m.status = "that item no longer exists"
		default:
			m.status = item.Message(v.err)
		}
	case tea.KeyPressMsg:
		if v.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if cmd := m.handleKeyPress(v); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyPress(msg tea.KeyPressMsg) tea.Cmd {
	switch m.mode {
	case modeSearch:
		return m.handleSearchKey(msg)
	case modeAdd, modeAddBody, modeEdit:
		return m.handleInputKey(msg)
	case modeConfirm:
		return m.handleConfirmKey(msg)
	case modeDetail, modeHelp:
		switch msg.String() {
		case "esc", "q", "enter", "?":
			m.mode = modeNormal
		}
		return nil
	default:
		return m.handleNormalKey(msg)
	}
}

func (m *Model) handleNormalKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = len(m.items) - 1
		m.reload()
	case "?":
		m.mode = modeHelp
	case "esc":
		if !m.vm.Back() && m.vm.View().Search != "" {
			m.vm.SetSearch("")
			m.reload()
		}
	case "enter":
		it, ok := m.current()
		if !ok {
			return nil
		}
		if m.vm.Tap(it.ID) == selection.TapNavigate {
			m.detailID = it.ID
			m.mode = modeDetail
		}
	case "space", " ":
		if it, ok := m.current(); ok {
			m.vm.LongPress(it.ID)
		}
	case "f":
		if it, ok := m.current(); ok {
			id := it.ID
			return m.run("", func(ctx context.Context) error { return m.vm.ToggleFavorite(ctx, id) })
		}
	case "x":
		if it, ok := m.current(); ok && m.kind == item.KindTodo {
			id := it.ID
			return m.run("", func(ctx context.Context) error { return m.vm.ToggleCompleted(ctx, id) })
		}
	case "d", "delete":
		return m.askDelete()
	case "a":
		if m.vm.Mode() == selection.Selecting {
			m.status = "finish selecting first"
			return nil
		}
		m.mode = modeAdd
		m.input.Reset()
		m.input.Placeholder = "title"
		return m.input.Focus()
	case "e":
		it, ok := m.current()
		if !ok || m.vm.Mode() == selection.Selecting {
			return nil
		}
		m.mode = modeEdit
		m.editID = it.ID
		m.input.SetValue(it.Title)
		m.input.CursorEnd()
		return m.input.Focus()
	case "/":
		m.mode = modeSearch
		m.input.SetValue(m.vm.View().Search)
		m.input.CursorEnd()
		m.input.Placeholder = "search"
		return m.input.Focus()
	case "s":
		m.vm.SetSort(m.vm.View().Sort.Next())
		m.reload()
	case "F":
		m.vm.SetFavoriteOnly(!m.vm.View().FavoriteOnly)
		m.reload()
	case "r":
		m.status = "refreshing"
		return m.run("refreshed", func(ctx context.Context) error { return m.vm.Refresh(ctx) })
	}
	return nil
}

func (m *Model) askDelete() tea.Cmd {
	if m.vm.Mode() == selection.Selecting {
		n := len(m.vm.Selected())
		m.status = fmt.Sprintf("delete %d selected? (y/n)", n)
		m.confirm = func() tea.Cmd {
			return m.run(fmt.Sprintf("deleted %d", n), func(ctx context.Context) error { return m.vm.DeleteSelected(ctx) })
		}
		m.mode = modeConfirm
		return nil
	}
	it, ok := m.current()
	if !ok {
		return nil
	}
	id := it.ID
	m.status = fmt.Sprintf("delete %q? (y/n)", it.Title)
	m.confirm = func() tea.Cmd {
		return m.run("deleted", func(ctx context.Context) error { return m.vm.DeleteOne(ctx, id) })
	}
	m.mode = modeConfirm
	return nil
}

func (m *Model) handleConfirmKey(msg tea.KeyPressMsg) tea.Cmd {
	m.mode = modeNormal
	confirm := m.confirm
	m.confirm = nil
	switch msg.String() {
	case "y", "Y", "enter":
		if confirm != nil {
			m.status = "deleting"
			return confirm()
		}
	}
	m.status = ""
	return nil
}

func (m *Model) handleSearchKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.vm.SetSearch("")
		m.leaveInput()
		return nil
	case "enter":
		m.leaveInput()
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.vm.SetSearch(m.input.Value())
	m.reload()
	return cmd
}

func (m *Model) handleInputKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.leaveInput()
		return nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		switch m.mode {
		case modeAdd:
			if value != "" && m.kind == item.KindNote {
				m.draftTitle = value
				m.mode = modeAddBody
				m.input.Reset()
				m.input.Placeholder = "content"
				return nil
			}
		case modeAddBody:
			if value == "" {
				m.status = "a note needs content"
				return nil
			}
		}
		mode, id, title := m.mode, m.editID, m.draftTitle
		m.leaveInput()
		switch {
		case mode == modeEdit && value != "":
			return m.run("saved", func(ctx context.Context) error {
				_, err := m.vm.Update(ctx, id, item.Patch{Title: &value})
				return err
			})
		case mode == modeAddBody:
			return m.run("added", func(ctx context.Context) error {
				_, err := m.vm.Create(ctx, item.Draft{Kind: m.kind, Title: title, Body: value})
				return err
			})
		case mode == modeAdd && value != "":
			return m.run("added", func(ctx context.Context) error {
				_, err := m.vm.Create(ctx, item.Draft{Kind: m.kind, Title: value})
				return err
			})
		}
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) leaveInput() {
	m.input.Blur()
	m.input.Reset()
	m.mode = modeNormal
	m.editID = ""
	m.draftTitle = ""
	m.status = ""
	m.reload()
}

// View implements tea.Model.
func (m *Model) View() string {
	switch m.mode {
	case modeHelp:
		return m.th.Panel.Frame.Render(m.th.Panel.Title.Render("Keys") + "\n\n" + helpText(m.kind) + "\n" + glyph.Legend())
	case modeDetail:
		if it, ok := m.vm.Item(m.detailID); ok {
			return m.detailView(it)
		}
	}

	var lines []string
	lines = append(lines, m.header(), "")
	lines = append(lines, m.rows()...)
	lines = append(lines, "", m.footer())
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) header() string {
	title := m.th.Header.Title.Render(strings.ToUpper(m.kind.Plural()[:1]) + m.kind.Plural()[1:])
	view := m.vm.View()
	controls := []string{"sort: " + view.Sort.Label()}
	if view.Search != "" {
		controls = append(controls, fmt.Sprintf("search: %q", view.Search))
	}
	if view.FavoriteOnly {
		controls = append(controls, glyph.Favorite.Symbol+" only")
	}
	out := title + "  " + m.th.Header.Controls.Render(strings.Join(controls, " · "))
	if m.vm.Mode() == selection.Selecting {
		out += "  " + m.th.Header.Selecting.Render(fmt.Sprintf("%d selected", len(m.vm.Selected())))
	}
	return out
}

func (m *Model) rows() []string {
	if m.vm.Loading() && len(m.items) == 0 {
		return []string{m.th.List.Empty.Render("  loading…")}
	}
	if len(m.items) == 0 {
		return []string{m.th.List.Empty.Render("  none")}
	}

	out := make([]string, 0, len(m.items))
	limit := len(m.items)
	start := 0
	if m.height > 6 && limit > m.height-6 {
		visible := m.height - 6
		start = m.cursor - visible + 1
		if start < 0 {
			start = 0
		}
		limit = start + visible
	}
	for i := start; i < limit && i < len(m.items); i++ {
		out = append(out, m.row(i, m.items[i]))
	}
	return out
}

func (m *Model) row(i int, it item.Item) string {
	mark := " "
	if m.vm.IsSelected(it.ID) {
		mark = m.th.List.Selected.Render(glyph.Selected.Symbol)
	}
	bullet := glyph.Bullet(it).Symbol
	if it.Kind == item.KindTodo && it.Extras.Color != "" {
		bullet = lipgloss.NewStyle().Foreground(lipgloss.Color(it.Extras.Color)).Render(bullet)
	}
	title := it.Title
	if w := m.width - 12; w > 0 {
		title = truncate.StringWithTail(title, uint(w), "…")
	}
	if it.Completed {
		title = m.th.List.Done.Render(title)
	}
	line := fmt.Sprintf("%s %s %s %s", mark, glyph.Signifier(it), bullet, title)
	if extras := glyph.Extras(it); extras != "" {
		line += "  " + extras
	}
	if done, total := it.Progress(); total > 0 {
		line += fmt.Sprintf("  %d/%d", done, total)
	}
	if m.vm.Pending(it.ID) {
		line += " " + m.th.List.Pending.Render("…")
	}
	if i == m.cursor {
		return m.th.List.Cursor.Render(line)
	}
	return m.th.List.Row.Render(line)
}

func (m *Model) footer() string {
	switch m.mode {
	case modeSearch:
		return m.th.Footer.Prompt.Render("/") + m.input.View()
	case modeAdd:
		return m.th.Footer.Prompt.Render("add: ") + m.input.View()
	case modeAddBody:
		prompt := m.th.Footer.Prompt.Render(m.draftTitle+": ") + m.input.View()
		if m.status != "" {
			prompt += "  " + m.th.Footer.Error.Render(m.status)
		}
		return prompt
	case modeEdit:
		return m.th.Footer.Prompt.Render("title: ") + m.input.View()
	}
	if err := m.vm.Err(); err != nil {
		return m.th.Footer.Error.Render(item.Message(err) + "  (r to retry)")
	}
	if m.status != "" {
		return m.th.Footer.Status.Render(m.status)
	}
	if m.vm.Mode() == selection.Selecting {
		return m.th.Footer.Help.Render("space/enter toggle · d delete selected · esc cancel")
	}
	return m.th.Footer.Help.Render("? help · q quit")
}

func (m *Model) detailView(it item.Item) string {
	width := m.width - 8
	if width < 20 {
		width = 20
	}
	var b strings.Builder
	b.WriteString(m.th.Panel.Title.Render(glyph.Signifier(it) + " " + it.Title))
	b.WriteString("\n\n")
	if it.Body != "" {
		b.WriteString(m.th.Panel.Body.Render(wordwrap.String(it.Body, width)))
		b.WriteString("\n")
	}
	for _, st := range it.Extras.Subtasks {
		box := "[ ]"
		if st.Checked {
			box = "[x]"
		}
		fmt.Fprintf(&b, "%s %s\n", box, st.Text)
	}
	if it.Extras.Due != nil {
		fmt.Fprintf(&b, "\ndue %s\n", it.Extras.Due.Local().Format("Mon Jan 2 15:04"))
	}
	if img := it.Image(); img != "" {
		fmt.Fprintf(&b, "%s %s\n", glyph.Image.Symbol, img)
	}
	if loc := it.Extras.Location; loc != nil && loc.Address != "" {
		fmt.Fprintf(&b, "%s %s\n", glyph.Place.Symbol, loc.Address)
	}
	return m.th.Panel.Frame.Render(strings.TrimRight(b.String(), "\n"))
}

func helpText(kind item.Kind) string {
	lines := []string{
		"j/k     move",
		"enter   open, or toggle while selecting",
		"space   select",
		"esc     back / cancel selection",
		"f       favorite",
	}
	if kind == item.KindTodo {
		lines = append(lines, "x       done")
	}
	lines = append(lines,
		"d       delete",
		"a       add",
		"e       edit title",
		"/       search",
		"s       sort",
		"F       favorites only",
		"r       refresh",
		"q       quit",
	)
	return strings.Join(lines, "\n") + "\n"
}
