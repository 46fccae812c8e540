// Package tui is the interactive catalog browser behind describe -i.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/andressep95/annotations/internal/describe"
)

type focus int

const (
	focusTables focus = iota
	focusDetail
)

// TableItem is a table in the browser list.
type TableItem struct {
	Table describe.Table
}

func (i TableItem) FilterValue() string { return i.Table.Name }
func (i TableItem) Title() string       { return i.Table.Name }
func (i TableItem) Description() string {
	return fmt.Sprintf("%d columns, %d edges", len(i.Table.Columns), len(i.Table.Relationships))
}

// TableItemDelegate renders list entries on two lines.
type TableItemDelegate struct{}

func (d TableItemDelegate) Height() int                             { return 2 }
func (d TableItemDelegate) Spacing() int                            { return 1 }
func (d TableItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d TableItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(TableItem)
	if !ok {
		return
	}

	var s string
	if index == m.Index() {
		s = selectedItemStyle.Render("▸ " + i.Title() + "\n  " + mutedStyle.Render(i.Description()))
	} else {
		s = unselectedItemStyle.Render(i.Title() + "\n" + mutedStyle.Render(i.Description()))
	}
	_, _ = fmt.Fprint(w, s)
}

// BrowserModel is the bubbletea model of the catalog browser: a table list
// on the left and the selected table's detail on the right.
type BrowserModel struct {
	catalog  *describe.Catalog
	list     list.Model
	detail   viewport.Model
	focus    focus
	selected int
	width    int
	height   int
}

// NewBrowserModel creates the browser for doc.
func NewBrowserModel(doc *describe.Catalog) BrowserModel {
	items := make([]list.Item, len(doc.Tables))
	for i, t := range doc.Tables {
		items[i] = TableItem{Table: t}
	}

	l := list.New(items, TableItemDelegate{}, 0, 0)
	l.Title = fmt.Sprintf("%s (%s)", doc.Name, doc.Namespace)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	l.Styles.Title = titleStyle

	m := BrowserModel{
		catalog:  doc,
		list:     l,
		detail:   viewport.New(0, 0),
		selected: -1,
	}
	m.syncDetail()
	return m
}

// Init initializes the model
func (m BrowserModel) Init() tea.Cmd {
	return tea.EnterAltScreen
}

// Update handles messages
func (m BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		listWidth := max(msg.Width/3, 24)
		m.list.SetSize(listWidth, msg.Height-4)
		m.detail.Width = max(msg.Width-listWidth-6, 20)
		m.detail.Height = max(msg.Height-4, 5)
		m.selected = -1
		m.syncDetail()
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab", "enter", "right", "l":
			if m.focus == focusTables {
				m.focus = focusDetail
				return m, nil
			}
		case "shift+tab", "esc", "left", "h":
			if m.focus == focusDetail {
				m.focus = focusTables
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	if m.focus == focusDetail {
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	m.list, cmd = m.list.Update(msg)
	m.syncDetail()
	return m, cmd
}

// syncDetail renders the selected table into the viewport when the
// selection changed.
func (m *BrowserModel) syncDetail() {
	item, ok := m.list.SelectedItem().(TableItem)
	if !ok {
		m.detail.SetContent(mutedStyle.Render("No tables"))
		return
	}
	if m.list.Index() == m.selected {
		return
	}
	m.selected = m.list.Index()
	m.detail.SetContent(RenderTable(m.catalog.Namespace, item.Table))
	m.detail.GotoTop()
}

// View renders the UI
func (m BrowserModel) View() string {
	listBox, detailBox := activeBoxStyle, boxStyle
	if m.focus == focusDetail {
		listBox, detailBox = boxStyle, activeBoxStyle
	}
	help := helpStyle.Render(
		FormatKey("↑/↓", "navigate") + " • " +
			FormatKey("tab", "switch pane") + " • " +
			FormatKey("/", "filter") + " • " +
			FormatKey("q", "quit"),
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top,
			listBox.Render(m.list.View()),
			detailBox.Render(m.detail.View()),
		),
		help,
	)
}

// RenderTable formats one table for the detail pane.
func RenderTable(namespace string, t describe.Table) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(namespace + "." + t.Name))
	b.WriteString("\n")
	if t.Model != "" {
		b.WriteString(mutedStyle.Render(t.Model))
		b.WriteString("\n")
	}

	b.WriteString("\n" + sectionStyle.Render("Columns") + "\n")
	for _, c := range t.Columns {
		fmt.Fprintf(&b, "  %-22s %-16s %s", c.Name, c.Type, mutedStyle.Render(t.Flags(c)))
		if c.Default != "" {
			b.WriteString(mutedStyle.Render(" default " + c.Default))
		}
		b.WriteString("\n")
	}

	if t.PrimaryKey != nil || len(t.Uniques) > 0 || len(t.Checks) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Keys") + "\n")
		if t.PrimaryKey != nil {
			fmt.Fprintf(&b, "  %s PRIMARY KEY (%s)\n", keyStyle.Render(t.PrimaryKey.Name), strings.Join(t.PrimaryKey.Columns, ", "))
		}
		for _, u := range t.Uniques {
			fmt.Fprintf(&b, "  %s UNIQUE (%s)\n", keyStyle.Render(u.Name), strings.Join(u.Columns, ", "))
		}
		for _, c := range t.Checks {
			fmt.Fprintf(&b, "  %s CHECK %s\n", keyStyle.Render(c.Name), c.Expression)
		}
	}

	if len(t.ForeignKeys) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Foreign keys") + "\n")
		for _, fk := range t.ForeignKeys {
			fmt.Fprintf(&b, "  %s (%s) → %s ON DELETE %s",
				keyStyle.Render(fk.Name), strings.Join(fk.Columns, ", "), fk.References, fk.OnDelete)
			if fk.OrphanRemoval {
				b.WriteString(mutedStyle.Render(" orphan removal"))
			}
			b.WriteString("\n")
		}
	}

	if len(t.Indexes) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Indexes") + "\n")
		for _, idx := range t.Indexes {
			fmt.Fprintf(&b, "  %s %s (%s)\n", keyStyle.Render(idx.Name), idx.Method, strings.Join(idx.Columns, ", "))
		}
	}

	if len(t.Relationships) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Relationships") + "\n")
		for _, r := range t.Relationships {
			b.WriteString("  " + edgeStyle.Render(r.Edge(t.Name)) + "\n")
		}
	}
	return b.String()
}

// RunBrowser starts the interactive browser for doc.
func RunBrowser(doc *describe.Catalog) error {
	p := tea.NewProgram(NewBrowserModel(doc))
	_, err := p.Run()
	return err
}
