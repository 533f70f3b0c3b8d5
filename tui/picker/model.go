// Package picker is an interactive list of discovered apps. Selecting an
// entry launches it through a caller-supplied function.
package picker

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/dock/pkg/apps"
	"github.com/grovetools/dock/tui/theme"
)

// LaunchFunc starts app and returns the success message and, for
// framework apps, the address.
type LaunchFunc func(ctx context.Context, app apps.AppDescriptor) (message, address string, err error)

// ScanFunc re-resolves the scan root.
type ScanFunc func(ctx context.Context) (apps.CategoryIndex, error)

// Config defines the configuration for the picker.
type Config struct {
	Root   string
	Index  apps.CategoryIndex
	Launch LaunchFunc
	Rescan ScanFunc
}

type item struct {
	category string
	app      apps.AppDescriptor
}

func (i item) Title() string {
	if i.app.Framework {
		return i.app.Name + " " + theme.DefaultTheme.Accent.Render("●")
	}
	return i.app.Name
}

func (i item) Description() string { return i.category + " · " + i.app.Path }
func (i item) FilterValue() string { return i.category + " " + i.app.Name }

type launchDoneMsg struct {
	name    string
	message string
	address string
	err     error
}

type indexLoadedMsg struct {
	index apps.CategoryIndex
	err   error
}

// Model is the bubbletea model for the picker.
type Model struct {
	cfg     Config
	keys    KeyMap
	list    list.Model
	spinner spinner.Model

	launching string
	status    string
	failed    bool
}

// New creates a picker over cfg.Index.
func New(cfg Config) Model {
	delegate := list.NewDefaultDelegate()
	l := list.New(items(cfg.Index), delegate, 0, 0)
	l.Title = "dock"
	l.Styles.Title = theme.DefaultTheme.Header
	l.SetStatusBarItemName("app", "apps")
	l.AdditionalShortHelpKeys = defaultKeyMap.ShortHelp

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = theme.DefaultTheme.Highlight

	return Model{cfg: cfg, keys: defaultKeyMap, list: l, spinner: s}
}

// items flattens the index in category order.
func items(index apps.CategoryIndex) []list.Item {
	var out []list.Item
	for _, category := range index.Categories() {
		for _, app := range index[category] {
			out = append(out, item{category: category, app: app})
		}
	}
	return out
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Leave room for the header and the status line.
		m.list.SetSize(msg.Width, msg.Height-2)
		return m, nil

	case launchDoneMsg:
		m.launching = ""
		m.failed = msg.err != nil
		switch {
		case msg.err != nil:
			m.status = msg.err.Error()
		case msg.address != "":
			m.status = fmt.Sprintf("%s at %s", msg.message, msg.address)
		default:
			m.status = msg.message
		}
		return m, nil

	case indexLoadedMsg:
		if msg.err != nil {
			m.failed, m.status = true, msg.err.Error()
			return m, nil
		}
		m.cfg.Index = msg.index
		m.failed, m.status = false, fmt.Sprintf("Found %d apps", msg.index.Len())
		return m, m.list.SetItems(items(msg.index))

	case spinner.TickMsg:
		if m.launching == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Launch):
			selected, ok := m.list.SelectedItem().(item)
			if !ok || m.launching != "" {
				return m, nil
			}
			m.launching = selected.app.Name
			m.status = ""
			return m, tea.Batch(m.spinner.Tick, m.launchCmd(selected.app))
		case key.Matches(msg, m.keys.Rescan):
			if m.cfg.Rescan == nil {
				return m, nil
			}
			return m, m.rescanCmd()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) launchCmd(app apps.AppDescriptor) tea.Cmd {
	launch := m.cfg.Launch
	return func() tea.Msg {
		if launch == nil {
			return launchDoneMsg{name: app.Name, err: fmt.Errorf("launching is not available")}
		}
		message, address, err := launch(context.Background(), app)
		return launchDoneMsg{name: app.Name, message: message, address: address, err: err}
	}
}

func (m Model) rescanCmd() tea.Cmd {
	rescan := m.cfg.Rescan
	return func() tea.Msg {
		index, err := rescan(context.Background())
		return indexLoadedMsg{index: index, err: err}
	}
}

func (m Model) View() string {
	t := theme.DefaultTheme
	var b strings.Builder

	if m.cfg.Root != "" {
		b.WriteString(t.Muted.Render(m.cfg.Root))
	}
	b.WriteString("\n")
	b.WriteString(m.list.View())
	b.WriteString("\n")

	switch {
	case m.launching != "":
		b.WriteString(m.spinner.View() + " Starting " + m.launching + "...")
	case m.failed:
		b.WriteString(t.Error.Render("✗ ") + m.status)
	case m.status != "":
		b.WriteString(t.Success.Render("✓ ") + m.status)
	}

	return b.String()
}

// Status returns the last launch or rescan outcome.
func (m Model) Status() string {
	return m.status
}
