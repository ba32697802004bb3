package cmd

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"catalog-discovery/discovery"
)

var browseOpts searchFlags

// browseCmd represents the browse command
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Page through discovery results interactively",
	Long:  `Launch an interactive TUI over the same query search runs.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		a := bootstrap(cmd.Context(), configPath)
		defer a.Close()

		p := tea.NewProgram(newBrowseModel(cmd.Context(), a.svc, browseOpts.params()), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			cmdLog().Fatalw("Failed to run browser", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
	addSearchFlags(browseCmd, &browseOpts)
}

// searcher is the part of the discovery service the browser needs.
type searcher interface {
	Search(ctx context.Context, p discovery.Params) discovery.ResultPage
}

// browseModel represents the state of the TUI
type browseModel struct {
	ctx           context.Context
	svc           searcher
	params        discovery.Params
	page          discovery.ResultPage
	selectedIndex int
	loading       bool
	spinner       spinner.Model
	width         int
	height        int
}

type pageLoadedMsg struct {
	params discovery.Params
	page   discovery.ResultPage
}

func newBrowseModel(ctx context.Context, svc searcher, params discovery.Params) browseModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return browseModel{
		ctx:     ctx,
		svc:     svc,
		params:  params,
		loading: true,
		spinner: s,
		width:   80,
		height:  24,
	}
}

func (m browseModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m browseModel) load() tea.Cmd {
	params := m.params
	return func() tea.Msg {
		return pageLoadedMsg{params: params, page: m.svc.Search(m.ctx, params)}
	}
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case pageLoadedMsg:
		// Drop answers to queries the user has already moved past.
		if !sameQuery(msg.params, m.params) {
			return m, nil
		}
		m.page = msg.page
		m.loading = false
		m.selectedIndex = 0
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func sameQuery(a, b discovery.Params) bool {
	return a.Page == b.Page && a.Sort == b.Sort
}

func (m browseModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}
	case "down", "j":
		if m.selectedIndex < len(m.page.Items)-1 {
			m.selectedIndex++
		}
	case "n", "right":
		if m.loading || m.params.Page+1 >= totalPages(m.page.TotalMatching, m.page.Size) {
			return m, nil
		}
		m.params.Page++
		return m.reload()
	case "p", "left":
		if m.loading || m.params.Page == 0 {
			return m, nil
		}
		m.params.Page--
		return m.reload()
	case "s":
		m.params.Sort = string(nextSort(m.params.Sort))
		m.params.Page = 0
		return m.reload()
	}
	return m, nil
}

func (m browseModel) reload() (tea.Model, tea.Cmd) {
	m.loading = true
	return m, tea.Batch(m.spinner.Tick, m.load())
}

// nextSort cycles through the public sort keys.
func nextSort(current string) discovery.SortKey {
	k, ok := discovery.ParseSortKey(current)
	if !ok {
		return discovery.SortKeys[0]
	}
	i := slices.Index(discovery.SortKeys, k)
	return discovery.SortKeys[(i+1)%len(discovery.SortKeys)]
}

func (m browseModel) View() string {
	if m.loading {
		return fmt.Sprintf("\n %s Loading projects...\n", m.spinner.View())
	}
	if len(m.page.Items) == 0 {
		return "No projects found.\n\n" + m.renderFooter()
	}

	var output string
	output += renderHeader()
	output += "\n"
	for i, p := range m.page.Items {
		rowStyle := lipgloss.NewStyle().Padding(0, 1)
		if i == m.selectedIndex {
			rowStyle = rowStyle.
				Background(lipgloss.Color("8")).
				Bold(true)
		}
		output += rowStyle.Render(renderRow(p)) + "\n"
	}
	output += "\n" + m.renderFooter()
	return output
}

func (m browseModel) renderFooter() string {
	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Italic(true)

	sort := m.params.Sort
	if sort == "" {
		sort = "default"
	}
	status := fmt.Sprintf("page %d/%d  %d matching  sort: %s",
		m.params.Page+1, max(totalPages(m.page.TotalMatching, m.page.Size), 1), m.page.TotalMatching, sort)
	return status + "\n" + footerStyle.Render("↑/k: up  ↓/j: down  n: next page  p: prev page  s: cycle sort  q: quit")
}
