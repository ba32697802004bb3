package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"catalog-discovery/discovery"
	"catalog-discovery/ui"
)

// searchFlags mirrors discovery.Params for the command line.
type searchFlags struct {
	search         string
	tags           []string
	sort           string
	category       string
	classification string
	gameVersion    string
	minRating      float64
	minDownloads   int64
	dateRange      string
	author         string
	user           string
	page           int
	size           int
	asJSON         bool
}

func (f searchFlags) params() discovery.Params {
	p := discovery.Params{
		Search:         f.search,
		Sort:           f.sort,
		Category:       f.category,
		Classification: f.classification,
		GameVersion:    f.gameVersion,
		MinRating:      f.minRating,
		MinDownloads:   f.minDownloads,
		DateRange:      f.dateRange,
		Author:         f.author,
		Page:           f.page,
		Size:           f.size,
	}
	for _, t := range f.tags {
		p.Tags = append(p.Tags, discovery.ParseTags(t)...)
	}
	if u := strings.TrimSpace(f.user); u != "" {
		p.Caller = &discovery.Identity{ID: u}
	}
	return p
}

func addSearchFlags(cmd *cobra.Command, f *searchFlags) {
	fl := cmd.Flags()
	fl.StringVarP(&f.search, "search", "q", "", "case-insensitive text in title, description or author")
	fl.StringSliceVarP(&f.tags, "tags", "t", nil, "tags the project must all carry")
	fl.StringVarP(&f.sort, "sort", "s", "", "sort key: "+sortKeyList())
	fl.StringVarP(&f.category, "category", "c", "", "view: All, popular, trending, hidden_gems, Favorites, Your Projects")
	fl.StringVar(&f.classification, "classification", "", "PLUGIN, DATA, ART, SAVE or MODPACK")
	fl.StringVar(&f.gameVersion, "game-version", "", "supported game version")
	fl.Float64Var(&f.minRating, "min-rating", 0, "minimum rating")
	fl.Int64Var(&f.minDownloads, "min-downloads", 0, "minimum download count")
	fl.StringVar(&f.dateRange, "date-range", "", "7d, 30d, 90d, 1y, all or YYYY-MM-DD")
	fl.StringVar(&f.author, "author", "", "exact author name, case-insensitive")
	fl.StringVar(&f.user, "user", "", "act as this user id for Favorites and Your Projects")
	fl.IntVar(&f.page, "page", 0, "zero-based page index")
	fl.IntVar(&f.size, "size", 0, "page size (DEFAULT_PAGE_SIZE when unset)")
}

func sortKeyList() string {
	keys := make([]string, len(discovery.SortKeys))
	for i, k := range discovery.SortKeys {
		keys[i] = string(k)
	}
	return strings.Join(keys, ", ")
}

var searchOpts searchFlags

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one discovery query and print the page",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		a := bootstrap(cmd.Context(), configPath)
		defer a.Close()

		page := a.svc.Search(cmd.Context(), searchOpts.params())
		if searchOpts.asJSON {
			out, err := json.MarshalIndent(page, "", "  ")
			if err != nil {
				cmdLog().Fatalw("Failed to encode results", zap.Error(err))
			}
			fmt.Println(string(out))
			return
		}
		fmt.Print(renderResults(page))
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	addSearchFlags(searchCmd, &searchOpts)
	searchCmd.Flags().BoolVar(&searchOpts.asJSON, "json", false, "print the page as JSON")
}

func renderHeader() string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Padding(0, 1)

	return headerStyle.Render(fmt.Sprintf("%-40s %-8s %-12s %-7s %s", "Project", "Class", "Downloads", "Rating", "Author"))
}

func renderRow(p discovery.Project) string {
	return fmt.Sprintf("%-40s %s %12d %-7s %s",
		truncate(p.Title, 38),
		ui.Classification(p.Classification, 8),
		p.DownloadCount,
		ui.Rating(p.Rating),
		truncate(p.Author, 24),
	)
}

// totalPages is the number of pages of size needed for total results.
func totalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

func renderResults(page discovery.ResultPage) string {
	if len(page.Items) == 0 {
		return fmt.Sprintf("No projects found (%d matching).\n", page.TotalMatching)
	}
	var b strings.Builder
	b.WriteString(renderHeader())
	b.WriteString("\n")
	for _, p := range page.Items {
		b.WriteString(" " + renderRow(p) + "\n")
	}
	fmt.Fprintf(&b, "\nPage %d of %d, %d matching\n", page.Page+1, totalPages(page.TotalMatching, page.Size), page.TotalMatching)
	return b.String()
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen-3] + "..."
	}
	return s
}
