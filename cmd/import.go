package cmd

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"catalog-discovery/discovery"
	"catalog-discovery/modrinth"
)

const (
	maxEventsPerProject = 40
	eventHistory        = 14 * 24 * time.Hour
)

// importOptions controls one import run.
type importOptions struct {
	query     string
	facets    string
	limit     int
	projects  []string
	likeUser  string
	seed      uint64
	events    bool
	notifyURL string
}

type importStats struct {
	projects int
	events   int
	likes    int
}

var importOpts importOptions

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Seed the catalog from Modrinth's public search",
	Long: `Imports projects from Modrinth's /search endpoint into the configured
store, or only the projects named with --project. Modrinth publishes no
ratings or per-day downloads, so ratings, review counts and recent download
events are synthesized from a seeded generator. --like records every imported
project as a favorite of the given user.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		a := bootstrap(ctx, configPath)
		defer a.Close()

		client, err := modrinth.NewClient(a.cfg)
		if err != nil {
			cmdLog().Fatalw("Failed to create Modrinth client", zap.Error(err))
		}

		stats, err := runImport(ctx, client, a.backend.writer, importOpts, time.Now().UTC())
		if err != nil {
			cmdLog().Fatalw("Import failed", zap.Error(err))
		}
		a.svc.Invalidate()
		cmdLog().Infow("Import finished",
			zap.Int("projects", stats.projects),
			zap.Int("events", stats.events),
			zap.Int("likes", stats.likes),
		)

		if importOpts.notifyURL != "" {
			if err := notifyInvalidate(ctx, http.DefaultClient, importOpts.notifyURL); err != nil {
				cmdLog().Warnw("Failed to invalidate server cache", zap.String("url", importOpts.notifyURL), zap.Error(err))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	fl := importCmd.Flags()
	fl.StringVar(&importOpts.query, "query", "", "Modrinth search query")
	fl.StringVar(&importOpts.facets, "facets", "", `raw facets filter, e.g. [["project_type:mod"]]`)
	fl.IntVar(&importOpts.limit, "limit", 500, "maximum number of projects to import")
	fl.StringSliceVar(&importOpts.projects, "project", nil, "import these project slugs or ids instead of searching")
	fl.StringVar(&importOpts.likeUser, "like", "", "user id that likes every imported project")
	fl.Uint64Var(&importOpts.seed, "seed", 1, "seed for synthesized ratings and events")
	fl.BoolVar(&importOpts.events, "events", true, "synthesize download events for the trending window")
	fl.StringVar(&importOpts.notifyURL, "notify", "", "base URL of a running server whose cache to invalidate")
}

// runImport writes Modrinth projects to w: the named projects when
// opts.projects is set, otherwise pages of search results up to opts.limit.
func runImport(ctx context.Context, client *modrinth.Client, w catalogWriter, opts importOptions, now time.Time) (importStats, error) {
	imp := &importer{
		w:    w,
		opts: opts,
		rng:  rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15)),
		now:  now,
	}
	var err error
	if len(opts.projects) > 0 {
		err = imp.importNamed(ctx, client)
	} else {
		err = imp.importSearch(ctx, client)
	}
	return imp.stats, err
}

type importer struct {
	w     catalogWriter
	opts  importOptions
	rng   *rand.Rand
	now   time.Time
	stats importStats
}

func (imp *importer) importSearch(ctx context.Context, client *modrinth.Client) error {
	for offset := 0; offset < imp.opts.limit; {
		res, err := client.SearchProjects(ctx, modrinth.SearchOptions{
			Query:  imp.opts.query,
			Index:  "downloads",
			Facets: imp.opts.facets,
			Offset: offset,
			Limit:  imp.opts.limit - offset,
		})
		if err != nil {
			return err
		}
		if len(res.Hits) == 0 {
			break
		}

		projects := make([]discovery.Project, 0, len(res.Hits))
		for _, hit := range res.Hits {
			projects = append(projects, hit.ToProject())
		}
		if err := imp.write(ctx, projects); err != nil {
			return err
		}
		cmdLog().Infow("Imported page", zap.Int("offset", offset), zap.Int("count", len(projects)), zap.Int("total_hits", res.TotalHits))

		offset += len(res.Hits)
		if offset >= res.TotalHits {
			break
		}
	}
	return nil
}

func (imp *importer) importNamed(ctx context.Context, client *modrinth.Client) error {
	projects := make([]discovery.Project, 0, len(imp.opts.projects))
	for _, slug := range imp.opts.projects {
		p, err := client.GetProject(ctx, slug)
		if err != nil {
			return err
		}
		owner, err := client.ProjectOwner(ctx, slug)
		if err != nil {
			return err
		}
		projects = append(projects, p.ToProject(owner))
	}
	return imp.write(ctx, projects)
}

// write stores one batch with its synthesized reviews, events and likes.
func (imp *importer) write(ctx context.Context, batch []discovery.Project) error {
	for i := range batch {
		batch[i] = synthesizeReviews(batch[i], imp.rng)
	}
	if err := imp.w.UpsertProjects(ctx, batch); err != nil {
		return fmt.Errorf("failed to store projects: %w", err)
	}
	imp.stats.projects += len(batch)

	for _, p := range batch {
		if imp.opts.events {
			at := synthesizeEvents(p, imp.rng, imp.now)
			if err := imp.w.RecordDownloads(ctx, p.ID, at...); err != nil {
				return fmt.Errorf("failed to record downloads for %s: %w", p.ID, err)
			}
			imp.stats.events += len(at)
		}
		if imp.opts.likeUser != "" {
			if err := imp.w.AddLike(ctx, imp.opts.likeUser, p.ID); err != nil {
				return fmt.Errorf("failed to like %s: %w", p.ID, err)
			}
			imp.stats.likes++
		}
	}
	return nil
}

// synthesizeReviews gives followed projects a rating between 3.0 and 5.0
// and a review count that grows with follows. Unfollowed projects stay unrated.
func synthesizeReviews(p discovery.Project, rng *rand.Rand) discovery.Project {
	if p.FavoriteCount <= 0 {
		return p
	}
	p.Rating = math.Round((3.0+2.0*rng.Float64())*10) / 10
	p.ReviewCount = int(min(p.FavoriteCount/50, 200)) + rng.IntN(5)
	return p
}

// synthesizeEvents spreads download events over the last two weeks, one
// per 10k lifetime downloads up to maxEventsPerProject.
func synthesizeEvents(p discovery.Project, rng *rand.Rand, now time.Time) []time.Time {
	n := int(min(p.DownloadCount/10_000, maxEventsPerProject))
	at := make([]time.Time, 0, n)
	for range n {
		at = append(at, now.Add(-time.Duration(rng.Int64N(int64(eventHistory)))))
	}
	return at
}

// notifyInvalidate asks a running server to drop its cached pages.
func notifyInvalidate(ctx context.Context, client *http.Client, baseURL string) error {
	endpoint := strings.TrimRight(baseURL, "/") + "/api/v1/projects/cache/invalidate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}
