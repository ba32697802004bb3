package discovery

import (
	"context"
	"fmt"
)

const (
	gemLowerPercentile = 5
	gemUpperPercentile = 90
	gemBandWidening    = 500
	gemMinRating       = HighQualityRating
	gemMinReviews      = 3
)

// Band is the download-count window of the hidden gems view. Bounds are
// exclusive; an unbounded band has no upper limit.
type Band struct {
	MinDownloads int64
	MaxDownloads int64
	Bounded      bool
}

// PercentileRanks returns the ascending positions sampled for the 5th and
// 90th percentile of n projects.
func PercentileRanks(n int64) (p5, p90 int) {
	if n < 0 {
		n = 0
	}
	return int(n * gemLowerPercentile / 100), int(n * gemUpperPercentile / 100)
}

// ComputeBand estimates the 5th and 90th download percentiles of the
// projects matching pred by sampling the project at each rank. Ties are not
// interpolated.
func ComputeBand(ctx context.Context, store Store, pred Predicate) (Band, error) {
	n, err := store.Count(ctx, pred)
	if err != nil {
		return Band{}, fmt.Errorf("failed to count percentile population: %w", err)
	}
	p5, p90 := PercentileRanks(n)

	var band Band
	low, err := store.FindAtRank(ctx, pred, FieldDownloadCount, p5)
	if err != nil {
		return Band{}, fmt.Errorf("failed to sample rank %d: %w", p5, err)
	}
	if low != nil {
		band.MinDownloads = low.DownloadCount
	}

	high, err := store.FindAtRank(ctx, pred, FieldDownloadCount, p90)
	if err != nil {
		return Band{}, fmt.Errorf("failed to sample rank %d: %w", p90, err)
	}
	if high != nil {
		band.MaxDownloads = high.DownloadCount
		band.Bounded = true
		if band.MaxDownloads <= band.MinDownloads {
			band.MaxDownloads = band.MinDownloads + gemBandWidening
		}
	}
	return band, nil
}

// Narrow restricts pred to the band and to well reviewed projects.
func (b Band) Narrow(pred Predicate) Predicate {
	parts := []Predicate{pred, Gt(FieldDownloadCount, b.MinDownloads)}
	if b.Bounded {
		parts = append(parts, Lt(FieldDownloadCount, b.MaxDownloads))
	}
	parts = append(parts,
		Gte(FieldRating, gemMinRating),
		Gte(FieldReviewCount, gemMinReviews),
	)
	return And(parts...)
}
