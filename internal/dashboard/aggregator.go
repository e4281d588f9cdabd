package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"potholytics-service/internal/domain/pothole"
	"potholytics-service/internal/utils"
)

// Feed supplies the historical pothole records.
type Feed interface {
	FetchHistory(ctx context.Context) ([]pothole.HistoricalPothole, error)
}

type Geocoder interface {
	Locate(ctx context.Context, address string) (pothole.Locality, error)
}

type Options struct {
	RecentLimit int
	Center      LatLng
	Zoom        int
}

type Aggregator struct {
	feed     Feed
	geocoder Geocoder
	opts     Options
	log      zerolog.Logger
}

func NewAggregator(feed Feed, geocoder Geocoder, opts Options, log zerolog.Logger) *Aggregator {
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 5
	}
	return &Aggregator{
		feed:     feed,
		geocoder: geocoder,
		opts:     opts,
		log:      log,
	}
}

type resolvedRecord struct {
	pothole.HistoricalPothole
	resolved   bool
	detectedAt time.Time
	hasTime    bool
}

// Build fetches the feed and derives every dashboard view from it. Geocoding
// runs one address at a time in feed order; repeated addresses within a
// single pass are looked up once.
func (a *Aggregator) Build(ctx context.Context) (*Summary, error) {
	records, err := a.feed.FetchHistory(ctx)
	if err != nil {
		return nil, err
	}

	resolved, err := a.resolve(ctx, records)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Total:       len(resolved),
		Recent:      recentDetections(resolved, a.opts.RecentLimit),
		ByState:     countBy(resolved, "Potholes by state", func(r resolvedRecord) string { return r.Info.State }),
		ByCity:      countBy(resolved, "Potholes by city", func(r resolvedRecord) string { return r.Info.City }),
		Map:         mapView(resolved, a.opts.Center, a.opts.Zoom),
		Records:     make([]pothole.HistoricalPothole, 0, len(resolved)),
		GeneratedAt: time.Now().UTC(),
	}
	for _, r := range resolved {
		summary.Records = append(summary.Records, r.HistoricalPothole)
	}
	summary.LatestDate, summary.LatestTime = latest(resolved)

	a.log.Info().
		Int("records", summary.Total).
		Int("recent", len(summary.Recent)).
		Int("markers", len(summary.Map.Markers)).
		Msg("dashboard built")

	return summary, nil
}

func (a *Aggregator) resolve(ctx context.Context, records []pothole.HistoricalPothole) ([]resolvedRecord, error) {
	type lookup struct {
		loc pothole.Locality
		ok  bool
	}
	seen := make(map[string]lookup)
	out := make([]resolvedRecord, 0, len(records))

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("dashboard build interrupted: %w", err)
		}

		r := resolvedRecord{HistoricalPothole: rec}
		r.detectedAt, r.hasTime = pothole.ParseDetectionTime(rec.Info.Date, rec.Info.Time)

		key := utils.NormalizeAddress(rec.Info.Address)
		if key != "" && a.geocoder != nil {
			res, cached := seen[key]
			if !cached {
				loc, err := a.geocoder.Locate(ctx, rec.Info.Address)
				res = lookup{loc: loc, ok: err == nil && loc.Resolved()}
				if !res.ok {
					a.log.Debug().Err(err).Str("address", rec.Info.Address).Msg("address not resolved")
				}
				seen[key] = res
			}
			if res.ok {
				r.Info.City = res.loc.City
				r.Info.State = res.loc.State
				r.resolved = true
			}
		}

		out = append(out, r)
	}
	return out, nil
}

func recentDetections(records []resolvedRecord, limit int) []RecentDetection {
	seen := make(map[string]struct{})
	unique := make([]resolvedRecord, 0)
	for _, r := range records {
		if !r.resolved {
			continue
		}
		key := utils.LocalityKey(r.Info.City, r.Info.State)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, r)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		a, b := unique[i], unique[j]
		if a.hasTime != b.hasTime {
			return a.hasTime
		}
		return a.detectedAt.After(b.detectedAt)
	})

	if len(unique) > limit {
		unique = unique[:limit]
	}

	recent := make([]RecentDetection, 0, len(unique))
	for i, r := range unique {
		item := RecentDetection{
			Number:  i + 1,
			City:    r.Info.City,
			State:   r.Info.State,
			Address: r.Info.Address,
			Date:    r.Info.Date,
			Time:    r.Info.Time,
			Image:   r.Image,
		}
		if r.hasTime {
			at := r.detectedAt
			item.DetectedAt = &at
		}
		recent = append(recent, item)
	}
	return recent
}

func countBy(records []resolvedRecord, label string, key func(resolvedRecord) string) ChartData {
	counts := make(map[string]int)
	labels := make([]string, 0)
	for _, r := range records {
		k := key(r)
		if k == "" {
			continue
		}
		if _, ok := counts[k]; !ok {
			labels = append(labels, k)
		}
		counts[k]++
	}

	data := make([]int, 0, len(labels))
	for _, l := range labels {
		data = append(data, counts[l])
	}
	return ChartData{
		Labels:   labels,
		Datasets: []Dataset{{Label: label, Data: data}},
	}
}

func latest(records []resolvedRecord) (string, string) {
	var (
		best  time.Time
		found bool
		date  string
		clock string
	)
	for _, r := range records {
		if !r.hasTime {
			continue
		}
		if !found || r.detectedAt.After(best) {
			best, found = r.detectedAt, true
			date, clock = r.Info.Date, r.Info.Time
		}
	}
	return date, clock
}

func mapView(records []resolvedRecord, center LatLng, zoom int) MapView {
	view := MapView{Center: center, Zoom: zoom, Markers: []Marker{}}
	for i, r := range records {
		if r.Info.Latitude == nil || r.Info.Longitude == nil {
			continue
		}
		view.Markers = append(view.Markers, Marker{
			Record:   i,
			Position: LatLng{Lat: *r.Info.Latitude, Lng: *r.Info.Longitude},
			Image:    r.Image,
		})
	}
	return view
}
