package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"potholytics-service/internal/domain/pothole"
)

type staticFeed struct {
	records []pothole.HistoricalPothole
	err     error
}

func (f staticFeed) FetchHistory(ctx context.Context) ([]pothole.HistoricalPothole, error) {
	return f.records, f.err
}

type mapGeocoder struct {
	localities map[string]pothole.Locality
	calls      []string
}

func (g *mapGeocoder) Locate(ctx context.Context, address string) (pothole.Locality, error) {
	g.calls = append(g.calls, address)
	loc, ok := g.localities[address]
	if !ok {
		return pothole.Locality{}, pothole.ErrGeocodingFailed
	}
	return loc, nil
}

func ptr(f float64) *float64 { return &f }

func record(address, date, clock, image string) pothole.HistoricalPothole {
	return pothole.HistoricalPothole{
		Info:  pothole.HistoricalInfo{Address: address, Date: date, Time: clock},
		Image: image,
	}
}

var (
	kl = pothole.Locality{City: "Kuala Lumpur", State: "KL"}
	jb = pothole.Locality{City: "Johor Bahru", State: "JB"}
)

func TestBuild_RecentDedupAndOrder(t *testing.T) {
	feed := staticFeed{records: []pothole.HistoricalPothole{
		record("Jalan Ampang", "2024-01-02", "", "kl-1"),
		record("Jalan Bukit Bintang", "2024-01-01", "", "kl-2"),
		record("Jalan Wong Ah Fook", "2024-01-03", "", "jb-1"),
	}}
	geo := &mapGeocoder{localities: map[string]pothole.Locality{
		"Jalan Ampang":        kl,
		"Jalan Bukit Bintang": kl,
		"Jalan Wong Ah Fook":  jb,
	}}

	summary, err := NewAggregator(feed, geo, Options{}, zerolog.Nop()).Build(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Recent, 2)
	require.Equal(t, "jb-1", summary.Recent[0].Image)
	require.Equal(t, "Johor Bahru", summary.Recent[0].City)
	require.Equal(t, 1, summary.Recent[0].Number)
	require.Equal(t, "kl-1", summary.Recent[1].Image)
	require.Equal(t, "2024-01-02", summary.Recent[1].Date)
}

func TestBuild_RecentCappedAtLimit(t *testing.T) {
	var records []pothole.HistoricalPothole
	localities := map[string]pothole.Locality{}
	for i, city := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		addr := "street " + city
		records = append(records, record(addr, "0"+string(rune('1'+i))+"-01-2024", "10:00:00", city))
		localities[addr] = pothole.Locality{City: city, State: "S"}
	}

	summary, err := NewAggregator(staticFeed{records: records}, &mapGeocoder{localities: localities}, Options{RecentLimit: 5}, zerolog.Nop()).Build(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Recent, 5)
	require.Equal(t, "G", summary.Recent[0].Image)
	require.Equal(t, "C", summary.Recent[4].Image)
}

func TestBuild_GeocodingFailureDegrades(t *testing.T) {
	feed := staticFeed{records: []pothole.HistoricalPothole{
		record("Unknown Road", "03-01-2024", "08:00:00", "lost"),
		{Info: pothole.HistoricalInfo{Address: "Also Unknown", Date: "04-01-2024", State: "Selangor", City: "Shah Alam"}, Image: "pre"},
		record("Jalan Ampang", "01-01-2024", "08:00:00", "kl"),
	}}
	geo := &mapGeocoder{localities: map[string]pothole.Locality{"Jalan Ampang": kl}}

	summary, err := NewAggregator(feed, geo, Options{}, zerolog.Nop()).Build(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Recent, 1)
	require.Equal(t, "kl", summary.Recent[0].Image)

	require.Equal(t, []string{"Selangor", "KL"}, summary.ByState.Labels)
	require.Equal(t, []int{1, 1}, summary.ByState.Datasets[0].Data)
	require.Equal(t, 3, summary.Total)
}

func TestBuild_CountsAndLatest(t *testing.T) {
	feed := staticFeed{records: []pothole.HistoricalPothole{
		record("a1", "10-01-2024", "09:00:00", "1"),
		record("a2", "10-01-2024", "17:30:00", "2"),
		record("b1", "09-01-2024", "23:59:59", "3"),
		record("a1", "01-12-2023", "12:00:00", "4"),
		record("", "", "", "5"),
	}}
	geo := &mapGeocoder{localities: map[string]pothole.Locality{
		"a1": {City: "Petaling Jaya", State: "Selangor"},
		"a2": {City: "Shah Alam", State: "Selangor"},
		"b1": kl,
	}}

	summary, err := NewAggregator(feed, geo, Options{}, zerolog.Nop()).Build(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"Selangor", "KL"}, summary.ByState.Labels)
	require.Equal(t, []int{3, 1}, summary.ByState.Datasets[0].Data)
	require.Equal(t, []string{"Petaling Jaya", "Shah Alam", "Kuala Lumpur"}, summary.ByCity.Labels)
	require.Equal(t, []int{2, 1, 1}, summary.ByCity.Datasets[0].Data)

	require.Equal(t, "10-01-2024", summary.LatestDate)
	require.Equal(t, "17:30:00", summary.LatestTime)

	// a1 repeats and the empty address is skipped.
	require.Equal(t, []string{"a1", "a2", "b1"}, geo.calls)
}

func TestBuild_MarkersAndOverlay(t *testing.T) {
	feed := staticFeed{records: []pothole.HistoricalPothole{
		{Info: pothole.HistoricalInfo{Address: "x", Latitude: ptr(3.1), Longitude: ptr(101.6), Date: "01-01-2024"}, Image: "https://blob/x.jpg"},
		{Info: pothole.HistoricalInfo{Address: "y"}, Image: "https://blob/y.jpg"},
		{Info: pothole.HistoricalInfo{Address: "z", Latitude: ptr(1.49), Longitude: ptr(103.74)}, Image: "https://blob/z.jpg"},
	}}
	opts := Options{Center: LatLng{Lat: 3.139, Lng: 101.6869}, Zoom: 9}

	summary, err := NewAggregator(feed, &mapGeocoder{}, opts, zerolog.Nop()).Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, opts.Center, summary.Map.Center)
	require.Equal(t, 9, summary.Map.Zoom)
	require.Len(t, summary.Map.Markers, 2)
	require.Equal(t, LatLng{Lat: 1.49, Lng: 103.74}, summary.Map.Markers[1].Position)

	overlay, err := summary.MarkerOverlay(1)
	require.NoError(t, err)
	require.Equal(t, "https://blob/z.jpg", overlay.Image)
	require.Equal(t, "z", overlay.Address)

	_, err = summary.MarkerOverlay(2)
	require.True(t, errors.Is(err, pothole.ErrNotFound))
}

func TestBuild_FeedFailure(t *testing.T) {
	_, err := NewAggregator(staticFeed{err: pothole.ErrHistoryUnavailable}, &mapGeocoder{}, Options{}, zerolog.Nop()).Build(context.Background())
	require.True(t, errors.Is(err, pothole.ErrHistoryUnavailable))
}

func TestBuild_EmptyFeed(t *testing.T) {
	summary, err := NewAggregator(staticFeed{}, &mapGeocoder{}, Options{}, zerolog.Nop()).Build(context.Background())
	require.NoError(t, err)
	require.Zero(t, summary.Total)
	require.Empty(t, summary.Recent)
	require.Empty(t, summary.Map.Markers)
	require.Empty(t, summary.LatestDate)
}

func TestBuild_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	feed := staticFeed{records: []pothole.HistoricalPothole{record("a", "", "", "")}}
	_, err := NewAggregator(feed, &mapGeocoder{}, Options{}, zerolog.Nop()).Build(ctx)
	require.True(t, errors.Is(err, context.Canceled))
}
