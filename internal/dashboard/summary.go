package dashboard

import (
	"fmt"
	"time"

	"potholytics-service/internal/domain/pothole"
)

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Marker struct {
	Record   int    `json:"record"`
	Position LatLng `json:"position"`
	Image    string `json:"image"`
}

type MapView struct {
	Center  LatLng   `json:"center"`
	Zoom    int      `json:"zoom"`
	Markers []Marker `json:"markers"`
}

type Dataset struct {
	Label string `json:"label"`
	Data  []int  `json:"data"`
}

type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type RecentDetection struct {
	Number     int        `json:"number"`
	City       string     `json:"city"`
	State      string     `json:"state"`
	Address    string     `json:"address"`
	Date       string     `json:"date"`
	Time       string     `json:"time"`
	DetectedAt *time.Time `json:"detected_at,omitempty"`
	Image      string     `json:"image"`
}

type Summary struct {
	Total       int                         `json:"total"`
	Recent      []RecentDetection           `json:"recent"`
	ByState     ChartData                   `json:"by_state"`
	ByCity      ChartData                   `json:"by_city"`
	LatestDate  string                      `json:"latest_date"`
	LatestTime  string                      `json:"latest_time"`
	Map         MapView                     `json:"map"`
	Records     []pothole.HistoricalPothole `json:"records"`
	GeneratedAt time.Time                   `json:"generated_at"`
}

// Overlay is what the map shows when a marker is clicked.
type Overlay struct {
	Marker  int    `json:"marker"`
	Image   string `json:"image"`
	Address string `json:"address"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}

func (s *Summary) MarkerOverlay(index int) (*Overlay, error) {
	if index < 0 || index >= len(s.Map.Markers) {
		return nil, fmt.Errorf("%w: marker %d", pothole.ErrNotFound, index)
	}
	marker := s.Map.Markers[index]
	rec := s.Records[marker.Record]
	return &Overlay{
		Marker:  index,
		Image:   rec.Image,
		Address: rec.Info.Address,
		City:    rec.Info.City,
		State:   rec.Info.State,
		Date:    rec.Info.Date,
		Time:    rec.Info.Time,
	}, nil
}
