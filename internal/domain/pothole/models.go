package pothole

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const jpegDataURIPrefix = "data:image/jpeg;base64,"

type FrameInfo struct {
	Date      string   `json:"date"`
	Time      string   `json:"time"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
}

type DetectionFrame struct {
	Image           string     `json:"image"`
	DetectionsCount int        `json:"detections_count"`
	Info            *FrameInfo `json:"info,omitempty"`
}

// DataURI returns the frame image in the form a browser can render directly.
func (f DetectionFrame) DataURI() string {
	if f.Image == "" || strings.HasPrefix(f.Image, "data:") {
		return f.Image
	}
	return jpegDataURIPrefix + f.Image
}

// DetectionResult is the envelope returned by the detection backend. A still
// image may come back as a single top-level frame; video always comes back as
// an ordered frame list. Both shapes decode into Frames.
type DetectionResult struct {
	Frames []DetectionFrame `json:"frames"`
}

func (r *DetectionResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Frames *[]DetectionFrame `json:"frames"`
		Error  string            `json:"error"`
		DetectionFrame
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Error != "" {
		return fmt.Errorf("%w: %s", ErrDetectionFailed, raw.Error)
	}

	switch {
	case raw.Frames != nil:
		r.Frames = *raw.Frames
	case raw.Image != "":
		r.Frames = []DetectionFrame{raw.DetectionFrame}
	default:
		r.Frames = []DetectionFrame{}
	}
	return nil
}

func (r *DetectionResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Frames)
}

func (r *DetectionResult) TotalDetections() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, f := range r.Frames {
		total += f.DetectionsCount
	}
	return total
}

// Clone copies the frame slice so local row deletion never touches a result
// shared with another holder.
func (r *DetectionResult) Clone() *DetectionResult {
	if r == nil {
		return nil
	}
	frames := make([]DetectionFrame, len(r.Frames))
	copy(frames, r.Frames)
	return &DetectionResult{Frames: frames}
}

type HistoricalInfo struct {
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Date      string   `json:"date"`
	Time      string   `json:"time"`
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
}

type HistoricalPothole struct {
	ID    string         `json:"_id,omitempty"`
	Info  HistoricalInfo `json:"info"`
	Image string         `json:"image"`
}

// Locality is what the geocoder resolves an address to.
type Locality struct {
	City  string `json:"city"`
	State string `json:"state"`
}

func (l Locality) Resolved() bool {
	return l.City != "" && l.State != ""
}

var detectionTimeLayouts = []string{
	"02-01-2006 15:04:05",
	"02-01-2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDetectionTime parses the date/time pair stamped on a frame. Dates are
// day-month-year as burned into the dashcam overlay; ISO dates are accepted too.
func ParseDetectionTime(date, clock string) (time.Time, bool) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" {
		return time.Time{}, false
	}

	value := date
	if clock != "" {
		value = date + " " + clock
	}
	for _, layout := range detectionTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	if clock != "" {
		return ParseDetectionTime(date, "")
	}
	return time.Time{}, false
}
