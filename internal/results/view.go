package results

import "potholytics-service/internal/domain/pothole"

type Row struct {
	Index           int                `json:"index"`
	Number          int                `json:"number"`
	Image           string             `json:"image"`
	DetectionsCount int                `json:"detections_count"`
	Info            *pothole.FrameInfo `json:"info,omitempty"`
	Selected        bool               `json:"selected"`
}

type Detail struct {
	Index       int                `json:"index"`
	Number      int                `json:"number"`
	Total       int                `json:"total"`
	Image       string             `json:"image"`
	Info        *pothole.FrameInfo `json:"info,omitempty"`
	HasPrevious bool               `json:"has_previous"`
	HasNext     bool               `json:"has_next"`
}

type View struct {
	State           State   `json:"state"`
	PanelOpen       bool    `json:"panel_open"`
	Rows            []Row   `json:"rows"`
	SelectedRows    []int   `json:"selected_rows"`
	TotalDetections int     `json:"total_detections"`
	Detail          *Detail `json:"detail,omitempty"`
}

// Snapshot renders the panel for the client. Row numbers are 1-based.
func (p *Panel) Snapshot() View {
	view := View{
		State:        p.State(),
		PanelOpen:    p.panelOpen,
		Rows:         []Row{},
		SelectedRows: p.SelectedRows(),
	}
	if p.result == nil {
		return view
	}

	view.TotalDetections = p.result.TotalDetections()
	for i, frame := range p.result.Frames {
		_, selected := p.selectedRows[i]
		view.Rows = append(view.Rows, Row{
			Index:           i,
			Number:          i + 1,
			Image:           frame.DataURI(),
			DetectionsCount: frame.DetectionsCount,
			Info:            frame.Info,
			Selected:        selected,
		})
	}

	if idx, ok := p.SelectedIndex(); ok {
		frame := p.result.Frames[idx]
		view.Detail = &Detail{
			Index:       idx,
			Number:      idx + 1,
			Total:       p.result.Len(),
			Image:       frame.DataURI(),
			Info:        frame.Info,
			HasPrevious: idx > 0,
			HasNext:     idx < p.result.Len()-1,
		}
	}
	return view
}
