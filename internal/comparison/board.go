package comparison

import (
	"potholytics-service/internal/domain/pothole"
	"potholytics-service/internal/results"
)

// Board is the dual result store behind the side-by-side panel.
type Board struct {
	modelA    string
	modelB    string
	slots     map[string]*pothole.DetectionResult
	panelOpen bool
}

func NewBoard() *Board {
	return &Board{slots: make(map[string]*pothole.DetectionResult)}
}

// Apply replaces both slots with what an outcome produced and opens the panel.
// A failed model leaves its slot unset.
func (b *Board) Apply(out *Outcome) {
	b.slots = make(map[string]*pothole.DetectionResult)
	b.modelA = out.ModelA
	b.modelB = out.ModelB

	if out.ResultA != nil {
		b.slots[out.ModelA] = out.ResultA.Clone()
	}
	if out.ResultB != nil {
		b.slots[out.ModelB] = out.ResultB.Clone()
	}
	b.panelOpen = true
}

func (b *Board) Result(modelID string) *pothole.DetectionResult {
	return b.slots[modelID]
}

func (b *Board) ClosePanel() {
	b.panelOpen = false
}

// TogglePanel flips visibility. It is ignored while a detection runs.
func (b *Board) TogglePanel(processing bool) {
	if processing {
		return
	}
	b.panelOpen = !b.panelOpen
}

type Column struct {
	Model  string        `json:"model"`
	Loaded bool          `json:"loaded"`
	Rows   []results.Row `json:"rows"`
}

type View struct {
	PanelOpen bool   `json:"panel_open"`
	Left      Column `json:"left"`
	Right     Column `json:"right"`
}

func (b *Board) Snapshot() View {
	return View{
		PanelOpen: b.panelOpen,
		Left:      b.column(b.modelA),
		Right:     b.column(b.modelB),
	}
}

func (b *Board) column(modelID string) Column {
	col := Column{Model: modelID, Rows: []results.Row{}}
	res := b.slots[modelID]
	if res == nil {
		return col
	}

	col.Loaded = true
	for i, frame := range res.Frames {
		col.Rows = append(col.Rows, results.Row{
			Index:           i,
			Number:          i + 1,
			Image:           frame.DataURI(),
			DetectionsCount: frame.DetectionsCount,
			Info:            frame.Info,
		})
	}
	return col
}
