package results

import (
	"fmt"
	"sort"

	"potholytics-service/internal/domain/pothole"
)

type State string

const (
	StateEmpty        State = "empty"
	StateLoaded       State = "loaded"
	StateRowsSelected State = "rows_selected"
	StateDetailOpen   State = "detail_open"
)

// Panel holds the last detection result and the selection state layered on
// top of it. It is not safe for concurrent use; callers serialize access.
type Panel struct {
	result       *pothole.DetectionResult
	selectedRows map[int]struct{}
	detailIndex  int
	detailOpen   bool
	panelOpen    bool
}

func NewPanel() *Panel {
	return &Panel{selectedRows: make(map[int]struct{})}
}

func (p *Panel) State() State {
	switch {
	case p.result == nil:
		return StateEmpty
	case p.detailOpen:
		return StateDetailOpen
	case len(p.selectedRows) > 0:
		return StateRowsSelected
	default:
		return StateLoaded
	}
}

func (p *Panel) Result() *pothole.DetectionResult {
	return p.result
}

// Load replaces the result wholesale, drops any selection and opens the panel.
func (p *Panel) Load(result *pothole.DetectionResult) {
	if result == nil {
		result = &pothole.DetectionResult{Frames: []pothole.DetectionFrame{}}
	}
	p.result = result.Clone()
	p.resetSelection()
	p.panelOpen = true
}

func (p *Panel) OpenPanel() {
	p.panelOpen = true
}

// ClosePanel hides the panel. The result survives; selection does not.
func (p *Panel) ClosePanel() {
	p.panelOpen = false
	p.resetSelection()
}

// ToggleRow flips the selection of one row.
func (p *Panel) ToggleRow(index int) error {
	if err := p.requireList(); err != nil {
		return err
	}
	if err := p.checkIndex(index); err != nil {
		return err
	}

	if _, ok := p.selectedRows[index]; ok {
		delete(p.selectedRows, index)
	} else {
		p.selectedRows[index] = struct{}{}
	}
	return nil
}

// DeleteSelected drops the selected frames from the local result and returns
// how many were removed. Indices are recomputed against the shrunk sequence.
func (p *Panel) DeleteSelected() (int, error) {
	if err := p.requireList(); err != nil {
		return 0, err
	}
	if len(p.selectedRows) == 0 {
		return 0, nil
	}

	kept := make([]pothole.DetectionFrame, 0, len(p.result.Frames)-len(p.selectedRows))
	for i, frame := range p.result.Frames {
		if _, drop := p.selectedRows[i]; drop {
			continue
		}
		kept = append(kept, frame)
	}

	removed := len(p.result.Frames) - len(kept)
	p.result.Frames = kept
	p.selectedRows = make(map[int]struct{})
	return removed, nil
}

// OpenDetail shows frame index fullscreen.
func (p *Panel) OpenDetail(index int) error {
	if err := p.requireList(); err != nil {
		return err
	}
	if err := p.checkIndex(index); err != nil {
		return err
	}
	p.detailIndex = index
	p.detailOpen = true
	return nil
}

// Next moves the detail view forward; it is a no-op on the last frame.
func (p *Panel) Next() error {
	if !p.detailOpen {
		return fmt.Errorf("%w: detail view is closed", pothole.ErrInvalidTransition)
	}
	if p.detailIndex < p.result.Len()-1 {
		p.detailIndex++
	}
	return nil
}

// Previous moves the detail view back; it is a no-op on the first frame.
func (p *Panel) Previous() error {
	if !p.detailOpen {
		return fmt.Errorf("%w: detail view is closed", pothole.ErrInvalidTransition)
	}
	if p.detailIndex > 0 {
		p.detailIndex--
	}
	return nil
}

func (p *Panel) CloseDetail() error {
	if !p.detailOpen {
		return fmt.Errorf("%w: detail view is closed", pothole.ErrInvalidTransition)
	}
	p.detailOpen = false
	p.detailIndex = 0
	return nil
}

// SelectedIndex reports the frame shown in the detail view.
func (p *Panel) SelectedIndex() (int, bool) {
	if !p.detailOpen {
		return 0, false
	}
	return p.detailIndex, true
}

func (p *Panel) SelectedRows() []int {
	rows := make([]int, 0, len(p.selectedRows))
	for i := range p.selectedRows {
		rows = append(rows, i)
	}
	sort.Ints(rows)
	return rows
}

func (p *Panel) resetSelection() {
	p.selectedRows = make(map[int]struct{})
	p.detailOpen = false
	p.detailIndex = 0
}

func (p *Panel) requireList() error {
	switch p.State() {
	case StateEmpty:
		return fmt.Errorf("%w: no detection result loaded", pothole.ErrInvalidTransition)
	case StateDetailOpen:
		return fmt.Errorf("%w: close the detail view first", pothole.ErrInvalidTransition)
	}
	return nil
}

func (p *Panel) checkIndex(index int) error {
	if index < 0 || index >= p.result.Len() {
		return fmt.Errorf("%w: row %d out of range [0,%d)", pothole.ErrValidation, index, p.result.Len())
	}
	return nil
}
