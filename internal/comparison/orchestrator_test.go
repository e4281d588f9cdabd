package comparison

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"potholytics-service/internal/domain/pothole"
	"potholytics-service/internal/upload"
)

type recordingDetector struct {
	calls    []string
	inFlight int
	overlap  bool
	fail     map[string]error
}

func (d *recordingDetector) Detect(ctx context.Context, file upload.MediaFile, modelID string) (*pothole.DetectionResult, error) {
	d.inFlight++
	defer func() { d.inFlight-- }()
	if d.inFlight > 1 {
		d.overlap = true
	}

	d.calls = append(d.calls, modelID)
	if err := d.fail[modelID]; err != nil {
		return nil, err
	}
	return &pothole.DetectionResult{Frames: []pothole.DetectionFrame{{Image: modelID, DetectionsCount: len(modelID)}}}, nil
}

var clip = upload.MediaFile{Name: "road.mp4", ContentType: "video/mp4", Data: []byte("v")}

func TestCompare_SameModelNeverDispatches(t *testing.T) {
	det := &recordingDetector{}
	o := NewOrchestrator(zerolog.Nop())

	for _, pair := range [][2]string{{"yolov11n", "yolov11n"}, {"", ""}, {"detr", ""}, {"", "detr"}, {" detr", "detr "}} {
		_, err := o.Compare(context.Background(), det, pair[0], pair[1], clip)
		require.True(t, errors.Is(err, pothole.ErrValidation), fmt.Sprint(pair))
	}
	require.Empty(t, det.calls)
}

func TestCompare_RequiresFile(t *testing.T) {
	det := &recordingDetector{}
	_, err := NewOrchestrator(zerolog.Nop()).Compare(context.Background(), det, "a", "b", upload.MediaFile{})
	require.True(t, errors.Is(err, pothole.ErrValidation))
	require.Empty(t, det.calls)
}

func TestCompare_SequentialInOrder(t *testing.T) {
	det := &recordingDetector{}
	out, err := NewOrchestrator(zerolog.Nop()).Compare(context.Background(), det, "yolov11n", "rt-detr", clip)
	require.NoError(t, err)
	require.Equal(t, []string{"yolov11n", "rt-detr"}, det.calls)
	require.False(t, det.overlap)
	require.NoError(t, out.Err())
	require.Equal(t, "yolov11n", out.ResultA.Frames[0].Image)
	require.Equal(t, "rt-detr", out.ResultB.Frames[0].Image)
}

func TestCompare_FailureKeepsOtherSlot(t *testing.T) {
	det := &recordingDetector{fail: map[string]error{"yolov11n": fmt.Errorf("%w: status 500", pothole.ErrDetectionFailed)}}
	out, err := NewOrchestrator(zerolog.Nop()).Compare(context.Background(), det, "yolov11n", "detr", clip)
	require.NoError(t, err)
	require.Equal(t, []string{"yolov11n", "detr"}, det.calls)
	require.Nil(t, out.ResultA)
	require.NotNil(t, out.ResultB)
	require.True(t, errors.Is(out.Err(), pothole.ErrDetectionFailed))

	board := NewBoard()
	board.Apply(out)
	view := board.Snapshot()
	require.True(t, view.PanelOpen)
	require.False(t, view.Left.Loaded)
	require.Empty(t, view.Left.Rows)
	require.True(t, view.Right.Loaded)
	require.Equal(t, 1, view.Right.Rows[0].Number)
}

func TestBoard_PanelToggle(t *testing.T) {
	board := NewBoard()
	board.Apply(&Outcome{ModelA: "a", ModelB: "b", ResultA: &pothole.DetectionResult{}, ResultB: &pothole.DetectionResult{}})
	require.True(t, board.Snapshot().PanelOpen)

	board.TogglePanel(true)
	require.True(t, board.Snapshot().PanelOpen)

	board.TogglePanel(false)
	require.False(t, board.Snapshot().PanelOpen)

	board.TogglePanel(false)
	board.ClosePanel()
	require.False(t, board.Snapshot().PanelOpen)
	require.NotNil(t, board.Result("a"))
}

func TestBoard_NewComparisonReplacesSlots(t *testing.T) {
	board := NewBoard()
	board.Apply(&Outcome{ModelA: "a", ModelB: "b", ResultA: &pothole.DetectionResult{}, ResultB: &pothole.DetectionResult{}})
	board.Apply(&Outcome{ModelA: "a", ModelB: "c", ResultB: &pothole.DetectionResult{}, ErrA: pothole.ErrDetectionFailed})

	require.Nil(t, board.Result("a"))
	require.Nil(t, board.Result("b"))
	require.NotNil(t, board.Result("c"))
}
