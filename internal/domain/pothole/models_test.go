package pothole

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDetectionResult_DecodesFrameList(t *testing.T) {
	body := `{"frames":[
		{"image":"AAA","detections_count":2,"info":{"date":"05-03-2024","time":"10:11:12","latitude":3.1,"longitude":101.6,"address":"Jalan Ampang"}},
		{"image":"BBB","detections_count":1,"info":{"date":null,"time":null,"latitude":null,"longitude":null,"address":null}}
	]}`

	var res DetectionResult
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	require.Equal(t, 2, res.Len())
	require.Equal(t, 3, res.TotalDetections())
	require.Equal(t, "Jalan Ampang", res.Frames[0].Info.Address)
	require.NotNil(t, res.Frames[0].Info.Latitude)
	require.Nil(t, res.Frames[1].Info.Latitude)
	require.Empty(t, res.Frames[1].Info.Address)
}

func TestDetectionResult_DecodesSingleFrame(t *testing.T) {
	var res DetectionResult
	require.NoError(t, json.Unmarshal([]byte(`{"image":"AAA","detections_count":4}`), &res))
	require.Equal(t, 1, res.Len())
	require.Equal(t, 4, res.Frames[0].DetectionsCount)
	require.Nil(t, res.Frames[0].Info)
}

func TestDetectionResult_EmptyFramesIsNotNil(t *testing.T) {
	var res DetectionResult
	require.NoError(t, json.Unmarshal([]byte(`{"frames":[]}`), &res))
	require.NotNil(t, res.Frames)
	require.Equal(t, 0, res.Len())
}

func TestDetectionResult_ErrorFieldIsDetectionFailure(t *testing.T) {
	var res DetectionResult
	err := json.Unmarshal([]byte(`{"error":"Detection stopped"}`), &res)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrDetectionFailed))
}

func TestDetectionResult_CloneIsIndependent(t *testing.T) {
	orig := &DetectionResult{Frames: []DetectionFrame{{Image: "a"}, {Image: "b"}}}
	clone := orig.Clone()
	clone.Frames = clone.Frames[:1]
	clone.Frames[0].Image = "z"
	require.Equal(t, 2, orig.Len())
	require.Equal(t, "a", orig.Frames[0].Image)
}

func TestDetectionFrame_DataURI(t *testing.T) {
	require.Equal(t, "data:image/jpeg;base64,AAA", DetectionFrame{Image: "AAA"}.DataURI())
	require.Equal(t, "data:image/png;base64,AAA", DetectionFrame{Image: "data:image/png;base64,AAA"}.DataURI())
	require.Empty(t, DetectionFrame{}.DataURI())
}

func TestParseDetectionTime(t *testing.T) {
	got, ok := ParseDetectionTime("02-01-2024", "08:30:00")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, time.January, 2, 8, 30, 0, 0, time.UTC), got)

	got, ok = ParseDetectionTime("2024-01-03", "")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC), got)

	got, ok = ParseDetectionTime("02-01-2024", "garbage")
	require.True(t, ok)
	require.Equal(t, 2, got.Day())

	_, ok = ParseDetectionTime("", "10:00:00")
	require.False(t, ok)

	_, ok = ParseDetectionTime("not a date", "")
	require.False(t, ok)
}

func TestLocality_Resolved(t *testing.T) {
	require.True(t, Locality{City: "Kuala Lumpur", State: "Wilayah Persekutuan"}.Resolved())
	require.False(t, Locality{City: "Kuala Lumpur"}.Resolved())
}
