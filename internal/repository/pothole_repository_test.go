package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"potholytics-service/internal/domain/pothole"
)

func TestNewPotholeRow_WithInfo(t *testing.T) {
	lat, lng := 3.15, 101.7
	frame := pothole.DetectionFrame{
		Image:           "AAA",
		DetectionsCount: 2,
		Info:            &pothole.FrameInfo{Date: "05-03-2024", Time: "10:11:12", Latitude: &lat, Longitude: &lng, Address: "Jalan Ampang"},
	}

	row, err := newPotholeRow("sess", "yolov11n", frame, time.Unix(0, 0))
	require.NoError(t, err)
	require.Equal(t, "data:image/jpeg;base64,AAA", row.Image)
	require.Equal(t, "yolov11n", *row.Model)
	require.Equal(t, "Jalan Ampang", *row.Address)
	require.Equal(t, 2, row.DetectionsCount)

	var info pothole.FrameInfo
	require.NoError(t, json.Unmarshal(row.Info, &info))
	require.Equal(t, "05-03-2024", info.Date)

	h := row.toHistorical()
	require.Equal(t, "Jalan Ampang", h.Info.Address)
	require.Equal(t, "10:11:12", h.Info.Time)
	require.InDelta(t, 101.7, *h.Info.Longitude, 1e-9)
	require.Equal(t, row.Image, h.Image)
}

func TestNewPotholeRow_WithoutInfo(t *testing.T) {
	row, err := newPotholeRow("sess", "", pothole.DetectionFrame{Image: "BBB", DetectionsCount: 1}, time.Now())
	require.NoError(t, err)
	require.Nil(t, row.Model)
	require.Nil(t, row.Address)
	require.Nil(t, row.Info)

	h := row.toHistorical()
	require.Empty(t, h.Info.Address)
	require.Nil(t, h.Info.Latitude)
}
