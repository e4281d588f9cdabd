package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"potholytics-service/internal/domain/pothole"
)

type PotholeRepository struct {
	db *gorm.DB
}

func NewPotholeRepository(db *gorm.DB) *PotholeRepository {
	return &PotholeRepository{db: db}
}

type Pothole struct {
	ID              int64 `gorm:"primaryKey"`
	SessionID       string
	Model           *string
	DetectionsCount int `gorm:"not null"`
	Address         *string
	Latitude        *float64
	Longitude       *float64
	Date            *string
	Time            *string
	Image           string `gorm:"not null"`
	Info            datatypes.JSON
	CreatedAt       time.Time
}

func (Pothole) TableName() string {
	return "potholes"
}

// SaveFrames stores each frame as one pothole row in a single transaction.
func (r *PotholeRepository) SaveFrames(ctx context.Context, sessionID, model string, frames []pothole.DetectionFrame) (int, error) {
	if len(frames) == 0 {
		return 0, nil
	}

	now := time.Now()
	rows := make([]Pothole, 0, len(frames))
	for _, frame := range frames {
		row, err := newPotholeRow(sessionID, model, frame, now)
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// FetchHistory returns every stored pothole in insertion order, shaped like
// the backend's historical feed.
func (r *PotholeRepository) FetchHistory(ctx context.Context) ([]pothole.HistoricalPothole, error) {
	var rows []Pothole
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]pothole.HistoricalPothole, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toHistorical())
	}
	return out, nil
}

func newPotholeRow(sessionID, model string, frame pothole.DetectionFrame, now time.Time) (Pothole, error) {
	row := Pothole{
		SessionID:       sessionID,
		DetectionsCount: frame.DetectionsCount,
		Image:           frame.DataURI(),
		CreatedAt:       now,
	}
	if model != "" {
		row.Model = &model
	}

	if info := frame.Info; info != nil {
		raw, err := json.Marshal(info)
		if err != nil {
			return Pothole{}, err
		}
		row.Info = datatypes.JSON(raw)
		row.Latitude = info.Latitude
		row.Longitude = info.Longitude
		if info.Address != "" {
			row.Address = &info.Address
		}
		if info.Date != "" {
			row.Date = &info.Date
		}
		if info.Time != "" {
			row.Time = &info.Time
		}
	}
	return row, nil
}

func (p Pothole) toHistorical() pothole.HistoricalPothole {
	h := pothole.HistoricalPothole{
		ID:    strconv.FormatInt(p.ID, 10),
		Image: p.Image,
		Info: pothole.HistoricalInfo{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
		},
	}
	if p.Address != nil {
		h.Info.Address = *p.Address
	}
	if p.Date != nil {
		h.Info.Date = *p.Date
	}
	if p.Time != nil {
		h.Info.Time = *p.Time
	}
	return h
}
