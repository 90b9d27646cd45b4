package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ukydev/ems-dispatch-sim/internal/models"
)

// ErrEmptyHospitalFile is returned when a hospital file holds an empty list.
var ErrEmptyHospitalFile = errors.New("hospital list is empty")

// Hospitals returns the built-in Tokyo and Hamamatsu hospital list.
func Hospitals() []models.Hospital {
	return []models.Hospital{
		// Tokyo area
		{ID: "h1", Name: "東京大学医学部附属病院", NameEN: "University of Tokyo Hospital", Location: models.Location{Lat: 35.7146, Lng: 139.7626}, Address: "東京都文京区本郷7-3-1"},
		{ID: "h2", Name: "慶應義塾大学病院", NameEN: "Keio University Hospital", Location: models.Location{Lat: 35.6503, Lng: 139.7436}, Address: "東京都新宿区信濃町35"},
		{ID: "h3", Name: "聖路加国際病院", NameEN: "St. Luke's International Hospital", Location: models.Location{Lat: 35.6707, Lng: 139.7747}, Address: "東京都中央区明石町9-1"},
		{ID: "h4", Name: "順天堂大学医学部附属順天堂医院", NameEN: "Juntendo University Hospital", Location: models.Location{Lat: 35.7026, Lng: 139.762}, Address: "東京都文京区本郷3-1-3"},
		{ID: "h5", Name: "東京医科歯科大学病院", NameEN: "Tokyo Medical and Dental University Hospital", Location: models.Location{Lat: 35.7024, Lng: 139.7638}, Address: "東京都文京区湯島1-5-45"},
		{ID: "h6", Name: "虎の門病院", NameEN: "Toranomon Hospital", Location: models.Location{Lat: 35.6659, Lng: 139.7456}, Address: "東京都港区虎ノ門2-2-2"},
		// Hamamatsu area
		{ID: "h7", Name: "浜松医科大学医学部附属病院", NameEN: "Hamamatsu University Hospital", Location: models.Location{Lat: 34.7608, Lng: 137.7278}, Address: "静岡県浜松市東区半田山1-20-1"},
		{ID: "h8", Name: "浜松医療センター", NameEN: "Hamamatsu Medical Center", Location: models.Location{Lat: 34.7108, Lng: 137.735}, Address: "静岡県浜松市中区富塚町328"},
		{ID: "h9", Name: "聖隷浜松病院", NameEN: "Seirei Hamamatsu Hospital", Location: models.Location{Lat: 34.7458, Lng: 137.7114}, Address: "静岡県浜松市中区住吉2-12-12"},
		{ID: "h10", Name: "浜松赤十字病院", NameEN: "Hamamatsu Red Cross Hospital", Location: models.Location{Lat: 34.728, Lng: 137.7525}, Address: "静岡県浜松市浜北区小林1088-1"},
	}
}

// HospitalsFrom loads path, or returns the built-in list when path is empty.
func HospitalsFrom(path string) ([]models.Hospital, error) {
	if path == "" {
		return Hospitals(), nil
	}
	return LoadHospitals(path)
}

// LoadHospitals reads a JSON array of hospitals from path.
func LoadHospitals(path string) ([]models.Hospital, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hospitals file: %w", err)
	}
	var hospitals []models.Hospital
	if err := json.Unmarshal(raw, &hospitals); err != nil {
		return nil, fmt.Errorf("decode hospitals file: %w", err)
	}
	if len(hospitals) == 0 {
		return nil, ErrEmptyHospitalFile
	}
	return hospitals, nil
}
