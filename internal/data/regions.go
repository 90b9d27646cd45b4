package data

import "github.com/ukydev/ems-dispatch-sim/internal/geo"

// Region is a weighted box in which random incidents are placed.
type Region struct {
	Name   string
	Weight float64
	Bounds geo.Bounds
	Areas  []string
}

// Regions returns the default 60/40 Tokyo/Hamamatsu split.
func Regions() []Region {
	return []Region{
		{
			Name:   "tokyo",
			Weight: 0.6,
			Bounds: geo.Bounds{MinLat: 35.6, MaxLat: 35.75, MinLng: 139.65, MaxLng: 139.8},
			Areas:  []string{"渋谷", "新宿", "六本木", "銀座", "池袋", "品川", "恵比寿", "表参道", "原宿", "代官山"},
		},
		{
			Name:   "hamamatsu",
			Weight: 0.4,
			Bounds: geo.Bounds{MinLat: 34.7, MaxLat: 34.8, MinLng: 137.7, MaxLng: 137.8},
			Areas:  []string{"浜松", "舞阪", "浜北", "天竜", "細江", "引佐", "三ヶ日", "春野", "佐久間", "水窪"},
		},
	}
}

// LocationSuffixes are appended to an area name to form an incident name.
var LocationSuffixes = []string{"駅前", "交差点", "公園", "広場", "通り"}

// IncidentTypes are the labels drawn for new incidents.
var IncidentTypes = []string{
	"交通事故",
	"心肺停止",
	"急病",
	"転倒",
	"熱中症",
	"意識不明",
	"打撲",
	"脱水症状",
}
