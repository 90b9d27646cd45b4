package models

// Hospital is a static delivery destination and patrol anchor.
type Hospital struct {
	ID       string   `json:"id" bson:"id"`
	Name     string   `json:"name" bson:"name"`
	NameEN   string   `json:"name_en" bson:"name_en"`
	Location Location `json:"location" bson:"location"`
	Address  string   `json:"address" bson:"address"`
}
