package importer

// Station maps a row of the station table.
type Station struct {
	ID        uint   `gorm:"primaryKey"`
	Station   string `gorm:"not null;uniqueIndex:idx_station_station"`
	Name      string
	Latitude  *float64
	Longitude *float64
	Elevation *float64
}

func (Station) TableName() string { return "station" }

// Measurement maps a row of the measurement table. Date is stored as YYYY-MM-DD text.
type Measurement struct {
	ID      uint   `gorm:"primaryKey"`
	Station string `gorm:"not null"`
	Date    string `gorm:"not null"`
	Prcp    *float64
	Tobs    *float64
}

func (Measurement) TableName() string { return "measurement" }
