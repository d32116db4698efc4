package models

// SensorReading is one acquisition row of the live table. Every channel is nullable
// because a sensor may be absent from a given sample.
type SensorReading struct {
	ID          uint64   `gorm:"primaryKey;autoIncrement" json:"-"`
	Temp        *float64 `gorm:"column:temp" json:"temp"`
	Wind        *float64 `gorm:"column:wind" json:"wind"`
	Spn1RadTot  *float64 `gorm:"column:spn1_rad_tot" json:"spn1_radTot"`
	Spn1RadDiff *float64 `gorm:"column:spn1_rad_diff" json:"spn1_radDiff"`
	Spn1Sun     *float64 `gorm:"column:spn1_sun" json:"spn1_sun"`
	RadCmp1     *float64 `gorm:"column:rad_cmp1" json:"rad_cmp1"`
	RadCmp2     *float64 `gorm:"column:rad_cmp2" json:"rad_cmp2"`
	RadCmp3     *float64 `gorm:"column:rad_cmp3" json:"rad_cmp3"`
	TUnix       int64    `gorm:"column:t_unix;not null;index" json:"t_unix"`
	Archived    bool     `gorm:"not null;default:false;index" json:"-"`
}

func (SensorReading) TableName() string {
	return "sensor_datasets"
}

// Sample is a projected record: a timestamp plus the requested channel values in
// caller order. Nil means the sensor reported nothing for that sample.
type Sample struct {
	Timestamp int64
	Values    []*float64
}

// HiLoStat is one daily min/max rollup row of a single archive channel.
type HiLoStat struct {
	DateTime int64    `json:"dateTime"`
	Min      *float64 `json:"min"`
	MinTime  *int64   `json:"mintime"`
	Max      *float64 `json:"max"`
	MaxTime  *int64   `json:"maxtime"`
}
