package models

// RoadRecord is one road segment of the dataset together with its precomputed accident risk.
type RoadRecord struct {
	Curvature float64
	// SpeedLimit is stored as a fraction of 100 km/h.
	SpeedLimit float64
	// Flags holds the one-hot columns that are set for the record, keyed by column name.
	Flags map[string]bool
	// Risk is the model-predicted accident risk. Lower is safer.
	Risk float64
}

// Flag reports whether the one-hot column is set. Unknown columns read as unset.
func (r RoadRecord) Flag(column string) bool {
	return r.Flags[column]
}

// SpeedLimitKMH returns the speed limit in km/h truncated towards zero.
func (r RoadRecord) SpeedLimitKMH() int {
	return int(r.SpeedLimit * 100) //nolint:mnd // fraction to km/h
}

// Categories are the decoded one-hot columns of a [RoadRecord].
type Categories struct {
	RoadType  string
	Lighting  string
	Weather   string
	TimeOfDay string
}
