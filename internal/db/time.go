package db

import "time"

// TimeLayout is how timestamps are stored in TEXT columns.
const TimeLayout = time.RFC3339Nano

func nowUTC() string {
	return time.Now().UTC().Format(TimeLayout)
}
