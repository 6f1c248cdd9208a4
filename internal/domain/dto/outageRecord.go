package dto

import "time"

// OutageRecord is one normalized row of the source outage table.
type OutageRecord struct {
	District string
	Status   string
	Areas    string
	Date     time.Time
	Time     string
}
