package model

import "time"

// Quote is a single ticker reading. It is used for one frame and then dropped.
type Quote struct {
	Product   string
	Price     float64
	FetchedAt time.Time
}
