package models

// QueueStats is the per-day aggregate view of a tenant's (or branch's)
// queues. It is derived on read, never persisted.
type QueueStats struct {
	TotalWaiting                int `json:"total_waiting"`
	TotalServedToday            int `json:"total_served_today"`
	AverageWaitTimeMinutes      int `json:"average_wait_time_minutes"`
	CurrentEstimatedWaitMinutes int `json:"current_estimated_wait_minutes"`

	// PeakHour is the hour of day (0-23) with the most check-ins today,
	// or -1 when nothing has been checked in yet.
	PeakHour int `json:"peak_hour"`

	// Efficiency is served/(served+no-show) as a whole percentage; it
	// defaults to 100 when nothing terminal has happened today.
	// NoShowRate is the symmetric ratio, defaulting to 0.
	Efficiency int `json:"efficiency"`
	NoShowRate int `json:"no_show_rate"`
}
