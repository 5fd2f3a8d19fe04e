package model

import "github.com/shopspring/decimal"

// DashboardStats summarises today's clinic activity.
type DashboardStats struct {
	AppointmentsToday  int             `json:"appointments_today" db:"appointments_today"`
	Waiting            int             `json:"waiting" db:"waiting"`
	InProgress         int             `json:"in_progress" db:"in_progress"`
	CompletedToday     int             `json:"completed_today" db:"completed_today"`
	AverageWaitMinutes float64         `json:"average_wait_minutes" db:"average_wait_minutes"`
	PaymentsTotalToday decimal.Decimal `json:"payments_total_today" db:"payments_total_today"`
}
