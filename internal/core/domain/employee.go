package domain

import "time"

// Employee carries the HR-side fields the onboarding job reads. The wider
// employee record (position, department, manager) lives outside the
// authentication core and is not modelled here.
type Employee struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	StartDate time.Time
	EndDate   *time.Time
}
