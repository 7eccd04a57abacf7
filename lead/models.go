package lead

import "time"

// Lead is a prospective contact referenced by campaigns via its identifier.
type Lead struct {
	ID        string
	FullName  string
	Email     string
	Phone     *string
	Company   *string
	Score     float64
	CreatedAt time.Time
}
