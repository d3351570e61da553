package playsim

// HTTP status code constants.
const (
	StatusOK        = 200
	StatusNoContent = 204
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
	topPerformersShown   = 10
)
