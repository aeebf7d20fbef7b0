package models

const (
	StatusScheduled = "scheduled"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	// DateLayout is the canonical appointment date format.
	DateLayout = "2006-01-02"
	// TimeLayout is the canonical appointment time-of-day format.
	TimeLayout = "15:04"
)

const (
	MinRatingScore = 1
	MaxRatingScore = 5
)

const (
	TopicAnxiety = "anxiety"
	TopicSadness = "sadness"
	TopicStress  = "stress"
	TopicGeneral = "general"
)

const (
	// DefaultCacheTTL is the practitioner list cache lifetime in seconds
	DefaultCacheTTL = 10 * 60

	// RateLimitRequests is the per-user request budget within one window
	RateLimitRequests = 20

	// RateLimitWindow is the per-user rate limit window in seconds
	RateLimitWindow = 60

	// ExchangeLogTimeout bounds the background chat log write, in seconds
	ExchangeLogTimeout = 5
)
