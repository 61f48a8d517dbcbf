package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	LogLevel string

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// MetricsAddr is the Prometheus listen address. Empty disables the
	// metrics endpoint.
	MetricsAddr string

	// Class descriptor for the session this process runs.
	Subject         string
	Section         string
	Date            string
	InstructorName  string
	InstructorEmail string

	// RotateInterval is the initial token rotation cadence.
	RotateInterval time.Duration

	// PollInterval is the roster aggregation cadence.
	PollInterval time.Duration

	// LocationTimeout bounds the location capture at session start.
	LocationTimeout time.Duration

	// ProximityRadiusM is the accept distance for claimant submissions.
	// Zero disables the proximity check.
	ProximityRadiusM float64

	// Latitude/Longitude, when both set, are the instructor's fixed
	// position. HasLocation reports whether they were provided.
	Latitude    float64
	Longitude   float64
	HasLocation bool

	// AllowNoLocation lets the session start even when no position is
	// available; proximity verification is then disabled.
	AllowNoLocation bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	lat, latOK := EnvFloat("ROLLCALL_LATITUDE")
	lng, lngOK := EnvFloat("ROLLCALL_LONGITUDE")

	return Config{
		LogLevel: EnvString("ROLLCALL_LOG_LEVEL", "info"),

		DatabaseURL: EnvString("ROLLCALL_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("ROLLCALL_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("ROLLCALL_DB_MIN_CONNS", 0),

		MetricsAddr: EnvString("ROLLCALL_METRICS_ADDR", ""),

		Subject:         EnvString("ROLLCALL_SUBJECT", ""),
		Section:         EnvString("ROLLCALL_SECTION", ""),
		Date:            EnvString("ROLLCALL_DATE", ""),
		InstructorName:  EnvString("ROLLCALL_INSTRUCTOR_NAME", ""),
		InstructorEmail: EnvString("ROLLCALL_INSTRUCTOR_EMAIL", ""),

		RotateInterval:  EnvDuration("ROLLCALL_ROTATE_INTERVAL", 5*time.Second),
		PollInterval:    EnvDuration("ROLLCALL_POLL_INTERVAL", 5*time.Second),
		LocationTimeout: EnvDuration("ROLLCALL_LOCATION_TIMEOUT", 20*time.Second),

		ProximityRadiusM: EnvFloatDefault("ROLLCALL_PROXIMITY_RADIUS_M", 50),

		Latitude:    lat,
		Longitude:   lng,
		HasLocation: latOK && lngOK,

		AllowNoLocation: EnvBool("ROLLCALL_ALLOW_NO_LOCATION", false),
	}
}
