package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string // empty disables the health service

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/attend.db"

	// Sink selects where attendance records go: "sqlite", "xlsx" or "memory".
	Sink     string
	XLSXPath string

	// Directory selects the badge directory: "file" (CSV) or "sqlite".
	Directory      string
	UserFile       string
	SeedIdentities []string // dev only, "card:name"

	FacesDir     string
	SnapshotPath string // empty keeps the last match in memory only

	CameraURL      string
	FaceServiceURL string

	AttendanceDuration time.Duration
	MatchThreshold     float64
	CaptureTries       int
	RotationAngles     []float64

	WaitTimeout time.Duration
	QueueSize   int

	// Attendance log retention
	LogRetentionDays   int // 0 = keep forever
	PruneIntervalHours int // how often the pruner runs (default 6)

	LogLevel  string
	LogFormat string
}

var defaultAngles = []float64{0, -15, 15, -30, 30}

func FromEnv() Config {
	env := strings.ToLower(getenvDefault("ATTEND_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	sink := strings.ToLower(getenvDefault("ATTEND_SINK", "sqlite"))
	switch sink {
	case "sqlite", "xlsx", "memory":
	default:
		sink = "sqlite"
	}

	directory := strings.ToLower(getenvDefault("ATTEND_DIRECTORY", "file"))
	if directory != "file" && directory != "sqlite" {
		directory = "file"
	}

	return Config{
		HTTPAddr: getenvDefault("ATTEND_HTTP_ADDR", ":5000"),
		GRPCAddr: getenvOptional("ATTEND_GRPC_ADDR", ":5001"),
		Env:      env,
		DBPath:   getenvDefault("ATTEND_DB_PATH", "./data/attend.db"),

		Sink:     sink,
		XLSXPath: getenvDefault("ATTEND_XLSX_PATH", "./data/attendance.xlsx"),

		Directory:      directory,
		UserFile:       getenvDefault("ATTEND_USER_FILE", "authorized_users.csv"),
		SeedIdentities: splitCSV(os.Getenv("ATTEND_SEED_IDENTITIES")),

		FacesDir:     getenvDefault("ATTEND_FACES_DIR", "known_faces"),
		SnapshotPath: getenvOptional("ATTEND_SNAPSHOT_PATH", "./data/last_match.jpg"),

		CameraURL:      getenvDefault("ATTEND_CAMERA_URL", "http://localhost:8080/snapshot.jpg"),
		FaceServiceURL: getenvDefault("ATTEND_FACE_SERVICE_URL", "http://localhost:8000"),

		AttendanceDuration: time.Duration(getenvInt("ATTEND_ATTENDANCE_SECONDS", 3000)) * time.Second,
		MatchThreshold:     getenvFloat("ATTEND_MATCH_THRESHOLD", 0.6),
		CaptureTries:       getenvInt("ATTEND_CAPTURE_TRIES", 3),
		RotationAngles:     getenvAngles("ATTEND_ROTATION_ANGLES", defaultAngles),

		WaitTimeout: time.Duration(getenvInt("ATTEND_WAIT_TIMEOUT_SECONDS", 10)) * time.Second,
		QueueSize:   getenvInt("ATTEND_QUEUE_SIZE", 64),

		LogRetentionDays:   getenvInt("ATTEND_LOG_RETENTION_DAYS", 0),
		PruneIntervalHours: getenvInt("ATTEND_PRUNE_INTERVAL_HOURS", 6),

		LogLevel:  getenvDefault("ATTEND_LOG_LEVEL", "info"),
		LogFormat: getenvDefault("ATTEND_LOG_FORMAT", "text"),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// getenvOptional is getenvDefault, except that a variable set to "off"
// or "-" yields "".
func getenvOptional(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	switch strings.ToLower(v) {
	case "":
		return def
	case "off", "-":
		return ""
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

// getenvAngles parses a comma-separated list of degrees. Any bad entry
// discards the whole list.
func getenvAngles(key string, def []float64) []float64 {
	parts := splitCSV(os.Getenv(key))
	if len(parts) == 0 {
		return append([]float64(nil), def...)
	}
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return append([]float64(nil), def...)
		}
		out = append(out, f)
	}
	return out
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
