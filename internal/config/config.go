package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/incridea/fest-backend/internal/models"
)

// Selector names a fee line item the payment initiation route accepts.
type Selector string

const (
	SelectorFestInternal Selector = "FEST_INTERNAL"
	SelectorFestExternal Selector = "FEST_EXTERNAL"
	SelectorFestAlumni   Selector = "FEST_ALUMNI"
	SelectorAccommodation Selector = "ACCOMMODATION"
)

// Fee maps a selector onto an order type and the net amount (paise) the
// fest should receive after the gateway takes its cut.
type Fee struct {
	Type models.OrderType
	Net  int64
}

type Config struct {
	Port        string
	PostgresDSN string
	ElasticURL  string

	JWTSecret     string
	WebhookSecret string

	GatewayBaseURL   string
	GatewayKeyID     string
	GatewayKeySecret string
	// GatewayFeeRate is the fraction the gateway deducts, e.g. 0.02.
	GatewayFeeRate float64
	Currency       string

	StorageBaseURL string
	VerifyBaseURL  string

	Fees map[Selector]Fee

	// CrossCollegeExempt lists event ids where members from different
	// colleges may share a team. Policy, so configured, not hardcoded.
	CrossCollegeExempt map[uuid.UUID]bool
}

func Load() *Config {
	cfg := &Config{
		Port:             getenv("PORT", "8080"),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		ElasticURL:       os.Getenv("ELASTIC_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		WebhookSecret:    os.Getenv("WEBHOOK_SECRET"),
		GatewayBaseURL:   getenv("GATEWAY_BASE_URL", "https://api.razorpay.com"),
		GatewayKeyID:     os.Getenv("GATEWAY_KEY_ID"),
		GatewayKeySecret: os.Getenv("GATEWAY_KEY_SECRET"),
		GatewayFeeRate:   getfloat("GATEWAY_FEE_RATE", 0.02),
		Currency:         getenv("CURRENCY", "INR"),
		StorageBaseURL:   os.Getenv("STORAGE_BASE_URL"),
		VerifyBaseURL:    getenv("VERIFY_BASE_URL", "http://localhost:8080"),
		Fees: map[Selector]Fee{
			SelectorFestInternal:  {Type: models.OrderFestRegistration, Net: getpaise("FEE_FEST_INTERNAL", 25000)},
			SelectorFestExternal:  {Type: models.OrderFestRegistration, Net: getpaise("FEE_FEST_EXTERNAL", 35000)},
			SelectorFestAlumni:    {Type: models.OrderFestRegistration, Net: getpaise("FEE_FEST_ALUMNI", 30000)},
			SelectorAccommodation: {Type: models.OrderAccRegistration, Net: getpaise("FEE_ACCOMMODATION", 50000)},
		},
		CrossCollegeExempt: parseEventIDs(os.Getenv("CROSS_COLLEGE_EXEMPT_EVENTS")),
	}
	if cfg.WebhookSecret == "" {
		log.Println("⚠️ WEBHOOK_SECRET is empty, webhook verification will reject everything")
	}
	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getfloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("⚠️ bad %s=%q, using %v", key, v, def)
		return def
	}
	return f
}

func getpaise(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("⚠️ bad %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func parseEventIDs(raw string) map[uuid.UUID]bool {
	out := map[uuid.UUID]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			log.Printf("⚠️ skipping bad event id in CROSS_COLLEGE_EXEMPT_EVENTS: %q", part)
			continue
		}
		out[id] = true
	}
	return out
}
