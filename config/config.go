package config

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/adhivakta/adhivakta-api/models"
)

// DefaultMaxClosingDate caps closing dates when MAX_CLOSING_DATE is not set
const DefaultMaxClosingDate = "2025-03-29"

// Config holds the project config values
type Config struct {
	URL                   string
	DatabaseName          string
	BaseURL               string
	Port                  string
	CaseNumberPrefix      string
	MaxClosingDate        time.Time
	AllowAssociateCounsel bool
	SendgridAPIKey        string
	CloudinaryURL         string
	IDTokenSecret         string
	EmailFrom             string
	EmailFromName         string
}

// New sets up all config related services
func New() *Config {

	//setup zap logger and replace default logger
	logger, err := setLogger(os.Getenv("APP_ENV"))
	if err != nil {
		logger = zap.NewExample()
	}
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:                   os.Getenv("DB_URI"),
		DatabaseName:          os.Getenv("DB_NAME"),
		BaseURL:               os.Getenv("BASE_URL"),
		Port:                  os.Getenv("PORT"),
		CaseNumberPrefix:      caseNumberPrefix(),
		MaxClosingDate:        maxClosingDate(),
		AllowAssociateCounsel: os.Getenv("ALLOW_ASSOCIATE_COUNSEL") == "true",
		SendgridAPIKey:        os.Getenv("SENDGRID_API_KEY"),
		CloudinaryURL:         os.Getenv("CLOUDINARY_URL"),
		IDTokenSecret:         os.Getenv("IDTOKEN_SECRET"),
		EmailFrom:             os.Getenv("EMAIL_FROM"),
		EmailFromName:         os.Getenv("EMAIL_FROM_NAME"),
	}

}

// setLogger picks the zap preset for the deployment environment. Anything
// unrecognized gets the example logger so local runs always log.
func setLogger(env string) (*zap.Logger, error) {
	switch env {
	case "production":
		return zap.NewProduction()
	case "development":
		return zap.NewDevelopment()
	default:
		return zap.NewExample(), nil
	}
}

func caseNumberPrefix() string {
	if p := os.Getenv("CASE_NUMBER_PREFIX"); p != "" {
		return p
	}
	return "CS"
}

func maxClosingDate() time.Time {
	raw := os.Getenv("MAX_CLOSING_DATE")
	if raw == "" {
		raw = DefaultMaxClosingDate
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		zap.S().Warnf("invalid MAX_CLOSING_DATE %q, falling back to default", raw)
		t, _ = time.Parse("2006-01-02", DefaultMaxClosingDate)
	}
	return t
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	w.WriteHeader(httpStatusCode)
	w.Write([]byte(fmt.Sprintf(`{"response": "%s, %v"}`, message, err)))
}

// AppErrorStatus writes the response for a typed component error, using the
// taxonomy's status code and boundary-safe message
func AppErrorStatus(w http.ResponseWriter, err error) {
	ErrorStatus(models.ErrorMessage(err), models.StatusCode(err), w, err)
}
