package config

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/adhivakta/adhivakta-api/models"
)

func TestNew(t *testing.T) {
	os.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	os.Setenv("DB_NAME", "test")
	conf := New()

	assert.NotEmpty(t, conf)
	assert.Equal(t, "CS", conf.CaseNumberPrefix)
}

func TestMaxClosingDateDefault(t *testing.T) {
	os.Unsetenv("MAX_CLOSING_DATE")
	conf := New()

	want, _ := time.Parse("2006-01-02", DefaultMaxClosingDate)
	assert.Equal(t, want, conf.MaxClosingDate)
}

func TestMaxClosingDateOverride(t *testing.T) {
	os.Setenv("MAX_CLOSING_DATE", "2030-06-15")
	defer os.Unsetenv("MAX_CLOSING_DATE")
	conf := New()

	want, _ := time.Parse("2006-01-02", "2030-06-15")
	assert.Equal(t, want, conf.MaxClosingDate)
}

func TestMaxClosingDateInvalidFallsBack(t *testing.T) {
	os.Setenv("MAX_CLOSING_DATE", "not-a-date")
	defer os.Unsetenv("MAX_CLOSING_DATE")
	conf := New()

	want, _ := time.Parse("2006-01-02", DefaultMaxClosingDate)
	assert.Equal(t, want, conf.MaxClosingDate)
}

func TestAllowAssociateCounsel(t *testing.T) {
	os.Setenv("ALLOW_ASSOCIATE_COUNSEL", "true")
	defer os.Unsetenv("ALLOW_ASSOCIATE_COUNSEL")
	assert.True(t, New().AllowAssociateCounsel)

	os.Setenv("ALLOW_ASSOCIATE_COUNSEL", "false")
	assert.False(t, New().AllowAssociateCounsel)
}

func TestErrorStatus(t *testing.T) {

	ErrorStatus("error it borked", http.StatusBadRequest, httptest.NewRecorder(), errors.New("bad request"))
	assert.True(t, true)
}

func TestAppErrorStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	AppErrorStatus(rr, models.NewForbidden("no access"))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	AppErrorStatus(rr, errors.New("something else"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestSetLoggerSetsDevelopmentLogger(t *testing.T) {
	l, err := setLogger("development")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(1))
}

func TestSetLoggerSetsProductionLogger(t *testing.T) {
	l, err := setLogger("production")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(2))
}

func TestSetLoggerSetsLocalLogger(t *testing.T) {
	l, err := setLogger("local")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(0))
}
