package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sevenpast/campcore/internal/application"
)

const dateLayout = "2006-01-02"

const maxBodyBytes = 1 << 20

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func pathID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	return id, id != ""
}

func actorID(r *http.Request) string {
	id, _ := ActorIDFromContext(r.Context())
	return id
}

// parseDate reads a civil date. The result is midnight UTC of that date.
func parseDate(value string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(value))
}

func parseOptionalDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	date, err := parseDate(value)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

func parseOptionalTimestamp(query url.Values, key string) (*time.Time, error) {
	value := strings.TrimSpace(query.Get(key))
	if value == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC 3339 timestamp", key)
	}
	return &ts, nil
}

type recurrenceRequest struct {
	Frequency      string `json:"frequency"`
	Interval       int    `json:"interval"`
	DaysOfWeek     []int  `json:"days_of_week"`
	DayOfMonth     int    `json:"day_of_month"`
	EndDate        string `json:"end_date"`
	MaxOccurrences int    `json:"max_occurrences"`
}

func (r *recurrenceRequest) toInput() (*application.RecurrenceInput, error) {
	if r == nil {
		return nil, nil
	}
	endDate, err := parseOptionalDate(r.EndDate)
	if err != nil {
		return nil, fmt.Errorf("end_date must use the %s layout", dateLayout)
	}
	return &application.RecurrenceInput{
		Frequency:      strings.TrimSpace(r.Frequency),
		Interval:       r.Interval,
		DaysOfWeek:     append([]int(nil), r.DaysOfWeek...),
		DayOfMonth:     r.DayOfMonth,
		EndDate:        endDate,
		MaxOccurrences: r.MaxOccurrences,
	}, nil
}
