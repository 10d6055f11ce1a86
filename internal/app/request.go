package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cancel_sweep/internal/domain"
	"cancel_sweep/internal/service"
)

// Accepted date layouts, most specific first. A bare date is midnight.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Flags are the raw command-line arguments of one invocation.
type Flags struct {
	Order   string
	Account string
	Region  string
	Begin   string
	End     string
	Message string
}

// ParseDate parses a wall-clock date in one of the accepted layouts. The
// result is zoned later, against the reference time zone.
func ParseDate(source string) (time.Time, error) {
	source = strings.TrimSpace(source)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, source); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not a valid date: %q", source)
}

// BuildRequest converts flags into a request. Empty flags are left unset.
func BuildRequest(f Flags) (service.Request, error) {
	req := service.Request{
		Account: strings.TrimSpace(f.Account),
		Region:  strings.TrimSpace(f.Region),
		Message: f.Message,
	}

	if s := strings.TrimSpace(f.Order); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return req, fmt.Errorf("not a valid order id: %q", s)
		}
		oid := domain.OrderID(id)
		req.OrderID = &oid
	}

	var err error
	if f.Begin != "" {
		if req.Begin, err = ParseDate(f.Begin); err != nil {
			return req, err
		}
	}
	if f.End != "" {
		if req.End, err = ParseDate(f.End); err != nil {
			return req, err
		}
	}

	if _, err := req.Scope(); err != nil {
		return req, err
	}
	return req, nil
}
