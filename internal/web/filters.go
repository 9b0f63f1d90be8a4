package web

import (
	"fmt"
	"time"

	"github.com/xaenox/trafikkvarsel/internal/models"
)

var osloTime = mustLoadLocation("Europe/Oslo")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// timestampToStr renders a timestamp as local wall-clock time, prefixed
// with how many days ago it was when not from today.
func timestampToStr(timestamp time.Time) string {
	local := timestamp.In(osloTime)
	now := time.Now().In(osloTime)

	localDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, osloTime)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, osloTime)

	var daysAgo string
	switch days := int(today.Sub(localDay).Hours() / 24); days {
	case 0:
	case 1:
		daysAgo = "I går "
	default:
		daysAgo = fmt.Sprintf("%d dager siden ", days)
	}
	return daysAgo + local.Format("15:04")
}

// statusToClass maps a thread status to its list item CSS class.
func statusToClass(status models.Status) string {
	switch status {
	case models.StatusNew:
		return "list-group-item-danger"
	case models.StatusFixing:
		return "list-group-item-warning"
	case models.StatusDone:
		return "list-group-item-success"
	}
	return ""
}
