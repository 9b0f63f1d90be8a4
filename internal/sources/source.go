package sources

import (
	"time"

	"github.com/xaenox/trafikkvarsel/internal/models"
)

// Thread is the one capability every message source exposes. Aggregation
// and display depend only on this, never on which source a thread came from.
type Thread interface {
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Status() models.Status
	Location() string
	Messages() []models.Message
}
