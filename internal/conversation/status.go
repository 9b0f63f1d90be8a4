package conversation

import (
	"strings"

	"github.com/xaenox/trafikkvarsel/internal/models"
)

// Keywords is the evidence used to classify a thread. Matches are
// case-insensitive substrings, so inflected forms like "gjenåpnet" count.
type Keywords struct {
	Done   []string
	Fixing []string
}

// Classify derives a thread status from the whole message set. A resolved
// keyword anywhere wins over an in-progress one regardless of message
// order, so a later ambiguous message cannot revert a finished incident.
func Classify(texts []string, keywords Keywords) models.Status {
	joined := strings.ToLower(strings.Join(texts, "\n"))

	for _, keyword := range keywords.Done {
		if strings.Contains(joined, strings.ToLower(keyword)) {
			return models.StatusDone
		}
	}
	for _, keyword := range keywords.Fixing {
		if strings.Contains(joined, strings.ToLower(keyword)) {
			return models.StatusFixing
		}
	}
	return models.StatusNew
}
