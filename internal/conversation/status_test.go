package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xaenox/trafikkvarsel/internal/models"
	"github.com/xaenox/trafikkvarsel/pkg/config"
)

func defaultKeywords() Keywords {
	return Keywords{
		Done:   config.DefaultDoneKeywords,
		Fixing: config.DefaultFixingKeywords,
	}
}

func TestClassifyNew(t *testing.T) {
	status := Classify([]string{"Ulykke på E6 ved Kløfta"}, defaultKeywords())
	assert.Equal(t, models.StatusNew, status)
}

func TestClassifyFixing(t *testing.T) {
	status := Classify([]string{"Ulykke på E6", "Bilberging pågår"}, defaultKeywords())
	assert.Equal(t, models.StatusFixing, status)
}

func TestClassifyDone(t *testing.T) {
	status := Classify([]string{"Stengt", "Åpnet igjen"}, defaultKeywords())
	assert.Equal(t, models.StatusDone, status)
}

func TestClassifyDoneWinsOverFixing(t *testing.T) {
	// Resolved evidence wins regardless of where it appears in the thread.
	status := Classify([]string{"Veien er åpnet", "Bilberging pågår"}, defaultKeywords())
	assert.Equal(t, models.StatusDone, status)
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	status := Classify([]string{"ÅPNET IGJEN"}, defaultKeywords())
	assert.Equal(t, models.StatusDone, status)
}

func TestClassifyCustomKeywords(t *testing.T) {
	keywords := Keywords{Done: []string{"cleared"}, Fixing: []string{"tow truck"}}

	assert.Equal(t, models.StatusFixing, Classify([]string{"Tow truck on site"}, keywords))
	assert.Equal(t, models.StatusDone, Classify([]string{"All lanes cleared"}, keywords))
}
