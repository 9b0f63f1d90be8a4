package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSingleMessage(t *testing.T) {
	location, display := ExtractLocation([]string{"E6 ved Dal: kø pga bergingsbil"})

	assert.Equal(t, "E6 ved Dal", location)
	require.Len(t, display, 1)
	assert.Equal(t, "Kø pga bergingsbil", display[0])
}

func TestExtractCommonPrefix(t *testing.T) {
	location, display := ExtractLocation([]string{
		"E18: Stengt etter ulykke",
		"E18: Åpnet igjen",
	})

	assert.Equal(t, "E18", location)
	assert.Equal(t, []string{"Stengt etter ulykke", "Åpnet igjen"}, display)
}

func TestExtractDoesNotSplitRouteNumbers(t *testing.T) {
	// "Rv. 3" is a route number, not a sentence boundary.
	location, display := ExtractLocation([]string{"Rv. 3 Elverum: stengt ved Grundset"})

	assert.Equal(t, "Rv. 3 Elverum", location)
	assert.Equal(t, "Stengt ved Grundset", display[0])
}

func TestExtractNoTerminator(t *testing.T) {
	location, display := ExtractLocation([]string{"kø i begge retninger"})

	assert.Equal(t, "", location)
	assert.Equal(t, "Kø i begge retninger", display[0])
}

func TestExtractStripsHashMarks(t *testing.T) {
	location, _ := ExtractLocation([]string{"#E39 Mandal: ulykke ved tunnelen"})

	assert.Equal(t, "E39 Mandal", location)
}

func TestExtractCommonPrefixWithTerminatorInside(t *testing.T) {
	// The common prefix reaches past the terminator; it must still be cut
	// at the terminator, not at the last common character.
	location, display := ExtractLocation([]string{
		"E6 Oslo: stengt i sørgående løp",
		"E6 Oslo: stengt i nordgående løp",
	})

	assert.Equal(t, "E6 Oslo", location)
	assert.Equal(t, "Stengt i sørgående løp", display[0])
	assert.Equal(t, "Stengt i nordgående løp", display[1])
}

func TestExtractEmpty(t *testing.T) {
	location, display := ExtractLocation(nil)

	assert.Equal(t, "", location)
	assert.Nil(t, display)
}
