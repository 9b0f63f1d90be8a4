package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/trafikkvarsel/internal/conversation"
	"github.com/xaenox/trafikkvarsel/internal/models"
	"github.com/xaenox/trafikkvarsel/pkg/config"
	"go.uber.org/zap"
)

func testKeywords() conversation.Keywords {
	return conversation.Keywords{
		Done:   config.DefaultDoneKeywords,
		Fixing: config.DefaultFixingKeywords,
	}
}

func TestTwitterConversations(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/users/by/username/VTSost":
			w.Write([]byte(`{"data":{"id":"42"}}`))
		case "/users/42/tweets":
			assert.Equal(t, "retweets", r.URL.Query().Get("exclude"))
			assert.NotEmpty(t, r.URL.Query().Get("start_time"))
			// Newest first, the way the API delivers them.
			w.Write([]byte(`{"data":[
				{"id":"3","conversation_id":"100","created_at":"2024-02-01T09:00:00Z","text":"E18: Åpnet igjen"},
				{"id":"2","conversation_id":"200","created_at":"2024-02-01T08:30:00Z","text":"Kø på Ring 3"},
				{"id":"1","conversation_id":"100","created_at":"2024-02-01T08:00:00Z","text":"E18: Stengt etter ulykke"}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewTwitterClient(server.Client(), TwitterConfig{
		BaseURL:     server.URL,
		BearerToken: "token",
	}, testKeywords(), zap.NewNop())

	threads, err := client.Conversations(context.Background(), "VTSost", 24)
	require.NoError(t, err)
	assert.Equal(t, "Bearer token", gotAuth)
	require.Len(t, threads, 2)

	// Oldest conversation first in build order.
	first := threads[0]
	assert.Equal(t, "E18", first.Location())
	assert.Equal(t, models.StatusDone, first.Status())
	require.Len(t, first.Messages(), 2)
	assert.Equal(t, "Stengt etter ulykke", first.Messages()[0].Text)

	second := threads[1]
	assert.Equal(t, models.StatusNew, second.Status())
	require.Len(t, second.Messages(), 1)
}

func TestTwitterConversationsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewTwitterClient(server.Client(), TwitterConfig{BaseURL: server.URL}, testKeywords(), zap.NewNop())

	_, err := client.Conversations(context.Background(), "VTSost", 24)
	assert.Error(t, err)
}
