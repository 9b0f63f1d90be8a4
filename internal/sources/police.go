package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/xaenox/trafikkvarsel/internal/models"
	"go.uber.org/zap"
)

type PoliceConfig struct {
	BaseURL    string
	Districts  []string
	Categories []string
	Take       int
}

// PoliceClient reads the police incident log. The log carries its own
// thread ids and an explicit active flag, so no keyword classification or
// prefix extraction is needed for this source.
type PoliceClient struct {
	httpClient *http.Client
	config     PoliceConfig
	logger     *zap.Logger
}

func NewPoliceClient(httpClient *http.Client, config PoliceConfig, logger *zap.Logger) *PoliceClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &PoliceClient{
		httpClient: httpClient,
		config:     config,
		logger:     logger,
	}
}

type policeMessage struct {
	ID           string    `json:"id"`
	ThreadID     string    `json:"threadId"`
	District     string    `json:"district"`
	Municipality string    `json:"municipality"`
	Area         string    `json:"area"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdOn"`
	Text         string    `json:"text"`
}

func (m policeMessage) location() string {
	if m.Area != "" {
		return fmt.Sprintf("%s: %s", m.Municipality, m.Area)
	}
	return m.Municipality
}

// PoliceThread groups police log entries sharing a thread id.
type PoliceThread struct {
	entries []policeMessage
}

func (t *PoliceThread) CreatedAt() time.Time {
	created := t.entries[0].CreatedAt
	for _, entry := range t.entries[1:] {
		if entry.CreatedAt.Before(created) {
			created = entry.CreatedAt
		}
	}
	return created
}

func (t *PoliceThread) UpdatedAt() time.Time {
	updated := t.entries[0].CreatedAt
	for _, entry := range t.entries[1:] {
		if entry.CreatedAt.After(updated) {
			updated = entry.CreatedAt
		}
	}
	return updated
}

// Status reports NEW while the log still flags the latest entry active.
func (t *PoliceThread) Status() models.Status {
	if t.entries[len(t.entries)-1].IsActive {
		return models.StatusNew
	}
	return models.StatusDone
}

func (t *PoliceThread) Location() string {
	return t.entries[0].location()
}

func (t *PoliceThread) Messages() []models.Message {
	messages := make([]models.Message, len(t.entries))
	for i, entry := range t.entries {
		messages[i] = models.Message{CreatedAt: entry.CreatedAt, Text: entry.Text}
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages
}

// Threads returns the current police log grouped by thread id.
func (c *PoliceClient) Threads(ctx context.Context) ([]Thread, error) {
	params := url.Values{}
	for _, district := range c.config.Districts {
		params.Add("Districts", district)
	}
	for _, category := range c.config.Categories {
		params.Add("Categories", category)
	}
	params.Set("Take", fmt.Sprintf("%d", c.config.Take))

	endpoint := strings.TrimSuffix(c.config.BaseURL, "/") + "/messages?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching police log: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from police log", resp.StatusCode)
	}

	var response struct {
		Data []policeMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("error decoding police log: %v", err)
	}
	c.logger.Debug("Fetched police log entries", zap.Int("count", len(response.Data)))

	byThread := make(map[string]*PoliceThread)
	var ordered []Thread
	for _, message := range response.Data {
		thread, exists := byThread[message.ThreadID]
		if !exists {
			thread = &PoliceThread{}
			byThread[message.ThreadID] = thread
			ordered = append(ordered, thread)
		}
		thread.entries = append(thread.entries, message)
	}
	return ordered, nil
}
