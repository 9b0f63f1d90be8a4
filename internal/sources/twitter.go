package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xaenox/trafikkvarsel/internal/conversation"
	"go.uber.org/zap"
)

type TwitterConfig struct {
	BaseURL     string
	BearerToken string
	UserAgent   string
}

// TwitterClient reads a traffic authority account's tweets and groups them
// into conversations.
type TwitterClient struct {
	httpClient *http.Client
	config     TwitterConfig
	keywords   conversation.Keywords
	logger     *zap.Logger
}

func NewTwitterClient(httpClient *http.Client, config TwitterConfig, keywords conversation.Keywords, logger *zap.Logger) *TwitterClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TwitterClient{
		httpClient: httpClient,
		config:     config,
		keywords:   keywords,
		logger:     logger,
	}
}

type tweet struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	CreatedAt      time.Time `json:"created_at"`
	Text           string    `json:"text"`
}

// Conversations returns the account's tweets from the past window grouped
// by conversation id, most recent conversation last in tweet order.
func (c *TwitterClient) Conversations(ctx context.Context, username string, pastHours int) ([]Thread, error) {
	userID, err := c.userID(ctx, username)
	if err != nil {
		return nil, err
	}

	tweets, err := c.tweets(ctx, userID, pastHours)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Fetched tweets", zap.Int("count", len(tweets)))

	// The API returns tweets newest first; feed them oldest first so the
	// aggregator sees groups in the order they started.
	msgs := make([]conversation.RawMessage, 0, len(tweets))
	for i := len(tweets) - 1; i >= 0; i-- {
		msgs = append(msgs, conversation.RawMessage{
			GroupKey:  tweets[i].ConversationID,
			CreatedAt: tweets[i].CreatedAt,
			Text:      tweets[i].Text,
		})
	}

	conversations := conversation.Build(msgs, c.keywords)
	threads := make([]Thread, len(conversations))
	for i, conv := range conversations {
		threads[i] = conv
	}
	return threads, nil
}

func (c *TwitterClient) userID(ctx context.Context, username string) (string, error) {
	var response struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.get(ctx, "users/by/username/"+url.PathEscape(username), nil, &response); err != nil {
		return "", fmt.Errorf("error looking up user %s: %v", username, err)
	}
	return response.Data.ID, nil
}

func (c *TwitterClient) tweets(ctx context.Context, userID string, pastHours int) ([]tweet, error) {
	startTime := time.Now().UTC().Truncate(time.Second).Add(-time.Duration(pastHours) * time.Hour)
	params := url.Values{
		"max_results":  {"100"},
		"start_time":   {startTime.Format(time.RFC3339)},
		"tweet.fields": {"created_at,conversation_id"},
		"exclude":      {"retweets"},
	}

	var response struct {
		Data []tweet `json:"data"`
	}
	if err := c.get(ctx, "users/"+userID+"/tweets", params, &response); err != nil {
		return nil, fmt.Errorf("error fetching tweets: %v", err)
	}
	return response.Data, nil
}

func (c *TwitterClient) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := strings.TrimSuffix(c.config.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.config.BearerToken)
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
