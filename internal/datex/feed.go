package datex

import (
	"context"

	"github.com/xaenox/trafikkvarsel/internal/models"
)

// Feed combines the snapshot client and the parser into the situation
// source the reconciler consumes.
type Feed struct {
	client *Client
	parser *Parser
}

func NewFeed(client *Client, parser *Parser) *Feed {
	return &Feed{client: client, parser: parser}
}

// Situations fetches and parses the current snapshot. A transport or
// document-level parse failure is returned as an error so the caller can
// tell it apart from a legitimately empty feed.
func (f *Feed) Situations(ctx context.Context) ([]models.Situation, error) {
	data, err := f.client.FetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return f.parser.Parse(data)
}
