package conversation

import (
	"sort"
	"time"

	"github.com/xaenox/trafikkvarsel/internal/models"
)

// RawMessage is one timestamped text tagged with its conversation key, as
// delivered by a message source adapter.
type RawMessage struct {
	GroupKey  string
	CreatedAt time.Time
	Text      string
}

// Conversation is a thread of messages sharing a group key. Status and
// location are recomputed from the whole message set on every append; both
// are non-monotonic in the messages, so patching them incrementally would
// drift with arrival order.
type Conversation struct {
	key      string
	keywords Keywords
	raw      []RawMessage

	status   models.Status
	location string
	messages []models.Message
}

// Build groups messages by key into conversations, preserving first-seen
// group order. Messages inside a conversation are kept chronological no
// matter how they arrived.
func Build(msgs []RawMessage, keywords Keywords) []*Conversation {
	byKey := make(map[string]*Conversation)
	var ordered []*Conversation

	for _, msg := range msgs {
		conv, exists := byKey[msg.GroupKey]
		if !exists {
			conv = &Conversation{key: msg.GroupKey, keywords: keywords}
			byKey[msg.GroupKey] = conv
			ordered = append(ordered, conv)
		}
		conv.Add(msg)
	}
	return ordered
}

// Add appends a message and rederives status, location and display texts.
func (c *Conversation) Add(msg RawMessage) {
	c.raw = append(c.raw, msg)
	c.recompute()
}

func (c *Conversation) recompute() {
	sort.SliceStable(c.raw, func(i, j int) bool {
		return c.raw[i].CreatedAt.Before(c.raw[j].CreatedAt)
	})

	texts := make([]string, len(c.raw))
	for i, msg := range c.raw {
		texts[i] = msg.Text
	}

	location, display := ExtractLocation(texts)
	c.location = location
	c.status = Classify(texts, c.keywords)

	c.messages = make([]models.Message, len(c.raw))
	for i, msg := range c.raw {
		c.messages[i] = models.Message{CreatedAt: msg.CreatedAt, Text: display[i]}
	}
}

func (c *Conversation) Key() string { return c.key }

func (c *Conversation) CreatedAt() time.Time {
	if len(c.raw) == 0 {
		return time.Time{}
	}
	return c.raw[0].CreatedAt
}

func (c *Conversation) UpdatedAt() time.Time {
	if len(c.raw) == 0 {
		return time.Time{}
	}
	return c.raw[len(c.raw)-1].CreatedAt
}

func (c *Conversation) Status() models.Status { return c.status }

func (c *Conversation) Location() string { return c.location }

func (c *Conversation) Messages() []models.Message {
	return append([]models.Message(nil), c.messages...)
}
