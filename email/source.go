// Package email provides the mock email source. A real deployment would pull
// from a mailbox API; here a fixed pool of sample messages is cycled
// deterministically, one message per call.
package email

import (
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/IT22277190/AuraLink-group55/errors"
)

// Message is one sample email in the pool
type Message struct {
	Sender  string `yaml:"sender"`
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// Render returns the full message content handed to the enrichment backend
func (m Message) Render() string {
	return fmt.Sprintf("From: %s\nSubject: %s\n\n%s", m.Sender, m.Subject, m.Body)
}

// defaultPool ships with the backend so the service runs without any
// mailbox configuration.
var defaultPool = []Message{
	{
		Sender:  "boss@work.com",
		Subject: "Urgent: Project Deadline Moved Up",
		Body: "Hi team, please be advised that the deadline for the Q3 report has been moved " +
			"to this Friday. All hands on deck to get this finalized. I need the preliminary " +
			"draft by EOD tomorrow. Thanks.",
	},
	{
		Sender:  "newsletter@tech.io",
		Subject: "This Week in AI",
		Body: "Explore the latest advancements in generative models, a deep dive into " +
			"reinforcement learning, and our predictions for the next wave of AI startups. " +
			"Plus, a new dataset for computer vision enthusiasts has just been released.",
	},
	{
		Sender:  "mom@family.com",
		Subject: "Dinner this weekend?",
		Body: "Hey sweetie, hope you're having a good week. I was wondering if you're free to " +
			"come over for dinner on Saturday evening? Let me know if you can make it. Love, Mom.",
	},
}

// Source cycles through a fixed ordered pool of sample messages. The cursor
// advance is atomic: concurrent callers each receive a distinct,
// deterministically advancing message.
type Source struct {
	pool   []Message
	cursor atomic.Uint64
}

// NewSource returns a source over the built-in sample pool
func NewSource() *Source {
	return &Source{pool: defaultPool}
}

// NewSourceFromMessages returns a source over the given pool
func NewSourceFromMessages(pool []Message) (*Source, error) {
	if len(pool) == 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Source", "NewSourceFromMessages",
			"message pool cannot be empty")
	}
	return &Source{pool: pool}, nil
}

// NewSourceFromFile loads the pool from a YAML file, a list of entries with
// sender, subject, and body fields.
func NewSourceFromFile(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapFatal(err, "Source", "NewSourceFromFile", "read pool file")
	}

	var pool []Message
	if err := yaml.Unmarshal(data, &pool); err != nil {
		return nil, errors.WrapFatal(err, "Source", "NewSourceFromFile", "parse pool file")
	}

	return NewSourceFromMessages(pool)
}

// Next returns the next message content, advancing the cursor. Safe for
// concurrent use; no entry is duplicated or skipped.
func (s *Source) Next() string {
	idx := s.cursor.Add(1) - 1
	return s.pool[idx%uint64(len(s.pool))].Render()
}

// Len returns the pool size
func (s *Source) Len() int {
	return len(s.pool)
}
