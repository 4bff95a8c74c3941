package notify

import (
	"context"
	"sync"
)

type collectorKey struct{}

// Collector records the messages raised while serving a single request.
type Collector struct {
	mu       sync.Mutex
	messages []string
}

// WithCollector attaches a fresh Collector to ctx.
func WithCollector(ctx context.Context) (context.Context, *Collector) {
	c := &Collector{}
	return context.WithValue(ctx, collectorKey{}, c), c
}

// CollectorFrom returns the Collector attached to ctx, if any.
func CollectorFrom(ctx context.Context) (*Collector, bool) {
	c, ok := ctx.Value(collectorKey{}).(*Collector)
	return c, ok
}

func (c *Collector) add(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message)
}

// Messages returns a copy of what has been collected so far.
func (c *Collector) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.messages))
	copy(out, c.messages)
	return out
}

// Scoped forwards messages to the Collector carried by the context.
// Messages raised outside a collecting context are dropped.
type Scoped struct{}

func (Scoped) Error(ctx context.Context, message string) {
	if c, ok := CollectorFrom(ctx); ok {
		c.add(message)
	}
}
