// Package prompts caches the user's prompt list for selection. The server is
// the source of truth; writes pass through and then update the cache.
package prompts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"docwise-client/internal/gateway"
	"docwise-client/internal/shared/telemetry"
)

var (
	ErrNotFound     = errors.New("prompt not found")
	ErrEmptyTitle   = errors.New("prompt title is required")
	ErrEmptyContent = errors.New("prompt content is required")
	ErrEmptyUpdate  = errors.New("prompt update has no fields")
)

// API is the slice of the gateway the catalog calls.
type API interface {
	ListPrompts(ctx context.Context) ([]gateway.Prompt, error)
	CreatePrompt(ctx context.Context, in gateway.PromptCreate) (gateway.Prompt, error)
	UpdatePrompt(ctx context.Context, id string, in gateway.PromptUpdate) (gateway.Prompt, error)
	DeletePrompt(ctx context.Context, id string) error
}

type Catalog struct {
	api API

	mu     sync.RWMutex
	items  []gateway.Prompt
	loaded bool
}

func NewCatalog(api API) *Catalog {
	return &Catalog{api: api}
}

// Refresh replaces the cache with the server's list.
func (c *Catalog) Refresh(ctx context.Context) ([]gateway.Prompt, error) {
	list, err := c.api.ListPrompts(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.items = append([]gateway.Prompt(nil), list...)
	c.loaded = true
	c.mu.Unlock()
	telemetry.Debug("prompts.refreshed", map[string]any{"count": len(list)})
	return list, nil
}

// List returns the cached prompts, fetching them on first use.
func (c *Catalog) List(ctx context.Context) ([]gateway.Prompt, error) {
	c.mu.RLock()
	if c.loaded {
		out := append([]gateway.Prompt(nil), c.items...)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()
	return c.Refresh(ctx)
}

// Get looks up id in the cache, refreshing once on a miss.
func (c *Catalog) Get(ctx context.Context, id string) (gateway.Prompt, error) {
	if p, ok := c.lookup(id); ok {
		return p, nil
	}
	if _, err := c.Refresh(ctx); err != nil {
		return gateway.Prompt{}, err
	}
	if p, ok := c.lookup(id); ok {
		return p, nil
	}
	return gateway.Prompt{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (c *Catalog) Create(ctx context.Context, title, content string) (gateway.Prompt, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return gateway.Prompt{}, ErrEmptyTitle
	}
	if strings.TrimSpace(content) == "" {
		return gateway.Prompt{}, ErrEmptyContent
	}
	p, err := c.api.CreatePrompt(ctx, gateway.PromptCreate{Title: title, Content: content})
	if err != nil {
		return gateway.Prompt{}, err
	}
	c.mu.Lock()
	c.items = append(c.items, p)
	c.mu.Unlock()
	return p, nil
}

// Update sends only the non-nil fields.
func (c *Catalog) Update(ctx context.Context, id string, in gateway.PromptUpdate) (gateway.Prompt, error) {
	if in.Title == nil && in.Content == nil {
		return gateway.Prompt{}, ErrEmptyUpdate
	}
	p, err := c.api.UpdatePrompt(ctx, id, in)
	if err != nil {
		return gateway.Prompt{}, err
	}
	c.mu.Lock()
	replaced := false
	for i := range c.items {
		if c.items[i].ID == p.ID {
			c.items[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		c.items = append(c.items, p)
	}
	c.mu.Unlock()
	return p, nil
}

func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.api.DeletePrompt(ctx, id); err != nil {
		return err
	}
	c.mu.Lock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	return nil
}

// Invalidate drops the cache, e.g. after logout.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.items = nil
	c.loaded = false
	c.mu.Unlock()
}

func (c *Catalog) lookup(id string) (gateway.Prompt, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.items {
		if p.ID == id {
			return p, true
		}
	}
	return gateway.Prompt{}, false
}
