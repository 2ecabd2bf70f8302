package gateway

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) ListPrompts(ctx context.Context) ([]Prompt, error) {
	var out []Prompt
	if err := c.doJSON(ctx, http.MethodGet, "/prompts", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePrompt(ctx context.Context, in PromptCreate) (Prompt, error) {
	var out Prompt
	err := c.doJSON(ctx, http.MethodPost, "/prompts", nil, in, &out)
	return out, err
}

func (c *Client) UpdatePrompt(ctx context.Context, id string, in PromptUpdate) (Prompt, error) {
	var out Prompt
	err := c.doJSON(ctx, http.MethodPut, "/prompts/"+url.PathEscape(id), nil, in, &out)
	return out, err
}

func (c *Client) DeletePrompt(ctx context.Context, id string) error {
	var out successResponse
	return c.doJSON(ctx, http.MethodDelete, "/prompts/"+url.PathEscape(id), nil, nil, &out)
}
