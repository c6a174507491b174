package demos

import (
	"context"
	"strings"

	"github.com/telhawk-systems/mirror-notify/internal/models"
)

// Echo replies to a shared item with its own text.
type Echo struct{}

func NewEcho() *Echo { return &Echo{} }

func (e *Echo) Name() string { return "echo" }

func (e *Echo) HandleItem(ctx context.Context, item models.Resource) (models.Resource, error) {
	text := strings.TrimSpace(item.String("text"))
	if text == "" {
		return nil, nil
	}
	return models.Resource{
		"text": "Echo: " + text,
		"notification": map[string]any{
			"level": "DEFAULT",
		},
	}, nil
}
