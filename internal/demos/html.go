package demos

import (
	"context"
	"html"
	"strings"

	"github.com/telhawk-systems/mirror-notify/internal/models"
)

// HTMLCard renders shared text into a timeline card. Items that carry no text
// are ignored.
type HTMLCard struct{}

func NewHTMLCard() *HTMLCard { return &HTMLCard{} }

func (h *HTMLCard) Name() string { return "html" }

func (h *HTMLCard) HandleItem(ctx context.Context, item models.Resource) (models.Resource, error) {
	text := strings.TrimSpace(item.String("text"))
	if text == "" {
		return nil, nil
	}

	var b strings.Builder
	b.WriteString(`<article><section><p class="text-auto-size">`)
	b.WriteString(html.EscapeString(text))
	b.WriteString(`</p></section><footer><p>Shared with mirror-notify</p></footer></article>`)

	card := models.Resource{"html": b.String()}
	if id := item.ID(); id != "" {
		card["bundleId"] = id
	}
	return card, nil
}
