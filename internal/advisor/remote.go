package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/underskin/storefront/internal/catalog"
	"github.com/underskin/storefront/internal/gemini"
)

// FallbackText is the reply when the model returns no text.
const FallbackText = "متوجه نشدم، لطفا دوباره بپرسید."

// Completer sends a single prompt with a system instruction.
// *gemini.Client implements it.
type Completer interface {
	GenerateContent(ctx context.Context, systemInstruction, prompt string) (string, error)
}

// Remote answers through a language model primed with the catalog.
type Remote struct {
	completer   Completer
	instruction string
}

// NewRemote builds the system instruction from products once.
func NewRemote(c Completer, products []catalog.Product) *Remote {
	return &Remote{completer: c, instruction: BuildInstruction(products)}
}

func (r *Remote) Mode() Mode { return ModeRemote }

// Instruction returns the system instruction sent with every request.
func (r *Remote) Instruction() string { return r.instruction }

func (r *Remote) Respond(ctx context.Context, text string) (string, error) {
	reply, err := r.completer.GenerateContent(ctx, r.instruction, text)
	if errors.Is(err, gemini.ErrEmptyResponse) || (err == nil && strings.TrimSpace(reply) == "") {
		return FallbackText, nil
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}

// BuildInstruction describes every product to the model and sets the
// tone of the conversation.
func BuildInstruction(products []catalog.Product) string {
	blocks := make([]string, 0, len(products))
	for _, p := range products {
		blocks = append(blocks, fmt.Sprintf("نام محصول: %s (%s)\nفواید: %s\nنحوه مصرف: %s\nترکیبات: %s",
			p.Name, p.Subtitle,
			strings.Join(p.Benefits, ", "),
			p.Dosage,
			strings.Join(p.Ingredients, ", "),
		))
	}
	return "شما مشاور برند Under the Skin هستید. اطلاعات محصولات: " +
		strings.Join(blocks, "\n\n") +
		"\nفقط فارسی صحبت کنید. کوتاه و صمیمی پاسخ دهید."
}
