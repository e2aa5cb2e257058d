package advisor

import (
	"context"
	"strings"
	"time"
)

const (
	replyGreeting = "سلام دوست عزیز! خوش اومدی به Under the Skin. (حالت آزمایشی)"
	replyPricing  = "برای دیدن قیمت‌ها لطفا به بخش فروشگاه مراجعه کنید. ما بهترین قیمت‌ها رو داریم!"
	replySkin     = "برای سلامت پوست، محصول Marine Collagen ما عالیه. باعث شفافیت و کاهش چروک میشه."
	replyDemo     = "من الان در حالت دمو هستم. وقتی API Key واقعی رو گرفتی، می‌تونم دقیق‌تر راهنماییت کنم!"
)

type rule struct {
	keywords []string
	reply    string
}

// Checked in order; the first match wins.
var rules = []rule{
	{keywords: []string{"سلام"}, reply: replyGreeting},
	{keywords: []string{"قیمت", "خرید"}, reply: replyPricing},
	{keywords: []string{"پوست", "کلاژن"}, reply: replySkin},
}

// Local answers from canned replies after a simulated delay. It is used
// when no API key is configured.
type Local struct {
	Delay time.Duration
}

// NewLocal returns a demo strategy with the given latency.
func NewLocal(delay time.Duration) *Local {
	return &Local{Delay: delay}
}

func (l *Local) Mode() Mode { return ModeDemo }

// Respond waits for the delay and picks the first rule whose keyword
// occurs in text.
func (l *Local) Respond(ctx context.Context, text string) (string, error) {
	if l.Delay > 0 {
		timer := time.NewTimer(l.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return cannedReply(text), nil
}

func cannedReply(text string) string {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.reply
			}
		}
	}
	return replyDemo
}
