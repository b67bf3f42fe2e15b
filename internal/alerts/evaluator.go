package alerts

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mailpulse/mailpulse/internal/emails"
	"github.com/mailpulse/mailpulse/internal/slack"
)

// Rule types
const (
	RuleFirstOpen     = "first_open"
	RuleMultipleOpens = "multiple_opens"
)

// Rule describes one alert condition. Rules are modeled as data so they can
// be externalized later; today the set is the fixed DefaultRules table.
type Rule struct {
	Type       string
	Threshold  int
	TimeWindow time.Duration
	Enabled    bool
}

// DefaultRules is the built-in alert policy: notify on the very first open,
// and alert when opens burst past a threshold inside a trailing window.
func DefaultRules() []Rule {
	return []Rule{
		{Type: RuleFirstOpen, Enabled: true},
		{Type: RuleMultipleOpens, Threshold: 5, TimeWindow: 10 * time.Minute, Enabled: true},
	}
}

// Notifier is the outbound notification surface the evaluator fires into.
type Notifier interface {
	Notify(ctx context.Context, title, message, color string) error
	Alert(ctx context.Context, title, message string, fields []slack.Field) error
}

// Evaluator checks alert rules against an email's open history. Every error
// is logged and swallowed: evaluation must never block or fail the
// open-recording path.
type Evaluator struct {
	store    *emails.Store
	notifier Notifier
	rules    []Rule
}

// NewEvaluator creates an evaluator with the default rule set
func NewEvaluator(store *emails.Store, notifier Notifier) *Evaluator {
	return &Evaluator{store: store, notifier: notifier, rules: DefaultRules()}
}

// NewEvaluatorWithRules creates an evaluator with a custom rule set
func NewEvaluatorWithRules(store *emails.Store, notifier Notifier, rules []Rule) *Evaluator {
	return &Evaluator{store: store, notifier: notifier, rules: rules}
}

// Check evaluates every enabled rule for the given email. The rules are
// independent; a single open can fire zero, one, or both of them.
func (e *Evaluator) Check(ctx context.Context, emailID uuid.UUID) {
	email, err := e.store.GetEmail(ctx, emailID)
	if err != nil {
		log.Printf("[alerts] load email %s: %v", emailID, err)
		return
	}
	if email == nil {
		return
	}

	for _, rule := range e.rules {
		if !rule.Enabled {
			continue
		}

		switch rule.Type {
		case RuleFirstOpen:
			e.checkFirstOpen(ctx, email)
		case RuleMultipleOpens:
			e.checkBurst(ctx, email, rule)
		}
	}
}

func (e *Evaluator) checkFirstOpen(ctx context.Context, email *emails.Email) {
	count, err := e.store.CountOpenEvents(ctx, email.ID)
	if err != nil {
		log.Printf("[alerts] count opens email=%s: %v", email.ID, err)
		return
	}
	if count != 1 {
		return
	}

	err = e.notifier.Notify(ctx,
		"🎯 First Email Open",
		fmt.Sprintf("Your email %q was just opened for the first time!", email.Subject),
		slack.ColorGood)
	if err != nil {
		log.Printf("[alerts] first-open notification email=%s: %v", email.ID, err)
	}
}

func (e *Evaluator) checkBurst(ctx context.Context, email *emails.Email, rule Rule) {
	if rule.Threshold <= 0 || rule.TimeWindow <= 0 {
		return
	}

	since := time.Now().Add(-rule.TimeWindow)
	count, err := e.store.CountOpenEventsSince(ctx, email.ID, since)
	if err != nil {
		log.Printf("[alerts] count recent opens email=%s: %v", email.ID, err)
		return
	}
	if count < rule.Threshold {
		return
	}

	window := fmt.Sprintf("%d minutes", int(rule.TimeWindow.Minutes()))
	err = e.notifier.Alert(ctx,
		"🔥 High Email Activity",
		fmt.Sprintf("Your email %q has been opened %d times in the last %s!", email.Subject, count, window),
		[]slack.Field{
			{Title: "Opens", Value: fmt.Sprintf("%d", count), Short: true},
			{Title: "Time Window", Value: window, Short: true},
		})
	if err != nil {
		log.Printf("[alerts] burst alert email=%s: %v", email.ID, err)
	}
}
