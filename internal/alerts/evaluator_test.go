package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailpulse/mailpulse/internal/emails"
	"github.com/mailpulse/mailpulse/internal/slack"
)

type fakeNotifier struct {
	notifications []string
	alerts        []string
	alertFields   [][]slack.Field
}

func (f *fakeNotifier) Notify(ctx context.Context, title, message, color string) error {
	f.notifications = append(f.notifications, message)
	return nil
}

func (f *fakeNotifier) Alert(ctx context.Context, title, message string, fields []slack.Field) error {
	f.alerts = append(f.alerts, message)
	f.alertFields = append(f.alertFields, fields)
	return nil
}

func setupEvaluator(t *testing.T) (*Evaluator, sqlmock.Sqlmock, *fakeNotifier, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	notifier := &fakeNotifier{}
	e := NewEvaluator(emails.NewStore(db), notifier)
	return e, mock, notifier, func() { db.Close() }
}

func expectEmail(mock sqlmock.Sqlmock, id uuid.UUID, subject string) {
	rows := sqlmock.NewRows([]string{"id", "user_id", "subject", "to_hash", "message_id", "sent_at", "pixel_token", "status"}).
		AddRow(id.String(), "u", subject, "hash", "m", time.Now(), "tok", emails.StatusOpened)
	mock.ExpectQuery("SELECT (.+) FROM emails WHERE id").
		WithArgs(id).
		WillReturnRows(rows)
}

func expectCounts(mock sqlmock.Sqlmock, id uuid.UUID, total, recent int) {
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(total))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(id, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(recent))
}

func TestCheck_FirstOpenFires(t *testing.T) {
	e, mock, notifier, cleanup := setupEvaluator(t)
	defer cleanup()

	id := uuid.New()
	expectEmail(mock, id, "Quarterly report")
	expectCounts(mock, id, 1, 1)

	e.Check(context.Background(), id)

	require.Len(t, notifier.notifications, 1)
	assert.Contains(t, notifier.notifications[0], "Quarterly report")
	assert.Empty(t, notifier.alerts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheck_SecondOpenStaysQuiet(t *testing.T) {
	e, mock, notifier, cleanup := setupEvaluator(t)
	defer cleanup()

	id := uuid.New()
	expectEmail(mock, id, "Quarterly report")
	expectCounts(mock, id, 2, 2)

	e.Check(context.Background(), id)

	assert.Empty(t, notifier.notifications)
	assert.Empty(t, notifier.alerts)
}

func TestCheck_BurstFiresWithObservedCount(t *testing.T) {
	e, mock, notifier, cleanup := setupEvaluator(t)
	defer cleanup()

	id := uuid.New()
	expectEmail(mock, id, "Launch announce")
	expectCounts(mock, id, 6, 6)

	e.Check(context.Background(), id)

	assert.Empty(t, notifier.notifications)
	require.Len(t, notifier.alerts, 1)
	assert.Contains(t, notifier.alerts[0], "opened 6 times")
	assert.Contains(t, notifier.alerts[0], "10 minutes")

	require.Len(t, notifier.alertFields[0], 2)
	assert.Equal(t, "Opens", notifier.alertFields[0][0].Title)
	assert.Equal(t, "6", notifier.alertFields[0][0].Value)
	assert.Equal(t, "Time Window", notifier.alertFields[0][1].Title)
	assert.Equal(t, "10 minutes", notifier.alertFields[0][1].Value)
}

func TestCheck_BothRulesIndependent(t *testing.T) {
	// Pathological but possible: a single recorded open that also meets the
	// burst threshold with a threshold-1 rule set fires both rules.
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	notifier := &fakeNotifier{}
	rules := []Rule{
		{Type: RuleFirstOpen, Enabled: true},
		{Type: RuleMultipleOpens, Threshold: 1, TimeWindow: 10 * time.Minute, Enabled: true},
	}
	e := NewEvaluatorWithRules(emails.NewStore(db), notifier, rules)

	id := uuid.New()
	expectEmail(mock, id, "Both")
	expectCounts(mock, id, 1, 1)

	e.Check(context.Background(), id)

	assert.Len(t, notifier.notifications, 1)
	assert.Len(t, notifier.alerts, 1)
}

func TestCheck_DisabledRulesSkipped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	notifier := &fakeNotifier{}
	rules := []Rule{
		{Type: RuleFirstOpen, Enabled: false},
		{Type: RuleMultipleOpens, Threshold: 5, TimeWindow: 10 * time.Minute, Enabled: false},
	}
	e := NewEvaluatorWithRules(emails.NewStore(db), notifier, rules)

	id := uuid.New()
	expectEmail(mock, id, "Quiet")
	// No count queries expected at all

	e.Check(context.Background(), id)

	assert.Empty(t, notifier.notifications)
	assert.Empty(t, notifier.alerts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheck_MissingEmailIsSilent(t *testing.T) {
	e, mock, notifier, cleanup := setupEvaluator(t)
	defer cleanup()

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM emails WHERE id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	e.Check(context.Background(), id)

	assert.Empty(t, notifier.notifications)
	assert.Empty(t, notifier.alerts)
}

func TestCheck_QueryFailureIsSwallowed(t *testing.T) {
	e, mock, notifier, cleanup := setupEvaluator(t)
	defer cleanup()

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM emails WHERE id").
		WithArgs(id).
		WillReturnError(assert.AnError)

	// Must not panic or propagate; the pixel path depends on it
	e.Check(context.Background(), id)

	assert.Empty(t, notifier.notifications)
	assert.Empty(t, notifier.alerts)
}

// Two concurrent first opens can each observe count == 1 and both fire the
// first-open notification. The check is deliberately unguarded: duplicate
// notifications under that race are accepted, single-fire is not a contract.
func TestCheck_FirstOpenRaceIsAccepted(t *testing.T) {
	e, mock, notifier, cleanup := setupEvaluator(t)
	defer cleanup()

	id := uuid.New()
	expectEmail(mock, id, "Raced")
	expectCounts(mock, id, 1, 1)
	expectEmail(mock, id, "Raced")
	expectCounts(mock, id, 1, 1)

	e.Check(context.Background(), id)
	e.Check(context.Background(), id)

	assert.Len(t, notifier.notifications, 2)
}
