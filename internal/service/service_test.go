package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"CourtSync/internal/config"
	"CourtSync/internal/interfaces"
	"CourtSync/internal/mailer"
	"CourtSync/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeAdapter struct {
	platform model.PlatformType
	slots    []model.CanonicalSlot
	err      error
	calls    int
}

func (f *fakeAdapter) GetType() model.PlatformType { return f.platform }

func (f *fakeAdapter) FetchAll(_ context.Context, _ []string) ([]model.CanonicalSlot, error) {
	f.calls++
	return f.slots, f.err
}

func (f *fakeAdapter) BookingURL(slot model.CanonicalSlot) (string, bool) {
	for _, s := range f.slots {
		if s.Location == slot.Location {
			return "https://book.example/" + slot.Location + "/" + slot.Date, true
		}
	}
	return "", false
}

func (f *fakeAdapter) Locations() []interfaces.Location {
	return []interfaces.Location{{Key: "venue-a/tennis", Name: "Venue A - Tennis", Platform: f.platform}}
}

type fakeSlotRepo struct {
	stored   []model.StoredSlot
	readErr  error
	writeErr error
	written  []model.CanonicalSlot
}

func (r *fakeSlotRepo) ListSlots(context.Context) ([]model.StoredSlot, error) {
	return r.stored, r.readErr
}

func (r *fakeSlotRepo) ReplaceSlots(_ context.Context, slots []model.CanonicalSlot) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	r.written = slots
	return nil
}

type fakePrefRepo struct {
	prefs    []model.UserPreference
	err      error
	replaced map[string][]model.UserPreference
}

func (r *fakePrefRepo) ListPreferences(context.Context) ([]model.UserPreference, error) {
	return r.prefs, r.err
}

func (r *fakePrefRepo) ListPreferencesByEmail(_ context.Context, email string) ([]model.UserPreference, error) {
	var res []model.UserPreference
	for _, p := range r.prefs {
		if p.Email == email {
			res = append(res, p)
		}
	}
	return res, r.err
}

func (r *fakePrefRepo) ReplacePreferences(_ context.Context, email string, prefs []model.UserPreference) error {
	if r.err != nil {
		return r.err
	}
	if r.replaced == nil {
		r.replaced = make(map[string][]model.UserPreference)
	}
	r.replaced[email] = prefs
	return nil
}

type fakeRunRepo struct {
	runs []*model.SyncRun
}

func (r *fakeRunRepo) SaveRun(_ context.Context, run *model.SyncRun) error {
	r.runs = append(r.runs, run)
	return nil
}

type sentMail struct {
	to, subject, html string
}

type fakeMailer struct {
	mu     sync.Mutex
	sent   []sentMail
	failTo string
}

func (m *fakeMailer) Send(_ context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if to == m.failTo {
		return errors.New("smtp refused")
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, html: html})
	return nil
}

func newRenderer(t *testing.T) *mailer.Renderer {
	t.Helper()
	r, err := mailer.NewRenderer()
	require.NoError(t, err)
	return r
}

func slot(date, clock, location string, spaces int) model.CanonicalSlot {
	return model.CanonicalSlot{Date: date, Time: clock, Location: location, Spaces: spaces}
}

func stored(date, clock, location string, spaces int) model.StoredSlot {
	return model.NewStoredSlot(slot(date, clock, location, spaces))
}

func TestFindTransitions(t *testing.T) {
	tests := []struct {
		name     string
		previous []model.StoredSlot
		current  []model.CanonicalSlot
		want     []model.TransitionSlot
	}{
		{
			name:     "zero to positive emits a transition",
			previous: []model.StoredSlot{stored("2024-06-01", "18:00:00", "venueA/tennis", 0)},
			current:  []model.CanonicalSlot{slot("2024-06-01", "18:00:00", "venueA/tennis", 2)},
			want: []model.TransitionSlot{{
				CanonicalSlot:  slot("2024-06-01", "18:00:00", "venueA/tennis", 2),
				PreviousSpaces: 0,
				CurrentSpaces:  2,
			}},
		},
		{
			name:    "first seen slot never transitions",
			current: []model.CanonicalSlot{slot("2024-06-01", "18:00:00", "venueA/tennis", 2)},
		},
		{
			name:     "already available stays silent",
			previous: []model.StoredSlot{stored("2024-06-01", "18:00:00", "venueA/tennis", 1)},
			current:  []model.CanonicalSlot{slot("2024-06-01", "18:00:00", "venueA/tennis", 4)},
		},
		{
			name:     "still booked stays silent",
			previous: []model.StoredSlot{stored("2024-06-01", "18:00:00", "venueA/tennis", 0)},
			current:  []model.CanonicalSlot{slot("2024-06-01", "18:00:00", "venueA/tennis", 0)},
		},
		{
			name:     "different location does not match",
			previous: []model.StoredSlot{stored("2024-06-01", "18:00:00", "venueB/tennis", 0)},
			current:  []model.CanonicalSlot{slot("2024-06-01", "18:00:00", "venueA/tennis", 3)},
		},
		{
			name:     "duplicate current key reported once",
			previous: []model.StoredSlot{stored("2024-06-01", "18:00:00", "venueA/tennis", 0)},
			current: []model.CanonicalSlot{
				slot("2024-06-01", "18:00:00", "venueA/tennis", 1),
				slot("2024-06-01", "18:00:00", "venueA/tennis", 5),
			},
			want: []model.TransitionSlot{{
				CanonicalSlot:  slot("2024-06-01", "18:00:00", "venueA/tennis", 1),
				PreviousSpaces: 0,
				CurrentSpaces:  1,
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FindTransitions(tt.previous, tt.current))
		})
	}
}

func TestDiffService_GetPreviousStateReadFailure(t *testing.T) {
	repo := &fakeSlotRepo{readErr: errors.New("connection refused")}
	s := NewDiffService(repo, testLogger())
	require.Empty(t, s.GetPreviousState(context.Background()))
}

func TestMatchPreferences(t *testing.T) {
	tr := func(date, clock, location string) model.TransitionSlot {
		return model.TransitionSlot{CanonicalSlot: slot(date, clock, location, 1), CurrentSpaces: 1}
	}

	tests := []struct {
		name        string
		transitions []model.TransitionSlot
		prefs       []model.UserPreference
		want        []model.UserNotification
	}{
		{
			name:        "HH:MM preference matches HH:MM:SS slot",
			transitions: []model.TransitionSlot{tr("2024-06-01", "14:00:00", "venueA/tennis")},
			prefs:       []model.UserPreference{{Email: "a@example.com", Date: "2024-06-01", Time: "14:00", Location: "venueA/tennis"}},
			want: []model.UserNotification{{
				Email: "a@example.com",
				Slots: []model.TransitionSlot{tr("2024-06-01", "14:00:00", "venueA/tennis")},
			}},
		},
		{
			name:        "different location, date or time never matches",
			transitions: []model.TransitionSlot{tr("2024-06-01", "14:00:00", "venueA/tennis")},
			prefs: []model.UserPreference{
				{Email: "a@example.com", Date: "2024-06-01", Time: "14:00", Location: "venueB/tennis"},
				{Email: "a@example.com", Date: "2024-06-02", Time: "14:00", Location: "venueA/tennis"},
				{Email: "a@example.com", Date: "2024-06-01", Time: "15:00:00", Location: "venueA/tennis"},
			},
		},
		{
			name: "one notification per email with every matched slot",
			transitions: []model.TransitionSlot{
				tr("2024-06-01", "18:00:00", "venueA/tennis"),
				tr("2024-06-01", "19:00:00", "venueA/tennis"),
			},
			prefs: []model.UserPreference{
				{Email: "a@example.com", Date: "2024-06-01", Time: "18:00:00", Location: "venueA/tennis"},
				{Email: "b@example.com", Date: "2024-06-01", Time: "19:00", Location: "venueA/tennis"},
				{Email: "a@example.com", Date: "2024-06-01", Time: "19:00", Location: "venueA/tennis"},
			},
			want: []model.UserNotification{
				{Email: "a@example.com", Slots: []model.TransitionSlot{
					tr("2024-06-01", "18:00:00", "venueA/tennis"),
					tr("2024-06-01", "19:00:00", "venueA/tennis"),
				}},
				{Email: "b@example.com", Slots: []model.TransitionSlot{
					tr("2024-06-01", "19:00:00", "venueA/tennis"),
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, MatchPreferences(tt.transitions, tt.prefs))
		})
	}
}

func TestSubject(t *testing.T) {
	one := []model.TransitionSlot{{CanonicalSlot: slot("2024-06-03", "18:00:00", "x", 1)}}
	require.Equal(t, "Tennis Court Available - Monday, 3 June 2024 at 18:00", Subject(one))

	two := append(one, model.TransitionSlot{CanonicalSlot: slot("2024-06-03", "19:00:00", "x", 1)})
	require.Equal(t, "2 Tennis Courts Now Available", Subject(two))
}

func TestFormatLocationName(t *testing.T) {
	require.Equal(t, "Islington Tennis Centre / Tennis Court Outdoor", FormatLocationName("islington-tennis-centre/tennis-court-outdoor"))
	require.Equal(t, "Finsbury Park", FormatLocationName("finsbury-park"))
}

func TestSendNotificationEmails(t *testing.T) {
	adapter := &fakeAdapter{platform: model.PlatformBetter, slots: []model.CanonicalSlot{slot("2024-06-03", "18:00:00", "venue-a/tennis", 1)}}
	m := &fakeMailer{failTo: "broken@example.com"}
	s := NewNotificationService(&fakePrefRepo{}, m, newRenderer(t), []interfaces.SlotAdapter{adapter}, "https://courts.example", testLogger())

	late := model.TransitionSlot{CanonicalSlot: slot("2024-06-03", "19:00:00", "venue-a/tennis", 2), CurrentSpaces: 2}
	early := model.TransitionSlot{CanonicalSlot: slot("2024-06-03", "18:00:00", "venue-a/tennis", 1), CurrentSpaces: 1}
	notifications := []model.UserNotification{
		{Email: "broken@example.com", Slots: []model.TransitionSlot{early}},
		{Email: "a@example.com", Slots: []model.TransitionSlot{late, early}},
	}

	attempted := s.SendNotificationEmails(context.Background(), notifications)
	require.Equal(t, 2, attempted)
	require.Len(t, m.sent, 1)
	require.Equal(t, "a@example.com", m.sent[0].to)
	require.Equal(t, "2 Tennis Courts Now Available", m.sent[0].subject)
	require.Contains(t, m.sent[0].html, "Venue A - Tennis")
	require.Contains(t, m.sent[0].html, "Book on Better")
	require.Less(t, strings.Index(m.sent[0].html, "18:00"), strings.Index(m.sent[0].html, "19:00"))
}

type panickingAdapter struct{}

func (panickingAdapter) GetType() model.PlatformType { return model.PlatformLTA }

func (panickingAdapter) FetchAll(context.Context, []string) ([]model.CanonicalSlot, error) {
	panic("index out of range")
}

// blockingAdapter holds FetchAll until release is closed
type blockingAdapter struct {
	calls   int32
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingAdapter) GetType() model.PlatformType { return model.PlatformBetter }

func (b *blockingAdapter) FetchAll(context.Context, []string) ([]model.CanonicalSlot, error) {
	atomic.AddInt32(&b.calls, 1)
	b.once.Do(func() { close(b.started) })
	<-b.release
	return []model.CanonicalSlot{slot("2024-06-01", "18:00:00", "venue-a/tennis", 1)}, nil
}

func newSyncService(t *testing.T, adapters []interfaces.SlotAdapter, slots *fakeSlotRepo, prefs *fakePrefRepo, m *fakeMailer, runs *fakeRunRepo) *SyncService {
	t.Helper()
	logger := testLogger()
	notifier := NewNotificationService(prefs, m, newRenderer(t), adapters, "", logger)
	s := NewSyncService(adapters, NewDiffService(slots, logger), notifier, runs,
		config.SyncConfig{DaysToFetch: 6, MaxDays: 30, Timezone: "Europe/London", SampleSize: 2}, logger)
	s.now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestSyncService_Run(t *testing.T) {
	t.Run("failing provider is skipped and the run still succeeds", func(t *testing.T) {
		ok1 := &fakeAdapter{platform: model.PlatformBetter, slots: []model.CanonicalSlot{slot("2024-06-01", "18:00:00", "venue-a/tennis", 1)}}
		broken := &fakeAdapter{platform: model.PlatformLTA, err: errors.New("upstream down")}
		ok2 := &fakeAdapter{platform: model.PlatformTowerHamlets, slots: []model.CanonicalSlot{slot("2024-06-01", "19:00:00", "bethnal-green-gardens", 0)}}
		slots := &fakeSlotRepo{}
		runs := &fakeRunRepo{}

		s := newSyncService(t, []interfaces.SlotAdapter{ok1, broken, ok2}, slots, &fakePrefRepo{}, &fakeMailer{}, runs)
		summary := s.Run(context.Background(), 0)

		require.True(t, summary.Success)
		require.Empty(t, summary.Error)
		require.Equal(t, 2, summary.TotalSlots)
		require.Equal(t, []string{"better", "towerhamlets"}, summary.ProvidersProcessed)
		require.Len(t, summary.DatesProcessed, 6)
		require.Equal(t, "2024-06-01", summary.DatesProcessed[0])
		require.Len(t, slots.written, 2)
		require.Len(t, runs.runs, 1)
		require.True(t, runs.runs[0].Success)
		require.NotEmpty(t, summary.RunID)
	})

	t.Run("zero to positive notifies the subscriber", func(t *testing.T) {
		a := &fakeAdapter{platform: model.PlatformBetter, slots: []model.CanonicalSlot{slot("2024-06-01", "18:00:00", "venue-a/tennis", 2)}}
		slots := &fakeSlotRepo{stored: []model.StoredSlot{stored("2024-06-01", "18:00:00", "venue-a/tennis", 0)}}
		prefs := &fakePrefRepo{prefs: []model.UserPreference{{Email: "a@example.com", Date: "2024-06-01", Time: "18:00", Location: "venue-a/tennis"}}}
		m := &fakeMailer{}

		s := newSyncService(t, []interfaces.SlotAdapter{a}, slots, prefs, m, &fakeRunRepo{})
		summary := s.Run(context.Background(), 3)

		require.True(t, summary.Success)
		require.Equal(t, 1, summary.NewlyAvailable)
		require.Equal(t, 1, summary.NotificationsSent)
		require.Len(t, m.sent, 1)
		require.Equal(t, "Tennis Court Available - Saturday, 1 June 2024 at 18:00", m.sent[0].subject)
		require.Len(t, summary.DatesProcessed, 3)
	})

	t.Run("snapshot write failure fails the run", func(t *testing.T) {
		a := &fakeAdapter{platform: model.PlatformBetter, slots: []model.CanonicalSlot{slot("2024-06-01", "18:00:00", "venue-a/tennis", 2)}}
		slots := &fakeSlotRepo{writeErr: errors.New("disk full")}
		runs := &fakeRunRepo{}

		s := newSyncService(t, []interfaces.SlotAdapter{a}, slots, &fakePrefRepo{}, &fakeMailer{}, runs)
		summary := s.Run(context.Background(), 0)

		require.False(t, summary.Success)
		require.Contains(t, summary.Error, "disk full")
		require.Len(t, runs.runs, 1)
		require.NotNil(t, runs.runs[0].Error)
	})

	t.Run("panicking provider counts as zero slots", func(t *testing.T) {
		ok := &fakeAdapter{platform: model.PlatformBetter, slots: []model.CanonicalSlot{slot("2024-06-01", "18:00:00", "venue-a/tennis", 1)}}
		slots := &fakeSlotRepo{}

		s := newSyncService(t, []interfaces.SlotAdapter{ok, panickingAdapter{}}, slots, &fakePrefRepo{}, &fakeMailer{}, &fakeRunRepo{})
		summary := s.Run(context.Background(), 0)

		require.True(t, summary.Success)
		require.Equal(t, 1, summary.TotalSlots)
		require.Equal(t, []string{"better"}, summary.ProvidersProcessed)
		require.Len(t, slots.written, 1)
	})

	t.Run("overlapping calls share one run", func(t *testing.T) {
		a := &blockingAdapter{started: make(chan struct{}), release: make(chan struct{})}
		runs := &fakeRunRepo{}
		s := newSyncService(t, []interfaces.SlotAdapter{a}, &fakeSlotRepo{}, &fakePrefRepo{}, &fakeMailer{}, runs)

		results := make([]*model.RunSummary, 2)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[0] = s.Run(context.Background(), 3)
		}()
		<-a.started

		wg.Add(1)
		go func() {
			defer wg.Done()
			results[1] = s.Run(context.Background(), 7)
		}()
		// let the second caller reach the in-flight run before it completes
		time.Sleep(100 * time.Millisecond)
		close(a.release)
		wg.Wait()

		require.Equal(t, int32(1), atomic.LoadInt32(&a.calls))
		require.Equal(t, results[0].RunID, results[1].RunID)
		require.Len(t, results[1].DatesProcessed, 3)
		require.Len(t, runs.runs, 1)
	})

	t.Run("days are capped at the configured maximum", func(t *testing.T) {
		s := newSyncService(t, nil, &fakeSlotRepo{}, &fakePrefRepo{}, &fakeMailer{}, &fakeRunRepo{})
		summary := s.Run(context.Background(), 90)
		require.Len(t, summary.DatesProcessed, 30)
	})
}

func TestPreferenceService_Replace(t *testing.T) {
	a := &fakeAdapter{platform: model.PlatformBetter}

	tests := []struct {
		name       string
		email      string
		selections []Selection
		wantErr    bool
		wantTimes  []string
	}{
		{
			name:  "normalises and stores selections",
			email: " A@Example.com ",
			selections: []Selection{
				{Date: "2024-06-01", Time: "18:00", Location: "venue-a/tennis"},
				{Date: "2024-06-01", Time: "19:00:00", Location: "venue-a/tennis"},
				{Date: "2024-06-01", Time: "18:00:00", Location: "venue-a/tennis"},
			},
			wantTimes: []string{"18:00:00", "19:00:00"},
		},
		{name: "bad email", email: "not-an-email", selections: []Selection{{Date: "2024-06-01", Time: "18:00", Location: "x"}}, wantErr: true},
		{name: "no selections", email: "a@example.com", wantErr: true},
		{name: "bad date", email: "a@example.com", selections: []Selection{{Date: "01/06/2024", Time: "18:00", Location: "x"}}, wantErr: true},
		{name: "bad time", email: "a@example.com", selections: []Selection{{Date: "2024-06-01", Time: "7pm", Location: "x"}}, wantErr: true},
		{name: "empty location", email: "a@example.com", selections: []Selection{{Date: "2024-06-01", Time: "18:00", Location: " "}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakePrefRepo{}
			m := &fakeMailer{}
			s := NewPreferenceService(repo, m, newRenderer(t), []interfaces.SlotAdapter{a}, "", testLogger())

			prefs, err := s.Replace(context.Background(), tt.email, tt.selections)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPreference)
				require.Empty(t, repo.replaced)
				require.Empty(t, m.sent)
				return
			}
			require.NoError(t, err)
			var times []string
			for _, p := range prefs {
				require.Equal(t, "a@example.com", p.Email)
				times = append(times, p.Time)
			}
			require.Equal(t, tt.wantTimes, times)
			require.Len(t, repo.replaced["a@example.com"], len(tt.wantTimes))
			require.Len(t, m.sent, 1)
			require.Contains(t, m.sent[0].html, "Venue A - Tennis")
		})
	}
}
