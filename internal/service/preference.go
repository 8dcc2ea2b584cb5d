package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"CourtSync/internal/interfaces"
	"CourtSync/internal/mailer"
	"CourtSync/internal/model"
	"CourtSync/internal/utils/slotutil"

	"github.com/sirupsen/logrus"
)

// ErrInvalidPreference submission rejected before touching the store
var ErrInvalidPreference = errors.New("invalid preference")

// Selection one requested (date, time, location)
type Selection struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
}

// PreferenceService subscription submission and lookup
type PreferenceService struct {
	repo     interfaces.PreferenceRepository
	mailer   interfaces.Mailer
	renderer *mailer.Renderer
	names    map[string]string
	siteURL  string
	logger   *logrus.Logger
}

func NewPreferenceService(
	repo interfaces.PreferenceRepository,
	m interfaces.Mailer,
	renderer *mailer.Renderer,
	adapters []interfaces.SlotAdapter,
	siteURL string,
	logger *logrus.Logger,
) *PreferenceService {
	names := make(map[string]string)
	for _, loc := range interfaces.AllLocations(adapters) {
		names[loc.Key] = loc.Name
	}
	return &PreferenceService{repo: repo, mailer: m, renderer: renderer, names: names, siteURL: siteURL, logger: logger}
}

// Replace swaps every preference of email for selections, then sends a best-effort confirmation
func (s *PreferenceService) Replace(ctx context.Context, email string, selections []Selection) ([]model.UserPreference, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(selections) == 0 {
		return nil, fmt.Errorf("%w: at least one selection is required", ErrInvalidPreference)
	}

	prefs := make([]model.UserPreference, 0, len(selections))
	seen := make(map[model.SlotKey]struct{}, len(selections))
	for i, sel := range selections {
		pref, err := s.toPreference(email, sel)
		if err != nil {
			return nil, fmt.Errorf("selection %d: %w", i, err)
		}
		k := model.SlotKey{Date: pref.Date, Time: pref.Time, Location: pref.Location}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		prefs = append(prefs, pref)
	}

	if err := s.repo.ReplacePreferences(ctx, email, prefs); err != nil {
		return nil, fmt.Errorf("replace preferences for %s: %w", email, err)
	}
	s.logger.WithFields(logrus.Fields{"email": email, "count": len(prefs)}).Info("preferences replaced")

	s.sendConfirmation(ctx, email, prefs)
	return prefs, nil
}

// List current preferences of email
func (s *PreferenceService) List(ctx context.Context, email string) ([]model.UserPreference, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	prefs, err := s.repo.ListPreferencesByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list preferences for %s: %w", email, err)
	}
	return prefs, nil
}

func (s *PreferenceService) toPreference(email string, sel Selection) (model.UserPreference, error) {
	if _, err := time.Parse(slotutil.DateLayout, sel.Date); err != nil {
		return model.UserPreference{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidPreference, sel.Date)
	}
	t, ok := slotutil.NormalizeTime(sel.Time)
	if !ok {
		return model.UserPreference{}, fmt.Errorf("%w: time %q is not HH:MM or HH:MM:SS", ErrInvalidPreference, sel.Time)
	}
	location := strings.TrimSpace(sel.Location)
	if location == "" {
		return model.UserPreference{}, fmt.Errorf("%w: location is empty", ErrInvalidPreference)
	}
	return model.UserPreference{Email: email, Date: sel.Date, Time: t, Location: location}, nil
}

func (s *PreferenceService) sendConfirmation(ctx context.Context, email string, prefs []model.UserPreference) {
	if s.mailer == nil || s.renderer == nil {
		return
	}
	data := mailer.ConfirmationData{Email: email, SiteURL: s.siteURL}
	for _, p := range prefs {
		name := s.names[p.Location]
		if name == "" {
			name = FormatLocationName(p.Location)
		}
		data.Selections = append(data.Selections, mailer.SelectionView{
			Date:     longDate(p.Date),
			Time:     shortTime(p.Time),
			Location: name,
		})
	}
	logger := s.logger.WithField("email", email)
	html, err := s.renderer.Render("confirmation", data)
	if err != nil {
		logger.WithError(err).Warn("render confirmation email failed")
		return
	}
	if err := s.mailer.Send(ctx, email, "Your tennis court alerts", html); err != nil {
		logger.WithError(err).Warn("send confirmation email failed")
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: email %q is not valid", ErrInvalidPreference, email)
	}
	return email, nil
}
