// Package voices manages the ordered voice catalog and the default voice id,
// both kept in the settings key/value store.
package voices

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/m3rciful/voicebot/core/logger"
)

const (
	// KeyCatalog holds the JSON encoded catalog.
	KeyCatalog = "models_json"
	// KeyDefaultVoice holds the id of the default voice.
	KeyDefaultVoice = "default_voice_id"
)

var (
	// ErrIndexOutOfRange is returned for positions outside the current catalog.
	ErrIndexOutOfRange = errors.New("voices: index out of range")
	// ErrInvalidProfile wraps validation failures; nothing is written when it is returned.
	ErrInvalidProfile = errors.New("voices: invalid profile")
)

// Profile is a single voice entry.
type Profile struct {
	ID   string `json:"id" validate:"required,min=10"`
	Name string `json:"name" validate:"required"`
}

// SettingsStore is the subset of the ledger used for persistence.
type SettingsStore interface {
	GetSetting(ctx context.Context, key, def string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Config describes the built-in catalog.
type Config struct {
	Defaults   []Profile
	FallbackID string
}

// Manager implements catalog operations. Writes from this process are serialized;
// concurrent writers elsewhere follow last-write-wins.
type Manager struct {
	store      SettingsStore
	defaults   []Profile
	fallbackID string
	validate   *validator.Validate

	mu sync.Mutex
}

// NewManager validates the default catalog and returns a ready manager.
// An empty FallbackID falls back to the first default entry.
func NewManager(store SettingsStore, cfg Config) (*Manager, error) {
	if store == nil {
		return nil, errors.New("voices: nil settings store")
	}
	m := &Manager{
		store:    store,
		defaults: normalize(cfg.Defaults),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	if len(m.defaults) == 0 {
		return nil, errors.New("voices: default catalog is empty")
	}
	if err := m.check(m.defaults); err != nil {
		return nil, fmt.Errorf("voices: default catalog: %w", err)
	}
	m.fallbackID = strings.TrimSpace(cfg.FallbackID)
	if m.fallbackID == "" {
		m.fallbackID = m.defaults[0].ID
	}
	return m, nil
}

// Defaults returns a copy of the configured default catalog.
func (m *Manager) Defaults() []Profile {
	return clone(m.defaults)
}

// Load returns the stored catalog. Missing, malformed or empty data yields the
// default catalog; only store failures are returned as errors.
func (m *Manager) Load(ctx context.Context) ([]Profile, error) {
	raw, err := m.store.GetSetting(ctx, KeyCatalog, "")
	if err != nil {
		return nil, err
	}
	if catalog := decode(raw); len(catalog) > 0 {
		return catalog, nil
	}
	if strings.TrimSpace(raw) != "" {
		logger.VOICES.Warn("stored catalog unusable, using defaults",
			slog.String("event", "catalog.load"),
			slog.Int("raw_len", len(raw)),
		)
	}
	return m.Defaults(), nil
}

// Save validates every profile and persists the catalog. An empty catalog is
// stored as-is and reads back as the defaults.
func (m *Manager) Save(ctx context.Context, catalog []Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(catalog); err != nil {
		return err
	}
	return m.save(ctx, catalog)
}

// save persists the catalog as given. Entries loaded from storage are not
// revalidated so an old short id never blocks edits to other entries.
func (m *Manager) save(ctx context.Context, catalog []Profile) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if catalog == nil {
		catalog = []Profile{}
	}
	if err := enc.Encode(catalog); err != nil {
		return fmt.Errorf("voices: encode catalog: %w", err)
	}
	if err := m.store.SetSetting(ctx, KeyCatalog, strings.TrimSpace(buf.String())); err != nil {
		return err
	}
	logger.VOICES.Debug("catalog saved",
		slog.String("event", "catalog.save"),
		slog.Int("voices", len(catalog)),
	)
	return nil
}

// Add appends a profile; an empty name defaults to the id.
func (m *Manager) Add(ctx context.Context, p Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	catalog, err := m.Load(ctx)
	if err != nil {
		return err
	}
	p = withName(p)
	if err := m.checkOne(p); err != nil {
		return err
	}
	catalog = append(catalog, p)
	if err := m.save(ctx, catalog); err != nil {
		return err
	}
	logger.VOICES.Info("voice added",
		slog.String("event", "voice.add"),
		slog.String("voice_id", p.ID),
		slog.Int("voices", len(catalog)),
	)
	return nil
}

// EditAt replaces the id (and the name, unless name is empty) of the entry at
// index. When no default voice is stored yet, the first entry becomes the default.
func (m *Manager) EditAt(ctx context.Context, index int, id, name string) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	catalog, err := m.Load(ctx)
	if err != nil {
		return Profile{}, err
	}
	if index < 0 || index >= len(catalog) {
		return Profile{}, ErrIndexOutOfRange
	}
	updated := Profile{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)}
	if updated.Name == "" {
		updated.Name = catalog[index].Name
	}
	if err := m.checkOne(updated); err != nil {
		return Profile{}, err
	}
	catalog[index] = updated
	if err := m.save(ctx, catalog); err != nil {
		return Profile{}, err
	}
	current, err := m.store.GetSetting(ctx, KeyDefaultVoice, "")
	if err != nil {
		return Profile{}, err
	}
	if strings.TrimSpace(current) == "" {
		if err := m.store.SetSetting(ctx, KeyDefaultVoice, catalog[0].ID); err != nil {
			return Profile{}, err
		}
	}
	logger.VOICES.Info("voice edited",
		slog.String("event", "voice.edit"),
		slog.Int("index", index),
		slog.String("voice_id", updated.ID),
	)
	return updated, nil
}

// RemoveAt deletes the entry at index. Removing the default voice moves the
// default to the new first entry, or to the fallback id when nothing is left.
func (m *Manager) RemoveAt(ctx context.Context, index int) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	catalog, err := m.Load(ctx)
	if err != nil {
		return Profile{}, err
	}
	if index < 0 || index >= len(catalog) {
		return Profile{}, ErrIndexOutOfRange
	}
	removed := catalog[index]
	catalog = append(catalog[:index:index], catalog[index+1:]...)
	if err := m.save(ctx, catalog); err != nil {
		return Profile{}, err
	}

	current, err := m.defaultVoiceID(ctx)
	if err != nil {
		return Profile{}, err
	}
	if removed.ID == current {
		next := m.fallbackID
		if len(catalog) > 0 {
			next = catalog[0].ID
		}
		if err := m.store.SetSetting(ctx, KeyDefaultVoice, next); err != nil {
			return Profile{}, err
		}
		logger.VOICES.Info("default voice reassigned",
			slog.String("event", "default.reassign"),
			slog.String("voice_id", next),
		)
	}
	logger.VOICES.Info("voice removed",
		slog.String("event", "voice.remove"),
		slog.Int("index", index),
		slog.String("voice_id", removed.ID),
		slog.Int("voices", len(catalog)),
	)
	return removed, nil
}

// ResetToDefaults restores the default catalog and points the default voice at its first entry.
func (m *Manager) ResetToDefaults(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.save(ctx, m.defaults); err != nil {
		return err
	}
	if err := m.store.SetSetting(ctx, KeyDefaultVoice, m.defaults[0].ID); err != nil {
		return err
	}
	logger.VOICES.Info("catalog reset",
		slog.String("event", "catalog.reset"),
		slog.Int("voices", len(m.defaults)),
	)
	return nil
}

// DefaultVoiceID returns the stored default voice id or the fallback id when unset.
func (m *Manager) DefaultVoiceID(ctx context.Context) (string, error) {
	return m.defaultVoiceID(ctx)
}

func (m *Manager) defaultVoiceID(ctx context.Context) (string, error) {
	id, err := m.store.GetSetting(ctx, KeyDefaultVoice, "")
	if err != nil {
		return "", err
	}
	if id = strings.TrimSpace(id); id == "" {
		return m.fallbackID, nil
	}
	return id, nil
}

// SetDefaultVoiceID stores a new default voice id. The id does not have to be in the catalog.
func (m *Manager) SetDefaultVoiceID(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := m.validate.Var(id, "required,min=10"); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidProfile, fieldError("id", err))
	}
	if err := m.store.SetSetting(ctx, KeyDefaultVoice, id); err != nil {
		return err
	}
	logger.VOICES.Info("default voice set",
		slog.String("event", "default.set"),
		slog.String("voice_id", id),
	)
	return nil
}

func (m *Manager) check(catalog []Profile) error {
	for i, p := range catalog {
		if err := m.validate.Struct(p); err != nil {
			return fmt.Errorf("%w: entry %d: %s", ErrInvalidProfile, i+1, fieldError("", err))
		}
	}
	return nil
}

func (m *Manager) checkOne(p Profile) error {
	if err := m.validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidProfile, fieldError("", err))
	}
	return nil
}

// fieldError flattens validator errors into a short message.
func fieldError(field string, err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		name := field
		if name == "" {
			name = strings.ToLower(fe.Field())
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, name+" is required")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", name, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed validation (%s)", name, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

type storedProfile struct {
	ID   any `json:"id"`
	Name any `json:"name"`
}

// decode keeps entries with a usable id; anything unparsable yields nil.
func decode(raw string) []Profile {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil
	}
	out := make([]Profile, 0, len(entries))
	for _, e := range entries {
		var sp storedProfile
		if err := json.Unmarshal(e, &sp); err != nil {
			continue
		}
		id := scalar(sp.ID)
		if id == "" {
			continue
		}
		out = append(out, withName(Profile{ID: id, Name: scalar(sp.Name)}))
	}
	return out
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func withName(p Profile) Profile {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		p.Name = p.ID
	}
	return p
}

func normalize(in []Profile) []Profile {
	out := make([]Profile, 0, len(in))
	for _, p := range in {
		out = append(out, withName(p))
	}
	return out
}

func clone(in []Profile) []Profile {
	return append([]Profile(nil), in...)
}
