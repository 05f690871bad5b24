package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/invoiceclient/internal/client/models"
	"github.com/dmitrijs2005/invoiceclient/internal/client/storage"
	"github.com/dmitrijs2005/invoiceclient/internal/common"
	"github.com/dmitrijs2005/invoiceclient/internal/logging"
)

const defaultFlag = "🌐"

var flags = map[string]string{
	"en": "🇺🇸", "es": "🇪🇸", "fr": "🇫🇷", "de": "🇩🇪",
	"it": "🇮🇹", "pt": "🇵🇹", "nl": "🇳🇱", "pl": "🇵🇱",
	"ru": "🇷🇺", "ja": "🇯🇵", "ko": "🇰🇷", "zh": "🇨🇳",
	"ar": "🇸🇦", "hi": "🇮🇳",
}

var rtlLanguages = map[string]bool{"ar": true, "he": true, "fa": true, "ur": true}

// DefaultLanguages is the catalog used until the server provides one.
func DefaultLanguages() []models.Language {
	return []models.Language{
		{Code: "en", Name: "English", Flag: flags["en"]},
		{Code: "es", Name: "Español", Flag: flags["es"]},
		{Code: "fr", Name: "Français", Flag: flags["fr"]},
		{Code: "de", Name: "Deutsch", Flag: flags["de"]},
		{Code: "it", Name: "Italiano", Flag: flags["it"]},
		{Code: "pt", Name: "Português", Flag: flags["pt"]},
		{Code: "nl", Name: "Nederlands", Flag: flags["nl"]},
		{Code: "pl", Name: "Polski", Flag: flags["pl"]},
		{Code: "ru", Name: "Русский", Flag: flags["ru"]},
		{Code: "ja", Name: "日本語", Flag: flags["ja"]},
		{Code: "ko", Name: "한국어", Flag: flags["ko"]},
		{Code: "zh", Name: "中文", Flag: flags["zh"]},
		{Code: "ar", Name: "العربية", Flag: flags["ar"]},
		{Code: "hi", Name: "हिन्दी", Flag: flags["hi"]},
	}
}

// FallbackTranslations is installed when the server catalog is unavailable.
func FallbackTranslations() map[string]string {
	return map[string]string{
		"dashboard": "Dashboard",
		"invoices":  "Invoices",
		"clients":   "Clients",
		"payments":  "Payments",
		"reports":   "Reports",
		"settings":  "Settings",
		"profile":   "Profile",
		"logout":    "Logout",
		"save":      "Save",
		"cancel":    "Cancel",
		"delete":    "Delete",
		"edit":      "Edit",
		"create":    "Create",
		"search":    "Search",
		"filter":    "Filter",
		"export":    "Export",
		"import":    "Import",
	}
}

func flagFor(code string) string {
	if f, ok := flags[code]; ok {
		return f
	}
	return defaultFlag
}

// Document receives the locale attributes of the active language. dir is
// "ltr" or "rtl".
type Document interface {
	SetLocale(lang, dir string)
}

// AuthState tells whether a user is signed in. *Session satisfies it.
type AuthState interface {
	IsAuthenticated() bool
}

// Languages holds the active locale, the language catalog and the
// translations of the active locale.
type Languages struct {
	rest  RESTClient
	store storage.Store
	auth  AuthState
	doc   Document
	log   logging.Logger

	mu           sync.RWMutex
	current      string
	defaultCode  string
	supported    []models.Language
	translations map[string]string
	listeners    []func(code string)

	loading atomic.Bool
}

// NewLanguages starts in English with the built-in catalog. auth and doc
// may be nil.
func NewLanguages(rest RESTClient, store storage.Store, auth AuthState, doc Document, log logging.Logger) *Languages {
	return &Languages{
		rest:         rest,
		store:        store,
		auth:         auth,
		doc:          doc,
		log:          log,
		current:      common.DefaultLanguage,
		defaultCode:  common.DefaultLanguage,
		supported:    DefaultLanguages(),
		translations: map[string]string{},
	}
}

func (l *Languages) CurrentLanguage() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// CurrentLanguageInfo returns the catalog entry of the active language.
func (l *Languages) CurrentLanguageInfo() (models.Language, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lookupLocked(l.current)
}

func (l *Languages) lookupLocked(code string) (models.Language, bool) {
	for _, lang := range l.supported {
		if lang.Code == code {
			return lang, true
		}
	}
	return models.Language{}, false
}

func (l *Languages) IsSupported(code string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.lookupLocked(code)
	return ok
}

// SetDefaultLanguage changes the last-resort language of
// InitializeLanguage. Unsupported codes are ignored.
func (l *Languages) SetDefaultLanguage(code string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.lookupLocked(code); ok {
		l.defaultCode = code
	}
}

func (l *Languages) IsRTL() bool {
	return rtlLanguages[l.CurrentLanguage()]
}

func (l *Languages) SupportedLanguages() []models.Language {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.supported)
}

func (l *Languages) Loading() bool {
	return l.loading.Load()
}

// OnChange registers fn to run after every successful SetLanguage.
func (l *Languages) OnChange(fn func(code string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// SetLanguage switches the active locale. An unknown code fails with
// ErrUnsupportedLanguage and changes nothing. Syncing the preference to the
// server is best effort, except that a session lost during the sync is
// reported as common.ErrAuthExpired after the switch is applied.
func (l *Languages) SetLanguage(ctx context.Context, code string) error {
	l.loading.Store(true)
	defer l.loading.Store(false)

	l.mu.Lock()
	if _, ok := l.lookupLocked(code); !ok {
		l.mu.Unlock()
		err := fmt.Errorf("%w: %s", common.ErrUnsupportedLanguage, code)
		l.log.Warn(ctx, "error setting language", "error", err)
		return err
	}
	l.current = code
	l.mu.Unlock()

	if err := l.store.Set(ctx, common.KeyPreferredLanguage, code); err != nil {
		l.log.Error(ctx, "cannot persist preferred language", "error", err)
	}

	var syncErr error
	if l.auth != nil && l.auth.IsAuthenticated() {
		if err := l.rest.Put(ctx, "/languages/set", map[string]string{"language": code}, nil); err != nil {
			l.log.Warn(ctx, "cannot sync preferred language", "endpoint", "/languages/set", "error", err)
			if errors.Is(err, common.ErrAuthExpired) {
				syncErr = err
			}
		}
	}

	l.LoadTranslations(ctx, code)

	dir := "ltr"
	if rtlLanguages[code] {
		dir = "rtl"
	}
	if l.doc != nil {
		l.doc.SetLocale(code, dir)
	}

	l.mu.RLock()
	listeners := slices.Clone(l.listeners)
	l.mu.RUnlock()
	for _, fn := range listeners {
		fn(code)
	}
	return syncErr
}

// DetectLanguage asks the server for the caller's preferred language and
// applies it when supported.
func (l *Languages) DetectLanguage(ctx context.Context) (string, bool) {
	var resp struct {
		DetectedLanguage string `json:"detected_language"`
		Supported        bool   `json:"supported"`
	}
	if err := l.rest.Get(ctx, "/languages/detect", nil, &resp); err != nil {
		l.log.Warn(ctx, "error detecting language", "endpoint", "/languages/detect", "error", err)
		return "", false
	}
	if resp.DetectedLanguage == "" || !resp.Supported {
		return "", false
	}
	if err := l.SetLanguage(ctx, resp.DetectedLanguage); err != nil {
		return "", false
	}
	return resp.DetectedLanguage, true
}

// LoadTranslations replaces the translation mapping with the server's
// catalog for code, or with FallbackTranslations when that fails.
func (l *Languages) LoadTranslations(ctx context.Context, code string) {
	path := "/languages/translations/" + url.PathEscape(code)
	var resp struct {
		Translations map[string]any `json:"translations"`
	}

	mapping := FallbackTranslations()
	if err := l.rest.Get(ctx, path, nil, &resp); err != nil {
		l.log.Warn(ctx, "error loading translations", "endpoint", path, "error", err)
	} else {
		mapping = make(map[string]string, len(resp.Translations))
		for k, v := range resp.Translations {
			if s, ok := v.(string); ok {
				mapping[k] = s
			}
		}
	}

	l.mu.Lock()
	l.translations = mapping
	l.mu.Unlock()
}

// GetText returns the translation of key, else the first fallback, else
// key itself.
func (l *Languages) GetText(key string, fallback ...string) string {
	l.mu.RLock()
	v := l.translations[key]
	l.mu.RUnlock()

	if v != "" {
		return v
	}
	if len(fallback) > 0 && fallback[0] != "" {
		return fallback[0]
	}
	return key
}

// FormatCurrency asks the server to format amount and falls back to local
// formatting on any failure. An empty code means USD.
func (l *Languages) FormatCurrency(ctx context.Context, amount float64, code string) string {
	if code == "" {
		code = "USD"
	}
	lang := l.CurrentLanguage()

	var resp struct {
		Formatted string `json:"formatted"`
	}
	body := map[string]any{"amount": amount, "currency": code, "locale": lang}
	err := l.rest.Post(ctx, "/languages/format/currency", body, &resp)
	if err == nil && resp.Formatted != "" {
		return resp.Formatted
	}
	if err != nil {
		l.log.Warn(ctx, "error formatting currency", "endpoint", "/languages/format/currency", "error", err)
	}
	return localCurrency(lang, amount, code)
}

// FormatDate asks the server to format t. formatType is "long" or "short";
// empty means long.
func (l *Languages) FormatDate(ctx context.Context, t time.Time, formatType string) string {
	if formatType == "" {
		formatType = "long"
	}
	lang := l.CurrentLanguage()

	var resp struct {
		Formatted string `json:"formatted"`
	}
	body := map[string]string{
		"date":        t.Format(time.RFC3339),
		"format_type": formatType,
		"locale":      lang,
	}
	err := l.rest.Post(ctx, "/languages/format/date", body, &resp)
	if err == nil && resp.Formatted != "" {
		return resp.Formatted
	}
	if err != nil {
		l.log.Warn(ctx, "error formatting date", "endpoint", "/languages/format/date", "error", err)
	}
	return localDate(lang, t, formatType)
}

// GetTaxRules returns the server's tax rules for country, or nil.
func (l *Languages) GetTaxRules(ctx context.Context, country string) map[string]any {
	path := "/languages/tax-rules/" + url.PathEscape(strings.ToUpper(country))
	var resp struct {
		TaxRules map[string]any `json:"tax_rules"`
	}
	if err := l.rest.Get(ctx, path, nil, &resp); err != nil {
		l.log.Warn(ctx, "error getting tax rules", "endpoint", path, "error", err)
		return nil
	}
	return resp.TaxRules
}

// InitializeLanguage picks the stored preference, then the detected one,
// then the default language.
func (l *Languages) InitializeLanguage(ctx context.Context) {
	saved, err := l.store.Get(ctx, common.KeyPreferredLanguage)
	if err != nil {
		l.log.Warn(ctx, "cannot read preferred language", "error", err)
	}
	if saved != "" && l.IsSupported(saved) {
		if err := l.SetLanguage(ctx, saved); err == nil {
			return
		}
	}

	if _, ok := l.DetectLanguage(ctx); ok {
		return
	}

	l.mu.RLock()
	fallback := l.defaultCode
	l.mu.RUnlock()
	if err := l.SetLanguage(ctx, fallback); err != nil {
		l.log.Error(ctx, "error initializing language", "error", err)
	}
}

// GetSupportedLanguages replaces the catalog with the server's list, sorted
// by code. A failed or empty answer keeps the current catalog.
func (l *Languages) GetSupportedLanguages(ctx context.Context) error {
	var resp struct {
		Languages map[string]string `json:"languages"`
	}
	if err := l.rest.Get(ctx, "/languages/supported", nil, &resp); err != nil {
		l.log.Warn(ctx, "error fetching supported languages", "endpoint", "/languages/supported", "error", err)
		return err
	}
	if len(resp.Languages) == 0 {
		return nil
	}

	catalog := make([]models.Language, 0, len(resp.Languages))
	for code, name := range resp.Languages {
		catalog = append(catalog, models.Language{Code: code, Name: name, Flag: flagFor(code)})
	}
	slices.SortFunc(catalog, func(a, b models.Language) int { return strings.Compare(a.Code, b.Code) })

	l.mu.Lock()
	l.supported = catalog
	l.mu.Unlock()
	return nil
}
