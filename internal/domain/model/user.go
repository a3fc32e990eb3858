package model

import (
	"strings"
	"time"

	"telegram-movie-finder/internal/domain"
)

type Language string

const (
	LanguageUz Language = "uz"
	LanguageRu Language = "ru"
	LanguageEn Language = "en"

	DefaultLanguage = LanguageUz
)

// ParseLanguage maps a stored or submitted code onto a supported language.
func ParseLanguage(s string) (Language, bool) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case LanguageUz:
		return LanguageUz, true
	case LanguageRu:
		return LanguageRu, true
	case LanguageEn:
		return LanguageEn, true
	}
	return DefaultLanguage, false
}

type Country string

const (
	CountryUnknown  Country = ""
	CountryDomestic Country = "domestic"
	CountryForeign  Country = "foreign"
)

const domesticPhonePrefix = "998"

// ClassifyCountry derives the geography bucket from a phone number prefix.
func ClassifyCountry(phone string) Country {
	p := strings.TrimPrefix(strings.TrimSpace(phone), "+")
	if p == "" {
		return CountryUnknown
	}
	if strings.HasPrefix(p, domesticPhonePrefix) {
		return CountryDomestic
	}
	return CountryForeign
}

// User is the per-user entitlement record, keyed by the Telegram identity.
// A nil Phone means the user has not registered yet.
type User struct {
	TelegramID      int64
	DisplayName     string
	Phone           *string
	Language        Language
	Points          int
	FreeSearchCount int
	ReferralCount   int
	IsPremium       bool
	IsTrial         bool
	TrialNotified   bool
	JoinedDate      time.Time
	Country         Country
	ReferredBy      *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewUser builds a record with every default applied once: unregistered,
// zero counters, default language and the trial clock set to creation time.
func NewUser(tgID int64, displayName string, now time.Time) (*User, error) {
	if tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		TelegramID:  tgID,
		DisplayName: displayName,
		Language:    DefaultLanguage,
		JoinedDate:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (u *User) IsRegistered() bool { return u != nil && u.Phone != nil && *u.Phone != "" }

// Register moves the user onto a fresh trial. The trial clock restarts at now,
// not at account creation, and the expiring-soon warning is re-armed.
func (u *User) Register(phone string, now time.Time, classifyCountry bool) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return domain.ErrInvalidArgument
	}
	u.Phone = &phone
	u.IsTrial = true
	u.JoinedDate = now
	u.TrialNotified = false
	if classifyCountry {
		u.Country = ClassifyCountry(phone)
	}
	u.UpdatedAt = now
	return nil
}

// ExpireTrial closes the trial period; premium is revoked with it.
func (u *User) ExpireTrial(now time.Time) {
	u.IsPremium = false
	u.IsTrial = false
	u.UpdatedAt = now
}

func (u *User) MarkTrialNotified(now time.Time) {
	u.TrialNotified = true
	u.UpdatedAt = now
}

func (u *User) Touch(now time.Time) { u.UpdatedAt = now }

func (u *User) PhoneValue() string {
	if u.Phone == nil {
		return ""
	}
	return *u.Phone
}
