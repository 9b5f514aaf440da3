package models

import "time"

// AccentColor is the UI accent palette.
type AccentColor string

const (
	AccentBlue    AccentColor = "blue"
	AccentEmerald AccentColor = "emerald"
	AccentViolet  AccentColor = "violet"
	AccentRose    AccentColor = "rose"
	AccentAmber   AccentColor = "amber"
)

// ThemeMode is the background mode.
type ThemeMode string

const (
	ModeSky   ThemeMode = "sky"
	ModeNight ThemeMode = "night"
)

// ThemeSettings holds per-user preferences.
type ThemeSettings struct {
	AccentColor  AccentColor `json:"accent_color"`
	Mode         ThemeMode   `json:"mode"`
	TeacherName  *string     `json:"teacher_name,omitempty"`
	TeacherPhone *string     `json:"teacher_phone,omitempty"`
}

// DefaultThemeSettings is used when a user has never saved preferences.
func DefaultThemeSettings() ThemeSettings {
	return ThemeSettings{AccentColor: AccentBlue, Mode: ModeSky}
}

// SettingsPatch is a partial update; nil fields are left untouched.
type SettingsPatch struct {
	AccentColor  *AccentColor `json:"accent_color" validate:"omitempty,oneof=blue emerald violet rose amber"`
	Mode         *ThemeMode   `json:"mode" validate:"omitempty,oneof=sky night"`
	TeacherName  *string      `json:"teacher_name" validate:"omitempty,max=120"`
	TeacherPhone *string      `json:"teacher_phone" validate:"omitempty,max=32"`
}

// Apply merges the patch into s.
func (p SettingsPatch) Apply(s ThemeSettings) ThemeSettings {
	if p.AccentColor != nil {
		s.AccentColor = *p.AccentColor
	}
	if p.Mode != nil {
		s.Mode = *p.Mode
	}
	if p.TeacherName != nil {
		s.TeacherName = p.TeacherName
	}
	if p.TeacherPhone != nil {
		s.TeacherPhone = p.TeacherPhone
	}
	return s
}

// Profile is the stored row behind a user's settings.
type Profile struct {
	UserID       string    `db:"user_id"`
	AccentColor  string    `db:"accent_color"`
	Mode         string    `db:"mode"`
	TeacherName  *string   `db:"teacher_name"`
	TeacherPhone *string   `db:"teacher_phone"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Settings converts the row into theme settings.
func (p *Profile) Settings() ThemeSettings {
	return ThemeSettings{
		AccentColor:  AccentColor(p.AccentColor),
		Mode:         ThemeMode(p.Mode),
		TeacherName:  p.TeacherName,
		TeacherPhone: p.TeacherPhone,
	}
}
