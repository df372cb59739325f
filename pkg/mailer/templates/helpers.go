package templates

import (
	"context"
	"strings"
	"time"

	"github.com/oksasatya/finboard/config"
)

// Option pattern
type Option func(*EmailData)

func WithIP(ip string) Option        { return func(d *EmailData) { d.IP = ip } }
func WithUserAgent(ua string) Option { return func(d *EmailData) { d.UserAgent = ua } }
func WithRole(role string) Option    { return func(d *EmailData) { d.Role = role } }
func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

// NewBaseEmailData fills the common fields from config, then applies options.
func NewBaseEmailData(cfg *config.Config, typ string, name, email, recipient string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: recipient,
		Type:           typ,

		CompanyName: cfg.CompanyName,
		AppName:     cfg.AppName,

		SupportURL:     cfg.SupportURL,
		DashboardURL:   cfg.DashboardURL,
		UnsubscribeURL: cfg.UnsubscribeURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewLoginNotificationData(cfg *config.Config, name, email string, opts ...Option) map[string]any {
	d := NewBaseEmailData(cfg, LoginNotification, name, email, email, opts...)
	return ToMap(d)
}

// LocalizeTimesIfPossible rewrites Time into the timezone of the request IP.
func LocalizeTimesIfPossible(ctx context.Context, resolver GeoResolver, data map[string]any) {
	ip, _ := data["IP"].(string)
	if resolver == nil || strings.TrimSpace(ip) == "" {
		return
	}
	g, err := resolver.Lookup(ctx, ip)
	if err != nil || strings.TrimSpace(g.Timezone) == "" {
		return
	}
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return
	}
	if s, ok := data["TimeAt"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			data["Time"] = t.In(loc).Format("02 January 2006, 15:04 MST")
		}
	}
	if l, ok := data["Location"].(string); !ok || l == "" {
		data["Location"] = FormatGeo(g)
	}
}
