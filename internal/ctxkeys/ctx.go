package ctxkeys

import (
	"context"

	"github.com/magnogrupo/portal/internal/config"
	"github.com/magnogrupo/portal/internal/model"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	UserKey          contextKey = "user"
	ProfileKey       contextKey = "profile"
	ConfigKey        contextKey = "config"
	WizardSessionKey contextKey = "wizard_session"
)

func User(ctx context.Context) *model.User {
	user, _ := ctx.Value(UserKey).(*model.User)
	return user
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

func Profile(ctx context.Context) *model.Profile {
	profile, _ := ctx.Value(ProfileKey).(*model.Profile)
	return profile
}

func WithProfile(ctx context.Context, profile *model.Profile) context.Context {
	return context.WithValue(ctx, ProfileKey, profile)
}

func Config(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(ConfigKey).(*config.Config)
	return cfg
}

func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, ConfigKey, cfg)
}

// WizardSession identifies an anonymous submission wizard session. Guest
// uploads are staged under this id until an account exists.
func WizardSession(ctx context.Context) string {
	id, _ := ctx.Value(WizardSessionKey).(string)
	return id
}

func WithWizardSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, WizardSessionKey, id)
}
