package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/config"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/admin"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/billing"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/diagnostics"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/identity"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/inbox"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/medication"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/scheduling"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/audit"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/auth"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/db"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/notification"
)

// app holds the services shared by the serve and worker commands.
type app struct {
	issuer   *auth.TokenIssuer
	audit    *audit.PGStore
	notifier *notification.Notifier

	identity    *identity.Service
	admin       *admin.Service
	scheduling  *scheduling.Service
	billing     *billing.Service
	medication  *medication.Service
	diagnostics *diagnostics.Service
	inbox       *inbox.Service

	closers []func()
}

// Close releases the token store and waits for queued emails.
func (a *app) Close() {
	a.notifier.Wait()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// resolveSigningKey returns the JWT secret as bytes. Development runs
// without a secret get a random 32-byte key, reported by the second return
// value; tokens then do not survive a restart.
func resolveSigningKey(secret string) ([]byte, bool, error) {
	if secret != "" {
		return []byte(secret), false, nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generate signing key: %w", err)
	}
	return key, true, nil
}

// newTokenStore uses redis when REDIS_URL is set and an in-process store
// otherwise.
func newTokenStore(ctx context.Context, cfg *config.Config) (auth.TokenStore, func(), error) {
	if cfg.RedisURL == "" {
		s := auth.NewMemoryTokenStore()
		return s, s.Close, nil
	}
	rdb, err := auth.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return auth.NewRedisTokenStore(rdb), func() { _ = rdb.Close() }, nil
}

func newEmailSender(cfg *config.Config) notification.EmailSender {
	if !cfg.EmailEnabled() {
		return nil
	}
	return notification.NewSMTPSender(notification.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		SSL:      cfg.SMTPPort == 465,
		Timeout:  10 * time.Second,
	})
}

func newApp(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*app, error) {
	key, random, err := resolveSigningKey(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	if random {
		logger.Warn().Msg("JWT_SECRET not set, using a random signing key")
	}

	store, closeStore, err := newTokenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{closers: []func(){closeStore}}
	a.issuer = auth.NewTokenIssuer(auth.JWTConfig{
		Issuer:     cfg.JWTIssuer,
		SigningKey: key,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, store)
	a.audit = audit.NewPGStore(pool)
	tx := db.NewTxRunner(pool)

	a.admin = admin.NewService(
		admin.NewHospitalRepoPG(pool),
		admin.NewDepartmentRepoPG(pool),
		admin.NewLicenseRepoPG(pool),
		admin.NewStatsRepoPG(pool),
		tx, a.audit, logger,
	).WithPhoneRegion(cfg.PhoneRegion)

	a.identity = identity.NewService(
		identity.NewUserRepoPG(pool),
		identity.NewPatientRepoPG(pool),
		identity.NewDoctorRepoPG(pool),
		tx, a.issuer, a.admin, a.audit, logger,
	).WithDefaults(cfg.PhoneRegion, cfg.DefaultSlotMinutes)

	notifications := notification.NewPGStore(pool)
	a.notifier = notification.NewNotifier(notifications, notification.NewTemplateEngine(),
		newEmailSender(cfg), a.identity, logger)

	a.scheduling = scheduling.NewService(
		scheduling.NewAppointmentRepoPG(pool),
		scheduling.NewWorkingHoursRepoPG(pool),
		scheduling.NewBlockedSlotRepoPG(pool),
		a.identity, tx, a.notifier, a.audit, logger,
		scheduling.Options{
			Location:           cfg.Location(),
			MeetingBaseURL:     cfg.MeetingBaseURL,
			CompletionGrace:    cfg.CompletionGrace,
			ReminderLead:       cfg.ReminderLead,
			DefaultSlotMinutes: cfg.DefaultSlotMinutes,
		},
	)

	a.billing = billing.NewService(billing.NewPaymentRepoPG(pool), nil, a.scheduling, a.admin,
		tx, a.notifier, a.audit, logger)
	a.medication = medication.NewService(medication.NewPrescriptionRepoPG(pool), a.scheduling, a.identity,
		tx, a.notifier, a.audit, logger)
	a.diagnostics = diagnostics.NewService(diagnostics.NewTestResultRepoPG(pool), a.identity, a.scheduling,
		a.notifier, a.audit, logger)
	a.inbox = inbox.NewService(inbox.NewMessageRepoPG(pool), notifications, a.identity, a.notifier, logger)

	return a, nil
}
