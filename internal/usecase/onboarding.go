package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/port"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/logger"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/security"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/repository"
)

// usernameMaxLen caps the generated base username. Umlauts are expanded after
// truncation, so a transliterated pair counts as the single letter it stands
// for.
const usernameMaxLen = 7

// umlauts maps German umlauts onto their ASCII transliterations.
var umlauts = strings.NewReplacer(
	"ä", "ae",
	"ö", "oe",
	"ü", "ue",
)

// OnboardingResult records the outcome for one employee of an onboarding run.
type OnboardingResult struct {
	EmployeeID int64
	UserID     int64
	Username   string
	Mailed     bool
	Err        error
}

// OnboardingReport summarizes one run of the onboarding job.
type OnboardingReport struct {
	Day     time.Time
	Results []OnboardingResult
}

// OnboardingService provisions accounts for employees starting today. It runs
// from the scheduler but can be triggered ad hoc; each run processes the
// day's hires in id order and keeps going past individual failures.
type OnboardingService struct {
	employees port.EmployeeRepository
	users     port.UserRepository
	procs     port.StoredProcedures
	policy    *security.PasswordPolicy
	hasher    port.PasswordHasher
	mailer    port.CredentialsMailer
	events    port.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
	mailTries int
	mailWait  time.Duration
}

// NewOnboardingService wires the onboarding job. mailTries bounds delivery
// attempts per recipient; mailWait is the pause between them.
func NewOnboardingService(
	employees port.EmployeeRepository,
	users port.UserRepository,
	procs port.StoredProcedures,
	policy *security.PasswordPolicy,
	hasher port.PasswordHasher,
	mailer port.CredentialsMailer,
	events port.EventPublisher,
	log *zap.Logger,
	mailTries int,
	mailWait time.Duration,
) *OnboardingService {
	if mailTries < 1 {
		mailTries = 1
	}
	return &OnboardingService{
		employees: employees,
		users:     users,
		procs:     procs,
		policy:    policy,
		hasher:    hasher,
		mailer:    mailer,
		events:    events,
		logger:    log,
		now:       time.Now,
		mailTries: mailTries,
		mailWait:  mailWait,
	}
}

// WithClock overrides the time source, for tests.
func (s *OnboardingService) WithClock(now func() time.Time) *OnboardingService {
	s.now = now
	return s
}

// Name implements scheduler.Job.
func (s *OnboardingService) Name() string { return "onboarding" }

// Run implements scheduler.Job.
func (s *OnboardingService) Run(ctx context.Context) error {
	_, err := s.RunOnce(ctx)
	return err
}

// RunOnce provisions every employee starting today and returns the
// per-employee outcomes. A cancelled context stops the run between employees;
// storage failures for one employee do not abort the rest.
func (s *OnboardingService) RunOnce(ctx context.Context) (OnboardingReport, error) {
	day := s.now().UTC()
	report := OnboardingReport{Day: day}

	hires, err := s.employees.FindStartingOn(ctx, day)
	if err != nil {
		return report, fmt.Errorf("find starting employees: %w", err)
	}
	if len(hires) == 0 {
		s.logger.Info("onboarding run found no new hires")
		return report, nil
	}

	s.logger.Info("onboarding run started", zap.Int("new_hires", len(hires)))

	for _, hire := range hires {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		result := s.provision(ctx, hire)
		report.Results = append(report.Results, result)
		if result.Err != nil {
			s.logger.Error("onboarding failed for employee",
				zap.Int64("employee_id", hire.ID),
				zap.Error(result.Err),
			)
		}
	}

	return report, nil
}

// provision creates one account end to end. The stored procedure owns the
// transactional part; email delivery happens after commit, so a mail failure
// leaves a usable account behind for manual credential delivery.
func (s *OnboardingService) provision(ctx context.Context, hire domain.Employee) OnboardingResult {
	result := OnboardingResult{EmployeeID: hire.ID}

	username, err := s.nextUsername(ctx, hire.FirstName, hire.LastName)
	if err != nil {
		result.Err = fmt.Errorf("derive username: %w", err)
		return result
	}

	password, err := s.policy.Generate()
	if err != nil {
		result.Err = fmt.Errorf("generate password: %w", err)
		return result
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		result.Err = fmt.Errorf("hash password: %w", err)
		return result
	}

	userID, err := s.procs.CreateNewUserAccount(ctx, username, hash, hire.ID)
	if err != nil {
		result.Err = fmt.Errorf("create account: %w", err)
		return result
	}
	result.UserID = userID
	result.Username = username

	s.logger.Info("account provisioned",
		zap.Int64("user_id", userID),
		zap.Int64("employee_id", hire.ID),
		zap.String("username", username),
	)

	event := domain.UserCreatedEvent{
		UserID:     userID,
		Username:   username,
		EmployeeID: hire.ID,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.events.PublishUserCreated(ctx, event); err != nil {
		s.logger.Warn("publish user created event failed", zap.Error(err), zap.Int64("user_id", userID))
	}

	if err := s.sendWithRetry(ctx, hire.Email, username, password); err != nil {
		result.Err = fmt.Errorf("deliver credentials: %w", err)
		return result
	}
	result.Mailed = true

	return result
}

// nextUsername derives the login name from the hire's name and probes the user
// store for collisions, appending an increasing numeric suffix until a free
// name is found.
func (s *OnboardingService) nextUsername(ctx context.Context, firstName, lastName string) (string, error) {
	base := GenerateBaseUsername(firstName, lastName)
	if base == "" {
		return "", fmt.Errorf("employee name yields empty username")
	}

	candidate := base
	for suffix := 1; ; suffix++ {
		_, err := s.users.GetByName(ctx, candidate)
		if errors.Is(err, repository.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("probe username %q: %w", candidate, err)
		}
		candidate = base + strconv.Itoa(suffix)
	}
}

// sendWithRetry attempts delivery up to mailTries times, waiting mailWait
// between attempts. Context cancellation aborts the sequence.
func (s *OnboardingService) sendWithRetry(ctx context.Context, to, username, password string) error {
	var lastErr error
	for attempt := 1; attempt <= s.mailTries; attempt++ {
		lastErr = s.mailer.SendCredentials(ctx, to, username, password)
		if lastErr == nil {
			return nil
		}
		s.logger.Warn("credentials mail attempt failed",
			zap.String("recipient", logger.MaskEmail(to)),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)
		if attempt == s.mailTries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.mailWait):
		}
	}
	return fmt.Errorf("after %d attempts: %w", s.mailTries, lastErr)
}

// GenerateBaseUsername builds the canonical login name from an employee name:
// the first letter of the first name joined with the last name, lower-cased,
// spaces and hyphens stripped, capped at seven letters, German umlauts
// expanded to their two-letter transliterations after the cap is applied.
func GenerateBaseUsername(firstName, lastName string) string {
	first := stripNameNoise(firstName)
	last := stripNameNoise(lastName)
	if first == "" || last == "" {
		return umlauts.Replace(first + last)
	}

	initial := string([]rune(first)[0])
	base := []rune(umlauts.Replace(initial) + last)
	if len(base) > usernameMaxLen {
		base = base[:usernameMaxLen]
	}
	return umlauts.Replace(string(base))
}

func stripNameNoise(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "")
	name = strings.ReplaceAll(name, "-", "")
	return name
}
