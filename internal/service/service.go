// Package service is the composition root of the vault: it owns the record
// database, the credential header, the keystore and the locked/unlocked
// state, and exposes the operations the CLI drives.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Save12sttm/Vaulto/auth"
	"github.com/Save12sttm/Vaulto/internal/config"
	"github.com/Save12sttm/Vaulto/internal/db"
	"github.com/Save12sttm/Vaulto/internal/fault"
	"github.com/Save12sttm/Vaulto/internal/generator"
	"github.com/Save12sttm/Vaulto/internal/health"
	"github.com/Save12sttm/Vaulto/internal/keystore"
	"github.com/Save12sttm/Vaulto/store"
)

var (
	ErrLocked             = fault.New(fault.Validation, "vault is locked")
	ErrTooManyAttempts    = fault.New(fault.RateLimited, "too many unlock attempts, try again later")
	ErrAlreadyInitialized = fault.New(fault.Validation, "vault already initialised; unlock instead")
	ErrNotInitialized     = fault.New(fault.Validation, "vault has no master password; run setup first")
)

// Service exposes high-level vault operations.
type Service struct {
	cfg     config.Config
	logger  *zap.Logger
	paths   store.Paths
	db      *db.DB
	keys    keystore.KeyProvider
	limiter *rate.Limiter
	gen     *generator.Generator
	breach  health.BreachChecker
	now     func() time.Time

	mu        sync.Mutex
	key       *keystore.Key // non-nil while unlocked
	lockTimer *time.Timer
	lockGen   uint64
}

// Option customises New.
type Option func(*Service)

// WithKeyProvider replaces the keystore selected by cfg.Keystore.Backend.
func WithKeyProvider(kp keystore.KeyProvider) Option {
	return func(s *Service) { s.keys = kp }
}

// WithClock replaces time.Now for record timestamps and health checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBreachChecker replaces the HIBP client used by Health.
func WithBreachChecker(bc health.BreachChecker) Option {
	return func(s *Service) { s.breach = bc }
}

// New opens the vault described by cfg. The vault starts locked.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	s := &Service{
		cfg:     cfg,
		logger:  logger,
		paths:   store.Paths{Dir: cfg.Vault.Dir},
		limiter: rate.NewLimiter(rate.Every(cfg.Unlock.Interval), cfg.Unlock.Burst),
		gen:     generator.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.paths.EnsureDir(); err != nil {
		return nil, err
	}

	if s.keys == nil {
		ks, err := keystore.Open(cfg.Keystore.Backend, cfg.Vault.Dir, logger)
		if err != nil {
			return nil, fmt.Errorf("open keystore: %w", err)
		}
		s.keys = ks
	}
	if s.breach == nil {
		s.breach = auth.NewHIBPClient(cfg.Health.HIBPURL)
	}

	handle, err := db.Open(s.paths.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open sqlite (%s): %w", s.paths.DBPath(), err)
	}
	s.db = handle

	logger.Debug("vault opened", zap.String("dir", cfg.Vault.Dir))
	return s, nil
}

// Close locks the vault and releases the database.
func (s *Service) Close() error {
	s.Lock()
	return db.Close(s.db)
}

// Generator returns the session password generator.
func (s *Service) Generator() *generator.Generator { return s.gen }

// NeedsMasterSetup reports whether no master password has been configured.
func (s *Service) NeedsMasterSetup() (bool, error) {
	exists, err := store.HeaderExists(s.paths)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// SetMaster configures the master password on a new vault and unlocks it.
func (s *Service) SetMaster(passphrase, confirmation string) error {
	needs, err := s.NeedsMasterSetup()
	if err != nil {
		return err
	}
	if !needs {
		return ErrAlreadyInitialized
	}

	cred, err := auth.Setup(passphrase, confirmation)
	if err != nil {
		return err
	}
	if err := store.SaveHeader(s.paths, store.NewHeader(cred, s.now())); err != nil {
		return fmt.Errorf("persist header: %w", err)
	}
	s.logger.Info("master password configured")

	return s.openKey()
}

// Unlock verifies passphrase against the stored credential. Attempts are
// throttled by a token bucket; when it is empty ErrTooManyAttempts is
// returned without deriving anything.
func (s *Service) Unlock(passphrase string) error {
	if err := s.verifyMaster(passphrase); err != nil {
		return err
	}
	if err := s.openKey(); err != nil {
		return err
	}
	s.logger.Info("vault unlocked")
	return nil
}

// ChangeMaster replaces the master password after verifying the old one.
// Record ciphertexts are keyed by the keystore, so nothing is re-encrypted.
func (s *Service) ChangeMaster(oldPassphrase, newPassphrase, confirmation string) error {
	if err := s.verifyMaster(oldPassphrase); err != nil {
		return err
	}
	cred, err := auth.Setup(newPassphrase, confirmation)
	if err != nil {
		return err
	}
	if err := store.ReplaceCredential(s.paths, cred, s.now()); err != nil {
		return fmt.Errorf("replace credential: %w", err)
	}
	s.logger.Info("master password changed")
	return nil
}

func (s *Service) verifyMaster(passphrase string) error {
	if !s.limiter.Allow() {
		s.logger.Warn("unlock throttled")
		return ErrTooManyAttempts
	}

	hdr, err := store.LoadHeader(s.paths)
	if err != nil {
		if errors.Is(err, store.ErrNoHeader) {
			return ErrNotInitialized
		}
		return fmt.Errorf("load header: %w", err)
	}
	cred, err := hdr.Credential()
	if err != nil {
		return fmt.Errorf("load header: %w", err)
	}
	if err := auth.Verify(passphrase, cred); err != nil {
		if errors.Is(err, auth.ErrIncorrectPassword) {
			s.logger.Warn("incorrect master password")
		}
		return err
	}
	return nil
}

func (s *Service) openKey() error {
	key, err := s.keys.Key(s.cfg.Keystore.Alias)
	if err != nil {
		return fmt.Errorf("open vault key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = key
	s.armLockTimerLocked()
	return nil
}

// Lock forgets the vault key handle. It is safe to call when locked.
func (s *Service) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockLocked("manual")
}

// IsUnlocked reports whether record operations are available.
func (s *Service) IsUnlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key != nil
}

func (s *Service) lockLocked(reason string) {
	if s.lockTimer != nil {
		s.lockTimer.Stop()
		s.lockTimer = nil
	}
	s.lockGen++
	if s.key == nil {
		return
	}
	s.key = nil
	s.logger.Info("vault locked", zap.String("reason", reason))
}

// armLockTimerLocked (re)starts the inactivity timer. A stale timer that
// fires after being replaced sees a different generation and does nothing.
func (s *Service) armLockTimerLocked() {
	timeout := s.cfg.AutoLock.Timeout
	if timeout <= 0 {
		return
	}
	if s.lockTimer != nil {
		s.lockTimer.Stop()
	}
	s.lockGen++
	gen := s.lockGen
	s.lockTimer = time.AfterFunc(timeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.lockGen == gen {
			s.lockLocked("timeout")
		}
	})
}

// activeKey returns the key and counts as activity for auto-lock.
func (s *Service) activeKey() (*keystore.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return nil, ErrLocked
	}
	s.armLockTimerLocked()
	return s.key, nil
}

// Health audits every record.
func (s *Service) Health(ctx context.Context) (health.Report, error) {
	records, err := s.ListRecords()
	if err != nil {
		return health.Report{}, err
	}
	return health.Analyze(ctx, records, health.Options{
		Now:         s.now(),
		MaxAge:      s.cfg.Health.MaxAge,
		BreachCheck: s.cfg.Health.BreachCheck,
		Breach:      s.breach,
	})
}

// SetBreachCheck toggles the HIBP lookup for subsequent Health calls.
func (s *Service) SetBreachCheck(enabled bool) {
	s.cfg.Health.BreachCheck = enabled
}
