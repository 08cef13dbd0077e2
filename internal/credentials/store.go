// Package credentials owns the process-wide broker credential pair.
// Worker code never touches raw fields: reads go through Snapshot and
// the only mutation path is the single-flight Refresh.
package credentials

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/agnivesh13/Price-Feed-Parser/internal/core"
	"github.com/agnivesh13/Price-Feed-Parser/internal/secrets"
)

// Refresher exchanges a refresh token for a new access token. The
// fyers client implements this; tests substitute fakes.
type Refresher interface {
	RefreshToken(ctx context.Context, creds core.CredentialSet) (string, error)
}

// Store holds the live credential set shared by all fetch tasks.
type Store struct {
	mu    sync.RWMutex
	creds core.CredentialSet

	group      singleflight.Group
	refresher  Refresher
	source     secrets.Source
	secretName string
	log        *zap.Logger
}

// NewStore creates an unseeded store; call Load before the first fetch.
func NewStore(refresher Refresher, source secrets.Source, secretName string, log *zap.Logger) *Store {
	return &Store{
		refresher:  refresher,
		source:     source,
		secretName: secretName,
		log:        log,
	}
}

// Load seeds the store from the secret source. Failing to load is fatal
// for the run, so the error is returned as-is for the scheduler to
// escalate.
func (s *Store) Load(ctx context.Context) error {
	blob, err := s.source.Get(ctx, s.secretName)
	if err != nil {
		return core.WrapError(core.ErrConfigMissing, err)
	}

	var creds core.CredentialSet
	if err := json.Unmarshal(blob, &creds); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}

	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()

	if creds.AccessToken == "" {
		s.log.Warn("secret carries no access token; the first request will trigger a refresh")
	}
	return nil
}

// Snapshot returns the current credential set without blocking writers
// for longer than the copy.
func (s *Store) Snapshot() core.CredentialSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// Refresh performs the provider's refresh exchange at most once across
// concurrent callers; every caller that joins an in-flight refresh
// observes the same token or the same failure. The refreshed token is
// persisted to the secret store best-effort.
func (s *Store) Refresh(ctx context.Context) (string, error) {
	v, err, _ := s.group.Do("refresh", func() (any, error) {
		creds := s.Snapshot()
		if !creds.CanRefresh() {
			return "", core.ErrRefreshFailed
		}

		token, err := s.refresher.RefreshToken(ctx, creds)
		if err != nil {
			return "", core.WrapError(core.ErrRefreshFailed, err)
		}

		s.mu.Lock()
		s.creds.AccessToken = token
		updated := s.creds
		s.mu.Unlock()

		s.persist(ctx, updated)
		s.log.Info("access token refreshed")
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// persist writes the full credential set back so sibling fields in the
// stored secret survive the token swap. Failure is logged, never fatal.
func (s *Store) persist(ctx context.Context, creds core.CredentialSet) {
	blob, err := json.Marshal(creds)
	if err == nil {
		err = s.source.Update(ctx, s.secretName, blob)
	}
	if err != nil {
		s.log.Warn("failed to persist refreshed token to secret store", zap.Error(err))
	}
}
