// Package credentials stores per-user exchange API keys, sealed at rest.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/crypto"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/db"
	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/pkg/exchange"
)

// ErrNoKey means the engine was started without a credential encryption key,
// so per-user credentials cannot be stored or read.
var ErrNoKey = errors.New("credentials: encryption key not configured")

// Store resolves exchange credentials for bot runs. Per-user keys live in
// the database sealed with AES-GCM; venues without a user row fall back to
// the engine-owned credentials from configuration. A missing credential is
// not an error: public market-data calls work unauthenticated.
type Store struct {
	db       *db.Database
	keys     *crypto.KeyManager
	fallback map[string]exchange.Credentials
}

func NewStore(database *db.Database, keys *crypto.KeyManager, fallback map[string]exchange.Credentials) *Store {
	if fallback == nil {
		fallback = map[string]exchange.Credentials{}
	}
	return &Store{db: database, keys: keys, fallback: fallback}
}

// Credentials implements the scheduler's credential source.
func (s *Store) Credentials(ctx context.Context, userID, venue string) (exchange.Credentials, error) {
	venue = strings.ToLower(venue)

	if s.keys != nil {
		row, err := s.db.GetAPICredential(ctx, userID, venue)
		switch {
		case err == nil:
			return s.open(row)
		case !errors.Is(err, db.ErrNotFound):
			return exchange.Credentials{}, err
		}
	}
	return s.fallback[venue], nil
}

// Save seals and stores a user's credentials for a venue.
func (s *Store) Save(ctx context.Context, userID, venue string, creds exchange.Credentials) error {
	if s.keys == nil {
		return ErrNoKey
	}
	apiKey, err := s.keys.Encrypt(creds.APIKey)
	if err != nil {
		return fmt.Errorf("credentials: seal key: %w", err)
	}
	apiSecret, err := s.keys.Encrypt(creds.APISecret)
	if err != nil {
		return fmt.Errorf("credentials: seal secret: %w", err)
	}
	passphrase := ""
	if creds.Passphrase != "" {
		if passphrase, err = s.keys.Encrypt(creds.Passphrase); err != nil {
			return fmt.Errorf("credentials: seal passphrase: %w", err)
		}
	}
	return s.db.UpsertAPICredential(ctx, db.APICredential{
		UserID:     userID,
		Exchange:   venue,
		APIKey:     apiKey,
		APISecret:  apiSecret,
		Passphrase: passphrase,
	})
}

// Delete removes a user's stored credentials for a venue.
func (s *Store) Delete(ctx context.Context, userID, venue string) error {
	return s.db.DeleteAPICredential(ctx, userID, venue)
}

// Summary is the client-visible view of one stored credential: the venue and
// a masked key hint, never any secret material.
type Summary struct {
	Exchange  string `json:"exchange"`
	KeyHint   string `json:"keyHint"`
	UpdatedAt string `json:"updatedAt"`
}

// List returns masked summaries of a user's stored credentials.
func (s *Store) List(ctx context.Context, userID string) ([]Summary, error) {
	rows, err := s.db.ListAPICredentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		hint := ""
		if s.keys != nil {
			if creds, err := s.open(row); err == nil {
				hint = maskKey(creds.APIKey)
			}
		}
		out = append(out, Summary{
			Exchange:  row.Exchange,
			KeyHint:   hint,
			UpdatedAt: row.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return out, nil
}

func (s *Store) open(row db.APICredential) (exchange.Credentials, error) {
	apiKey, err := s.keys.Decrypt(row.APIKey)
	if err != nil {
		return exchange.Credentials{}, fmt.Errorf("credentials: open key for %s: %w", row.Exchange, err)
	}
	apiSecret, err := s.keys.Decrypt(row.APISecret)
	if err != nil {
		return exchange.Credentials{}, fmt.Errorf("credentials: open secret for %s: %w", row.Exchange, err)
	}
	passphrase := ""
	if row.Passphrase != "" {
		if passphrase, err = s.keys.Decrypt(row.Passphrase); err != nil {
			return exchange.Credentials{}, fmt.Errorf("credentials: open passphrase for %s: %w", row.Exchange, err)
		}
	}
	return exchange.Credentials{APIKey: apiKey, APISecret: apiSecret, Passphrase: passphrase}, nil
}

// maskKey keeps the first and last four characters of a key visible.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
