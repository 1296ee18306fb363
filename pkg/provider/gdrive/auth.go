package gdrive

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"

	"github.com/3leaps/drivedrain/pkg/provider"
)

// Scope is the OAuth scope requested for all credential sources.
// Moving items to the trash needs full drive access.
const Scope = drive.DriveScope

// tokenSource builds an OAuth2 token source from the configured credentials.
func tokenSource(ctx context.Context, cfg Config) (oauth2.TokenSource, error) {
	if cfg.CredentialsFile == "" {
		creds, err := google.FindDefaultCredentials(ctx, Scope)
		if err != nil {
			return nil, authError("application default credentials", err)
		}
		return creds.TokenSource, nil
	}

	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, authError(cfg.CredentialsFile, err)
	}

	if cfg.Subject != "" {
		jwtCfg, err := google.JWTConfigFromJSON(data, Scope)
		if err != nil {
			return nil, authError(cfg.CredentialsFile, err)
		}
		jwtCfg.Subject = cfg.Subject
		return jwtCfg.TokenSource(ctx), nil
	}

	creds, err := google.CredentialsFromJSON(ctx, data, Scope)
	if err != nil {
		return nil, authError(cfg.CredentialsFile, err)
	}
	return creds.TokenSource, nil
}

func authError(source string, err error) error {
	return &provider.ProviderError{
		Op:       "Authenticate",
		Provider: provider.ProviderGoogleDrive,
		Scope:    source,
		Err:      fmt.Errorf("%w: %w", provider.ErrInvalidCredentials, err),
	}
}
