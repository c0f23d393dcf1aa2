package credentials

import (
	"context"
	"errors"
	"fmt"

	pkgerrors "github.com/vidyalane/schoolops-backend/pkg/errors"
	"github.com/vidyalane/schoolops-backend/pkg/secrets"
)

// ErrNoCredentials reports that no credential row exists for the requested
// (school, provider) pair. Callers treat this as a permanent failure.
var ErrNoCredentials = errors.New("no credentials configured")

// ErrCredentialDecode reports a credential row whose stored secret could not
// be decoded. Also permanent: a corrupt credential will not fix itself.
var ErrCredentialDecode = errors.New("credential decode failure")

// Resolver resolves the active secret bundle for a school and provider.
// Resolution always re-reads and re-decodes; there is no cache, so a rotation
// takes effect on the next send.
type Resolver interface {
	Resolve(ctx context.Context, schoolID int64, provider string) (map[string]string, error)
}

type resolverImpl struct {
	repo  Repository
	codec *secrets.Codec
}

// NewResolver wires the resolver's dependencies.
func NewResolver(repo Repository, codec *secrets.Codec) (Resolver, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "credentials repository required")
	}
	if codec == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "secrets codec required")
	}
	return &resolverImpl{repo: repo, codec: codec}, nil
}

func (r *resolverImpl) Resolve(ctx context.Context, schoolID int64, provider string) (map[string]string, error) {
	row, err := r.repo.Latest(ctx, schoolID, provider)
	if err != nil {
		return nil, fmt.Errorf("load credential row: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("%w for school %d provider %s", ErrNoCredentials, schoolID, provider)
	}
	secret, err := r.codec.Decode(row.SecretEnc)
	if err != nil {
		return nil, fmt.Errorf("%w: school %d provider %s: %v", ErrCredentialDecode, schoolID, provider, err)
	}
	return secret, nil
}
