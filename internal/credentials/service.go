package credentials

import (
	"context"
	"time"

	"github.com/vidyalane/schoolops-backend/pkg/db/models"
	pkgerrors "github.com/vidyalane/schoolops-backend/pkg/errors"
	"github.com/vidyalane/schoolops-backend/pkg/secrets"
)

// Service writes new credential bundles and lists existing ones with the
// secret material masked.
type Service interface {
	Create(ctx context.Context, params CreateParams) (*CredentialSummary, error)
	List(ctx context.Context, schoolID int64) ([]CredentialSummary, error)
}

// CreateParams describes a new credential bundle. Creating a row for an
// existing (school, provider, label) rotates it; the old row stays behind as
// history.
type CreateParams struct {
	SchoolID int64
	Provider string
	Label    string
	Secret   map[string]string
}

// CredentialSummary is the public view of a credential row. The secret never
// leaves the service.
type CredentialSummary struct {
	ID        int64     `json:"id"`
	SchoolID  int64     `json:"school_id"`
	Provider  string    `json:"provider"`
	Label     string    `json:"label"`
	Sealed    bool      `json:"sealed"`
	CreatedAt time.Time `json:"created_at"`
}

type service struct {
	repo  Repository
	codec *secrets.Codec
}

// NewService wires the credential administration dependencies.
func NewService(repo Repository, codec *secrets.Codec) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "credentials repository required")
	}
	if codec == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "secrets codec required")
	}
	return &service{repo: repo, codec: codec}, nil
}

func (s *service) Create(ctx context.Context, params CreateParams) (*CredentialSummary, error) {
	if params.SchoolID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "school id required")
	}
	if params.Provider == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider required")
	}
	if len(params.Secret) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "secret payload required")
	}

	encoded, err := s.codec.Encode(params.Secret)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seal credential")
	}

	row := &models.IntegrationCredential{
		SchoolID:  params.SchoolID,
		Provider:  params.Provider,
		SecretEnc: encoded,
	}
	if params.Label != "" {
		row.Label = &params.Label
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store credential")
	}

	summary := summarize(row, s.codec)
	return &summary, nil
}

func (s *service) List(ctx context.Context, schoolID int64) ([]CredentialSummary, error) {
	if schoolID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "school id required")
	}
	rows, err := s.repo.List(ctx, schoolID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list credentials")
	}
	summaries := make([]CredentialSummary, 0, len(rows))
	for i := range rows {
		summaries = append(summaries, summarize(&rows[i], s.codec))
	}
	return summaries, nil
}

func summarize(row *models.IntegrationCredential, codec *secrets.Codec) CredentialSummary {
	label := ""
	if row.Label != nil {
		label = *row.Label
	}
	return CredentialSummary{
		ID:        row.ID,
		SchoolID:  row.SchoolID,
		Provider:  row.Provider,
		Label:     label,
		Sealed:    secrets.IsSealed(row.SecretEnc),
		CreatedAt: row.CreatedAt,
	}
}
