package tenant

import (
	"log/slog"
	"strings"

	errors "github.com/rsharma-dev/order-settlement/internal"
	"github.com/rsharma-dev/order-settlement/internal/core/datamodel/tenant"
)

// RepositoryAPI abstracts client persistence.
type RepositoryAPI interface {
	GetByID(clientID int64) (*tenant.Client, error)
}

// GatewayCredentials is a resolved per-tenant gateway credential pair.
// KeyID is safe to hand to browser checkout; Secret never leaves the server.
type GatewayCredentials struct {
	KeyID  string
	Secret string
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// GetClient fetches a client by ID.
func (s *Service) GetClient(clientID int64) (*tenant.Client, error) {
	client, err := s.repo.GetByID(clientID)
	if err != nil {
		s.logger.Error("failed to get client", "client_id", clientID, "error", err)
		return nil, err
	}
	return client, nil
}

// ResolveGatewayCredentials loads the client's gateway credentials and
// fails fast when either half is missing, so no gateway call is ever
// attempted with partial configuration.
func (s *Service) ResolveGatewayCredentials(clientID int64) (*GatewayCredentials, error) {
	client, err := s.repo.GetByID(clientID)
	if err != nil {
		s.logger.Error("failed to resolve client for gateway credentials",
			"client_id", clientID,
			"error", err)
		return nil, err
	}

	creds := &GatewayCredentials{
		KeyID:  strings.TrimSpace(client.GatewayAPIKey),
		Secret: strings.TrimSpace(client.GatewayAPISecret),
	}

	if creds.KeyID == "" {
		s.logger.Error("gateway api key not configured", "client_id", clientID)
		return nil, errors.ErrGatewayKeyNotConfigured
	}
	if creds.Secret == "" {
		s.logger.Error("gateway api secret not configured", "client_id", clientID)
		return nil, errors.ErrGatewaySecretNotConfigured
	}

	return creds, nil
}
