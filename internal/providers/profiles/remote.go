package profiles

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/profile"
)

// RemoteStore reads profiles from the profile database REST API:
//
//	GET {base}/profiles/{id} -> Profile
//	GET {base}/profiles      -> {"profiles": [Profile]}
type RemoteStore struct {
	client *Client
	logger *zap.Logger
}

// NewRemoteStore creates a store backed by client
func NewRemoteStore(client *Client, logger *zap.Logger) *RemoteStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteStore{client: client, logger: logger}
}

type listResponse struct {
	Profiles []*profile.Profile `json:"profiles"`
}

// Get fetches one profile
func (s *RemoteStore) Get(ctx context.Context, id string) (*profile.Profile, error) {
	if err := profile.ValidateID(id); err != nil {
		return nil, fmt.Errorf("%w: %w", profile.ErrNotFound, err)
	}
	req, err := s.client.Request(ctx)
	if err != nil {
		return nil, err
	}

	var record profile.Profile
	resp, err := s.client.Execute(func() (*resty.Response, error) {
		return req.SetResult(&record).Get("/profiles/" + url.PathEscape(id))
	})
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", id, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", profile.ErrNotFound, id)
	case resp.IsError():
		return nil, fmt.Errorf("fetch profile %s: %s", id, resp.Status())
	}

	if record.ID == "" {
		record.ID = id
	}
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", id, err)
	}
	s.logger.Debug("Profile fetched", zap.String("profile_id", id), zap.Bool("proxy", record.HasProxy()))
	return &record, nil
}

// List fetches every profile
func (s *RemoteStore) List(ctx context.Context) ([]*profile.Profile, error) {
	req, err := s.client.Request(ctx)
	if err != nil {
		return nil, err
	}

	var body listResponse
	resp, err := s.client.Execute(func() (*resty.Response, error) {
		return req.SetResult(&body).Get("/profiles")
	})
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list profiles: %s", resp.Status())
	}
	return body.Profiles, nil
}
