package config

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	log "github.com/sirupsen/logrus"
)

// SecretAccessor reads the latest version of a named secret.
type SecretAccessor interface {
	AccessSecret(ctx context.Context, name string) (string, error)
}

// GSMAccessor reads secrets from Google Secret Manager.
type GSMAccessor struct {
	client    *secretmanager.Client
	projectID string
}

// NewGSMAccessor creates a Secret Manager client using ambient credentials.
func NewGSMAccessor(ctx context.Context, projectID string) (*GSMAccessor, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create secretmanager client: %w", err)
	}
	return &GSMAccessor{client: client, projectID: projectID}, nil
}

// AccessSecret returns the payload of the latest secret version.
func (a *GSMAccessor) AccessSecret(ctx context.Context, name string) (string, error) {
	req := &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", a.projectID, name),
	}

	result, err := a.client.AccessSecretVersion(ctx, req)
	if err != nil {
		return "", err
	}
	return string(result.Payload.Data), nil
}

// Close releases the client connection.
func (a *GSMAccessor) Close() error {
	return a.client.Close()
}

// ResolveSecrets fills endpoint headers from secrets. Headers already set in
// the file or environment are left alone.
func ResolveSecrets(ctx context.Context, cfg *Config, secrets SecretAccessor) error {
	if !cfg.GoogleSecretManager.Enabled {
		log.Debug("[GSM] Google Secret Manager is disabled")
		return nil
	}

	for _, hs := range cfg.GoogleSecretManager.Headers {
		if hs.Header == "" || hs.Secret == "" {
			return fmt.Errorf("gsm header mapping for %q needs header and secret", hs.Endpoint)
		}

		target, err := headerTarget(cfg, hs.Endpoint)
		if err != nil {
			return err
		}
		if (*target)[hs.Header] != "" {
			continue
		}

		log.Debugf("[GSM] Reading %s header for %s", hs.Header, hs.Endpoint)
		value, err := secrets.AccessSecret(ctx, hs.Secret)
		if err != nil {
			return fmt.Errorf("access secret %s: %w", hs.Secret, err)
		}
		(*target)[hs.Header] = value
		log.Infof("[GSM] Successfully read %s header for %s", hs.Header, hs.Endpoint)
	}
	return nil
}

func headerTarget(cfg *Config, endpoint string) (*map[string]string, error) {
	if endpoint == "ws" {
		if cfg.RPC.WSHeaders == nil {
			cfg.RPC.WSHeaders = make(map[string]string)
		}
		return &cfg.RPC.WSHeaders, nil
	}
	for i := range cfg.RPC.Endpoints {
		ep := &cfg.RPC.Endpoints[i]
		if ep.Name == endpoint {
			if ep.Headers == nil {
				ep.Headers = make(map[string]string)
			}
			return &ep.Headers, nil
		}
	}
	return nil, fmt.Errorf("gsm header mapping references unknown endpoint %q", endpoint)
}
