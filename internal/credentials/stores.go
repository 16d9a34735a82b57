package credentials

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"google.golang.org/api/googleapi"
	secretmanager "google.golang.org/api/secretmanager/v1"
)

// secretKey identifies the refresh-token record in every tier.
const secretKey = "oauth-refresh-token"

// FileStore persists the credential record as a JSON file. It is the
// non-production fallback tier: the file lives outside any durability
// guarantee and is readable only by the owning user.
type FileStore struct {
	Path string
}

// NewFileStore places the record under dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Path: filepath.Join(dir, secretKey+".json")}
}

func (s *FileStore) Name() string { return "local-file" }

func (s *FileStore) Get(_ context.Context) (*Record, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read credential file: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse credential file: %w", err)
	}
	return &rec, nil
}

func (s *FileStore) Set(_ context.Context, rec *Record) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0600)
}

// KeyValue is the narrow persistence surface the cache tier needs. The sqlite
// storage layer implements it.
type KeyValue interface {
	GetSecret(ctx context.Context, key string) ([]byte, error)
	SetSecret(ctx context.Context, key string, value []byte) error
}

// CacheStore is the secondary cache tier over local key-value storage.
type CacheStore struct {
	kv KeyValue
}

// NewCacheStore wraps a key-value backend as a credential tier.
func NewCacheStore(kv KeyValue) *CacheStore {
	return &CacheStore{kv: kv}
}

func (s *CacheStore) Name() string { return "cache-store" }

func (s *CacheStore) Get(ctx context.Context) (*Record, error) {
	data, err := s.kv.GetSecret(ctx, secretKey)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse cached credential: %w", err)
	}
	return &rec, nil
}

func (s *CacheStore) Set(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.kv.SetSecret(ctx, secretKey, data)
}

// SecretManagerStore is the durable tier, backed by Google Secret Manager.
// It survives process restarts and is the last-writer-wins authority for the
// refresh token.
type SecretManagerStore struct {
	svc     *secretmanager.Service
	project string
}

// NewSecretManagerStore builds the durable tier for the given GCP project.
// The service authenticates via application default credentials.
func NewSecretManagerStore(ctx context.Context, project string) (*SecretManagerStore, error) {
	svc, err := secretmanager.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager service: %w", err)
	}
	return &SecretManagerStore{svc: svc, project: project}, nil
}

func (s *SecretManagerStore) Name() string { return "secret-manager" }

func (s *SecretManagerStore) Get(ctx context.Context) (*Record, error) {
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.project, secretKey)
	resp, err := s.svc.Projects.Secrets.Versions.Access(name).Context(ctx).Do()
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("access secret version: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Payload.Data)
	if err != nil {
		return nil, fmt.Errorf("decode secret payload: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse secret payload: %w", err)
	}
	return &rec, nil
}

func (s *SecretManagerStore) Set(ctx context.Context, rec *Record) error {
	parent := fmt.Sprintf("projects/%s", s.project)
	secret := &secretmanager.Secret{
		Replication: &secretmanager.Replication{Automatic: &secretmanager.Automatic{}},
	}
	_, err := s.svc.Projects.Secrets.Create(parent, secret).SecretId(secretKey).Context(ctx).Do()
	if err != nil && !isStatus(err, http.StatusConflict) {
		return fmt.Errorf("create secret: %w", err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	req := &secretmanager.AddSecretVersionRequest{
		Payload: &secretmanager.SecretPayload{
			Data: base64.StdEncoding.EncodeToString(data),
		},
	}
	name := fmt.Sprintf("%s/secrets/%s", parent, secretKey)
	if _, err := s.svc.Projects.Secrets.AddVersion(name, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add secret version: %w", err)
	}
	return nil
}

func isStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
