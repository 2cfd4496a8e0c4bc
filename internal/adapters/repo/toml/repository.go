package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bnema/winspay-gate/internal/domain"
	"github.com/bnema/winspay-gate/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	profilesFileMode = 0o600
	profilesDirMode  = 0o700
	tempFilePattern  = ".profiles-*.toml.tmp"
)

// ProfileRepository keeps profile rows in a local TOML file. It backs the
// offline profile backend and the fixtures used by the CLI tests.
type ProfileRepository struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.ProfileStore = (*ProfileRepository)(nil)

func NewProfileRepository(path string) (*ProfileRepository, error) {
	if path == "" {
		return nil, errors.New("profiles path is empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve profiles path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	return &ProfileRepository{path: absPath, mu: lockForPath(absPath)}, nil
}

func (r *ProfileRepository) Path() string {
	return r.path
}

func (r *ProfileRepository) GetProfile(ctx context.Context, userID domain.UserID) (domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return domain.Profile{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Profile{}, err
	}

	for _, entry := range file.Profiles {
		if entry.ID == string(userID) {
			return fromSchema(entry), nil
		}
	}

	return domain.Profile{}, fmt.Errorf("profile %s: %w", userID, domain.ErrProfileNotFound)
}

func (r *ProfileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	profiles := make([]domain.Profile, 0, len(file.Profiles))
	for _, entry := range file.Profiles {
		profiles = append(profiles, fromSchema(entry))
	}

	return profiles, nil
}

// Save inserts or replaces the profile with the same id.
func (r *ProfileRepository) Save(ctx context.Context, profile domain.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !profile.ID.Valid() {
		return errors.New("profile id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toSchema(profile)
	replaced := false
	for i := range file.Profiles {
		if file.Profiles[i].ID == encoded.ID {
			file.Profiles[i] = encoded
			replaced = true
			break
		}
	}
	if !replaced {
		file.Profiles = append(file.Profiles, encoded)
	}
	sort.SliceStable(file.Profiles, func(i, j int) bool {
		return file.Profiles[i].ID < file.Profiles[j].ID
	})

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *ProfileRepository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{Version: currentSchemaVersion}, nil
		}
		return fileSchema{}, fmt.Errorf("read profiles file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode profiles file: %w", err)
	}
	if err := file.validate(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (r *ProfileRepository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.path), profilesDirMode); err != nil {
		return fmt.Errorf("create profiles directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode profiles file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp profiles file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp profiles file: %w", err)
	}
	if err := tempFile.Chmod(profilesFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp profiles file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp profiles file: %w", err)
	}
	if err := os.Rename(tempName, r.path); err != nil {
		return fmt.Errorf("replace profiles file: %w", err)
	}
	cleanup = false

	return nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func toSchema(profile domain.Profile) profileSchema {
	var accountID *string
	if profile.HasPaymentAccount() {
		id := *profile.PaymentAccountID
		accountID = &id
	}

	return profileSchema{
		ID:                  string(profile.ID),
		StripeAccountID:     accountID,
		OnboardingCompleted: profile.OnboardingCompleted,
		PayoutsEnabled:      profile.PayoutsEnabled,
	}
}

func fromSchema(entry profileSchema) domain.Profile {
	profile := domain.Profile{
		ID:                  domain.UserID(entry.ID),
		OnboardingCompleted: entry.OnboardingCompleted,
		PayoutsEnabled:      entry.PayoutsEnabled,
	}
	if entry.StripeAccountID != nil {
		id := *entry.StripeAccountID
		profile.PaymentAccountID = &id
	}

	return profile
}
