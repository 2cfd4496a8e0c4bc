package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Profiles []profileSchema `toml:"profiles"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validate() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported profiles schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	seen := make(map[string]struct{}, len(s.Profiles))
	for i, entry := range s.Profiles {
		if entry.ID == "" {
			return fmt.Errorf("profile #%d has no id", i+1)
		}
		if _, dup := seen[entry.ID]; dup {
			return fmt.Errorf("profile %s is listed more than once", entry.ID)
		}
		seen[entry.ID] = struct{}{}
	}

	return nil
}

type profileSchema struct {
	ID                  string  `toml:"id"`
	StripeAccountID     *string `toml:"stripe_account_id,omitempty"`
	OnboardingCompleted bool    `toml:"onboarding_completed"`
	PayoutsEnabled      bool    `toml:"payouts_enabled"`
}
