package registry

import (
	"context"
	"fmt"
	"os"

	"github.com/iurnickita/affiliatemart/internal/model"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Seed файл реестра.
//
//	affiliates:
//	  - referrerCode: anna
//	    username: anna_blog
//	    name: Anna
//	    email: anna@example.com
//	    commissionRate: "10"
//	commissionOverrides:
//	  Anna: "15"
//
// commissionOverrides (по имени партнёра) применяются только при загрузке;
// после неё ставка в реестре - единственный источник.
type Seed struct {
	Affiliates          []SeedAffiliate   `yaml:"affiliates"`
	CommissionOverrides map[string]string `yaml:"commissionOverrides"`
}

type SeedAffiliate struct {
	ReferrerCode   string `yaml:"referrerCode"`
	Username       string `yaml:"username"`
	Name           string `yaml:"name"`
	Email          string `yaml:"email"`
	CommissionRate string `yaml:"commissionRate"`
	Status         string `yaml:"status"`
}

func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, err
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("seed %s: %w", path, err)
	}
	return seed, nil
}

// Accounts resolves the seed into registry accounts, applying name overrides.
func (seed Seed) Accounts() ([]model.AffiliateAccount, error) {
	accounts := make([]model.AffiliateAccount, 0, len(seed.Affiliates))
	for _, a := range seed.Affiliates {
		rateText := a.CommissionRate
		if override, ok := seed.CommissionOverrides[a.Name]; ok && a.Name != "" {
			rateText = override
		}
		rate := decimal.Zero
		if rateText != "" {
			var err error
			rate, err = decimal.NewFromString(rateText)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %q", ErrRateIncorrect, a.ReferrerCode, rateText)
			}
		}
		account, err := normalizeAccount(model.AffiliateAccount{
			ReferrerCode:   a.ReferrerCode,
			Username:       a.Username,
			Name:           a.Name,
			Email:          a.Email,
			CommissionRate: rate,
			Status:         a.Status,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.ReferrerCode, err)
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// Apply upserts every seeded account into the store.
func (seed Seed) Apply(ctx context.Context, store Store) (int, error) {
	accounts, err := seed.Accounts()
	if err != nil {
		return 0, err
	}
	for i, account := range accounts {
		if err := store.Upsert(ctx, account); err != nil {
			return i, fmt.Errorf("%s: %w", account.ReferrerCode, err)
		}
	}
	return len(accounts), nil
}
