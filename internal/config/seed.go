package config

import (
	"context"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
	"github.com/rl1809/acme-warehouse/internal/core/service"
)

// Seed describes the managers, stock and prices to apply to a fresh ledger.
//
//	prices:
//	  1: "1000000000000000"
//	managers:
//	  - address: 0xabc
//	    stock:
//	      0: 1000
type Seed struct {
	Prices   map[domain.ItemID]string `yaml:"prices"`
	Managers []SeedManager            `yaml:"managers"`
}

type SeedManager struct {
	Address domain.Address          `yaml:"address"`
	Stock   map[domain.ItemID]int64 `yaml:"stock"`
}

func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read seed file %s", path)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, errors.Wrapf(err, "parse seed file %s", path)
	}
	for i, m := range seed.Managers {
		if m.Address.IsZero() {
			return nil, errors.Errorf("seed manager %d has no address", i)
		}
	}
	return &seed, nil
}

// Apply registers the seed through the ledger acting as admin. Managers that
// are already on the roster are left untouched, stock included.
func (s *Seed) Apply(ctx context.Context, ledger *service.LedgerService, admin domain.Address, log logrus.FieldLogger) error {
	for _, item := range sortedKeys(s.Prices) {
		amount, err := decimal.NewFromString(s.Prices[item])
		if err != nil {
			return errors.Wrapf(err, "price of item %d", item)
		}
		if err := ledger.SetPrice(ctx, admin, item, amount); err != nil {
			return errors.Wrapf(err, "seed price of item %d", item)
		}
	}

	added := 0
	for _, m := range s.Managers {
		err := ledger.AddManager(ctx, admin, m.Address)
		if errors.Is(err, service.ErrAlreadyExists) {
			log.WithField("manager", m.Address).Info("seed manager already present, skipped")
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "seed manager %s", m.Address)
		}
		for _, item := range sortedKeys(m.Stock) {
			if err := ledger.SetBalance(ctx, admin, m.Address, item, m.Stock[item]); err != nil {
				return errors.Wrapf(err, "seed stock of %s", m.Address)
			}
		}
		added++
	}

	log.WithFields(logrus.Fields{
		"managers": added,
		"prices":   len(s.Prices),
	}).Info("seed applied")
	return nil
}

// Bootstrap initializes the ledger with admin and applies seed only when this
// call performed the initialization. A ledger that is already initialized must
// be administered by admin and is left as it is.
func Bootstrap(ctx context.Context, ledger *service.LedgerService, admin domain.Address, seed *Seed, log logrus.FieldLogger) error {
	current, err := ledger.Initialize(ctx, admin)
	switch {
	case errors.Is(err, service.ErrAlreadyInitialized):
		if current != admin {
			return errors.Errorf("ledger is administered by %s, not %s", current, admin)
		}
		log.WithField("administrator", admin).Info("ledger already initialized, seed not applied")
		return nil
	case err != nil:
		return errors.Wrap(err, "initialize ledger")
	}

	if seed == nil {
		return nil
	}
	return seed.Apply(ctx, ledger, admin, log)
}

func sortedKeys[V any](m map[domain.ItemID]V) []domain.ItemID {
	keys := make([]domain.ItemID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
