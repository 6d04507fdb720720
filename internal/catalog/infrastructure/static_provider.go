// Package infrastructure provides catalog providers: a static provider backed
// by a YAML document, plus Redis-cached and circuit-broken decorators.
package infrastructure

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"

	"github.com/felixgeelhaar/aromabox/internal/catalog/domain"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/security"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogDocument struct {
	Version     string              `yaml:"version"`
	Plans       []domain.Plan       `yaml:"plans"`
	DeviceTypes []domain.DeviceType `yaml:"device_types"`
	Oils        []domain.AromaOil   `yaml:"oils"`
}

// StaticProvider serves an in-memory catalog. It never changes after
// construction, so it needs no locking.
type StaticProvider struct {
	version     string
	plans       []domain.Plan
	oils        []domain.AromaOil
	deviceTypes []domain.DeviceType

	planByID   map[string]domain.Plan
	oilByID    map[string]domain.AromaOil
	deviceByID map[string]domain.DeviceType
}

var _ domain.Provider = (*StaticProvider)(nil)

// NewDefaultProvider loads the catalog bundled with the binary.
func NewDefaultProvider() (*StaticProvider, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalogFile loads a catalog from a YAML file.
func LoadCatalogFile(path string) (*StaticProvider, error) {
	data, err := security.ReadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog builds a provider from a YAML document. When the document has
// no explicit version, a content hash is used.
func ParseCatalog(data []byte) (*StaticProvider, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, domain.ErrInvalidCatalog.Wrap(err)
	}

	version := doc.Version
	if version == "" {
		sum := sha256.Sum256(data)
		version = hex.EncodeToString(sum[:8])
	}

	return NewStaticProvider(version, doc.Plans, doc.DeviceTypes, doc.Oils)
}

// NewStaticProvider validates and indexes catalog entries.
func NewStaticProvider(version string, plans []domain.Plan, deviceTypes []domain.DeviceType, oils []domain.AromaOil) (*StaticProvider, error) {
	p := &StaticProvider{
		version:     version,
		plans:       plans,
		oils:        oils,
		deviceTypes: deviceTypes,
		planByID:    make(map[string]domain.Plan, len(plans)),
		oilByID:     make(map[string]domain.AromaOil, len(oils)),
		deviceByID:  make(map[string]domain.DeviceType, len(deviceTypes)),
	}

	for _, plan := range plans {
		if err := plan.Validate(); err != nil {
			return nil, err
		}
		if _, dup := p.planByID[plan.ID]; dup {
			return nil, domain.ErrInvalidCatalog.WithDetails("duplicate plan %s", plan.ID)
		}
		p.planByID[plan.ID] = plan
	}
	for _, oil := range oils {
		if err := oil.Validate(); err != nil {
			return nil, err
		}
		if _, dup := p.oilByID[oil.ID]; dup {
			return nil, domain.ErrInvalidCatalog.WithDetails("duplicate oil %s", oil.ID)
		}
		p.oilByID[oil.ID] = oil
	}
	for _, dt := range deviceTypes {
		if err := dt.Validate(); err != nil {
			return nil, err
		}
		if _, dup := p.deviceByID[dt.ID]; dup {
			return nil, domain.ErrInvalidCatalog.WithDetails("duplicate device type %s", dt.ID)
		}
		p.deviceByID[dt.ID] = dt
	}

	return p, nil
}

func (p *StaticProvider) Version(context.Context) (string, error) {
	return p.version, nil
}

func (p *StaticProvider) ListPlans(context.Context) ([]domain.Plan, error) {
	return append([]domain.Plan(nil), p.plans...), nil
}

func (p *StaticProvider) ListAromaOils(context.Context) ([]domain.AromaOil, error) {
	return append([]domain.AromaOil(nil), p.oils...), nil
}

func (p *StaticProvider) ListDeviceTypes(context.Context) ([]domain.DeviceType, error) {
	return append([]domain.DeviceType(nil), p.deviceTypes...), nil
}

func (p *StaticProvider) GetPlan(_ context.Context, id string) (*domain.Plan, error) {
	plan, ok := p.planByID[id]
	if !ok {
		return nil, domain.ErrPlanNotFound.WithDetails("id=%s", id)
	}
	return &plan, nil
}

func (p *StaticProvider) GetAromaOil(_ context.Context, id string) (*domain.AromaOil, error) {
	oil, ok := p.oilByID[id]
	if !ok {
		return nil, domain.ErrUnknownOil.WithDetails("id=%s", id)
	}
	return &oil, nil
}

func (p *StaticProvider) GetDeviceType(_ context.Context, id string) (*domain.DeviceType, error) {
	dt, ok := p.deviceByID[id]
	if !ok {
		return nil, domain.ErrDeviceTypeNotFound.WithDetails("id=%s", id)
	}
	return &dt, nil
}
