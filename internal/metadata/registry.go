package metadata

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Alias1177/SubnetScope/models"
)

// Valid subnet ids.
const (
	MinSubnetID = 0
	MaxSubnetID = 1024
)

// UnknownType is reported for subnets missing from the table.
const UnknownType = "unknown"

//go:embed subnets.json
var subnetsJSON []byte

// Registry is the static subnet metadata table
type Registry struct {
	subnets map[int]models.SubnetMetadata
}

// Load parses the embedded table.
func Load() (*Registry, error) {
	return parse(subnetsJSON)
}

// MustLoad is Load for program start-up.
func MustLoad() *Registry {
	r, err := Load()
	if err != nil {
		panic(err)
	}
	return r
}

func parse(data []byte) (*Registry, error) {
	var list []models.SubnetMetadata
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse subnet metadata: %w", err)
	}

	r := &Registry{subnets: make(map[int]models.SubnetMetadata, len(list))}
	for _, m := range list {
		if err := ValidateID(m.ID); err != nil {
			return nil, err
		}
		if _, dup := r.subnets[m.ID]; dup {
			return nil, fmt.Errorf("duplicate subnet %d in metadata", m.ID)
		}
		r.subnets[m.ID] = m
	}
	return r, nil
}

// Lookup never fails: unknown subnets get a generic name and no repository.
func (r *Registry) Lookup(id int) models.SubnetMetadata {
	if m, ok := r.subnets[id]; ok {
		return m
	}
	return models.SubnetMetadata{
		ID:          id,
		Name:        fmt.Sprintf("Subnet %d", id),
		Type:        UnknownType,
		Description: fmt.Sprintf("Bittensor subnet %d - metadata not available", id),
	}
}

// Known reports whether the table has an entry for id.
func (r *Registry) Known(id int) bool {
	_, ok := r.subnets[id]
	return ok
}

// All returns the table ordered by id.
func (r *Registry) All() []models.SubnetMetadata {
	out := make([]models.SubnetMetadata, 0, len(r.subnets))
	for _, m := range r.subnets {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ValidateID checks the subnet id range.
func ValidateID(id int) error {
	if id < MinSubnetID || id > MaxSubnetID {
		return &models.ValidationError{
			Field:   "subnet_id",
			Message: fmt.Sprintf("must be between %d and %d, got %d", MinSubnetID, MaxSubnetID, id),
		}
	}
	return nil
}
