package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/heartmarshall/retentiond/internal/domain"
)

// PolicyCondition is one structured filter condition in the policy file.
type PolicyCondition struct {
	Column string `yaml:"column"`
	Op     string `yaml:"op"`
	Value  any    `yaml:"value"`
}

// PolicyEntry is one policy in the retention_policies file.
// Enabled defaults to true when omitted.
type PolicyEntry struct {
	PolicyName       string            `yaml:"policy_name"`
	TableName        string            `yaml:"table_name"`
	RetentionDays    int               `yaml:"retention_days"`
	DateColumn       string            `yaml:"date_column"`
	FilterConditions []PolicyCondition `yaml:"filter_conditions"`
	Enabled          *bool             `yaml:"enabled"`
}

type policiesFile struct {
	RetentionPolicies []PolicyEntry `yaml:"retention_policies"`
}

// LoadPolicies reads the retention policy file and converts it to domain
// policies. A missing file is not an error: it yields an empty policy set
// (the caller logs a warning). Malformed YAML is an error; a semantically
// bad policy is not — it is carried through so validation can reject it
// individually without blocking the rest of the batch.
func LoadPolicies(path string) ([]domain.RetentionPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("policies: read %s: %w", path, err)
	}

	var file policiesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("policies: parse %s: %w", path, err)
	}

	policies := make([]domain.RetentionPolicy, len(file.RetentionPolicies))
	for i, entry := range file.RetentionPolicies {
		policies[i] = entry.toDomain()
	}
	return policies, nil
}

func (e PolicyEntry) toDomain() domain.RetentionPolicy {
	enabled := true
	if e.Enabled != nil {
		enabled = *e.Enabled
	}

	conditions := make([]domain.Condition, len(e.FilterConditions))
	for i, c := range e.FilterConditions {
		op, ok := domain.ParseOperator(c.Op)
		if !ok {
			// Pass the raw operator through; predicate building rejects it
			// for this policy alone.
			op = domain.Operator(c.Op)
		}
		conditions[i] = domain.Condition{Column: c.Column, Op: op, Value: c.Value}
	}

	return domain.RetentionPolicy{
		PolicyName:       e.PolicyName,
		TableName:        e.TableName,
		RetentionDays:    e.RetentionDays,
		DateColumn:       e.DateColumn,
		FilterConditions: conditions,
		Enabled:          enabled,
	}
}
