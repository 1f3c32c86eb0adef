package pricing

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// RuleStore manages rule persistence and retrieval. The evaluation core
// only ever reads from it; the one write it requires of callers is
// RecordTrigger, the bookkeeping performed after a live evaluation.
type RuleStore interface {
	// Add a new rule
	Add(rule *Rule) error

	// Get a rule by ID
	Get(id string) (*Rule, error)

	// List all rules regardless of status
	List() ([]*Rule, error)

	// ListActive returns rules with status "active", ordered by
	// (priority, id) to match resolution order
	ListActive() ([]*Rule, error)

	// Update an existing rule
	Update(rule *Rule) error

	// Delete a rule
	Delete(id string) error

	// RecordTrigger bumps timesTriggered and lastTriggeredAt for a rule
	// that fired during live evaluation
	RecordTrigger(id string, at time.Time) error
}

// InMemoryRuleStore implements RuleStore using a mutex-guarded map.
// Used by tests and by simulation-only deployments with no database.
type InMemoryRuleStore struct {
	rules map[string]*Rule
	mu    sync.RWMutex
}

// NewInMemoryRuleStore creates a new in-memory rule store
func NewInMemoryRuleStore() *InMemoryRuleStore {
	return &InMemoryRuleStore{
		rules: make(map[string]*Rule),
	}
}

// Add adds a new rule to the store, enforcing unique IDs
func (s *InMemoryRuleStore) Add(rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.ID]; exists {
		return fmt.Errorf("rule with ID %s already exists", rule.ID)
	}

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}
	s.rules[rule.ID] = rule
	return nil
}

// Get retrieves a rule by ID
func (s *InMemoryRuleStore) Get(id string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, exists := s.rules[id]
	if !exists {
		return nil, fmt.Errorf("rule with ID %s not found", id)
	}
	return rule, nil
}

// List returns every rule ordered by (priority, id)
func (s *InMemoryRuleStore) List() ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*Rule, 0, len(s.rules))
	for _, rule := range s.rules {
		all = append(all, rule)
	}
	sortRules(all)
	return all, nil
}

// ListActive returns all active rules ordered by (priority, id)
func (s *InMemoryRuleStore) ListActive() ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []*Rule
	for _, rule := range s.rules {
		if rule.Status == StatusActive {
			active = append(active, rule)
		}
	}
	sortRules(active)
	return active, nil
}

// Update updates an existing rule, preserving CreatedAt and the trigger
// counters the caller does not own
func (s *InMemoryRuleStore) Update(rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.rules[rule.ID]
	if !exists {
		return fmt.Errorf("rule with ID %s not found", rule.ID)
	}

	rule.CreatedAt = existing.CreatedAt
	rule.LastTriggeredAt = existing.LastTriggeredAt
	rule.TimesTriggered = existing.TimesTriggered
	s.rules[rule.ID] = rule
	return nil
}

// Delete removes a rule from the store
func (s *InMemoryRuleStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[id]; !exists {
		return fmt.Errorf("rule with ID %s not found", id)
	}

	delete(s.rules, id)
	return nil
}

// RecordTrigger bumps the trigger counters for a fired rule
func (s *InMemoryRuleStore) RecordTrigger(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, exists := s.rules[id]
	if !exists {
		return fmt.Errorf("rule with ID %s not found", id)
	}

	rule.TimesTriggered++
	rule.LastTriggeredAt = &at
	return nil
}

// sortRules orders rules by (priority, id), matching resolution order so
// listings read the way rules apply.
func sortRules(rules []*Rule) {
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
}
