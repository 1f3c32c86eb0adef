package pricing

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	_ "github.com/lib/pq"
)

// PostgresRuleStore implements RuleStore backed by PostgreSQL. The trigger
// condition and applicability set are stored as JSONB so the tagged union
// round-trips without a table per variant.
type PostgresRuleStore struct {
	db *sql.DB
}

// NewPostgresRuleStore creates a new PostgreSQL-backed RuleStore
func NewPostgresRuleStore(db *sql.DB) *PostgresRuleStore {
	return &PostgresRuleStore{db: db}
}

const ruleColumns = `id, name, description, trigger, adjustment_kind, adjustment_value,
		applies_to, priority, status, created_at, last_triggered_at, times_triggered`

// Add inserts a new rule into the database
func (s *PostgresRuleStore) Add(rule *Rule) error {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM pricing_rules WHERE id = $1)
	`, rule.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check rule existence: %w", err)
	}
	if exists {
		return fmt.Errorf("rule with ID %s already exists", rule.ID)
	}

	trigger, appliesTo, err := encodeRuleFields(rule)
	if err != nil {
		return err
	}

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}

	_, err = s.db.Exec(`
		INSERT INTO pricing_rules (id, name, description, trigger, adjustment_kind,
			adjustment_value, applies_to, priority, status, created_at, times_triggered)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, rule.ID, rule.Name, rule.Description, trigger, string(rule.Adjustment.Kind),
		rule.Adjustment.Value.String(), appliesTo, rule.Priority, string(rule.Status),
		rule.CreatedAt, rule.TimesTriggered)

	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	return nil
}

// Get retrieves a rule by ID
func (s *PostgresRuleStore) Get(id string) (*Rule, error) {
	row := s.db.QueryRow(`
		SELECT `+ruleColumns+`
		FROM pricing_rules
		WHERE id = $1
	`, id)

	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("rule %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// List returns every rule ordered by (priority, id)
func (s *PostgresRuleStore) List() ([]*Rule, error) {
	return s.list(`
		SELECT ` + ruleColumns + `
		FROM pricing_rules
		ORDER BY priority ASC, id ASC
	`)
}

// ListActive returns all active rules ordered by (priority, id)
func (s *PostgresRuleStore) ListActive() ([]*Rule, error) {
	return s.list(`
		SELECT ` + ruleColumns + `
		FROM pricing_rules
		WHERE status = 'active'
		ORDER BY priority ASC, id ASC
	`)
}

func (s *PostgresRuleStore) list(query string) ([]*Rule, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rulesList []*Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rulesList = append(rulesList, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rulesList, nil
}

// Update modifies an existing rule. Trigger counters are server-owned and
// untouched here; use RecordTrigger for those.
func (s *PostgresRuleStore) Update(rule *Rule) error {
	trigger, appliesTo, err := encodeRuleFields(rule)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(`
		UPDATE pricing_rules
		SET name = $1, description = $2, trigger = $3, adjustment_kind = $4,
			adjustment_value = $5, applies_to = $6, priority = $7, status = $8
		WHERE id = $9
	`, rule.Name, rule.Description, trigger, string(rule.Adjustment.Kind),
		rule.Adjustment.Value.String(), appliesTo, rule.Priority, string(rule.Status),
		rule.ID)

	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("rule %s not found", rule.ID)
	}

	return nil
}

// Delete removes a rule from the database
func (s *PostgresRuleStore) Delete(id string) error {
	result, err := s.db.Exec(`
		DELETE FROM pricing_rules
		WHERE id = $1
	`, id)

	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("rule %s not found", id)
	}

	return nil
}

// RecordTrigger bumps the trigger counters for a fired rule
func (s *PostgresRuleStore) RecordTrigger(id string, at time.Time) error {
	result, err := s.db.Exec(`
		UPDATE pricing_rules
		SET times_triggered = times_triggered + 1, last_triggered_at = $2
		WHERE id = $1
	`, id, at)

	if err != nil {
		return fmt.Errorf("failed to record trigger: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("rule %s not found", id)
	}

	return nil
}

func encodeRuleFields(rule *Rule) (trigger []byte, appliesTo []byte, err error) {
	trigger, err = MarshalCondition(rule.Trigger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode trigger: %w", err)
	}

	if rule.AppliesTo == nil {
		appliesTo = []byte("[]")
	} else {
		appliesTo, err = json.Marshal(rule.AppliesTo)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode applies_to: %w", err)
		}
	}

	return trigger, appliesTo, nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (*Rule, error) {
	var (
		rule            Rule
		triggerJSON     []byte
		appliesToJSON   []byte
		adjustmentKind  string
		adjustmentValue string
		status          string
		lastTriggeredAt sql.NullTime
	)

	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Description,
		&triggerJSON,
		&adjustmentKind,
		&adjustmentValue,
		&appliesToJSON,
		&rule.Priority,
		&status,
		&rule.CreatedAt,
		&lastTriggeredAt,
		&rule.TimesTriggered,
	)
	if err != nil {
		return nil, err
	}

	rule.Trigger, err = UnmarshalCondition(triggerJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode trigger: %w", err)
	}

	if err := json.Unmarshal(appliesToJSON, &rule.AppliesTo); err != nil {
		return nil, fmt.Errorf("failed to decode applies_to: %w", err)
	}

	rule.Adjustment.Kind = AdjustmentKind(adjustmentKind)
	rule.Adjustment.Value, err = decimal.NewFromString(adjustmentValue)
	if err != nil {
		return nil, fmt.Errorf("failed to decode adjustment value: %w", err)
	}

	rule.Status = Status(status)
	if lastTriggeredAt.Valid {
		rule.LastTriggeredAt = &lastTriggeredAt.Time
	}

	return &rule, nil
}
