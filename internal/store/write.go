package store

import (
	"context"
	"fmt"
)

// AppendPass writes a pass and its changes in one transaction.
// ON CONFLICT DO NOTHING makes a repeated append of the same pass ID a
// no-op. A different pass reusing a seq fails on the UNIQUE constraint.
func (s *Store) AppendPass(ctx context.Context, p Pass) error {
	inputsJSON, err := marshalInputs(p.Inputs)
	if err != nil {
		return fmt.Errorf("append pass: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append pass: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
		INSERT INTO passes
		(id, seq, node, node_type, display_name, using_default_name, inputs)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		p.ID,
		p.Seq,
		p.Node,
		p.NodeType,
		p.DisplayName,
		boolToInt(p.UsingDefaultName),
		inputsJSON,
	)
	if err != nil {
		return fmt.Errorf("append pass: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return tx.Commit()
	}

	for i, c := range p.Changes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO changes
			(pass_id, ord, kind, field, old_value, new_value, exact_value)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, p.ID, i, c.Kind, c.Field, c.Old, c.New, c.Value)
		if err != nil {
			return fmt.Errorf("append pass: change %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append pass: commit: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
