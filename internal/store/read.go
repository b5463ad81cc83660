package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ReadPasses returns journaled passes ordered by seq. An empty node reads
// every node. Returns an empty slice, not nil, when nothing matches.
func (s *Store) ReadPasses(ctx context.Context, node string) ([]Pass, error) {
	query := `
		SELECT id, seq, node, node_type, display_name, using_default_name, inputs
		FROM passes
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`
	args := []any{}
	if node != "" {
		query = `
			SELECT id, seq, node, node_type, display_name, using_default_name, inputs
			FROM passes
			WHERE node = ?
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`
		args = append(args, node)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	passes := []Pass{}
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return nil, err
		}
		passes = append(passes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}

	for i := range passes {
		changes, err := s.readChanges(ctx, passes[i].ID)
		if err != nil {
			return nil, err
		}
		passes[i].Changes = changes
	}
	return passes, nil
}

// ReadPass returns one pass by ID. The bool is false if it does not exist.
func (s *Store) ReadPass(ctx context.Context, id string) (Pass, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, node, node_type, display_name, using_default_name, inputs
		FROM passes
		WHERE id = ?
	`, id)
	p, err := scanPass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Pass{}, false, nil
	}
	if err != nil {
		return Pass{}, false, err
	}
	p.Changes, err = s.readChanges(ctx, id)
	if err != nil {
		return Pass{}, false, err
	}
	return p, true, nil
}

// LastSeq returns the highest journaled seq, or 0 for an empty journal.
// A controller resuming on an existing journal starts its clock here.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM passes`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// ChangeCounts returns the number of journaled changes per kind. An empty
// node counts every node.
func (s *Store) ChangeCounts(ctx context.Context, node string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.kind, COUNT(*)
		FROM changes c
		JOIN passes p ON p.id = c.pass_id
		WHERE ? = '' OR p.node = ?
		GROUP BY c.kind
	`, node, node)
	if err != nil {
		return nil, fmt.Errorf("count changes: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan change count: %w", err)
		}
		counts[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate change counts: %w", err)
	}
	return counts, nil
}

func (s *Store) readChanges(ctx context.Context, passID string) ([]Change, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, field, old_value, new_value, exact_value
		FROM changes
		WHERE pass_id = ?
		ORDER BY ord ASC
	`, passID)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var c Change
		if err := rows.Scan(&c.Kind, &c.Field, &c.Old, &c.New, &c.Value); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return changes, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPass(row scanner) (Pass, error) {
	var (
		p          Pass
		usingDef   int
		inputsJSON string
	)
	if err := row.Scan(&p.ID, &p.Seq, &p.Node, &p.NodeType, &p.DisplayName, &usingDef, &inputsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Pass{}, err
		}
		return Pass{}, fmt.Errorf("scan pass: %w", err)
	}
	p.UsingDefaultName = usingDef == 1
	inputs, err := unmarshalInputs(inputsJSON)
	if err != nil {
		return Pass{}, err
	}
	p.Inputs = inputs
	return p, nil
}
