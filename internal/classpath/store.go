package classpath

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Store persists a class hierarchy in a SQLite database so large
// classpaths are imported once and reloaded cheaply.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens (creating if needed) the database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening classpath store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing classpath store %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS classes (
		name         TEXT PRIMARY KEY,
		super        TEXT NOT NULL DEFAULT '',
		is_interface INTEGER NOT NULL DEFAULT 0,
		type_params  TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS interfaces (
		class TEXT NOT NULL,
		pos   INTEGER NOT NULL,
		iface TEXT NOT NULL,
		PRIMARY KEY (class, pos)
	);
	CREATE INDEX IF NOT EXISTS idx_interfaces_iface ON interfaces(iface);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts every class of g in a single transaction.
func (s *Store) Save(ctx context.Context, g *Graph) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertClass, err := tx.PrepareContext(ctx, `
	INSERT INTO classes (name, super, is_interface, type_params) VALUES (?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET super = excluded.super,
		is_interface = excluded.is_interface, type_params = excluded.type_params`)
	if err != nil {
		return fmt.Errorf("prepare class insert: %w", err)
	}
	defer insertClass.Close()

	insertIface, err := tx.PrepareContext(ctx, `INSERT INTO interfaces (class, pos, iface) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare interface insert: %w", err)
	}
	defer insertIface.Close()

	for _, c := range g.Classes() {
		isIface := 0
		if c.Interface {
			isIface = 1
		}
		if _, err := insertClass.ExecContext(ctx, c.Name, c.Super, isIface, strings.Join(c.TypeParams, ",")); err != nil {
			return fmt.Errorf("storing class %s: %w", c.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM interfaces WHERE class = ?`, c.Name); err != nil {
			return fmt.Errorf("clearing interfaces of %s: %w", c.Name, err)
		}
		for i, iface := range c.Interfaces {
			if _, err := insertIface.ExecContext(ctx, c.Name, i, iface); err != nil {
				return fmt.Errorf("storing interface %s of %s: %w", iface, c.Name, err)
			}
		}
	}
	return tx.Commit()
}

// Load reads the whole hierarchy into a Graph.
func (s *Store) Load(ctx context.Context) (*Graph, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, super, is_interface, type_params FROM classes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying classes: %w", err)
	}
	defer rows.Close()

	classes := make(map[string]*Class)
	var order []string
	for rows.Next() {
		var c Class
		var isIface int
		var params string
		if err := rows.Scan(&c.Name, &c.Super, &isIface, &params); err != nil {
			return nil, fmt.Errorf("scanning class: %w", err)
		}
		c.Interface = isIface != 0
		if params != "" {
			c.TypeParams = strings.Split(params, ",")
		}
		classes[c.Name] = &c
		order = append(order, c.Name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading classes: %w", err)
	}

	ifaceRows, err := s.db.QueryContext(ctx, `SELECT class, iface FROM interfaces ORDER BY class, pos`)
	if err != nil {
		return nil, fmt.Errorf("querying interfaces: %w", err)
	}
	defer ifaceRows.Close()
	for ifaceRows.Next() {
		var cls, iface string
		if err := ifaceRows.Scan(&cls, &iface); err != nil {
			return nil, fmt.Errorf("scanning interface: %w", err)
		}
		if c, ok := classes[cls]; ok {
			c.Interfaces = append(c.Interfaces, iface)
		}
	}
	if err := ifaceRows.Err(); err != nil {
		return nil, fmt.Errorf("reading interfaces: %w", err)
	}

	g := NewGraph()
	for _, name := range order {
		g.AddClass(*classes[name])
	}
	return g, nil
}

// Count returns the number of stored classes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM classes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting classes: %w", err)
	}
	return n, nil
}
