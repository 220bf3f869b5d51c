package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for documents and ICP
// profiles. Vector rows live in the same database and are managed by
// the retrieval package over the shared connection.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "kbready.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for the vector store, which
// shares the same database file.
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Documents ---

func (s *Store) SaveDocument(d Document) error {
	now := time.Now().UTC()
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := d.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	tags := d.Tags
	if tags == "" {
		tags = "[]"
	}
	_, err := s.db.Exec(`
		INSERT INTO documents (id, title, section, scope_id, source, origin, content, summary, tags, committed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Title, d.Section, d.ScopeID, d.Source, d.Origin, d.Content, d.Summary,
		tags, boolToInt(d.Committed), createdAt.Format(time.RFC3339), updatedAt.Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetDocument(id string) (Document, error) {
	var d Document
	var committed int
	var createdAt, updatedAt string
	err := s.db.QueryRow(`
		SELECT id, title, section, scope_id, source, origin, content, summary, tags, committed, created_at, updated_at
		FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.Title, &d.Section, &d.ScopeID, &d.Source, &d.Origin, &d.Content, &d.Summary, &d.Tags, &committed, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	d.Committed = committed != 0
	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Document{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return Document{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return d, nil
}

func (s *Store) ListDocuments(f DocumentFilter) ([]Document, error) {
	query := `SELECT id, title, section, scope_id, source, origin, content, summary, tags, committed, created_at, updated_at
		FROM documents`
	var clauses []string
	var args []interface{}
	if f.ScopeID != "" {
		clauses = append(clauses, "scope_id = ?")
		args = append(args, f.ScopeID)
	}
	if f.Section != "" {
		clauses = append(clauses, "section = ?")
		args = append(args, f.Section)
	}
	if f.CommittedOnly {
		clauses = append(clauses, "committed = 1")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Document
	for rows.Next() {
		var d Document
		var committed int
		var createdAt, updatedAt string
		if err := rows.Scan(&d.ID, &d.Title, &d.Section, &d.ScopeID, &d.Source, &d.Origin, &d.Content, &d.Summary, &d.Tags, &committed, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		d.Committed = committed != 0
		if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		if d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// UpdateDocumentContent stores the extracted text for a document.
func (s *Store) UpdateDocumentContent(id, content string) error {
	return s.updateDocument(`UPDATE documents SET content = ?, updated_at = ? WHERE id = ?`,
		content, nowRFC3339(), id)
}

// UpdateDocumentTags stores the tagging result for a document.
func (s *Store) UpdateDocumentTags(id, tags, summary string) error {
	return s.updateDocument(`UPDATE documents SET tags = ?, summary = ?, updated_at = ? WHERE id = ?`,
		tags, summary, nowRFC3339(), id)
}

// MarkDocumentCommitted flips a document to committed, making it
// visible to scoring and retrieval.
func (s *Store) MarkDocumentCommitted(id string) error {
	return s.updateDocument(`UPDATE documents SET committed = 1, updated_at = ? WHERE id = ?`,
		nowRFC3339(), id)
}

func (s *Store) updateDocument(query string, args ...interface{}) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDocument removes a document and its vector rows.
func (s *Store) DeleteDocument(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec("DELETE FROM knowledge_vectors WHERE source_id = ?", id); err != nil {
		return fmt.Errorf("deleting vectors for %s: %w", id, err)
	}
	return tx.Commit()
}

// --- ICP profiles ---

func (s *Store) SaveICP(p ICPProfile) error {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO icp_profiles (id, name, profile, pain_points, messaging, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, orDefault(p.Profile, "{}"), orDefault(p.PainPoints, "[]"),
		orDefault(p.Messaging, "{}"), createdAt.Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetICP(id string) (ICPProfile, error) {
	var p ICPProfile
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, name, profile, pain_points, messaging, created_at
		FROM icp_profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Profile, &p.PainPoints, &p.Messaging, &createdAt)
	if err == sql.ErrNoRows {
		return ICPProfile{}, ErrNotFound
	}
	if err != nil {
		return ICPProfile{}, err
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return ICPProfile{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return p, nil
}

func (s *Store) ListICPs() ([]ICPProfile, error) {
	rows, err := s.db.Query(`
		SELECT id, name, profile, pain_points, messaging, created_at
		FROM icp_profiles ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ICPProfile
	for rows.Next() {
		var p ICPProfile
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Profile, &p.PainPoints, &p.Messaging, &createdAt); err != nil {
			return nil, err
		}
		if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

func (s *Store) CountICPs() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM icp_profiles").Scan(&count)
	return count, err
}

func (s *Store) DeleteICP(id string) error {
	res, err := s.db.Exec("DELETE FROM icp_profiles WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
