package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-answers/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.sercha-answers/data/answers.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-answers", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "answers.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// TelemetrySink returns a TelemetrySink interface backed by this store.
func (s *Store) TelemetrySink() driven.TelemetrySink {
	return &telemetrySink{store: s}
}

// WebCacheStore returns a WebCacheStore interface backed by this store.
func (s *Store) WebCacheStore() driven.WebCacheStore {
	return &webCacheStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// SaveDocument stores or updates a document.
func (s *chunkStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents
			(id, checksum, doc_type, product, version, category, privacy,
			 classification_confidence, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			checksum = excluded.checksum,
			doc_type = excluded.doc_type,
			product = excluded.product,
			version = excluded.version,
			category = excluded.category,
			privacy = excluded.privacy,
			classification_confidence = excluded.classification_confidence,
			metadata = excluded.metadata
	`, doc.ID, doc.Checksum, doc.DocType, doc.Product, doc.Version, doc.Category,
		string(doc.Privacy), doc.ClassificationConfidence, string(metadataJSON), doc.CreatedAt)

	if err != nil {
		return &domain.StoreUnavailableError{Op: "save document", Err: err}
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *chunkStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, checksum, doc_type, product, version, category, privacy,
		       classification_confidence, metadata, created_at
		FROM documents WHERE id = ?
	`, id)

	return scanDocument(row)
}

// GetDocumentByChecksum retrieves a document by its content checksum.
func (s *chunkStore) GetDocumentByChecksum(ctx context.Context, checksum string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, checksum, doc_type, product, version, category, privacy,
		       classification_confidence, metadata, created_at
		FROM documents WHERE checksum = ?
	`, checksum)

	return scanDocument(row)
}

// ReclassifyDocument updates a document's classification and propagates
// the denormalised tags to its chunks in one transaction.
func (s *chunkStore) ReclassifyDocument(ctx context.Context, doc *domain.Document) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "reclassify document", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		UPDATE documents SET
			doc_type = ?, product = ?, version = ?, category = ?, privacy = ?,
			classification_confidence = ?
		WHERE id = ?
	`, doc.DocType, doc.Product, doc.Version, doc.Category, string(doc.Privacy),
		doc.ClassificationConfidence, doc.ID)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "reclassify document", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE chunks SET doc_type = ?, product = ?, privacy = ?
		WHERE document_id = ?
	`, doc.DocType, doc.Product, string(doc.Privacy), doc.ID)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "reclassify chunks", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StoreUnavailableError{Op: "reclassify document", Err: err}
	}
	return nil
}

// DeleteDocument removes a document. Chunks and their embeddings go
// with it through the FK cascade.
func (s *chunkStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "delete document", Err: err}
	}
	return nil
}

// UpsertChunk stores a chunk with its embeddings. Re-upserting
// identical content at the same position is a no-op; different content
// at an occupied position fails with *domain.DuplicateChunkError.
func (s *chunkStore) UpsertChunk(
	ctx context.Context, chunk domain.Chunk, embeddings []domain.Embedding,
) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "upsert chunk", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	var existingID, existingContent string
	err = tx.QueryRowContext(ctx, `
		SELECT id, content FROM chunks WHERE document_id = ? AND position = ?
	`, chunk.DocumentID, chunk.Position).Scan(&existingID, &existingContent)
	switch {
	case err == nil:
		if existingContent != chunk.Content {
			return &domain.DuplicateChunkError{
				DocumentID: chunk.DocumentID,
				Position:   chunk.Position,
			}
		}
		// Same content at the same position: keep the stored chunk ID
		// so re-ingestion replaces vectors rather than duplicating rows.
		chunk.ID = existingID
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chunks
				(id, document_id, position, kind, page, content, privacy,
				 doc_type, product, section_title, language, token_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, chunk.ID, chunk.DocumentID, chunk.Position, string(chunk.Kind), chunk.Page,
			chunk.Content, string(chunk.Privacy), chunk.DocType, chunk.Product,
			chunk.SectionTitle, chunk.Language, chunk.TokenCount); err != nil {
			return &domain.StoreUnavailableError{Op: "insert chunk", Err: err}
		}
	default:
		return &domain.StoreUnavailableError{Op: "upsert chunk", Err: err}
	}

	// Vectors are replaced wholesale, never mutated.
	for _, embedding := range embeddings {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO embeddings (chunk_id, model_id, vector)
			VALUES (?, ?, ?)
			ON CONFLICT(chunk_id, model_id) DO UPDATE SET
				vector = excluded.vector
		`, chunk.ID, embedding.ModelID, float32SliceToBytes(embedding.Vector)); err != nil {
			return &domain.StoreUnavailableError{Op: "upsert embedding", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StoreUnavailableError{Op: "upsert chunk", Err: err}
	}
	return nil
}

// GetChunk retrieves a chunk by ID.
func (s *chunkStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, document_id, position, kind, page, content, privacy,
		       doc_type, product, section_title, language, token_count
		FROM chunks WHERE id = ?
	`, id)

	chunk, err := scanChunk(row)
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// CountChunks returns the number of chunks for a document.
func (s *chunkStore) CountChunks(ctx context.Context, documentID string) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE document_id = ?", documentID).Scan(&count)
	if err != nil {
		return 0, &domain.StoreUnavailableError{Op: "count chunks", Err: err}
	}
	return count, nil
}

// RegisterModel stores an embedding model registration.
func (s *chunkStore) RegisterModel(ctx context.Context, model domain.EmbeddingModel) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO embedding_models (id, name, dimension, provider)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			dimension = excluded.dimension,
			provider = excluded.provider
	`, model.ID, model.Name, model.Dimension, model.Provider)

	if err != nil {
		return &domain.StoreUnavailableError{Op: "register model", Err: err}
	}
	return nil
}

// GetModel retrieves an embedding model by name.
func (s *chunkStore) GetModel(ctx context.Context, name string) (*domain.EmbeddingModel, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, dimension, provider FROM embedding_models WHERE name = ?
	`, name)

	var model domain.EmbeddingModel
	if err := row.Scan(&model.ID, &model.Name, &model.Dimension, &model.Provider); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.StoreUnavailableError{Op: "get model", Err: err}
	}
	return &model, nil
}

// Close is a no-op for the wrapper; the owning Store closes the database.
func (s *chunkStore) Close() error {
	return nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// scanDocument scans a single document row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var privacy string
	var metadataJSON sql.NullString
	var createdAt sql.NullTime

	if err := row.Scan(&doc.ID, &doc.Checksum, &doc.DocType, &doc.Product, &doc.Version,
		&doc.Category, &privacy, &doc.ClassificationConfidence,
		&metadataJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.StoreUnavailableError{Op: "scan document", Err: err}
	}

	doc.Privacy = domain.PrivacyLevel(privacy)
	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}
	if createdAt.Valid {
		doc.CreatedAt = createdAt.Time
	}

	return &doc, nil
}

// chunkScanner covers *sql.Row and *sql.Rows.
type chunkScanner interface {
	Scan(dest ...any) error
}

// scanChunk scans a chunk row.
func scanChunk(row chunkScanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var kind, privacy string

	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Position, &kind, &chunk.Page,
		&chunk.Content, &privacy, &chunk.DocType, &chunk.Product,
		&chunk.SectionTitle, &chunk.Language, &chunk.TokenCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.StoreUnavailableError{Op: "scan chunk", Err: err}
	}

	chunk.Kind = domain.ChunkKind(kind)
	chunk.Privacy = domain.PrivacyLevel(privacy)
	return &chunk, nil
}
