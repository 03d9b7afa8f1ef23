package admin

import (
	"database/sql"
	"time"
)

// FileRecord is the catalogue entry for one indexed document.
type FileRecord struct {
	ID         int       `json:"id"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	UploadDate time.Time `json:"upload_date"`
	UploadedBy string    `json:"uploaded_by"`
	Status     string    `json:"status"`
}

// FileRepo persists the file catalogue and the durable delete markers that
// keep vector and metadata removal honest across crashes.
type FileRepo struct {
	db *sql.DB
}

func NewFileRepo(db *sql.DB) *FileRepo {
	return &FileRepo{db: db}
}

// Save upserts one catalogue entry. Re-uploading a filename refreshes its
// size, uploader and date instead of failing the unique key.
func (r *FileRepo) Save(rec FileRecord) error {
	_, err := r.db.Exec(`
		INSERT INTO files (filename, size, upload_date, uploaded_by, status)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE size = VALUES(size), upload_date = VALUES(upload_date),
			uploaded_by = VALUES(uploaded_by), status = VALUES(status)`,
		rec.Filename, rec.Size, rec.UploadDate, rec.UploadedBy, rec.Status)
	return err
}

func (r *FileRepo) List() ([]FileRecord, error) {
	rows, err := r.db.Query(`SELECT id, filename, size, upload_date, uploaded_by, status FROM files ORDER BY upload_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []FileRecord{}
	for rows.Next() {
		var rec FileRecord
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.Size, &rec.UploadDate, &rec.UploadedBy, &rec.Status); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *FileRepo) Exists(filename string) (bool, error) {
	var one int
	err := r.db.QueryRow(`SELECT 1 FROM files WHERE filename = ? LIMIT 1`, filename).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes the catalogue entry, reporting whether a row existed.
func (r *FileRepo) Remove(filename string) (bool, error) {
	res, err := r.db.Exec(`DELETE FROM files WHERE filename = ?`, filename)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *FileRepo) RemoveAll() error {
	_, err := r.db.Exec(`DELETE FROM files`)
	return err
}

// MarkPendingDelete records that a delete is in flight before any
// destructive step runs. Idempotent for retried deletes.
func (r *FileRepo) MarkPendingDelete(filename string) error {
	_, err := r.db.Exec(`
		INSERT INTO pending_deletes (filename, requested_at, vectors_deleted)
		VALUES (?, ?, 0)
		ON DUPLICATE KEY UPDATE requested_at = VALUES(requested_at)`,
		filename, time.Now().UTC())
	return err
}

// MarkVectorsDeleted flags that the index side of the delete finished.
func (r *FileRepo) MarkVectorsDeleted(filename string) error {
	_, err := r.db.Exec(`UPDATE pending_deletes SET vectors_deleted = 1 WHERE filename = ?`, filename)
	return err
}

// ClearPendingDelete removes the marker once both sides are done.
func (r *FileRepo) ClearPendingDelete(filename string) error {
	_, err := r.db.Exec(`DELETE FROM pending_deletes WHERE filename = ?`, filename)
	return err
}

// PendingDelete is one delete that did not finish.
type PendingDelete struct {
	Filename       string
	VectorsDeleted bool
}

func (r *FileRepo) PendingDeletes() ([]PendingDelete, error) {
	rows, err := r.db.Query(`SELECT filename, vectors_deleted FROM pending_deletes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []PendingDelete
	for rows.Next() {
		var p PendingDelete
		if err := rows.Scan(&p.Filename, &p.VectorsDeleted); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}
