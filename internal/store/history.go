package store

import (
	"time"

	"github.com/videoteka/videoteka/internal/domain"
)

// AddDownload appends one completed (or otherwise finished) download to the
// history table. History is append-only from the queue's point of view; the
// core never reads it back.
func (s *PersistentStore) AddDownload(rec domain.DownloadRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO downloads (url, title, download_date, file_path, file_size, video_quality, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.URL, rec.Title, rec.Date.Format(time.RFC3339),
		rec.FilePath, rec.FileSize, rec.Quality, rec.Status,
	)
	return err
}

// ListDownloads returns history entries, newest first. A limit <= 0 falls
// back to 100.
func (s *PersistentStore) ListDownloads(limit int) ([]domain.DownloadRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(`
		SELECT id, url, title, download_date, file_path, file_size, video_quality, status
		FROM downloads
		ORDER BY download_date DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.DownloadRecord
	for rows.Next() {
		var rec domain.DownloadRecord
		var date string

		err := rows.Scan(&rec.ID, &rec.URL, &rec.Title, &date,
			&rec.FilePath, &rec.FileSize, &rec.Quality, &rec.Status)
		if err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339, date); err == nil {
			rec.Date = ts
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

func (s *PersistentStore) DeleteDownload(id int64) error {
	_, err := s.db.Exec("DELETE FROM downloads WHERE id = ?", id)
	return err
}

func (s *PersistentStore) ClearDownloads() error {
	_, err := s.db.Exec("DELETE FROM downloads")
	return err
}
