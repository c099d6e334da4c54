package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"survey-runner/internal/domain"
)

// Open opens the outbox database at path, creating the file if needed.
// A single connection enforces the single-writer discipline the queue
// relies on.
func Open(path string) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open outbox db: %w", err)
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

type entryRow struct {
	bun.BaseModel `bun:"table:outbox_entries,alias:oe"`

	ID         int64     `bun:"id,pk,autoincrement"`
	SurveyID   string    `bun:"survey_id,notnull"`
	SurveyName string    `bun:"survey_name,notnull"`
	TeamID     string    `bun:"team_id"`
	TeamName   string    `bun:"team_name"`
	Payload    []byte    `bun:"payload,notnull"`
	EnqueuedAt time.Time `bun:"enqueued_at,notnull"`
}

// Outbox is the durable implementation of app.OutboxStore. Each row holds
// the serialized submission plus denormalized survey and team fields so
// listings never touch the payload.
type Outbox struct {
	db *bun.DB
}

func NewOutbox(db *bun.DB) *Outbox {
	return &Outbox{db: db}
}

func (o *Outbox) Enqueue(ctx context.Context, entry domain.OutboxEntry) (int64, error) {
	payload, err := json.Marshal(entry.Submission)
	if err != nil {
		return 0, fmt.Errorf("serialize submission: %w", err)
	}
	row := &entryRow{
		SurveyID:   entry.SurveyID,
		SurveyName: entry.SurveyName,
		TeamID:     entry.TeamID,
		TeamName:   entry.TeamName,
		Payload:    payload,
		EnqueuedAt: entry.EnqueuedAt,
	}
	if _, err := o.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return 0, fmt.Errorf("enqueue: %w", err)
	}
	return row.ID, nil
}

func (o *Outbox) ListByTeam(ctx context.Context, teamID string) ([]domain.OutboxEntry, error) {
	var rows []entryRow
	q := o.db.NewSelect().Model(&rows).OrderExpr("id DESC")
	if teamID != "" {
		q = q.Where("team_id = ?", teamID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}
	entries := make([]domain.OutboxEntry, 0, len(rows))
	for i := range rows {
		entry, err := rows[i].toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (o *Outbox) Get(ctx context.Context, localID int64) (domain.OutboxEntry, error) {
	row := new(entryRow)
	err := o.db.NewSelect().Model(row).Where("id = ?", localID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.OutboxEntry{}, domain.ErrEntryNotFound
	}
	if err != nil {
		return domain.OutboxEntry{}, fmt.Errorf("get outbox entry: %w", err)
	}
	return row.toEntry()
}

func (o *Outbox) Delete(ctx context.Context, localID int64) (bool, error) {
	res, err := o.db.NewDelete().Model((*entryRow)(nil)).Where("id = ?", localID).Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("delete outbox entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *entryRow) toEntry() (domain.OutboxEntry, error) {
	var sub domain.Submission
	if err := json.Unmarshal(r.Payload, &sub); err != nil {
		return domain.OutboxEntry{}, fmt.Errorf("deserialize entry %d: %w", r.ID, err)
	}
	return domain.OutboxEntry{
		LocalID:    r.ID,
		SurveyID:   r.SurveyID,
		SurveyName: r.SurveyName,
		TeamID:     r.TeamID,
		TeamName:   r.TeamName,
		EnqueuedAt: r.EnqueuedAt,
		Submission: sub,
	}, nil
}
