package repo

import (
    "context"
    "errors"
    "time"

    "github.com/buildit/illuminate/internal/config"
    "github.com/buildit/illuminate/internal/domain"
    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/rs/zerolog"
)

type DB struct {
    Pool *pgxpool.Pool
    log  zerolog.Logger
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
    pool, err := pgxpool.New(ctx, cfg.DBDSN)
    if err != nil { log.Fatal().Err(err).Msg("db connect failed") }
    ctx2, cancel := context.WithTimeout(ctx, 10*time.Second); defer cancel()
    if err := pool.Ping(ctx2); err != nil { log.Fatal().Err(err).Msg("db ping failed") }
    return &DB{Pool: pool, log: log}
}

func (d *DB) Close() { d.Pool.Close() }

type Repository struct {
    db  *DB
    log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

// TryLock takes the session advisory lock for key on a single connection
// pinned out of the pool. Advisory locks are session-scoped, so the unlock
// must run on the very connection that took the lock; routing it through the
// pool could land it on a different session and strand the lock until the
// holding connection is recycled. The returned release runs the unlock on the
// pinned connection and then returns it to the pool.
func (r *Repository) TryLock(ctx context.Context, key int64) (release func(), ok bool, err error) {
    conn, err := r.db.Pool.Acquire(ctx)
    if err != nil { return nil, false, err }
    if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok); err != nil {
        conn.Release()
        return nil, false, err
    }
    if !ok {
        conn.Release()
        return nil, false, nil
    }
    release = func() {
        // not the request context: a disconnecting caller must not cancel the unlock
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        var unlocked bool
        if err := conn.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&unlocked); err != nil || !unlocked {
            r.log.Error().Err(err).Int64("key", key).Msg("advisory unlock failed")
        }
        conn.Release()
    }
    return release, true, nil
}

// ---- projects ----

func (r *Repository) UpsertProject(ctx context.Context, p domain.Project) (int64, error) {
    const q = `
        INSERT INTO projects(name, program, portfolio, description, start_date, end_date, demand, defect, effort)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT(name) DO UPDATE SET
            program=EXCLUDED.program,
            portfolio=EXCLUDED.portfolio,
            description=EXCLUDED.description,
            start_date=EXCLUDED.start_date,
            end_date=EXCLUDED.end_date,
            demand=EXCLUDED.demand,
            defect=EXCLUDED.defect,
            effort=EXCLUDED.effort
        RETURNING id`
    var id int64
    row := r.db.Pool.QueryRow(ctx, q, p.Name, p.Program, p.Portfolio, p.Description,
        p.StartDate, p.EndDate, p.Demand, p.Defect, p.Effort)
    if err := row.Scan(&id); err != nil { return 0, err }
    return id, nil
}

// GetProjectByName returns nil without error when the project does not exist
func (r *Repository) GetProjectByName(ctx context.Context, name string) (*domain.Project, error) {
    const q = `SELECT id, name, COALESCE(program,''), COALESCE(portfolio,''), COALESCE(description,''),
        start_date, end_date, demand, defect, effort
        FROM projects WHERE name=$1`
    var p domain.Project
    err := r.db.Pool.QueryRow(ctx, q, name).Scan(&p.ID, &p.Name, &p.Program, &p.Portfolio, &p.Description,
        &p.StartDate, &p.EndDate, &p.Demand, &p.Defect, &p.Effort)
    if errors.Is(err, pgx.ErrNoRows) { return nil, nil }
    if err != nil { return nil, err }
    return &p, nil
}

func (r *Repository) ListProjects(ctx context.Context) ([]domain.Project, error) {
    const q = `SELECT id, name, COALESCE(program,''), COALESCE(portfolio,''), COALESCE(description,''),
        start_date, end_date, demand, defect, effort
        FROM projects ORDER BY name`
    rows, err := r.db.Pool.Query(ctx, q)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []domain.Project
    for rows.Next() {
        var p domain.Project
        if err := rows.Scan(&p.ID, &p.Name, &p.Program, &p.Portfolio, &p.Description,
            &p.StartDate, &p.EndDate, &p.Demand, &p.Defect, &p.Effort); err != nil { return nil, err }
        out = append(out, p)
    }
    return out, rows.Err()
}

// ---- events ----

const eventColumns = `id, type, status, start_time, end_time, COALESCE(since,''), COALESCE(note,''), demand, defect, effort`

func scanEvent(row pgx.Row) (*domain.Event, error) {
    var ev domain.Event
    if err := row.Scan(&ev.ID, &ev.Type, &ev.Status, &ev.StartTime, &ev.EndTime,
        &ev.Since, &ev.Note, &ev.Demand, &ev.Defect, &ev.Effort); err != nil { return nil, err }
    return &ev, nil
}

func (r *Repository) InsertEvent(ctx context.Context, project string, ev *domain.Event) (int64, error) {
    const q = `INSERT INTO events(project, type, status, start_time, end_time, since, note, demand, defect, effort)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id`
    var id int64
    row := r.db.Pool.QueryRow(ctx, q, project, ev.Type, ev.Status, ev.StartTime, ev.EndTime,
        ev.Since, ev.Note, ev.Demand, ev.Defect, ev.Effort)
    if err := row.Scan(&id); err != nil { return 0, err }
    ev.ID = id
    return id, nil
}

func (r *Repository) UpdateEvent(ctx context.Context, project string, ev *domain.Event) error {
    const q = `UPDATE events SET status=$3, end_time=$4, note=$5, demand=$6, defect=$7, effort=$8
        WHERE project=$1 AND id=$2`
    _, err := r.db.Pool.Exec(ctx, q, project, ev.ID, ev.Status, ev.EndTime, ev.Note,
        ev.Demand, ev.Defect, ev.Effort)
    return err
}

func (r *Repository) ListEvents(ctx context.Context, project string) ([]domain.Event, error) {
    rows, err := r.db.Pool.Query(ctx, `SELECT `+eventColumns+` FROM events WHERE project=$1 ORDER BY id`, project)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []domain.Event
    for rows.Next() {
        ev, err := scanEvent(rows)
        if err != nil { return nil, err }
        out = append(out, *ev)
    }
    return out, rows.Err()
}

// GetEvent returns nil without error when the event does not exist
func (r *Repository) GetEvent(ctx context.Context, project string, id int64) (*domain.Event, error) {
    row := r.db.Pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE project=$1 AND id=$2`, project, id)
    ev, err := scanEvent(row)
    if errors.Is(err, pgx.ErrNoRows) { return nil, nil }
    if err != nil { return nil, err }
    return ev, nil
}

// ---- per-subsystem collections ----

// ReplaceRawDocs clears and repopulates the raw collection for one subsystem.
// Docs are stored verbatim as jsonb.
func (r *Repository) ReplaceRawDocs(ctx context.Context, project, system string, docs []any) error {
    if _, err := r.db.Pool.Exec(ctx, `DELETE FROM raw_docs WHERE project=$1 AND system=$2`, project, system); err != nil { return err }
    if len(docs) == 0 { return nil }
    batch := &pgx.Batch{}
    const q = `INSERT INTO raw_docs(project, system, doc) VALUES($1,$2,$3)`
    for _, d := range docs { batch.Queue(q, project, system, d) }
    br := r.db.Pool.SendBatch(ctx, batch)
    defer br.Close()
    for range docs { if _, err := br.Exec(); err != nil { return err } }
    return nil
}

func (r *Repository) ReplaceCommonDemand(ctx context.Context, project, system string, entries []domain.CommonDemandEntry) error {
    if _, err := r.db.Pool.Exec(ctx, `DELETE FROM common_docs WHERE project=$1 AND system=$2`, project, system); err != nil { return err }
    if len(entries) == 0 { return nil }
    batch := &pgx.Batch{}
    const q = `INSERT INTO common_docs(project, system, doc) VALUES($1,$2,$3)`
    for _, e := range entries { batch.Queue(q, project, system, e) }
    br := r.db.Pool.SendBatch(ctx, batch)
    defer br.Close()
    for range entries { if _, err := br.Exec(); err != nil { return err } }
    return nil
}

func (r *Repository) ReplaceCommonEffort(ctx context.Context, project string, entries []domain.EffortEntry) error {
    if _, err := r.db.Pool.Exec(ctx, `DELETE FROM common_docs WHERE project=$1 AND system=$2`, project, domain.EffortSystem); err != nil { return err }
    if len(entries) == 0 { return nil }
    batch := &pgx.Batch{}
    const q = `INSERT INTO common_docs(project, system, doc) VALUES($1,$2,$3)`
    for _, e := range entries { batch.Queue(q, project, domain.EffortSystem, e) }
    br := r.db.Pool.SendBatch(ctx, batch)
    defer br.Close()
    for range entries { if _, err := br.Exec(); err != nil { return err } }
    return nil
}

func (r *Repository) ReplaceSummary(ctx context.Context, project, system string, records []domain.SummaryRecord) error {
    if _, err := r.db.Pool.Exec(ctx, `DELETE FROM summaries WHERE project=$1 AND system=$2`, project, system); err != nil { return err }
    if len(records) == 0 { return nil }
    batch := &pgx.Batch{}
    const q = `INSERT INTO summaries(project, system, project_date, status) VALUES($1,$2,$3,$4)`
    for _, rec := range records { batch.Queue(q, project, system, rec.ProjectDate, rec.Status) }
    br := r.db.Pool.SendBatch(ctx, batch)
    defer br.Close()
    for range records { if _, err := br.Exec(); err != nil { return err } }
    return nil
}

func (r *Repository) ReplaceEffortSummary(ctx context.Context, project string, records []domain.EffortSummary) error {
    if _, err := r.db.Pool.Exec(ctx, `DELETE FROM effort_summaries WHERE project=$1`, project); err != nil { return err }
    if len(records) == 0 { return nil }
    batch := &pgx.Batch{}
    const q = `INSERT INTO effort_summaries(project, project_date, activity) VALUES($1,$2,$3)`
    for _, rec := range records { batch.Queue(q, project, rec.ProjectDate, rec.Activity) }
    br := r.db.Pool.SendBatch(ctx, batch)
    defer br.Close()
    for range records { if _, err := br.Exec(); err != nil { return err } }
    return nil
}

// GetSummary returns the stored per-date status counts, date ascending
func (r *Repository) GetSummary(ctx context.Context, project, system string) ([]domain.SummaryRecord, error) {
    rows, err := r.db.Pool.Query(ctx,
        `SELECT project_date, status FROM summaries WHERE project=$1 AND system=$2 ORDER BY project_date`, project, system)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []domain.SummaryRecord
    for rows.Next() {
        var rec domain.SummaryRecord
        if err := rows.Scan(&rec.ProjectDate, &rec.Status); err != nil { return nil, err }
        out = append(out, rec)
    }
    return out, rows.Err()
}
