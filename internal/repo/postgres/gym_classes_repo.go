package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/gymlog/internal/domain/gymclass"
	"github.com/geocoder89/gymlog/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// date is rendered with to_char so the result never depends on the session DateStyle
const gymClassColumns = `id, user_id, to_char(date, 'YYYY-MM-DD'), attendance, notes, created_at`

type GymClassesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewGymClassesRepo(pool *pgxpool.Pool, prom *observability.Prom) *GymClassesRepo {
	return &GymClassesRepo{
		pool: pool,
		prom: prom,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGymClass(row rowScanner, g *gymclass.GymClass) error {
	return row.Scan(&g.ID, &g.UserID, &g.Date, &g.Attendance, &g.Notes, &g.CreatedAt)
}

func (r *GymClassesRepo) Create(ctx context.Context, g gymclass.GymClass) (gymclass.GymClass, error) {
	var out gymclass.GymClass

	err := r.prom.ObserveDB("gym_classes.create", func() error {
		row := r.pool.QueryRow(ctx,
			`INSERT INTO gym_classes (id, user_id, date, attendance, notes, created_at)
			VALUES ($1, $2, $3::date, $4, $5, $6)
			RETURNING `+gymClassColumns,
			g.ID, g.UserID, g.Date, g.Attendance, g.Notes, g.CreatedAt,
		)
		return scanGymClass(row, &out)
	})

	if err != nil {
		return gymclass.GymClass{}, err
	}

	return out, nil
}

func (r *GymClassesRepo) GetByID(ctx context.Context, ownerID, id string) (gymclass.GymClass, error) {
	var g gymclass.GymClass
	notFound := false

	err := r.prom.ObserveDB("gym_classes.get", func() error {
		row := r.pool.QueryRow(ctx,
			`SELECT `+gymClassColumns+` FROM gym_classes WHERE id = $1 AND user_id = $2`,
			id, ownerID,
		)
		err := scanGymClass(row, &g)
		if errors.Is(err, pgx.ErrNoRows) {
			notFound = true
			return nil
		}
		return err
	})

	if err != nil {
		return gymclass.GymClass{}, err
	}
	if notFound {
		return gymclass.GymClass{}, gymclass.ErrNotFound
	}

	return g, nil
}

func (r *GymClassesRepo) ListByOwner(ctx context.Context, ownerID string) ([]gymclass.GymClass, error) {
	output := make([]gymclass.GymClass, 0)

	err := r.prom.ObserveDB("gym_classes.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+gymClassColumns+`
			FROM gym_classes
			WHERE user_id = $1
			ORDER BY date DESC, created_at DESC, id ASC`,
			ownerID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var g gymclass.GymClass
			if err := scanGymClass(rows, &g); err != nil {
				return err
			}
			output = append(output, g)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

// Update writes only the supplied columns in a single UPDATE ... RETURNING.
func (r *GymClassesRepo) Update(ctx context.Context, ownerID, id string, c gymclass.Changes) (gymclass.GymClass, error) {
	if c.Empty() {
		return r.GetByID(ctx, ownerID, id)
	}

	var sets []string
	args := []any{id, ownerID}
	argsPosition := 3

	if c.Date != nil {
		sets = append(sets, fmt.Sprintf("date = $%d::date", argsPosition))
		args = append(args, *c.Date)
		argsPosition++
	}

	if c.Attendance != nil {
		sets = append(sets, fmt.Sprintf("attendance = $%d", argsPosition))
		args = append(args, *c.Attendance)
		argsPosition++
	}

	if c.Notes != nil {
		// "" clears the notes
		sets = append(sets, fmt.Sprintf("notes = NULLIF($%d, '')", argsPosition))
		args = append(args, *c.Notes)
	}

	query := `UPDATE gym_classes SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 AND user_id = $2 RETURNING ` + gymClassColumns

	var g gymclass.GymClass
	notFound := false

	err := r.prom.ObserveDB("gym_classes.update", func() error {
		err := scanGymClass(r.pool.QueryRow(ctx, query, args...), &g)
		if errors.Is(err, pgx.ErrNoRows) {
			notFound = true
			return nil
		}
		return err
	})

	if err != nil {
		return gymclass.GymClass{}, err
	}
	if notFound {
		return gymclass.GymClass{}, gymclass.ErrNotFound
	}

	return g, nil
}

// Delete reports whether a row was removed, from the affected row count.
func (r *GymClassesRepo) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	var affected int64

	err := r.prom.ObserveDB("gym_classes.delete", func() error {
		tag, err := r.pool.Exec(ctx,
			`DELETE FROM gym_classes WHERE id = $1 AND user_id = $2`,
			id, ownerID,
		)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})

	if err != nil {
		return false, err
	}

	return affected > 0, nil
}
