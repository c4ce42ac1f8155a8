package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"studio_booking_backend/internal/models"

	"github.com/lib/pq"
)

// reservationLockNamespace is the first key of the two-key advisory lock taken per day.
const reservationLockNamespace int32 = 0x5e5a

type reservationRepository struct {
	db   *sql.DB
	exec SQLExecutor
	inTx bool
}

// NewReservationRepository creates a PostgreSQL backed ReservationRepository.
func NewReservationRepository(db *sql.DB) ReservationRepository {
	return &reservationRepository{db: db, exec: db}
}

const selectReservationFields = `r.id, r.client_id, r.service, r.slot_date, r.slot_time, r.is_group, r.status, r.created_at, r.updated_at`

func scanReservation(row scanner) (*models.Reservation, error) {
	var res models.Reservation
	err := row.Scan(&res.ID, &res.ClientID, &res.Service, &res.Date, &res.Time,
		&res.IsGroup, &res.Status, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning reservation: %w", ErrDatabaseError, err)
	}
	return &res, nil
}

// buildReservationConditions renders q as SQL conditions starting at placeholder $argStart.
func buildReservationConditions(q ReservationQuery, argStart int) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}
	argCount := argStart

	if q.Date != nil {
		conditions = append(conditions, fmt.Sprintf("r.slot_date = $%d", argCount))
		args = append(args, *q.Date)
		argCount++
	}
	if q.Time != "" {
		conditions = append(conditions, fmt.Sprintf("r.slot_time = $%d", argCount))
		args = append(args, q.Time)
		argCount++
	}
	if q.Times != nil {
		conditions = append(conditions, fmt.Sprintf("r.slot_time = ANY($%d)", argCount))
		args = append(args, pq.Array(q.Times))
		argCount++
	}
	if q.Service != "" {
		conditions = append(conditions, fmt.Sprintf("r.service = $%d", argCount))
		args = append(args, q.Service)
		argCount++
	}
	if q.IsGroup != nil {
		conditions = append(conditions, fmt.Sprintf("r.is_group = $%d", argCount))
		args = append(args, *q.IsGroup)
	}
	return conditions, args
}

func (r *reservationRepository) FindReservations(ctx context.Context, q ReservationQuery) ([]models.Reservation, error) {
	conditions, args := buildReservationConditions(q, 1)
	query := "SELECT " + selectReservationFields + " FROM reservations r"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY r.id"

	rows, err := r.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying reservations: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	reservations := []models.Reservation{}
	for rows.Next() {
		res, scanErr := scanReservation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		reservations = append(reservations, *res)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating reservation rows: %v", ErrDatabaseError, err)
	}
	return reservations, nil
}

func (r *reservationRepository) FindFirstReservation(ctx context.Context, q ReservationQuery) (*models.Reservation, error) {
	conditions, args := buildReservationConditions(q, 1)
	query := "SELECT " + selectReservationFields + " FROM reservations r"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY r.id LIMIT 1"

	res, err := scanReservation(r.exec.QueryRowContext(ctx, query, args...))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return res, err
}

func (r *reservationRepository) CreateReservation(ctx context.Context, reservation *models.Reservation) (*models.Reservation, error) {
	query := `INSERT INTO reservations
	            (client_id, service, slot_date, slot_time, is_group, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id, created_at, updated_at`

	currentTime := time.Now()
	reservation.CreatedAt = currentTime
	reservation.UpdatedAt = currentTime

	err := r.exec.QueryRowContext(ctx, query,
		reservation.ClientID, reservation.Service, reservation.Date, reservation.Time,
		reservation.IsGroup, reservation.Status, reservation.CreatedAt, reservation.UpdatedAt,
	).Scan(&reservation.ID, &reservation.CreatedAt, &reservation.UpdatedAt)
	if err != nil {
		return nil, wrapWriteError(err, "creating reservation")
	}
	return reservation, nil
}

func (r *reservationRepository) getReservationByID(ctx context.Context, id int64) (*models.Reservation, error) {
	query := "SELECT " + selectReservationFields + " FROM reservations r WHERE r.id = $1"
	return scanReservation(r.exec.QueryRowContext(ctx, query, id))
}

func (r *reservationRepository) UpdateReservation(ctx context.Context, id int64, patch models.ReservationPatch) (*models.Reservation, error) {
	if patch.IsEmpty() {
		return r.getReservationByID(ctx, id)
	}

	var sets []string
	var args []interface{}
	argCount := 1
	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argCount))
		args = append(args, value)
		argCount++
	}
	if patch.ClientID != nil {
		add("client_id", *patch.ClientID)
	}
	if patch.Service != nil {
		add("service", *patch.Service)
	}
	if patch.Date != nil {
		add("slot_date", *patch.Date)
	}
	if patch.Time != nil {
		add("slot_time", *patch.Time)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	add("updated_at", time.Now())

	query := fmt.Sprintf("UPDATE reservations AS r SET %s WHERE r.id = $%d RETURNING %s",
		strings.Join(sets, ", "), argCount, selectReservationFields)
	args = append(args, id)

	res, err := scanReservation(r.exec.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, wrapWriteError(err, fmt.Sprintf("updating reservation ID %d", id))
	}
	return res, nil
}

func (r *reservationRepository) DeleteReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	query := "DELETE FROM reservations AS r WHERE r.id = $1 RETURNING " + selectReservationFields
	res, err := scanReservation(r.exec.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: deleting reservation ID %d: %v", ErrDatabaseError, id, err)
	}
	return res, nil
}

func (r *reservationRepository) ListReservations(ctx context.Context, filters models.ReservationFilters) ([]models.Reservation, int, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT " + selectReservationFields + `,
		COALESCE(c.id, 0), COALESCE(c.username, ''), COALESCE(c.full_name, ''), COALESCE(c.email, ''),
		COUNT(*) OVER() AS total_count
		FROM reservations r
		LEFT JOIN clients c ON r.client_id = c.id`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", argCount))
		args = append(args, *filters.Status)
		argCount++
	}
	if filters.Date != nil {
		from, to := dayRange(*filters.Date)
		conditions = append(conditions, fmt.Sprintf("r.slot_date >= $%d AND r.slot_date < $%d", argCount, argCount+1))
		args = append(args, from, to)
		argCount += 2
	}
	if filters.ClientID != nil {
		conditions = append(conditions, fmt.Sprintf("r.client_id = $%d", argCount))
		args = append(args, *filters.ClientID)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY r.slot_date, r.slot_time, r.id")

	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCount))
		args = append(args, filters.PageSize)
		argCount++
		if filters.Page > 1 {
			queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argCount))
			args = append(args, (filters.Page-1)*filters.PageSize)
		}
	}

	rows, err := r.exec.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: listing reservations: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	reservations := []models.Reservation{}
	totalCount := 0
	for rows.Next() {
		var res models.Reservation
		var client models.ClientSummary
		if err := rows.Scan(&res.ID, &res.ClientID, &res.Service, &res.Date, &res.Time,
			&res.IsGroup, &res.Status, &res.CreatedAt, &res.UpdatedAt,
			&client.ID, &client.Username, &client.FullName, &client.Email,
			&totalCount); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning reservation with client: %v", ErrDatabaseError, err)
		}
		if client.ID != 0 {
			res.Client = &client
		}
		reservations = append(reservations, res)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating reservation rows: %v", ErrDatabaseError, err)
	}
	return reservations, totalCount, nil
}

// dayLockKey turns a day into the second advisory lock key.
func dayLockKey(day time.Time) int32 {
	y, m, d := day.Date()
	return int32(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func (r *reservationRepository) WithDayLock(ctx context.Context, day time.Time, fn func(repo ReservationRepository) error) error {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning admission transaction: %v", ErrDatabaseError, err)
	}
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1, $2)", reservationLockNamespace, dayLockKey(day)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: acquiring day lock: %v", ErrDatabaseError, err)
	}

	if err := fn(&reservationRepository{db: r.db, exec: tx, inTx: true}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing admission transaction: %v", ErrDatabaseError, err)
	}
	return nil
}
