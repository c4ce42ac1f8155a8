package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"studio_booking_backend/internal/models"
)

// ClientRepository defines the interface for client-related database operations.
type ClientRepository interface {
	CreateClient(ctx context.Context, client *models.Client) (*models.Client, error)
	GetClientByID(ctx context.Context, id int64) (*models.Client, error)
	// GetClientByUsername returns the client including its password hash.
	GetClientByUsername(ctx context.Context, username string) (*models.Client, error)
	ListClients(ctx context.Context, filters models.ClientFilters) ([]models.Client, int, error)
	UpdateClient(ctx context.Context, client *models.Client) error
	DeleteClient(ctx context.Context, id int64) error
}

type clientRepository struct {
	db *sql.DB
}

// NewClientRepository creates a new instance of ClientRepository.
func NewClientRepository(db *sql.DB) ClientRepository {
	return &clientRepository{db: db}
}

const selectClientFields = `id, username, password_hash, full_name, tax_id, phone_number, email, date_of_birth, role, created_at, updated_at`

// scanClient reads the selectClientFields columns followed by any extra destinations.
func scanClient(row scanner, extra ...interface{}) (*models.Client, error) {
	client := &models.Client{}
	var dob sql.NullTime
	dest := []interface{}{
		&client.ID, &client.Username, &client.PasswordHash, &client.FullName, &client.TaxID,
		&client.PhoneNumber, &client.Email, &dob, &client.Role, &client.CreatedAt, &client.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning client: %v", ErrDatabaseError, err)
	}
	if dob.Valid {
		client.DateOfBirth = &dob.Time
	}
	return client, nil
}

// CreateClient inserts a new client into the database.
func (r *clientRepository) CreateClient(ctx context.Context, client *models.Client) (*models.Client, error) {
	query := `INSERT INTO clients (username, password_hash, full_name, tax_id, phone_number, email, date_of_birth, role, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id`

	currentTime := time.Now()
	client.CreatedAt = currentTime
	client.UpdatedAt = currentTime

	var dob sql.NullTime
	if client.DateOfBirth != nil && !client.DateOfBirth.IsZero() {
		dob = sql.NullTime{Time: *client.DateOfBirth, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		client.Username, client.PasswordHash, client.FullName, client.TaxID, client.PhoneNumber,
		client.Email, dob, client.Role, client.CreatedAt, client.UpdatedAt,
	).Scan(&client.ID)
	if err != nil {
		return nil, wrapWriteError(err, "creating client")
	}
	return client, nil
}

// GetClientByID retrieves a client by their ID.
func (r *clientRepository) GetClientByID(ctx context.Context, id int64) (*models.Client, error) {
	query := "SELECT " + selectClientFields + " FROM clients WHERE id = $1"
	return scanClient(r.db.QueryRowContext(ctx, query, id))
}

// GetClientByUsername retrieves a client by their username.
func (r *clientRepository) GetClientByUsername(ctx context.Context, username string) (*models.Client, error) {
	query := "SELECT " + selectClientFields + " FROM clients WHERE username = $1"
	return scanClient(r.db.QueryRowContext(ctx, query, username))
}

// ListClients retrieves clients ordered by id, with optional search and pagination.
func (r *clientRepository) ListClients(ctx context.Context, filters models.ClientFilters) ([]models.Client, int, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT " + selectClientFields + ", COUNT(*) OVER() AS total_count FROM clients")

	var args []interface{}
	argCount := 1

	if filters.Search != nil && strings.TrimSpace(*filters.Search) != "" {
		queryBuilder.WriteString(fmt.Sprintf(" WHERE (username ILIKE $%d OR full_name ILIKE $%d OR email ILIKE $%d)", argCount, argCount, argCount))
		args = append(args, "%"+strings.TrimSpace(*filters.Search)+"%")
		argCount++
	}
	queryBuilder.WriteString(" ORDER BY id")

	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCount))
		args = append(args, filters.PageSize)
		argCount++
		if filters.Page > 1 {
			queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argCount))
			args = append(args, (filters.Page-1)*filters.PageSize)
		}
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: listing clients: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	clients := []models.Client{}
	totalCount := 0
	for rows.Next() {
		client, err := scanClient(rows, &totalCount)
		if err != nil {
			return nil, 0, err
		}
		clients = append(clients, *client)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating clients: %v", ErrDatabaseError, err)
	}
	return clients, totalCount, nil
}

// UpdateClient writes every mutable column of client.
func (r *clientRepository) UpdateClient(ctx context.Context, client *models.Client) error {
	query := `UPDATE clients SET
	            username = $1, password_hash = $2, full_name = $3, tax_id = $4, phone_number = $5,
	            email = $6, date_of_birth = $7, role = $8, updated_at = $9
	          WHERE id = $10`

	client.UpdatedAt = time.Now()
	var dob sql.NullTime
	if client.DateOfBirth != nil && !client.DateOfBirth.IsZero() {
		dob = sql.NullTime{Time: *client.DateOfBirth, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		client.Username, client.PasswordHash, client.FullName, client.TaxID, client.PhoneNumber,
		client.Email, dob, client.Role, client.UpdatedAt, client.ID,
	)
	if err != nil {
		return wrapWriteError(err, fmt.Sprintf("updating client ID %d", client.ID))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for updating client ID %d: %v", ErrDatabaseError, client.ID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteClient removes a client. Reservations cascade in the schema.
func (r *clientRepository) DeleteClient(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting client ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for deleting client ID %d: %v", ErrDatabaseError, id, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MemoryClientRepository is the in-memory ClientRepository used by the "memory" store driver.
type MemoryClientRepository struct {
	mu      sync.RWMutex
	clients map[int64]models.Client
	nextID  int64
}

// NewMemoryClientRepository creates an empty in-memory client repository.
func NewMemoryClientRepository() *MemoryClientRepository {
	return &MemoryClientRepository{clients: make(map[int64]models.Client)}
}

func (r *MemoryClientRepository) CreateClient(ctx context.Context, client *models.Client) (*models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.clients {
		if existing.Username == client.Username {
			return nil, fmt.Errorf("%w: username %s (constraint: clients_username_key)", ErrDuplicateKey, client.Username)
		}
	}
	r.nextID++
	now := time.Now()
	client.ID = r.nextID
	client.CreatedAt = now
	client.UpdatedAt = now
	r.clients[client.ID] = *client

	created := *client
	return &created, nil
}

func (r *MemoryClientRepository) GetClientByID(ctx context.Context, id int64) (*models.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &client, nil
}

func (r *MemoryClientRepository) GetClientByUsername(ctx context.Context, username string) (*models.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, client := range r.clients {
		if client.Username == username {
			c := client
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryClientRepository) ListClients(ctx context.Context, filters models.ClientFilters) ([]models.Client, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := ""
	if filters.Search != nil {
		search = strings.ToLower(strings.TrimSpace(*filters.Search))
	}
	matched := []models.Client{}
	for _, client := range r.clients {
		if search == "" ||
			strings.Contains(strings.ToLower(client.Username), search) ||
			strings.Contains(strings.ToLower(client.FullName), search) ||
			strings.Contains(strings.ToLower(client.Email), search) {
			matched = append(matched, client)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	if filters.PageSize > 0 {
		start := 0
		if filters.Page > 1 {
			start = (filters.Page - 1) * filters.PageSize
		}
		if start > total {
			start = total
		}
		end := start + filters.PageSize
		if end > total {
			end = total
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (r *MemoryClientRepository) UpdateClient(ctx context.Context, client *models.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.clients[client.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range r.clients {
		if id != client.ID && other.Username == client.Username {
			return fmt.Errorf("%w: username %s (constraint: clients_username_key)", ErrDuplicateKey, client.Username)
		}
	}
	client.CreatedAt = existing.CreatedAt
	client.UpdatedAt = time.Now()
	r.clients[client.ID] = *client
	return nil
}

// DeleteClient removes the client only; the memory reservation store is not linked to it.
func (r *MemoryClientRepository) DeleteClient(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[id]; !ok {
		return ErrNotFound
	}
	delete(r.clients, id)
	return nil
}
