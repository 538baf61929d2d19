package customers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"voice-negotiator-go/internal/types"
)

// Schema is the DDL expected by LoadPostgres.
const Schema = `
CREATE TABLE IF NOT EXISTS clientes (
    id                INTEGER PRIMARY KEY,
    nombre            TEXT NOT NULL,
    fecha_nacimiento  DATE,
    numero_documento  TEXT NOT NULL DEFAULT '',
    telefono          TEXT NOT NULL DEFAULT '',
    correo            TEXT NOT NULL DEFAULT '',
    monto_deuda       NUMERIC(14,2) NOT NULL DEFAULT 0,
    fecha_vencimiento DATE,
    estado_cuenta     TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS pagos (
    cliente_id INTEGER NOT NULL REFERENCES clientes(id),
    fecha      DATE NOT NULL,
    monto      NUMERIC(14,2) NOT NULL
);
`

const (
	selectCustomers = `
		SELECT id, nombre, COALESCE(fecha_nacimiento::text, ''), numero_documento,
		       telefono, correo, monto_deuda::float8,
		       COALESCE(fecha_vencimiento::text, ''), estado_cuenta
		FROM clientes ORDER BY id`
	selectPayments = `
		SELECT cliente_id, fecha::text, monto::float8
		FROM pagos ORDER BY cliente_id, fecha`
)

// Querier is satisfied by *pgxpool.Pool and *pgx.Conn.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// LoadPostgres opens a short-lived pool, reads every customer and payment, and
// closes the pool. The directory never talks to the database after startup.
func LoadPostgres(ctx context.Context, dsn string) ([]types.CustomerProfile, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("customers: connect: %w", err)
	}
	defer pool.Close()
	return ReadCustomers(ctx, pool)
}

// ReadCustomers runs the customer and payment queries against q.
func ReadCustomers(ctx context.Context, q Querier) ([]types.CustomerProfile, error) {
	rows, err := q.Query(ctx, selectCustomers)
	if err != nil {
		return nil, fmt.Errorf("customers: query clientes: %w", err)
	}
	var out []types.CustomerProfile
	index := map[int]int{}
	for rows.Next() {
		var (
			p      types.CustomerProfile
			status string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.BirthDate, &p.DocumentNumber,
			&p.Phone, &p.Email, &p.DebtAmount, &p.DueDate, &status); err != nil {
			rows.Close()
			return nil, fmt.Errorf("customers: scan cliente: %w", err)
		}
		p.AccountStatus = types.AccountStatus(status)
		index[p.ID] = len(out)
		out = append(out, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("customers: iterate clientes: %w", err)
	}

	rows, err = q.Query(ctx, selectPayments)
	if err != nil {
		return nil, fmt.Errorf("customers: query pagos: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id  int
			pay types.Payment
		)
		if err := rows.Scan(&id, &pay.Date, &pay.Amount); err != nil {
			return nil, fmt.Errorf("customers: scan pago: %w", err)
		}
		if pos, ok := index[id]; ok {
			out[pos].PaymentHistory = append(out[pos].PaymentHistory, pay)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("customers: iterate pagos: %w", err)
	}
	return out, nil
}
