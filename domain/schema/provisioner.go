package schema

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akeren/clariolane-waitlist/internal/log"
	"github.com/akeren/clariolane-waitlist/internal/models"
	apperrors "github.com/akeren/clariolane-waitlist/pkg/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// provisionLockKey serializes concurrent provisioning runs across processes.
const provisionLockKey int64 = 0x77616974 // "wait"

const (
	PolicyAnonInsert     = "Enable insert for anon"
	PolicyServiceRoleAll = "Enable all for service_role"
)

var ErrNoPrivilegedURL = errors.New("privileged database URL is not configured (set SUPABASE_DB_URL)")

type Settings struct {
	DatabaseURL string
	Schema      string
	AnonRole    string
	ServiceRole string
}

// ProvisionReport lists what a run changed. A second run reports nothing created.
type ProvisionReport struct {
	Table           string        `json:"table"`
	RolesCreated    []string      `json:"roles_created"`
	PoliciesCreated []string      `json:"policies_created"`
	Duration        time.Duration `json:"-"`
}

type Provisioner interface {
	// Provision creates the waitlist table and its access policies. It is safe to run any
	// number of times.
	Provision(ctx context.Context) (*ProvisionReport, error)
}

// schemaTx is the part of pgx.Tx the provisioner needs.
type schemaTx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type session interface {
	Begin(ctx context.Context) (schemaTx, error)
	Close(ctx context.Context) error
}

type connector func(ctx context.Context, url string) (session, error)

type pgxSession struct {
	conn *pgx.Conn
}

func (s *pgxSession) Begin(ctx context.Context) (schemaTx, error) {
	return s.conn.Begin(ctx)
}

func (s *pgxSession) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

func connectPgx(ctx context.Context, url string) (session, error) {
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	return &pgxSession{conn: conn}, nil
}

type provisioner struct {
	logger   *log.Logger
	settings Settings
	connect  connector
}

func NewProvisioner(logger *log.Logger, settings Settings) Provisioner {
	return newProvisioner(logger, settings, connectPgx)
}

func newProvisioner(logger *log.Logger, settings Settings, connect connector) *provisioner {
	if settings.Schema == "" {
		settings.Schema = "public"
	}
	if settings.AnonRole == "" {
		settings.AnonRole = "anon"
	}
	if settings.ServiceRole == "" {
		settings.ServiceRole = "service_role"
	}
	return &provisioner{logger: logger, settings: settings, connect: connect}
}

func (p *provisioner) Provision(ctx context.Context) (*ProvisionReport, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, p.logger)
	start := time.Now()

	if p.settings.DatabaseURL == "" {
		logger.Error("Schema provisioning requested without a privileged database URL")
		return nil, apperrors.NewProvisioningError(ErrNoPrivilegedURL)
	}

	sess, err := p.connect(ctx, p.settings.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect for schema provisioning", "error", err)
		return nil, apperrors.NewProvisioningError(err)
	}
	defer func() {
		if closeErr := sess.Close(context.WithoutCancel(ctx)); closeErr != nil {
			logger.Warn("Failed to close provisioning connection", "error", closeErr)
		}
	}()

	tx, err := sess.Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin provisioning transaction", "error", err)
		return nil, apperrors.NewProvisioningError(err)
	}

	report, err := p.apply(ctx, tx)
	if err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.Warn("Failed to roll back provisioning transaction", "error", rbErr)
		}
		logger.Error("Schema provisioning failed", "error", err)
		return nil, apperrors.NewProvisioningError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit provisioning transaction", "error", err)
		return nil, apperrors.NewProvisioningError(err)
	}

	report.Duration = time.Since(start)
	logger.Info("Schema provisioned",
		"table", report.Table,
		"roles_created", report.RolesCreated,
		"policies_created", report.PoliciesCreated,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

type policy struct {
	name string
	sql  string
}

func (p *provisioner) apply(ctx context.Context, tx schemaTx) (*ProvisionReport, error) {
	s := p.settings
	table := pgx.Identifier{s.Schema, models.WaitlistTableName}.Sanitize()
	anon := pgx.Identifier{s.AnonRole}.Sanitize()
	service := pgx.Identifier{s.ServiceRole}.Sanitize()

	report := &ProvisionReport{
		Table:           s.Schema + "." + models.WaitlistTableName,
		RolesCreated:    []string{},
		PoliciesCreated: []string{},
	}

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", provisionLockKey); err != nil {
		return nil, err
	}

	for _, role := range []string{s.AnonRole, s.ServiceRole} {
		created, err := ensureRole(ctx, tx, role)
		if err != nil {
			return nil, err
		}
		if created {
			report.RolesCreated = append(report.RolesCreated, role)
		}
	}

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	email text NOT NULL UNIQUE,
	created_at timestamptz NOT NULL DEFAULT now()
)`, table),
		fmt.Sprintf("ALTER TABLE %s ENABLE ROW LEVEL SECURITY", table),
		fmt.Sprintf("GRANT USAGE ON SCHEMA %s TO %s, %s", pgx.Identifier{s.Schema}.Sanitize(), anon, service),
		fmt.Sprintf("GRANT INSERT ON %s TO %s", table, anon),
		fmt.Sprintf("GRANT ALL ON %s TO %s", table, service),
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return nil, err
		}
	}

	policies := []policy{
		{
			name: PolicyAnonInsert,
			sql:  fmt.Sprintf("CREATE POLICY %s ON %s FOR INSERT TO %s WITH CHECK (true)", pgx.Identifier{PolicyAnonInsert}.Sanitize(), table, anon),
		},
		{
			name: PolicyServiceRoleAll,
			sql:  fmt.Sprintf("CREATE POLICY %s ON %s FOR ALL TO %s USING (true) WITH CHECK (true)", pgx.Identifier{PolicyServiceRoleAll}.Sanitize(), table, service),
		},
	}
	for _, pol := range policies {
		created, err := ensurePolicy(ctx, tx, s.Schema, pol)
		if err != nil {
			return nil, err
		}
		if created {
			report.PoliciesCreated = append(report.PoliciesCreated, pol.name)
		}
	}

	return report, nil
}

func ensureRole(ctx context.Context, tx schemaTx, role string) (bool, error) {
	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)", role).Scan(&exists); err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("CREATE ROLE %s NOLOGIN", pgx.Identifier{role}.Sanitize())); err != nil {
		return false, err
	}
	return true, nil
}

func ensurePolicy(ctx context.Context, tx schemaTx, schema string, pol policy) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_policies WHERE schemaname = $1 AND tablename = $2 AND policyname = $3)",
		schema, models.WaitlistTableName, pol.name,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if _, err := tx.Exec(ctx, pol.sql); err != nil {
		return false, err
	}
	return true, nil
}
