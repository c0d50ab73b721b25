// Package main seeds a development database: roles and permissions, one
// branch with a warehouse, the posting accounts and a few users. With
// BACKOFFICE_JWT_SECRET set it prints an access token per user.
package main

import (
	"context"
	"fmt"
	"os"

	"backoffice/internal/config"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/auth"
	"backoffice/internal/domain/authz"
	"backoffice/internal/domain/documents/sales_invoice"
	"backoffice/internal/domain/documents/stock_correction"
	"backoffice/internal/infrastructure/storage/postgres"
	"backoffice/pkg/logger"
)

const (
	roleClerk      = "clerk"
	roleSupervisor = "supervisor"
)

type seedUser struct {
	id    id.ID
	name  string
	email string
	role  string
}

type seeder struct {
	txm *postgres.TxManager
	log *logger.Logger

	branch    id.ID
	warehouse id.ID
	roles     map[string]id.ID
	accounts  map[string]id.ID
	users     []seedUser
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	s := &seeder{
		txm:      postgres.NewTxManager(pool, postgres.DefaultTxOptions()),
		log:      log,
		roles:    make(map[string]id.ID),
		accounts: make(map[string]id.ID),
	}

	var seeded bool
	if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`, authz.BypassRole).Scan(&seeded); err != nil {
		log.Fatalw("failed to inspect database", "error", err)
	}
	if seeded {
		log.Info("database already seeded, nothing to do")
		return
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		steps := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"roles", s.seedRoles},
			{"locations", s.seedLocations},
			{"accounts", s.seedAccounts},
			{"catalogs", s.seedCatalogs},
			{"users", s.seedUsers},
		}
		for _, step := range steps {
			if err := step.fn(ctx); err != nil {
				return fmt.Errorf("seed %s: %w", step.name, err)
			}
			log.Infow("seeded", "step", step.name)
		}
		return nil
	})
	if err != nil {
		log.Fatalw("seeding failed", "error", err)
	}

	if cfg.JWTSecret != "" {
		s.printTokens(cfg)
	}

	log.Info("seeding completed successfully")
}

func (s *seeder) exec(ctx context.Context, sql string, args ...any) error {
	_, err := s.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	return err
}

func (s *seeder) seedRoles(ctx context.Context) error {
	grants := map[string][]string{roleClerk: nil, roleSupervisor: nil}
	for _, label := range []string{stock_correction.DocumentType, sales_invoice.DocumentType} {
		grants[roleClerk] = append(grants[roleClerk],
			authz.Permission(authz.ActionCreate, label),
			authz.Permission(authz.ActionRead, label),
			authz.Permission(authz.ActionUpdate, label),
			authz.Permission(authz.ActionDelete, label),
		)
		grants[roleSupervisor] = append(grants[roleSupervisor],
			authz.Permission(authz.ActionRead, label),
			authz.Permission(authz.ActionApprove, label),
		)
	}

	for _, name := range []string{authz.BypassRole, roleClerk, roleSupervisor} {
		roleID := id.New()
		if err := s.exec(ctx, `INSERT INTO roles (id, name) VALUES ($1, $2)`, roleID, name); err != nil {
			return err
		}
		s.roles[name] = roleID
	}

	permissions := make(map[string]id.ID)
	for role, perms := range grants {
		for _, perm := range perms {
			permID, ok := permissions[perm]
			if !ok {
				permID = id.New()
				if err := s.exec(ctx, `INSERT INTO permissions (id, name) VALUES ($1, $2)`, permID, perm); err != nil {
					return err
				}
				permissions[perm] = permID
			}
			if err := s.exec(ctx,
				`INSERT INTO role_has_permissions (role_id, permission_id) VALUES ($1, $2)`,
				s.roles[role], permID,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *seeder) seedLocations(ctx context.Context) error {
	s.branch, s.warehouse = id.New(), id.New()
	if err := s.exec(ctx, `INSERT INTO branches (id, name) VALUES ($1, $2)`, s.branch, "Head Office"); err != nil {
		return err
	}
	return s.exec(ctx,
		`INSERT INTO warehouses (id, branch_id, code, name) VALUES ($1, $2, $3, $4)`,
		s.warehouse, s.branch, "WH-01", "Main Warehouse",
	)
}

func (s *seeder) seedAccounts(ctx context.Context) error {
	chart := []struct{ number, name string }{
		{"1100", "Inventory"},
		{"1200", "Account Receivable"},
		{"2100", "Income Tax Payable"},
		{"4100", "Sales Income"},
		{"5100", "Cost of Sales"},
		{"5200", "Difference Stock Expenses"},
	}
	for _, a := range chart {
		accID := id.New()
		if err := s.exec(ctx,
			`INSERT INTO chart_of_accounts (id, number, name) VALUES ($1, $2, $3)`,
			accID, a.number, a.name,
		); err != nil {
			return err
		}
		s.accounts[a.number] = accID
	}

	settings := []struct{ feature, name, account string }{
		{stock_correction.JournalFeature, stock_correction.JournalSetting, "5200"},
		{sales_invoice.JournalFeature, sales_invoice.SettingReceivable, "1200"},
		{sales_invoice.JournalFeature, sales_invoice.SettingIncome, "4100"},
		{sales_invoice.JournalFeature, sales_invoice.SettingTaxPayable, "2100"},
		{sales_invoice.JournalFeature, sales_invoice.SettingCostOfSales, "5100"},
	}
	for _, st := range settings {
		if err := s.exec(ctx,
			`INSERT INTO setting_journals (id, feature, name, chart_of_account_id) VALUES ($1, $2, $3, $4)`,
			id.New(), st.feature, st.name, s.accounts[st.account],
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) seedCatalogs(ctx context.Context) error {
	items := []struct {
		code, name     string
		expiry, prodNo bool
	}{
		{"ITM-001", "Paracetamol 500mg", true, true},
		{"ITM-002", "Printer Paper A4", false, false},
		{"ITM-003", "Hand Sanitizer 1L", true, false},
	}
	for _, it := range items {
		itemID := id.New()
		if err := s.exec(ctx,
			`INSERT INTO items (id, chart_of_account_id, code, name, require_expiry_date, require_production_number)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			itemID, s.accounts["1100"], it.code, it.name, it.expiry, it.prodNo,
		); err != nil {
			return err
		}
		if err := s.exec(ctx,
			`INSERT INTO item_units (item_id, label, name, converter) VALUES ($1, 'pcs', 'Pieces', 1), ($1, 'box', 'Box', 10)`,
			itemID,
		); err != nil {
			return err
		}
	}

	return s.exec(ctx,
		`INSERT INTO customers (id, code, name, address, phone) VALUES ($1, $2, $3, $4, $5)`,
		id.New(), "CUS-001", "Apotek Sehat", "Jl. Merdeka 10", "+62 21 555 0100",
	)
}

func (s *seeder) seedUsers(ctx context.Context) error {
	s.users = []seedUser{
		{id.New(), "Administrator", "admin@backoffice.local", authz.BypassRole},
		{id.New(), "Stock Clerk", "clerk@backoffice.local", roleClerk},
		{id.New(), "Supervisor", "supervisor@backoffice.local", roleSupervisor},
	}
	for _, u := range s.users {
		if err := s.exec(ctx,
			`INSERT INTO users (id, name, email, role_id) VALUES ($1, $2, $3, $4)`,
			u.id, u.name, u.email, s.roles[u.role],
		); err != nil {
			return err
		}
		if err := s.exec(ctx,
			`INSERT INTO branch_user (user_id, branch_id, is_default) VALUES ($1, $2, TRUE)`,
			u.id, s.branch,
		); err != nil {
			return err
		}
		if err := s.exec(ctx,
			`INSERT INTO user_warehouse (user_id, warehouse_id, is_default) VALUES ($1, $2, TRUE)`,
			u.id, s.warehouse,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) printTokens(cfg *config.Config) {
	jwtCfg := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtCfg.Issuer = cfg.JWTIssuer
	svc := auth.NewJWTService(jwtCfg)

	for _, u := range s.users {
		token, expires, err := svc.GenerateAccessToken(u.id, u.email, u.name)
		if err != nil {
			s.log.Warnw("failed to issue token", "email", u.email, "error", err)
			continue
		}
		fmt.Printf("%-28s %-12s id=%s expires=%s\n  %s\n", u.email, u.role, u.id, expires.Format("15:04:05"), token)
	}
}
