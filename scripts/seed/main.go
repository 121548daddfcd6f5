package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/app"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

const (
	clerkID      = 1001
	accountantID = 1002
)

type seedAccount struct {
	Code    string
	Name    string
	Type    ledger.AccountType
	SubType string
	Parent  string
}

var chart = []seedAccount{
	{Code: "1000", Name: "Cash on Hand", Type: ledger.AccountTypeAsset, SubType: "CASH"},
	{Code: "1100", Name: "Bank Accounts", Type: ledger.AccountTypeAsset},
	{Code: "1110", Name: "Operating Bank", Type: ledger.AccountTypeAsset, SubType: "BANK", Parent: "1100"},
	{Code: "2000", Name: "Accounts Payable", Type: ledger.AccountTypeLiability},
	{Code: "3000", Name: "Owner Capital", Type: ledger.AccountTypeEquity},
	{Code: "4000", Name: "Sales Revenue", Type: ledger.AccountTypeIncome},
	{Code: "5000", Name: "Operating Expenses", Type: ledger.AccountTypeExpense},
	{Code: "5100", Name: "Rent", Type: ledger.AccountTypeExpense, Parent: "5000"},
}

func main() {
	companyID := flag.Int64("company", 1, "company to seed")
	reverse := flag.Bool("reverse", false, "also reverse the sample sale")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg)
	ctx := shared.ContextWithRequestMetadata(context.Background(), shared.RequestMetadata{Source: "seed"})

	pool, err := app.OpenPool(ctx, cfg)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	fmt.Println("→ Applying migrations...")
	if _, err := db.Migrate(ctx, pool, logger); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	fmt.Println("→ Seeding chart of accounts...")
	ids, err := seedChart(ctx, pool, *companyID)
	if err != nil {
		log.Fatalf("seed chart: %v", err)
	}

	svc := app.NewLedgerService(pool, cfg, nil, logger)

	fmt.Println("→ Running a cash sale through the workflow...")
	voucher, err := sampleSale(ctx, svc, *companyID, ids)
	if err != nil {
		log.Fatalf("sample sale: %v", err)
	}
	fmt.Printf("  posted %s\n", voucher.VoucherNo)

	if *reverse {
		res, err := svc.Reverse(ctx, ledger.ReverseCommand{TransitionCommand: command(*companyID, voucher.ID, accountantID, ledger.RoleAccountant)})
		if err := outcome("reverse", res, err); err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Printf("  reversed by %s\n", res.Reversal.VoucherNo)
	}

	if client, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		fmt.Printf("  redis unavailable, status events stay queued: %v\n", err)
	} else {
		defer func() { _ = client.Close() }()
		n, err := app.NewOutboxRelay(pool, client, cfg, logger).Flush(ctx)
		if err != nil {
			log.Fatalf("relay status events: %v", err)
		}
		fmt.Printf("  published %d status events\n", n)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func seedChart(ctx context.Context, pool *pgxpool.Pool, companyID int64) (map[string]int64, error) {
	ids := make(map[string]int64, len(chart))
	for _, acc := range chart {
		var parentID *int64
		if acc.Parent != "" {
			id, ok := ids[acc.Parent]
			if !ok {
				return nil, fmt.Errorf("parent %s of %s not seeded", acc.Parent, acc.Code)
			}
			parentID = &id
		}
		var subType *string
		if acc.SubType != "" {
			subType = &acc.SubType
		}
		var id int64
		err := pool.QueryRow(ctx, `INSERT INTO accounts (company_id, code, name, type, sub_type, parent_id)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (company_id, code) DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()
RETURNING id`, companyID, acc.Code, acc.Name, acc.Type, subType, parentID).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", acc.Code, err)
		}
		ids[acc.Code] = id
	}
	return ids, nil
}

func sampleSale(ctx context.Context, svc *ledger.Service, companyID int64, ids map[string]int64) (ledger.Voucher, error) {
	amount := decimal.NewFromInt(1000)
	res, err := svc.CreateDraft(ctx, ledger.CreateVoucherInput{
		CompanyID: companyID,
		ActorID:   clerkID,
		Role:      ledger.RoleUser,
		Date:      time.Now().UTC(),
		Type:      ledger.VoucherTypeSales,
		Narration: "Seed cash sale",
		Lines: []ledger.LineInput{
			{AccountID: ids["1000"], Debit: amount, Description: "Cash received"},
			{AccountID: ids["4000"], Credit: amount, Description: "Sales"},
		},
	})
	if err := outcome("create", res, err); err != nil {
		return ledger.Voucher{}, err
	}
	voucherID := res.Voucher.ID
	steps := []struct {
		name string
		run  func(context.Context, ledger.TransitionCommand) (ledger.Result, error)
		cmd  ledger.TransitionCommand
	}{
		{"submit", svc.Submit, command(companyID, voucherID, clerkID, ledger.RoleUser)},
		{"approve", svc.Approve, command(companyID, voucherID, accountantID, ledger.RoleAccountant)},
		{"post", svc.Post, command(companyID, voucherID, accountantID, ledger.RoleAccountant)},
	}
	for _, st := range steps {
		res, err = st.run(ctx, st.cmd)
		if err := outcome(st.name, res, err); err != nil {
			return ledger.Voucher{}, err
		}
	}
	return *res.Voucher, nil
}

func command(companyID, voucherID, actorID int64, role ledger.Role) ledger.TransitionCommand {
	return ledger.TransitionCommand{VoucherID: voucherID, ActorID: actorID, CompanyID: companyID, Role: role}
}

func outcome(step string, res ledger.Result, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	if !res.Success {
		return fmt.Errorf("%s rejected: %w", step, res.Err)
	}
	return nil
}
