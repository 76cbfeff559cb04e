package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"retail-erp-backend/internal/config"
	"retail-erp-backend/internal/database"
	"retail-erp-backend/internal/service"
)

// env is opened in Before and shared by every command of one run.
type env struct {
	cfg *config.Config
	db  *gorm.DB
	svc *service.Services
}

func newApp() *cli.App {
	e := &env{}
	return &cli.App{
		Name:  "erpctl",
		Usage: "operate the retail ERP from the command line",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log debug output"},
		},
		Before: func(c *cli.Context) error {
			log.SetOutput(c.App.ErrWriter)
			if c.Bool("verbose") {
				log.SetLevel(log.DebugLevel)
			} else {
				log.SetLevel(log.WarnLevel)
			}
			return e.open()
		},
		After: func(c *cli.Context) error {
			return e.close()
		},
		Commands: []*cli.Command{
			migrateCommand(e),
			variantCommand(e),
			sellCommand(e),
			orderCommand(e),
			ledgerCommand(e),
			dashboardCommand(e),
		},
	}
}

func (e *env) open() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.Database.SQLLog = false
	db, err := database.Connect(&cfg.Database)
	if err != nil {
		return err
	}
	e.cfg, e.db = cfg, db
	e.svc = service.New(db, cfg.Auth.JWTSecret)
	return nil
}

func (e *env) close() error {
	if e.db == nil {
		return nil
	}
	return database.Close(e.db)
}

func migrateCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create or update the tables and seed the operator account",
		Action: func(c *cli.Context) error {
			if err := database.Migrate(e.db); err != nil {
				return err
			}
			if err := e.svc.Auth.EnsureOperator(c.Context, e.cfg.Auth.AdminUsername, e.cfg.Auth.AdminPassword); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "schema up to date")
			return nil
		},
	}
}

func variantCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "variant",
		Usage: "register and count stock",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "register one product variant",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "category", Value: "Clothing"},
					&cli.StringFlag{Name: "size", Required: true},
					&cli.StringFlag{Name: "cost", Value: "0"},
					&cli.StringFlag{Name: "price", Required: true},
					&cli.IntFlag{Name: "qty"},
				},
				Action: func(c *cli.Context) error {
					cost, err := decimalFlag(c, "cost")
					if err != nil {
						return err
					}
					price, err := decimalFlag(c, "price")
					if err != nil {
						return err
					}
					v, err := e.svc.Inventory.RegisterVariant(c.Context, service.VariantRequest{
						Name:     c.String("name"),
						Category: c.String("category"),
						Size:     c.String("size"),
						Cost:     cost,
						Price:    price,
						Quantity: c.Int("qty"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "variant %d: %s (%s) stock %d\n", v.ID, v.Name, v.Size, v.StockQuantity)
					return nil
				},
			},
			{
				Name:  "set-stock",
				Usage: "overwrite the stock of a variant with a counted value",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.IntFlag{Name: "qty", Required: true},
				},
				Action: func(c *cli.Context) error {
					v, err := e.svc.Inventory.SetStock(c.Context, c.Uint("id"), c.Int("qty"))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "variant %d: %s (%s) stock %d\n", v.ID, v.Name, v.Size, v.StockQuantity)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "print every variant",
				Action: func(c *cli.Context) error {
					variants, err := e.svc.Inventory.ListVariants(c.Context)
					if err != nil {
						return err
					}
					w := table(c.App.Writer)
					fmt.Fprintln(w, "ID\tNAME\tSIZE\tCATEGORY\tCOST\tPRICE\tSTOCK")
					for _, v := range variants {
						fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
							v.ID, v.Name, v.Size, v.Category, v.UnitCost.StringFixed(2), v.UnitPrice.StringFixed(2), v.StockQuantity)
					}
					return w.Flush()
				},
			},
		},
	}
}

func sellCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "sell",
		Usage: "sell one variant as a single-line order",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "variant", Required: true},
			&cli.IntFlag{Name: "qty", Value: 1},
			&cli.StringFlag{Name: "customer"},
			&cli.StringFlag{Name: "channel", Value: "Store"},
			&cli.StringFlag{Name: "payment", Value: "Cash"},
		},
		Action: func(c *cli.Context) error {
			var cart service.Cart
			if _, err := e.svc.Inventory.AddToCart(c.Context, &cart, c.Uint("variant"), c.Int("qty")); err != nil {
				return err
			}
			order, err := e.svc.Sales.Checkout(c.Context, &cart, service.CheckoutRequest{
				Customer:      c.String("customer"),
				Channel:       c.String("channel"),
				PaymentMethod: c.String("payment"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "order %d: total %s profit %s\n",
				order.ID, order.TotalSaleAmount.StringFixed(2), order.TotalProfit.StringFixed(2))
			return nil
		},
	}
}

func orderCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "order",
		Usage: "inspect and cancel orders",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "print orders, newest first",
				Action: func(c *cli.Context) error {
					orders, err := e.svc.Sales.ListOrders(c.Context)
					if err != nil {
						return err
					}
					w := table(c.App.Writer)
					fmt.Fprintln(w, "ID\tDATE\tCUSTOMER\tCHANNEL\tPAYMENT\tITEMS\tTOTAL\tPROFIT")
					for _, o := range orders {
						fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
							o.ID, o.Date.Local().Format("2006-01-02 15:04"), o.Customer, o.Channel, o.PaymentMethod,
							len(o.Items), o.TotalSaleAmount.StringFixed(2), o.TotalProfit.StringFixed(2))
					}
					return w.Flush()
				},
			},
			{
				Name:  "cancel",
				Usage: "cancel an order and return its items to stock",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
				},
				Action: func(c *cli.Context) error {
					order, err := e.svc.Sales.CancelOrder(c.Context, c.Uint("id"))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "order %d cancelled, %d lines restocked\n", order.ID, len(order.Items))
					return nil
				},
			},
		},
	}
}

func ledgerCommand(e *env) *cli.Command {
	entryFlags := []cli.Flag{
		&cli.StringFlag{Name: "amount", Required: true},
		&cli.StringFlag{Name: "reason", Required: true},
	}
	record := func(direction service.Direction) cli.ActionFunc {
		return func(c *cli.Context) error {
			amount, err := decimalFlag(c, "amount")
			if err != nil {
				return err
			}
			entry, err := e.svc.Ledger.RecordManualEntry(c.Context, service.ManualEntryRequest{
				Amount:    amount,
				Reason:    c.String("reason"),
				Direction: direction,
			})
			if err != nil {
				return err
			}
			return printBalance(c.Context, c.App.Writer, e.svc, fmt.Sprintf("entry %d: %s", entry.ID, entry.Amount.StringFixed(2)))
		}
	}

	return &cli.Command{
		Name:  "ledger",
		Usage: "record manual cash movements",
		Subcommands: []*cli.Command{
			{Name: "credit", Usage: "cash coming in", Flags: entryFlags, Action: record(service.Credit)},
			{Name: "debit", Usage: "cash going out", Flags: entryFlags, Action: record(service.Debit)},
			{
				Name:  "list",
				Usage: "print ledger entries, newest first",
				Action: func(c *cli.Context) error {
					entries, err := e.svc.Ledger.ListEntries(c.Context)
					if err != nil {
						return err
					}
					w := table(c.App.Writer)
					fmt.Fprintln(w, "ID\tDATE\tTYPE\tAMOUNT\tDESCRIPTION")
					for _, entry := range entries {
						fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
							entry.ID, entry.Date.Local().Format("2006-01-02"), entry.Type, entry.Amount.StringFixed(2), entry.Description)
					}
					if err := w.Flush(); err != nil {
						return err
					}
					return printBalance(c.Context, c.App.Writer, e.svc, "")
				},
			},
		},
	}
}

func dashboardCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "dashboard",
		Usage: "print the dashboard metrics",
		Action: func(c *cli.Context) error {
			sum, err := e.svc.Dashboard.Summary(c.Context)
			if err != nil {
				return err
			}
			w := table(c.App.Writer)
			fmt.Fprintf(w, "cash balance\t%s\n", sum.CashBalance.StringFixed(2))
			fmt.Fprintf(w, "revenue\t%s\n", sum.Revenue.StringFixed(2))
			fmt.Fprintf(w, "profit\t%s\n", sum.Profit.StringFixed(2))
			fmt.Fprintf(w, "units in stock\t%d\n", sum.UnitsInStock)
			fmt.Fprintf(w, "orders\t%d\n", sum.OrderCount)
			for _, ch := range sum.SalesByChannel {
				fmt.Fprintf(w, "channel %s\t%s\n", ch.Channel, ch.Total.StringFixed(2))
			}
			for _, p := range sum.TopProducts {
				fmt.Fprintf(w, "sold %s\t%d\n", p.Name, p.Quantity)
			}
			return w.Flush()
		},
	}
}

func printBalance(ctx context.Context, w io.Writer, svc *service.Services, prefix string) error {
	balance, err := svc.Ledger.Balance(ctx)
	if err != nil {
		return err
	}
	if prefix != "" {
		fmt.Fprintf(w, "%s, ", prefix)
	}
	fmt.Fprintf(w, "balance %s\n", balance.StringFixed(2))
	return nil
}

func decimalFlag(c *cli.Context, name string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.String(name))
	if err != nil {
		return decimal.Zero, errors.Wrapf(service.ErrValidation, "--%s: %v", name, err)
	}
	return d, nil
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
