// Command acmectl operates a running warehouse ledger over gRPC.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/rl1809/acme-warehouse/internal/adapter/handler"
	"github.com/rl1809/acme-warehouse/internal/adapter/storage"
	"github.com/rl1809/acme-warehouse/internal/core/domain"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "acmectl",
		Usage: "inspect and operate an ACME warehouse ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   "localhost:50051",
				Usage:   "ledger gRPC address",
				EnvVars: []string{"ACMECTL_ADDR"},
			},
			&cli.StringFlag{
				Name:    "as",
				Usage:   "caller address sent with every request",
				EnvVars: []string{"ACMECTL_CALLER"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 10 * time.Second,
				Usage: "per-command deadline",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "managers",
				Usage:  "list warehouse managers",
				Action: withClient(listManagers),
			},
			{
				Name:      "manager",
				Usage:     "show one warehouse manager",
				ArgsUsage: "<address>",
				Action:    withClient(showManager),
			},
			{
				Name:      "add-manager",
				Usage:     "register a warehouse manager (administrator)",
				ArgsUsage: "<address>",
				Action:    withClient(addManager),
			},
			{
				Name:      "remove-manager",
				Usage:     "deregister a warehouse manager (administrator)",
				ArgsUsage: "<address>",
				Action:    withClient(removeManager),
			},
			{
				Name:      "prices",
				Usage:     "show item prices",
				ArgsUsage: "[item...]",
				Action:    withClient(showPrices),
			},
			{
				Name:      "set-price",
				Usage:     "set an item price in wei (administrator)",
				ArgsUsage: "<item> <wei>",
				Action:    withClient(setPrice),
			},
			{
				Name:      "stock",
				Usage:     "list every holder of an item",
				ArgsUsage: "[item]",
				Action:    withClient(showStock),
			},
			{
				Name:      "set-stock",
				Usage:     "overwrite a holder's balance (holder or administrator)",
				ArgsUsage: "<holder> <item> <quantity>",
				Action:    withClient(setStock),
			},
			{
				Name:      "balance",
				Usage:     "show a holder's balance of an item",
				ArgsUsage: "<holder> [item]",
				Action:    withClient(showBalance),
			},
			{
				Name:      "open-orders",
				Usage:     "list open orders, of one manager or of everyone",
				ArgsUsage: "[manager]",
				Action:    withClient(showOpenOrders),
			},
			{
				Name:      "order",
				Usage:     "show an order",
				ArgsUsage: "<id>",
				Action:    withClient(showOrder),
			},
			{
				Name:  "place-order",
				Usage: "order items from a manager as the caller",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "manager", Required: true},
					&cli.Uint64Flag{Name: "item", Value: uint64(domain.WidgetsItemID)},
					&cli.Int64Flag{Name: "quantity", Required: true},
					&cli.StringFlag{Name: "paid", Usage: "payment in wei, defaults to price x quantity"},
					&cli.StringFlag{Name: "request-id", Usage: "idempotency key"},
				},
				Action: withClient(placeOrder),
			},
			{
				Name:      "reject-order",
				Usage:     "reject an open order and refund the customer (owning manager)",
				ArgsUsage: "<id>",
				Action:    withClient(rejectOrder),
			},
			{
				Name:      "ship-order",
				Usage:     "ship an open order and collect its payment (owning manager)",
				ArgsUsage: "<id>",
				Action:    withClient(shipOrder),
			},
			{
				Name:   "escrow",
				Usage:  "show the payment held for open orders",
				Action: withClient(showEscrow),
			},
			{
				Name:      "account",
				Usage:     "show the wei paid out to an address",
				ArgsUsage: "<address>",
				Action:    withClient(showAccount),
			},
			{
				Name:  "watch",
				Usage: "follow order notifications published to Redis",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "redis-addr", Value: "localhost:6379", EnvVars: []string{"ACMECTL_REDIS_ADDR"}},
					&cli.StringFlag{Name: "channel", Value: "acme:orders:placed"},
					&cli.Int64Flag{Name: "backlog", Usage: "print this many past events first"},
				},
				Action: watch,
			},
		},
	}
}

type clientAction func(ctx context.Context, c *cli.Context, client *handler.LedgerClient) error

// withClient dials the ledger for the duration of one command.
func withClient(action clientAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		conn, err := grpc.NewClient(c.String("addr"), grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return errors.Wrapf(err, "connect to %s", c.String("addr"))
		}
		defer conn.Close()

		ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
		defer cancel()

		caller, _ := domain.ParseAddress(c.String("as"))
		if err := action(ctx, c, handler.NewLedgerClient(conn, caller)); err != nil {
			return describe(err)
		}
		return nil
	}
}

func describe(err error) error {
	if st, ok := status.FromError(err); ok {
		return errors.Errorf("%s: %s", st.Code(), st.Message())
	}
	return err
}

func addressArg(c *cli.Context, i int) (domain.Address, error) {
	addr, ok := domain.ParseAddress(c.Args().Get(i))
	if !ok {
		return "", errors.Errorf("usage: %s %s", c.Command.Name, c.Command.ArgsUsage)
	}
	return addr, nil
}

func itemArg(c *cli.Context, i int) (domain.ItemID, error) {
	raw := c.Args().Get(i)
	if raw == "" {
		return domain.WidgetsItemID, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid item id %q", raw)
	}
	return domain.ItemID(v), nil
}

func orderArg(c *cli.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		return 0, errors.Errorf("usage: %s %s", c.Command.Name, c.Command.ArgsUsage)
	}
	return id, nil
}

func listManagers(ctx context.Context, c *cli.Context, client *handler.LedgerClient) error {
	managers, err := client.ListManagers(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(managers))
	for _, m := range managers {
		rows = append(rows, []string{m.String()})
	}
	printTable(c.App.Writer, []string{"MANAGER"}, rows)
	return nil
}

func showManager(ctx context.Context, c *cli.Context, client *handler.LedgerClient) error {
	addr, err := addressArg(c, 0)
	if err != nil {
		return err
	}
	m, err := client.Manager(ctx, addr)
	if err != nil {
		return err
	}
	printHeading(c.App.Writer, "Warehouse manager")
	printField(c.App.Writer, "address", m.Address)
	printField(c.App.Writer, "added", m.AddedAt.Format(time.RFC3339))
	return nil
}

func addManager(ctx context.Context, c *cli.Context, client *handler.LedgerClient) error {
	addr, err := addressArg(c, 0)
	if err != nil {
		return err
	}
	if err := client.AddManager(ctx, addr); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "added warehouse manager %s\n", addr)
	return nil
}

func removeManager(ctx context.Context, c *cli.Context, client *handler.LedgerClient) error {
	addr, err := addressArg(c, 0)
	if err != nil {
		return err
	}
	if err := client.RemoveManager(ctx, addr); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "removed warehouse manager %s\n", addr)
	return nil
}

func showPrices(ctx context.Context, c *cli.Context, client *handler.LedgerClient) error {
	items := []domain.ItemID{domain.WidgetsItemID}
	if c.NArg() > 0 {
		items = items[:0]
		for i := 0; i < c.NArg(); i++ {
			item, err := itemArg(c, i)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		price, err := client.GetPrice(ctx, item)
		if err != nil {
			return err
		}
		rows = append(rows, []string{strconv.FormatUint(uint64(item), 10), price.String(), domain.FormatEther(price)})
	}
	printTable(c.App.Writer, []string{"ITEM", "WEI", "ETHER"}, rows)
	return nil
}

func setPrice(ctx context.Context, c *cli.Context, client *handler.LedgerClient) error {
	if c.NArg() != 2 {
		return errors.Errorf("usage: %s %s", c.Command.Name, c.Command.ArgsUsage)
	}
	item, err := itemArg(c, 0)
	if err != nil {
		return err
	}
	amount, err := domain.ParseWei(c.Args().Get(1))
	if err != nil {
		return err
	}
	if err := client.SetPrice(ctx, item, amount); err != nil {
		return err
	}
	printAmount(c.App.Writer, fmt.Sprintf("item %d", item), amount)
	return nil
}

func showStock(ctx context.Context, c *cli.Context, client *handler.LedgerClient) error {
	item, err := itemArg(c, 0)
	if err != nil {
		return err
	}
	holdings, err := client.Holdings(ctx, item)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(holdings))
	for _, h := range holdings {
		rows = append(rows, []string{h.Holder.String(), strconv.FormatInt(h.Quantity, 10)})
	}
	printHeading(c.App.Writer, fmt.Sprintf("Item %d", item))
	printTable(c.App.Writer, []string{"HOLDER", "QUANTITY"}, rows)
	return nil
}

func setStock(ctx context.Context, c *cli.Context, client *handler.LedgerClient) error {
	if c.NArg() != 3 {
		return errors.Errorf("usage: %s %s", c.Command.Name, c.Command.ArgsUsage)
	}
	holder, err := addressArg(c, 0)
	if err != nil {
		return err
	}
	item, err := itemArg(c, 1)
	if err != nil {
		return err
	}
	qty, err := strconv.ParseInt(c.Args().Get(2), 10, 64)
	if err != nil {
		return errors.Errorf("invalid quantity %q", c.Args().Get(2))
	}
	if err := client.SetBalance(ctx, holder, item, qty); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s now holds %d of item %d\n", holder, qty, item)
	return nil
}

func showBalance(ctx context.Context, c *cli.Context, client *handler.LedgerClient) error {
	holder, err := addressArg(c, 0)
	if err != nil {
		return err
	}
	item, err := itemArg(c, 1)
	if err != nil {
		return err
	}
	qty, err := client.BalanceOf(ctx, holder, item)
	if err != nil {
		return err
	}
	printField(c.App.Writer, fmt.Sprintf("item %d", item), qty)
	return nil
}

func showOpenOrders(ctx context.Context, c *cli.Context, client *handler.LedgerClient) error {
	var ids []uint64
	var err error
	if manager, ok := domain.ParseAddress(c.Args().First()); ok {
		ids, err = client.OpenOrders(ctx, manager)
	} else {
		ids, err = client.AllOpenOrders(ctx)
	}
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		o, err := client.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		rows = append(rows, []string{
			strconv.FormatUint(o.ID, 10),
			strconv.FormatUint(uint64(o.ItemID), 10),
			strconv.FormatInt(o.Quantity, 10),
			o.Manager.String(),
			o.Customer.String(),
			domain.FormatEther(o.Escrowed),
		})
	}
	printTable(c.App.Writer, []string{"ID", "ITEM", "QTY", "MANAGER", "CUSTOMER", "ETHER"}, rows)
	return nil
}

func showOrder(ctx context.Context, c *cli.Context, client *handler.LedgerClient) error {
	id, err := orderArg(c)
	if err != nil {
		return err
	}
	o, err := client.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	printOrder(c.App.Writer, o)
	return nil
}

func placeOrder(ctx context.Context, c *cli.Context, client *handler.LedgerClient) error {
	manager, ok := domain.ParseAddress(c.String("manager"))
	if !ok {
		return errors.New("--manager is required")
	}
	item := domain.ItemID(c.Uint64("item"))
	qty := c.Int64("quantity")

	var paid decimal.Decimal
	if raw := c.String("paid"); raw != "" {
		var err error
		if paid, err = domain.ParseWei(raw); err != nil {
			return err
		}
	} else {
		price, err := client.GetPrice(ctx, item)
		if err != nil {
			return err
		}
		paid = price.Mul(decimal.NewFromInt(qty))
	}

	id, err := client.PlaceOrder(ctx, handler.PlaceOrderRequest{
		ItemID:    item,
		Quantity:  qty,
		Manager:   manager,
		Paid:      paid,
		RequestID: c.String("request-id"),
	})
	if err != nil {
		return err
	}
	printField(c.App.Writer, "order", id)
	printAmount(c.App.Writer, "paid", paid)
	return nil
}

func rejectOrder(ctx context.Context, c *cli.Context, client *handler.LedgerClient) error {
	id, err := orderArg(c)
	if err != nil {
		return err
	}
	if err := client.RejectOrder(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "order %d rejected\n", id)
	return nil
}

func shipOrder(ctx context.Context, c *cli.Context, client *handler.LedgerClient) error {
	id, err := orderArg(c)
	if err != nil {
		return err
	}
	if err := client.ShipOrder(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "order %d shipped\n", id)
	return nil
}

func showEscrow(ctx context.Context, c *cli.Context, client *handler.LedgerClient) error {
	held, err := client.EscrowHeld(ctx)
	if err != nil {
		return err
	}
	printAmount(c.App.Writer, "escrow", held)
	return nil
}

func showAccount(ctx context.Context, c *cli.Context, client *handler.LedgerClient) error {
	addr, err := addressArg(c, 0)
	if err != nil {
		return err
	}
	bal, err := client.AccountBalance(ctx, addr)
	if err != nil {
		return err
	}
	printAmount(c.App.Writer, addr.String(), bal)
	return nil
}

func watch(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	rdb := redis.NewClient(&redis.Options{Addr: c.String("redis-addr")})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "connect redis")
	}
	events := storage.NewRedisAdapter(rdb, c.String("channel"))

	if n := c.Int64("backlog"); n > 0 {
		past, err := events.Backlog(ctx, n)
		if err != nil {
			return err
		}
		for _, ev := range past {
			printEvent(c.App.Writer, ev)
		}
	}

	return events.Subscribe(ctx, func(ev domain.OrderPlaced) {
		printEvent(c.App.Writer, ev)
	}, func(payload string, err error) {
		fmt.Fprintln(c.App.ErrWriter, errorStyle.Render(fmt.Sprintf("skipped event %q: %v", payload, err)))
	})
}
