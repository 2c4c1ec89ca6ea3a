package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"counter-desk/internal/auth"
	"counter-desk/internal/export"
	"counter-desk/market"
)

func newMarketCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "market",
		Short: "Open the interactive market checkout counter",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			defer log.Sync()

			mgr, err := openMarket(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer mgr.Close()

			runMarketShell(cmd.Context(), bufio.NewScanner(os.Stdin), mgr)
			return nil
		},
	}
}

func runMarketShell(ctx context.Context, sc *bufio.Scanner, mgr *market.MarketManager) {
	fmt.Println("Welcome to the Market Checkout Counter!")
	for {
		s, ok := marketLogin(ctx, sc, mgr)
		if !ok || !marketSession(ctx, sc, mgr, s) {
			fmt.Println("Goodbye!")
			return
		}
	}
}

func marketLogin(ctx context.Context, sc *bufio.Scanner, mgr *market.MarketManager) (*market.Session, bool) {
	for {
		email, ok := prompt(sc, "\nEmail (blank to quit): ")
		if !ok || email == "" {
			return nil, false
		}
		password, err := readPassword(sc, "Password: ")
		if err != nil {
			return nil, false
		}
		s, err := mgr.Login(ctx, email, password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			fmt.Println("Invalid credentials.")
			continue
		}
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		fmt.Printf("Logged in as %s (%s)\n", s.Email, s.Role)
		return s, true
	}
}

// marketSession runs the menu for one login. It returns false when the user
// asked to exit or input ended, true on logout. An unpaid cart is dropped.
func marketSession(ctx context.Context, sc *bufio.Scanner, mgr *market.MarketManager, s *market.Session) bool {
	printMarketHelp(s)
	for {
		fmt.Print("\n> ")
		if !sc.Scan() {
			return false
		}
		cmd := strings.ToLower(strings.TrimSpace(sc.Text()))

		switch {
		case cmd == "list products":
			handleListProducts(ctx, sc, mgr)
		case cmd == "search product":
			handleSearchProduct(ctx, sc, mgr)
		case cmd == "help":
			printMarketHelp(s)
		case cmd == "logout":
			return true
		case cmd == "exit":
			return false

		case s.IsAdmin() && cmd == "add product":
			handleAddProduct(ctx, sc, mgr, s)
		case s.IsAdmin() && cmd == "modify product":
			handleModifyProduct(ctx, sc, mgr, s)
		case s.IsAdmin() && cmd == "delete product":
			handleDeleteProduct(ctx, sc, mgr, s)
		case s.IsAdmin() && cmd == "add user":
			handleAddCustomer(ctx, sc, mgr, s)
		case s.IsAdmin() && cmd == "low stock":
			handleMarketLowStock(ctx, mgr)
		case s.IsAdmin() && cmd == "never bought":
			handleNeverBought(ctx, mgr)
		case s.IsAdmin() && cmd == "top customers":
			handleTopCustomers(ctx, mgr)
		case s.IsAdmin() && cmd == "summary":
			handleSpendSummary(ctx, mgr)

		case !s.IsAdmin() && cmd == "add to cart":
			handleAddToCart(ctx, sc, mgr, s)
		case !s.IsAdmin() && cmd == "update cart":
			handleUpdateCart(ctx, sc, mgr, s)
		case !s.IsAdmin() && cmd == "remove from cart":
			handleRemoveFromCart(sc, mgr, s)
		case !s.IsAdmin() && cmd == "view cart":
			printCart(s.Cart)
		case !s.IsAdmin() && cmd == "pay":
			handlePay(ctx, mgr, s)
		case !s.IsAdmin() && cmd == "history":
			handleHistory(ctx, mgr, s)
		case !s.IsAdmin() && cmd == "my account":
			handleCustomerAccount(ctx, mgr, s)

		default:
			fmt.Println("Unknown command. Type 'help' to see the available commands.")
		}
	}
}

func printMarketHelp(s *market.Session) {
	fmt.Println("Available commands:")
	if s.IsAdmin() {
		fmt.Println("  Products: add product, modify product, delete product, list products, search product")
		fmt.Println("  Users: add user")
		fmt.Println("  Reports: low stock, never bought, top customers, summary")
	} else {
		fmt.Println("  Products: list products, search product")
		fmt.Println("  Cart: add to cart, update cart, remove from cart, view cart, pay")
		fmt.Println("  Account: my account, history")
	}
	fmt.Println("  Session: help, logout, exit")
}

func handleAddProduct(ctx context.Context, sc *bufio.Scanner, mgr *market.MarketManager, s *market.Session) {
	name, ok := prompt(sc, "Name: ")
	if !ok {
		return
	}
	price, ok := promptFloat(sc, "Price: ")
	if !ok {
		return
	}
	qty, ok := promptInt(sc, "Quantity: ")
	if !ok {
		return
	}
	p, err := mgr.AddProduct(ctx, s, name, price, qty)
	if err != nil {
		fmt.Printf("Error adding product: %v\n", err)
		return
	}
	fmt.Printf("Added product '%s' with ID %d\n", p.Name, p.ID)
}

func handleModifyProduct(ctx context.Context, sc *bufio.Scanner, mgr *market.MarketManager, s *market.Session) {
	id, ok := promptInt(sc, "Product ID: ")
	if !ok {
		return
	}
	p, err := mgr.GetProduct(ctx, int64(id))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("Press Enter to keep the current value.")
	name, ok := promptStringDefault(sc, "Name", p.Name)
	if !ok {
		return
	}
	price, ok := promptFloatDefault(sc, "Price", p.Price)
	if !ok {
		return
	}
	qty, ok := promptIntDefault(sc, "Quantity", p.Quantity)
	if !ok {
		return
	}

	if err := mgr.ModifyProduct(ctx, s, p.ID, name, price, qty); err != nil {
		fmt.Printf("Error modifying product: %v\n", err)
		return
	}
	fmt.Printf("Updated product %d\n", p.ID)
}

func handleDeleteProduct(ctx context.Context, sc *bufio.Scanner, mgr *market.MarketManager, s *market.Session) {
	id, ok := promptInt(sc, "Product ID: ")
	if !ok {
		return
	}
	if err := mgr.DeleteProduct(ctx, s, int64(id)); err != nil {
		fmt.Printf("Error deleting product: %v\n", err)
		return
	}
	fmt.Printf("Deleted product %d\n", id)
}

func handleListProducts(ctx context.Context, sc *bufio.Scanner, mgr *market.MarketManager) {
	order, ok := prompt(sc, "Sort by (name/price) [name]: ")
	if !ok {
		return
	}
	by := market.SortByName
	if strings.EqualFold(order, "price") {
		by = market.SortByPrice
	}
	products, err := mgr.GetAllProducts(ctx, by)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(products) == 0 {
		fmt.Println("No products in the shop.")
		return
	}
	printProducts(products)
}

func printProducts(products []*market.Product) {
	fmt.Printf("%-5s %-30s %-12s %s\n", "ID", "Name", "Price", "Stock")
	fmt.Println(strings.Repeat("-", 60))
	for _, p := range products {
		fmt.Printf("%-5d %-30s %-12s %d\n", p.ID, truncateString(p.Name, 30), export.Money(p.Price), p.Quantity)
	}
}

func handleSearchProduct(ctx context.Context, sc *bufio.Scanner, mgr *market.MarketManager) {
	query, ok := prompt(sc, "Name or ID: ")
	if !ok {
		return
	}
	p, err := mgr.SearchProduct(ctx, query)
	if errors.Is(err, market.ErrProductNotFound) {
		fmt.Printf("No product found matching '%s'.\n", query)
		return
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printProducts([]*market.Product{p})
}

func handleAddCustomer(ctx context.Context, sc *bufio.Scanner, mgr *market.MarketManager, s *market.Session) {
	email, ok := prompt(sc, "Email: ")
	if !ok {
		return
	}
	password, err := readPassword(sc, fmt.Sprintf("Enter password for %s: ", email))
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	role, ok := promptStringDefault(sc, "Role (admin/customer)", string(market.RoleCustomer))
	if !ok {
		return
	}
	if err := mgr.AddAccount(ctx, s, email, password, market.Role(strings.ToLower(role))); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Added %s <%s> with credit %s\n", role, email, export.Money(mgr.Policy().InitialCredit))
}

func handleAddToCart(ctx context.Context, sc *bufio.Scanner, mgr *market.MarketManager, s *market.Session) {
	id, ok := promptInt(sc, "Product ID: ")
	if !ok {
		return
	}
	qty, ok := promptInt(sc, "Quantity: ")
	if !ok {
		return
	}
	if err := mgr.AddToCart(ctx, s, int64(id), qty); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Cart total: %s\n", export.Money(s.Cart.Total()))
}

func handleUpdateCart(ctx context.Context, sc *bufio.Scanner, mgr *market.MarketManager, s *market.Session) {
	id, ok := promptInt(sc, "Product ID: ")
	if !ok {
		return
	}
	qty, ok := promptInt(sc, "New quantity: ")
	if !ok {
		return
	}
	if err := mgr.UpdateCartQuantity(ctx, s, int64(id), qty); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Cart total: %s\n", export.Money(s.Cart.Total()))
}

func handleRemoveFromCart(sc *bufio.Scanner, mgr *market.MarketManager, s *market.Session) {
	id, ok := promptInt(sc, "Product ID: ")
	if !ok {
		return
	}
	if err := mgr.RemoveFromCart(s, int64(id)); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Removed.")
}

func printCart(c *market.Cart) {
	items := c.Items()
	if len(items) == 0 {
		fmt.Println("Cart is empty.")
		return
	}
	fmt.Printf("%-5s %-30s %-6s %s\n", "ID", "Name", "Qty", "Amount")
	fmt.Println(strings.Repeat("-", 60))
	for _, it := range items {
		fmt.Printf("%-5d %-30s %-6d %s\n", it.ProductID, truncateString(it.Name, 30), it.Quantity, export.Money(it.Total()))
	}
	fmt.Printf("Total: %s\n", export.Money(c.Total()))
}

func handlePay(ctx context.Context, mgr *market.MarketManager, s *market.Session) {
	pay, err := mgr.Pay(ctx, s)
	switch {
	case errors.Is(err, market.ErrEmptyCart):
		fmt.Println("Cart is empty.")
		return
	case errors.Is(err, market.ErrInsufficientCredit):
		fmt.Printf("Not enough credit: %v\n", err)
		return
	case err != nil:
		fmt.Printf("Payment failed: %v\n", err)
		return
	}
	fmt.Printf("Paid %s\n", export.Money(pay.Receipt.Total))
	if pay.Reward.Bonus > 0 {
		fmt.Printf("Bonus credit: %s\n", export.Money(pay.Reward.Bonus))
	}
	fmt.Printf("Credit: %s | Loyalty points: %d\n", export.Money(pay.Credit), pay.Points)
}

func handleHistory(ctx context.Context, mgr *market.MarketManager, s *market.Session) {
	receipts, err := mgr.History(ctx, s)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(receipts) == 0 {
		fmt.Println("No purchases yet.")
		return
	}
	for _, r := range receipts {
		fmt.Println(r)
	}
}

func handleCustomerAccount(ctx context.Context, mgr *market.MarketManager, s *market.Session) {
	acct, err := mgr.Account(ctx, s)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("%s\n", acct.Email)
	fmt.Printf("Credit: %s | Loyalty points: %d | Total spent: %s\n",
		export.Money(acct.Credit), acct.LoyaltyPoints, export.Money(acct.TotalSpent))
}

func handleMarketLowStock(ctx context.Context, mgr *market.MarketManager) {
	products, err := mgr.LowStock(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Low stock (fewer than %d units):\n", mgr.Policy().LowStock)
	printRows(products)
}

func handleNeverBought(ctx context.Context, mgr *market.MarketManager) {
	products, err := mgr.NeverBought(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printRows(products)
}

func handleTopCustomers(ctx context.Context, mgr *market.MarketManager) {
	top, err := mgr.TopCustomers(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printRows(top)
}

func handleSpendSummary(ctx context.Context, mgr *market.MarketManager) {
	sum, err := mgr.Summary(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Customers: %d\n", sum.Customers)
	fmt.Printf("Total: %s | Mean: %s | Median: %s | Max: %s\n",
		export.Money(sum.Total), export.Money(sum.Mean), export.Money(sum.Median), export.Money(sum.Max))
}

func printRows(rows any) {
	if err := export.Write(os.Stdout, export.FormatTable, rows); err != nil {
		fmt.Printf("Error: %v\n", err)
	}
}
