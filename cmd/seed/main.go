// Command seed recreates the SQLite databases of both desks with the demo
// accounts and catalogs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"counter-desk/internal/config"
	"counter-desk/internal/export"
	"counter-desk/library"
	"counter-desk/market"
)

func main() {
	dataDir := flag.String("data-dir", "data", "directory for library.db and market.db")
	flag.Parse()

	store := config.StoreConfig{Backend: config.BackendSQLite, DataDir: *dataDir}
	ctx := context.Background()

	// Clean up any existing database files
	fmt.Println("Cleaning up existing database files...")
	for _, base := range []string{store.LibraryPath(), store.MarketPath()} {
		for _, file := range []string{base, base + "-shm", base + "-wal"} {
			if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
				fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
			}
		}
	}
	fmt.Println("Database cleanup complete.")

	if err := seedLibrary(ctx, store.LibraryPath()); err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding library: %v\n", err)
		os.Exit(1)
	}
	if err := seedMarket(ctx, store.MarketPath()); err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding market: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nSeed complete!")
}

func seedLibrary(ctx context.Context, path string) error {
	db, err := library.NewDatabase(path)
	if err != nil {
		return err
	}
	mgr := library.NewLibraryManager(db)
	defer mgr.Close()

	if _, err := mgr.SeedDemo(ctx); err != nil {
		return err
	}

	fmt.Printf("\nLibrary (%s)\n", path)
	for _, a := range library.DemoAccounts {
		fmt.Printf("  %-9s %s / %s\n", a.Role, a.Email, a.Password)
	}
	books, err := mgr.GetAllBooks(ctx, library.SortByName)
	if err != nil {
		return err
	}
	fmt.Printf("  %-8s %-25s %-15s %-5s %s\n", "ISBN", "Name", "Author", "Qty", "Cost")
	fmt.Println("  " + strings.Repeat("-", 65))
	for _, b := range books {
		fmt.Printf("  %-8s %-25s %-15s %-5d %s\n", b.ISBN, b.Name, b.Author, b.Quantity, export.Money(float64(b.Cost)))
	}
	return nil
}

func seedMarket(ctx context.Context, path string) error {
	db, err := market.NewDatabase(path)
	if err != nil {
		return err
	}
	mgr := market.NewMarketManager(db)
	defer mgr.Close()

	if _, err := mgr.SeedDemo(ctx); err != nil {
		return err
	}

	fmt.Printf("\nMarket (%s)\n", path)
	for _, a := range market.DemoAccounts {
		fmt.Printf("  %-9s %s / %s\n", a.Role, a.Email, a.Password)
	}
	products, err := mgr.GetAllProducts(ctx, market.SortByName)
	if err != nil {
		return err
	}
	fmt.Printf("  %-4s %-25s %-10s %s\n", "ID", "Name", "Price", "Qty")
	fmt.Println("  " + strings.Repeat("-", 50))
	for _, p := range products {
		fmt.Printf("  %-4d %-25s %-10s %d\n", p.ID, p.Name, export.Money(p.Price), p.Quantity)
	}
	return nil
}
