package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"counter-desk/internal/auth"
	"counter-desk/internal/export"
	"counter-desk/library"
)

func newLibraryCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "library",
		Short: "Open the interactive library lending desk",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			defer log.Sync()

			mgr, err := openLibrary(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer mgr.Close()

			runLibraryShell(cmd.Context(), bufio.NewScanner(os.Stdin), mgr)
			return nil
		},
	}
}

func runLibraryShell(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager) {
	fmt.Println("Welcome to the Library Lending Desk!")
	for {
		s, ok := libraryLogin(ctx, sc, mgr)
		if !ok || !librarySession(ctx, sc, mgr, s) {
			fmt.Println("Goodbye!")
			return
		}
	}
}

func libraryLogin(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager) (library.Session, bool) {
	for {
		email, ok := prompt(sc, "\nEmail (blank to quit): ")
		if !ok || email == "" {
			return library.Session{}, false
		}
		password, err := readPassword(sc, "Password: ")
		if err != nil {
			return library.Session{}, false
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
		fmt.Printf("Logged in as %s (%s)\n", s.Name, s.Role)
		return s, true
	}
}

// librarySession runs the menu for one login. It returns false when the
// user asked to exit or input ended, true on logout.
func librarySession(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager, s library.Session) bool {
	printLibraryHelp(s)
	for {
		fmt.Print("\n> ")
		if !sc.Scan() {
			return false
		}
		cmd := strings.ToLower(strings.TrimSpace(sc.Text()))

		switch {
		case cmd == "list books":
			handleListBooks(ctx, sc, mgr)
		case cmd == "search book":
			handleSearchBook(ctx, sc, mgr)
		case cmd == "fines":
			handleFineHistory(ctx, mgr, s)
		case cmd == "help":
			printLibraryHelp(s)
		case cmd == "logout":
			return true
		case cmd == "exit":
			return false

		case s.IsAdmin() && cmd == "add book":
			handleAddBook(ctx, sc, mgr, s)
		case s.IsAdmin() && cmd == "update book":
			handleUpdateBook(ctx, sc, mgr, s)
		case s.IsAdmin() && cmd == "delete book":
			handleDeleteBook(ctx, sc, mgr, s)
		case s.IsAdmin() && cmd == "add user":
			handleAddUser(ctx, sc, mgr, s)
		case s.IsAdmin() && cmd == "list users":
			handleListUsers(ctx, mgr, s)
		case s.IsAdmin() && cmd == "reports":
			handleLibraryReports(ctx, mgr)

		case !s.IsAdmin() && cmd == "borrow":
			handleBorrow(ctx, sc, mgr, s)
		case !s.IsAdmin() && cmd == "return":
			handleReturn(ctx, sc, mgr, s)
		case !s.IsAdmin() && cmd == "my account":
			handleMyAccount(ctx, mgr, s)

		default:
			fmt.Println("Unknown command. Type 'help' to see the available commands.")
		}
	}
}

func printLibraryHelp(s library.Session) {
	fmt.Println("Available commands:")
	if s.IsAdmin() {
		fmt.Println("  Books: add book, update book, delete book, list books, search book")
		fmt.Println("  Users: add user, list users")
		fmt.Println("  Reports: reports, fines")
	} else {
		fmt.Println("  Books: list books, search book")
		fmt.Println("  Loans: borrow, return, my account, fines")
	}
	fmt.Println("  Session: help, logout, exit")
}

func handleAddBook(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager, s library.Session) {
	isbn, ok := prompt(sc, "ISBN: ")
	if !ok {
		return
	}
	name, ok := prompt(sc, "Name: ")
	if !ok {
		return
	}
	author, ok := prompt(sc, "Author: ")
	if !ok {
		return
	}
	qty, ok := promptInt(sc, "Quantity: ")
	if !ok {
		return
	}
	cost, ok := promptInt(sc, "Cost: ")
	if !ok {
		return
	}

	b := library.Book{ISBN: isbn, Name: name, Author: author, Quantity: qty, Cost: cost}
	if err := mgr.AddBook(ctx, s, b); err != nil {
		fmt.Printf("Error adding book: %v\n", err)
		return
	}
	fmt.Printf("Added book '%s' (%s)\n", name, isbn)
}

func handleUpdateBook(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager, s library.Session) {
	isbn, ok := prompt(sc, "ISBN: ")
	if !ok {
		return
	}
	b, err := mgr.GetBook(ctx, isbn)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("Press Enter to keep the current value.")
	if b.Name, ok = promptStringDefault(sc, "Name", b.Name); !ok {
		return
	}
	if b.Author, ok = promptStringDefault(sc, "Author", b.Author); !ok {
		return
	}
	if b.Quantity, ok = promptIntDefault(sc, "Quantity", b.Quantity); !ok {
		return
	}
	if b.Cost, ok = promptIntDefault(sc, "Cost", b.Cost); !ok {
		return
	}

	if err := mgr.UpdateBook(ctx, s, *b); err != nil {
		fmt.Printf("Error updating book: %v\n", err)
		return
	}
	fmt.Printf("Updated book '%s'\n", b.Name)
}

func handleDeleteBook(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager, s library.Session) {
	isbn, ok := prompt(sc, "ISBN: ")
	if !ok {
		return
	}
	if err := mgr.DeleteBook(ctx, s, isbn); err != nil {
		fmt.Printf("Error deleting book: %v\n", err)
		return
	}
	fmt.Printf("Deleted book %s\n", isbn)
}

func handleListBooks(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager) {
	order, ok := prompt(sc, "Sort by (name/cost) [name]: ")
	if !ok {
		return
	}
	by := library.SortByName
	if strings.EqualFold(order, "cost") {
		by = library.SortByCost
	}

	books, err := mgr.GetAllBooks(ctx, by)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(books) == 0 {
		fmt.Println("No books in library.")
		return
	}
	printBooks(books)
}

func printBooks(books []*library.Book) {
	fmt.Printf("%-12s %-30s %-20s %-10s %-8s %s\n", "ISBN", "Name", "Author", "Available", "Cost", "Borrowed")
	fmt.Println(strings.Repeat("-", 95))
	for _, b := range books {
		fmt.Printf("%-12s %-30s %-20s %-10d %-8d %d\n",
			truncateString(b.ISBN, 12),
			truncateString(b.Name, 30),
			truncateString(b.Author, 20),
			b.Quantity,
			b.Cost,
			b.BorrowCount)
	}
}

func handleSearchBook(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager) {
	query, ok := prompt(sc, "ISBN or name: ")
	if !ok {
		return
	}
	b, err := mgr.SearchBook(ctx, query)
	if errors.Is(err, library.ErrBookNotFound) {
		fmt.Printf("No book found matching '%s'.\n", query)
		return
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printBooks([]*library.Book{b})
}

func handleAddUser(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager, s library.Session) {
	name, ok := prompt(sc, "Name: ")
	if !ok {
		return
	}
	email, ok := prompt(sc, "Email: ")
	if !ok {
		return
	}
	password, err := readPassword(sc, fmt.Sprintf("Enter password for %s: ", name))
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	role, ok := promptStringDefault(sc, "Role (admin/borrower)", string(library.RoleBorrower))
	if !ok {
		return
	}

	if err := mgr.AddAccount(ctx, s, name, email, password, library.Role(strings.ToLower(role))); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Added %s '%s' <%s> with deposit %s\n", role, name, email, export.Money(mgr.Policy().InitialDeposit))
}

func handleListUsers(ctx context.Context, mgr *library.LibraryManager, s library.Session) {
	accounts, err := mgr.GetAllAccounts(ctx, s)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("%-25s %-20s %-10s %-12s %s\n", "Email", "Name", "Role", "Deposit", "Borrowed")
	fmt.Println(strings.Repeat("-", 90))
	for _, a := range accounts {
		fmt.Printf("%-25s %-20s %-10s %-12s %s\n",
			truncateString(a.Email, 25),
			truncateString(a.Name, 20),
			a.Role,
			export.Money(a.Deposit),
			strings.Join(a.Borrowed, ", "))
	}
}

func handleBorrow(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager, s library.Session) {
	isbn, ok := prompt(sc, "ISBN: ")
	if !ok {
		return
	}
	loan, err := mgr.Borrow(ctx, s, isbn)
	switch {
	case errors.Is(err, library.ErrBorrowLimit):
		fmt.Printf("You already hold %d books. Return one first.\n", mgr.Policy().MaxLoans)
	case errors.Is(err, library.ErrUnavailable):
		fmt.Println("Book not available.")
	case err != nil:
		fmt.Printf("Error borrowing book: %v\n", err)
	default:
		fmt.Printf("Borrowed %s on %s\n", loan.ISBN, loan.StartedOn.Format(library.DateLayout))
	}
}

func handleReturn(ctx context.Context, sc *bufio.Scanner, mgr *library.LibraryManager, s library.Session) {
	isbn, ok := prompt(sc, "ISBN: ")
	if !ok {
		return
	}
	input, ok := prompt(sc, "Return date (dd/MM/yyyy, blank for today): ")
	if !ok {
		return
	}
	date := library.CivilDate(time.Now())
	if input != "" {
		var err error
		if date, err = library.ParseReturnDate(input); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
	}

	res, err := mgr.Return(ctx, s, isbn, date)
	if err != nil {
		fmt.Printf("Error returning book: %v\n", err)
		return
	}
	fmt.Printf("Returned %s after %d days.\n", res.ISBN, res.DaysElapsed)
	if res.Fine != nil {
		fmt.Println(res.Fine)
	}
	fmt.Printf("Deposit: %s\n", export.Money(res.Deposit))
}

func handleMyAccount(ctx context.Context, mgr *library.LibraryManager, s library.Session) {
	acct, err := mgr.Account(ctx, s)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("%s <%s>\n", acct.Name, acct.Email)
	fmt.Printf("Deposit: %s\n", export.Money(acct.Deposit))
	if len(acct.Borrowed) == 0 {
		fmt.Println("No books borrowed.")
		return
	}
	fmt.Printf("Borrowed (%d/%d): %s\n", len(acct.Borrowed), mgr.Policy().MaxLoans, strings.Join(acct.Borrowed, ", "))
}

func handleFineHistory(ctx context.Context, mgr *library.LibraryManager, s library.Session) {
	var (
		fines []library.Fine
		err   error
	)
	if s.IsAdmin() {
		fines, err = mgr.OutstandingFines(ctx)
	} else {
		fines, err = mgr.FineHistory(ctx, s)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(fines) == 0 {
		fmt.Println("No fines.")
		return
	}
	for _, f := range fines {
		if s.IsAdmin() {
			fmt.Printf("%s: ", f.Email)
		}
		fmt.Println(f)
	}
}

func handleLibraryReports(ctx context.Context, mgr *library.LibraryManager) {
	low, err := mgr.LowStock(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Low stock (fewer than %d copies):\n", mgr.Policy().LowStock)
	printRows(low)

	top, err := mgr.MostBorrowed(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("\nMost borrowed:")
	printRows(top)
}
