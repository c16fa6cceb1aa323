// Command todoadmin bootstraps administrator accounts and applies migrations.
//
//	todoadmin migrate
//	todoadmin create-admin -email root@example.com [-name Root]
//	todoadmin promote -email user@example.com
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/abduss/gotodo/internal/auth"
	"github.com/abduss/gotodo/internal/config"
	"github.com/abduss/gotodo/internal/storage"
	"github.com/joho/godotenv"
	"golang.org/x/term"
)

// readPassword is a seam for term.ReadPassword.
var readPassword = term.ReadPassword

// adminService is the subset of *auth.Service the commands use.
type adminService interface {
	CreateAdmin(ctx context.Context, input auth.RegisterInput) (auth.User, error)
	Promote(ctx context.Context, email string) (auth.User, error)
}

// connect opens the database and builds the auth service. Replaced in tests.
var connect = func(ctx context.Context, cfg config.Config) (adminService, func(), error) {
	pool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	return auth.NewService(auth.NewRepository(pool), cfg.Auth), pool.Close, nil
}

var migrate = storage.Migrate

func main() {
	log.SetFlags(0)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string, stdin *os.File, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: todoadmin [migrate|create-admin|promote] [flags]")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	switch args[0] {
	case "migrate":
		if err := migrate(ctx, cfg.Postgres.DSN()); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "migrations applied")
		return nil

	case "create-admin":
		fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
		email := fs.String("email", "", "admin email")
		name := fs.String("name", "", "display name")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *email == "" {
			return errors.New("create-admin: -email is required")
		}

		password, err := promptPassword(stdin, stdout)
		if err != nil {
			return err
		}

		svc, closeFn, err := connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer closeFn()

		input := auth.RegisterInput{Email: *email, Password: password.value, ConfirmPassword: password.confirm}
		if *name != "" {
			input.Name = name
		}
		user, err := svc.CreateAdmin(ctx, input)
		if err != nil {
			return fmt.Errorf("create-admin: %w", err)
		}
		fmt.Fprintf(stdout, "created admin %s (%s)\n", user.Email, user.ID)
		return nil

	case "promote":
		fs := flag.NewFlagSet("promote", flag.ContinueOnError)
		email := fs.String("email", "", "account email")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *email == "" {
			return errors.New("promote: -email is required")
		}

		svc, closeFn, err := connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer closeFn()

		user, err := svc.Promote(ctx, *email)
		if err != nil {
			return fmt.Errorf("promote: %w", err)
		}
		fmt.Fprintf(stdout, "promoted %s (%s)\n", user.Email, user.ID)
		return nil

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

type passwordInput struct {
	value   string
	confirm string
}

// promptPassword reads the password twice without echo on a terminal, or one
// line each from a pipe.
func promptPassword(stdin *os.File, stdout io.Writer) (passwordInput, error) {
	fd := int(stdin.Fd())
	if !term.IsTerminal(fd) {
		reader := bufio.NewReader(stdin)
		value, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return passwordInput{}, fmt.Errorf("read password: %w", err)
		}
		value = strings.TrimRight(value, "\r\n")
		return passwordInput{value: value, confirm: value}, nil
	}

	fmt.Fprint(stdout, "Password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(stdout)
	if err != nil {
		return passwordInput{}, fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(stdout, "Confirm password: ")
	second, err := readPassword(fd)
	fmt.Fprintln(stdout)
	if err != nil {
		return passwordInput{}, fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return passwordInput{}, errors.New("passwords do not match")
	}
	return passwordInput{value: string(first), confirm: string(second)}, nil
}
