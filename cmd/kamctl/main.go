// Command kamctl is a small terminal client for the admin API. It drives the
// same login flow the dashboard uses and keeps the session in a local file.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"kampus-admin/client"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "login":
		err = runLogin(ctx, os.Args[2:])
	case "logout":
		err = runLogout()
	case "me":
		err = runMe(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: kamctl <login|logout|me|health> [flags]")
	fmt.Fprintln(os.Stderr, "  KAMPUS_API_URL overrides the API base URL (default "+client.DefaultBaseURL+")")
}

// printNavigator reports where the dashboard would go after login.
type printNavigator struct{}

func (printNavigator) Navigate(path string) error {
	fmt.Printf("logged in, dashboard at %s\n", path)
	return nil
}

func sessionStore() (*client.FileSessionStore, error) {
	path, err := client.DefaultSessionPath()
	if err != nil {
		return nil, err
	}
	return client.NewFileSessionStore(path), nil
}

func runLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	creds := client.Credentials{Email: strings.TrimSpace(*email)}
	reader := bufio.NewReader(os.Stdin)
	if creds.Email == "" {
		fmt.Print("email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		creds.Email = strings.TrimSpace(line)
	}

	fmt.Print("password: ")
	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return err
		}
		creds.Password = string(raw)
	} else {
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		creds.Password = strings.TrimRight(line, "\r\n")
	}

	if err := creds.Validate(); err != nil {
		return err
	}

	store, err := sessionStore()
	if err != nil {
		return err
	}

	flow := client.NewLoginFlow(client.New(client.BaseURLFromEnv()), store, printNavigator{})
	if err := flow.Submit(ctx, creds); err != nil {
		_, message := flow.State()
		if message != "" {
			return errors.New(message)
		}
		return err
	}
	return nil
}

func runLogout() error {
	store, err := sessionStore()
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Println("session cleared")
	return nil
}

func runMe(ctx context.Context) error {
	store, err := sessionStore()
	if err != nil {
		return err
	}
	token, ok, err := store.GetItem("token")
	if err != nil {
		return err
	}
	if !ok || token == "" {
		return errors.New("not logged in, run: kamctl login")
	}

	me, err := client.New(client.BaseURLFromEnv()).Me(ctx, token)
	if err != nil {
		return err
	}
	fmt.Println(string(me))
	return nil
}

func runHealth(ctx context.Context) error {
	status, err := client.New(client.BaseURLFromEnv()).Health(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("status=%s database=%s users=%d\n", status.Status, status.Database, status.UserCount)
	return nil
}
