/*
Package main is the entry point for the Mímico terminal client.

It is responsible for loading configuration, initializing the global logging
system, restoring a persisted session (or signing in with the provided
credentials), opening the realtime connection, and running the interactive
command loop until an interrupt signal or /quit.
*/
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"mimico/internal/app/api"
	"mimico/internal/app/realtime"
	"mimico/internal/app/session"
	"mimico/internal/app/storage"
	"mimico/internal/configs"
	"mimico/internal/pkg/logx"
)

func main() {
	email := pflag.String("email", "", "account email for sign in")
	password := pflag.String("password", "", "account password for sign in")
	register := pflag.Bool("register", false, "create the account before signing in")
	nickname := pflag.String("nickname", "", "display name when registering")
	pflag.Parse()

	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Str("api_base_url", cfg.APIBaseURL).
		Str("ws_url", cfg.WSURL).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := storage.OpenTokenStore(cfg.TokenDBPath)
	if err != nil {
		logx.Fatal(err, "Failed to open token store")
	}
	defer tokens.Close()

	apiClient := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout)
	broker := realtime.NewConn(cfg.WSURL)
	store := session.NewStore(apiClient, broker, tokens, cfg.ChatSendRate, cfg.ChatSendBurst)

	store.SetMatchStartedHandler(func(tableID string) {
		fmt.Printf("\n*** The match at table %s has started! ***\n", tableID)
	})

	if err := signIn(ctx, store, *email, *password, *register, *nickname); err != nil {
		logx.Fatal(err, "Sign in failed")
	}

	current, _ := store.CurrentUser()
	fmt.Printf("Signed in as %s. Type /help for commands.\n", current.Nickname)

	if err := store.ConnectRealtime(); err != nil {
		logx.Fatal(err, "Failed to open realtime connection")
	}
	defer store.DisconnectRealtime()

	go expireInvites(ctx, store)

	runCommandLoop(ctx, stop, store)

	logx.Info("Client stopped.")
}

// signIn restores the persisted session when possible, otherwise uses the
// provided credentials, registering first when asked.
func signIn(ctx context.Context, store *session.Store, email, password string, register bool, nickname string) error {
	restored, err := store.RestoreAuth(ctx)
	if err != nil {
		return err
	}
	if restored {
		return nil
	}

	if email == "" || password == "" {
		return fmt.Errorf("no stored session: provide --email and --password")
	}

	if register {
		if nickname == "" {
			return fmt.Errorf("--register requires --nickname")
		}
		return store.Register(ctx, nickname, email, password)
	}

	return store.Login(ctx, email, password)
}

// expireInvites dismisses the pending invite once its deadline passes,
// declining it so the host's slot frees up.
func expireInvites(ctx context.Context, store *session.Store) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if store.InviteExpired(now) {
				invite := store.PendingInvite()
				if invite != nil {
					fmt.Printf("\nInvite to %q expired.\n", invite.TableName)
				}
				if err := store.RejectInvite(); err != nil {
					logx.Warn("Failed to decline expired invite.", "error", err.Error())
				}
			}
		}
	}
}

// runCommandLoop reads commands from stdin until EOF, /quit, or the context
// is cancelled. Lines without a leading slash are sent as lobby chat.
func runCommandLoop(ctx context.Context, stop context.CancelFunc, store *session.Store) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !handleLine(ctx, stop, store, strings.TrimSpace(line)) {
				return
			}
		}
	}
}

// handleLine executes one command. It returns false when the loop should end.
func handleLine(ctx context.Context, stop context.CancelFunc, store *session.Store, line string) bool {
	if line == "" {
		return true
	}

	if lastErr := store.LastError(); lastErr != nil {
		fmt.Printf("! %s\n", lastErr.Message)
		store.ClearLastError()
	}

	if !strings.HasPrefix(line, "/") {
		if err := store.SendChatMessage(line); err != nil {
			fmt.Printf("! %v\n", err)
		}
		return true
	}

	fields := strings.Fields(line)
	command, args := fields[0], fields[1:]

	var err error
	switch command {
	case "/help":
		printHelp()

	case "/users":
		for _, u := range store.OnlineUsers() {
			fmt.Printf("  %s (%s)\n", u.Nickname, u.ID)
		}

	case "/chat":
		for _, m := range store.ChatMessages() {
			fmt.Printf("  [%s] %s: %s\n", m.Timestamp.Format("15:04"), m.UserName, m.Message)
		}

	case "/table":
		if len(args) == 0 {
			err = fmt.Errorf("usage: /table <name> [user ids to invite]")
			break
		}
		err = store.CreateTable(ctx, args[0], args[1:])

	case "/accept":
		err = store.AcceptInvite()

	case "/reject":
		err = store.RejectInvite()

	case "/ready":
		err = store.ToggleReady()
		if err == nil && store.AllReady() {
			fmt.Println("Everyone is ready. Waiting for the server to start the match.")
		}

	case "/tmsg":
		err = store.SendTableChatMessage(strings.Join(args, " "))

	case "/leave":
		err = store.LeaveTable()

	case "/abandon":
		err = store.AbandonMatch()

	case "/logout":
		store.Logout()
		fmt.Println("Signed out.")
		stop()
		return false

	case "/quit":
		stop()
		return false

	default:
		err = fmt.Errorf("unknown command %s (try /help)", command)
	}

	if err != nil {
		fmt.Printf("! %v\n", err)
	}
	return true
}

func printHelp() {
	fmt.Print(`Commands:
  <text>                 send a lobby chat message
  /users                 list online players
  /chat                  show lobby chat history
  /table <name> [ids]    create a table and invite players
  /accept                accept the pending invite
  /reject                decline the pending invite
  /ready                 toggle ready at the current table
  /tmsg <text>           send a table chat message
  /leave                 leave the current table
  /abandon               abandon a running match
  /logout                sign out and quit
  /quit                  quit
`)
}
