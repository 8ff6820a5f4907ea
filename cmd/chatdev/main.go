package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/andrejr971/chat/internal/api"
	"github.com/andrejr971/chat/internal/app"
	"github.com/andrejr971/chat/internal/bus"
	"github.com/andrejr971/chat/internal/config"
	"github.com/andrejr971/chat/internal/lock"
	"github.com/andrejr971/chat/internal/logging"
	"github.com/andrejr971/chat/internal/profile"
	"github.com/andrejr971/chat/internal/store"
	intsync "github.com/andrejr971/chat/internal/sync"
	"github.com/andrejr971/chat/internal/tui"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// env is the resolved profile of one invocation.
type env struct {
	name string
	// stored is profile.toml as written on disk; effective has the
	// environment overrides applied.
	stored    *config.Profile
	effective *config.Profile
	jsonOut   bool
	debug     bool
}

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	debugFlag := flag.Bool("debug", false, "debug logging")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	e, err := resolve(*profileFlag)
	if err != nil {
		fatal(err)
	}
	e.jsonOut = *jsonFlag
	e.debug = *debugFlag

	ctx, cancel := context.WithTimeout(context.Background(), e.effective.DialTimeout.Duration+5*time.Second)
	defer cancel()

	switch args[0] {
	case "register":
		err = cmdRegister(ctx, e, arg(args, 1, "register <username>"))
	case "chats":
		err = cmdChats(ctx, e, len(args) > 1 && args[1] == "--all")
	case "create":
		err = cmdCreate(ctx, e, arg(args, 1, "create <name>"))
	case "join":
		err = cmdJoin(ctx, e, arg(args, 1, "join <chat-id>"))
	case "members":
		err = cmdMembers(ctx, e, arg(args, 1, "members <chat-id>"))
	case "search":
		err = cmdSearch(e, arg(args, 1, "search <text>"))
	case "status":
		err = cmdStatus(e)
	case "open":
		chatID := ""
		if len(args) > 1 {
			chatID = args[1]
		}
		err = cmdOpen(e, chatID)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fatal(err)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: chatdev [--profile <name>] [--json] [--debug] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  register <username>   Create a user and store it in the profile")
	fmt.Fprintln(os.Stderr, "  chats [--all]         List my chats (or every chat)")
	fmt.Fprintln(os.Stderr, "  create <name>         Create a chat")
	fmt.Fprintln(os.Stderr, "  join <chat-id>        Join a chat")
	fmt.Fprintln(os.Stderr, "  members <chat-id>     List the members of a chat")
	fmt.Fprintln(os.Stderr, "  search <text>         Search cached messages")
	fmt.Fprintln(os.Stderr, "  status                Show profile and cache status")
	fmt.Fprintln(os.Stderr, "  open [chat-id]        Start the terminal UI")
}

func arg(args []string, i int, usage string) string {
	if len(args) <= i || args[i] == "" {
		fmt.Fprintln(os.Stderr, "usage: chatdev "+usage)
		os.Exit(1)
	}
	return args[i]
}

func fatal(err error) {
	var held *lock.HeldError
	if errors.As(err, &held) {
		fmt.Fprintf(os.Stderr, "error: profile is in use by another chatdev (pid %d)\n", held.PID)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func resolve(flagName string) (*env, error) {
	name := profile.Resolve(flagName)
	if err := profile.ValidateName(name); err != nil {
		return nil, err
	}
	if err := config.LoadDotenv(profile.EnvPath(name), ".env"); err != nil {
		return nil, err
	}
	stored, err := config.LoadProfile(profile.ConfigPath(name))
	if err != nil {
		return nil, err
	}
	effective := *stored
	if err := config.ApplyEnv(&effective, os.Getenv); err != nil {
		return nil, err
	}
	if err := effective.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", name, err)
	}
	return &env{name: name, stored: stored, effective: &effective}, nil
}

func (e *env) client() *api.Client {
	return api.NewClient(e.effective.APIURL, e.effective.DialTimeout.Duration)
}

func (e *env) requireUser() error {
	if !e.effective.Registered() {
		return fmt.Errorf("profile %s has no user; run: chatdev register <username>", e.name)
	}
	return nil
}

func cmdRegister(ctx context.Context, e *env, username string) error {
	u, err := e.client().CreateUser(ctx, username)
	if err != nil {
		return err
	}
	if err := profile.EnsureDir(e.name); err != nil {
		return err
	}
	e.stored.UserID = u.ID
	e.stored.Username = u.Username
	if err := config.SaveProfile(profile.ConfigPath(e.name), e.stored); err != nil {
		return err
	}
	if e.jsonOut {
		outputJSON(u)
		return nil
	}
	fmt.Printf("Registered %s (%s) in profile %s\n", u.Username, u.ID, e.name)
	return nil
}

func cmdChats(ctx context.Context, e *env, all bool) error {
	var (
		chats []api.Chat
		err   error
	)
	if all {
		chats, err = e.client().ListChats(ctx)
	} else {
		if err := e.requireUser(); err != nil {
			return err
		}
		chats, err = e.client().ListMyChats(ctx, e.effective.UserID)
	}
	if err != nil {
		return err
	}
	if e.jsonOut {
		outputJSON(chats)
		return nil
	}
	if len(chats) == 0 {
		fmt.Println("No chats found.")
		return nil
	}
	for _, c := range chats {
		fmt.Printf("%-38s %-30s %d members\n", c.ID, c.Name, c.TotalMembers)
	}
	return nil
}

func cmdCreate(ctx context.Context, e *env, name string) error {
	if err := e.requireUser(); err != nil {
		return err
	}
	c, err := e.client().CreateChat(ctx, name, e.effective.UserID)
	if err != nil {
		return err
	}
	if e.jsonOut {
		outputJSON(c)
		return nil
	}
	fmt.Printf("Created %s (%s)\n", c.Name, c.ID)
	return nil
}

func cmdJoin(ctx context.Context, e *env, chatID string) error {
	if err := e.requireUser(); err != nil {
		return err
	}
	if err := e.client().JoinChat(ctx, chatID, e.effective.UserID); err != nil {
		return err
	}
	fmt.Printf("Joined %s\n", chatID)
	return nil
}

func cmdMembers(ctx context.Context, e *env, chatID string) error {
	users, err := e.client().ListMembers(ctx, chatID)
	if err != nil {
		return err
	}
	if e.jsonOut {
		outputJSON(users)
		return nil
	}
	for _, u := range users {
		fmt.Printf("%-38s %s\n", u.ID, u.Username)
	}
	return nil
}

func openStore(e *env) (*store.DB, error) {
	if err := profile.EnsureDir(e.name); err != nil {
		return nil, err
	}
	db, _, err := store.OpenMigrated(profile.DBPath(e.name))
	return db, err
}

func cmdSearch(e *env, query string) error {
	db, err := openStore(e)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	results, err := db.SearchMessages(query, "", 50)
	if err != nil {
		return err
	}
	if e.jsonOut {
		outputJSON(results)
		return nil
	}
	if len(results) == 0 {
		fmt.Println("No messages found.")
		return nil
	}
	for _, r := range results {
		ts := time.UnixMilli(r.CreatedAt).Format("2006-01-02 15:04")
		fmt.Printf("%s  %-12s %-16s %s\n", ts, r.ChatID, r.SenderName, r.Content)
	}
	return nil
}

func cmdStatus(e *env) error {
	db, err := openStore(e)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	chats, err := db.ChatCount()
	if err != nil {
		return err
	}
	msgs, err := db.MessageCount()
	if err != nil {
		return err
	}

	running := "stopped"
	if l, err := lock.Acquire(profile.Dir(e.name)); err != nil {
		running = "running"
	} else {
		_ = l.Release()
	}

	st := struct {
		Profile  string `json:"profile"`
		UserID   string `json:"user_id"`
		Username string `json:"username"`
		WSURL    string `json:"ws_url"`
		APIURL   string `json:"api_url"`
		Chats    int64  `json:"chats"`
		Messages int64  `json:"messages"`
		Client   string `json:"client"`
	}{e.name, e.effective.UserID, e.effective.Username, e.effective.WSURL, e.effective.APIURL, chats, msgs, running}

	if e.jsonOut {
		outputJSON(st)
		return nil
	}
	fmt.Printf("Profile:  %s (%s)\n", st.Profile, st.Client)
	fmt.Printf("User:     %s %s\n", st.Username, st.UserID)
	fmt.Printf("Server:   %s | %s\n", st.APIURL, st.WSURL)
	fmt.Printf("Cache:    %d chats, %d messages\n", st.Chats, st.Messages)
	return nil
}

func cmdOpen(e *env, chatID string) error {
	if err := e.requireUser(); err != nil {
		return err
	}

	var (
		engine *intsync.Engine
		db     *store.DB
		client *api.Client
		b      *bus.Bus
		logger *zap.Logger
	)
	fxApp := fx.New(
		app.Module(app.Params{
			ProfileName: e.name,
			Profile:     e.effective,
			Log:         logging.Options{Debug: e.debug},
		}),
		app.WithLogger(),
		fx.Populate(&engine, &db, &client, &b, &logger),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()
	if err := fxApp.Start(startCtx); err != nil {
		return err
	}

	runErr := tui.NewApp(tui.Deps{
		Engine:    engine,
		Store:     db,
		Directory: client,
		Bus:       b,
		Logger:    logger,
		Profile:   e.name,
		Server:    e.effective.APIURL,
		Self:      e.effective.Identity(),
		OpenChat:  chatID,
	}).Run()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelStop()
	if err := fxApp.Stop(stopCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
