package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	apiclient "github.com/splax/tasktrack/pkg/api/client"
)

type cliConfig struct {
	APIBaseURL   string `json:"api_base_url"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "register":
		err = commandRegister(args)
	case "login":
		err = commandLogin(args)
	case "logout":
		err = commandLogout(args)
	case "whoami":
		err = commandWhoami(args)
	case "list":
		err = commandList(args)
	case "add":
		err = commandAdd(args)
	case "done":
		err = commandDone(args)
	case "edit":
		err = commandEdit(args)
	case "rm":
		err = commandRemove(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default http://localhost:4000)")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	secret, err := resolvePassword(*password)
	if err != nil {
		return err
	}

	cfg, client, err := clientFromConfig(*apiBase)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	resp, err := client.Register(ctx, *name, *email, secret)
	if err != nil {
		return err
	}
	cfg.AccessToken = resp.AccessToken
	cfg.RefreshToken = resp.RefreshToken
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("registered as %s <%s>\n", resp.User.Name, resp.User.Email)
	return nil
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default http://localhost:4000)")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	secret, err := resolvePassword(*password)
	if err != nil {
		return err
	}

	cfg, client, err := clientFromConfig(*apiBase)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	resp, err := client.Login(ctx, *email, secret)
	if err != nil {
		return err
	}
	cfg.AccessToken = resp.AccessToken
	cfg.RefreshToken = resp.RefreshToken
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("logged in as %s <%s>\n", resp.User.Name, resp.User.Email)
	return nil
}

func commandLogout(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	fs.Parse(args)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.AccessToken = ""
	cfg.RefreshToken = ""
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func commandWhoami(args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ExitOnError)
	fs.Parse(args)

	_, client, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	user, err := client.Me(ctx)
	if err != nil {
		return describeAuthError(err)
	}
	fmt.Printf("%s <%s>\n", user.Name, user.Email)
	return nil
}

func commandList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	all := fs.Bool("all", false, "Include completed tasks")
	fs.Parse(args)

	_, client, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	tasks, err := client.ListTasks(ctx)
	if err != nil {
		return describeAuthError(err)
	}
	shown := 0
	for _, t := range tasks {
		if t.Completed && !*all {
			continue
		}
		marker := " "
		if t.Completed {
			marker = "x"
		}
		fmt.Printf("[%s] %s  %s\n", marker, t.ID, t.Title)
		shown++
	}
	if shown == 0 {
		fmt.Println("no tasks")
	}
	return nil
}

func commandAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	description := fs.String("description", "", "Task description")
	fs.Parse(args)

	title := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if title == "" {
		return errors.New("usage: tasks add [--description ...] <title>")
	}

	_, client, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	created, err := client.CreateTask(ctx, title, *description)
	if err != nil {
		return describeAuthError(err)
	}
	fmt.Printf("created %s  %s\n", created.ID, created.Title)
	return nil
}

func commandDone(args []string) error {
	fs := flag.NewFlagSet("done", flag.ExitOnError)
	undo := fs.Bool("undo", false, "Mark the task as not completed")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("usage: tasks done [--undo] <task-id>")
	}

	_, client, err := authedClient()
	if err != nil {
		return err
	}
	completed := !*undo
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	updated, err := client.UpdateTask(ctx, fs.Arg(0), apiclient.TaskPatch{Completed: &completed})
	if err != nil {
		return describeAuthError(err)
	}
	state := "open"
	if updated.Completed {
		state = "done"
	}
	fmt.Printf("%s  %s (%s)\n", updated.ID, updated.Title, state)
	return nil
}

func commandEdit(args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	title := fs.String("title", "", "New title")
	description := fs.String("description", "", "New description")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("usage: tasks edit [--title ...] [--description ...] <task-id>")
	}
	patch := apiclient.TaskPatch{}
	if *title != "" {
		patch.Title = title
	}
	if *description != "" {
		patch.Description = description
	}
	if patch.Title == nil && patch.Description == nil {
		return errors.New("nothing to change: pass --title or --description")
	}

	_, client, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	updated, err := client.UpdateTask(ctx, fs.Arg(0), patch)
	if err != nil {
		return describeAuthError(err)
	}
	fmt.Printf("updated %s  %s\n", updated.ID, updated.Title)
	return nil
}

func commandRemove(args []string) error {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("usage: tasks rm <task-id>")
	}

	_, client, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := client.DeleteTask(ctx, fs.Arg(0)); err != nil {
		return describeAuthError(err)
	}
	fmt.Println("deleted")
	return nil
}

func resolvePassword(flagValue string) (string, error) {
	secret := strings.TrimSpace(flagValue)
	if secret != "" {
		return secret, nil
	}
	fmt.Print("Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Print("\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

func clientFromConfig(apiBase string) (cliConfig, *apiclient.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cliConfig{}, nil, err
	}
	if strings.TrimSpace(apiBase) != "" {
		cfg.APIBaseURL = apiBase
	}
	client, err := apiclient.New(cfg.APIBaseURL, apiclient.WithToken(cfg.AccessToken))
	if err != nil {
		return cliConfig{}, nil, err
	}
	return cfg, client, nil
}

func authedClient() (cliConfig, *apiclient.Client, error) {
	cfg, client, err := clientFromConfig("")
	if err != nil {
		return cliConfig{}, nil, err
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return cliConfig{}, nil, errors.New("not logged in: run `tasks login` first")
	}
	return cfg, client, nil
}

// describeAuthError clears stored tokens when the API rejects them, so the
// next command prompts for a fresh login instead of retrying a dead token.
func describeAuthError(err error) error {
	var apiErr apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		if cfg, loadErr := loadConfig(); loadErr == nil {
			cfg.AccessToken = ""
			cfg.RefreshToken = ""
			_ = saveConfig(cfg)
		}
		return fmt.Errorf("session expired: %w", err)
	}
	return err
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{APIBaseURL: "http://localhost:4000"}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:4000"
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "tasktrack", "config.json"), nil
}

func printUsage() {
	fmt.Println(`tasks - tasktrack command line client

Usage:
  tasks register --email <email> [--name <name>] [--password <pw>] [--api <url>]
  tasks login --email <email> [--password <pw>] [--api <url>]
  tasks logout
  tasks whoami
  tasks list [--all]
  tasks add [--description <text>] <title>
  tasks done [--undo] <task-id>
  tasks edit [--title <text>] [--description <text>] <task-id>
  tasks rm <task-id>
  tasks version`)
}

func printVersion() {
	fmt.Printf("tasks %s\n", buildVersion)
}
