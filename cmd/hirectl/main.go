package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"spothire/internal/client"
	"spothire/internal/client/offline"
	"spothire/internal/common"
	"spothire/internal/logging"
	"spothire/internal/model"
)

const usage = `usage: hirectl [-server URL] [-db PATH] <command> [args]

commands:
  sessions [--active]               list QR sessions
  start <employerId>                start a QR session
  stop <id>                         stop a QR session
  register <code> <name> [role]     register a walk-in candidate
  search [--role R] [--area A] [--education E]
  feed                              show the daily feed
  status <id> <status> [note]       update a candidate status
  flush                             replay queued status updates
`

func main() {
	_ = godotenv.Load()

	server := flag.String("server", envOr("HIRECTL_SERVER", "http://localhost:8080/api"), "API base URL")
	dbPath := flag.String("db", envOr("HIRECTL_DB", defaultDBPath()), "offline state database")
	verbose := flag.Bool("v", false, "log fallbacks to stderr")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := offline.Open(ctx, *dbPath)
	if err != nil {
		color.Red("Failed to open offline store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	var log logging.Logger = logging.Nop()
	if *verbose {
		log = logging.New(os.Stderr, "debug", "text")
	}
	svc := client.NewService(client.NewAPI(*server, nil), store, log)

	if err := run(ctx, svc, flag.Arg(0), flag.Args()[1:]); err != nil {
		var apiErr *client.APIError
		switch {
		case errors.As(err, &apiErr):
			color.Red("Server: %s", apiErr.Message)
		case errors.Is(err, errUsage):
			flag.Usage()
			os.Exit(2)
		default:
			color.Red("Error: %s", common.Message(err, err.Error()))
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

func run(ctx context.Context, svc *client.Service, cmd string, args []string) error {
	switch cmd {
	case "sessions":
		fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
		active := fs.Bool("active", false, "only active sessions")
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		list, origin, err := svc.ListSessions(ctx, *active)
		if err != nil {
			return err
		}
		printOrigin(origin)
		printSessions(list)

	case "start":
		if len(args) != 1 {
			return errUsage
		}
		s, origin, err := svc.StartSession(ctx, args[0])
		if err != nil {
			return err
		}
		printOrigin(origin)
		color.Green("Session %s started, code %s", s.ID, color.New(color.Bold).Sprint(s.Code))

	case "stop":
		if len(args) != 1 {
			return errUsage
		}
		s, origin, err := svc.StopSession(ctx, args[0])
		if err != nil {
			return err
		}
		printOrigin(origin)
		color.Green("Session %s stopped", s.ID)

	case "register":
		if len(args) < 2 || len(args) > 3 {
			return errUsage
		}
		reg := client.Registration{Code: args[0], Name: args[1]}
		if len(args) == 3 {
			reg.Role = args[2]
		}
		c, origin, err := svc.Register(ctx, reg)
		if err != nil {
			return err
		}
		printOrigin(origin)
		if c.ID != "" {
			color.Green("Registered %s (%s)", c.Name, c.ID)
		} else {
			color.Green("Registered %s", c.Name)
		}

	case "search":
		fs := flag.NewFlagSet("search", flag.ContinueOnError)
		var f client.SearchFilter
		fs.StringVar(&f.Role, "role", "", "role")
		fs.StringVar(&f.Area, "area", "", "area")
		fs.StringVar(&f.Education, "education", "", "education")
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		results, origin, err := svc.Search(ctx, f)
		if err != nil {
			return err
		}
		printOrigin(origin)
		printCandidates("Candidates", results)

	case "feed":
		snap, origin, err := svc.Feed(ctx)
		if err != nil {
			return err
		}
		printOrigin(origin)
		printCandidates("Nearby", snap.Nearby)
		printCandidates("Active today", snap.ActiveToday)
		printCandidates("Recent applicants", snap.RecentApplicants)

	case "status":
		if len(args) < 2 || len(args) > 3 {
			return errUsage
		}
		var note *string
		if len(args) == 3 {
			note = &args[2]
		}
		c, origin, err := svc.UpdateStatus(ctx, args[0], args[1], note)
		if err != nil {
			return err
		}
		if c == nil {
			n, _ := svc.PendingStatusCount(ctx)
			color.Yellow("Server unreachable, update queued (%d pending). Run 'hirectl flush' later.", n)
			return nil
		}
		printOrigin(origin)
		color.Green("Candidate %s is now %s", c.ID, c.Status)

	case "flush":
		res, err := svc.Flush(ctx)
		if err != nil {
			return err
		}
		color.Cyan("Sent %d, requeued %d, dropped %d", res.Sent, res.Requeued, res.Dropped)

	default:
		return errUsage
	}
	return nil
}

func printOrigin(origin client.Origin) {
	switch origin {
	case client.OriginCache:
		color.Yellow("Server unreachable, showing cached data")
	case client.OriginLocal:
		color.Yellow("Server unreachable, using local state")
	}
}

func printSessions(list []client.SessionSummary) {
	color.Yellow("\nQR Sessions")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Code", "Active", "Created"})
	for _, s := range list {
		created := ""
		if !s.CreatedAt.IsZero() {
			created = s.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		table.Append([]string{s.ID, s.Code, strconv.FormatBool(s.Active), created})
	}
	table.Render()
}

func printCandidates(title string, list []model.Candidate) {
	color.Yellow("\n%s", title)
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Role", "Area", "Education", "Status"})
	for _, c := range list {
		table.Append([]string{c.ID, c.Name, c.Role, c.Area, c.Education, strings.ReplaceAll(string(c.Status), "_", " ")})
	}
	table.Render()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "hirectl.db"
	}
	dir = filepath.Join(dir, "hirectl")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "hirectl.db"
	}
	return filepath.Join(dir, "offline.db")
}
