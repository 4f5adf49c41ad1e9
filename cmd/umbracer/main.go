/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/umbtools/umb-racebot/internal"
	"github.com/umbtools/umb-racebot/race"
	"github.com/umbtools/umb-racebot/umb"
)

//go:embed help.txt
var helpText string

// defaultZone is where the endpoint's local opening clock lives.
const defaultZone = "Europe/Paris"

// cmdHandler defines the signature for command handler functions.
type cmdHandler func(ctx context.Context, args []string)

// commands maps command names to their respective handler functions.
var commands = map[string]cmdHandler{
	"help":    handleHelp,
	"catalog": handleCatalog,
	"target":  handleTarget,
	"race":    handleRace,
	"multi":   handleMulti,
	"config":  handleConfig,
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if handler, ok := commands[cmd]; ok {
		handler(ctx, os.Args[2:])
	} else {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Printf("%v", helpText)
}

func handleHelp(ctx context.Context, args []string) {
	usage()
}

func handleCatalog(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("catalog", flag.ExitOnError)
	file := fs.String("file", "", "Load a tournaments.json dump instead of fetching")
	all := fs.Bool("all", false, "List every catalog entry, not just World Cups")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	var entries []umb.CatalogEntry
	var err error
	if *file != "" {
		entries, err = umb.LoadCatalog(*file)
	} else {
		client := internal.NewCachedHTTPClient(ctx, 6*time.Hour,
			envOr("UMB_WEBCACHE_BUCKET", internal.WebCacheBucket))
		entries, err = umb.FetchCatalog(ctx, client, os.Getenv("UMB_BASE_URL"))
	}
	if err != nil {
		log.Fatalf("Error fetching catalog: %v", err)
	}

	if !*all {
		entries = umb.WorldCups(entries, time.Now())
	}
	if len(entries) == 0 {
		fmt.Println("No upcoming tournaments found.")
		return
	}

	pol := race.DefaultPolicy()
	zone := mustZone(defaultZone)
	for _, e := range entries {
		fmt.Printf("ID %3d: %s\n", e.ID, e.Tournament)
		if !e.StartsOn.IsZero() {
			fmt.Printf("        starts %s\n", e.StartsOn.Format("2006-01-02"))
			if tgt, err := race.ComputeTarget(e.Schedule(zone), pol, time.Now()); err == nil {
				fmt.Printf("        registration opens %s\n",
					tgt.OpenAt.Format(time.RFC3339))
			}
		}
		if e.Place != "" {
			fmt.Printf("        %s\n", e.Place)
		}
	}
	fmt.Printf("\nTotal: %d tournament(s)\n", len(entries))
	fmt.Printf("Run '%s race --tourid <ID> --start <date>' to race one\n",
		os.Args[0])
}

func handleTarget(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("target", flag.ExitOnError)
	start := fs.String("start", "", "Tournament start date (e.g. 01-May-2025)")
	zoneName := fs.String("zone", defaultZone, "Endpoint time zone")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *start == "" {
		fmt.Fprintln(os.Stderr, "Please provide a valid --start date.")
		fs.Usage()
		os.Exit(1)
	}

	zone := mustZone(*zoneName)
	startDate, err := internal.ParseDateInZone(*start, zone)
	if err != nil || startDate.IsZero() {
		log.Fatalf("Error parsing start date %q: %v", *start, err)
	}

	sched := umb.TournamentSchedule{StartDate: startDate, Zone: zone}
	tgt, err := race.ComputeTarget(sched, race.DefaultPolicy(), time.Now())
	if err != nil {
		log.Fatalf("Error computing target: %v", err)
	}

	fmt.Printf("Tournament start:    %s\n", startDate.Format("2006-01-02"))
	fmt.Printf("Registration opens:  %s\n", tgt.OpenAt.Format(time.RFC3339))
	fmt.Printf("Monitoring from:     %s\n", tgt.MonitorFrom.Format(time.RFC3339))
	if tgt.Warning != "" {
		fmt.Printf("Warning: %s\n", tgt.Warning)
	}
}

func handleRace(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("race", flag.ExitOnError)
	tourID := fs.Int("tourid", 0, "Tournament ID to register for")
	start := fs.String("start", "", "Tournament start date (e.g. 01-May-2025)")
	zoneName := fs.String("zone", defaultZone, "Endpoint time zone")
	playerFile := fs.String("player", "config/player.json", "Player profile file")
	strategyName := fs.String("strategy", "fasthttp", "Submission strategy: fasthttp or browser")
	dryRun := fs.Bool("dry-run", false, "Validate inputs and show the target without racing")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *tourID <= 0 {
		fmt.Fprintln(os.Stderr, "Please provide a valid --tourid ID.")
		fs.Usage()
		os.Exit(1)
	}

	kind, err := race.ParseKind(*strategyName)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	profile, err := umb.LoadProfile(*playerFile)
	if err != nil {
		log.Fatalf("Error loading player profile: %v", err)
	}

	sched, tgt := buildTarget(*tourID, *start, *zoneName)
	if *dryRun {
		fmt.Printf("Player:              %s (%s)\n", profile.DisplayName(), kind)
		fmt.Printf("Registration URL:    %s\n",
			sched.RegistrationURL(os.Getenv("UMB_BASE_URL")))
		fmt.Printf("Registration opens:  %s\n", tgt.OpenAt.Format(time.RFC3339))
		fmt.Printf("Monitoring from:     %s\n", tgt.MonitorFrom.Format(time.RFC3339))
		return
	}
	outcomes := runRace(ctx, sched, tgt,
		[]race.Participant{{Profile: profile, Kind: kind}})
	os.Exit(printOutcomes(sched.Name, outcomes))
}

// multiConfig is the on-disk shape of a coordinated multi-player race.
type multiConfig struct {
	TournamentID   int    `json:"tournament_id"`
	TournamentName string `json:"tournament_name"`
	StartDate      string `json:"start_date"`
	Zone           string `json:"zone"`
	Players        []struct {
		Name       string `json:"name"`
		ConfigFile string `json:"config_file"`
		BotType    string `json:"bot_type"`
	} `json:"players"`
}

func handleMulti(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("multi", flag.ExitOnError)
	configFile := fs.String("config", "", "Multi-player race configuration file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *configFile == "" {
		fmt.Fprintln(os.Stderr, "Please provide a valid --config file.")
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := loadMultiConfig(*configFile)
	if err != nil {
		log.Fatalf("Error loading multi config: %v", err)
	}

	// validate every profile before any race starts
	participants := make([]race.Participant, 0, len(cfg.Players))
	for _, pl := range cfg.Players {
		profile, err := umb.LoadProfile(pl.ConfigFile)
		if err != nil {
			log.Fatalf("Error loading profile for %s: %v", pl.Name, err)
		}
		kind := race.KindFastHTTP
		if pl.BotType != "" {
			if kind, err = race.ParseKind(pl.BotType); err != nil {
				log.Fatalf("Error for player %s: %v", pl.Name, err)
			}
		}
		participants = append(participants,
			race.Participant{Profile: profile, Kind: kind})
	}
	if len(participants) == 0 {
		log.Fatalf("Error: no players configured in %s", *configFile)
	}

	zoneName := cfg.Zone
	if zoneName == "" {
		zoneName = defaultZone
	}
	sched, tgt := buildTarget(cfg.TournamentID, cfg.StartDate, zoneName)
	sched.Name = cfg.TournamentName

	outcomes := runRace(ctx, sched, tgt, participants)
	code := printOutcomes(sched.Name, outcomes)
	reportOutcomes(sched, outcomes)
	os.Exit(code)
}

func handleConfig(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	playerFile := fs.String("player", "config/player.json", "Player profile file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	profile, err := umb.LoadProfile(*playerFile)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	fmt.Printf("Player profile: %s\n", *playerFile)
	fields := []struct{ label, value string }{
		{"Federation", profile.Federation},
		{"Last name", profile.LastName},
		{"First name", profile.FirstName},
		{"Player ID", profile.PlayerID},
		{"Nationality", profile.Nationality},
		{"Date of birth", profile.DateOfBirth},
		{"Country", profile.Country},
		{"Email", profile.Email},
	}
	for _, f := range fields {
		mark := "ok"
		if f.value == "" {
			mark = "--"
		}
		fmt.Printf("  [%s] %-14s %s\n", mark, f.label+":", f.value)
	}
}
