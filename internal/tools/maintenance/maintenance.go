package maintenance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas"
	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas/event"
	"github.com/louisbranch/pixelfield/internal/services/canvas/storage"
	"github.com/louisbranch/pixelfield/internal/services/canvas/storage/sqlite"
)

const maintenanceReplayPageSize = 200

// Config holds maintenance command configuration.
type Config struct {
	DBPath      string        `env:"PIXELFIELD_CANVAS_DB_PATH"`
	Timeout     time.Duration `env:"PIXELFIELD_MAINTENANCE_TIMEOUT" envDefault:"10m"`
	Verify      bool
	Replay      bool
	WarningsCap int
	JSONOutput  bool
}

type envConfig struct {
	DBPath  string        `env:"PIXELFIELD_CANVAS_DB_PATH"`
	Timeout time.Duration `env:"PIXELFIELD_MAINTENANCE_TIMEOUT" envDefault:"10m"`
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var envCfg envConfig
	if err := env.Parse(&envCfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := Config{
		DBPath:      envCfg.DBPath,
		Timeout:     envCfg.Timeout,
		WarningsCap: 25,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "canvas.db")
	}

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to canvas sqlite database (default: PIXELFIELD_CANVAS_DB_PATH or data/canvas.db)")
	fs.BoolVar(&cfg.Verify, "verify", false, "verify every journal entry hash and chain link")
	fs.BoolVar(&cfg.Replay, "replay", false, "replay the journal into scratch state and compare against the stored state")
	fs.IntVar(&cfg.WarningsCap, "warnings-cap", cfg.WarningsCap, "max warnings to print (0 = no limit)")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output a JSON report")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the maintenance command. Without -verify or -replay it
// runs both checks.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	if cfg.WarningsCap < 0 {
		return errors.New("-warnings-cap must be >= 0")
	}

	store, err := openLedgerStore(cfg.DBPath)
	if err != nil {
		return err
	}

	return runWithDeps(ctx, cfg, store, out, errOut)
}

// runWithDeps contains the core maintenance logic with an injectable
// store. It owns the store lifecycle (closing it on return).
func runWithDeps(ctx context.Context, cfg Config, store storage.LedgerStore, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(errOut, "Error: close canvas store: %v\n", err)
		}
	}()

	if !cfg.Verify && !cfg.Replay {
		cfg.Verify = true
		cfg.Replay = true
	}

	options := runOptions{
		Verify:      cfg.Verify,
		Replay:      cfg.Replay,
		WarningsCap: cfg.WarningsCap,
		JSONOutput:  cfg.JSONOutput,
	}

	result := runCheck(ctx, store, options)
	if options.JSONOutput {
		outputJSON(out, errOut, result)
	} else {
		printResult(out, errOut, result)
	}
	if result.ExitCode != 0 {
		return errors.New("maintenance failed")
	}
	return nil
}

type ledgerCheckReport struct {
	LastSeq       uint64 `json:"last_seq"`
	Entries       int    `json:"entries"`
	ChainVerified bool   `json:"chain_verified"`
	ReplayChecked bool   `json:"replay_checked"`
	DriftCount    int    `json:"drift_count"`
}

type runOptions struct {
	Verify      bool
	Replay      bool
	WarningsCap int
	JSONOutput  bool
}

type runResult struct {
	Mode          string          `json:"mode"`
	Report        json.RawMessage `json:"report,omitempty"`
	Warnings      []string        `json:"warnings,omitempty"`
	WarningsTotal int             `json:"warnings_total,omitempty"`
	Error         string          `json:"error,omitempty"`
	ExitCode      int             `json:"-"`
}

func runCheck(ctx context.Context, store storage.LedgerStore, options runOptions) runResult {
	mode := "full"
	switch {
	case options.Verify && !options.Replay:
		mode = "verify"
	case options.Replay && !options.Verify:
		mode = "replay"
	}
	result := runResult{Mode: mode}

	persisted, err := store.LoadState(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("load ledger: %v", err)
		result.ExitCode = 1
		return result
	}
	report := ledgerCheckReport{LastSeq: persisted.State.LastEntrySeq}

	if options.Verify {
		if err := store.VerifyEntries(ctx); err != nil {
			result.Error = fmt.Sprintf("verify journal: %v", err)
			result.ExitCode = 1
			return result
		}
		report.ChainVerified = true
	}

	if options.Replay {
		entries, err := listAllEntries(ctx, store)
		if err != nil {
			result.Error = fmt.Sprintf("list journal entries: %v", err)
			result.ExitCode = 1
			return result
		}
		report.Entries = len(entries)

		replayed, err := storage.Replay(persisted.Config, entries)
		if err != nil {
			result.Error = fmt.Sprintf("replay journal: %v", err)
			result.ExitCode = 1
			return result
		}
		report.ReplayChecked = true

		drift := diffStates(persisted.State, replayed)
		report.DriftCount = len(drift)
		result.Warnings, result.WarningsTotal = capWarnings(drift, options.WarningsCap)
		if len(drift) > 0 {
			result.ExitCode = 1
		}
	}

	payload, err := json.Marshal(report)
	if err != nil {
		result.Error = fmt.Sprintf("encode report: %v", err)
		result.ExitCode = 1
		return result
	}
	result.Report = payload
	return result
}

// diffStates compares the stored ledger state against a journal replay
// and describes every field that diverges.
func diffStates(stored, replayed canvas.State) []string {
	var drift []string

	if stored.LastEntrySeq != replayed.LastEntrySeq {
		drift = append(drift, fmt.Sprintf("last entry seq: stored %d, replayed %d", stored.LastEntrySeq, replayed.LastEntrySeq))
	}
	if stored.LastChainHash != replayed.LastChainHash {
		drift = append(drift, fmt.Sprintf("last chain hash: stored %s, replayed %s", stored.LastChainHash, replayed.LastChainHash))
	}
	if stored.CooldownSeconds != replayed.CooldownSeconds {
		drift = append(drift, fmt.Sprintf("cooldown seconds: stored %d, replayed %d", stored.CooldownSeconds, replayed.CooldownSeconds))
	}
	if stored.MintPrice != replayed.MintPrice {
		drift = append(drift, fmt.Sprintf("mint price: stored %d, replayed %d", stored.MintPrice, replayed.MintPrice))
	}
	if stored.Balance != replayed.Balance {
		drift = append(drift, fmt.Sprintf("treasury balance: stored %d, replayed %d", stored.Balance, replayed.Balance))
	}

	if len(stored.Cells) != len(replayed.Cells) {
		drift = append(drift, fmt.Sprintf("cell count: stored %d, replayed %d", len(stored.Cells), len(replayed.Cells)))
	} else {
		for i := range stored.Cells {
			if stored.Cells[i] != replayed.Cells[i] {
				drift = append(drift, fmt.Sprintf("cell %d: stored %+v, replayed %+v", i, stored.Cells[i], replayed.Cells[i]))
			}
		}
	}

	if len(stored.Snapshots) != len(replayed.Snapshots) {
		drift = append(drift, fmt.Sprintf("snapshot count: stored %d, replayed %d", len(stored.Snapshots), len(replayed.Snapshots)))
	} else {
		for i := range stored.Snapshots {
			if !snapshotsEqual(stored.Snapshots[i], replayed.Snapshots[i]) {
				drift = append(drift, fmt.Sprintf("snapshot %d diverges from its journal entry", stored.Snapshots[i].ID))
			}
		}
	}

	if len(stored.Collectibles) != len(replayed.Collectibles) {
		drift = append(drift, fmt.Sprintf("collectible count: stored %d, replayed %d", len(stored.Collectibles), len(replayed.Collectibles)))
	} else {
		for i := range stored.Collectibles {
			if stored.Collectibles[i] != replayed.Collectibles[i] {
				drift = append(drift, fmt.Sprintf("collectible %d diverges from its journal entry", stored.Collectibles[i].TokenID))
			}
		}
	}

	for actor, at := range stored.Cooldowns {
		if replayed.Cooldowns[actor] != at {
			drift = append(drift, fmt.Sprintf("cooldown for %s: stored %d, replayed %d", actor, at, replayed.Cooldowns[actor]))
		}
	}
	for actor, at := range replayed.Cooldowns {
		if _, ok := stored.Cooldowns[actor]; !ok {
			drift = append(drift, fmt.Sprintf("cooldown for %s: stored none, replayed %d", actor, at))
		}
	}

	return drift
}

func snapshotsEqual(a, b canvas.Snapshot) bool {
	if !bytes.Equal(a.Payload, b.Payload) {
		return false
	}
	a.Payload, b.Payload = nil, nil
	return reflect.DeepEqual(a, b)
}

func listAllEntries(ctx context.Context, store storage.LedgerStore) ([]event.Entry, error) {
	var entries []event.Entry
	var lastSeq uint64
	for {
		page, err := store.ListEntries(ctx, lastSeq, maintenanceReplayPageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return entries, nil
		}
		entries = append(entries, page...)
		lastSeq = page[len(page)-1].Seq
		if len(page) < maintenanceReplayPageSize {
			return entries, nil
		}
	}
}

func capWarnings(warnings []string, limit int) ([]string, int) {
	total := len(warnings)
	if limit == 0 || total <= limit {
		return warnings, total
	}
	return warnings[:limit], total
}

func outputJSON(out io.Writer, errOut io.Writer, result runResult) {
	encoded, err := json.Marshal(result)
	if err != nil {
		fmt.Fprintf(errOut, "Error: encode report: %v\n", err)
		return
	}
	fmt.Fprintln(out, string(encoded))
}

func printResult(out io.Writer, errOut io.Writer, result runResult) {
	if result.Error != "" {
		fmt.Fprintf(errOut, "Error: %s\n", result.Error)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(errOut, "Warning: %s\n", warning)
	}
	if result.WarningsTotal > len(result.Warnings) {
		fmt.Fprintf(errOut, "Warning: %d more warnings suppressed\n", result.WarningsTotal-len(result.Warnings))
	}
	if len(result.Report) == 0 {
		return
	}

	var report ledgerCheckReport
	if err := json.Unmarshal(result.Report, &report); err != nil {
		fmt.Fprintf(errOut, "Error: decode report: %v\n", err)
		return
	}
	switch result.Mode {
	case "verify":
		fmt.Fprintf(out, "Verified journal chain through seq %d\n", report.LastSeq)
	case "replay":
		fmt.Fprintf(out, "Replayed %d journal entries through seq %d (%d drift findings)\n", report.Entries, report.LastSeq, report.DriftCount)
	default:
		fmt.Fprintf(out, "Checked journal chain and state through seq %d (%d entries, %d drift findings)\n", report.LastSeq, report.Entries, report.DriftCount)
	}
}

func openLedgerStore(path string) (*sqlite.Store, error) {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == "" {
		return nil, fmt.Errorf("canvas db path is required")
	}
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open canvas store: %w", err)
	}
	return store, nil
}
