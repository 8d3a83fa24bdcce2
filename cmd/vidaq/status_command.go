package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vidaq/internal/artifacts"
	"vidaq/internal/catalog"
	"vidaq/internal/config"
	"vidaq/internal/deps"
	"vidaq/internal/preflight"
	"vidaq/internal/staging"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report dependencies, directories, catalog and server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := strings.TrimSpace(serverURL)
			if target == "" {
				target = localServerURL(cfg.Server.Bind)
			}
			report := buildStatusReport(cmd, cfg, target)

			out := cmd.OutOrStdout()
			fmt.Fprint(out, report.render(isTerminal(out)))
			if failures := report.failures(); failures > 0 {
				return fmt.Errorf("%d required checks failed", failures)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "Base URL of a running server (defaults to server.bind)")
	return cmd
}

func buildStatusReport(cmd *cobra.Command, cfg *config.Config, serverURL string) *statusReport {
	ctx := cmd.Context()
	report := &statusReport{}

	depsSection := report.section("Dependencies")
	for _, status := range preflight.CheckSystemDeps(ctx, cfg) {
		state, detail := dependencyState(status)
		depsSection.add(status.Name, state, detail)
	}

	dirs := report.section("Directories")
	for _, result := range preflight.RunAll(ctx, cfg) {
		dirs.add(result.Name, checkOutcome(result, stateFail), result.Detail)
	}

	addCatalogRows(report.section("Catalog"), cmd, cfg)
	addStagingRows(report.section("Staging"), cfg)

	server := preflight.CheckServer(ctx, serverURL)
	report.section("Server").add(server.Name, checkOutcome(server, stateWarn), server.Detail)
	return report
}

// checkOutcome maps a preflight result to a row state; failed is used when
// the check did not pass.
func checkOutcome(result preflight.Result, failed checkState) checkState {
	if result.Passed {
		return statePass
	}
	return failed
}

func dependencyState(status deps.Status) (checkState, string) {
	switch {
	case status.Available && status.Version != "":
		return statePass, fmt.Sprintf("%s (%s)", status.Path, status.Version)
	case status.Available:
		return statePass, status.Path
	case status.Optional:
		return stateWarn, status.Detail
	default:
		return stateFail, status.Detail
	}
}

func addCatalogRows(sec *statusSection, cmd *cobra.Command, cfg *config.Config) {
	store, err := catalog.Open(cfg)
	if err != nil {
		sec.add("Database", stateFail, err.Error())
		return
	}
	defer store.Close()

	health, err := store.CheckHealth(cmd.Context())
	if err != nil {
		sec.add("Database", stateFail, err.Error())
		return
	}
	sec.add("Database", statePass, health.DBPath)
	sec.add("Schema version", stateInfo, strconv.Itoa(health.SchemaVersion))
	sec.add("Items", stateInfo, strconv.Itoa(health.ItemCount))
}

func addStagingRows(sec *statusSection, cfg *config.Config) {
	roots := []struct {
		label string
		path  string
	}{
		{"Uploads", cfg.Paths.StagingDir},
		{"Renders", artifacts.New(cfg.Paths.ArtifactDir).StagingRoot()},
	}
	for _, root := range roots {
		dirs, err := staging.ListDirectories(root.path)
		if err != nil {
			sec.add(root.label, stateWarn, err.Error())
			continue
		}
		var size int64
		stale := 0
		for _, dir := range dirs {
			size += dir.Size
			if time.Since(dir.ModTime) > cfg.StagingMaxAge() {
				stale++
			}
		}
		detail := fmt.Sprintf("%d in progress, %s", len(dirs), humanize.IBytes(uint64(size)))
		state := stateInfo
		if stale > 0 {
			state = stateWarn
			detail += fmt.Sprintf(", %d stale", stale)
		}
		sec.add(root.label, state, detail)
	}
}

// localServerURL turns a bind address into a URL a local client can reach.
func localServerURL(bind string) string {
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return "http://" + bind
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
