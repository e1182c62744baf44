// voyagertail connects to a Voyager server and prints every inbound frame
// to the console. No notifications are sent and nothing is archived.
//
// Usage: go run ./cmd/voyagertail --config configs/voyagerbot.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/rickgao/voyagerbot/internal/command"
	"github.com/rickgao/voyagerbot/internal/config"
	"github.com/rickgao/voyagerbot/internal/connection"
	"github.com/rickgao/voyagerbot/internal/router"
)

func main() {
	configPath := flag.String("config", "configs/voyagerbot.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	events := flag.String("events", "", "comma separated events to print (default all)")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sessCfg := connection.DefaultSessionConfig()
	sessCfg.Host = cfg.Voyager.Host
	sessCfg.Port = cfg.Voyager.Port
	sessCfg.Username = cfg.Voyager.Username
	sessCfg.Password = cfg.Voyager.Password
	sessCfg.KeepAliveInterval = cfg.Voyager.KeepAliveInterval

	sess := connection.NewSession(sessCfg, logger)
	disp := command.NewDispatcher(sess, logger)

	// Nothing is ignored: the tap sees every frame.
	rtr := router.NewRouter(router.Config{
		CoalesceEvery:     cfg.Events.CoalesceEvery,
		ArchiveBufferSize: 1000,
		ArchiveBufferMax:  100000,
	}, disp, logger)
	defer rtr.Close()

	filter := parseFilter(*events)
	go printFrames(ctx, os.Stdout, rtr.Archive(), filter, *verbose)

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rs := rtr.Stats()
				ss := sess.Stats()
				logger.Info("stats",
					"state", ss.State,
					"reconnects", ss.Reconnects,
					"heartbeats", ss.Heartbeats,
					"events", rs.Events,
					"completions", rs.Completions,
					"parse_errors", rs.ParseErrors,
					"tap_buffered", rs.Archive.Count,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop", "url", sessCfg.URL())

	if err := sess.Run(ctx, disp, rtr); err != nil {
		logger.Error("session ended", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func parseFilter(list string) []string {
	var out []string
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func printFrames(ctx context.Context, w io.Writer, buf *router.GrowableBuffer[router.ArchivedFrame], filter []string, verbose bool) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			f, ok := buf.TryReceive()
			if !ok {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			if len(filter) > 0 && !slices.Contains(filter, f.Event) {
				continue
			}
			fmt.Fprintln(w, formatFrame(f, verbose))
		}
	}
}

// formatFrame renders one frame. Without verbose the bulky or redundant
// fields are left out.
func formatFrame(f router.ArchivedFrame, verbose bool) string {
	ts := f.ReceivedAt.Format("2006-01-02 15:04:05.000")
	name := f.Event
	if name == "" {
		name = router.EventCompletion
	}

	if verbose {
		var pretty strings.Builder
		pretty.WriteString(string(f.Payload))
		var v any
		if err := json.Unmarshal(f.Payload, &v); err == nil {
			if data, err := json.MarshalIndent(v, "", "  "); err == nil {
				pretty.Reset()
				pretty.Write(data)
			}
		}
		return fmt.Sprintf("[%s][%s] %s", ts, name, pretty.String())
	}

	var fields map[string]any
	if err := json.Unmarshal(f.Payload, &fields); err != nil {
		return fmt.Sprintf("[%s][%s] %s", ts, name, f.Payload)
	}
	for _, k := range []string{"Event", "Host", "Inst", "Timestamp"} {
		delete(fields, k)
	}
	if _, ok := fields["Base64Data"]; ok {
		fields["Base64Data"] = "..."
	}
	data, _ := json.Marshal(fields)
	return fmt.Sprintf("[%s][%s] %s", ts, name, data)
}
