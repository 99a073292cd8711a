package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	natsadapter "github.com/samirrijal/geofencing/internal/adapters/nats"
	"github.com/samirrijal/geofencing/internal/pkg/config"
	"github.com/samirrijal/geofencing/internal/pkg/logging"
)

type replayOptions struct {
	natsURL  string
	device   string
	speed    float64
	interval time.Duration
	restamp  bool
	loop     bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &replayOptions{}

	cmd := &cobra.Command{
		Use:   "replay <track-file>",
		Short: "Replay a recorded location track onto NATS",
		Long: `Publish a recorded device track to geofence.location.<device> so the
API's monitor sees it as live movement.

The track is a JSON array or JSON lines of {"device_id","location":{"lat","lon"},"time"}.

Example:
  replay --speed 10 walk.jsonl
  replay --device phone-2 --interval 2s --restamp --loop walk.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.loop && opts.interval <= 0 {
				return fmt.Errorf("--loop needs a positive --interval, got %s", opts.interval)
			}
			return runReplay(cmd.Context(), opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.natsURL, "nats", "", "NATS URL (defaults to nats.url from config)")
	cmd.Flags().StringVar(&opts.device, "device", "", "override the device ID of every point")
	cmd.Flags().Float64Var(&opts.speed, "speed", 1, "playback speed relative to recorded timestamps; 0 uses --interval only")
	cmd.Flags().DurationVar(&opts.interval, "interval", time.Second, "delay between points without usable timestamps")
	cmd.Flags().BoolVar(&opts.restamp, "restamp", true, "set each point's time to the publish time")
	cmd.Flags().BoolVar(&opts.loop, "loop", false, "start over when the track ends")

	return cmd
}

func runReplay(parent context.Context, opts *replayOptions, path string) error {
	cfg, err := config.Load("geofence-replay")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logging.Setup(cfg.Log.Level, "text")

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	track, err := readTrack(f)
	f.Close()
	if err != nil {
		return err
	}
	if len(track) == 0 {
		return fmt.Errorf("track %s has no points", path)
	}

	url := opts.natsURL
	if url == "" {
		url = cfg.NATS.URL
	}
	pub, err := natsadapter.NewPublisher(url, cfg.Push.SubjectPrefix)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer pub.Close()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	waits := schedule(track, opts.speed, opts.interval)
	slog.Info("replaying track", "file", path, "points", len(track), "speed", opts.speed)

	for pass := 1; ; pass++ {
		for i := range track {
			select {
			case <-ctx.Done():
				slog.Info("replay stopped", "pass", pass, "point", i)
				return nil
			case <-time.After(delay(waits, i, pass, opts.interval)):
			}

			u := track[i]
			if opts.device != "" {
				u.DeviceID = opts.device
			}
			if opts.restamp || u.Time.IsZero() {
				u.Time = time.Now().UTC()
			}
			if err := pub.PublishLocation(ctx, &u); err != nil {
				return fmt.Errorf("publish point %d: %w", i, err)
			}
			slog.Debug("published", "device", u.DeviceID, "lat", u.Location.Lat, "lon", u.Location.Lon)
		}
		if !opts.loop {
			break
		}
	}

	slog.Info("replay finished", "points", len(track))
	return nil
}
