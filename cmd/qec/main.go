package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/theapemachine/qec"
)

func main() {
	configPath := flag.String("config", "qec.yaml", "path to a .yaml or .toml config file")
	modes := flag.String("modes", "", "comma separated modes to sweep (default: the configured mode)")
	flag.Parse()

	cfg, err := qec.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if *modes == "" {
		*modes = cfg.Mode
	}

	log := qec.NewLogger(cfg.LogLevel, cfg.LogPretty)
	log.Info().Str("config", *configPath).Str("modes", *modes).Msg("starting sweep")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	oracle, err := qec.NewFrameOracle(cfg.Seed, qec.WithReadoutFlip(cfg.ReadoutFlip))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build oracle")
	}
	agg, err := qec.NewAggregator(oracle, cfg, qec.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build aggregator")
	}

	var store *qec.Store
	if cfg.StorePath != "" {
		if store, err = qec.OpenStore(cfg.StorePath); err != nil {
			log.Fatal().Err(err).Msg("failed to open store")
		}
		defer store.Close()
	}

	var all []*qec.FidelityReport
	for _, name := range splitList(*modes) {
		mode, err := qec.ParseMode(name)
		if err != nil {
			log.Fatal().Err(err).Msg("bad mode")
		}

		reports, err := agg.RunSweep(ctx, cfg.NoiseLevels, cfg.Shots, mode)
		all = append(all, reports...)
		for _, r := range reports {
			lo, hi := r.ConfidenceInterval(0.95)
			fmt.Printf("%s ci95=[%.4f, %.4f]\n", r, lo, hi)
		}

		if store != nil && len(reports) > 0 {
			id, serr := store.SaveSweep(ctx, reports)
			if serr != nil {
				log.Error().Err(serr).Msg("failed to save sweep")
			} else {
				log.Info().Str("sweep", id).Msg("sweep saved")
			}
		}

		if err != nil {
			log.Error().Err(err).Msg("sweep interrupted")
			break
		}
	}

	if cfg.Rounds > 1 && ctx.Err() == nil {
		for _, p := range cfg.NoiseLevels {
			for _, mode := range []qec.Mode{qec.ModeBaseline, qec.ModePostselect, qec.ModeActive} {
				mr, err := agg.RunMemory(ctx, p, cfg.Rounds, cfg.Shots, mode)
				if err != nil {
					log.Error().Err(err).Msg("memory run failed")
					continue
				}
				fmt.Printf("memory p=%g mode=%s survival=%v acceptance=%v waste=%.4f\n",
					p, mode, mr.Survival, mr.Acceptance, mr.WasteFraction())
			}
		}
	}

	log.Info().Fields(agg.OracleMetrics().ExportMetrics()).Msg("oracle metrics")

	if err := qec.Summarize(all).Err(); err != nil {
		log.Error().Err(err).Msg("sweep finished with failures")
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
