// Package main is the entry point for the hunter gate bot.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"hunter-gate-bot/internal/bot"
	"hunter-gate-bot/internal/config"
	"hunter-gate-bot/internal/game/gate"
	"hunter-gate-bot/internal/game/leveling"
	"hunter-gate-bot/internal/game/loot"
	"hunter-gate-bot/internal/game/skill"
	"hunter-gate-bot/internal/pkg/cache"
	"hunter-gate-bot/internal/pkg/db"
	"hunter-gate-bot/internal/repository"
	"hunter-gate-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Info().Str("level", level.String()).Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Bot exited with error")
	}
	log.Info().Msg("Bot stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return err
	}

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	rdb, err := cache.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Static game data
	catalog, err := skill.DefaultCatalog()
	if err != nil {
		return err
	}
	pools, err := gate.DefaultPools()
	if err != nil {
		return err
	}
	tables, err := loot.DefaultTables()
	if err != nil {
		return err
	}

	// Repositories
	hunterRepo := repository.NewHunterRepository(dbPool.Pool)
	ledgerRepo := repository.NewLedgerRepository(dbPool.Pool)
	skillRepo := repository.NewSkillRepository(dbPool.Pool)
	gateRepo := repository.NewGateRepository(dbPool.Pool)
	inventoryRepo := repository.NewInventoryRepository(dbPool.Pool)
	board := repository.NewLeaderboard(rdb)

	// Services
	hunterService := service.NewHunterService(hunterRepo, ledgerRepo, inventoryRepo, board, service.HunterConfig{
		MaxPerUser:    cfg.Hunters.MaxPerUser,
		NameMaxLength: cfg.Hunters.NameMaxLength,
	})
	progressionService := service.NewProgressionService(hunterRepo, board, service.ProgressionConfig{
		Rewards: leveling.Rewards{
			StatPointsPerLevel:  cfg.Leveling.StatPointsPerLevel,
			SkillPointsPerLevel: cfg.Leveling.SkillPointsPerLevel,
		},
		RestoreOnLevelUp: cfg.Leveling.RestoreOnLevelUp,
	})
	skillService := service.NewSkillService(hunterRepo, skillRepo, catalog)
	gateService := service.NewGateService(hunterRepo, gateRepo, progressionService, pools, loot.NewResolver(tables, nil), service.GateConfig{
		Gate: gate.Config{
			TTL:      cfg.Gates.TTL,
			MinDepth: cfg.Gates.MinDepth,
			MaxDepth: cfg.Gates.MaxDepth,
			MinRooms: cfg.Gates.MinRooms,
			MaxRooms: cfg.Gates.MaxRooms,
		},
		RoomExperience: cfg.Gates.RoomExperience,
		CompletionGold: cfg.Gates.CompletionGold,
	})
	rankingService := service.NewRankingService(board)

	log.Info().
		Int("skills", len(catalog.All())).
		Int("loot_tables", len(tables)).
		Bool("leaderboard", board.Enabled()).
		Msg("Game data loaded")

	telegramBot, err := bot.New(&bot.Dependencies{
		Config:             cfg,
		HunterService:      hunterService,
		ProgressionService: progressionService,
		SkillService:       skillService,
		GateService:        gateService,
		RankingService:     rankingService,
		Pools:              pools,
		Status:             dbPool.Status,
		LeaderboardEnabled: board.Enabled(),
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		telegramBot.Start()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Received shutdown signal")
		telegramBot.Stop()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
