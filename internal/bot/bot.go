// Package bot wires the Telegram bot: middleware, commands and callbacks.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"hunter-gate-bot/internal/config"
	"hunter-gate-bot/internal/game/gate"
	"hunter-gate-bot/internal/handler"
	"hunter-gate-bot/internal/pkg/lock"
	"hunter-gate-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot    *tele.Bot
	cfg    *config.Config
	access *PrivateAccess

	hunterHandler  *handler.HunterHandler
	skillHandler   *handler.SkillHandler
	gateHandler    *handler.GateHandler
	rankingHandler *handler.RankingHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config             *config.Config
	HunterService      *service.HunterService
	ProgressionService *service.ProgressionService
	SkillService       *service.SkillService
	GateService        *service.GateService
	RankingService     *service.RankingService
	Pools              *gate.Pools
	Status             handler.StatusFunc
	LeaderboardEnabled bool
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pollTimeout := deps.Config.Bot.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 10 * time.Second
	}
	teleBot, err := tele.NewBot(tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram handler error")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	selection, err := handler.NewSelection(deps.Config.Bot.SelectionSize, deps.HunterService)
	if err != nil {
		return nil, fmt.Errorf("failed to create selection cache: %w", err)
	}
	access, err := NewPrivateAccess(0)
	if err != nil {
		return nil, fmt.Errorf("failed to create private access cache: %w", err)
	}
	locks := lock.NewKeyedLock()

	b := &Bot{
		bot:    teleBot,
		cfg:    deps.Config,
		access: access,

		hunterHandler:  handler.NewHunterHandler(deps.HunterService, deps.ProgressionService, selection, locks),
		skillHandler:   handler.NewSkillHandler(deps.SkillService, selection, locks),
		gateHandler:    handler.NewGateHandler(deps.GateService, deps.HunterService, deps.Pools, selection, locks),
		rankingHandler: handler.NewRankingHandler(deps.RankingService),
		adminHandler: handler.NewAdminHandler(
			deps.HunterService, deps.ProgressionService, deps.GateService,
			deps.Status, deps.LeaderboardEnabled, locks,
		),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.access))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	// Hunters
	b.bot.Handle("/start", b.hunterHandler.HandleStart)
	b.bot.Handle("/create", b.hunterHandler.HandleCreate)
	b.bot.Handle("/hunters", b.hunterHandler.HandleHunters)
	b.bot.Handle("/select", b.hunterHandler.HandleSelect)
	b.bot.Handle("/delete", b.hunterHandler.HandleDelete)
	b.bot.Handle("/profile", b.hunterHandler.HandleProfile)
	b.bot.Handle("/stat", b.hunterHandler.HandleStat)
	b.bot.Handle("/wallet", b.hunterHandler.HandleWallet)

	// Skills
	b.bot.Handle("/skills", b.skillHandler.HandleSkills)
	b.bot.Handle("/unlock", b.skillHandler.HandleUnlock)
	b.bot.Handle("/equip", b.skillHandler.HandleEquip)
	b.bot.Handle("/unequip", b.skillHandler.HandleUnequip)

	// Gates
	b.bot.Handle("/gate", b.gateHandler.HandleGate)
	b.bot.Handle("/locate", b.gateHandler.HandleLocate)
	b.bot.Handle("/clear", b.gateHandler.HandleClear)
	b.bot.Handle("/next", b.gateHandler.HandleNext)
	b.bot.Handle("/abandon", b.gateHandler.HandleAbandon)

	// Ranking
	b.bot.Handle("/top", b.rankingHandler.HandleTop)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/admin_exp", b.adminHandler.HandleAdminExp)
	adminGroup.Handle("/admin_gold", b.adminHandler.HandleAdminGold)
	adminGroup.Handle("/admin_purge", b.adminHandler.HandleAdminPurge)
	adminGroup.Handle("/admin_status", b.adminHandler.HandleAdminStatus)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes inline button callbacks by prefix.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	data := strings.TrimPrefix(callback.Data, "\f")
	switch {
	case strings.HasPrefix(data, handler.GatePrefix):
		return b.gateHandler.HandleGateCallback(c)
	case strings.HasPrefix(data, handler.HunterPrefix):
		return b.hunterHandler.HandleSelectCallback(c)
	}

	log.Debug().Str("data", data).Msg("Unknown callback")
	return c.Respond(&tele.CallbackResponse{Text: "❌ 无效操作"})
}

// Start starts polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops polling.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
