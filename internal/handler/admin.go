package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"hunter-gate-bot/internal/model"
	"hunter-gate-bot/internal/pkg/db"
	"hunter-gate-bot/internal/pkg/lock"
	"hunter-gate-bot/internal/service"
)

// StatusFunc reports database pool health.
type StatusFunc func(ctx context.Context) db.Status

// AdminHandler handles admin-related commands.
type AdminHandler struct {
	hunterService      *service.HunterService
	progressionService *service.ProgressionService
	gateService        *service.GateService
	status             StatusFunc
	leaderboardEnabled bool
	locks              *lock.KeyedLock
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	hunterService *service.HunterService,
	progressionService *service.ProgressionService,
	gateService *service.GateService,
	status StatusFunc,
	leaderboardEnabled bool,
	locks *lock.KeyedLock,
) *AdminHandler {
	return &AdminHandler{
		hunterService:      hunterService,
		progressionService: progressionService,
		gateService:        gateService,
		status:             status,
		leaderboardEnabled: leaderboardEnabled,
		locks:              locks,
	}
}

// parseAdminArgs parses <hunter_id> <amount>.
func parseAdminArgs(args []string, usage string) (int64, int64, error) {
	if len(args) < 2 {
		return 0, 0, fmt.Errorf("❌ 用法: %s", usage)
	}
	hunterID, ok := parseID(args[0])
	if !ok {
		return 0, 0, fmt.Errorf("❌ 猎人ID格式错误，请输入数字")
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("❌ 数量格式错误，请输入整数")
	}
	return hunterID, amount, nil
}

// HandleAdminExp handles the /admin_exp command.
// Format: /admin_exp <hunter_id> <amount>
func (h *AdminHandler) HandleAdminExp(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	hunterID, amount, err := parseAdminArgs(c.Args(), "/admin_exp <猎人ID> <经验>")
	if err != nil {
		return c.Reply(err.Error())
	}

	var hunter *model.Hunter
	var report string
	err = withHunterLock(ctx, h.locks, hunterID, func() error {
		hn, r, err := h.progressionService.GainExperience(ctx, hunterID, amount)
		if err != nil {
			return err
		}
		hunter, report = hn, formatLevelUp(r)
		return nil
	})
	if err != nil {
		return replyError(c, "admin_exp", err)
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("hunter_id", hunterID).
		Int64("amount", amount).
		Str("operation", "admin_exp").
		Msg("Admin operation executed")

	return c.Reply(fmt.Sprintf(
		"✅ 操作成功\n\n"+
			"👤 猎人: %s (#%d)\n"+
			"✨ 经验 +%d → %d\n"+
			"🎖 Lv.%d · %s 级%s",
		hunter.Name, hunter.ID, amount, hunter.Experience, hunter.Level, hunter.Rank, report,
	))
}

// HandleAdminGold handles the /admin_gold command.
// Format: /admin_gold <hunter_id> <gold> [diamonds]
func (h *AdminHandler) HandleAdminGold(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	hunterID, gold, err := parseAdminArgs(args, "/admin_gold <猎人ID> <金币> [钻石]")
	if err != nil {
		return c.Reply(err.Error())
	}
	var diamonds int64
	if len(args) > 2 {
		if diamonds, err = strconv.ParseInt(args[2], 10, 64); err != nil {
			return c.Reply("❌ 钻石数量格式错误，请输入整数")
		}
	}

	desc := fmt.Sprintf("管理员 %d 调整", sender.ID)
	var b model.Balances
	err = withHunterLock(ctx, h.locks, hunterID, func() error {
		var err error
		b, err = h.hunterService.AdjustCurrency(ctx, hunterID, gold, diamonds, model.LedgerTypeAdminGrant, desc)
		return err
	})
	if err != nil {
		return replyError(c, "admin_gold", err)
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("hunter_id", hunterID).
		Int64("gold", gold).
		Int64("diamonds", diamonds).
		Str("operation", "admin_gold").
		Msg("Admin operation executed")

	return c.Reply(fmt.Sprintf(
		"✅ 操作成功\n\n"+
			"👤 猎人: #%d\n"+
			"💰 金币 %s → %d\n"+
			"💎 钻石 %s → %d",
		hunterID, signed(gold), b.Gold, signed(diamonds), b.Diamonds,
	))
}

// HandleAdminPurge handles the /admin_purge command.
// Removes every expired gate.
func (h *AdminHandler) HandleAdminPurge(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	n, err := h.gateService.PurgeExpired(ctx)
	if err != nil {
		return replyError(c, "admin_purge", err)
	}
	log.Info().
		Int64("admin_id", sender.ID).
		Int64("count", n).
		Str("operation", "admin_purge").
		Msg("Admin operation executed")
	return c.Reply(fmt.Sprintf("🧹 已清理 %d 个过期传送门", n))
}

// HandleAdminStatus handles the /admin_status command.
func (h *AdminHandler) HandleAdminStatus(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()

	st := h.status(ctx)
	health := "✅ 正常"
	if !st.Healthy {
		health = "❌ 不可用"
	}
	board := "✅ 已启用"
	if !h.leaderboardEnabled {
		board = "⚪ 未启用"
	}
	return c.Reply(fmt.Sprintf(
		"🛠 系统状态\n%s\n"+
			"🗄 数据库: %s\n"+
			"🔌 连接: %d (空闲 %d, 使用中 %d)\n"+
			"🏆 排行榜: %s\n%s",
		divider, health, st.TotalConns, st.IdleConns, st.AcquiredConns, board, divider,
	))
}
