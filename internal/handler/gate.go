package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"hunter-gate-bot/internal/game/gate"
	"hunter-gate-bot/internal/game/leveling"
	"hunter-gate-bot/internal/game/stats"
	"hunter-gate-bot/internal/model"
	"hunter-gate-bot/internal/pkg/lock"
	"hunter-gate-bot/internal/service"
)

// GateHandler handles gate runs.
type GateHandler struct {
	gateService   *service.GateService
	hunterService *service.HunterService
	pools         *gate.Pools
	selection     *Selection
	locks         *lock.KeyedLock
	taps          *lock.KeyedLock
}

// NewGateHandler creates a new GateHandler.
func NewGateHandler(
	gateService *service.GateService,
	hunterService *service.HunterService,
	pools *gate.Pools,
	selection *Selection,
	locks *lock.KeyedLock,
) *GateHandler {
	return &GateHandler{
		gateService:   gateService,
		hunterService: hunterService,
		pools:         pools,
		selection:     selection,
		locks:         locks,
		taps:          lock.NewKeyedLock(),
	}
}

func (h *GateHandler) typeName(g *model.Gate) string {
	if t, ok := h.pools.Type(g.Type); ok && t.Name != "" {
		return t.Name
	}
	return g.Type
}

func formatGate(name string, g *model.Gate, enemy string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🌀 %s · %s 级传送门\n%s\n", name, g.Rank, divider)
	fmt.Fprintf(&b, "📍 第 %d/%d 层 · 房间 %d/%d\n", g.CurrentDepth, g.TotalDepth, g.CurrentRoom, g.RoomsInCurrentDepth())
	fmt.Fprintf(&b, "📊 进度: %d/%d 房间\n", gate.RoomsCleared(g), gate.TotalRooms(g))
	if g.RoomStatus == model.RoomCleared {
		b.WriteString("✅ 当前房间已清理\n")
	} else if enemy != "" {
		fmt.Fprintf(&b, "👹 敌人: %s\n", enemy)
		if g.IsFinalRoom() {
			b.WriteString("⚠️ 首领房间\n")
		}
	}
	if left := g.ExpiresAt.Sub(now).Truncate(time.Minute); left > 0 {
		fmt.Fprintf(&b, "⌛ 剩余时间: %s\n", left)
	} else {
		b.WriteString("⌛ 即将关闭\n")
	}
	b.WriteString(divider)
	return b.String()
}

func formatCombat(cs stats.Combat) string {
	return fmt.Sprintf("❤️ %d/%d 🔷 %d/%d ⚔️ %d 🛡 %d 💨 %d",
		cs.CurrentHP, cs.MaxHP, cs.CurrentMP, cs.MaxMP, cs.AttackPower, cs.Defense, cs.Speed)
}

func formatLevelUp(r leveling.Report) string {
	if !r.LevelChanged {
		return ""
	}
	msg := fmt.Sprintf("\n🎉 升级! Lv.%d → Lv.%d (+%d 属性点, +%d 技能点)",
		r.OldLevel, r.NewLevel, r.StatPointsGained, r.SkillPointsGained)
	if r.RankedUp() {
		msg += fmt.Sprintf("\n🎖 晋升为 %s 级猎人!", r.NewRank)
	}
	return msg
}

// HandleGate handles the /gate command.
func (h *GateHandler) HandleGate(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	id, err := h.selection.Require(ctx, sender.ID)
	if err != nil {
		return replyError(c, "gate", err)
	}
	g, err := h.gateService.Active(ctx, sender.ID, id)
	if err != nil {
		return replyError(c, "gate", err)
	}
	msg := formatGate(h.typeName(g), g, h.pools.Encounter(g), time.Now())
	if hunter, err := h.hunterService.Get(ctx, sender.ID, id); err == nil {
		msg += "\n" + formatCombat(stats.CombatSnapshot(hunter))
	}
	return c.Reply(msg, BuildGatePanel(g))
}

// HandleLocate handles the /locate command.
func (h *GateHandler) HandleLocate(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	id, err := h.selection.Require(ctx, sender.ID)
	if err != nil {
		return replyError(c, "locate", err)
	}

	var g *model.Gate
	err = withHunterLock(ctx, h.locks, id, func() error {
		var err error
		g, err = h.gateService.Locate(ctx, sender.ID, id)
		return err
	})
	if err != nil {
		return replyError(c, "locate", err)
	}
	return c.Reply("🔮 发现了一扇传送门!\n\n"+formatGate(h.typeName(g), g, h.pools.Encounter(g), time.Now()), BuildGatePanel(g))
}

// activeGateID returns the id of the selected hunter's live gate.
func (h *GateHandler) activeGateID(ctx context.Context, userID int64) (int64, uuid.UUID, error) {
	hunterID, err := h.selection.Require(ctx, userID)
	if err != nil {
		return 0, uuid.Nil, err
	}
	g, err := h.gateService.Active(ctx, userID, hunterID)
	if err != nil {
		return 0, uuid.Nil, err
	}
	return hunterID, g.ID, nil
}

// HandleClear handles the /clear command.
func (h *GateHandler) HandleClear(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	hunterID, gateID, err := h.activeGateID(ctx, sender.ID)
	if err != nil {
		return replyError(c, "clear", err)
	}
	var msg string
	var g *model.Gate
	err = withHunterLock(ctx, h.locks, hunterID, func() error {
		var err error
		msg, g, err = h.clear(ctx, sender.ID, gateID)
		return err
	})
	if err != nil {
		return replyError(c, "clear", err)
	}
	return c.Reply(msg, BuildGatePanel(g))
}

// clear clears the current room and reports what it granted.
func (h *GateHandler) clear(ctx context.Context, userID int64, gateID uuid.UUID) (string, *model.Gate, error) {
	res, err := h.gateService.ClearRoom(ctx, userID, gateID)
	if err != nil {
		return "", nil, err
	}
	if !res.FirstClear {
		return "✅ 房间已经清理过了", res.Gate, nil
	}

	var b strings.Builder
	if res.Enemy != "" {
		fmt.Fprintf(&b, "⚔️ 击败了 %s!\n", res.Enemy)
	} else {
		b.WriteString("⚔️ 房间已清理!\n")
	}
	if res.Experience > 0 {
		fmt.Fprintf(&b, "✨ 经验 +%d", res.Experience)
		b.WriteString(formatLevelUp(res.Report))
		b.WriteString("\n")
	}

	if !res.Loot.Empty() {
		b.WriteString("🎁 战利品:")
		if res.Loot.Gold > 0 {
			fmt.Fprintf(&b, " 💰%d", res.Loot.Gold)
		}
		for _, it := range res.Loot.Items {
			fmt.Fprintf(&b, " %s x%d", it.ItemID, it.Quantity)
		}
		b.WriteString("\n")
	}

	if res.Gate.IsFinalRoom() {
		b.WriteString("🏁 首领已被击败，点击完成副本")
	} else {
		b.WriteString("➡️ 可以前往下一个房间")
	}
	return b.String(), res.Gate, nil
}

// HandleNext handles the /next command.
func (h *GateHandler) HandleNext(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	hunterID, gateID, err := h.activeGateID(ctx, sender.ID)
	if err != nil {
		return replyError(c, "next", err)
	}
	var res *service.ProgressResult
	err = withHunterLock(ctx, h.locks, hunterID, func() error {
		var err error
		res, err = h.gateService.Progress(ctx, sender.ID, gateID)
		return err
	})
	if err != nil {
		return replyError(c, "next", err)
	}
	return h.replyProgress(c, res)
}

func (h *GateHandler) replyProgress(c tele.Context, res *service.ProgressResult) error {
	if res.Completed {
		msg := "🏆 副本完成! 传送门已关闭"
		if res.Gold > 0 {
			msg += fmt.Sprintf("\n💰 通关奖励 +%d (余额 %d)", res.Gold, res.Balances.Gold)
		}
		msg += "\n\n使用 /locate 寻找新的传送门"
		return c.Reply(msg)
	}
	return c.Reply(formatGate(h.typeName(res.Gate), res.Gate, res.Enemy, time.Now()), BuildGatePanel(res.Gate))
}

// HandleAbandon handles the /abandon command.
func (h *GateHandler) HandleAbandon(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	id, err := h.selection.Require(ctx, sender.ID)
	if err != nil {
		return replyError(c, "abandon", err)
	}
	msg, err := h.abandon(ctx, sender.ID, id)
	if err != nil {
		return replyError(c, "abandon", err)
	}
	return c.Reply(msg)
}

func (h *GateHandler) abandon(ctx context.Context, userID, hunterID int64) (string, error) {
	var deleted bool
	err := withHunterLock(ctx, h.locks, hunterID, func() error {
		var err error
		deleted, err = h.gateService.Abandon(ctx, userID, hunterID)
		return err
	})
	if err != nil {
		return "", err
	}
	if !deleted {
		return "ℹ️ 当前没有传送门", nil
	}
	return "🚪 已放弃传送门", nil
}

// gateOwner resolves the hunter running a gate.
type gateOwner interface {
	HunterOf(ctx context.Context, userID int64, gateID uuid.UUID) (int64, error)
}

// withGateLock runs fn under the lock of the hunter running gateID, the same
// lock the typed commands take.
func withGateLock(ctx context.Context, locks *lock.KeyedLock, owners gateOwner, userID int64, gateID uuid.UUID, fn func() error) error {
	hunterID, err := owners.HunterOf(ctx, userID, gateID)
	if err != nil {
		return err
	}
	return withHunterLock(ctx, locks, hunterID, fn)
}

// HandleGateCallback handles gate panel buttons. A second tap while the
// first is still running is answered without touching the gate.
func (h *GateHandler) HandleGateCallback(c tele.Context) error {
	callback := c.Callback()
	sender := c.Sender()
	if callback == nil || sender == nil {
		return nil
	}

	action, param := DecodeCallback(GatePrefix, callback.Data)
	if action == "" {
		return c.Respond(&tele.CallbackResponse{Text: "❌ 无效操作"})
	}

	if !h.taps.TryLock(sender.ID) {
		return c.Respond(&tele.CallbackResponse{Text: "⏳ 处理中..."})
	}
	defer h.taps.Unlock(sender.ID)

	ctx, cancel := commandContext()
	defer cancel()

	log.Debug().Int64("user_id", sender.ID).Str("action", action).Str("param", param).Msg("Gate callback")

	switch action {
	case actionClear, actionNext:
		gateID, err := uuid.Parse(param)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: "❌ 无效操作"})
		}
		if action == actionClear {
			var msg string
			var g *model.Gate
			err := withGateLock(ctx, h.locks, h.gateService, sender.ID, gateID, func() error {
				var err error
				msg, g, err = h.clear(ctx, sender.ID, gateID)
				return err
			})
			if err != nil {
				return replyError(c, "clear", err)
			}
			_ = c.Respond()
			return c.Reply(msg, BuildGatePanel(g))
		}
		var res *service.ProgressResult
		err = withGateLock(ctx, h.locks, h.gateService, sender.ID, gateID, func() error {
			var err error
			res, err = h.gateService.Progress(ctx, sender.ID, gateID)
			return err
		})
		if err != nil {
			return replyError(c, "next", err)
		}
		_ = c.Respond()
		return h.replyProgress(c, res)
	case actionAbandon:
		hunterID, ok := parseID(param)
		if !ok {
			return c.Respond(&tele.CallbackResponse{Text: "❌ 无效操作"})
		}
		msg, err := h.abandon(ctx, sender.ID, hunterID)
		if err != nil {
			return replyError(c, "abandon", err)
		}
		_ = c.Respond()
		return c.Reply(msg)
	}
	return c.Respond(&tele.CallbackResponse{Text: "❌ 无效操作"})
}
