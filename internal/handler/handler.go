// Package handler provides Telegram bot command handlers.
//
// Handlers are thin: they parse arguments, resolve the sender's selected
// hunter, call a service and format the reply. Per-hunter commands are
// serialized with lock.KeyedLock so a double-tapped button cannot race itself.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"hunter-gate-bot/internal/pkg/apperr"
	"hunter-gate-bot/internal/pkg/lock"
)

const (
	// commandTimeout bounds the storage work behind one command.
	commandTimeout = 10 * time.Second
	// lockWait is how long a command waits for another command on the same hunter.
	lockWait = 3 * time.Second
)

const divider = "━━━━━━━━━━━━━━━"

// reasonText holds replies for errors users can act on.
var reasonText = map[string]string{
	"unauthorized":          "❌ 无法识别您的身份",
	"not_owner":             "❌ 这不是您的猎人",
	"hunter_not_found":      "❌ 猎人不存在",
	"hunter_limit":          "❌ 猎人数量已达上限",
	"name_taken":            "❌ 该名字已被使用",
	"invalid_name":          "❌ 名字无效",
	"invalid_class":         "❌ 未知职业",
	"invalid_experience":    "❌ 经验值必须大于 0",
	"invalid_stat":          "❌ 未知属性",
	"invalid_amount":        "❌ 金额无效",
	"insufficient_points":   "❌ 属性点不足",
	"insufficient_funds":    "❌ 余额不足",
	"concurrent_update":     "⏳ 操作冲突，请重试",
	"unknown_skill":         "❌ 未找到该技能",
	"requirements_not_met":  "❌ 不满足解锁条件",
	"passive_skill":         "❌ 被动技能无需装备",
	"not_unlocked":          "❌ 尚未解锁该技能",
	"already_equipped":      "❌ 该技能已装备",
	"not_equipped":          "❌ 该技能未装备",
	"slots_full":            "❌ 技能栏已满 (最多 4 个)",
	"no_active_gate":        "❌ 当前没有进行中的传送门",
	"gate_active":           "❌ 已有进行中的传送门",
	"gate_expired":          "⌛ 传送门已关闭",
	"room_not_cleared":      "❌ 请先清理当前房间",
	"gate_changed":          "⏳ 传送门状态已变化，请重试",
	"clear_room_failed":     "❌ 清理房间失败，请稍后重试",
}

// errorText maps a service error to a reply. Internal details are logged,
// never shown.
func errorText(err error) string {
	switch {
	case errors.Is(err, lock.ErrLockTimeout):
		return "⏳ 上一个操作仍在处理中，请稍候"
	case errors.Is(err, errNoHunter):
		return "❌ 您还没有猎人，请使用 /create <名字> <职业> 创建"
	}
	if msg, ok := reasonText[apperr.ReasonOf(err)]; ok {
		return msg
	}
	switch apperr.CodeOf(err) {
	case apperr.CodeForbidden:
		return "❌ 权限不足"
	case apperr.CodeNotFound:
		return "❌ 未找到"
	case apperr.CodeConflict:
		return "⏳ 操作冲突，请重试"
	case apperr.CodeInvalidInput:
		return "❌ 参数无效"
	case apperr.CodeInsufficientResource:
		return "❌ 资源不足"
	}
	return "❌ 操作失败，请稍后重试"
}

// replyError logs unexpected failures and replies with errorText.
func replyError(c tele.Context, op string, err error) error {
	if apperr.CodeOf(err) == apperr.CodeInternal && !errors.Is(err, lock.ErrLockTimeout) && !errors.Is(err, errNoHunter) {
		ev := log.Error().Err(err).Str("op", op)
		if s := c.Sender(); s != nil {
			ev = ev.Int64("user_id", s.ID)
		}
		ev.Msg("Command failed")
	}
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: errorText(err), ShowAlert: true})
	}
	return c.Reply(errorText(err))
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// withHunterLock runs fn while holding hunterID. A command arriving while
// another is in flight waits up to lockWait.
func withHunterLock(ctx context.Context, locks *lock.KeyedLock, hunterID int64, fn func() error) error {
	waitCtx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()
	return locks.WithLock(waitCtx, hunterID, fn)
}

// parseID parses a positive decimal id.
func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func signed(n int64) string {
	if n > 0 {
		return fmt.Sprintf("+%d", n)
	}
	return strconv.FormatInt(n, 10)
}
