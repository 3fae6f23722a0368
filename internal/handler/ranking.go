package handler

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"hunter-gate-bot/internal/service"
)

// RankingHandler handles leaderboard commands.
type RankingHandler struct {
	rankingService *service.RankingService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(rankingService *service.RankingService) *RankingHandler {
	return &RankingHandler{
		rankingService: rankingService,
	}
}

// HandleTop handles the /top command.
// Format: /top [n]
func (h *RankingHandler) HandleTop(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()

	limit := service.DefaultTopLimit
	if args := c.Args(); len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return c.Reply("❌ 用法: /top [数量]")
		}
		limit = n
	}

	entries, err := h.rankingService.Top(ctx, limit)
	if err != nil {
		return replyError(c, "top", err)
	}
	if len(entries) == 0 {
		return c.Reply("📊 暂无排行数据")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏆 猎人排行榜 TOP %d\n%s\n", len(entries), divider)

	medals := []string{"🥇", "🥈", "🥉"}
	for i, e := range entries {
		rank := fmt.Sprintf("%d.", e.Position)
		if i < len(medals) {
			rank = medals[i]
		}
		fmt.Fprintf(&b, "%s %s Lv.%d · %d 经验\n", rank, e.Name, e.Level, e.Experience)
	}
	b.WriteString(divider)
	return c.Reply(b.String())
}
