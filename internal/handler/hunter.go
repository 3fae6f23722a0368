package handler

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"hunter-gate-bot/internal/model"
	"hunter-gate-bot/internal/pkg/lock"
	"hunter-gate-bot/internal/service"
)

// HunterHandler handles hunter management commands.
type HunterHandler struct {
	hunterService      *service.HunterService
	progressionService *service.ProgressionService
	selection          *Selection
	locks              *lock.KeyedLock
}

// NewHunterHandler creates a new HunterHandler.
func NewHunterHandler(hunterService *service.HunterService, progressionService *service.ProgressionService, selection *Selection, locks *lock.KeyedLock) *HunterHandler {
	return &HunterHandler{
		hunterService:      hunterService,
		progressionService: progressionService,
		selection:          selection,
		locks:              locks,
	}
}

func classList() string {
	names := make([]string, 0, len(model.Classes()))
	for _, cl := range model.Classes() {
		names = append(names, string(cl))
	}
	return strings.Join(names, " / ")
}

func statList() string {
	names := make([]string, 0, len(model.Stats()))
	for _, s := range model.Stats() {
		names = append(names, s.String())
	}
	return strings.Join(names, " / ")
}

// HandleStart handles the /start command.
func (h *HunterHandler) HandleStart(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	hunters, err := h.hunterService.List(ctx, sender.ID)
	if err != nil {
		return replyError(c, "start", err)
	}

	msg := "⚔️ 欢迎来到猎人协会！\n\n"
	if len(hunters) == 0 {
		msg += fmt.Sprintf("您还没有猎人。\n创建: /create <名字> <职业>\n可选职业: %s\n\n", classList())
	}
	msg += "可用命令:\n" +
		"/hunters - 我的猎人\n" +
		"/profile - 猎人资料\n" +
		"/stat <属性> - 分配属性点\n" +
		"/skills - 技能列表\n" +
		"/gate - 当前传送门\n" +
		"/locate - 寻找传送门\n" +
		"/wallet - 资金流水\n" +
		"/top - 猎人排行榜"
	return c.Reply(msg)
}

// HandleCreate handles the /create command.
// Format: /create <name> <class>
func (h *HunterHandler) HandleCreate(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 2 {
		return c.Reply(fmt.Sprintf("❌ 用法: /create <名字> <职业>\n可选职业: %s", classList()))
	}
	name := strings.Join(args[:len(args)-1], " ")
	class := args[len(args)-1]

	hunter, err := h.hunterService.Create(ctx, sender.ID, name, class)
	if err != nil {
		return replyError(c, "create", err)
	}
	h.selection.Select(sender.ID, hunter.ID)

	return c.Reply(fmt.Sprintf(
		"🎉 猎人 %s 已觉醒！\n\n"+
			"职业: %s\n"+
			"等级: Lv.%d · %s 级\n"+
			"ID: #%d\n\n"+
			"使用 /locate 寻找第一个传送门",
		hunter.Name, hunter.Class, hunter.Level, hunter.Rank, hunter.ID,
	))
}

// HandleHunters handles the /hunters command.
func (h *HunterHandler) HandleHunters(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	hunters, err := h.hunterService.List(ctx, sender.ID)
	if err != nil {
		return replyError(c, "hunters", err)
	}
	if len(hunters) == 0 {
		return replyError(c, "hunters", errNoHunter)
	}

	selected, _, err := h.selection.Current(ctx, sender.ID)
	if err != nil {
		return replyError(c, "hunters", err)
	}
	return c.Reply("🧑‍🤝‍🧑 我的猎人 (点击切换)", BuildHunterPicker(hunters, selected))
}

// HandleSelect handles the /select command.
// Format: /select <hunter_id>
func (h *HunterHandler) HandleSelect(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ 用法: /select <猎人ID>")
	}
	id, ok := parseID(args[0])
	if !ok {
		return c.Reply("❌ 请输入有效的猎人ID")
	}
	return h.selectHunter(c, id)
}

// HandleSelectCallback handles hunter picker buttons.
func (h *HunterHandler) HandleSelectCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}
	action, param := DecodeCallback(HunterPrefix, callback.Data)
	id, ok := parseID(param)
	if action != actionSelect || !ok {
		return c.Respond(&tele.CallbackResponse{Text: "❌ 无效操作"})
	}
	return h.selectHunter(c, id)
}

func (h *HunterHandler) selectHunter(c tele.Context, hunterID int64) error {
	ctx, cancel := commandContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	hunter, err := h.hunterService.Get(ctx, sender.ID, hunterID)
	if err != nil {
		return replyError(c, "select", err)
	}
	h.selection.Select(sender.ID, hunter.ID)

	msg := fmt.Sprintf("✅ 当前猎人: %s (Lv.%d %s)", hunter.Name, hunter.Level, hunter.Rank)
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: msg})
	}
	return c.Reply(msg)
}

// HandleDelete handles the /delete command.
// Format: /delete <hunter_id>
func (h *HunterHandler) HandleDelete(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ 用法: /delete <猎人ID>\n⚠️ 删除后无法恢复")
	}
	id, ok := parseID(args[0])
	if !ok {
		return c.Reply("❌ 请输入有效的猎人ID")
	}

	err := withHunterLock(ctx, h.locks, id, func() error {
		return h.hunterService.Delete(ctx, sender.ID, id)
	})
	if err != nil {
		return replyError(c, "delete", err)
	}
	h.selection.Forget(sender.ID, id)
	return c.Reply(fmt.Sprintf("🗑 猎人 #%d 已删除", id))
}

// HandleProfile handles the /profile command.
func (h *HunterHandler) HandleProfile(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	id, err := h.selection.Require(ctx, sender.ID)
	if err != nil {
		return replyError(c, "profile", err)
	}
	p, err := h.hunterService.Profile(ctx, sender.ID, id)
	if err != nil {
		return replyError(c, "profile", err)
	}
	return c.Reply(formatProfile(p))
}

func formatProfile(p *service.Profile) string {
	hn, d, a := p.Hunter, p.Derived, p.Hunter.Attributes

	var b strings.Builder
	fmt.Fprintf(&b, "📜 %s · %s\n%s\n", hn.Name, hn.Class, divider)
	fmt.Fprintf(&b, "🎖 等级: Lv.%d · %s 级\n", hn.Level, hn.Rank)
	if p.Progress.NeededForNext > 0 {
		fmt.Fprintf(&b, "✨ 经验: %d/%d (总 %d)\n", p.Progress.IntoLevel, p.Progress.NeededForNext, hn.Experience)
	} else {
		fmt.Fprintf(&b, "✨ 经验: %d (满级)\n", hn.Experience)
	}
	fmt.Fprintf(&b, "❤️ HP: %d/%d   🔷 MP: %d/%d\n", p.HP, d.MaxHP, p.MP, d.MaxMP)
	fmt.Fprintf(&b, "%s\n", divider)
	fmt.Fprintf(&b, "力量 %d · 敏捷 %d · 感知 %d · 智力 %d · 体力 %d\n",
		a.Strength, a.Agility, a.Perception, a.Intelligence, a.Vitality)
	fmt.Fprintf(&b, "攻击 %d · 防御 %d · 速度 %d\n", d.BasicAttack, d.Defense, d.Speed)
	fmt.Fprintf(&b, "暴击 %d%% (x%d%%) · 闪避 %d%% · 命中 %d%% · 冷却缩减 %d%%\n",
		d.CritRate, d.CritDamage, d.Evasion, d.Precision, d.CooldownReduction)
	fmt.Fprintf(&b, "%s\n", divider)
	fmt.Fprintf(&b, "📈 属性点: %d   📘 技能点: %d\n", hn.StatPoints, hn.SkillPoints)
	fmt.Fprintf(&b, "💰 金币: %d   💎 钻石: %d\n", hn.Gold, hn.Diamonds)
	if p.Placement > 0 {
		fmt.Fprintf(&b, "🏆 排名: #%d\n", p.Placement)
	}
	if len(p.Items) > 0 {
		fmt.Fprintf(&b, "%s\n🎒 背包:\n", divider)
		for _, it := range p.Items {
			fmt.Fprintf(&b, "  %s x%d\n", it.ItemID, it.Quantity)
		}
	}
	b.WriteString(divider)
	return b.String()
}

// HandleStat handles the /stat command.
// Format: /stat <strength|agility|perception|intelligence|vitality>
func (h *HunterHandler) HandleStat(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply(fmt.Sprintf("❌ 用法: /stat <属性>\n可选属性: %s", statList()))
	}

	id, err := h.selection.Require(ctx, sender.ID)
	if err != nil {
		return replyError(c, "stat", err)
	}

	var hunter *model.Hunter
	err = withHunterLock(ctx, h.locks, id, func() error {
		var err error
		hunter, err = h.progressionService.AllocateStat(ctx, sender.ID, id, args[0])
		return err
	})
	if err != nil {
		return replyError(c, "stat", err)
	}

	stat, _ := model.ParseStat(args[0])
	return c.Reply(fmt.Sprintf(
		"✅ %s +1 → %d\n剩余属性点: %d",
		stat, hunter.Attributes.Get(stat), hunter.StatPoints,
	))
}

// HandleWallet handles the /wallet command.
// Shows balances and the most recent currency changes.
func (h *HunterHandler) HandleWallet(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	id, err := h.selection.Require(ctx, sender.ID)
	if err != nil {
		return replyError(c, "wallet", err)
	}
	hunter, err := h.hunterService.Get(ctx, sender.ID, id)
	if err != nil {
		return replyError(c, "wallet", err)
	}
	entries, err := h.hunterService.History(ctx, sender.ID, id, 0)
	if err != nil {
		return replyError(c, "wallet", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "💰 %s 的钱包\n%s\n", hunter.Name, divider)
	fmt.Fprintf(&b, "金币: %d   钻石: %d\n%s\n", hunter.Gold, hunter.Diamonds, divider)
	if len(entries) == 0 {
		b.WriteString("暂无流水\n")
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s 金币 %s", e.CreatedAt.Format("01-02 15:04"), e.Type, signed(e.GoldDelta))
		if e.DiamondDelta != 0 {
			fmt.Fprintf(&b, " 钻石 %s", signed(e.DiamondDelta))
		}
		if e.Description != nil {
			fmt.Fprintf(&b, " (%s)", *e.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString(divider)

	log.Debug().Int64("hunter_id", id).Int("entries", len(entries)).Msg("Wallet shown")
	return c.Reply(b.String())
}
