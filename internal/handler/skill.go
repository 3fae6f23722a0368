package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"hunter-gate-bot/internal/game/skill"
	"hunter-gate-bot/internal/model"
	"hunter-gate-bot/internal/pkg/apperr"
	"hunter-gate-bot/internal/pkg/lock"
	"hunter-gate-bot/internal/service"
)

// SkillHandler handles skill commands.
type SkillHandler struct {
	skillService *service.SkillService
	selection    *Selection
	locks        *lock.KeyedLock
}

// NewSkillHandler creates a new SkillHandler.
func NewSkillHandler(skillService *service.SkillService, selection *Selection, locks *lock.KeyedLock) *SkillHandler {
	return &SkillHandler{
		skillService: skillService,
		selection:    selection,
		locks:        locks,
	}
}

// skillOp is one of SkillService's Unlock, Equip or Unequip.
type skillOp func(ctx context.Context, userID, hunterID int64, query string) (*model.Hunter, model.Skill, error)

func skillLine(st service.SkillStatus) string {
	sk := st.Skill
	mark := "🔒"
	switch {
	case st.Equipped:
		mark = "⚔️"
	case st.Unlocked:
		mark = "✅"
	case st.Unlockable:
		mark = "🔓"
	}
	kind := "主动"
	if sk.Type == model.SkillPassive {
		kind = "被动"
	}
	return fmt.Sprintf("%s %s [%s] %s级 Lv.%d · %d点", mark, sk.Name, kind, sk.Rank, sk.LevelRequirement, sk.Cost)
}

// HandleSkills handles the /skills command.
func (h *SkillHandler) HandleSkills(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	id, err := h.selection.Require(ctx, sender.ID)
	if err != nil {
		return replyError(c, "skills", err)
	}
	hunter, statuses, err := h.skillService.Available(ctx, sender.ID, id)
	if err != nil {
		return replyError(c, "skills", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📘 %s 的技能 (技能点: %d)\n", hunter.Name, hunter.SkillPoints)
	fmt.Fprintf(&b, "装备栏: %d/%d\n%s\n", len(hunter.EquippedSkills), skill.MaxEquipped, divider)
	for _, st := range statuses {
		b.WriteString(skillLine(st))
		b.WriteString("\n")
	}
	b.WriteString(divider)
	b.WriteString("\n⚔️ 已装备 ✅ 已解锁 🔓 可解锁 🔒 未满足\n")
	b.WriteString("/unlock <技能> · /equip <技能> · /unequip <技能>")
	return c.Reply(b.String())
}

// HandleUnlock handles the /unlock command.
// Format: /unlock <skill>
func (h *SkillHandler) HandleUnlock(c tele.Context) error {
	return h.run(c, "unlock", h.skillService.Unlock, func(hn *model.Hunter, sk model.Skill) string {
		return fmt.Sprintf("✅ 已解锁 %s\n剩余技能点: %d", sk.Name, hn.SkillPoints)
	})
}

// HandleEquip handles the /equip command.
// Format: /equip <skill>
func (h *SkillHandler) HandleEquip(c tele.Context) error {
	return h.run(c, "equip", h.skillService.Equip, func(hn *model.Hunter, sk model.Skill) string {
		return fmt.Sprintf("⚔️ 已装备 %s (%d/%d)", sk.Name, len(hn.EquippedSkills), skill.MaxEquipped)
	})
}

// HandleUnequip handles the /unequip command.
// Format: /unequip <skill>
func (h *SkillHandler) HandleUnequip(c tele.Context) error {
	return h.run(c, "unequip", h.skillService.Unequip, func(hn *model.Hunter, sk model.Skill) string {
		return fmt.Sprintf("↩️ 已卸下 %s (%d/%d)", sk.Name, len(hn.EquippedSkills), skill.MaxEquipped)
	})
}

func (h *SkillHandler) run(c tele.Context, name string, op skillOp, success func(*model.Hunter, model.Skill) string) error {
	ctx, cancel := commandContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	query := strings.TrimSpace(strings.Join(c.Args(), " "))
	if query == "" {
		return c.Reply(fmt.Sprintf("❌ 用法: /%s <技能名>", name))
	}

	id, err := h.selection.Require(ctx, sender.ID)
	if err != nil {
		return replyError(c, name, err)
	}

	var (
		hunter *model.Hunter
		sk     model.Skill
	)
	err = withHunterLock(ctx, h.locks, id, func() error {
		var err error
		hunter, sk, err = op(ctx, sender.ID, id, query)
		return err
	})
	if err != nil {
		if errors.Is(err, service.ErrUnknownSkill) {
			return c.Reply(unknownSkillText(name, query, h.skillService))
		}
		if sk.ID != "" && apperr.CodeOf(err) != apperr.CodeInternal {
			return c.Reply(fmt.Sprintf("%s\n技能: %s", errorText(err), sk.Name))
		}
		return replyError(c, name, err)
	}
	return c.Reply(success(hunter, sk))
}

type skillSuggester interface {
	Suggest(query string) (model.Skill, bool)
}

// unknownSkillText answers a query that named no skill, offering the closest
// match as a command to retype.
func unknownSkillText(cmd, query string, skills skillSuggester) string {
	msg := errorText(service.ErrUnknownSkill)
	if sk, ok := skills.Suggest(query); ok {
		msg += fmt.Sprintf("\n您是不是想找 %s? 使用 /%s %s", sk.Name, cmd, sk.ID)
	}
	return msg
}
