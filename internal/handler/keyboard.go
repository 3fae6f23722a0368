package handler

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"hunter-gate-bot/internal/model"
)

// Callback data prefixes.
const (
	GatePrefix   = "gate_"
	HunterPrefix = "hunter_"
)

// Callback actions.
const (
	actionClear   = "clear"
	actionNext    = "next"
	actionAbandon = "abandon"
	actionSelect  = "select"
)

// EncodeCallback joins prefix, action and parameter into callback data.
func EncodeCallback(prefix, action, param string) string {
	if param != "" {
		return fmt.Sprintf("%s%s_%s", prefix, action, param)
	}
	return prefix + action
}

// DecodeCallback splits callback data produced by EncodeCallback. Telebot
// may prepend \f to data it did not generate itself.
func DecodeCallback(prefix, data string) (action, param string) {
	data = strings.TrimPrefix(data, "\f")
	if !strings.HasPrefix(data, prefix) {
		return "", ""
	}
	action, param, _ = strings.Cut(strings.TrimPrefix(data, prefix), "_")
	return action, param
}

// BuildGatePanel returns the buttons for the gate's current room.
func BuildGatePanel(g *model.Gate) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	id := g.ID.String()

	var main tele.InlineButton
	if g.RoomStatus == model.RoomCleared {
		text := "➡️ 前进"
		if g.IsFinalRoom() {
			text = "🏁 完成副本"
		}
		main = tele.InlineButton{Text: text, Data: EncodeCallback(GatePrefix, actionNext, id)}
	} else {
		main = tele.InlineButton{Text: "⚔️ 清理房间", Data: EncodeCallback(GatePrefix, actionClear, id)}
	}

	abandon := tele.InlineButton{
		Text: "🚪 放弃",
		Data: EncodeCallback(GatePrefix, actionAbandon, strconv.FormatInt(g.HunterID, 10)),
	}

	markup.InlineKeyboard = [][]tele.InlineButton{{main}, {abandon}}
	return markup
}

// BuildHunterPicker lists the user's hunters as select buttons, one per row.
func BuildHunterPicker(hunters []*model.Hunter, selected int64) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	for _, h := range hunters {
		text := fmt.Sprintf("%s · Lv.%d %s", h.Name, h.Level, h.Rank)
		if h.ID == selected {
			text = "✅ " + text
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, []tele.InlineButton{{
			Text: text,
			Data: EncodeCallback(HunterPrefix, actionSelect, strconv.FormatInt(h.ID, 10)),
		}})
	}
	return markup
}
