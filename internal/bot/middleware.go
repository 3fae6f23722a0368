package bot

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"hunter-gate-bot/internal/config"
)

// defaultPrivateAccessSize bounds how many users are remembered for private chat.
const defaultPrivateAccessSize = 16384

// PrivateAccess remembers users seen in whitelisted groups, who may then use
// the bot in private chat. The least recently seen users are forgotten first.
type PrivateAccess struct {
	users *lru.Cache
}

// NewPrivateAccess creates a PrivateAccess holding up to size users.
func NewPrivateAccess(size int) (*PrivateAccess, error) {
	if size <= 0 {
		size = defaultPrivateAccessSize
	}
	users, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &PrivateAccess{users: users}, nil
}

// Allow marks a user as allowed to use private chat.
func (p *PrivateAccess) Allow(userID int64) {
	p.users.Add(userID, struct{}{})
}

// Allowed reports whether a user may use private chat.
func (p *PrivateAccess) Allowed(userID int64) bool {
	return p.users.Contains(userID)
}

// admits decides whether an update from userID in the given chat is handled.
// Group traffic from whitelisted chats also grants the sender private access.
func admits(cfg *config.Config, access *PrivateAccess, chatType tele.ChatType, chatID, userID int64) bool {
	if chatType == tele.ChatPrivate {
		// An empty whitelist admits every private chat.
		return access.Allowed(userID) || len(cfg.Whitelist.Chats) == 0
	}
	if !cfg.IsChatAllowed(chatID) {
		return false
	}
	access.Allow(userID)
	return true
}

// WhitelistMiddleware drops updates from chats that are not whitelisted.
func WhitelistMiddleware(cfg *config.Config, access *PrivateAccess) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()
			if chat == nil || sender == nil {
				return nil
			}

			if !admits(cfg, access, chat.Type, chat.ID, sender.ID) {
				log.Debug().
					Int64("chat_id", chat.ID).
					Int64("user_id", sender.ID).
					Str("chat_type", string(chat.Type)).
					Msg("Ignoring update from non-whitelisted chat")
				return nil
			}
			return next(c)
		}
	}
}

// AdminMiddleware rejects commands from users not listed in admin.ids.
func AdminMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			if !cfg.IsAdmin(sender.ID) {
				log.Warn().
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted admin command")
				return c.Reply("❌ 权限不足：需要管理员权限")
			}

			return next(c)
		}
	}
}

// LoggingMiddleware logs all incoming updates at debug level.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			ev := log.Debug()
			if sender := c.Sender(); sender != nil {
				ev = ev.Int64("user_id", sender.ID).Str("username", sender.Username)
			}
			if chat := c.Chat(); chat != nil {
				ev = ev.Int64("chat_id", chat.ID).Str("chat_type", string(chat.Type))
			}
			if cb := c.Callback(); cb != nil {
				ev = ev.Str("callback", cb.Data)
			}
			ev.Str("text", c.Text()).Msg("Received update")

			return next(c)
		}
	}
}

// RecoveryMiddleware recovers from panics in handlers.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("text", c.Text()).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ 发生内部错误，请稍后重试")
				}
			}()
			return next(c)
		}
	}
}
