package telegram

import (
	"fmt"

	"github.com/go-telegram/bot/models"

	"github.com/suspectuso/parqr-companion/internal/features"
	"github.com/suspectuso/parqr-companion/internal/identity"
	"github.com/suspectuso/parqr-companion/internal/parqrapi"
	"github.com/suspectuso/parqr-companion/internal/storage"
)

// Callback data
const (
	cbBack      = "back"
	cbInbox     = "inbox"
	cbRecent    = "recent"
	cbUnlink    = "unlink"
	cbRetry     = "scan_retry"
	cbFormats   = "formats"
	cbHowToLink = "how_link"
	cbCancel    = "cancel"

	cbProfilePrefix  = "profile:"
	cbChatPrefix     = "chat:"
	cbMovePrefix     = "move:"
	cbMoveReadPrefix = "mvread:"
)

// MainKeyboard returns the main menu keyboard
func MainKeyboard(linked bool) *models.InlineKeyboardMarkup {
	if !linked {
		return &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{
					{Text: "🔗 How to link", CallbackData: cbHowToLink},
					{Text: "❓ Supported codes", CallbackData: cbFormats},
				},
			},
		}
	}

	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "📬 Inbox", CallbackData: cbInbox},
				{Text: "🕘 Recent scans", CallbackData: cbRecent},
			},
			{
				{Text: "🔓 Unlink account", CallbackData: cbUnlink},
			},
		},
	}
}

// ProfileKeyboard is the navigation sink of a successful scan
func ProfileKeyboard(code identity.Identity, profileURL string, fs features.Set, linked bool) *models.InlineKeyboardMarkup {
	rows := [][]models.InlineKeyboardButton{
		{
			{Text: "🌐 Open in parQR", URL: profileURL},
		},
	}

	if linked {
		chatLabel := "💬 Message"
		if !fs.CanSendMessages {
			chatLabel = "🔒 Message (Premium)"
		}
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: chatLabel, CallbackData: cbChatPrefix + code.String()},
			{Text: "🚗 Move your car", CallbackData: cbMovePrefix + code.String()},
		})
	}

	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "⬅️ Menu", CallbackData: cbBack},
	})

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// RetryKeyboard is shown when a scan could not be resolved
func RetryKeyboard(reason identity.Reason) *models.InlineKeyboardMarkup {
	retry := models.InlineKeyboardButton{Text: "🔁 Scan again", CallbackData: cbRetry}
	formats := models.InlineKeyboardButton{Text: "❓ Supported codes", CallbackData: cbFormats}

	// an unsupported code is real, the user needs the formats more than a retry
	if reason == identity.ReasonUnsupportedEncoding {
		return &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{{formats}, {retry}},
		}
	}

	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{retry, formats}},
	}
}

// InboxKeyboard lists unread conversations and move requests
func InboxKeyboard(convs []parqrapi.Conversation, moves []parqrapi.MoveRequest) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton

	for _, c := range convs {
		if c.UnreadCount <= 0 {
			continue
		}
		name := c.ParticipantDisplayName
		if name == "" {
			name = c.ParticipantUserCode
		}
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: fmt.Sprintf("💬 %s (%d)", name, c.UnreadCount), CallbackData: cbChatPrefix + c.ParticipantUserCode},
		})
	}

	for _, m := range moves {
		if m.IsRead {
			continue
		}
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: fmt.Sprintf("✅ Seen: %s", m.LicensePlate), CallbackData: fmt.Sprintf("%s%d", cbMoveReadPrefix, m.ID)},
		})
	}

	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "🔄 Refresh", CallbackData: cbInbox},
		{Text: "⬅️ Menu", CallbackData: cbBack},
	})

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// RecentKeyboard lists recently scanned profiles
func RecentKeyboard(scans []storage.Scan) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton

	for _, s := range scans {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: "👤 " + s.UserCode.String(), CallbackData: cbProfilePrefix + s.UserCode.String()},
		})
	}

	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "⬅️ Menu", CallbackData: cbBack},
	})

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// BackKeyboard returns a simple back button
func BackKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "⬅️ Menu", CallbackData: cbBack},
			},
		},
	}
}

// CancelKeyboard aborts a pending input
func CancelKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "✖️ Cancel", CallbackData: cbCancel},
			},
		},
	}
}

// NotificationKeyboard is attached to badge pushes
func NotificationKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "📬 Open inbox", CallbackData: cbInbox},
			},
		},
	}
}
