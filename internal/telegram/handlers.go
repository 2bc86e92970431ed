package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/suspectuso/parqr-companion/internal/config"
	"github.com/suspectuso/parqr-companion/internal/features"
	"github.com/suspectuso/parqr-companion/internal/feed"
	"github.com/suspectuso/parqr-companion/internal/identity"
	"github.com/suspectuso/parqr-companion/internal/inbox"
	"github.com/suspectuso/parqr-companion/internal/metrics"
	"github.com/suspectuso/parqr-companion/internal/parqrapi"
	"github.com/suspectuso/parqr-companion/internal/storage"
)

const (
	recentScansLimit   = 10
	inboxPreviewLimit  = 5
	markReadFetchLimit = 50
)

// Sessions drives the per-chat notification sessions
type Sessions interface {
	Activate(ctx context.Context, chatID int64, who identity.Identity, tier features.Tier)
	Deactivate(chatID int64)
	Focus(chatID int64) (inbox.Snapshot, bool)
	Features(chatID int64) (features.Set, bool)
}

// Bot wraps the telegram bot with handlers
type Bot struct {
	bot      *bot.Bot
	cfg      *config.Config
	storage  *storage.Storage
	api      *parqrapi.Client
	resolver *identity.Resolver
	sessions Sessions
	metrics  *metrics.Metrics
	states   *StateManager
	log      *slog.Logger
}

// New creates a new telegram bot
func New(cfg *config.Config, store *storage.Storage, api *parqrapi.Client, resolver *identity.Resolver, m *metrics.Metrics, log *slog.Logger) (*Bot, error) {
	b := &Bot{
		cfg:      cfg,
		storage:  store,
		api:      api,
		resolver: resolver,
		metrics:  m,
		states:   NewStateManager(),
		log:      log,
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(b.defaultHandler),
		bot.WithCallbackQueryDataHandler("", bot.MatchTypePrefix, b.callbackHandler),
	}

	tgBot, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	b.bot = tgBot

	// Register command handlers
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, b.startHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/start ", bot.MatchTypePrefix, b.startHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/link", bot.MatchTypePrefix, b.linkHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/unlink", bot.MatchTypeExact, b.unlinkHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/me", bot.MatchTypeExact, b.meHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/inbox", bot.MatchTypeExact, b.inboxHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/refresh", bot.MatchTypeExact, b.inboxHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/recent", bot.MatchTypeExact, b.recentHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/scan", bot.MatchTypePrefix, b.scanHandler)

	return b, nil
}

// SetSessions attaches the session manager; it must be called before Start
func (b *Bot) SetSessions(s Sessions) {
	b.sessions = s
}

// Start starts the bot polling
func (b *Bot) Start(ctx context.Context) {
	b.bot.Start(ctx)
}

// --- Commands ---

func (b *Bot) startHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	b.states.Clear(chatID)

	// t.me/<bot>?start=<code> deep links carry the scanned code
	if payload := commandArg(update.Message.Text); payload != "" {
		b.handleScan(ctx, chatID, payload)
		return
	}

	b.sendMessage(ctx, chatID, b.welcomeText(update.Message.From), MainKeyboard(b.isLinked(chatID)))
}

func (b *Bot) linkHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	payload := commandArg(update.Message.Text)
	if payload == "" {
		b.sendMessage(ctx, chatID, howToLinkText, MainKeyboard(false))
		return
	}

	res, err := b.resolve(payload)
	if err != nil {
		reason, _ := identity.ReasonOf(err)
		b.sendMessage(ctx, chatID, formatResolutionFailure(reason), RetryKeyboard(reason))
		return
	}

	user, err := b.api.LookupUser(ctx, res.Identity)
	if errors.Is(err, parqrapi.ErrNotFound) {
		b.sendMessage(ctx, chatID, "❌ No parQR account with that code.", MainKeyboard(false))
		return
	}
	if err != nil {
		b.log.Error("lookup user", "user_code", res.Identity.String(), "error", err)
		b.sendMessage(ctx, chatID, "❌ parQR is not reachable right now. Try again later.", nil)
		return
	}

	tier := features.ParseTier(user.UserTier)
	if _, err := b.storage.LinkAccount(chatID, res.Identity, tier); err != nil {
		b.log.Error("link account", "chat_id", chatID, "error", err)
		b.sendMessage(ctx, chatID, "❌ Could not link the account.", nil)
		return
	}

	b.sessions.Activate(ctx, chatID, res.Identity, tier)

	b.log.Info("account linked",
		"chat_id", chatID,
		"user_code", res.Identity.String(),
		"tier", tier,
	)

	text := "✅ <b>Account linked!</b>\n\n" + formatAccount(res.Identity, tier, features.Evaluate(tier)) +
		"\n\nI'll message you when something new arrives."
	b.sendMessage(ctx, chatID, text, MainKeyboard(true))
}

func (b *Bot) unlinkHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	text := b.unlink(update.Message.Chat.ID)
	b.sendMessage(ctx, update.Message.Chat.ID, text, MainKeyboard(false))
}

func (b *Bot) meHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	link, ok := b.requireLink(ctx, chatID)
	if !ok {
		return
	}

	b.sendMessage(ctx, chatID, formatAccount(link.UserCode, link.Tier, b.featuresFor(link)), MainKeyboard(true))
}

func (b *Bot) inboxHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	link, ok := b.requireLink(ctx, chatID)
	if !ok {
		return
	}

	text, kb := b.inboxView(ctx, link)
	b.sendMessage(ctx, chatID, text, kb)
}

func (b *Bot) recentHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	text, kb := b.recentView(update.Message.Chat.ID)
	b.sendMessage(ctx, update.Message.Chat.ID, text, kb)
}

func (b *Bot) scanHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	payload := commandArg(update.Message.Text)
	if payload == "" {
		b.sendMessage(ctx, chatID, scanPromptText, nil)
		return
	}
	b.handleScan(ctx, chatID, payload)
}

func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	if state, ok := b.states.Get(chatID); ok {
		switch state.State {
		case StateWaitMessage:
			b.handleWaitMessage(ctx, chatID, text, state)
		case StateWaitPlate:
			b.handleWaitPlate(ctx, chatID, text, state)
		}
		return
	}

	if strings.HasPrefix(text, "/") {
		b.sendMessage(ctx, chatID, "Unknown command.", MainKeyboard(b.isLinked(chatID)))
		return
	}

	// anything else is the text of a scanned code
	b.handleScan(ctx, chatID, text)
}

// --- Scans ---

func (b *Bot) resolve(payload string) (identity.Result, error) {
	res, err := b.resolver.Match(strings.TrimSpace(payload))
	if err != nil {
		enc := "none"
		var re *identity.ResolutionError
		if errors.As(err, &re) && re.Encoding != "" {
			enc = string(re.Encoding)
		}
		reason, _ := identity.ReasonOf(err)
		b.metrics.ObserveResolution(enc, string(reason))
		return identity.Result{}, err
	}

	b.metrics.ObserveResolution(string(res.Encoding), "resolved")
	return res, nil
}

func (b *Bot) handleScan(ctx context.Context, chatID int64, payload string) {
	res, err := b.resolve(payload)
	if err != nil {
		reason, _ := identity.ReasonOf(err)
		b.log.Debug("scan not resolved", "chat_id", chatID, "reason", reason)
		b.sendMessage(ctx, chatID, formatResolutionFailure(reason), RetryKeyboard(reason))
		return
	}

	if err := b.storage.RecordScan(chatID, res.Identity, res.Encoding); err != nil {
		b.log.Error("record scan", "chat_id", chatID, "error", err)
	}

	text, kb := b.profileView(ctx, chatID, res.Identity, res.Encoding)
	b.sendMessage(ctx, chatID, text, kb)
}

func (b *Bot) profileView(ctx context.Context, chatID int64, code identity.Identity, enc identity.Encoding) (string, *models.InlineKeyboardMarkup) {
	user, err := b.api.LookupUser(ctx, code)
	if errors.Is(err, parqrapi.ErrNotFound) {
		return "❌ This code is not linked to a parQR profile.", RetryKeyboard(identity.ReasonNoMatch)
	}
	if err != nil {
		b.log.Error("lookup user", "user_code", code.String(), "error", err)
		return "❌ parQR is not reachable right now. Try again later.", BackKeyboard()
	}

	fs, linked := b.sessions.Features(chatID)
	return formatProfile(user, enc), ProfileKeyboard(code, code.ProfileURL(b.cfg.ProfileBaseURL), fs, linked)
}

// --- Views ---

func (b *Bot) inboxView(ctx context.Context, link *storage.Link) (string, *models.InlineKeyboardMarkup) {
	snap, active := b.sessions.Focus(link.ChatID)
	if !active {
		// link exists but the session was lost, bring it back
		b.sessions.Activate(ctx, link.ChatID, link.UserCode, link.Tier)
		snap, _ = b.sessions.Focus(link.ChatID)
	}

	var convs []parqrapi.Conversation
	if _, ok := snap.PerChannel[feed.ChannelChat]; ok {
		var err error
		convs, err = b.api.Conversations(ctx, link.UserCode)
		if err != nil {
			b.log.Warn("list conversations", "user_code", link.UserCode.String(), "error", err)
		}
	}

	moves, err := b.api.MoveRequestPreview(ctx, link.UserCode, inboxPreviewLimit)
	if err != nil {
		b.log.Warn("preview move requests", "user_code", link.UserCode.String(), "error", err)
	}

	return formatInbox(snap), InboxKeyboard(convs, moves)
}

func (b *Bot) recentView(chatID int64) (string, *models.InlineKeyboardMarkup) {
	scans, err := b.storage.RecentScans(chatID, recentScansLimit)
	if err != nil {
		b.log.Error("recent scans", "chat_id", chatID, "error", err)
		return "❌ Could not load recent scans.", BackKeyboard()
	}
	if len(scans) == 0 {
		return "🕘 No scans yet. Send me the text of a parQR code.", BackKeyboard()
	}
	return "🕘 <b>Recent scans</b>", RecentKeyboard(scans)
}

func (b *Bot) unlink(chatID int64) string {
	b.states.Clear(chatID)
	b.sessions.Deactivate(chatID)

	err := b.storage.Unlink(chatID)
	if errors.Is(err, storage.ErrNotFound) {
		return "No account is linked to this chat."
	}
	if err != nil {
		b.log.Error("unlink", "chat_id", chatID, "error", err)
		return "❌ Could not unlink the account."
	}

	b.log.Info("account unlinked", "chat_id", chatID)
	return "🔓 Account unlinked. Notifications are off."
}

// --- Callbacks ---

func (b *Bot) callbackHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	cb := update.CallbackQuery
	data := cb.Data

	if strings.HasPrefix(data, cbChatPrefix) {
		b.handleChatCallback(ctx, cb, data)
		return
	}

	// Answer callback to remove loading state
	tgBot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
	})

	chatID, ok := callbackChatID(cb)
	if !ok {
		return
	}

	switch {
	case data == cbBack:
		b.states.Clear(chatID)
		b.editMessage(ctx, cb.Message, b.welcomeText(&cb.From), MainKeyboard(b.isLinked(chatID)))
	case data == cbCancel:
		b.states.Clear(chatID)
		b.editMessage(ctx, cb.Message, "Cancelled.", MainKeyboard(b.isLinked(chatID)))
	case data == cbInbox:
		link, ok := b.requireLink(ctx, chatID)
		if !ok {
			return
		}
		text, kb := b.inboxView(ctx, link)
		b.editMessage(ctx, cb.Message, text, kb)
	case data == cbRecent:
		text, kb := b.recentView(chatID)
		b.editMessage(ctx, cb.Message, text, kb)
	case data == cbUnlink:
		b.editMessage(ctx, cb.Message, b.unlink(chatID), MainKeyboard(false))
	case data == cbRetry:
		b.states.Clear(chatID)
		b.editMessage(ctx, cb.Message, scanPromptText, nil)
	case data == cbFormats:
		text := formatEncodings(b.resolver.Encodings(), b.cfg.ProfileBaseURL, b.cfg.URIScheme)
		b.editMessage(ctx, cb.Message, text, BackKeyboard())
	case data == cbHowToLink:
		b.editMessage(ctx, cb.Message, howToLinkText, BackKeyboard())
	case strings.HasPrefix(data, cbProfilePrefix):
		code, ok := callbackIdentity(data, cbProfilePrefix)
		if !ok {
			return
		}
		text, kb := b.profileView(ctx, chatID, code, "")
		b.editMessage(ctx, cb.Message, text, kb)
	case strings.HasPrefix(data, cbMovePrefix):
		b.handleMoveCallback(ctx, chatID, data)
	case strings.HasPrefix(data, cbMoveReadPrefix):
		b.handleMoveReadCallback(ctx, cb, chatID, data)
	default:
		b.log.Warn("unknown callback", "data", data, "chat_id", chatID)
	}
}

// handleChatCallback answers the query itself so a gated tap can show an alert
func (b *Bot) handleChatCallback(ctx context.Context, cb *models.CallbackQuery, data string) {
	chatID, ok := callbackChatID(cb)
	target, valid := callbackIdentity(data, cbChatPrefix)
	if !ok || !valid {
		b.answer(ctx, cb, "")
		return
	}

	link, err := b.storage.GetLink(chatID)
	if err != nil {
		b.answer(ctx, cb, "Link your parQR account first: /link <code>")
		return
	}

	if !b.featuresFor(link).CanSendMessages {
		b.answer(ctx, cb, "💎 Messaging is a parQR Premium feature.")
		return
	}
	if target == link.UserCode {
		b.answer(ctx, cb, "That's your own profile.")
		return
	}
	b.answer(ctx, cb, "")

	marked := b.markConversationRead(ctx, link.UserCode, target)
	if marked > 0 {
		b.sessions.Focus(chatID)
	}

	b.states.Set(chatID, StateWaitMessage, target)

	text := fmt.Sprintf("💬 Write a message for <code>%s</code>:", target)
	if marked > 0 {
		text = fmt.Sprintf("✔️ %d new messages marked as read.\n\n%s", marked, text)
	}
	b.sendMessage(ctx, chatID, text, CancelKeyboard())
}

func (b *Bot) markConversationRead(ctx context.Context, asUser, with identity.Identity) int {
	msgs, err := b.api.Messages(ctx, asUser, with, markReadFetchLimit, 0)
	if err != nil {
		b.log.Warn("list messages", "user_code", asUser.String(), "with", with.String(), "error", err)
		return 0
	}

	var ids []int64
	for _, m := range msgs {
		if !m.IsRead && m.SenderUserCode == with.String() {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		return 0
	}

	n, err := b.api.MarkMessagesRead(ctx, asUser, ids)
	if err != nil {
		b.log.Warn("mark messages read", "user_code", asUser.String(), "error", err)
		return 0
	}
	return n
}

func (b *Bot) handleMoveCallback(ctx context.Context, chatID int64, data string) {
	target, ok := callbackIdentity(data, cbMovePrefix)
	if !ok {
		return
	}
	link, ok := b.requireLink(ctx, chatID)
	if !ok {
		return
	}
	if target == link.UserCode {
		b.sendMessage(ctx, chatID, "That's your own profile.", BackKeyboard())
		return
	}

	b.states.Set(chatID, StateWaitPlate, target)
	b.sendMessage(ctx, chatID,
		"🚗 Send the licence plate of the car that should be moved.\nFor example: <code>B AB 1234</code>",
		CancelKeyboard(),
	)
}

func (b *Bot) handleMoveReadCallback(ctx context.Context, cb *models.CallbackQuery, chatID int64, data string) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, cbMoveReadPrefix), 10, 64)
	if err != nil {
		return
	}
	link, ok := b.requireLink(ctx, chatID)
	if !ok {
		return
	}

	if err := b.api.MarkMoveRequestRead(ctx, link.UserCode, id); err != nil {
		b.log.Error("mark move request read", "request_id", id, "error", err)
	}

	// Refresh inbox view
	text, kb := b.inboxView(ctx, link)
	b.editMessage(ctx, cb.Message, text, kb)
}

// --- FSM inputs ---

func (b *Bot) handleWaitMessage(ctx context.Context, chatID int64, text string, state ChatState) {
	if len([]rune(text)) > maxMessageLen {
		b.sendMessage(ctx, chatID,
			fmt.Sprintf("❌ The message is too long, keep it under %d characters.", maxMessageLen),
			CancelKeyboard(),
		)
		return
	}

	link, ok := b.requireLink(ctx, chatID)
	if !ok {
		b.states.Clear(chatID)
		return
	}

	// the tier may have changed since the chat button was tapped
	if !b.featuresFor(link).CanSendMessages {
		b.states.Clear(chatID)
		b.sendMessage(ctx, chatID, "💎 Messaging is a parQR Premium feature.", MainKeyboard(true))
		return
	}

	b.states.Clear(chatID)

	if _, err := b.api.SendMessage(ctx, link.UserCode, state.Target, text); err != nil {
		b.log.Error("send chat message", "user_code", link.UserCode.String(), "to", state.Target.String(), "error", err)
		b.sendMessage(ctx, chatID, "❌ The message could not be sent.", MainKeyboard(true))
		return
	}

	b.log.Info("chat message sent", "chat_id", chatID, "to", state.Target.String())
	b.sendMessage(ctx, chatID, "✅ Message sent!", MainKeyboard(true))
}

func (b *Bot) handleWaitPlate(ctx context.Context, chatID int64, text string, state ChatState) {
	plate, err := normalizePlate(text)
	if err != nil {
		b.sendMessage(ctx, chatID,
			"❌ That doesn't look like a licence plate. Use letters, digits, spaces or dashes.",
			CancelKeyboard(),
		)
		return
	}

	link, ok := b.requireLink(ctx, chatID)
	if !ok {
		b.states.Clear(chatID)
		return
	}

	b.states.Clear(chatID)

	if err := b.api.CreateMoveRequest(ctx, link.UserCode, state.Target, plate); err != nil {
		b.log.Error("create move request", "user_code", link.UserCode.String(), "to", state.Target.String(), "error", err)
		b.sendMessage(ctx, chatID, "❌ The request could not be sent.", MainKeyboard(true))
		return
	}

	// premium accounts also drop the request into the conversation
	if b.featuresFor(link).CanSendMessages {
		if _, err := b.api.SendMoveCarMessage(ctx, link.UserCode, state.Target); err != nil {
			b.log.Warn("send move car message", "to", state.Target.String(), "error", err)
		}
	}

	b.log.Info("move request sent", "chat_id", chatID, "to", state.Target.String(), "plate", plate)
	b.sendMessage(ctx, chatID, fmt.Sprintf("✅ Move request for <b>%s</b> sent!", plate), MainKeyboard(true))
}

// --- Helpers ---

const (
	howToLinkText = "🔗 <b>Link your parQR account</b>\n\n" +
		"Send <code>/link</code> followed by your user code or your profile link, e.g.\n" +
		"<code>/link ABCD1234</code>"
	scanPromptText = "📷 Send me the text of the scanned parQR code or a profile link."
)

func (b *Bot) welcomeText(from *models.User) string {
	name := ""
	if from != nil {
		name = from.FirstName
		if name == "" {
			name = from.Username
		}
	}
	if name == "" {
		name = "there"
	}

	return fmt.Sprintf(
		"Hi %s! 👋 This is the <b>parQR</b> companion.\n\n"+
			"• Send me a scanned parQR code to open the profile\n"+
			"• Link your account to get notified about messages and move requests",
		name,
	)
}

func (b *Bot) isLinked(chatID int64) bool {
	_, err := b.storage.GetLink(chatID)
	return err == nil
}

// requireLink returns the chat's link or tells the chat how to create one
func (b *Bot) requireLink(ctx context.Context, chatID int64) (*storage.Link, bool) {
	link, err := b.storage.GetLink(chatID)
	if err == nil {
		return link, true
	}
	if !errors.Is(err, storage.ErrNotFound) {
		b.log.Error("get link", "chat_id", chatID, "error", err)
	}
	b.sendMessage(ctx, chatID, howToLinkText, MainKeyboard(false))
	return nil, false
}

// featuresFor prefers the live session gate over the stored tier
func (b *Bot) featuresFor(link *storage.Link) features.Set {
	if fs, ok := b.sessions.Features(link.ChatID); ok {
		return fs
	}
	return features.Evaluate(link.Tier)
}

func callbackChatID(cb *models.CallbackQuery) (int64, bool) {
	if cb.Message.Message == nil {
		return 0, false
	}
	return cb.Message.Message.Chat.ID, true
}

func (b *Bot) answer(ctx context.Context, cb *models.CallbackQuery, alert string) {
	params := &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID}
	if alert != "" {
		params.Text = alert
		params.ShowAlert = true
	}
	if _, err := b.bot.AnswerCallbackQuery(ctx, params); err != nil {
		b.log.Error("answer callback", "error", err)
	}
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.bot.SendMessage(ctx, params)
	if err != nil {
		b.log.Error("send message", "error", err)
	}
}

func (b *Bot) editMessage(ctx context.Context, msg models.MaybeInaccessibleMessage, text string, keyboard *models.InlineKeyboardMarkup) {
	if msg.Message == nil {
		return
	}

	params := &bot.EditMessageTextParams{
		ChatID:    msg.Message.Chat.ID,
		MessageID: msg.Message.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.bot.EditMessageText(ctx, params)
	if err != nil {
		b.log.Error("edit message", "error", err)
	}
}

// SendNotification sends a badge message to a chat
func (b *Bot) SendNotification(ctx context.Context, chatID int64, text string) error {
	disablePreview := true
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: &disablePreview,
		},
		ReplyMarkup: NotificationKeyboard(),
	}

	_, err := b.bot.SendMessage(ctx, params)
	return err
}
