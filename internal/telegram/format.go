package telegram

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/suspectuso/parqr-companion/internal/features"
	"github.com/suspectuso/parqr-companion/internal/feed"
	"github.com/suspectuso/parqr-companion/internal/identity"
	"github.com/suspectuso/parqr-companion/internal/inbox"
	"github.com/suspectuso/parqr-companion/internal/parqrapi"
)

var (
	plateRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9 -]{0,10}[A-Z0-9]$`)
	spaceRegex = regexp.MustCompile(`\s+`)

	errInvalidPlate = errors.New("invalid license plate")
)

const maxMessageLen = 1000

// normalizePlate upper-cases a licence plate and collapses whitespace
func normalizePlate(s string) (string, error) {
	plate := strings.ToUpper(spaceRegex.ReplaceAllString(strings.TrimSpace(s), " "))
	if !plateRegex.MatchString(plate) {
		return "", errInvalidPlate
	}
	return plate, nil
}

// callbackIdentity extracts the identity carried after a callback prefix
func callbackIdentity(data, prefix string) (identity.Identity, bool) {
	if !strings.HasPrefix(data, prefix) {
		return "", false
	}
	code := strings.TrimPrefix(data, prefix)
	if code == "" {
		return "", false
	}
	return identity.Identity(code), true
}

// commandArg returns the text after a bot command, or "" if there is none
func commandArg(text string) string {
	_, arg, _ := strings.Cut(strings.TrimSpace(text), " ")
	return strings.TrimSpace(arg)
}

func formatInbox(snap inbox.Snapshot) string {
	if snap.Total == 0 {
		return "📭 <b>No unread notifications</b>"
	}

	lines := []string{fmt.Sprintf("📬 <b>%s unread</b>\n", inbox.BadgeLabel(snap.Total))}
	if n, ok := snap.PerChannel[feed.ChannelChat]; ok {
		lines = append(lines, fmt.Sprintf("💬 Messages: <b>%d</b>", n))
	}
	if n, ok := snap.PerChannel[feed.ChannelMoveRequest]; ok {
		lines = append(lines, fmt.Sprintf("🚗 Move requests: <b>%d</b>", n))
	}
	return strings.Join(lines, "\n")
}

func formatProfile(u *parqrapi.User, enc identity.Encoding) string {
	name := u.DisplayName
	if name == "" {
		name = u.UserCode
	}

	lines := []string{
		fmt.Sprintf("👤 <b>%s</b>", html.EscapeString(name)),
		"",
		fmt.Sprintf("Code: <code>%s</code>", html.EscapeString(u.UserCode)),
	}
	if u.SignupCountryISO != "" {
		lines = append(lines, fmt.Sprintf("Country: %s", html.EscapeString(u.SignupCountryISO)))
	}
	if enc != "" {
		lines = append(lines, fmt.Sprintf("Scanned as: <i>%s</i>", enc))
	}
	return strings.Join(lines, "\n")
}

func formatResolutionFailure(reason identity.Reason) string {
	if reason == identity.ReasonUnsupportedEncoding {
		return "⚠️ <b>This parQR code can't be opened here yet.</b>\n\n" +
			"It is a short code that needs the parQR app to look it up. " +
			"Open it in the app, or ask the owner for their profile link."
	}
	return "❌ <b>That doesn't look like a parQR code.</b>\n\n" +
		"Send the text of the scanned QR code or a profile link."
}

func formatEncodings(encs []identity.Encoding, profileBaseURL, scheme string) string {
	examples := map[identity.Encoding]string{
		identity.EncodingProductionURL: profileBaseURL + "/profile/ABCD1234",
		identity.EncodingDevTunnel:     "exp://…/--/profile/ABCD1234",
		identity.EncodingCustomScheme:  scheme + "://profile/ABCD1234",
		identity.EncodingDirectToken:   "ABCD1234",
		identity.EncodingShortCode:     "QR_… (app only)",
	}

	lines := []string{"❓ <b>Supported codes</b>", ""}
	for _, enc := range encs {
		ex, ok := examples[enc]
		if !ok {
			ex = string(enc)
		}
		lines = append(lines, "• <code>"+html.EscapeString(ex)+"</code>")
	}
	return strings.Join(lines, "\n")
}

func formatAccount(code identity.Identity, tier features.Tier, fs features.Set) string {
	yesNo := func(b bool) string {
		if b {
			return "✅"
		}
		return "—"
	}

	return fmt.Sprintf(
		"👤 <b>Linked account</b>\n\n"+
			"Code: <code>%s</code>\n"+
			"Tier: <b>%s</b>\n\n"+
			"Chat: %s\n"+
			"Send messages: %s\n"+
			"Groups: %s",
		html.EscapeString(code.String()), tier,
		yesNo(fs.CanAccessChat), yesNo(fs.CanSendMessages), yesNo(fs.CanCreateGroups),
	)
}
