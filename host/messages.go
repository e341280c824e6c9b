package host

import "strings"

const prefix = "[Mailbox] "

// Chat lines sent to players.
const (
	msgNewMail        = prefix + "You received a new mail! Use /mail box to view it."
	msgUnread         = prefix + "You have %d unread mails! Use /mail box to open your mailbox."
	msgClaimed        = prefix + "Item claimed!"
	msgInventoryFull  = prefix + "Your inventory is full, the item stays in your mailbox."
	msgCopyTaken      = prefix + "Took a copy of %s from %s's mailbox (it stays in the mailbox)."
	msgCopyNoRoom     = prefix + "Your inventory is full, no copy was taken."
	msgDeleted        = prefix + "Removed %s from %s's mailbox."
	msgSentAll        = prefix + "Items sent to all players!"
	msgSentTarget     = prefix + "Items sent to %s!"
	msgOverflow       = prefix + "Your inventory is full, the item was put into your mailbox! Use /mail box to view it."
	msgNoPermission   = prefix + "You don't have permission to do that."
	msgPlayerNotFound = prefix + "Player not found: %s"
	msgSaveFailed     = prefix + "The mailbox could not be saved right now; the change will be retried."
)

// Grid titles.
const (
	titleOwn       = "Your Mailbox"
	titleBroadcast = "Send items to all players"
	titleTargeted  = "Send items to %s"
	titleInspect   = "%s's Mailbox (Admin)"
	titleReadOnly  = "%s's Mailbox (Read-only)"
	unknownPlayer  = "Unknown player"
)

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), b)
}
