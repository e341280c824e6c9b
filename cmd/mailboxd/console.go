package main

import (
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox/host"
	"github.com/ninepin/mailbox/store"
)

// console is the host seen from the command line: nobody is online, the
// operator holds every permission and there are no inventories.
type console struct {
	out    io.Writer
	logger *slog.Logger
}

var (
	_ host.Server    = (*console)(nil)
	_ host.Inventory = (*console)(nil)
)

func (c *console) Online(uuid.UUID) bool { return false }

func (c *console) Name(user uuid.UUID) string { return user.String() }

func (c *console) Message(user uuid.UUID, text string) {
	c.logger.Info("message", "user", user, "text", text)
}

func (c *console) HasPermission(uuid.UUID, string) bool { return true }

func (c *console) Render(user uuid.UUID, screen host.Screen) {
	c.logger.Debug("render skipped", "user", user, "title", screen.Title)
}

func (c *console) Give(uuid.UUID, store.Payload) bool { return false }
