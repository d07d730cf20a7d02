package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/BTreeMap/DietCoach/internal/flow"
)

// toEvent maps an update onto the sender's user id and a flow event. ok is
// false for updates the bot ignores: edits, channel posts, group chats and
// anything without a sender.
func toEvent(update tgbotapi.Update) (userID int64, ev flow.Event, user flow.User, ok bool) {
	if cq := update.CallbackQuery; cq != nil {
		if cq.From == nil {
			return 0, nil, flow.User{}, false
		}
		return cq.From.ID, flow.CallbackEvent{Callback: flow.ParseCallback(cq.Data)}, userOf(cq.From), true
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return 0, nil, flow.User{}, false
	}
	if cmd, isCmd := flow.ParseCommand(msg.Text); isCmd {
		return msg.From.ID, flow.CommandEvent{Command: cmd}, userOf(msg.From), true
	}
	return msg.From.ID, flow.TextEvent{Text: msg.Text}, userOf(msg.From), true
}

func userOf(u *tgbotapi.User) flow.User {
	return flow.User{Username: u.UserName, FirstName: u.FirstName, LastName: u.LastName}
}

// HandleUpdate acknowledges callback queries, drops redelivered updates and
// hands the event to the dispatcher. It does not block on the conversation.
func (c *Client) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if cq := update.CallbackQuery; cq != nil {
		if _, err := c.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			slog.Warn("Client.HandleUpdate: callback not acknowledged", "callbackID", cq.ID, "error", err)
		}
	}

	userID, ev, user, ok := toEvent(update)
	if !ok {
		slog.Debug("Client.HandleUpdate: update ignored", "updateID", update.UpdateID)
		return
	}
	if c.dispatcher == nil {
		slog.Error("Client.HandleUpdate: no dispatcher configured", "updateID", update.UpdateID)
		return
	}

	updateID := update.UpdateID
	journal := c.cfg.Journal
	if journal != nil {
		fresh, err := journal.BeginUpdate(updateID, userID)
		if err != nil {
			slog.Warn("Client.HandleUpdate: journal unavailable, processing anyway", "updateID", updateID, "error", err)
		} else if !fresh {
			slog.Info("Client.HandleUpdate: duplicate update dropped", "updateID", updateID, "userID", userID)
			return
		}
	}

	done := func() {
		if journal == nil {
			return
		}
		if err := journal.FinishUpdate(updateID); err != nil {
			slog.Warn("Client.HandleUpdate: journal finish failed", "updateID", updateID, "error", err)
		}
	}
	c.dispatcher.Dispatch(flow.WithUser(ctx, user), userID, ev, done)
}

// Poll receives updates by long polling until ctx is cancelled.
func (c *Client) Poll(ctx context.Context) error {
	if err := c.DeleteWebhook(); err != nil {
		return err
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.cfg.PollTimeout
	updates := c.api.GetUpdatesChan(u)
	defer c.api.StopReceivingUpdates()

	slog.Info("Client.Poll: receiving updates", "timeout", u.Timeout)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Client.Poll: stopping")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			c.HandleUpdate(ctx, update)
		}
	}
}

// SetWebhook registers url as the update endpoint.
func (c *Client) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := c.api.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	slog.Info("Client.SetWebhook: webhook registered")
	return nil
}

// DeleteWebhook removes any registered webhook so polling can start.
func (c *Client) DeleteWebhook() error {
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return nil
}
