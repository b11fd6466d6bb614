// Copyright (c) 2025 BVK Chaitanya

// Package telegram implements the chat side of goldalert: sending alerts to
// the destination chat and dispatching inbound slash commands to handlers.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/bvk/goldalert/ctxutil"
	"github.com/bvkgo/kv"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/visvasity/cli"
)

// ErrDelivery is returned when a message could not be delivered to Telegram.
var ErrDelivery = errors.New("telegram delivery failed")

type CmdFunc = cli.CmdFunc

type Command struct {
	Name    string
	Purpose string
	Handler CmdFunc

	re *regexp.Regexp
}

// api is the subset of the bot methods used by the client.
type api interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SetMyCommands(ctx context.Context, params *bot.SetMyCommandsParams) (bool, error)
}

// Menu entries are limited to the names accepted by the Bot API.
var menuNameRe = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)

type Client struct {
	cg ctxutil.CloseGroup

	db kv.Database

	api api

	botName string

	creds *Credentials

	mu sync.Mutex

	state *State

	commands []*Command
}

// New connects to the Bot API, loads the saved bot state and starts
// long-polling for updates in the background.
func New(ctx context.Context, db kv.Database, creds *Credentials) (*Client, error) {
	if err := creds.Check(); err != nil {
		return nil, err
	}

	c := &Client{
		db:    db,
		creds: creds.Clone(),
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(c.handler),
	}
	b, err := bot.New(creds.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create telegram bot: %w", err)
	}
	self, err := b.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not fetch bot information: %w", err)
	}
	if err := c.init(ctx, b, self.Username); err != nil {
		return nil, err
	}

	c.cg.Go(func(ctx context.Context) {
		b.Start(ctx)
	})
	return c, nil
}

func (c *Client) init(ctx context.Context, api api, botName string) error {
	c.api = api
	c.botName = botName

	state, err := loadState(ctx, c.db, stateKey(botName))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		state = new(State)
	}
	c.state = state
	return nil
}

func (c *Client) Close() error {
	c.cg.Close()
	return nil
}

func (c *Client) BotUserName() string {
	return c.botName
}

// ChatID returns the destination chat for alerts. Configured chat id takes
// precedence over the learned one.
func (c *Client) ChatID() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.creds.ChatID != 0 {
		return c.creds.ChatID, true
	}
	if c.state.ChatID != 0 {
		return c.state.ChatID, true
	}
	return 0, false
}

// AddCommand registers a handler for the "/name" command. Words following the
// command name are passed to the handler as arguments. Names that are valid
// Bot API command names are also added to the bot's command menu.
func (c *Client) AddCommand(ctx context.Context, name, purpose string, handler CmdFunc) error {
	if len(name) == 0 || len(purpose) == 0 || handler == nil {
		return os.ErrInvalid
	}
	if strings.ContainsAny(name, " \t\r\n/@") {
		return fmt.Errorf("command name %q is invalid: %w", name, os.ErrInvalid)
	}

	cmd := &Command{
		Name:    name,
		Purpose: purpose,
		Handler: handler,
		re:      regexp.MustCompile(`(?s)^/` + regexp.QuoteMeta(name) + `(?:@(\w+))?(?:\s+(.*?))?\s*$`),
	}

	c.mu.Lock()
	for _, v := range c.commands {
		if v.Name == name {
			c.mu.Unlock()
			return os.ErrExist
		}
	}
	c.commands = append(c.commands, cmd)
	params := c.menuLocked()
	c.mu.Unlock()

	if !menuNameRe.MatchString(name) {
		return nil
	}
	if ok, err := c.api.SetMyCommands(ctx, params); err != nil {
		return fmt.Errorf("could not set bot commands: %w", err)
	} else if !ok {
		return fmt.Errorf("could not set bot commands")
	}
	return nil
}

func (c *Client) menuLocked() *bot.SetMyCommandsParams {
	var cmds []models.BotCommand
	for _, cmd := range c.commands {
		if !menuNameRe.MatchString(cmd.Name) {
			continue
		}
		cmds = append(cmds, models.BotCommand{
			Command:     cmd.Name,
			Description: cmd.Purpose,
		})
	}
	return &bot.SetMyCommandsParams{
		Commands: cmds,
	}
}

// match returns the command and its arguments for the input message text.
func (c *Client) match(text string) (*Command, []string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cmd := range c.commands {
		m := cmd.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if len(m[1]) != 0 && !strings.EqualFold(m[1], c.botName) {
			continue
		}
		return cmd, strings.Fields(m[2]), true
	}
	return nil, nil, false
}

// SendMessage sends a plain text message to the input chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	p := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if _, err := c.api.SendMessage(ctx, p); err != nil {
		return fmt.Errorf("could not send message to chat %d: %w: %w", chatID, ErrDelivery, err)
	}
	return nil
}

// Notify sends the input text to the destination chat.
func (c *Client) Notify(ctx context.Context, text string) error {
	chatID, ok := c.ChatID()
	if !ok {
		return fmt.Errorf("destination chat is not known yet: %w", ErrDelivery)
	}
	slog.Info("sending notification", "chat-id", chatID, "message", text)
	return c.SendMessage(ctx, chatID, text)
}

func (c *Client) handler(ctx context.Context, _ *bot.Bot, update *models.Update) {
	c.dispatch(ctx, update)
}

func (c *Client) dispatch(ctx context.Context, update *models.Update) {
	if update.Message == nil || len(update.Message.Text) == 0 {
		return
	}
	msg := update.Message

	cmd, args, ok := c.match(msg.Text)
	if !ok {
		return
	}

	var sender string
	if msg.From != nil {
		sender = msg.From.Username
	}

	if err := c.learnChatID(ctx, msg.Chat.ID, sender); err != nil {
		slog.Warn("could not save the learned chat id (ignored)", "chat-id", msg.Chat.ID, "err", err)
	}

	var sb strings.Builder
	if err := cmd.Handler(cli.WithStdout(ctx, &sb), args); err != nil {
		slog.Error("could not handle user command (ignored)", "cmd", cmd.Name, "user", sender, "err", err)
		return
	}
	if sb.Len() == 0 {
		return
	}

	True := true
	p := &bot.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   sb.String(),
		ReplyParameters: &models.ReplyParameters{
			MessageID: msg.ID,
		},
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: &True,
		},
	}
	if _, err := c.api.SendMessage(ctx, p); err != nil {
		slog.Error("could not reply to user command (ignored)", "cmd", cmd.Name, "chat-id", msg.Chat.ID, "err", err)
	}
}

func (c *Client) learnChatID(ctx context.Context, chatID int64, sender string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.creds.ChatID != 0 || c.state.ChatID != 0 {
		return nil
	}

	state := &State{
		ChatID:      chatID,
		LearnedFrom: sender,
		LearnedAt:   time.Now(),
	}
	if err := saveState(ctx, c.db, stateKey(c.botName), state); err != nil {
		return err
	}
	c.state = state
	slog.Info("learned destination chat id from inbound command", "chat-id", chatID, "user", sender)
	return nil
}
