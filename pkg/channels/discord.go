package channels

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/bus"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/config"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/logger"
)

const (
	sendTimeout           = 10 * time.Second
	typingRefreshInterval = 8 * time.Second
	// Discord rejects messages over 2000 characters.
	discordMessageLimit = 1900
)

// DiscordChannel runs interviews in DMs and in guild channels where the bot
// is mentioned or a "!" command is used.
type DiscordChannel struct {
	*BaseChannel
	session *discordgo.Session

	typingMu sync.Mutex
	typing   map[string]context.CancelFunc
}

func NewDiscordChannel(cfg config.DiscordConfig, msgBus *bus.MessageBus) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return &DiscordChannel{
		BaseChannel: NewBaseChannel("discord", msgBus, cfg.AllowFrom),
		session:     session,
		typing:      make(map[string]context.CancelFunc),
	}, nil
}

func (c *DiscordChannel) Start(ctx context.Context) error {
	logger.InfoC("discord", "Starting Discord bot")

	c.session.AddHandler(c.handleMessage)
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	c.setRunning(true)

	if u := c.session.State.User; u != nil {
		logger.InfoCF("discord", "Discord bot connected", map[string]interface{}{
			"username": u.Username,
			"user_id":  u.ID,
		})
	}
	return nil
}

func (c *DiscordChannel) Stop(ctx context.Context) error {
	logger.InfoC("discord", "Stopping Discord bot")
	c.setRunning(false)
	c.stopAllTyping()

	if err := c.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

func (c *DiscordChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("discord bot not running")
	}
	if msg.ChatID == "" {
		return fmt.Errorf("discord channel id is empty")
	}
	defer c.endTyping(msg.ChatID)

	for _, chunk := range splitMessage(msg.Content, discordMessageLimit) {
		if err := c.sendChunk(ctx, msg.ChatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (c *DiscordChannel) sendChunk(ctx context.Context, channelID, content string) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := c.session.ChannelMessageSend(channelID, content)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send discord message: %w", err)
		}
		return nil
	case <-sendCtx.Done():
		return fmt.Errorf("send discord message: %w", sendCtx.Err())
	}
}

// splitMessage cuts content into chunks of at most limit runes, preferring
// paragraph, then line, then word boundaries.
func splitMessage(content string, limit int) []string {
	var chunks []string
	rest := []rune(strings.TrimSpace(content))
	for len(rest) > 0 {
		if len(rest) <= limit {
			chunks = append(chunks, string(rest))
			break
		}
		cut := lastBoundary(rest[:limit])
		chunks = append(chunks, strings.TrimSpace(string(rest[:cut])))
		rest = []rune(strings.TrimSpace(string(rest[cut:])))
	}
	return chunks
}

func lastBoundary(window []rune) int {
	s := string(window)
	// Only accept a boundary in the second half so chunks stay reasonably full.
	half := len(s) / 2
	for _, sep := range []string{"\n\n", "\n", " "} {
		if i := strings.LastIndex(s, sep); i > half {
			return len([]rune(s[:i]))
		}
	}
	return len(window)
}

// addressedContent returns the text meant for the interviewer. Direct
// messages always count; in guilds the bot must be mentioned or the text
// must be a "!" command.
func addressedContent(content, botID string, direct bool) (string, bool) {
	content = strings.TrimSpace(content)
	if direct || strings.HasPrefix(content, "!") {
		return content, content != ""
	}
	if botID == "" {
		return "", false
	}
	mentioned := false
	for _, tag := range []string{"<@" + botID + ">", "<@!" + botID + ">"} {
		if strings.Contains(content, tag) {
			mentioned = true
			content = strings.ReplaceAll(content, tag, "")
		}
	}
	content = strings.TrimSpace(content)
	return content, mentioned && content != ""
}

func (c *DiscordChannel) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}
	botID := ""
	if s.State != nil && s.State.User != nil {
		botID = s.State.User.ID
	}
	if m.Author.ID == botID {
		return
	}

	content, ok := addressedContent(m.Content, botID, m.GuildID == "")
	if !ok {
		return
	}

	senderID := m.Author.ID + "|" + m.Author.Username
	metadata := map[string]string{
		"message_id": m.ID,
		"user_id":    m.Author.ID,
		"username":   m.Author.Username,
		"guild_id":   m.GuildID,
		"is_dm":      fmt.Sprintf("%t", m.GuildID == ""),
	}
	if !c.HandleMessage(senderID, m.ChannelID, content, metadata) {
		logger.DebugCF("discord", "Message rejected by allowlist", map[string]interface{}{
			"user_id": m.Author.ID,
		})
		return
	}
	c.beginTyping(m.ChannelID)
}

// beginTyping shows the typing indicator until the reply is sent.
func (c *DiscordChannel) beginTyping(channelID string) {
	c.typingMu.Lock()
	if _, ok := c.typing[channelID]; ok {
		c.typingMu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.typing[channelID] = cancel
	c.typingMu.Unlock()

	go func() {
		ticker := time.NewTicker(typingRefreshInterval)
		defer ticker.Stop()
		for {
			if err := c.session.ChannelTyping(channelID); err != nil {
				logger.DebugCF("discord", "Typing indicator failed", map[string]interface{}{"error": err.Error()})
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !c.IsRunning() {
					return
				}
			}
		}
	}()
}

func (c *DiscordChannel) endTyping(channelID string) {
	c.typingMu.Lock()
	defer c.typingMu.Unlock()
	if cancel, ok := c.typing[channelID]; ok {
		cancel()
		delete(c.typing, channelID)
	}
}

func (c *DiscordChannel) stopAllTyping() {
	c.typingMu.Lock()
	defer c.typingMu.Unlock()
	for id, cancel := range c.typing {
		cancel()
		delete(c.typing, id)
	}
}
