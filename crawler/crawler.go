// Package crawler is the incremental crawl engine: it drives paginators
// over message history and reaction user lists, deduplicates referenced
// entities, and emits a single linear record stream whose on-disk order is
// the resumability contract.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"discord-archive/models"
	"discord-archive/snowflake"
	"discord-archive/utils"
)

// resumeShift is the backward safety shift applied to a resume cursor. It
// absorbs clock/identifier skew between a watermark's nominal cut and the
// actual server state; items re-fetched inside the window are discarded at
// the watermark boundary, so the shift can only widen coverage.
const resumeShift = time.Hour

// Transport supplies the page fetchers the engine drains. The discord
// package provides the real one; tests provide stubs.
type Transport interface {
	History(channelID int64) FetchFunc[*discordgo.Message]
	ReactionUsers(channelID, messageID int64, emoji *discordgo.Emoji) FetchFunc[*discordgo.User]
}

// Sink consumes the record stream. Single logical writer: the engine never
// hands records to more than one Sink and never reorders after emission.
type Sink interface {
	Write(recordType string, payload any) error
}

// Crawler owns the watermark set and the run-scoped seen sets for exactly
// one crawl run.
type Crawler struct {
	transport Transport
	sink      Sink

	users    *SeenSet
	emoji    *SeenSet
	channels *SeenSet

	watermarks map[int64]int64
	members    map[int64]*discordgo.Member
	serverID   int64

	historyLimit  int
	reactionLimit int
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithPageSizes overrides the history and reaction-user page sizes.
func WithPageSizes(history, reaction int) Option {
	return func(c *Crawler) {
		if history > 0 {
			c.historyLimit = history
		}
		if reaction > 0 {
			c.reactionLimit = reaction
		}
	}
}

// New builds a crawl engine. watermarks maps venue id to the highest
// message id already captured (from the resume planner); it may be nil for
// a fresh crawl. The engine takes ownership and advances it in place.
func New(transport Transport, sink Sink, watermarks map[int64]int64, opts ...Option) *Crawler {
	if watermarks == nil {
		watermarks = make(map[int64]int64)
	}
	c := &Crawler{
		transport:     transport,
		sink:          sink,
		users:         NewSeenSet(),
		emoji:         NewSeenSet(),
		channels:      NewSeenSet(),
		watermarks:    watermarks,
		members:       make(map[int64]*discordgo.Member),
		historyLimit:  100,
		reactionLimit: 100,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Watermarks returns a copy of the current per-venue watermark set.
func (c *Crawler) Watermarks() map[int64]int64 {
	out := make(map[int64]int64, len(c.watermarks))
	for k, v := range c.watermarks {
		out[k] = v
	}
	return out
}

func (c *Crawler) write(recordType string, payload any) error {
	if err := c.sink.Write(recordType, payload); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// EmitServerDefinitions writes the server record and its role, emoji and
// channel definitions, once per run. Emoji go through the run's seen set so
// reactions later in the stream do not re-emit them.
func (c *Crawler) EmitServerDefinitions(guild *discordgo.Guild, venues []*discordgo.Channel, members []*discordgo.Member) error {
	serverID, _ := snowflake.ParseID(guild.ID)
	c.serverID = serverID

	channelIDs := make([]int64, 0, len(venues))
	for _, ch := range venues {
		id, _ := snowflake.ParseID(ch.ID)
		channelIDs = append(channelIDs, id)
	}
	memberIDs := make([]int64, 0, len(members))
	for _, m := range members {
		id, _ := snowflake.ParseID(m.User.ID)
		memberIDs = append(memberIDs, id)
		c.members[id] = m
	}

	if err := c.write(models.TypeServer, models.ServerFromDiscord(guild, channelIDs, memberIDs)); err != nil {
		return err
	}
	for _, r := range guild.Roles {
		if err := c.write(models.TypeRole, models.RoleFromDiscord(r, serverID)); err != nil {
			return err
		}
	}
	for _, e := range guild.Emojis {
		id, _ := snowflake.ParseID(e.ID)
		if !c.emoji.Observe(id) {
			continue
		}
		if err := c.write(models.TypeCustomEmoji, models.EmojiFromDiscord(e, serverID)); err != nil {
			return err
		}
	}
	for _, ch := range venues {
		if err := c.emitVenueDefinition(ch); err != nil {
			return err
		}
	}
	return nil
}

// emitVenueDefinition writes a venue's channel record on first reference.
func (c *Crawler) emitVenueDefinition(ch *discordgo.Channel) error {
	id, _ := snowflake.ParseID(ch.ID)
	if !c.channels.Observe(id) {
		return nil
	}
	return c.write(models.TypeChannel, models.ChannelFromDiscord(ch))
}

// ensureUser emits a user definition record on the user's first sighting in
// this run. Member context (nick, roles) is attached when known.
func (c *Crawler) ensureUser(u *discordgo.User) error {
	id, _ := snowflake.ParseID(u.ID)
	if !c.users.Observe(id) {
		return nil
	}
	if m, ok := c.members[id]; ok {
		return c.write(models.TypeUser, models.UserFromMember(m, c.serverID))
	}
	return c.write(models.TypeUser, models.UserFromDiscord(u))
}

// Run crawls each venue in the given order. Per-venue failures are logged
// and skipped so one broken venue never aborts its siblings; only log write
// failures and cancellation escape.
func (c *Crawler) Run(ctx context.Context, venues []*discordgo.Channel) error {
	for i, ch := range venues {
		utils.Infof("crawler", "venue", "==> %s (%s) [%d/%d]", ch.ID, venueLabel(ch), i+1, len(venues))
		if err := c.CrawlVenue(ctx, ch); err != nil {
			if errors.Is(err, ErrWriteFailed) || ctx.Err() != nil {
				return err
			}
			utils.Error("crawler", "venue", fmt.Sprintf("venue %s failed, watermark kept for resume: %v", ch.ID, err))
		}
	}
	return nil
}

func venueLabel(ch *discordgo.Channel) string {
	if ch.Name != "" {
		return ch.Name
	}
	return models.ChannelTypeName(ch.Type)
}

// CrawlVenue drains one venue's history from its watermark. The fetch
// cursor is shifted one hour back from the watermark; messages at or below
// the watermark are fetched but discarded, guaranteeing no gap at the
// boundary without duplicate emission.
func (c *Crawler) CrawlVenue(ctx context.Context, ch *discordgo.Channel) error {
	venueID, err := snowflake.ParseID(ch.ID)
	if err != nil {
		return err
	}
	if err := c.emitVenueDefinition(ch); err != nil {
		return err
	}

	watermark := c.watermarks[venueID]
	after := int64(0)
	if watermark > 0 {
		after = snowflake.FromTime(snowflake.Time(watermark).Add(-resumeShift))
	}

	pg := NewPaginator(ctx, c.transport.History(venueID), messageID, after, c.historyLimit)
	if ch.LastMessageID != "" {
		if last, err := snowflake.ParseID(ch.LastMessageID); err == nil {
			pg.SetEnd(snowflake.Time(last))
		}
	}

	emitted := 0
	for pg.Scan() {
		m := pg.Item()
		if m.Type != discordgo.MessageTypeDefault {
			continue
		}
		mid, err := snowflake.ParseID(m.ID)
		if err != nil {
			continue
		}
		if mid <= watermark {
			// Boundary overlap from the safety shift; already captured.
			continue
		}

		if m.Author != nil {
			if err := c.ensureUser(m.Author); err != nil {
				return err
			}
		}
		if err := c.write(models.TypeMessage, models.MessageFromDiscord(m)); err != nil {
			return err
		}
		for _, r := range m.Reactions {
			if err := c.crawlReaction(ctx, venueID, mid, r); err != nil {
				return err
			}
		}

		watermark = mid
		c.watermarks[venueID] = watermark
		emitted++
		if emitted%500 == 0 {
			utils.Infof("crawler", "progress", "%s (%s): %.2f%% (%d messages, at %s)",
				ch.ID, venueLabel(ch), pg.Progress()*100, emitted,
				snowflake.Time(pg.Cursor()).Format("2006-01-02"))
		}
	}
	if err := pg.Err(); err != nil {
		return err
	}
	if emitted == 0 {
		utils.Infof("crawler", "venue", "%s (%s) has no new messages", ch.ID, venueLabel(ch))
	} else {
		utils.Infof("crawler", "venue", "%s (%s) done, %d messages", ch.ID, venueLabel(ch), emitted)
	}
	return nil
}

// crawlReaction emits the reaction definition, its emoji (first sighting
// only) and the reaction's user membership. Transport failures here orphan
// this one reaction's membership list and are not fatal to the venue.
func (c *Crawler) crawlReaction(ctx context.Context, venueID, messageID int64, r *discordgo.MessageReactions) error {
	if r.Emoji == nil {
		return nil
	}
	ref := models.EmojiRefFromDiscord(r.Emoji)
	if err := c.write(models.TypeReaction, models.Reaction{
		Message: messageID,
		Channel: venueID,
		Emoji:   ref,
		Count:   r.Count,
	}); err != nil {
		return err
	}
	if ref.ID != 0 && c.emoji.Observe(ref.ID) {
		if err := c.write(models.TypeCustomEmoji, models.EmojiFromDiscord(r.Emoji, c.serverID)); err != nil {
			return err
		}
	}

	pg := NewPaginator(ctx, c.transport.ReactionUsers(venueID, messageID, r.Emoji), userID, 0, c.reactionLimit)
	for pg.Scan() {
		u := pg.Item()
		uid, err := snowflake.ParseID(u.ID)
		if err != nil {
			continue
		}
		if err := c.ensureUser(u); err != nil {
			return err
		}
		if err := c.write(models.TypeReactionUser, models.ReactionUser{
			Message: messageID,
			Channel: venueID,
			Emoji:   ref,
			User:    uid,
		}); err != nil {
			return err
		}
	}
	if err := pg.Err(); err != nil {
		if ctx.Err() != nil {
			return err
		}
		// No retry: the membership list stays partially captured.
		utils.Warn("crawler", "reaction",
			fmt.Sprintf("reaction %s on message %d: user list partially captured: %v", ref.Name, messageID, err))
	}
	return nil
}

func messageID(m *discordgo.Message) int64 {
	id, _ := snowflake.ParseID(m.ID)
	return id
}

func userID(u *discordgo.User) int64 {
	id, _ := snowflake.ParseID(u.ID)
	return id
}
