// Package models defines the payload structs for every append-log record
// type, plus the crawl configuration that rides inside run_info records.
package models

// Record types as they appear before the comma on each log line.
const (
	TypeRunInfo      = "run_info"
	TypeServer       = "server"
	TypeChannel      = "channel"
	TypeRole         = "role"
	TypeCustomEmoji  = "custom_emoji"
	TypeUser         = "user"
	TypeMessage      = "message"
	TypeReaction     = "reaction"
	TypeReactionUser = "reaction_user"
	TypeRunFinished  = "run_finished"
)

// FormatVersion is the append-log format version written into run_info.
const FormatVersion = 1

// CrawlConf is the originating crawl configuration, persisted in run_info so
// a later run can resume with identical scope.
type CrawlConf struct {
	Mode    string  `json:"mode" mapstructure:"mode"` // server, channels or dm
	ID      int64   `json:"id,omitempty" mapstructure:"id"`
	IDs     []int64 `json:"ids,omitempty" mapstructure:"ids"`
	After   float64 `json:"after,omitempty" mapstructure:"after"` // lower bound, unix seconds
	Exclude []int64 `json:"exclude,omitempty" mapstructure:"exclude"`
}

// RunInfo is always the first record of a run.
type RunInfo struct {
	Argv          []string        `json:"argv"`
	Time          float64         `json:"time"`
	Version       string          `json:"version"`
	FormatVersion int             `json:"format_version"`
	Conf          CrawlConf       `json:"conf"`
	Channels      []int64         `json:"channels"`
	Watermarks    map[int64]int64 `json:"watermarks,omitempty"`
}

// RunFinished marks a clean end of a run; its absence after a run_info means
// the run was interrupted (still resumable).
type RunFinished struct {
	Time float64 `json:"time"`
}

// User is an immutable snapshot of a user at first-seen time. Member fields
// are filled only when the user was resolved through a server member list.
type User struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Discriminator string  `json:"discriminator,omitempty"`
	DisplayName   string  `json:"display_name,omitempty"`
	Bot           bool    `json:"bot,omitempty"`
	Avatar        string  `json:"avatar,omitempty"`
	CreatedAt     float64 `json:"created_at"`

	Server   int64   `json:"server,omitempty"`
	Nick     string  `json:"nick,omitempty"`
	Roles    []int64 `json:"roles,omitempty"`
	JoinedAt float64 `json:"joined_at,omitempty"`
}

// Channel is a venue definition: a guild text channel, a DM or a group DM.
type Channel struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name,omitempty"`
	Type       string  `json:"type"`
	Server     int64   `json:"server,omitempty"`
	Position   int     `json:"position,omitempty"`
	Topic      string  `json:"topic,omitempty"`
	NSFW       bool    `json:"nsfw,omitempty"`
	Category   int64   `json:"category,omitempty"`
	Recipients []int64 `json:"recipients,omitempty"`
	CreatedAt  float64 `json:"created_at"`
}

// Role belongs to a server and is referenced by member role lists.
type Role struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Server      int64   `json:"server"`
	Color       int     `json:"color"`
	Position    int     `json:"position"`
	Hoist       bool    `json:"hoist,omitempty"`
	Managed     bool    `json:"managed,omitempty"`
	Mentionable bool    `json:"mentionable,omitempty"`
	Permissions int64   `json:"permissions"`
	CreatedAt   float64 `json:"created_at"`
}

// Emoji is an immutable snapshot of a custom emoji at first-seen time.
type Emoji struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Animated  bool    `json:"animated,omitempty"`
	Managed   bool    `json:"managed,omitempty"`
	Server    int64   `json:"server,omitempty"`
	CreatedAt float64 `json:"created_at,omitempty"`
}

// Server owns venues, roles, emoji and a member id list. Captured once per
// run at crawl start for server-scoped crawls.
type Server struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Icon        string  `json:"icon,omitempty"`
	Owner       int64   `json:"owner"`
	MemberCount int     `json:"member_count"`
	Large       bool    `json:"large,omitempty"`
	Features    []string `json:"features,omitempty"`
	Roles       []int64 `json:"roles"`
	Channels    []int64 `json:"channels"`
	Emojis      []int64 `json:"emojis"`
	Members     []int64 `json:"members,omitempty"`
	CreatedAt   float64 `json:"created_at"`
}

// EmojiRef identifies a reaction's emoji. ID is zero for unicode emoji, in
// which case Name carries the literal character(s).
type EmojiRef struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name"`
	Animated bool   `json:"animated,omitempty"`
}

// ReactionSummary rides inside a message record; the per-user membership is
// recorded by the reaction_user records that follow the message.
type ReactionSummary struct {
	Emoji EmojiRef `json:"emoji"`
	Count int      `json:"count"`
}

// Attachment is one file attached to a message.
type Attachment struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	ProxyURL string `json:"proxy_url,omitempty"`
	Size     int    `json:"size"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// Message is immutable after capture; edits observed later are never
// re-fetched, only the edited timestamp seen at capture time is recorded.
type Message struct {
	ID              int64             `json:"id"`
	Channel         int64             `json:"channel"`
	Author          int64             `json:"author"`
	Content         string            `json:"content"`
	Timestamp       float64           `json:"timestamp"`
	EditedTimestamp float64           `json:"edited_timestamp,omitempty"`
	Pinned          bool              `json:"pinned,omitempty"`
	TTS             bool              `json:"tts,omitempty"`
	MentionEveryone bool              `json:"mention_everyone,omitempty"`
	Mentions        []int64           `json:"mentions,omitempty"`
	RoleMentions    []int64           `json:"role_mentions,omitempty"`
	Attachments     []Attachment      `json:"attachments,omitempty"`
	Reactions       []ReactionSummary `json:"reactions,omitempty"`
}

// Reaction is written directly after its parent message record.
type Reaction struct {
	Message int64    `json:"message"`
	Channel int64    `json:"channel"`
	Emoji   EmojiRef `json:"emoji"`
	Count   int      `json:"count"`
}

// ReactionUser records one (user, message, emoji) membership triple.
type ReactionUser struct {
	Message int64    `json:"message"`
	Channel int64    `json:"channel"`
	Emoji   EmojiRef `json:"emoji"`
	User    int64    `json:"user"`
}
