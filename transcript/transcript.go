// Package transcript replays a complete append log into an in-memory entity
// graph and yields a time-ordered, de-referenced transcript. It never
// touches the network; the log is the only input.
package transcript

import (
	"errors"
	"fmt"
	"sort"

	"discord-archive/models"
	"discord-archive/records"
)

// ErrDanglingReference means a record references a parent that is absent
// from the log. Reactions are always written after their message, so this
// indicates a corrupted or out-of-order log.
var ErrDanglingReference = errors.New("dangling reference in append log")

// Reaction is one reaction on a message with its captured membership.
type Reaction struct {
	Emoji   models.EmojiRef
	Count   int
	UserIDs []int64
	Users   []*models.User // resolved; entries may be nil for unknown ids
}

// Message is a log message with its references resolved in place.
type Message struct {
	models.Message

	AuthorUser *models.User
	In         *models.Channel
	On         *models.Server
	Reactions  []*Reaction

	// Rendered is the content after human-readable mention substitution.
	Rendered string
}

// Transcript is the replayed entity graph of one log file.
type Transcript struct {
	Servers  map[int64]*models.Server
	Channels map[int64]*models.Channel
	Users    map[int64]*models.User
	Roles    map[int64]*models.Role
	Emoji    map[int64]*models.Emoji
	Runs     []models.RunInfo

	byID    map[int64]*Message
	ordered []*Message
}

// Load replays the log at path. The full table pass runs before any
// reference resolution, so definition order between unrelated records does
// not matter; only reaction records must follow their message.
func Load(path string) (*Transcript, error) {
	t := &Transcript{
		Servers:  make(map[int64]*models.Server),
		Channels: make(map[int64]*models.Channel),
		Users:    make(map[int64]*models.User),
		Roles:    make(map[int64]*models.Role),
		Emoji:    make(map[int64]*models.Emoji),
		byID:     make(map[int64]*Message),
	}
	first := true
	err := records.Scan(path, func(rec records.Record) error {
		if first {
			if rec.Type != models.TypeRunInfo {
				return fmt.Errorf("%w: first record is %q, want run_info", records.ErrCorruptLog, rec.Type)
			}
			first = false
		}
		return t.apply(rec)
	})
	if err != nil {
		return nil, err
	}
	if first {
		return nil, fmt.Errorf("%w: no run_info record found", records.ErrCorruptLog)
	}
	t.resolve()
	return t, nil
}

func (t *Transcript) apply(rec records.Record) error {
	switch rec.Type {
	case models.TypeRunInfo:
		var info models.RunInfo
		if err := decode(rec, &info); err != nil {
			return err
		}
		if info.FormatVersion < records.MinFormatVersion {
			return fmt.Errorf("%w: log format version %d, minimum supported %d",
				records.ErrIncompatibleFormat, info.FormatVersion, records.MinFormatVersion)
		}
		t.Runs = append(t.Runs, info)
	case models.TypeRunFinished:
		// Clean-end marker; nothing to index.
	case models.TypeServer:
		var s models.Server
		if err := decode(rec, &s); err != nil {
			return err
		}
		keepFirst(t.Servers, s.ID, &s)
	case models.TypeChannel:
		var c models.Channel
		if err := decode(rec, &c); err != nil {
			return err
		}
		keepFirst(t.Channels, c.ID, &c)
	case models.TypeRole:
		var r models.Role
		if err := decode(rec, &r); err != nil {
			return err
		}
		keepFirst(t.Roles, r.ID, &r)
	case models.TypeCustomEmoji:
		var e models.Emoji
		if err := decode(rec, &e); err != nil {
			return err
		}
		keepFirst(t.Emoji, e.ID, &e)
	case models.TypeUser:
		var u models.User
		if err := decode(rec, &u); err != nil {
			return err
		}
		keepFirst(t.Users, u.ID, &u)
	case models.TypeMessage:
		var m models.Message
		if err := decode(rec, &m); err != nil {
			return err
		}
		if _, ok := t.byID[m.ID]; ok {
			// Overlapping runs in one file may re-carry a boundary message;
			// the first capture wins, matching the immutable-snapshot rule.
			return nil
		}
		msg := &Message{Message: m}
		t.byID[m.ID] = msg
		t.ordered = append(t.ordered, msg)
	case models.TypeReaction:
		var r models.Reaction
		if err := decode(rec, &r); err != nil {
			return err
		}
		msg, ok := t.byID[r.Message]
		if !ok {
			return fmt.Errorf("%w: reaction on missing message %d", ErrDanglingReference, r.Message)
		}
		if findReaction(msg, r.Emoji) != nil {
			// Re-carried boundary reaction from an appended run; first
			// capture wins, like the message it belongs to.
			return nil
		}
		msg.Reactions = append(msg.Reactions, &Reaction{Emoji: r.Emoji, Count: r.Count})
	case models.TypeReactionUser:
		var ru models.ReactionUser
		if err := decode(rec, &ru); err != nil {
			return err
		}
		msg, ok := t.byID[ru.Message]
		if !ok {
			return fmt.Errorf("%w: reaction user on missing message %d", ErrDanglingReference, ru.Message)
		}
		r := findReaction(msg, ru.Emoji)
		if r == nil {
			return fmt.Errorf("%w: reaction user for unrecorded reaction %q on message %d",
				ErrDanglingReference, ru.Emoji.Name, ru.Message)
		}
		for _, id := range r.UserIDs {
			if id == ru.User {
				return nil
			}
		}
		r.UserIDs = append(r.UserIDs, ru.User)
	default:
		// Unknown record types from newer minor revisions are skipped.
	}
	return nil
}

func findReaction(msg *Message, ref models.EmojiRef) *Reaction {
	for _, r := range msg.Reactions {
		if r.Emoji.ID == ref.ID && r.Emoji.Name == ref.Name {
			return r
		}
	}
	return nil
}

func keepFirst[V any](table map[int64]*V, id int64, v *V) {
	if _, ok := table[id]; !ok {
		table[id] = v
	}
}

func decode(rec records.Record, v any) error {
	return records.Unmarshal(rec, v)
}

// resolve replaces bare ids with resolved objects now that the tables are
// fully built, and substitutes mention tokens in message content.
func (t *Transcript) resolve() {
	for _, msg := range t.ordered {
		msg.AuthorUser = t.Users[msg.Author]
		msg.In = t.Channels[msg.Channel]
		if msg.In != nil {
			msg.On = t.Servers[msg.In.Server]
		}
		for _, r := range msg.Reactions {
			for _, uid := range r.UserIDs {
				r.Users = append(r.Users, t.Users[uid])
			}
		}
		msg.Rendered = t.SubstituteMentions(msg.Content)
	}
	sort.SliceStable(t.ordered, func(i, j int) bool {
		if t.ordered[i].Timestamp != t.ordered[j].Timestamp {
			return t.ordered[i].Timestamp < t.ordered[j].Timestamp
		}
		return t.ordered[i].ID < t.ordered[j].ID
	})
}

// Messages returns the transcript in ascending timestamp order (message id
// as the tiebreak). The slice is a fresh snapshot per Load, not a stream.
func (t *Transcript) Messages() []*Message {
	return t.ordered
}

// Message looks a message up by id.
func (t *Transcript) Message(id int64) *Message {
	return t.byID[id]
}
