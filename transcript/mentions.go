package transcript

import (
	"regexp"

	"discord-archive/snowflake"
)

// Raw mention tokens embed a type marker and an id: <@id> and <@!id> for
// users, <#id> for channels, <@&id> for roles, <:name:id> and <a:name:id>
// for custom emoji.
var (
	refMentionRe   = regexp.MustCompile(`<(@!?|#|@&)(\d+)>`)
	emojiMentionRe = regexp.MustCompile(`<(a?):([A-Za-z0-9_~]+):(\d+)>`)
)

// SubstituteMentions rewrites raw mention tokens into human-readable form
// using the replayed tables. A token whose target id is absent is left
// verbatim rather than failing.
func (t *Transcript) SubstituteMentions(content string) string {
	out := refMentionRe.ReplaceAllStringFunc(content, func(tok string) string {
		m := refMentionRe.FindStringSubmatch(tok)
		id, err := snowflake.ParseID(m[2])
		if err != nil {
			return tok
		}
		switch m[1] {
		case "@", "@!":
			if u, ok := t.Users[id]; ok {
				return "@" + displayName(u)
			}
		case "#":
			if ch, ok := t.Channels[id]; ok && ch.Name != "" {
				return "#" + ch.Name
			}
		case "@&":
			if r, ok := t.Roles[id]; ok {
				return "@" + r.Name
			}
		}
		return tok
	})
	return emojiMentionRe.ReplaceAllStringFunc(out, func(tok string) string {
		m := emojiMentionRe.FindStringSubmatch(tok)
		id, err := snowflake.ParseID(m[3])
		if err != nil {
			return tok
		}
		if e, ok := t.Emoji[id]; ok {
			return ":" + e.Name + ":"
		}
		return tok
	})
}
