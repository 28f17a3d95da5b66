package transcript

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"discord-archive/models"
	"discord-archive/snowflake"
)

func displayName(u *models.User) string {
	switch {
	case u == nil:
		return "unknown"
	case u.Nick != "":
		return u.Nick
	case u.DisplayName != "":
		return u.DisplayName
	default:
		return u.Name
	}
}

func emojiLabel(ref models.EmojiRef) string {
	if ref.ID != 0 {
		return ":" + ref.Name + ":"
	}
	return ref.Name
}

// WriteText renders the transcript as a readable text stream: one line per
// message with timestamp, channel, author and substituted content, followed
// by attachment and reaction lines.
func (t *Transcript) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, msg := range t.Messages() {
		ts := time.Unix(0, int64(msg.Timestamp*float64(time.Second))).UTC()
		channel := "#" + snowflake.FormatID(msg.Channel)
		if msg.In != nil && msg.In.Name != "" {
			channel = "#" + msg.In.Name
		} else if msg.In != nil && msg.In.Type == "private" {
			channel = "(dm)"
		}
		author := displayName(msg.AuthorUser)

		edited := ""
		if msg.EditedTimestamp != 0 {
			edited = " (edited)"
		}
		fmt.Fprintf(bw, "[%s] %s <%s> %s%s\n",
			ts.Format("2006-01-02 15:04:05"), channel, author, msg.Rendered, edited)

		for _, a := range msg.Attachments {
			fmt.Fprintf(bw, "    + attachment %s (%s)\n", a.Filename, a.URL)
		}
		for _, r := range msg.Reactions {
			names := make([]string, 0, len(r.Users))
			for _, u := range r.Users {
				names = append(names, displayName(u))
			}
			who := ""
			if len(names) > 0 {
				who = " (" + strings.Join(names, ", ") + ")"
			}
			fmt.Fprintf(bw, "    + %s x%d%s\n", emojiLabel(r.Emoji), r.Count, who)
		}
	}
	return bw.Flush()
}
