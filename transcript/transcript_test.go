package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discord-archive/records"
)

const header = `run_info,{"format_version":1}`

func loadLog(t *testing.T, lines ...string) (*Transcript, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.records")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return Load(path)
}

func TestLoadResolvesForwardReferences(t *testing.T) {
	// The user and channel definitions land after the message that references
	// them; two-pass replay resolves them anyway.
	tr, err := loadLog(t,
		header,
		`message,{"id":100,"channel":1,"author":2,"content":"hello","timestamp":10}`,
		`channel,{"id":1,"name":"general","type":"text"}`,
		`user,{"id":2,"name":"alice"}`,
	)
	require.NoError(t, err)

	msg := tr.Message(100)
	require.NotNil(t, msg)
	require.NotNil(t, msg.AuthorUser)
	assert.Equal(t, "alice", msg.AuthorUser.Name)
	require.NotNil(t, msg.In)
	assert.Equal(t, "general", msg.In.Name)
}

func TestLoadOrdersByTimestampThenID(t *testing.T) {
	tr, err := loadLog(t,
		header,
		`message,{"id":300,"channel":1,"author":2,"timestamp":30}`,
		`message,{"id":101,"channel":2,"author":2,"timestamp":10}`,
		`message,{"id":100,"channel":1,"author":2,"timestamp":10}`,
	)
	require.NoError(t, err)

	var ids []int64
	for _, m := range tr.Messages() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []int64{100, 101, 300}, ids)
}

func TestLoadKeepsFirstCaptureOfDuplicates(t *testing.T) {
	tr, err := loadLog(t,
		header,
		`user,{"id":2,"name":"alice"}`,
		`message,{"id":100,"channel":1,"author":2,"content":"original","timestamp":10}`,
		`run_finished,{"time":1}`,
		// A second run re-carries the boundary message and the user.
		header,
		`user,{"id":2,"name":"alice-renamed"}`,
		`message,{"id":100,"channel":1,"author":2,"content":"edited","timestamp":10}`,
	)
	require.NoError(t, err)

	require.Len(t, tr.Messages(), 1)
	assert.Equal(t, "original", tr.Message(100).Content)
	assert.Equal(t, "alice", tr.Users[2].Name)
	assert.Len(t, tr.Runs, 2)
}

func TestLoadKeepsFirstCaptureOfDuplicateReactions(t *testing.T) {
	tr, err := loadLog(t,
		header,
		`message,{"id":100,"channel":1,"author":2,"timestamp":10}`,
		`reaction,{"message":100,"channel":1,"emoji":{"name":"👍"},"count":2}`,
		`reaction_user,{"message":100,"channel":1,"emoji":{"name":"👍"},"user":3}`,
		`run_finished,{"time":1}`,
		// A second run re-carries the boundary message with its reactions.
		header,
		`message,{"id":100,"channel":1,"author":2,"timestamp":10}`,
		`reaction,{"message":100,"channel":1,"emoji":{"name":"👍"},"count":5}`,
		`reaction_user,{"message":100,"channel":1,"emoji":{"name":"👍"},"user":3}`,
		`reaction_user,{"message":100,"channel":1,"emoji":{"name":"👍"},"user":4}`,
	)
	require.NoError(t, err)

	msg := tr.Message(100)
	require.Len(t, msg.Reactions, 1, "re-carried reaction must not attach twice")
	r := msg.Reactions[0]
	assert.Equal(t, 2, r.Count, "first captured count wins")
	assert.Equal(t, []int64{3, 4}, r.UserIDs, "memberships dedup per user, new users still attach")
}

func TestLoadAttachesReactionsAndMembership(t *testing.T) {
	tr, err := loadLog(t,
		header,
		`user,{"id":2,"name":"alice"}`,
		`message,{"id":100,"channel":1,"author":2,"timestamp":10}`,
		`reaction,{"message":100,"channel":1,"emoji":{"name":"👍"},"count":2}`,
		`user,{"id":3,"name":"bob"}`,
		`reaction_user,{"message":100,"channel":1,"emoji":{"name":"👍"},"user":3}`,
		`reaction_user,{"message":100,"channel":1,"emoji":{"name":"👍"},"user":4}`,
	)
	require.NoError(t, err)

	msg := tr.Message(100)
	require.Len(t, msg.Reactions, 1)
	r := msg.Reactions[0]
	assert.Equal(t, "👍", r.Emoji.Name)
	assert.Equal(t, 2, r.Count)
	assert.Equal(t, []int64{3, 4}, r.UserIDs)
	require.Len(t, r.Users, 2)
	assert.Equal(t, "bob", r.Users[0].Name)
	assert.Nil(t, r.Users[1], "user 4 was never defined in the log")
}

func TestLoadRejectsDanglingReaction(t *testing.T) {
	_, err := loadLog(t,
		header,
		`reaction,{"message":999,"channel":1,"emoji":{"name":"👍"},"count":1}`,
	)
	assert.ErrorIs(t, err, ErrDanglingReference)
}

func TestLoadRejectsReactionUserWithoutReaction(t *testing.T) {
	_, err := loadLog(t,
		header,
		`message,{"id":100,"channel":1,"author":2,"timestamp":10}`,
		`reaction_user,{"message":100,"channel":1,"emoji":{"name":"👍"},"user":3}`,
	)
	assert.ErrorIs(t, err, ErrDanglingReference)
}

func TestLoadRejectsMissingHeader(t *testing.T) {
	_, err := loadLog(t, `message,{"id":100,"channel":1,"author":2}`)
	assert.ErrorIs(t, err, records.ErrCorruptLog)
}

func TestLoadSkipsUnknownRecordTypes(t *testing.T) {
	tr, err := loadLog(t,
		header,
		`thread,{"id":5}`,
		`message,{"id":100,"channel":1,"author":2,"timestamp":10}`,
	)
	require.NoError(t, err)
	assert.Len(t, tr.Messages(), 1)
}

func TestSubstituteMentions(t *testing.T) {
	tr, err := loadLog(t,
		header,
		`user,{"id":2,"name":"alice","nick":"Ali"}`,
		`channel,{"id":1,"name":"general","type":"text"}`,
		`role,{"id":7,"name":"admins","server":9}`,
		`custom_emoji,{"id":11,"name":"party"}`,
	)
	require.NoError(t, err)

	cases := []struct{ in, want string }{
		{"hey <@2>", "hey @Ali"},
		{"hey <@!2>", "hey @Ali"},
		{"see <#1>", "see #general"},
		{"ping <@&7>", "ping @admins"},
		{"<:party:11> time", ":party: time"},
		{"<a:party:11> time", ":party: time"},
		// Unresolvable targets stay verbatim.
		{"hey <@999>", "hey <@999>"},
		{"<:gone:999>", "<:gone:999>"},
		{"plain text", "plain text"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, tr.SubstituteMentions(c.in), c.in)
	}
}

func TestWriteText(t *testing.T) {
	tr, err := loadLog(t,
		header,
		`user,{"id":2,"name":"alice"}`,
		`channel,{"id":1,"name":"general","type":"text"}`,
		`message,{"id":100,"channel":1,"author":2,"content":"hello <@2>","timestamp":1717200000}`,
	)
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, tr.WriteText(&sb))
	out := sb.String()
	assert.Contains(t, out, "#general")
	assert.Contains(t, out, "<alice>")
	assert.Contains(t, out, "hello @alice")
}
