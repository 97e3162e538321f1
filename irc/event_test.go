package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, line string) Message {
	t.Helper()
	msg, err := ParseMessage(line)
	require.NoError(t, err)
	return msg
}

func TestClassify(t *testing.T) {
	cases := []struct {
		line string
		want EventKind
	}{
		{"PING :srv", EPing},
		{":srv 001 alice :hi", ENumeric},
		{":a!u@h PRIVMSG #c :hello", EPrivmsg},
		{":a!u@h NOTICE alice :hi", ENotice},
		{":a!u@h PRIVMSG alice :\x01PING 123\x01", ECTCP},
		{":a!u@h NOTICE alice :\x01VERSION\x01", ECTCP},
		{":a!u@h JOIN #c", EJoin},
		{":a!u@h PART #c", EPart},
		{":a!u@h QUIT :bye", EQuit},
		{":a!u@h MODE #c +o alice", EMode},
		{":a!u@h TOPIC #c :new topic", ETopic},
		{":a!u@h INVITE alice #c", EInvite},
		{":a!u@h KICK #c bob :reason", EKick},
		{":a!u@h NICK newnick", ENick},
		{":srv WHATEVER foo bar", ERaw},
	}
	for _, c := range cases {
		ev := newEvent(mustParse(t, c.line), []byte(c.line))
		assert.Equal(t, c.want, ev.Kind, c.line)
	}
}

func TestEventSource(t *testing.T) {
	ev := newEvent(mustParse(t, ":alice!a@h PRIVMSG #chan :hi"), nil)
	assert.Equal(t, SourceChannel, ev.Source.Kind)
	assert.Equal(t, "#chan", ev.Source.Channel)
	assert.Equal(t, "alice", ev.Source.User)

	ev = newEvent(mustParse(t, ":alice!a@h PRIVMSG bob :hi"), nil)
	assert.Equal(t, SourceUser, ev.Source.Kind)
	assert.Equal(t, "alice", ev.Source.User)

	ev = newEvent(mustParse(t, ":irc.example.net 001 alice :hi"), nil)
	assert.Equal(t, SourceServer, ev.Source.Kind)
	assert.Equal(t, "irc.example.net", ev.Source.Server)
}

func TestAsCTCP(t *testing.T) {
	ev := newEvent(mustParse(t, ":a!u@h PRIVMSG me :\x01PING 12345\x01"), nil)
	c, ok := ev.AsCTCP()
	require.True(t, ok)
	assert.Equal(t, "PING", c.Verb)
	assert.Equal(t, []string{"12345"}, c.Args)
	assert.False(t, c.Notice)
	assert.Equal(t, "me", c.Target)

	ev = newEvent(mustParse(t, ":a!u@h PRIVMSG me :hello"), nil)
	_, ok = ev.AsCTCP()
	assert.False(t, ok)
}
