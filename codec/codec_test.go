package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	for _, name := range Names() {
		c, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
		_, ok = c.(Indenter)
		assert.True(t, ok, name)
	}
	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestCodecsAgree(t *testing.T) {
	msg := sampleMessage()

	std := MustMarshal(JSON{}, msg)
	fast := MustMarshal(GoJSON{}, msg)
	assert.JSONEq(t, string(std), string(fast))

	var back benchMessage
	require.NoError(t, GoJSON{}.Unmarshal(std, &back))
	assert.Equal(t, msg, back)

	out, err := GoJSON{}.Append([]byte("x"), msg.Properties[0])
	require.NoError(t, err)
	assert.Equal(t, byte('x'), out[0])
	assert.JSONEq(t, `{"tag":"0x0037001F","type":"PT_UNICODE","value":"Quarterly report"}`, string(out[1:]))
}

func TestMustMarshal_Panics(t *testing.T) {
	assert.Panics(t, func() { MustMarshal(nil, make(chan int)) })
}
