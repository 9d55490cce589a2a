package write

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	iter int
	obj  float64
}

func (c *counter) AppendWriteData(v []*Value) []*Value {
	v = append(v, &Value{Heading: "Iter", Value: c.iter})
	v = append(v, &Value{Heading: "Obj", Value: c.obj})
	return v
}

func TestLoggerWritesEveryRow(t *testing.T) {
	var buf bytes.Buffer
	c := &counter{}
	d := NewDisplay()
	d.AddDataAdder(c)
	require.NoError(t, d.Init(&Settings{Writers: []Writer{{Writer: &buf, Type: Logger}}}))

	for i := 1; i <= 3; i++ {
		c.iter = i
		c.obj = float64(i) / 2
		require.NoError(t, d.Iterate())
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Iter,Obj", lines[0])
	assert.Equal(t, "1,5.000000e-01", lines[1])
	assert.Equal(t, "3,1.500000e+00", lines[3])
}

func TestDisplayerShowsHeadingAndStatus(t *testing.T) {
	var buf bytes.Buffer
	c := &counter{iter: 7, obj: 2}
	d := NewDisplay()
	d.AddDataAdder(c)
	require.NoError(t, d.Init(&Settings{Writers: []Writer{{Writer: &buf, Type: Displayer}}}))
	require.NoError(t, d.Iterate())
	require.NoError(t, d.Finish("Optimal"))

	out := buf.String()
	assert.Contains(t, out, "Iter")
	assert.Contains(t, out, "Obj")
	assert.Contains(t, out, "2.000000e+00")
	assert.True(t, strings.HasSuffix(out, "Status: Optimal\n"))
}

func TestNoWritersIsSilent(t *testing.T) {
	d := NewDisplay()
	d.AddDataAdder(&counter{})
	require.NoError(t, d.Init(&Settings{}))
	require.NoError(t, d.Iterate())
	require.NoError(t, d.Finish("Stopped"))
}

func TestUnknownWriterType(t *testing.T) {
	d := NewDisplay()
	err := d.Init(&Settings{Writers: []Writer{{Writer: &bytes.Buffer{}, Type: Type(9)}}})
	assert.Error(t, err)
}
