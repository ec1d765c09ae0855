package cleaner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptmerge/internal/extractor"
)

const greetingSource = `# coding: utf-8
# Greeting class

class Greeting(object):
    """Greeting Class"""

    def __init__(self, msg: str) -> None:
        """
        Class Constructor

        Args:
            msg (str): message for greeting
        """
        self._msg = msg

    def get_greeting(self, extra: str = '') -> str:
        # some comment for testing, do not remove
        if extra:
            return self._msg + " " + extra  # joined
        return self._msg
`

const greetingClean = `# coding: utf-8

class Greeting(object):

    def __init__(self, msg: str) -> None:
        self._msg = msg

    def get_greeting(self, extra: str = '') -> str:
        if extra:
            return self._msg + " " + extra
        return self._msg
`

func newCleaner(t *testing.T) *Cleaner {
	t.Helper()
	c, err := New()
	require.NoError(t, err)
	return c
}

func TestCleaner_Clean(t *testing.T) {
	c := newCleaner(t)

	t.Run("Comments and docstrings", func(t *testing.T) {
		out, err := c.Clean("greeting.py", []byte(greetingSource))
		require.NoError(t, err)
		assert.Equal(t, greetingClean, string(out))
	})

	t.Run("Shebang is kept", func(t *testing.T) {
		out, err := c.Clean("hello", []byte("#!/usr/bin/env python3\n# note\nprint('hi')\n"))
		require.NoError(t, err)
		assert.Equal(t, "#!/usr/bin/env python3\nprint('hi')\n", string(out))
	})

	t.Run("Emptied block gets pass", func(t *testing.T) {
		out, err := c.Clean("m.py", []byte("def f():\n    \"\"\"Only a docstring.\"\"\"\n\nx = 1\n"))
		require.NoError(t, err)
		assert.Equal(t, "def f():\n    pass\n\nx = 1\n", string(out))
	})

	t.Run("Strings sharing a line are kept", func(t *testing.T) {
		src := "def f(): \"doc\"\nx = 1; 'tail'\n"
		out, err := c.Clean("m.py", []byte(src))
		require.NoError(t, err)
		assert.Equal(t, src, string(out))
	})

	t.Run("Interpolated strings are kept", func(t *testing.T) {
		src := "f\"{print('side effect')}\"\n"
		out, err := c.Clean("m.py", []byte(src))
		require.NoError(t, err)
		assert.Equal(t, src, string(out))
	})

	t.Run("Hash inside strings is not a comment", func(t *testing.T) {
		src := "x = '# not a comment'\n"
		out, err := c.Clean("m.py", []byte(src))
		require.NoError(t, err)
		assert.Equal(t, src, string(out))
	})
}

func TestCleaner_Idempotent(t *testing.T) {
	c := newCleaner(t)

	sources := []string{
		greetingSource,
		"\"\"\"Module doc.\"\"\"\n# c\n\"second\"\nimport os\n",
		"class A:\n    'a'\n    'b'\n    # tail\n",
		"#!/usr/bin/env python\n# -*- coding: latin-1 -*-\nif True:\n    \"x\"  # y\n",
	}
	for _, src := range sources {
		once, err := c.Clean("m.py", []byte(src))
		require.NoError(t, err)
		twice, err := c.Clean("m.py", once)
		require.NoError(t, err)
		assert.Equal(t, string(once), string(twice))
	}
}

func TestCleaner_ParseError(t *testing.T) {
	c := newCleaner(t)
	_, err := c.Clean("bad.py", []byte("def (:\n"))
	var parseErr *extractor.ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestCodingRe(t *testing.T) {
	codings := []string{
		"# -*- coding: latin-1 -*-",
		"# -*- coding: utf8 -*-",
		"# coding=latin-1",
		"# coding=utf-8",
		"# coding: latin-1",
		"# coding: utf-8",
	}
	for _, s := range codings {
		m := codingRe.FindStringSubmatch(s)
		require.Len(t, m, 2, s)
	}

	bad := []string{
		"# --codeing: latin-1 -*-",
		"# coding utf8",
		"#coding-latin-1",
		"# codin latin-1",
	}
	for _, s := range bad {
		assert.False(t, codingRe.MatchString(s), s)
	}
}
