package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/figflow/internal/presentation/tui"
	"github.com/aretw0/figflow/pkg/panel"
	"github.com/stretchr/testify/assert"
)

func TestRenderer_Plain(t *testing.T) {
	r := tui.NewRenderer(false)

	assert.Equal(t, "you> format [image: a.png]\n", r.Entry(panel.Entry{Role: panel.RoleUser, Text: "format", Image: "a.png"}))
	assert.Equal(t, "bot> x = 1\n", r.Entry(panel.Entry{Role: panel.RoleBot, Text: "x = 1"}))
	assert.Equal(t, "error> "+panel.MsgRequestFailed+"\n", r.Entry(panel.Entry{Role: panel.RoleError, Text: panel.MsgRequestFailed}))
	assert.Equal(t, "info> Code updated\n", r.Status("info", "Code updated"))
}

func TestRenderer_ColorRendersCode(t *testing.T) {
	r := tui.NewRenderer(true)

	out := r.Entry(panel.Entry{Role: panel.RoleBot, Text: "x = 1"})
	assert.Contains(t, out, "x = 1")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|___/")
}
