package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanDropsPageNumbers(t *testing.T) {
	raw := "12\n他们到了北京。\n- 34 -\n然后坐火车回家。\n·56·"
	got := Clean(raw, DefaultCleanOptions())
	assert.Equal(t, "他们到了北京。\n然后坐火车回家。", got)
}

func TestCleanDropsPageMarkers(t *testing.T) {
	raw := "--- Page 2 ---\n小明很高兴。"
	got := Clean(raw, DefaultCleanOptions())
	assert.Equal(t, "小明很高兴。", got)
}

func TestCleanDropsLatinRunningHeads(t *testing.T) {
	raw := "CHAPTER THREE\n她打开了门。\nwww.example.com"
	got := Clean(raw, DefaultCleanOptions())
	assert.Equal(t, "她打开了门。", got)
}

func TestCleanKeepsLatinWhenAsked(t *testing.T) {
	opts := DefaultCleanOptions()
	opts.KeepLatinLines = true
	raw := "Lesson 3\n你好。"
	got := Clean(raw, opts)
	assert.Equal(t, "Lesson 3\n你好。", got)
}

func TestCleanDropsLowDensityGarbage(t *testing.T) {
	// A smudge line where OCR found one Han rune in a pile of symbols
	raw := "| . _ ~ 的 % # @ * ^ | |\n我们走吧。"
	got := Clean(raw, DefaultCleanOptions())
	assert.Equal(t, "我们走吧。", got)
}

func TestCleanCollapsesWhitespace(t *testing.T) {
	raw := "他  说：  “好。”"
	got := Clean(raw, DefaultCleanOptions())
	assert.Equal(t, "他 说： “好。”", got)
}

func TestCleanEmptyInput(t *testing.T) {
	assert.Equal(t, "", Clean("", DefaultCleanOptions()))
	assert.Equal(t, "", Clean("\n  \n\t\n", DefaultCleanOptions()))
}
