package judge

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"hanteikun/internal/line"
)

const (
	cardTitle   = "ブラック求人判定"
	titleColor  = "#AAAAAA"
	labelColor  = "#555555"
	trackColor  = "#E0E0E0"
	adviceColor = "#333333"
)

// RenderCard builds the flex bubble presentation of a verdict: header line,
// hero block with icon, score and proportional severity bar, and a body
// listing each red flag plus the advice. Pure; the verdict is not mutated.
func RenderCard(v *Verdict) *line.FlexBubble {
	tier := TierFor(v.DangerScore)

	title := line.Text(cardTitle)
	title.Weight = "bold"
	title.Size = "sm"
	title.Color = titleColor

	icon := line.Text(fmt.Sprintf("%s 危険度", tier.Icon))
	icon.Size = "sm"
	icon.Color = labelColor

	score := line.Text(scoreText(v.DangerScore))
	score.Size = "3xl"
	score.Weight = "bold"
	score.Color = tier.AccentColor

	label := line.Text(fmt.Sprintf("⚖️ 判定: %s", v.Label))
	label.Size = "md"
	label.Margin = "sm"
	label.Wrap = true

	hero := line.Box("vertical", icon, score, label, severityBar(v.DangerScore, tier))
	hero.PaddingAll = "lg"

	body := line.Box("vertical", bodyContents(v)...)
	body.Spacing = "sm"

	bubble := line.NewBubble()
	bubble.Header = line.Box("vertical", title)
	bubble.Hero = hero
	bubble.Body = body

	return bubble
}

// RenderAltText is the notification fallback text for the flex card.
func RenderAltText(v *Verdict) string {
	return fmt.Sprintf("危険度%s 判定: %s", scoreText(v.DangerScore), v.Label)
}

// RenderPlainText is the text-only rendering of a verdict, used where flex
// bubbles cannot be displayed.
func RenderPlainText(v *Verdict) string {
	var b strings.Builder

	tier := TierFor(v.DangerScore)
	fmt.Fprintf(&b, "%s 危険度: %s\n", tier.Icon, scoreText(v.DangerScore))
	fmt.Fprintf(&b, "⚖️ 判定: %s\n\n", v.Label)
	b.WriteString("🚩 【検出された罠】\n")
	for _, flag := range v.RedFlags {
		fmt.Fprintf(&b, "・%s\n", flag)
	}
	fmt.Fprintf(&b, "\n💡 %s", v.Advice)

	return b.String()
}

func bodyContents(v *Verdict) []*line.FlexComponent {
	contents := []*line.FlexComponent{line.Separator()}

	for _, flag := range v.RedFlags {
		item := line.Text(fmt.Sprintf("🚩 %s", flag))
		item.Size = "sm"
		item.Wrap = true
		contents = append(contents, item)
	}

	advice := line.Text(fmt.Sprintf("💡 %s", v.Advice))
	advice.Size = "sm"
	advice.Color = adviceColor
	advice.Wrap = true

	return append(contents, line.Separator(), advice)
}

// severityBar renders the proportional bar: the fill width is the score
// percentage, clamped to [0,100] for presentation only.
func severityBar(score float64, tier Tier) *line.FlexComponent {
	fill := line.Box("vertical", line.Filler())
	fill.Width = fmt.Sprintf("%d%%", clampPercent(score))
	fill.BackgroundColor = tier.BarColor
	fill.Height = "8px"
	fill.CornerRadius = "4px"

	track := line.Box("vertical", fill)
	track.BackgroundColor = trackColor
	track.Height = "8px"
	track.CornerRadius = "4px"
	track.Margin = "md"

	return track
}

func scoreText(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64) + "%"
}

func clampPercent(score float64) int {
	rounded := math.Round(score)
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return int(rounded)
}
